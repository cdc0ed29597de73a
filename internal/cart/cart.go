package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Muhammad3111/elektromart-backend/pkg/money"
)

// Item is a single cart line. Name and Price are snapshotted from the catalog
// at add time; Price keeps the display format ("45,000").
type Item struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Quantity  int       `json:"quantity"`
}

// Summary aggregates a cart: total unit count and the monetary sum.
type Summary struct {
	ItemCount int
	Total     decimal.Decimal
}

// addLine merges the new line into the cart, accumulating quantity when the
// product is already present. The input slice is not mutated.
func addLine(items []Item, line Item) []Item {
	next := make([]Item, len(items))
	copy(next, items)
	for i := range next {
		if next[i].ProductID == line.ProductID {
			next[i].Quantity += line.Quantity
			return next
		}
	}
	return append(next, line)
}

// setQuantity replaces the quantity of an existing line. It reports whether
// the product was found.
func setQuantity(items []Item, productID uuid.UUID, qty int) ([]Item, bool) {
	next := make([]Item, len(items))
	copy(next, items)
	for i := range next {
		if next[i].ProductID == productID {
			next[i].Quantity = qty
			return next, true
		}
	}
	return next, false
}

// removeLine drops the line for the product, if present.
func removeLine(items []Item, productID uuid.UUID) []Item {
	next := make([]Item, 0, len(items))
	for _, item := range items {
		if item.ProductID == productID {
			continue
		}
		next = append(next, item)
	}
	return next
}

// Summarize computes the cart totals. Display prices that fail to parse
// contribute zero; a broken line never breaks the whole cart.
func Summarize(items []Item) Summary {
	total := decimal.Zero
	count := 0
	for _, item := range items {
		count += item.Quantity
		price := money.Parse(item.Price)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return Summary{ItemCount: count, Total: total}
}
