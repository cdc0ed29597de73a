package checkout

import "strings"

// Validation failure reasons, checked in this order. The first failing check
// wins; later ones are not evaluated.
const (
	ReasonMissingRequiredFields = "missing_required_fields"
	ReasonInvalidPhone          = "invalid_phone"
	ReasonEmptyCart             = "empty_cart"
)

// phoneDigits is the exact digit count a normalized phone must have
// (country code included, e.g. 998901234567).
const phoneDigits = 12

// Contact is the shipping/contact block of an order submission.
type Contact struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	Region    string
}

// ValidationFailure names the first failed check and, for missing fields,
// which ones were empty.
type ValidationFailure struct {
	Reason string   `json:"reason"`
	Fields []string `json:"fields,omitempty"`
}

// NormalizePhone strips every non-digit character from the input.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateContact checks required fields, then the phone format. A nil result
// means the contact block is acceptable.
func ValidateContact(c Contact) *ValidationFailure {
	missing := missingFields(c)
	if len(missing) > 0 {
		return &ValidationFailure{Reason: ReasonMissingRequiredFields, Fields: missing}
	}
	if len(NormalizePhone(c.Phone)) != phoneDigits {
		return &ValidationFailure{Reason: ReasonInvalidPhone}
	}
	return nil
}

// ValidateOrder runs the contact checks and then requires a non-empty cart.
func ValidateOrder(c Contact, itemCount int) *ValidationFailure {
	if failure := ValidateContact(c); failure != nil {
		return failure
	}
	if itemCount < 1 {
		return &ValidationFailure{Reason: ReasonEmptyCart}
	}
	return nil
}

// FillEmail substitutes the placeholder when the shopper left email blank.
func FillEmail(email, placeholder string) string {
	if strings.TrimSpace(email) == "" {
		return placeholder
	}
	return strings.TrimSpace(email)
}

func missingFields(c Contact) []string {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"first_name", c.FirstName},
		{"last_name", c.LastName},
		{"phone", c.Phone},
		{"address", c.Address},
		{"city", c.City},
		{"region", c.Region},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}
