package models

import (
	"time"

	"github.com/Muhammad3111/elektromart-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is the durable record produced by a successful checkout.
type Order struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	OrderNumber   string              `gorm:"column:order_number;not null;uniqueIndex"`
	UserID        *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	FirstName     string              `gorm:"column:first_name;not null"`
	LastName      string              `gorm:"column:last_name;not null"`
	Email         string              `gorm:"column:email;not null"`
	Phone         string              `gorm:"column:phone;not null"`
	Address       string              `gorm:"column:address;not null"`
	City          string              `gorm:"column:city;not null"`
	Region        string              `gorm:"column:region;not null"`
	Notes         *string             `gorm:"column:notes"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'cash'"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Items         []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CancelledAt   *time.Time          `gorm:"column:cancelled_at"`
	DeliveredAt   *time.Time          `gorm:"column:delivered_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
