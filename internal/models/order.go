package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// Payment statuses cached on the order. The payment ledger is the source of
// truth; this field is recomputed from it on every ledger append.
const (
	PaymentStatusPending       = "PENDING"
	PaymentStatusPaid          = "PAID"
	PaymentStatusFailed        = "FAILED"
	PaymentStatusRefunded      = "REFUNDED"
	PaymentStatusCreditAccount = "CREDIT_ACCOUNT"
)

// Order is the aggregate root for a multi-day meal order. Days and items are
// created atomically with the order; edits replace the whole subtree.
type Order struct {
	BaseModel
	OrderNumber        string          `gorm:"uniqueIndex;size:20" json:"order_number"`
	CustomerID         uuid.UUID       `gorm:"type:uuid;index" json:"customer_id"`
	Customer           *User           `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	WeeklyMenuID       uuid.UUID       `gorm:"type:uuid;index" json:"weekly_menu_id"`
	IsPickup           bool            `json:"is_pickup"`
	AddressID          *uuid.UUID      `gorm:"type:uuid" json:"address_id"`
	Subtotal           decimal.Decimal `gorm:"type:numeric(10,2)" json:"subtotal"`
	DeliveryFee        decimal.Decimal `gorm:"type:numeric(10,2)" json:"delivery_fee"`
	TotalAmount        decimal.Decimal `gorm:"type:numeric(10,2)" json:"total_amount"`
	Status             string          `gorm:"default:PENDING" json:"status"`
	PaymentStatus      string          `gorm:"default:PENDING" json:"payment_status"`
	PaymentMethod      string          `json:"payment_method"`
	Notes              string          `json:"notes"`
	GuestToken         *string         `gorm:"uniqueIndex" json:"-"`
	CheckoutSessionKey *string         `gorm:"uniqueIndex" json:"-"`
	PlacedAt           time.Time       `json:"placed_at"`
	Days               []OrderDay      `gorm:"constraint:OnDelete:CASCADE" json:"days,omitempty"`
	Payments           []Payment       `gorm:"constraint:OnDelete:CASCADE" json:"payments,omitempty"`
}

// Terminal reports whether the order status permits no further changes.
func (o *Order) Terminal() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusCancelled
}

// PaymentOpen reports whether the order can still be charged or edited.
// A declined charge (FAILED) leaves the order open for another attempt.
func (o *Order) PaymentOpen() bool {
	return o.PaymentStatus == PaymentStatusPending || o.PaymentStatus == PaymentStatusFailed
}

// OrderDay groups the items ordered for one weekday (1..5, Monday..Friday).
type OrderDay struct {
	BaseModel
	OrderID   uuid.UUID   `gorm:"type:uuid;index;uniqueIndex:idx_order_day" json:"order_id"`
	DayOfWeek int         `gorm:"uniqueIndex:idx_order_day" json:"day_of_week"`
	Items     []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// OrderItem is one priced line. Completa members share a CompletaGroupID;
// sides inside a completa carry a zero unit price because the bundle price
// lives on the entree line.
type OrderItem struct {
	BaseModel
	OrderDayID      uuid.UUID       `gorm:"type:uuid;index" json:"order_day_id"`
	MenuItemID      uuid.UUID       `gorm:"type:uuid" json:"menu_item_id"`
	MenuItemName    string          `json:"menu_item_name"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:numeric(10,2)" json:"unit_price"`
	IsCompleta      bool            `json:"is_completa"`
	CompletaGroupID *string         `gorm:"size:36" json:"completa_group_id"`
}
