package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment ledger row statuses.
const (
	PaymentRowPaid     = "PAID"
	PaymentRowFailed   = "FAILED"
	PaymentRowRefunded = "REFUNDED"
)

// Payment is one money movement on an order. Rows are append-only: refunds
// add negative-amount rows, they never edit prior ones.
type Payment struct {
	BaseModel
	OrderID   uuid.UUID       `gorm:"type:uuid;index;not null" json:"order_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(10,2)" json:"amount"`
	Method    string          `json:"method"`
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Notes     string          `json:"notes"`
}
