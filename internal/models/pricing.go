package models

import "github.com/shopspring/decimal"

// PricingConfig holds a set of unit prices. Updates append a new row and the
// latest row is the one in effect; orders snapshot the computed amounts at
// creation time instead of referencing this table.
type PricingConfig struct {
	BaseModel
	CompletaPrice      decimal.Decimal `gorm:"type:numeric(10,2)" json:"completa_price"`
	ExtraEntreePrice   decimal.Decimal `gorm:"type:numeric(10,2)" json:"extra_entree_price"`
	ExtraSidePrice     decimal.Decimal `gorm:"type:numeric(10,2)" json:"extra_side_price"`
	DeliveryFeePerMeal decimal.Decimal `gorm:"type:numeric(10,2)" json:"delivery_fee_per_meal"`
}
