package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/lalonchera/internal/models"
)

var decimalZero = decimal.Zero

// QuoteResult is the priced summary of a validated order.
type QuoteResult struct {
	MealCount   int
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	TotalAmount decimal.Decimal
}

// Quote prices a validated order shape against a pricing config snapshot.
// It is pure: the config is an explicit argument, never read from shared
// state. Extra sides add cost but do not count as meals for the per-meal
// delivery fee. Rounding happens once, on the final amounts.
func Quote(days []DaySelection, cfg models.PricingConfig, isPickup bool) QuoteResult {
	completas := 0
	extraEntreeUnits := 0
	extraSideUnits := 0

	for _, day := range days {
		completas += len(day.Completas)
		for _, extra := range day.ExtraEntrees {
			extraEntreeUnits += extra.Quantity
		}
		for _, extra := range day.ExtraSides {
			extraSideUnits += extra.Quantity
		}
	}

	subtotal := cfg.CompletaPrice.Mul(decimal.NewFromInt(int64(completas))).
		Add(cfg.ExtraEntreePrice.Mul(decimal.NewFromInt(int64(extraEntreeUnits)))).
		Add(cfg.ExtraSidePrice.Mul(decimal.NewFromInt(int64(extraSideUnits))))

	mealCount := completas + extraEntreeUnits

	deliveryFee := decimal.Zero
	if !isPickup {
		deliveryFee = cfg.DeliveryFeePerMeal.Mul(decimal.NewFromInt(int64(mealCount)))
	}

	return QuoteResult{
		MealCount:   mealCount,
		Subtotal:    subtotal.Round(2),
		DeliveryFee: deliveryFee.Round(2),
		TotalAmount: subtotal.Add(deliveryFee).Round(2),
	}
}

// PricingProvider loads the pricing config in effect.
type PricingProvider struct {
	db *gorm.DB
}

// NewPricingProvider constructs a PricingProvider.
func NewPricingProvider(db *gorm.DB) *PricingProvider {
	return &PricingProvider{db: db}
}

// Current returns the active pricing config. A missing config is an
// operational setup problem, not a user error, so it comes back as a plain
// error that handlers treat as fatal for the request.
func (p *PricingProvider) Current() (*models.PricingConfig, error) {
	var cfg models.PricingConfig
	if err := p.db.Order("created_at desc").First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("pricing config is not set up")
		}
		return nil, err
	}
	return &cfg, nil
}
