package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lalonchera/internal/models"
)

func TestCanTransitionStatus(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{models.OrderStatusPending, models.OrderStatusConfirmed, true},
		{models.OrderStatusPending, models.OrderStatusCancelled, true},
		{models.OrderStatusPending, models.OrderStatusDelivered, false},
		{models.OrderStatusConfirmed, models.OrderStatusDelivered, true},
		{models.OrderStatusConfirmed, models.OrderStatusCancelled, true},
		{models.OrderStatusConfirmed, models.OrderStatusPending, false},
		{models.OrderStatusDelivered, models.OrderStatusCancelled, false},
		{models.OrderStatusDelivered, models.OrderStatusConfirmed, false},
		{models.OrderStatusCancelled, models.OrderStatusPending, false},
		{models.OrderStatusCancelled, models.OrderStatusConfirmed, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransitionStatus(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func paidRow(amount string) models.Payment {
	return models.Payment{
		Amount: decimal.RequireFromString(amount),
		Status: models.PaymentRowPaid,
	}
}

func refundRow(amount string) models.Payment {
	return models.Payment{
		Amount: decimal.RequireFromString(amount).Neg(),
		Status: models.PaymentRowRefunded,
	}
}

func failedRow(amount string) models.Payment {
	return models.Payment{
		Amount: decimal.RequireFromString(amount),
		Status: models.PaymentRowFailed,
	}
}

func TestRefundedTotal(t *testing.T) {
	rows := []models.Payment{
		paidRow("79.00"),
		refundRow("10.00"),
		refundRow("5.50"),
		failedRow("79.00"),
	}

	assert.True(t, RefundedTotal(rows).Equal(decimal.RequireFromString("15.50")))
	assert.True(t, RefundedTotal(nil).IsZero())
}

func TestMaxRefundable(t *testing.T) {
	total := decimal.RequireFromString("79.00")

	rows := []models.Payment{paidRow("79.00")}
	assert.True(t, MaxRefundable(total, rows).Equal(total))

	rows = append(rows, refundRow("30.00"))
	assert.True(t, MaxRefundable(total, rows).Equal(decimal.RequireFromString("49.00")))

	rows = append(rows, refundRow("49.00"))
	assert.True(t, MaxRefundable(total, rows).IsZero())
}

func TestDerivePaymentStatus(t *testing.T) {
	total := decimal.RequireFromString("79.00")

	// No ledger activity yet.
	assert.Equal(t, models.PaymentStatusPending, DerivePaymentStatus(total, nil))

	// A decline derives FAILED, matching what the charge path writes.
	assert.Equal(t, models.PaymentStatusFailed,
		DerivePaymentStatus(total, []models.Payment{failedRow("79.00")}))

	// A successful charge flips to PAID, earlier declines notwithstanding.
	rows := []models.Payment{failedRow("79.00"), paidRow("79.00")}
	assert.Equal(t, models.PaymentStatusPaid, DerivePaymentStatus(total, rows))

	// Partial refunds stay PAID.
	rows = append(rows, refundRow("20.00"))
	assert.Equal(t, models.PaymentStatusPaid, DerivePaymentStatus(total, rows))

	// Refunding the remaining balance flips to REFUNDED.
	rows = append(rows, refundRow("59.00"))
	assert.Equal(t, models.PaymentStatusRefunded, DerivePaymentStatus(total, rows))
}

func TestCheckRefundable(t *testing.T) {
	total := decimal.RequireFromString("36.00")
	rows := []models.Payment{paidRow("36.00")}

	assert.NoError(t, CheckRefundable(total, rows, decimal.RequireFromString("20.00")))
	assert.NoError(t, CheckRefundable(total, rows, total))
	assert.ErrorIs(t, CheckRefundable(total, rows, decimal.Zero), ErrRefundAmount)
	assert.ErrorIs(t, CheckRefundable(total, rows, decimal.RequireFromString("-5.00")), ErrRefundAmount)
	assert.ErrorIs(t, CheckRefundable(total, rows, decimal.RequireFromString("36.01")), ErrRefundExceedsBalance)
}

func TestCheckRefundableSequential(t *testing.T) {
	total := decimal.RequireFromString("36.00")
	rows := []models.Payment{paidRow("36.00")}

	// $20 on a $36 order leaves $16 refundable; a second $20 is over bound.
	require.NoError(t, CheckRefundable(total, rows, decimal.RequireFromString("20.00")))
	rows = append(rows, refundRow("20.00"))

	assert.ErrorIs(t, CheckRefundable(total, rows, decimal.RequireFromString("20.00")), ErrRefundExceedsBalance)
	assert.NoError(t, CheckRefundable(total, rows, decimal.RequireFromString("16.00")))
}

func TestPaymentOpenAfterDecline(t *testing.T) {
	assert.True(t, (&models.Order{PaymentStatus: models.PaymentStatusPending}).PaymentOpen())
	assert.True(t, (&models.Order{PaymentStatus: models.PaymentStatusFailed}).PaymentOpen())
	assert.False(t, (&models.Order{PaymentStatus: models.PaymentStatusPaid}).PaymentOpen())
	assert.False(t, (&models.Order{PaymentStatus: models.PaymentStatusRefunded}).PaymentOpen())
	assert.False(t, (&models.Order{PaymentStatus: models.PaymentStatusCreditAccount}).PaymentOpen())
}

func TestOrderTerminal(t *testing.T) {
	assert.False(t, (&models.Order{Status: models.OrderStatusPending}).Terminal())
	assert.False(t, (&models.Order{Status: models.OrderStatusConfirmed}).Terminal())
	assert.True(t, (&models.Order{Status: models.OrderStatusDelivered}).Terminal())
	assert.True(t, (&models.Order{Status: models.OrderStatusCancelled}).Terminal())
}
