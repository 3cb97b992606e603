package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/lalonchera/internal/models"
)

var orderStatusTransitions = map[string][]string{
	models.OrderStatusPending:   {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed: {models.OrderStatusDelivered, models.OrderStatusCancelled},
}

// CanTransitionStatus reports whether an order status change is legal.
// DELIVERED and CANCELLED are terminal.
func CanTransitionStatus(from, to string) bool {
	for _, allowed := range orderStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// RefundedTotal sums the absolute amounts of refund rows in a ledger.
func RefundedTotal(rows []models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		if row.Status == models.PaymentRowRefunded {
			total = total.Add(row.Amount.Abs())
		}
	}
	return total
}

// MaxRefundable is the amount still available to refund on an order.
func MaxRefundable(totalAmount decimal.Decimal, rows []models.Payment) decimal.Decimal {
	return totalAmount.Sub(RefundedTotal(rows))
}

// DerivePaymentStatus recomputes the cached payment status from the ledger.
// The ledger is the source of truth; the order field is a materialized view
// refreshed on every append, never patched incrementally. Declined charges
// leave only FAILED rows, which keeps the order open for a retry.
func DerivePaymentStatus(totalAmount decimal.Decimal, rows []models.Payment) string {
	charged := false
	declined := false
	for _, row := range rows {
		switch row.Status {
		case models.PaymentRowPaid:
			charged = true
		case models.PaymentRowFailed:
			declined = true
		}
	}
	if !charged {
		if declined {
			return models.PaymentStatusFailed
		}
		return models.PaymentStatusPending
	}
	if totalAmount.IsPositive() && RefundedTotal(rows).GreaterThanOrEqual(totalAmount) {
		return models.PaymentStatusRefunded
	}
	return models.PaymentStatusPaid
}

// CheckRefundable validates a refund amount against the refundable balance
// left on the ledger.
func CheckRefundable(totalAmount decimal.Decimal, rows []models.Payment, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrRefundAmount
	}
	if amount.GreaterThan(MaxRefundable(totalAmount, rows)) {
		return ErrRefundExceedsBalance
	}
	return nil
}

// Lifecycle owns order status, payment status and the refund ledger.
// Every mutation locks the order row so concurrent requests against the
// same order are serialized.
type Lifecycle struct {
	db        *gorm.DB
	processor ProcessorGateway
	currency  string
}

// NewLifecycle constructs a Lifecycle.
func NewLifecycle(db *gorm.DB, processor ProcessorGateway, currency string) *Lifecycle {
	return &Lifecycle{db: db, processor: processor, currency: currency}
}

func lockOrder(tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Transition moves an order to the next status.
func (l *Lifecycle) Transition(orderID uuid.UUID, next string) (*models.Order, error) {
	var order *models.Order
	err := l.db.Transaction(func(tx *gorm.DB) error {
		locked, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if locked.Terminal() {
			return ErrOrderTerminal
		}
		if !CanTransitionStatus(locked.Status, next) {
			return ErrInvalidTransition
		}

		if err := tx.Model(locked).Update("status", next).Error; err != nil {
			return err
		}
		locked.Status = next
		order = locked
		return nil
	})
	return order, err
}

// Charge captures the order total through the payment processor and records
// the outcome in the ledger. Allowed while payment is PENDING or FAILED:
// a decline is retryable, not final.
func (l *Lifecycle) Charge(ctx context.Context, orderID uuid.UUID, method string) (*models.Order, error) {
	var (
		order    *models.Order
		declined *DomainError
	)
	err := l.db.Transaction(func(tx *gorm.DB) error {
		locked, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if locked.Status == models.OrderStatusCancelled {
			return ErrOrderTerminal
		}
		if !locked.PaymentOpen() {
			return ErrAlreadyPaid
		}

		result, err := l.processor.Charge(ctx, locked.ID.String(), locked.TotalAmount, l.currency)
		if err != nil {
			return fmt.Errorf("payment processor charge: %w", err)
		}

		if !result.Success {
			row := models.Payment{
				OrderID: locked.ID,
				Amount:  locked.TotalAmount,
				Method:  method,
				Status:  models.PaymentRowFailed,
				Notes:   result.Reason,
			}
			if err := l.appendAndRecompute(tx, locked, &row, method); err != nil {
				return err
			}
			// Commit the FAILED row; the decline itself is reported to the
			// caller after the transaction.
			declined = paymentDeclined(result.Reason)
			return nil
		}

		row := models.Payment{
			OrderID:   locked.ID,
			Amount:    locked.TotalAmount,
			Method:    method,
			Status:    models.PaymentRowPaid,
			Reference: result.Reference,
		}
		if err := l.appendAndRecompute(tx, locked, &row, method); err != nil {
			// The processor has captured the money but the ledger write
			// failed. Never retry the charge blindly; flag it for manual
			// reconciliation instead.
			log.Printf("[Reconcile] order %s: processor captured %s (ref %s) but ledger append failed: %v",
				locked.ID, locked.TotalAmount, result.Reference, err)
			return err
		}

		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	if declined != nil {
		return nil, declined
	}
	return order, nil
}

// RecordExternalPayment appends a confirmed charge reported by the
// processor's own callback, without issuing a new processor call.
func (l *Lifecycle) RecordExternalPayment(orderID uuid.UUID, method, reference string) (*models.Order, error) {
	var order *models.Order
	err := l.db.Transaction(func(tx *gorm.DB) error {
		locked, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !locked.PaymentOpen() {
			return ErrAlreadyPaid
		}

		row := models.Payment{
			OrderID:   locked.ID,
			Amount:    locked.TotalAmount,
			Method:    method,
			Status:    models.PaymentRowPaid,
			Reference: reference,
		}
		if err := l.appendAndRecompute(tx, locked, &row, method); err != nil {
			return err
		}

		order = locked
		return nil
	})
	return order, err
}

// MarkCreditAccount flags a house-account order that is never charged
// through the processor.
func (l *Lifecycle) MarkCreditAccount(orderID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := l.db.Transaction(func(tx *gorm.DB) error {
		locked, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !locked.PaymentOpen() {
			return ErrInvalidTransition
		}

		if err := tx.Model(locked).Update("payment_status", models.PaymentStatusCreditAccount).Error; err != nil {
			return err
		}
		locked.PaymentStatus = models.PaymentStatusCreditAccount
		order = locked
		return nil
	})
	return order, err
}

// Refund issues a partial or full refund. The row lock spans the whole
// compute-bound -> processor call -> ledger append sequence so two
// concurrent refunds can never jointly exceed the refundable balance.
func (l *Lifecycle) Refund(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) (*models.Order, *models.Payment, error) {
	amount = amount.Round(2)

	var (
		order *models.Order
		entry *models.Payment
	)
	err := l.db.Transaction(func(tx *gorm.DB) error {
		locked, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if locked.PaymentStatus != models.PaymentStatusPaid {
			return ErrNotRefundable
		}

		var rows []models.Payment
		if err := tx.Where("order_id = ?", locked.ID).Order("created_at asc").Find(&rows).Error; err != nil {
			return err
		}

		if err := CheckRefundable(locked.TotalAmount, rows, amount); err != nil {
			return err
		}

		result, err := l.processor.Refund(ctx, locked.ID.String(), amount, l.currency)
		if err != nil {
			return fmt.Errorf("payment processor refund: %w", err)
		}
		if !result.Success {
			return paymentDeclined(result.Reason)
		}

		row := models.Payment{
			OrderID:   locked.ID,
			Amount:    amount.Neg(),
			Method:    locked.PaymentMethod,
			Status:    models.PaymentRowRefunded,
			Reference: result.Reference,
		}
		if err := tx.Create(&row).Error; err != nil {
			log.Printf("[Reconcile] order %s: processor refunded %s (ref %s) but ledger append failed: %v",
				locked.ID, amount, result.Reference, err)
			return err
		}

		rows = append(rows, row)
		status := DerivePaymentStatus(locked.TotalAmount, rows)
		if err := tx.Model(locked).Update("payment_status", status).Error; err != nil {
			log.Printf("[Reconcile] order %s: refund ledger row %s written but status update failed: %v",
				locked.ID, row.ID, err)
			return err
		}

		locked.PaymentStatus = status
		order = locked
		entry = &row
		return nil
	})
	return order, entry, err
}

// appendAndRecompute writes a ledger row and refreshes the cached payment
// status from the full ledger.
func (l *Lifecycle) appendAndRecompute(tx *gorm.DB, order *models.Order, row *models.Payment, method string) error {
	if err := tx.Create(row).Error; err != nil {
		return err
	}

	var rows []models.Payment
	if err := tx.Where("order_id = ?", order.ID).Find(&rows).Error; err != nil {
		return err
	}

	status := DerivePaymentStatus(order.TotalAmount, rows)
	if err := tx.Model(order).Updates(map[string]interface{}{
		"payment_status": status,
		"payment_method": method,
	}).Error; err != nil {
		return err
	}

	order.PaymentStatus = status
	order.PaymentMethod = method
	return nil
}

func paymentDeclined(reason string) *DomainError {
	message := "payment was declined"
	if reason != "" {
		message = fmt.Sprintf("payment was declined: %s", reason)
	}
	return &DomainError{Status: fiber.StatusPaymentRequired, Code: "payment_declined", Message: message}
}
