package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/lalonchera/internal/models"
	"github.com/example/lalonchera/internal/services"
	"github.com/example/lalonchera/internal/utils"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	db        *gorm.DB
	lifecycle *services.Lifecycle
	pricing   *services.PricingProvider
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, lifecycle *services.Lifecycle, pricing *services.PricingProvider) *AdminHandler {
	return &AdminHandler{db: db, lifecycle: lifecycle, pricing: pricing}
}

// GetPricingConfig returns the unit prices currently in effect.
func (h *AdminHandler) GetPricingConfig(c *fiber.Ctx) error {
	cfg, err := h.pricing.Current()
	if err != nil {
		log.Printf("[Admin] pricing config lookup failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "pricing config is not set up")
	}

	return c.JSON(fiber.Map{"success": true, "data": cfg})
}

type pricingConfigRequest struct {
	CompletaPrice      decimal.Decimal `json:"completa_price"`
	ExtraEntreePrice   decimal.Decimal `json:"extra_entree_price"`
	ExtraSidePrice     decimal.Decimal `json:"extra_side_price"`
	DeliveryFeePerMeal decimal.Decimal `json:"delivery_fee_per_meal"`
}

// UpdatePricingConfig replaces the active unit prices. Existing orders are
// unaffected: they snapshot their amounts at creation time.
func (h *AdminHandler) UpdatePricingConfig(c *fiber.Ctx) error {
	var req pricingConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	for _, price := range []decimal.Decimal{req.CompletaPrice, req.ExtraEntreePrice, req.ExtraSidePrice, req.DeliveryFeePerMeal} {
		if price.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "prices must not be negative")
		}
	}

	cfg := models.PricingConfig{
		CompletaPrice:      req.CompletaPrice.Round(2),
		ExtraEntreePrice:   req.ExtraEntreePrice.Round(2),
		ExtraSidePrice:     req.ExtraSidePrice.Round(2),
		DeliveryFeePerMeal: req.DeliveryFeePerMeal.Round(2),
	}

	if err := h.db.Create(&cfg).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": cfg})
}

// ListAllOrders returns all orders with pagination and filtering.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if paymentStatus := c.Query("payment_status"); paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("order_number ILIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Customer").Preload("Days.Items").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetOrder returns any order with its full ledger.
func (h *AdminHandler) GetOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("Customer").Preload("Days.Items").Preload("Payments").
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=CONFIRMED DELIVERED CANCELLED"`
}

// UpdateOrderStatus moves an order through its status machine.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "status must be CONFIRMED, DELIVERED or CANCELLED")
	}

	order, err := h.lifecycle.Transition(id, req.Status)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

type confirmPaymentRequest struct {
	Method    string `json:"method" validate:"required"`
	Reference string `json:"reference" validate:"required"`
}

// ConfirmPayment records a charge confirmed out-of-band by the processor.
func (h *AdminHandler) ConfirmPayment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req confirmPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "method and reference are required")
	}

	order, err := h.lifecycle.RecordExternalPayment(id, req.Method, req.Reference)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// MarkCreditAccount flags a house-account order that is never charged.
func (h *AdminHandler) MarkCreditAccount(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	order, err := h.lifecycle.MarkCreditAccount(id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

type refundRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// RefundOrder issues a partial or full refund against a paid order.
func (h *AdminHandler) RefundOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req refundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order, entry, err := h.lifecycle.Refund(c.Context(), id, req.Amount)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"order":  order,
			"refund": entry,
		},
	})
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	var totalCustomers int64
	if err := h.db.Model(&models.User{}).Where("is_admin = ?", false).Count(&totalCustomers).Error; err != nil {
		return err
	}

	var totalOrders int64
	if err := h.db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		return err
	}

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var statusCounts []statusCount
	if err := h.db.Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return err
	}

	ordersByStatus := make(map[string]int64)
	for _, sc := range statusCounts {
		ordersByStatus[sc.Status] = sc.Count
	}

	// Net revenue is the ledger's view: charges minus refunds.
	var netRevenue decimal.Decimal
	if err := h.db.Model(&models.Payment{}).
		Where("status IN ?", []string{models.PaymentRowPaid, models.PaymentRowRefunded}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&netRevenue).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_customers":  totalCustomers,
			"total_orders":     totalOrders,
			"net_revenue":      netRevenue,
			"orders_by_status": ordersByStatus,
		},
	})
}
