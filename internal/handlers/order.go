package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lalonchera/internal/middleware"
	"github.com/example/lalonchera/internal/models"
	"github.com/example/lalonchera/internal/services"
	"github.com/example/lalonchera/internal/utils"
)

const orderNumberAttempts = 5

// OrderHandler manages order endpoints.
type OrderHandler struct {
	db        *gorm.DB
	composer  *services.Composer
	resolver  *services.IdentityResolver
	pricing   *services.PricingProvider
	lifecycle *services.Lifecycle
	guard     services.CheckoutGuard
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, composer *services.Composer, resolver *services.IdentityResolver,
	pricing *services.PricingProvider, lifecycle *services.Lifecycle, guard services.CheckoutGuard) *OrderHandler {
	return &OrderHandler{
		db:        db,
		composer:  composer,
		resolver:  resolver,
		pricing:   pricing,
		lifecycle: lifecycle,
		guard:     guard,
	}
}

type guestInfoRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
}

type guestAddressRequest struct {
	AddressLine string `json:"address_line" validate:"required"`
	Apartment   string `json:"apartment"`
	City        string `json:"city" validate:"required"`
	District    string `json:"district"`
	PostalCode  string `json:"postal_code"`
}

type createOrderRequest struct {
	WeeklyMenuID       uuid.UUID               `json:"weekly_menu_id" validate:"required"`
	IsPickup           bool                    `json:"is_pickup"`
	AddressID          *uuid.UUID              `json:"address_id"`
	GuestInfo          *guestInfoRequest       `json:"guest_info"`
	GuestAddress       *guestAddressRequest    `json:"guest_address"`
	PaymentMethod      string                  `json:"payment_method"`
	Notes              string                  `json:"notes"`
	CheckoutSessionKey string                  `json:"checkout_session_key"`
	Days               []services.DaySelection `json:"days" validate:"required,dive"`
}

// CreateOrder places a multi-day order for an authenticated user or a guest.
// A checkout session key makes creation idempotent: replaying a completed
// session returns the already-created order instead of a duplicate.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing or invalid fields")
	}

	var authenticated *uuid.UUID
	if userID, ok := middleware.GetCurrentUserID(c); ok {
		authenticated = &userID
	}

	var guestEmail string
	if req.GuestInfo != nil {
		guestEmail = req.GuestInfo.Email
	}

	reserved := false
	if req.CheckoutSessionKey != "" {
		if existing := h.findBySessionKey(req.CheckoutSessionKey, authenticated, guestEmail); existing != nil {
			return c.JSON(fiber.Map{"success": true, "data": h.orderResponse(existing, nil)})
		}

		ok, err := h.guard.Reserve(c.Context(), req.CheckoutSessionKey)
		if err != nil {
			return err
		}
		if !ok {
			// Lost the race: either a create is mid-flight or it just
			// finished. Return the finished order when there is one.
			if existing := h.findBySessionKey(req.CheckoutSessionKey, authenticated, guestEmail); existing != nil {
				return c.JSON(fiber.Map{"success": true, "data": h.orderResponse(existing, nil)})
			}
			return services.ErrCheckoutInFlight
		}
		reserved = true
	}

	order, guestToken, err := h.createOrder(c, authenticated, &req)
	if err != nil {
		// A definitive failure the user can retry: free the session key.
		if reserved {
			if relErr := h.guard.Release(c.Context(), req.CheckoutSessionKey); relErr != nil {
				log.Printf("[Order] failed to release checkout session %s: %v", req.CheckoutSessionKey, relErr)
			}
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    h.orderResponse(order, guestToken),
	})
}

func (h *OrderHandler) createOrder(c *fiber.Ctx, authenticated *uuid.UUID, req *createOrderRequest) (*models.Order, *string, error) {
	var guest *services.GuestInfo
	if authenticated == nil {
		if req.GuestInfo == nil {
			return nil, nil, services.ErrGuestInfoRequired
		}
		guest = &services.GuestInfo{
			Email:     req.GuestInfo.Email,
			FirstName: req.GuestInfo.FirstName,
			LastName:  req.GuestInfo.LastName,
			Phone:     req.GuestInfo.Phone,
		}
	}

	resolution, err := h.resolver.Resolve(authenticated, guest)
	if err != nil {
		return nil, nil, err
	}

	newAddress := guestAddressPending(req)
	if newAddress && (req.GuestAddress.AddressLine == "" || req.GuestAddress.City == "") {
		return nil, nil, services.ErrAddressRequired
	}

	// A pending guest address is created only after validation passes, so a
	// rejected order leaves no orphan rows. The ownership check is skipped
	// for an address we are about to create ourselves.
	offering, err := h.composer.Validate(resolution.CustomerID, req.WeeklyMenuID, req.IsPickup || newAddress, req.AddressID, req.Days)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := h.pricing.Current()
	if err != nil {
		log.Printf("[Order] pricing config lookup failed: %v", err)
		return nil, nil, fiber.NewError(fiber.StatusInternalServerError, "something went wrong, please try again")
	}

	addressID := req.AddressID
	if newAddress {
		created, err := h.createGuestAddress(resolution.CustomerID, req.GuestAddress)
		if err != nil {
			return nil, nil, err
		}
		addressID = &created.ID
	}

	days := h.composer.Assemble(req.Days, offering, *cfg)
	quote := services.Quote(req.Days, *cfg, req.IsPickup)

	order := models.Order{
		CustomerID:    resolution.CustomerID,
		WeeklyMenuID:  req.WeeklyMenuID,
		IsPickup:      req.IsPickup,
		Subtotal:      quote.Subtotal,
		DeliveryFee:   quote.DeliveryFee,
		TotalAmount:   quote.TotalAmount,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		GuestToken:    resolution.GuestToken,
		PlacedAt:      time.Now(),
		Days:          days,
	}
	if !req.IsPickup {
		order.AddressID = addressID
	}
	if req.CheckoutSessionKey != "" {
		key := req.CheckoutSessionKey
		order.CheckoutSessionKey = &key
	}

	if err := h.persistWithFreshNumber(&order, req.CheckoutSessionKey); err != nil {
		return nil, nil, err
	}

	return &order, resolution.GuestToken, nil
}

// persistWithFreshNumber creates the order, regenerating the random order
// number when it collides with an existing one.
func (h *OrderHandler) persistWithFreshNumber(order *models.Order, sessionKey string) error {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := utils.GenerateOrderNumber()
		if err != nil {
			return err
		}
		order.OrderNumber = number

		err = h.db.Create(order).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}

		// The duplicate may be the session key rather than the number; that
		// means another request already created this checkout's order.
		if sessionKey != "" && h.sessionKeyTaken(sessionKey) {
			return services.ErrCheckoutInFlight
		}

		log.Printf("[Order] order number collision on %s, regenerating", number)
		order.ID = uuid.Nil
	}
	return errors.New("could not allocate a unique order number")
}

// guestAddressPending reports whether checkout supplies a new delivery
// address to persist once validation passes.
func guestAddressPending(req *createOrderRequest) bool {
	return !req.IsPickup && req.AddressID == nil && req.GuestAddress != nil
}

func (h *OrderHandler) createGuestAddress(customerID uuid.UUID, req *guestAddressRequest) (*models.UserAddress, error) {
	address := models.UserAddress{
		UserID:      customerID,
		AddressLine: req.AddressLine,
		Apartment:   req.Apartment,
		City:        req.City,
		District:    req.District,
		PostalCode:  req.PostalCode,
	}
	if err := h.db.Create(&address).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

// findBySessionKey returns the order created under a checkout session key,
// but only to the customer it was created for.
func (h *OrderHandler) findBySessionKey(key string, authenticated *uuid.UUID, guestEmail string) *models.Order {
	var order models.Order
	err := h.db.Preload("Days.Items").Preload("Customer").
		First(&order, "checkout_session_key = ?", key).Error
	if err != nil {
		return nil
	}
	if !sessionOrderOwner(&order, authenticated, guestEmail) {
		return nil
	}
	return &order
}

// sessionOrderOwner reports whether the caller replaying a session key is the
// customer the order belongs to. Anonymous callers must present guest info
// matching the order's shadow identity.
func sessionOrderOwner(order *models.Order, authenticated *uuid.UUID, guestEmail string) bool {
	if authenticated != nil {
		return order.CustomerID == *authenticated
	}
	if guestEmail == "" || order.Customer == nil {
		return false
	}
	return order.Customer.Email == services.NormalizeEmail(guestEmail)
}

func (h *OrderHandler) sessionKeyTaken(key string) bool {
	var count int64
	if err := h.db.Model(&models.Order{}).Where("checkout_session_key = ?", key).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

func (h *OrderHandler) orderResponse(order *models.Order, guestToken *string) fiber.Map {
	resp := fiber.Map{
		"id":             order.ID,
		"order_number":   order.OrderNumber,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
		"is_pickup":      order.IsPickup,
		"subtotal":       order.Subtotal,
		"delivery_fee":   order.DeliveryFee,
		"total_amount":   order.TotalAmount,
		"placed_at":      order.PlacedAt,
		"days":           order.Days,
	}
	if guestToken != nil {
		resp["guest_token"] = *guestToken
	}
	return resp
}

// ListOrders returns orders for the authenticated user.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Where("customer_id = ?", userID).Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Days.Items").
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

// GetOrder returns a single order for the authenticated user.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("Days.Items").Preload("Payments").
		First(&order, "id = ? AND customer_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// GetGuestOrder returns an order via its guest lookup token.
func (h *OrderHandler) GetGuestOrder(c *fiber.Ctx) error {
	token := c.Params("token")
	if token == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing token")
	}

	var order models.Order
	if err := h.db.Preload("Days.Items").
		First(&order, "guest_token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

type updateOrderRequest struct {
	IsPickup  bool                    `json:"is_pickup"`
	AddressID *uuid.UUID              `json:"address_id"`
	Notes     string                  `json:"notes"`
	Days      []services.DaySelection `json:"days" validate:"required,dive"`
}

// UpdateOrder replaces the day/item subtree of an unfulfilled, unpaid order
// and re-quotes it. Items are never patched in place; replacing the whole
// subtree keeps completa grouping consistent.
func (h *OrderHandler) UpdateOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing or invalid fields")
	}

	var order models.Order
	if err := h.db.First(&order, "id = ? AND customer_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if order.Terminal() {
		return services.ErrOrderTerminal
	}
	if !order.PaymentOpen() {
		return fiber.NewError(fiber.StatusBadRequest, "paid orders can no longer be edited")
	}

	offering, err := h.composer.Validate(order.CustomerID, order.WeeklyMenuID, req.IsPickup, req.AddressID, req.Days)
	if err != nil {
		return err
	}

	cfg, err := h.pricing.Current()
	if err != nil {
		log.Printf("[Order] pricing config lookup failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "something went wrong, please try again")
	}

	days := h.composer.Assemble(req.Days, offering, *cfg)
	quote := services.Quote(req.Days, *cfg, req.IsPickup)

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderDay{}).Error; err != nil {
			return err
		}

		for i := range days {
			days[i].OrderID = order.ID
			if err := tx.Create(&days[i]).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"is_pickup":    req.IsPickup,
			"notes":        req.Notes,
			"subtotal":     quote.Subtotal,
			"delivery_fee": quote.DeliveryFee,
			"total_amount": quote.TotalAmount,
		}
		if req.IsPickup {
			updates["address_id"] = nil
		} else {
			updates["address_id"] = req.AddressID
		}

		return tx.Model(&order).Updates(updates).Error
	})
	if err != nil {
		return err
	}

	var updated models.Order
	if err := h.db.Preload("Days.Items").First(&updated, "id = ?", order.ID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": updated})
}

// CancelOrder lets a customer cancel their own order while it is still
// pending. Admins cancel confirmed orders through the admin path.
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.First(&order, "id = ? AND customer_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if order.Status != models.OrderStatusPending {
		return services.ErrInvalidTransition
	}

	updated, err := h.lifecycle.Transition(order.ID, models.OrderStatusCancelled)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": updated})
}

type payOrderRequest struct {
	Method     string `json:"method" validate:"required"`
	GuestToken string `json:"guest_token"`
}

// PayOrder captures the order total through the payment processor.
func (h *OrderHandler) PayOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req payOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "method is required")
	}

	var order models.Order
	if err := h.db.First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	userID, authenticated := middleware.GetCurrentUserID(c)
	owns := authenticated && order.CustomerID == userID
	guestAccess := req.GuestToken != "" && order.GuestToken != nil && *order.GuestToken == req.GuestToken
	if !owns && !guestAccess {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	updated, err := h.lifecycle.Charge(c.Context(), order.ID, req.Method)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": updated})
}
