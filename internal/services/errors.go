package services

import "github.com/gofiber/fiber/v2"

// DomainError is a business-rule violation with a user-facing message.
// Handlers map Status directly onto the HTTP response; Message is surfaced
// verbatim to the caller.
type DomainError struct {
	Status  int
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func validationError(code, message string) *DomainError {
	return &DomainError{Status: fiber.StatusBadRequest, Code: code, Message: message}
}

// Composition rule violations (§ order shape).
var (
	ErrTooFewDays = validationError("min_days",
		"an order must cover at least 3 different days")
	ErrDayWithoutCompleta = validationError("day_without_completa",
		"every ordered day needs at least one completa")
	ErrCompletaSideCount = validationError("completa_side_count",
		"a completa needs exactly 3 side servings")
	ErrCompletaDessertLimit = validationError("completa_dessert_limit",
		"a completa may include at most one dessert side")
	ErrCompletaSoupLimit = validationError("completa_soup_limit",
		"a completa may include at most one soup side")
	ErrUnknownMenuItem = validationError("unknown_menu_item",
		"one of the selected dishes is not on the menu")
	ErrItemNotAvailable = validationError("item_not_available",
		"one of the selected dishes is not offered on that day")
	ErrAddressRequired = validationError("address_required",
		"a delivery address is required for delivery orders")
	ErrAddressNotFound = validationError("address_not_found",
		"the selected delivery address does not exist")
	ErrInvalidQuantity = validationError("invalid_quantity",
		"item quantities must be positive")
	ErrInvalidDay = validationError("invalid_day",
		"days must be between Monday (1) and Friday (5)")
)

// Identity and menu errors.
var (
	ErrGuestInfoRequired = validationError("guest_info_required",
		"guest checkout requires email, first name, last name and phone")
	ErrIdentityConflict = &DomainError{
		Status:  fiber.StatusConflict,
		Code:    "identity_conflict",
		Message: "an account with this email already exists, please sign in to order",
	}
	ErrMenuNotFound = &DomainError{
		Status:  fiber.StatusNotFound,
		Code:    "menu_not_found",
		Message: "the selected weekly menu does not exist",
	}
	ErrMenuNotPublished = validationError("menu_not_published",
		"the selected weekly menu is not open for orders")
)

// Lifecycle errors.
var (
	ErrOrderNotFound = &DomainError{
		Status:  fiber.StatusNotFound,
		Code:    "order_not_found",
		Message: "order not found",
	}
	ErrOrderTerminal = validationError("order_terminal",
		"delivered or cancelled orders can no longer be changed")
	ErrInvalidTransition = validationError("invalid_transition",
		"this status change is not allowed")
	ErrNotRefundable = validationError("not_refundable",
		"only paid orders can be refunded")
	ErrRefundAmount = validationError("refund_amount",
		"refund amount must be positive")
	ErrRefundExceedsBalance = validationError("refund_exceeds_balance",
		"refund amount exceeds the refundable balance")
	ErrAlreadyPaid = validationError("already_paid",
		"this order has already been paid")
	ErrCheckoutInFlight = &DomainError{
		Status:  fiber.StatusConflict,
		Code:    "checkout_in_flight",
		Message: "an order for this checkout is already being created",
	}
)
