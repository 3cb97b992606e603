package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lalonchera/internal/models"
	"github.com/example/lalonchera/internal/utils"
)

// MenuHandler manages menu items and weekly menus.
type MenuHandler struct {
	db *gorm.DB
}

// NewMenuHandler constructs MenuHandler.
func NewMenuHandler(db *gorm.DB) *MenuHandler {
	return &MenuHandler{db: db}
}

// ListMenuItems returns all active menu items.
func (h *MenuHandler) ListMenuItems(c *fiber.Ctx) error {
	query := h.db.Where("is_active = ?", true)
	if kind := c.Query("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var items []models.MenuItem
	if err := query.Order("name asc").Find(&items).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": items})
}

type menuItemRequest struct {
	Name      string `json:"name" validate:"required"`
	Kind      string `json:"kind" validate:"required,oneof=ENTREE SIDE"`
	IsDessert bool   `json:"is_dessert"`
	IsSoup    bool   `json:"is_soup"`
	IsStaple  bool   `json:"is_staple"`
}

// CreateMenuItem adds a dish to the catalog.
func (h *MenuHandler) CreateMenuItem(c *fiber.Ctx) error {
	var req menuItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "name and kind (ENTREE or SIDE) are required")
	}

	item := models.MenuItem{
		Name:      req.Name,
		Kind:      req.Kind,
		IsDessert: req.IsDessert,
		IsSoup:    req.IsSoup,
		IsStaple:  req.IsStaple,
		IsActive:  true,
	}

	if err := h.db.Create(&item).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": item})
}

// UpdateMenuItem edits a dish's flags or name. Kind is immutable once
// created; existing orders reference it by id.
func (h *MenuHandler) UpdateMenuItem(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req struct {
		Name      *string `json:"name"`
		IsDessert *bool   `json:"is_dessert"`
		IsSoup    *bool   `json:"is_soup"`
		IsStaple  *bool   `json:"is_staple"`
		IsActive  *bool   `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.IsDessert != nil {
		updates["is_dessert"] = *req.IsDessert
	}
	if req.IsSoup != nil {
		updates["is_soup"] = *req.IsSoup
	}
	if req.IsStaple != nil {
		updates["is_staple"] = *req.IsStaple
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	result := h.db.Model(&models.MenuItem{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "menu item not found")
	}

	return c.JSON(fiber.Map{"success": true, "message": "menu item updated"})
}

type createWeeklyMenuRequest struct {
	WeekStartDate string `json:"week_start_date" validate:"required"`
}

// CreateWeeklyMenu opens a new (unpublished) weekly menu.
func (h *MenuHandler) CreateWeeklyMenu(c *fiber.Ctx) error {
	var req createWeeklyMenuRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	start, err := time.Parse("2006-01-02", req.WeekStartDate)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "week_start_date must be YYYY-MM-DD")
	}
	if start.Weekday() != time.Monday {
		return fiber.NewError(fiber.StatusBadRequest, "week_start_date must be a Monday")
	}

	menu := models.WeeklyMenu{WeekStartDate: start}
	if err := h.db.Create(&menu).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusConflict, "a menu for that week already exists")
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": menu})
}

type setWeeklyMenuItemsRequest struct {
	Items []struct {
		MenuItemID uuid.UUID `json:"menu_item_id" validate:"required"`
		DayOfWeek  int       `json:"day_of_week" validate:"min=0,max=5"`
	} `json:"items" validate:"required,dive"`
}

// SetWeeklyMenuItems replaces the item associations of a weekly menu.
// Day 0 publishes an item for the whole week (sides); 1..5 for one weekday.
func (h *MenuHandler) SetWeeklyMenuItems(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req setWeeklyMenuItemsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "items must reference dishes with day_of_week 0..5")
	}

	var menu models.WeeklyMenu
	if err := h.db.First(&menu, "id = ?", id).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "weekly menu not found")
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("weekly_menu_id = ?", menu.ID).Delete(&models.WeeklyMenuItem{}).Error; err != nil {
			return err
		}
		for _, item := range req.Items {
			assoc := models.WeeklyMenuItem{
				WeeklyMenuID: menu.ID,
				MenuItemID:   item.MenuItemID,
				DayOfWeek:    item.DayOfWeek,
			}
			if err := tx.Create(&assoc).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "weekly menu items updated"})
}

// PublishWeeklyMenu opens a weekly menu for orders.
func (h *MenuHandler) PublishWeeklyMenu(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	result := h.db.Model(&models.WeeklyMenu{}).Where("id = ?", id).Update("is_published", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "weekly menu not found")
	}

	return c.JSON(fiber.Map{"success": true, "message": "weekly menu published"})
}

// GetCurrentMenu returns the latest published weekly menu with its items,
// the browsing surface for the storefront.
func (h *MenuHandler) GetCurrentMenu(c *fiber.Ctx) error {
	var menu models.WeeklyMenu
	err := h.db.Preload("Items.MenuItem").
		Where("is_published = ?", true).
		Order("week_start_date desc").
		First(&menu).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no published menu")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": menu})
}

// GetWeeklyMenu returns one weekly menu with its items.
func (h *MenuHandler) GetWeeklyMenu(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var menu models.WeeklyMenu
	if err := h.db.Preload("Items.MenuItem").First(&menu, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "weekly menu not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": menu})
}
