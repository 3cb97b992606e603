package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lalonchera/internal/models"
)

// GormMenuCatalog reads weekly menu offerings from the database.
type GormMenuCatalog struct {
	db *gorm.DB
}

// NewGormMenuCatalog constructs a GormMenuCatalog.
func NewGormMenuCatalog(db *gorm.DB) *GormMenuCatalog {
	return &GormMenuCatalog{db: db}
}

// Offering loads a weekly menu plus all active menu items. Items not
// associated with the week are still looked up so the validator can tell
// "unknown dish" apart from "not offered that day".
func (c *GormMenuCatalog) Offering(weeklyMenuID uuid.UUID) (*Offering, error) {
	var menu models.WeeklyMenu
	if err := c.db.Preload("Items").First(&menu, "id = ?", weeklyMenuID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuNotFound
		}
		return nil, err
	}

	var items []models.MenuItem
	if err := c.db.Where("is_active = ?", true).Find(&items).Error; err != nil {
		return nil, err
	}

	facts := make([]*OfferingItem, 0, len(items))
	for _, item := range items {
		facts = append(facts, &OfferingItem{
			ID:        item.ID,
			Name:      item.Name,
			Kind:      item.Kind,
			IsDessert: item.IsDessert,
			IsSoup:    item.IsSoup,
			IsStaple:  item.IsStaple,
		})
	}

	offering := NewOffering(menu.ID, menu.IsPublished, facts)
	for _, assoc := range menu.Items {
		offering.AddDay(assoc.MenuItemID, assoc.DayOfWeek)
	}

	return offering, nil
}

// GormAddressBook checks address ownership against the database.
type GormAddressBook struct {
	db *gorm.DB
}

// NewGormAddressBook constructs a GormAddressBook.
func NewGormAddressBook(db *gorm.DB) *GormAddressBook {
	return &GormAddressBook{db: db}
}

// Owns reports whether the address exists and belongs to the customer.
func (b *GormAddressBook) Owns(addressID, customerID uuid.UUID) (bool, error) {
	var count int64
	err := b.db.Model(&models.UserAddress{}).
		Where("id = ? AND user_id = ?", addressID, customerID).
		Count(&count).Error
	return count > 0, err
}
