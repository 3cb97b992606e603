package models

import (
	"time"

	"github.com/google/uuid"
)

// Menu item kinds.
const (
	MenuItemKindEntree = "ENTREE"
	MenuItemKindSide   = "SIDE"
)

// MenuItem is a dish that can appear on weekly menus. Staples are orderable
// every day regardless of the published rotation.
type MenuItem struct {
	BaseModel
	Name      string `gorm:"not null" json:"name"`
	Kind      string `gorm:"not null" json:"kind"`
	IsDessert bool   `json:"is_dessert"`
	IsSoup    bool   `json:"is_soup"`
	IsStaple  bool   `json:"is_staple"`
	IsActive  bool   `gorm:"default:true" json:"is_active"`
}

// WeeklyMenu is the published offering for one week starting on a Monday.
type WeeklyMenu struct {
	BaseModel
	WeekStartDate time.Time        `gorm:"type:date;uniqueIndex" json:"week_start_date"`
	IsPublished   bool             `json:"is_published"`
	Items         []WeeklyMenuItem `json:"items,omitempty"`
}

// WeeklyMenuItem associates a menu item with a day of the week.
// DayOfWeek 0 means available every day of that week (used for sides);
// 1..5 means Monday..Friday (used for entrees).
type WeeklyMenuItem struct {
	BaseModel
	WeeklyMenuID uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_weekly_menu_item_day" json:"weekly_menu_id"`
	MenuItemID   uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_weekly_menu_item_day" json:"menu_item_id"`
	DayOfWeek    int       `gorm:"uniqueIndex:idx_weekly_menu_item_day" json:"day_of_week"`
	MenuItem     *MenuItem `json:"menu_item,omitempty"`
}
