package services

import (
	"github.com/google/uuid"

	"github.com/example/lalonchera/internal/models"
)

// Composition limits. These are fixed domain policy, not configuration.
const (
	MinDaysPerOrder  = 3
	SidesPerCompleta = 3
)

// SideSelection is one side dish inside a completa.
type SideSelection struct {
	MenuItemID uuid.UUID `json:"menu_item_id" validate:"required"`
	Quantity   int       `json:"quantity" validate:"required,gt=0"`
}

// CompletaSelection is one bundle: an entree plus three side servings.
type CompletaSelection struct {
	EntreeID uuid.UUID       `json:"entree_id" validate:"required"`
	Sides    []SideSelection `json:"sides" validate:"required,dive"`
}

// ExtraSelection is an individually priced item outside any completa.
type ExtraSelection struct {
	MenuItemID uuid.UUID `json:"menu_item_id" validate:"required"`
	Quantity   int       `json:"quantity" validate:"required,gt=0"`
}

// DaySelection is everything ordered for one weekday.
type DaySelection struct {
	DayOfWeek    int                 `json:"day_of_week" validate:"min=1,max=5"`
	Completas    []CompletaSelection `json:"completas" validate:"dive"`
	ExtraEntrees []ExtraSelection    `json:"extra_entrees" validate:"dive"`
	ExtraSides   []ExtraSelection    `json:"extra_sides" validate:"dive"`
}

// OfferingItem holds the menu facts needed to validate one dish.
type OfferingItem struct {
	ID        uuid.UUID
	Name      string
	Kind      string
	IsDessert bool
	IsSoup    bool
	IsStaple  bool
	days      map[int]bool
}

// EntreeOfferedOn reports whether the item may be ordered as an entree on the
// given weekday.
func (it *OfferingItem) EntreeOfferedOn(day int) bool {
	return it.IsStaple || it.days[day]
}

// SideOfferedWeekWide reports whether the item may be ordered as a side.
// Sides are published with day 0 (available all week) or are staples.
func (it *OfferingItem) SideOfferedWeekWide() bool {
	return it.IsStaple || it.days[0]
}

// Offering is the read-only view of one weekly menu plus staple items.
type Offering struct {
	WeeklyMenuID uuid.UUID
	Published    bool
	items        map[uuid.UUID]*OfferingItem
}

// NewOffering builds an Offering from item facts. Exposed for tests and for
// the gorm-backed catalog.
func NewOffering(menuID uuid.UUID, published bool, items []*OfferingItem) *Offering {
	byID := make(map[uuid.UUID]*OfferingItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return &Offering{WeeklyMenuID: menuID, Published: published, items: byID}
}

// AddDay records that an item is offered on a weekday (0 = all week).
func (o *Offering) AddDay(itemID uuid.UUID, day int) {
	if it, ok := o.items[itemID]; ok {
		if it.days == nil {
			it.days = make(map[int]bool)
		}
		it.days[day] = true
	}
}

// Item looks up the facts for a menu item id.
func (o *Offering) Item(id uuid.UUID) (*OfferingItem, bool) {
	it, ok := o.items[id]
	return it, ok
}

// MenuCatalog resolves a weekly menu id into an Offering.
type MenuCatalog interface {
	Offering(weeklyMenuID uuid.UUID) (*Offering, error)
}

// AddressBook confirms delivery address ownership.
type AddressBook interface {
	Owns(addressID, customerID uuid.UUID) (bool, error)
}

// Composer validates proposed orders against the menu and assembles the
// priced line items for valid ones.
type Composer struct {
	catalog   MenuCatalog
	addresses AddressBook
}

// NewComposer constructs a Composer.
func NewComposer(catalog MenuCatalog, addresses AddressBook) *Composer {
	return &Composer{catalog: catalog, addresses: addresses}
}

// Validate checks a candidate order and returns the menu offering it was
// validated against. Rules fail fast, each with its own user-facing reason.
func (cp *Composer) Validate(customerID, weeklyMenuID uuid.UUID, isPickup bool, addressID *uuid.UUID, days []DaySelection) (*Offering, error) {
	offering, err := cp.catalog.Offering(weeklyMenuID)
	if err != nil {
		return nil, err
	}
	if !offering.Published {
		return nil, ErrMenuNotPublished
	}

	distinct := make(map[int]bool, len(days))
	for _, day := range days {
		distinct[day.DayOfWeek] = true
	}
	if len(distinct) < MinDaysPerOrder {
		return nil, ErrTooFewDays
	}

	for _, day := range days {
		if day.DayOfWeek < 1 || day.DayOfWeek > 5 {
			return nil, ErrInvalidDay
		}
		if len(day.Completas) == 0 {
			return nil, ErrDayWithoutCompleta
		}

		for _, completa := range day.Completas {
			if err := cp.validateCompleta(offering, day.DayOfWeek, completa); err != nil {
				return nil, err
			}
		}

		for _, extra := range day.ExtraEntrees {
			if err := cp.validateExtra(offering, day.DayOfWeek, extra, models.MenuItemKindEntree); err != nil {
				return nil, err
			}
		}
		for _, extra := range day.ExtraSides {
			if err := cp.validateExtra(offering, day.DayOfWeek, extra, models.MenuItemKindSide); err != nil {
				return nil, err
			}
		}
	}

	if !isPickup {
		if addressID == nil {
			return nil, ErrAddressRequired
		}
		owned, err := cp.addresses.Owns(*addressID, customerID)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, ErrAddressNotFound
		}
	}

	return offering, nil
}

func (cp *Composer) validateCompleta(offering *Offering, dayOfWeek int, completa CompletaSelection) error {
	sideUnits, dessertUnits, soupUnits := 0, 0, 0
	for _, side := range completa.Sides {
		if side.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		sideUnits += side.Quantity

		it, ok := offering.Item(side.MenuItemID)
		if !ok {
			return ErrUnknownMenuItem
		}
		if it.Kind != models.MenuItemKindSide || !it.SideOfferedWeekWide() {
			return ErrItemNotAvailable
		}
		if it.IsDessert {
			dessertUnits += side.Quantity
		}
		if it.IsSoup {
			soupUnits += side.Quantity
		}
	}
	if sideUnits != SidesPerCompleta {
		return ErrCompletaSideCount
	}
	if dessertUnits > 1 {
		return ErrCompletaDessertLimit
	}
	if soupUnits > 1 {
		return ErrCompletaSoupLimit
	}

	entree, ok := offering.Item(completa.EntreeID)
	if !ok {
		return ErrUnknownMenuItem
	}
	if entree.Kind != models.MenuItemKindEntree || !entree.EntreeOfferedOn(dayOfWeek) {
		return ErrItemNotAvailable
	}

	return nil
}

func (cp *Composer) validateExtra(offering *Offering, dayOfWeek int, extra ExtraSelection, kind string) error {
	if extra.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	it, ok := offering.Item(extra.MenuItemID)
	if !ok {
		return ErrUnknownMenuItem
	}
	if it.Kind != kind {
		return ErrItemNotAvailable
	}
	if kind == models.MenuItemKindEntree && !it.EntreeOfferedOn(dayOfWeek) {
		return ErrItemNotAvailable
	}
	if kind == models.MenuItemKindSide && !it.SideOfferedWeekWide() {
		return ErrItemNotAvailable
	}

	return nil
}

// Assemble turns validated day selections into OrderDay/OrderItem rows.
// Each completa gets a group id unique within the order; the bundle price is
// carried entirely by the entree line, side lines price at zero so that
// editing a completa's side mix can never change its charged price.
func (cp *Composer) Assemble(days []DaySelection, offering *Offering, cfg models.PricingConfig) []models.OrderDay {
	orderDays := make([]models.OrderDay, 0, len(days))

	for _, day := range days {
		orderDay := models.OrderDay{DayOfWeek: day.DayOfWeek}

		for _, completa := range day.Completas {
			groupID := uuid.NewString()

			entree, _ := offering.Item(completa.EntreeID)
			orderDay.Items = append(orderDay.Items, models.OrderItem{
				MenuItemID:      completa.EntreeID,
				MenuItemName:    entree.Name,
				Quantity:        1,
				UnitPrice:       cfg.CompletaPrice,
				IsCompleta:      true,
				CompletaGroupID: &groupID,
			})

			for _, side := range mergeSides(completa.Sides) {
				it, _ := offering.Item(side.MenuItemID)
				orderDay.Items = append(orderDay.Items, models.OrderItem{
					MenuItemID:      side.MenuItemID,
					MenuItemName:    it.Name,
					Quantity:        side.Quantity,
					UnitPrice:       decimalZero,
					IsCompleta:      true,
					CompletaGroupID: &groupID,
				})
			}
		}

		for _, extra := range day.ExtraEntrees {
			it, _ := offering.Item(extra.MenuItemID)
			orderDay.Items = append(orderDay.Items, models.OrderItem{
				MenuItemID:   extra.MenuItemID,
				MenuItemName: it.Name,
				Quantity:     extra.Quantity,
				UnitPrice:    cfg.ExtraEntreePrice,
			})
		}
		for _, extra := range day.ExtraSides {
			it, _ := offering.Item(extra.MenuItemID)
			orderDay.Items = append(orderDay.Items, models.OrderItem{
				MenuItemID:   extra.MenuItemID,
				MenuItemName: it.Name,
				Quantity:     extra.Quantity,
				UnitPrice:    cfg.ExtraSidePrice,
			})
		}

		orderDays = append(orderDays, orderDay)
	}

	return orderDays
}

// mergeSides collapses repeated selections of the same side into one line.
func mergeSides(sides []SideSelection) []SideSelection {
	merged := make([]SideSelection, 0, len(sides))
	index := make(map[uuid.UUID]int, len(sides))
	for _, side := range sides {
		if i, ok := index[side.MenuItemID]; ok {
			merged[i].Quantity += side.Quantity
			continue
		}
		index[side.MenuItemID] = len(merged)
		merged = append(merged, side)
	}
	return merged
}
