package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lalonchera/internal/models"
)

func newID() uuid.UUID {
	return uuid.New()
}

// Test menu fixture ids.
var (
	polloID      = newID() // entree, Monday only
	bistecID     = newID() // entree, Tuesday only
	lomoID       = newID() // entree, staple
	arrozID      = newID() // side, all week
	frijolesID   = newID() // side, all week
	platanosID   = newID() // side, all week
	flanID       = newID() // dessert side, all week
	tresLechesID = newID() // dessert side, all week
	sopaID       = newID() // soup side, all week
	ensaladaID   = newID() // side, staple
)

func testOffering(published bool) *Offering {
	items := []*OfferingItem{
		{ID: polloID, Name: "Pollo Asado", Kind: models.MenuItemKindEntree},
		{ID: bistecID, Name: "Bistec Encebollado", Kind: models.MenuItemKindEntree},
		{ID: lomoID, Name: "Lomo Saltado", Kind: models.MenuItemKindEntree, IsStaple: true},
		{ID: arrozID, Name: "Arroz Blanco", Kind: models.MenuItemKindSide},
		{ID: frijolesID, Name: "Frijoles Negros", Kind: models.MenuItemKindSide},
		{ID: platanosID, Name: "Platanos Maduros", Kind: models.MenuItemKindSide},
		{ID: flanID, Name: "Flan", Kind: models.MenuItemKindSide, IsDessert: true},
		{ID: tresLechesID, Name: "Tres Leches", Kind: models.MenuItemKindSide, IsDessert: true},
		{ID: sopaID, Name: "Sopa de Pollo", Kind: models.MenuItemKindSide, IsSoup: true},
		{ID: ensaladaID, Name: "Ensalada Verde", Kind: models.MenuItemKindSide, IsStaple: true},
	}

	offering := NewOffering(newID(), published, items)
	offering.AddDay(polloID, 1)
	offering.AddDay(bistecID, 2)
	for _, sideID := range []uuid.UUID{arrozID, frijolesID, platanosID, flanID, tresLechesID, sopaID} {
		offering.AddDay(sideID, 0)
	}
	return offering
}

type fakeCatalog struct {
	offering *Offering
	err      error
}

func (f *fakeCatalog) Offering(weeklyMenuID uuid.UUID) (*Offering, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.offering, nil
}

type fakeAddressBook struct {
	owners map[uuid.UUID]uuid.UUID
}

func (f *fakeAddressBook) Owns(addressID, customerID uuid.UUID) (bool, error) {
	return f.owners[addressID] == customerID, nil
}

func newTestComposer(published bool) (*Composer, *fakeAddressBook) {
	addresses := &fakeAddressBook{owners: map[uuid.UUID]uuid.UUID{}}
	return NewComposer(&fakeCatalog{offering: testOffering(published)}, addresses), addresses
}

func regularCompleta() CompletaSelection {
	return CompletaSelection{
		EntreeID: lomoID,
		Sides: []SideSelection{
			{MenuItemID: arrozID, Quantity: 1},
			{MenuItemID: frijolesID, Quantity: 1},
			{MenuItemID: platanosID, Quantity: 1},
		},
	}
}

func threeRegularDays() []DaySelection {
	return []DaySelection{
		{DayOfWeek: 1, Completas: []CompletaSelection{regularCompleta()}},
		{DayOfWeek: 2, Completas: []CompletaSelection{regularCompleta()}},
		{DayOfWeek: 3, Completas: []CompletaSelection{regularCompleta()}},
	}
}

func TestValidateAcceptsPickupOrder(t *testing.T) {
	composer, _ := newTestComposer(true)

	offering, err := composer.Validate(newID(), newID(), true, nil, threeRegularDays())
	require.NoError(t, err)
	assert.True(t, offering.Published)
}

func TestValidateRejectsTooFewDays(t *testing.T) {
	composer, _ := newTestComposer(true)

	days := threeRegularDays()[:2]
	// Extra completas on the same days do not help: distinct days count.
	days[0].Completas = append(days[0].Completas, regularCompleta(), regularCompleta())

	_, err := composer.Validate(newID(), newID(), true, nil, days)
	assert.ErrorIs(t, err, ErrTooFewDays)
}

func TestValidateRejectsDayWithoutCompleta(t *testing.T) {
	composer, _ := newTestComposer(true)

	days := threeRegularDays()
	days[1].Completas = nil
	days[1].ExtraSides = []ExtraSelection{{MenuItemID: arrozID, Quantity: 2}}

	_, err := composer.Validate(newID(), newID(), true, nil, days)
	assert.ErrorIs(t, err, ErrDayWithoutCompleta)
}

func TestValidateSideCount(t *testing.T) {
	tests := []struct {
		name    string
		sides   []SideSelection
		wantErr error
	}{
		{
			name: "two sides rejected",
			sides: []SideSelection{
				{MenuItemID: arrozID, Quantity: 1},
				{MenuItemID: frijolesID, Quantity: 1},
			},
			wantErr: ErrCompletaSideCount,
		},
		{
			name: "four sides rejected",
			sides: []SideSelection{
				{MenuItemID: arrozID, Quantity: 2},
				{MenuItemID: frijolesID, Quantity: 2},
			},
			wantErr: ErrCompletaSideCount,
		},
		{
			name: "three sides accepted",
			sides: []SideSelection{
				{MenuItemID: arrozID, Quantity: 2},
				{MenuItemID: frijolesID, Quantity: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			composer, _ := newTestComposer(true)
			days := threeRegularDays()
			days[0].Completas = []CompletaSelection{{EntreeID: polloID, Sides: tt.sides}}

			_, err := composer.Validate(newID(), newID(), true, nil, days)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDessertCap(t *testing.T) {
	composer, _ := newTestComposer(true)

	// One dessert among three sides is fine.
	days := threeRegularDays()
	days[0].Completas = []CompletaSelection{{
		EntreeID: polloID,
		Sides: []SideSelection{
			{MenuItemID: arrozID, Quantity: 1},
			{MenuItemID: frijolesID, Quantity: 1},
			{MenuItemID: flanID, Quantity: 1},
		},
	}}
	_, err := composer.Validate(newID(), newID(), true, nil, days)
	assert.NoError(t, err)

	// Quantity 2 of one dessert breaks the cap.
	days[0].Completas = []CompletaSelection{{
		EntreeID: polloID,
		Sides: []SideSelection{
			{MenuItemID: flanID, Quantity: 2},
			{MenuItemID: arrozID, Quantity: 1},
		},
	}}
	_, err = composer.Validate(newID(), newID(), true, nil, days)
	assert.ErrorIs(t, err, ErrCompletaDessertLimit)

	// Two different dessert items break it too.
	days[0].Completas = []CompletaSelection{{
		EntreeID: polloID,
		Sides: []SideSelection{
			{MenuItemID: flanID, Quantity: 1},
			{MenuItemID: tresLechesID, Quantity: 1},
			{MenuItemID: arrozID, Quantity: 1},
		},
	}}
	_, err = composer.Validate(newID(), newID(), true, nil, days)
	assert.ErrorIs(t, err, ErrCompletaDessertLimit)
}

func TestValidateSoupCap(t *testing.T) {
	composer, _ := newTestComposer(true)

	days := threeRegularDays()
	days[0].Completas = []CompletaSelection{{
		EntreeID: polloID,
		Sides: []SideSelection{
			{MenuItemID: sopaID, Quantity: 2},
			{MenuItemID: arrozID, Quantity: 1},
		},
	}}

	_, err := composer.Validate(newID(), newID(), true, nil, days)
	assert.ErrorIs(t, err, ErrCompletaSoupLimit)
}

func TestValidateEntreeDayLegality(t *testing.T) {
	composer, _ := newTestComposer(true)

	// Pollo is published for Monday; ordering it on Wednesday fails.
	days := threeRegularDays()
	days[2].Completas = []CompletaSelection{{
		EntreeID: polloID,
		Sides:    regularCompleta().Sides,
	}}
	_, err := composer.Validate(newID(), newID(), true, nil, days)
	assert.ErrorIs(t, err, ErrItemNotAvailable)

	// A staple entree works on any day.
	days[2].Completas = []CompletaSelection{regularCompleta()}
	_, err = composer.Validate(newID(), newID(), true, nil, days)
	assert.NoError(t, err)
}

func TestValidateStapleSideNeedsNoWeekEntry(t *testing.T) {
	composer, _ := newTestComposer(true)

	days := threeRegularDays()
	days[0].Completas = []CompletaSelection{{
		EntreeID: lomoID,
		Sides: []SideSelection{
			{MenuItemID: ensaladaID, Quantity: 2},
			{MenuItemID: arrozID, Quantity: 1},
		},
	}}

	_, err := composer.Validate(newID(), newID(), true, nil, days)
	assert.NoError(t, err)
}

func TestValidateUnknownItem(t *testing.T) {
	composer, _ := newTestComposer(true)

	days := threeRegularDays()
	days[0].Completas = []CompletaSelection{{
		EntreeID: newID(),
		Sides:    regularCompleta().Sides,
	}}

	_, err := composer.Validate(newID(), newID(), true, nil, days)
	assert.ErrorIs(t, err, ErrUnknownMenuItem)
}

func TestValidateSideUsedAsEntree(t *testing.T) {
	composer, _ := newTestComposer(true)

	days := threeRegularDays()
	days[0].Completas = []CompletaSelection{{
		EntreeID: arrozID,
		Sides:    regularCompleta().Sides,
	}}

	_, err := composer.Validate(newID(), newID(), true, nil, days)
	assert.ErrorIs(t, err, ErrItemNotAvailable)
}

func TestValidateInvalidDay(t *testing.T) {
	composer, _ := newTestComposer(true)

	days := threeRegularDays()
	days[2].DayOfWeek = 6

	_, err := composer.Validate(newID(), newID(), true, nil, days)
	assert.ErrorIs(t, err, ErrInvalidDay)
}

func TestValidateDeliveryAddress(t *testing.T) {
	composer, addresses := newTestComposer(true)
	customerID := newID()
	addressID := newID()

	// Delivery without an address.
	_, err := composer.Validate(customerID, newID(), false, nil, threeRegularDays())
	assert.ErrorIs(t, err, ErrAddressRequired)

	// Delivery with someone else's address.
	addresses.owners[addressID] = newID()
	_, err = composer.Validate(customerID, newID(), false, &addressID, threeRegularDays())
	assert.ErrorIs(t, err, ErrAddressNotFound)

	// Delivery with an owned address.
	addresses.owners[addressID] = customerID
	_, err = composer.Validate(customerID, newID(), false, &addressID, threeRegularDays())
	assert.NoError(t, err)
}

func TestValidateUnpublishedMenu(t *testing.T) {
	composer, _ := newTestComposer(false)

	_, err := composer.Validate(newID(), newID(), true, nil, threeRegularDays())
	assert.ErrorIs(t, err, ErrMenuNotPublished)
}

func TestAssembleCompletaGroupPricing(t *testing.T) {
	composer, _ := newTestComposer(true)
	offering := testOffering(true)
	cfg := testPricingConfig()

	days := composer.Assemble(threeRegularDays(), offering, cfg)
	require.Len(t, days, 3)

	for _, day := range days {
		groups := map[string]decimal.Decimal{}
		for _, item := range day.Items {
			require.True(t, item.IsCompleta)
			require.NotNil(t, item.CompletaGroupID)
			qty := decimal.NewFromInt(int64(item.Quantity))
			groups[*item.CompletaGroupID] = groups[*item.CompletaGroupID].Add(item.UnitPrice.Mul(qty))
		}

		// Each group prices to exactly one completa, never more.
		require.Len(t, groups, 1)
		for _, total := range groups {
			assert.True(t, total.Equal(cfg.CompletaPrice), "group total %s", total)
		}
	}
}

func TestAssembleGroupIDsUniqueWithinOrder(t *testing.T) {
	composer, _ := newTestComposer(true)
	offering := testOffering(true)

	days := threeRegularDays()
	days[0].Completas = append(days[0].Completas, regularCompleta())

	assembled := composer.Assemble(days, offering, testPricingConfig())

	seen := map[string]bool{}
	groupCount := 0
	for _, day := range assembled {
		for _, item := range day.Items {
			if item.CompletaGroupID != nil && item.UnitPrice.IsPositive() {
				assert.False(t, seen[*item.CompletaGroupID], "group id reused")
				seen[*item.CompletaGroupID] = true
				groupCount++
			}
		}
	}
	assert.Equal(t, 4, groupCount)
}

func TestAssembleExtrasPricedIndividually(t *testing.T) {
	composer, _ := newTestComposer(true)
	offering := testOffering(true)
	cfg := testPricingConfig()

	days := threeRegularDays()
	days[0].ExtraEntrees = []ExtraSelection{{MenuItemID: lomoID, Quantity: 2}}
	days[0].ExtraSides = []ExtraSelection{{MenuItemID: arrozID, Quantity: 3}}

	assembled := composer.Assemble(days, offering, cfg)

	var extraEntree, extraSide *models.OrderItem
	for i, item := range assembled[0].Items {
		if item.IsCompleta {
			continue
		}
		if item.MenuItemID == lomoID {
			extraEntree = &assembled[0].Items[i]
		}
		if item.MenuItemID == arrozID {
			extraSide = &assembled[0].Items[i]
		}
	}

	require.NotNil(t, extraEntree)
	require.NotNil(t, extraSide)
	assert.Nil(t, extraEntree.CompletaGroupID)
	assert.True(t, extraEntree.UnitPrice.Equal(cfg.ExtraEntreePrice))
	assert.Equal(t, 2, extraEntree.Quantity)
	assert.True(t, extraSide.UnitPrice.Equal(cfg.ExtraSidePrice))
	assert.Equal(t, 3, extraSide.Quantity)
}

func TestAssembleMergesDuplicateSides(t *testing.T) {
	composer, _ := newTestComposer(true)
	offering := testOffering(true)

	days := []DaySelection{
		{DayOfWeek: 1, Completas: []CompletaSelection{{
			EntreeID: lomoID,
			Sides: []SideSelection{
				{MenuItemID: arrozID, Quantity: 1},
				{MenuItemID: arrozID, Quantity: 1},
				{MenuItemID: frijolesID, Quantity: 1},
			},
		}}},
	}

	assembled := composer.Assemble(days, offering, testPricingConfig())
	require.Len(t, assembled, 1)
	// Entree + 2 distinct side lines.
	require.Len(t, assembled[0].Items, 3)

	for _, item := range assembled[0].Items {
		if item.MenuItemID == arrozID {
			assert.Equal(t, 2, item.Quantity)
		}
	}
}
