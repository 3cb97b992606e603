package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lalonchera/internal/models"
)

type fakeDirectory struct {
	byEmail map[string]*models.User
	updates int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{byEmail: map[string]*models.User{}}
}

func (d *fakeDirectory) FindByEmail(email string) (*models.User, error) {
	return d.byEmail[email], nil
}

func (d *fakeDirectory) Create(user *models.User) error {
	user.ID = uuid.New()
	d.byEmail[user.Email] = user
	return nil
}

func (d *fakeDirectory) UpdateContact(id uuid.UUID, firstName, lastName, phone string) error {
	d.updates++
	for _, user := range d.byEmail {
		if user.ID == id {
			user.FirstName = firstName
			user.LastName = lastName
			user.Phone = phone
		}
	}
	return nil
}

func validGuest() *GuestInfo {
	return &GuestInfo{
		Email:     "maria@example.com",
		FirstName: "Maria",
		LastName:  "Lopez",
		Phone:     "305-555-0101",
	}
}

func TestResolveAuthenticatedPassthrough(t *testing.T) {
	resolver := NewIdentityResolver(newFakeDirectory())
	userID := uuid.New()

	res, err := resolver.Resolve(&userID, nil)
	require.NoError(t, err)
	assert.Equal(t, userID, res.CustomerID)
	assert.Nil(t, res.GuestToken)
	assert.False(t, res.CreatedShadow)
}

func TestResolveRequiresCompleteGuestInfo(t *testing.T) {
	resolver := NewIdentityResolver(newFakeDirectory())

	_, err := resolver.Resolve(nil, nil)
	assert.ErrorIs(t, err, ErrGuestInfoRequired)

	partial := validGuest()
	partial.Phone = ""
	_, err = resolver.Resolve(nil, partial)
	assert.ErrorIs(t, err, ErrGuestInfoRequired)
}

func TestResolveCreatesShadowIdentity(t *testing.T) {
	directory := newFakeDirectory()
	resolver := NewIdentityResolver(directory)

	res, err := resolver.Resolve(nil, validGuest())
	require.NoError(t, err)

	assert.True(t, res.CreatedShadow)
	require.NotNil(t, res.GuestToken)
	assert.NotEmpty(t, *res.GuestToken)

	created := directory.byEmail["maria@example.com"]
	require.NotNil(t, created)
	assert.True(t, created.IsGuest)
	assert.Equal(t, created.ID, res.CustomerID)
}

func TestResolveNormalizesEmail(t *testing.T) {
	directory := newFakeDirectory()
	resolver := NewIdentityResolver(directory)

	guest := validGuest()
	guest.Email = "  Maria@Example.COM "

	res, err := resolver.Resolve(nil, guest)
	require.NoError(t, err)

	// Stored under the normalized form; a later checkout with different
	// casing resolves to the same identity.
	require.NotNil(t, directory.byEmail["maria@example.com"])

	again, err := resolver.Resolve(nil, validGuest())
	require.NoError(t, err)
	assert.Equal(t, res.CustomerID, again.CustomerID)
	assert.False(t, again.CreatedShadow)
}

func TestResolveConflictsWithCredentialedAccount(t *testing.T) {
	directory := newFakeDirectory()
	directory.byEmail["maria@example.com"] = &models.User{
		BaseModel:    models.BaseModel{ID: uuid.New()},
		Email:        "maria@example.com",
		PasswordHash: "$2a$10$hash",
	}
	resolver := NewIdentityResolver(directory)

	_, err := resolver.Resolve(nil, validGuest())
	assert.ErrorIs(t, err, ErrIdentityConflict)
	assert.Zero(t, directory.updates)
}

func TestResolveReusesShadowWithFreshContact(t *testing.T) {
	directory := newFakeDirectory()
	shadowID := uuid.New()
	directory.byEmail["maria@example.com"] = &models.User{
		BaseModel: models.BaseModel{ID: shadowID},
		Email:     "maria@example.com",
		FirstName: "M",
		IsGuest:   true,
	}
	resolver := NewIdentityResolver(directory)

	guest := validGuest()
	guest.Phone = "305-555-0199"

	res, err := resolver.Resolve(nil, guest)
	require.NoError(t, err)

	assert.Equal(t, shadowID, res.CustomerID)
	assert.False(t, res.CreatedShadow)
	require.NotNil(t, res.GuestToken)
	assert.Equal(t, 1, directory.updates)
	assert.Equal(t, "305-555-0199", directory.byEmail["maria@example.com"].Phone)
}

func TestResolveIssuesFreshTokenPerCheckout(t *testing.T) {
	directory := newFakeDirectory()
	resolver := NewIdentityResolver(directory)

	first, err := resolver.Resolve(nil, validGuest())
	require.NoError(t, err)
	second, err := resolver.Resolve(nil, validGuest())
	require.NoError(t, err)

	require.NotNil(t, first.GuestToken)
	require.NotNil(t, second.GuestToken)
	assert.NotEqual(t, *first.GuestToken, *second.GuestToken)
}
