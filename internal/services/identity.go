package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lalonchera/internal/models"
)

// GuestInfo is the contact data supplied by an unauthenticated checkout.
type GuestInfo struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

func (g *GuestInfo) complete() bool {
	return g.Email != "" && g.FirstName != "" && g.LastName != "" && g.Phone != ""
}

// CustomerDirectory is the identity store behind the resolver.
type CustomerDirectory interface {
	FindByEmail(email string) (*models.User, error)
	Create(user *models.User) error
	UpdateContact(id uuid.UUID, firstName, lastName, phone string) error
}

// Resolution is the outcome of identity resolution for one checkout.
type Resolution struct {
	CustomerID    uuid.UUID
	GuestToken    *string
	CreatedShadow bool
}

// IdentityResolver maps a checkout to a durable customer record.
type IdentityResolver struct {
	directory CustomerDirectory
}

// NewIdentityResolver constructs an IdentityResolver.
func NewIdentityResolver(directory CustomerDirectory) *IdentityResolver {
	return &IdentityResolver{directory: directory}
}

// Resolve runs once per checkout, before composition validation (the
// validator needs a customer id to check address ownership).
//
// An authenticated customer is used as-is. A guest is matched by normalized
// email: no match creates a shadow identity, a match on a credentialed
// account is a conflict (the order must not silently attach to someone
// else's account), and a match on a shadow identity reuses it with the
// freshest contact info. Guest checkouts always get a new guest token for
// later order lookup.
func (r *IdentityResolver) Resolve(authenticated *uuid.UUID, guest *GuestInfo) (*Resolution, error) {
	if authenticated != nil {
		return &Resolution{CustomerID: *authenticated}, nil
	}

	if guest == nil || !guest.complete() {
		return nil, ErrGuestInfoRequired
	}

	email := NormalizeEmail(guest.Email)
	token := uuid.NewString()

	existing, err := r.directory.FindByEmail(email)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		shadow := &models.User{
			Email:     email,
			FirstName: guest.FirstName,
			LastName:  guest.LastName,
			Phone:     guest.Phone,
			IsGuest:   true,
		}
		if err := r.directory.Create(shadow); err != nil {
			return nil, err
		}
		return &Resolution{CustomerID: shadow.ID, GuestToken: &token, CreatedShadow: true}, nil
	}

	if existing.HasPassword() {
		return nil, ErrIdentityConflict
	}

	// Shadow identities have no authenticated owner to contest updates, so
	// they accumulate the most recent contact info supplied at checkout.
	if err := r.directory.UpdateContact(existing.ID, guest.FirstName, guest.LastName, guest.Phone); err != nil {
		return nil, err
	}

	return &Resolution{CustomerID: existing.ID, GuestToken: &token}, nil
}

// NormalizeEmail lower-cases and trims an email for identity matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GormCustomerDirectory is the database-backed CustomerDirectory.
type GormCustomerDirectory struct {
	db *gorm.DB
}

// NewGormCustomerDirectory constructs a GormCustomerDirectory.
func NewGormCustomerDirectory(db *gorm.DB) *GormCustomerDirectory {
	return &GormCustomerDirectory{db: db}
}

// FindByEmail returns the user with the given email, or nil when absent.
func (d *GormCustomerDirectory) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := d.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user record.
func (d *GormCustomerDirectory) Create(user *models.User) error {
	return d.db.Create(user).Error
}

// UpdateContact refreshes the stored contact fields for a user.
func (d *GormCustomerDirectory) UpdateContact(id uuid.UUID, firstName, lastName, phone string) error {
	return d.db.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"first_name": firstName,
		"last_name":  lastName,
		"phone":      phone,
	}).Error
}
