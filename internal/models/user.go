package models

import "github.com/google/uuid"

// User represents a customer account. Guest checkouts create shadow users
// (IsGuest true, empty PasswordHash) that can later be upgraded to real
// accounts by registering with the same email.
type User struct {
	BaseModel
	Email        string        `gorm:"uniqueIndex;not null" json:"email"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	Phone        string        `json:"phone"`
	PasswordHash string        `json:"-"`
	IsGuest      bool          `json:"is_guest"`
	IsAdmin      bool          `json:"-"`
	Addresses    []UserAddress `json:"addresses,omitempty"`
	Orders       []Order       `gorm:"foreignKey:CustomerID" json:"orders,omitempty"`
}

// HasPassword reports whether this is a real credentialed account rather
// than a shadow identity.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// UserAddress is a delivery address owned by a user.
type UserAddress struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Label       string    `json:"label"`
	AddressLine string    `json:"address_line"`
	Apartment   string    `json:"apartment"`
	City        string    `json:"city"`
	District    string    `json:"district"`
	PostalCode  string    `json:"postal_code"`
	IsDefault   bool      `json:"is_default"`
}
