package handlers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/example/lalonchera/internal/models"
)

func TestSessionOrderOwner(t *testing.T) {
	ownerID := uuid.New()
	order := &models.Order{
		CustomerID: ownerID,
		Customer:   &models.User{Email: "maria@example.com"},
	}

	otherID := uuid.New()
	assert.True(t, sessionOrderOwner(order, &ownerID, ""))
	assert.False(t, sessionOrderOwner(order, &otherID, ""))
	assert.False(t, sessionOrderOwner(order, &otherID, "maria@example.com"))

	// Anonymous replays must present the guest email the order was placed
	// under; a leaked session key alone reveals nothing.
	assert.True(t, sessionOrderOwner(order, nil, " Maria@Example.COM "))
	assert.False(t, sessionOrderOwner(order, nil, "eve@example.com"))
	assert.False(t, sessionOrderOwner(order, nil, ""))
	assert.False(t, sessionOrderOwner(&models.Order{CustomerID: ownerID}, nil, "maria@example.com"))
}

func TestGuestAddressPending(t *testing.T) {
	addr := &guestAddressRequest{AddressLine: "123 Calle Ocho", City: "Miami"}
	existing := uuid.New()

	assert.True(t, guestAddressPending(&createOrderRequest{GuestAddress: addr}))
	assert.False(t, guestAddressPending(&createOrderRequest{IsPickup: true, GuestAddress: addr}))
	assert.False(t, guestAddressPending(&createOrderRequest{AddressID: &existing, GuestAddress: addr}))
	assert.False(t, guestAddressPending(&createOrderRequest{}))
}
