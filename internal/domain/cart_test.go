package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartTotalPrice(t *testing.T) {
	cart := NewCart("user-1")
	assert.Equal(t, int64(0), cart.TotalPrice())

	cart.Items = []CartItem{
		{ProductID: "p1", Price: 1000, Quantity: 2},
		{ProductID: "p2", Price: 500, Quantity: 1},
	}
	assert.Equal(t, int64(2500), cart.TotalPrice())
	assert.Equal(t, 3, cart.ItemCount())
}

func TestCartTotalTracksMutations(t *testing.T) {
	cart := NewCart("user-1")
	cart.Items = []CartItem{
		{ProductID: "p1", Price: 1000, Quantity: 2},
		{ProductID: "p2", Price: 500, Quantity: 4},
	}
	assert.Equal(t, int64(4000), cart.TotalPrice())

	cart.Items[1].Quantity = 1
	assert.Equal(t, int64(2500), cart.TotalPrice())

	cart.RemoveItem(0)
	assert.Equal(t, int64(500), cart.TotalPrice())

	cart.RemoveItem(0)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, int64(0), cart.TotalPrice())
}

func TestCartFindItemIndex(t *testing.T) {
	cart := NewCart("user-1")
	cart.Items = []CartItem{
		{ProductID: "p1", Price: 100, Quantity: 1},
		{ProductID: "p2", Price: 200, Quantity: 1},
	}

	assert.Equal(t, 0, cart.FindItemIndex("p1"))
	assert.Equal(t, 1, cart.FindItemIndex("p2"))
	assert.Equal(t, -1, cart.FindItemIndex("p3"))
}

func TestNewCartIsEmpty(t *testing.T) {
	cart := NewCart("user-1")
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, "user-1", cart.UserID)
	assert.NotNil(t, cart.Items)
}
