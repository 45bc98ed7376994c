// cartstate/cartstore/cartstore.go

package cartstore

import (
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// StoreName is the key hosts use to look up the cart store.
const StoreName = "cart"

// Errors returned by the cart mutators.
var (
	ErrInvalidItem     = errors.New("cart item has no id")
	ErrInvalidQuantity = errors.New("cart item quantity must be positive")
	ErrInvalidPrice    = errors.New("cart item price must be a finite non-negative number")
	ErrItemNotFound    = errors.New("cart item not found")
)

// CartItem is one line in the cart.
type CartItem struct {
	ID       string  `json:"id"`
	Quantity int32   `json:"quantity"`
	Price    float64 `json:"price"`
}

// Snapshot is a detached copy of a CartState.
type Snapshot struct {
	SessionID         string     `json:"session_id"`
	Items             []CartItem `json:"items"`
	PurchaseCompleted bool       `json:"purchase_completed"`
	Total             float64    `json:"total"`
}

// CartState holds the items of the current cart session and whether the
// purchase has been completed. A *CartState is meant to be shared: every
// holder of the pointer sees the same items and flag.
type CartState struct {
	mu sync.RWMutex

	sessionID         string
	items             []CartItem
	purchaseCompleted bool
}

// NewCartState returns an empty cart with the purchase flag unset.
func NewCartState() *CartState {
	return &CartState{
		sessionID: uuid.NewString(),
		items:     []CartItem{},
	}
}

// CartStore is the definition registered under StoreName.
var CartStore = Define(StoreName, NewCartState)

// UseCartStore returns the cart shared through r, creating it on first use.
func UseCartStore(r *Registry) *CartState {
	return CartStore.Use(r)
}

// SessionID identifies this cart instance.
func (c *CartState) SessionID() string {
	return c.sessionID
}

// AddItem adds item to the cart. A line with the same ID gets its quantity
// increased and its price replaced; otherwise the item is appended.
func (c *CartState) AddItem(item CartItem) error {
	switch {
	case item.ID == "":
		return ErrInvalidItem
	case item.Quantity <= 0:
		return errors.Wrapf(ErrInvalidQuantity, "item %s: quantity %d", item.ID, item.Quantity)
	case math.IsNaN(item.Price) || math.IsInf(item.Price, 0) || item.Price < 0:
		return errors.Wrapf(ErrInvalidPrice, "item %s: price %v", item.ID, item.Price)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == item.ID {
			if item.Quantity > math.MaxInt32-c.items[i].Quantity {
				return errors.Wrapf(ErrInvalidQuantity, "item %s: quantity %d overflows %d", item.ID, item.Quantity, c.items[i].Quantity)
			}
			c.items[i].Quantity += item.Quantity
			c.items[i].Price = item.Price
			return nil
		}
	}
	c.items = append(c.items, item)
	return nil
}

// RemoveItem drops the line with the given ID.
func (c *CartState) RemoveItem(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
	}
	return errors.Wrapf(ErrItemNotFound, "item %s", id)
}

// Empty removes every item. The purchase flag is left alone.
func (c *CartState) Empty() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = []CartItem{}
}

// Reset puts the cart back into its initial shape.
func (c *CartState) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = []CartItem{}
	c.purchaseCompleted = false
}

// SetPurchaseCompleted sets the purchase flag.
func (c *CartState) SetPurchaseCompleted(completed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purchaseCompleted = completed
}

// PurchaseCompleted reports whether the purchase has been completed.
func (c *CartState) PurchaseCompleted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.purchaseCompleted
}

// Items returns a copy of the cart lines in insertion order.
func (c *CartState) Items() []CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len is the number of lines in the cart.
func (c *CartState) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Total is the sum of quantity * price over all lines.
func (c *CartState) Total() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.totalLocked()
}

func (c *CartState) totalLocked() float64 {
	var total float64
	for _, item := range c.items {
		total += float64(item.Quantity) * item.Price
	}
	return total
}

// Snapshot copies the current state under a single read lock.
func (c *CartState) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]CartItem, len(c.items))
	copy(items, c.items)
	return Snapshot{
		SessionID:         c.sessionID,
		Items:             items,
		PurchaseCompleted: c.purchaseCompleted,
		Total:             c.totalLocked(),
	}
}
