package cartstore

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestNewCartStateIsEmpty(t *testing.T) {
	c := NewCartState()

	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", c.Len())
	}
	if c.PurchaseCompleted() {
		t.Fatal("PurchaseCompleted() = true on a fresh cart")
	}
	if c.SessionID() == "" {
		t.Fatal("fresh cart has no session id")
	}

	snap := c.Snapshot()
	if snap.Items == nil {
		t.Fatal("snapshot items is nil, want empty slice")
	}
	if snap.Total != 0 {
		t.Errorf("Total = %v, want 0", snap.Total)
	}
}

func TestCartScenario(t *testing.T) {
	c := NewCartState()

	if err := c.AddItem(CartItem{ID: "1", Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}

	c.SetPurchaseCompleted(true)
	if !c.PurchaseCompleted() {
		t.Fatal("PurchaseCompleted() = false after SetPurchaseCompleted(true)")
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d after completing purchase, want 1", c.Len())
	}
}

func TestAddItemMergesSameID(t *testing.T) {
	c := NewCartState()
	for _, item := range []CartItem{
		{ID: "a", Quantity: 1, Price: 2.5},
		{ID: "b", Quantity: 3, Price: 1},
		{ID: "a", Quantity: 2, Price: 3},
	} {
		if err := c.AddItem(item); err != nil {
			t.Fatalf("AddItem(%+v): %v", item, err)
		}
	}

	want := []CartItem{
		{ID: "a", Quantity: 3, Price: 3},
		{ID: "b", Quantity: 3, Price: 1},
	}
	if diff := cmp.Diff(want, c.Items()); diff != "" {
		t.Errorf("Items() mismatch (-want +got):\n%s", diff)
	}
	if got := c.Total(); got != 12 {
		t.Errorf("Total() = %v, want 12", got)
	}
}

func TestAddItemValidation(t *testing.T) {
	tests := []struct {
		name string
		item CartItem
		want error
	}{
		{"missing id", CartItem{Quantity: 1}, ErrInvalidItem},
		{"zero quantity", CartItem{ID: "x"}, ErrInvalidQuantity},
		{"negative quantity", CartItem{ID: "x", Quantity: -2}, ErrInvalidQuantity},
		{"negative price", CartItem{ID: "x", Quantity: 1, Price: -0.5}, ErrInvalidPrice},
		{"nan price", CartItem{ID: "x", Quantity: 1, Price: math.NaN()}, ErrInvalidPrice},
		{"infinite price", CartItem{ID: "x", Quantity: 1, Price: math.Inf(1)}, ErrInvalidPrice},
		{"negative infinite price", CartItem{ID: "x", Quantity: 1, Price: math.Inf(-1)}, ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCartState()
			err := c.AddItem(tt.item)
			if errors.Cause(err) != tt.want {
				t.Fatalf("AddItem(%+v) error = %v, want %v", tt.item, err, tt.want)
			}
			if c.Len() != 0 {
				t.Errorf("rejected item was stored")
			}
		})
	}
}

func TestAddItemRejectsQuantityOverflow(t *testing.T) {
	c := NewCartState()
	if err := c.AddItem(CartItem{ID: "a", Quantity: math.MaxInt32, Price: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	err := c.AddItem(CartItem{ID: "a", Quantity: 1, Price: 2})
	if errors.Cause(err) != ErrInvalidQuantity {
		t.Fatalf("merging past MaxInt32 error = %v, want ErrInvalidQuantity", err)
	}

	want := []CartItem{{ID: "a", Quantity: math.MaxInt32, Price: 1}}
	if diff := cmp.Diff(want, c.Items()); diff != "" {
		t.Errorf("line changed by a rejected merge (-want +got):\n%s", diff)
	}
}

func TestRemoveItem(t *testing.T) {
	c := NewCartState()
	for _, id := range []string{"a", "b", "c"} {
		if err := c.AddItem(CartItem{ID: id, Quantity: 1}); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.RemoveItem("b"); err != nil {
		t.Fatalf("RemoveItem(b): %v", err)
	}
	want := []CartItem{{ID: "a", Quantity: 1}, {ID: "c", Quantity: 1}}
	if diff := cmp.Diff(want, c.Items()); diff != "" {
		t.Errorf("Items() mismatch (-want +got):\n%s", diff)
	}

	if err := c.RemoveItem("b"); errors.Cause(err) != ErrItemNotFound {
		t.Errorf("second RemoveItem(b) error = %v, want ErrItemNotFound", err)
	}
}

func TestItemsReturnsCopy(t *testing.T) {
	c := NewCartState()
	if err := c.AddItem(CartItem{ID: "a", Quantity: 1}); err != nil {
		t.Fatal(err)
	}

	items := c.Items()
	items[0].Quantity = 99

	if got := c.Items()[0].Quantity; got != 1 {
		t.Errorf("stored quantity = %d after editing a copy, want 1", got)
	}
}

func TestEmptyKeepsFlagResetClearsIt(t *testing.T) {
	c := NewCartState()
	session := c.SessionID()
	if err := c.AddItem(CartItem{ID: "a", Quantity: 1}); err != nil {
		t.Fatal(err)
	}
	c.SetPurchaseCompleted(true)

	c.Empty()
	if c.Len() != 0 || !c.PurchaseCompleted() {
		t.Fatalf("after Empty: len=%d completed=%v, want 0 true", c.Len(), c.PurchaseCompleted())
	}

	c.Reset()
	if c.Len() != 0 || c.PurchaseCompleted() {
		t.Fatalf("after Reset: len=%d completed=%v, want 0 false", c.Len(), c.PurchaseCompleted())
	}
	if c.SessionID() != session {
		t.Errorf("Reset changed session id")
	}
}
