package cart

import (
	"context"
	"fmt"
	"sync"
)

// Aggregator is a session cart: loaded from its Store once and written back
// after every mutation. Item ids are unique; adding an existing id bumps Qty.
type Aggregator struct {
	mu    sync.Mutex
	store Store
	lines []Line
}

func NewAggregator(ctx context.Context, store Store) (*Aggregator, error) {
	lines, err := store.LoadCart(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return &Aggregator{store: store, lines: normalize(lines)}, nil
}

// AddItem merges qty units of item into the cart; qty below 1 counts as 1.
func (a *Aggregator) AddItem(ctx context.Context, item Item, qty int) error {
	if qty < 1 {
		qty = 1
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.snapshot()
	if i := indexOf(next, item.ID); i >= 0 {
		next[i].Qty += qty
	} else {
		next = append(next, Line{
			ItemID:        item.ID,
			Name:          item.Name,
			OriginalPrice: item.OriginalPrice,
			DiscountPrice: item.DiscountPrice,
			Image:         item.Image,
			Qty:           qty,
		})
	}
	return a.commit(ctx, next)
}

// SetQty sets the line quantity; qty <= 0 removes the line. Unknown ids are ignored.
func (a *Aggregator) SetQty(ctx context.Context, itemID string, qty int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := indexOf(a.lines, itemID)
	if i < 0 {
		return nil
	}
	next := a.snapshot()
	if qty <= 0 {
		next = append(next[:i], next[i+1:]...)
	} else {
		next[i].Qty = qty
	}
	return a.commit(ctx, next)
}

func (a *Aggregator) RemoveItem(ctx context.Context, itemID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := indexOf(a.lines, itemID)
	if i < 0 {
		return nil
	}
	next := a.snapshot()
	next = append(next[:i], next[i+1:]...)
	return a.commit(ctx, next)
}

func (a *Aggregator) Clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.commit(ctx, []Line{})
}

func (a *Aggregator) Total() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Total(a.lines)
}

// Count is the number of units in the cart, not the number of lines.
func (a *Aggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, l := range a.lines {
		n += l.Qty
	}
	return n
}

func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.lines)
}

// Lines returns a copy of the cart in insertion order.
func (a *Aggregator) Lines() []Line {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot()
}

func (a *Aggregator) snapshot() []Line {
	out := make([]Line, len(a.lines))
	copy(out, a.lines)
	return out
}

// commit persists next and only then makes it the in-memory state.
func (a *Aggregator) commit(ctx context.Context, next []Line) error {
	if err := a.store.SaveCart(ctx, next); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	a.lines = next
	return nil
}

func indexOf(lines []Line, itemID string) int {
	for i := range lines {
		if lines[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

// normalize folds duplicate ids and drops non-positive quantities left by
// older writers of the same storage key.
func normalize(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		if i := indexOf(out, l.ItemID); i >= 0 {
			out[i].Qty += l.Qty
			continue
		}
		out = append(out, l)
	}
	return out
}
