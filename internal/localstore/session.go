package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Chetan2520/india-food-court/internal/cart"
	"github.com/Chetan2520/india-food-court/internal/geo"
)

// Storage keys, shared with the web client's localStorage layout.
const (
	CartKey     = "cart"
	LocationKey = "userLocation"
)

// Session scopes the store to one client session. It satisfies cart.Store
// and storefront.LocationStore.
type Session struct {
	store *Store
	id    string
}

func (s *Store) Session(id string) *Session {
	return &Session{store: s, id: id}
}

func (s *Session) LoadCart(ctx context.Context) ([]cart.Line, error) {
	raw, err := s.store.Get(ctx, s.id, CartKey)
	if errors.Is(err, ErrNotFound) {
		return []cart.Line{}, nil
	}
	if err != nil {
		return nil, err
	}
	var lines []cart.Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return lines, nil
}

func (s *Session) SaveCart(ctx context.Context, lines []cart.Line) error {
	if lines == nil {
		lines = []cart.Line{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	return s.store.Put(ctx, s.id, CartKey, raw)
}

func (s *Session) LoadLocation(ctx context.Context) (geo.Coordinate, bool, error) {
	raw, err := s.store.Get(ctx, s.id, LocationKey)
	if errors.Is(err, ErrNotFound) {
		return geo.Coordinate{}, false, nil
	}
	if err != nil {
		return geo.Coordinate{}, false, err
	}
	var c geo.Coordinate
	if err := json.Unmarshal(raw, &c); err != nil {
		return geo.Coordinate{}, false, fmt.Errorf("unmarshal location failed: %w", err)
	}
	return c, true, nil
}

func (s *Session) SaveLocation(ctx context.Context, c geo.Coordinate) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal location failed: %w", err)
	}
	return s.store.Put(ctx, s.id, LocationKey, raw)
}

func (s *Session) ClearLocation(ctx context.Context) error {
	return s.store.Delete(ctx, s.id, LocationKey)
}
