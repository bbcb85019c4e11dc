package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Chetan2520/india-food-court/internal/geo"
	"go.uber.org/zap"
)

const DefaultGeolocationTimeout = 10 * time.Second

// LocationStore persists the last known coordinate between runs.
type LocationStore interface {
	LoadLocation(ctx context.Context) (geo.Coordinate, bool, error)
	SaveLocation(ctx context.Context, c geo.Coordinate) error
	ClearLocation(ctx context.Context) error
}

// Locator obtains the customer's coordinate once and reuses it. A permission
// denial sticks until Retry.
type Locator struct {
	provider GeolocationProvider
	store    LocationStore
	timeout  time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	loaded  bool
	cached  *geo.Coordinate
	denied  bool
	pending bool
}

func NewLocator(provider GeolocationProvider, store LocationStore, timeout time.Duration, log *zap.Logger) *Locator {
	if timeout <= 0 {
		timeout = DefaultGeolocationTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Locator{provider: provider, store: store, timeout: timeout, log: log}
}

// Denied reports whether the last attempt was refused permission.
func (l *Locator) Denied() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.denied
}

// Locate returns the cached coordinate or asks the provider for one.
func (l *Locator) Locate(ctx context.Context) (geo.Coordinate, error) {
	l.mu.Lock()
	if l.denied {
		l.mu.Unlock()
		return geo.Coordinate{}, &GeolocationError{Kind: DeniedKind, Err: ErrPermissionDenied}
	}
	if err := l.loadLocked(ctx); err != nil {
		l.mu.Unlock()
		return geo.Coordinate{}, err
	}
	if l.cached != nil {
		c := *l.cached
		l.mu.Unlock()
		return c, nil
	}
	if l.pending {
		l.mu.Unlock()
		return geo.Coordinate{}, ErrLocationPending
	}
	l.pending = true
	l.mu.Unlock()

	c, err := l.request(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = false

	if err != nil {
		var gerr *GeolocationError
		if errors.As(err, &gerr) && gerr.Kind == DeniedKind {
			l.denied = true
		}
		return geo.Coordinate{}, err
	}

	l.cached = &c
	if err := l.store.SaveLocation(ctx, c); err != nil {
		l.log.Warn("failed to persist location", zap.Error(err))
	}
	return c, nil
}

// Retry forgets the cached coordinate and any denial, then locates again.
func (l *Locator) Retry(ctx context.Context) (geo.Coordinate, error) {
	l.mu.Lock()
	if l.pending {
		l.mu.Unlock()
		return geo.Coordinate{}, ErrLocationPending
	}
	l.denied = false
	l.cached = nil
	l.loaded = true
	l.mu.Unlock()

	if err := l.store.ClearLocation(ctx); err != nil {
		return geo.Coordinate{}, fmt.Errorf("clear stored location: %w", err)
	}
	return l.Locate(ctx)
}

func (l *Locator) loadLocked(ctx context.Context) error {
	if l.loaded {
		return nil
	}
	c, ok, err := l.store.LoadLocation(ctx)
	if err != nil {
		return fmt.Errorf("load stored location: %w", err)
	}
	l.loaded = true
	if ok {
		l.cached = &c
	}
	return nil
}

type positionResult struct {
	c   geo.Coordinate
	err error
}

// request runs the provider under the locator timeout. A provider that ignores
// its context is abandoned when the deadline passes.
func (l *Locator) request(ctx context.Context) (geo.Coordinate, error) {
	reqCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	done := make(chan positionResult, 1)
	go func() {
		c, err := l.provider.CurrentPosition(reqCtx)
		done <- positionResult{c: c, err: err}
	}()

	var res positionResult
	select {
	case res = <-done:
	case <-reqCtx.Done():
		res = positionResult{err: reqCtx.Err()}
	}

	switch {
	case res.err == nil:
		if !res.c.Valid() {
			return geo.Coordinate{}, &GeolocationError{Kind: UnavailableKind, Err: ErrPositionUnavailable}
		}
		return res.c, nil
	case ctx.Err() != nil:
		return geo.Coordinate{}, ctx.Err()
	case errors.Is(res.err, ErrPermissionDenied):
		return geo.Coordinate{}, &GeolocationError{Kind: DeniedKind, Err: res.err}
	case errors.Is(res.err, context.DeadlineExceeded):
		return geo.Coordinate{}, &GeolocationError{Kind: TimeoutKind, Err: res.err}
	default:
		return geo.Coordinate{}, &GeolocationError{Kind: UnavailableKind, Err: res.err}
	}
}
