package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Chetan2520/india-food-court/internal/cart"
	"github.com/Chetan2520/india-food-court/internal/geo"
	"github.com/Chetan2520/india-food-court/internal/logger"
	"go.uber.org/zap"
)

var ErrEmptyCart = errors.New("cart is empty")

// OrderAPI is the part of the storefront API that checkout needs.
type OrderAPI interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (string, error)
	Shop(ctx context.Context) (ShopInfo, error)
}

// Checkout runs one order submission: locate, check distance locally, submit,
// then clear the cart. The server repeats the distance check.
type Checkout struct {
	cart    *cart.Aggregator
	locator *Locator
	api     OrderAPI
	gate    geo.Gate
	log     *zap.Logger

	mu   sync.Mutex
	shop *geo.Coordinate
}

func NewCheckout(agg *cart.Aggregator, locator *Locator, api OrderAPI, gate geo.Gate, log *zap.Logger) *Checkout {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checkout{cart: agg, locator: locator, api: api, gate: gate, log: log}
}

// Eligibility evaluates the distance rule for the current location without
// submitting anything.
func (c *Checkout) Eligibility(ctx context.Context) (geo.Eligibility, error) {
	user, err := c.locator.Locate(ctx)
	if err != nil {
		return geo.Eligibility{}, err
	}
	shopLoc, err := c.shopLocation(ctx)
	if err != nil {
		return geo.Eligibility{}, err
	}
	return c.gate.Evaluate(user, shopLoc), nil
}

// PlaceOrder submits the cart and returns the order id. Errors are
// ErrEmptyCart, *GeolocationError, *geo.ProximityError (possibly inside an
// *APIError) or a transport error; the cart is kept on any error.
func (c *Checkout) PlaceOrder(ctx context.Context) (string, error) {
	log := logger.FromContext(ctx, c.log)

	if c.cart.Len() == 0 {
		return "", ErrEmptyCart
	}

	user, err := c.locator.Locate(ctx)
	if err != nil {
		return "", err
	}

	shopLoc, err := c.shopLocation(ctx)
	if err != nil {
		return "", err
	}
	if _, err := c.gate.Check(user, shopLoc); err != nil {
		return "", err
	}

	orderID, err := c.api.PlaceOrder(ctx, OrderRequest{
		Items:       c.cart.Lines(),
		TotalAmount: c.cart.Total(),
		UserLat:     user.Latitude,
		UserLng:     user.Longitude,
	})
	if err != nil {
		return "", err
	}

	if err := c.cart.Clear(ctx); err != nil {
		log.Warn("order placed but cart could not be cleared", zap.String("order_id", orderID), zap.Error(err))
	}
	log.Info("order placed", zap.String("order_id", orderID))
	return orderID, nil
}

func (c *Checkout) shopLocation(ctx context.Context) (geo.Coordinate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shop != nil {
		return *c.shop, nil
	}
	info, err := c.api.Shop(ctx)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("fetch shop location: %w", err)
	}
	loc := info.Location()
	c.shop = &loc
	return loc, nil
}
