package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Chetan2520/india-food-court/internal/orders"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// sharedUserID is the identity every unidentified caller gets; its cart is
// not anyone's in particular, so it is never cleared from here.
const sharedUserID = "anonymous_user"

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartClearer empties the server-side copy of a session's cart.
type CartClearer interface {
	ClearCart(ctx context.Context, sessionID string) error
}

// CartCleaner consumes order-placed events and clears the shared (Redis)
// cart of the session that placed the order, so other devices on the same
// session stop showing items that were already ordered.
type CartCleaner struct {
	reader messageReader
	carts  CartClearer
	log    *zap.Logger
}

func NewCartCleaner(brokers []string, topic, groupID string, carts CartClearer, log *zap.Logger) *CartCleaner {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newCartCleaner(reader, carts, log)
}

func newCartCleaner(r messageReader, carts CartClearer, log *zap.Logger) *CartCleaner {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartCleaner{reader: r, carts: carts, log: log}
}

// Run blocks until ctx is cancelled.
func (c *CartCleaner) Run(ctx context.Context) {
	for ctx.Err() == nil {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn("error reading message", zap.Error(err))
			}
			continue
		}
		c.handle(ctx, m)
	}
}

func (c *CartCleaner) handle(ctx context.Context, m kafka.Message) {
	if !isOrderPlaced(m) {
		return
	}

	var e orders.PlacedEvent
	if err := json.Unmarshal(m.Value, &e); err != nil {
		c.log.Warn("error parsing message", zap.Error(err), zap.Int64("offset", m.Offset))
		return
	}
	if e.UserID == "" || e.UserID == sharedUserID {
		return
	}

	if err := c.carts.ClearCart(ctx, e.UserID); err != nil && !errors.Is(err, context.Canceled) {
		c.log.Error("failed to clear cart",
			zap.String("user_id", e.UserID),
			zap.String("order_id", e.OrderID),
			zap.Error(err))
		return
	}
	c.log.Debug("cart cleared after order", zap.String("user_id", e.UserID), zap.String("order_id", e.OrderID))
}

func isOrderPlaced(m kafka.Message) bool {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value) == eventTypeOrderPlaced
		}
	}
	return false
}

func (c *CartCleaner) Close() error {
	return c.reader.Close()
}
