package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Chetan2520/india-food-court/internal/cart"
	"github.com/Chetan2520/india-food-court/internal/geo"
	"github.com/Chetan2520/india-food-court/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultPublishTimeout bounds a background publish once the request is gone.
const defaultPublishTimeout = 10 * time.Second

type Service struct {
	repo           Repository
	shop           ShopLocator
	gate           geo.Gate
	publisher      Publisher
	publishTimeout time.Duration
	publishing     sync.WaitGroup
	log            *zap.Logger
	now            func() time.Time
}

func NewService(repo Repository, shop ShopLocator, gate geo.Gate, publisher Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:           repo,
		shop:           shop,
		gate:           gate,
		publisher:      publisher,
		publishTimeout: defaultPublishTimeout,
		log:            log,
		now:            time.Now,
	}
}

// PlaceOrder validates req, enforces the minimum distance from the shop and
// stores a pending order. Errors are *ValidationError, *geo.ProximityError,
// shop.ErrShopNotFound or wrap ErrPersistence.
func (s *Service) PlaceOrder(ctx context.Context, userID string, req PlaceOrderRequest) (*Order, error) {
	log := logger.FromContext(ctx, s.log)

	if err := validate(req); err != nil {
		return nil, err
	}

	user := geo.Coordinate{Latitude: *req.UserLat, Longitude: *req.UserLng}
	shopLoc, err := s.shop.Location(ctx)
	if err != nil {
		return nil, fmt.Errorf("load shop location: %w", err)
	}

	distance, err := s.gate.Check(user, shopLoc)
	if err != nil {
		log.Info("order rejected by distance check",
			zap.String("user_id", userID),
			zap.Float64("distance_m", distance))
		return nil, err
	}

	items, total := snapshot(req.Items)
	if math.Abs(total-*req.TotalAmount) > 0.005 {
		log.Warn("submitted total differs from item prices",
			zap.Float64("submitted", *req.TotalAmount),
			zap.Float64("computed", total))
	}

	order := &Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		Items:       items,
		TotalAmount: total,
		UserLat:     user.Latitude,
		UserLng:     user.Longitude,
		Status:      StatusPending,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, order); err != nil {
		log.Error("failed to store order", zap.String("order_id", order.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Float64("total", order.TotalAmount),
		zap.Float64("distance_m", distance))

	s.publishPlaced(ctx, log, order)
	return order, nil
}

// publishPlaced sends the order.placed event in the background. The publish
// outlives the request context but not publishTimeout.
func (s *Service) publishPlaced(ctx context.Context, log *zap.Logger, order *Order) {
	if s.publisher == nil {
		return
	}
	event := PlacedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		ItemCount:   len(order.Items),
		PlacedAt:    order.CreatedAt,
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		defer cancel()
		if err := s.publisher.PublishOrderPlaced(pubCtx, event); err != nil {
			log.Warn("failed to publish order placed event", zap.String("order_id", event.OrderID), zap.Error(err))
		}
	}()
}

// Wait blocks until every in-flight order event publish has finished.
func (s *Service) Wait() {
	s.publishing.Wait()
}

func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, userID string) ([]*Order, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if list == nil {
		list = []*Order{}
	}
	return list, nil
}

func validate(req PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return &ValidationError{Field: "items", Message: msgItemsRequired}
	}
	if req.TotalAmount == nil || *req.TotalAmount <= 0 {
		return &ValidationError{Field: "totalAmount", Message: msgTotalRequired}
	}
	if req.UserLat == nil || req.UserLng == nil {
		return &ValidationError{Field: "location", Message: msgLocationRequired}
	}
	if !(geo.Coordinate{Latitude: *req.UserLat, Longitude: *req.UserLng}).Valid() {
		return &ValidationError{Field: "location", Message: msgLocationRequired}
	}
	return nil
}

func snapshot(lines []cart.Line) ([]Item, float64) {
	items := make([]Item, 0, len(lines))
	var total float64
	for _, l := range lines {
		qty := l.Qty
		if qty < 1 {
			qty = 1
		}
		price := cart.EffectivePrice(l)
		items = append(items, Item{
			ItemID: l.ItemID,
			Name:   l.Name,
			Price:  price,
			Image:  l.Image,
			Qty:    qty,
		})
		total += price * float64(qty)
	}
	return items, total
}
