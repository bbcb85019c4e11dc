package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Chetan2520/india-food-court/internal/cart"
	"github.com/Chetan2520/india-food-court/internal/geo"
	"github.com/Chetan2520/india-food-court/internal/shop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var shopLoc = geo.Coordinate{Latitude: 22.755048346589977, Longitude: 75.90500545632862}

type mockRepository struct {
	m      sync.Mutex
	orders []*Order
	err    error
}

func (m *mockRepository) Create(_ context.Context, o *Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.orders = append(m.orders, o)
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (m *mockRepository) ListByUser(_ context.Context, userID string) ([]*Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*Order
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].UserID == userID {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

type fixedShop struct {
	loc geo.Coordinate
	err error
}

func (f fixedShop) Location(context.Context) (geo.Coordinate, error) {
	return f.loc, f.err
}

type mockPublisher struct {
	m       sync.Mutex
	events  []PlacedEvent
	err     error
	release chan struct{}
	ctxErr  error
}

func (p *mockPublisher) PublishOrderPlaced(ctx context.Context, e PlacedEvent) error {
	if p.release != nil {
		<-p.release
	}
	p.m.Lock()
	defer p.m.Unlock()
	p.ctxErr = ctx.Err()
	p.events = append(p.events, e)
	return p.err
}

func (p *mockPublisher) published() []PlacedEvent {
	p.m.Lock()
	defer p.m.Unlock()
	return append([]PlacedEvent(nil), p.events...)
}

func ptr(f float64) *float64 { return &f }

func requestAt(user geo.Coordinate) PlaceOrderRequest {
	return PlaceOrderRequest{
		Items: []cart.Line{
			{ItemID: "a", Name: "Samosa", OriginalPrice: 100, DiscountPrice: 80, Qty: 2},
			{ItemID: "b", Name: "Chai", OriginalPrice: 40, Qty: 2},
		},
		TotalAmount: ptr(240),
		UserLat:     ptr(user.Latitude),
		UserLng:     ptr(user.Longitude),
	}
}

func newTestService(repo Repository, pub Publisher) *Service {
	return NewService(repo, fixedShop{loc: shopLoc}, geo.NewGate(geo.DefaultMinDistanceMeters), pub, nil)
}

func TestPlaceOrder_FarEnoughIsStored(t *testing.T) {
	repo := &mockRepository{}
	pub := &mockPublisher{}
	svc := newTestService(repo, pub)

	user := geo.Destination(shopLoc, 0, 800)
	order, err := svc.PlaceOrder(context.Background(), "anonymous_user", requestAt(user))
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, "anonymous_user", order.UserID)
	assert.InDelta(t, 240, order.TotalAmount, 1e-9)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 80.0, order.Items[0].Price)
	assert.Equal(t, 40.0, order.Items[1].Price)
	assert.Len(t, repo.orders, 1)

	svc.Wait()
	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, order.ID, events[0].OrderID)
	assert.Equal(t, 2, events[0].ItemCount)
}

func TestPlaceOrder_TooCloseIsRejected(t *testing.T) {
	repo := &mockRepository{}
	svc := newTestService(repo, nil)

	user := geo.Destination(shopLoc, 90, 480)
	_, err := svc.PlaceOrder(context.Background(), "u", requestAt(user))

	var perr *geo.ProximityError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "480m")
	assert.Empty(t, repo.orders)
}

func TestPlaceOrder_BoundaryAroundThreshold(t *testing.T) {
	svc := newTestService(&mockRepository{}, nil)

	_, err := svc.PlaceOrder(context.Background(), "u", requestAt(geo.Destination(shopLoc, 45, 500.3)))
	assert.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), "u", requestAt(geo.Destination(shopLoc, 45, 499.7)))
	var perr *geo.ProximityError
	assert.ErrorAs(t, err, &perr)
}

func TestPlaceOrder_Validation(t *testing.T) {
	far := geo.Destination(shopLoc, 0, 800)

	tests := []struct {
		name    string
		mutate  func(r *PlaceOrderRequest)
		message string
	}{
		{"no items", func(r *PlaceOrderRequest) { r.Items = nil }, "Items required!"},
		{"missing total", func(r *PlaceOrderRequest) { r.TotalAmount = nil }, "Total amount required!"},
		{"zero total", func(r *PlaceOrderRequest) { r.TotalAmount = ptr(0) }, "Total amount required!"},
		{"missing lat", func(r *PlaceOrderRequest) { r.UserLat = nil }, "Location required!"},
		{"missing lng", func(r *PlaceOrderRequest) { r.UserLng = nil }, "Location required!"},
		{"out of range", func(r *PlaceOrderRequest) { r.UserLat = ptr(95) }, "Location required!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{}
			svc := newTestService(repo, nil)
			req := requestAt(far)
			tt.mutate(&req)

			_, err := svc.PlaceOrder(context.Background(), "u", req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.message, verr.Message)
			assert.Empty(t, repo.orders)
		})
	}
}

func TestPlaceOrder_ZeroLatitudeIsALocation(t *testing.T) {
	svc := NewService(&mockRepository{}, fixedShop{loc: shopLoc}, geo.NewGate(0), nil, nil)
	req := requestAt(geo.Coordinate{Latitude: 0, Longitude: 0})

	_, err := svc.PlaceOrder(context.Background(), "u", req)
	assert.NoError(t, err)
}

func TestPlaceOrder_ShopMissing(t *testing.T) {
	svc := NewService(&mockRepository{}, fixedShop{err: shop.ErrShopNotFound}, geo.NewGate(0), nil, nil)

	_, err := svc.PlaceOrder(context.Background(), "u", requestAt(geo.Destination(shopLoc, 0, 800)))
	assert.ErrorIs(t, err, shop.ErrShopNotFound)
}

func TestPlaceOrder_PersistenceFailure(t *testing.T) {
	svc := newTestService(&mockRepository{err: errors.New("disk full")}, nil)

	_, err := svc.PlaceOrder(context.Background(), "u", requestAt(geo.Destination(shopLoc, 0, 800)))
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestPlaceOrder_PublishFailureDoesNotFailOrder(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := &mockRepository{}
	svc := NewService(repo, fixedShop{loc: shopLoc}, geo.NewGate(0), &mockPublisher{err: errors.New("broker down")}, zap.New(core))

	_, err := svc.PlaceOrder(context.Background(), "u", requestAt(geo.Destination(shopLoc, 0, 800)))
	assert.NoError(t, err)
	assert.Len(t, repo.orders, 1)

	svc.Wait()
	assert.Equal(t, 1, logs.FilterMessage("failed to publish order placed event").Len())
}

func TestPlaceOrder_SlowPublisherDoesNotDelayOrder(t *testing.T) {
	pub := &mockPublisher{release: make(chan struct{})}
	svc := newTestService(&mockRepository{}, pub)

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	order, err := svc.PlaceOrder(ctx, "u", requestAt(geo.Destination(shopLoc, 0, 800)))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	// the request finishing must not cancel the pending publish
	cancel()
	close(pub.release)
	svc.Wait()

	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, order.ID, events[0].OrderID)
	pub.m.Lock()
	defer pub.m.Unlock()
	assert.NoError(t, pub.ctxErr)
}

func TestPlaceOrder_PublishIsBoundedByTimeout(t *testing.T) {
	pub := &blockingPublisher{}
	svc := newTestService(&mockRepository{}, pub)
	svc.publishTimeout = 20 * time.Millisecond

	_, err := svc.PlaceOrder(context.Background(), "u", requestAt(geo.Destination(shopLoc, 0, 800)))
	require.NoError(t, err)

	svc.Wait()
	assert.ErrorIs(t, pub.err, context.DeadlineExceeded)
}

// blockingPublisher waits for its context to end.
type blockingPublisher struct {
	err error
}

func (p *blockingPublisher) PublishOrderPlaced(ctx context.Context, _ PlacedEvent) error {
	<-ctx.Done()
	p.err = ctx.Err()
	return p.err
}

func TestPlaceOrder_TotalIsRecomputed(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc := NewService(&mockRepository{}, fixedShop{loc: shopLoc}, geo.NewGate(0), nil, zap.New(core))

	req := requestAt(geo.Destination(shopLoc, 0, 800))
	req.TotalAmount = ptr(1)
	order, err := svc.PlaceOrder(context.Background(), "u", req)
	require.NoError(t, err)

	assert.InDelta(t, 240, order.TotalAmount, 1e-9)
	assert.Equal(t, 1, logs.FilterMessage("submitted total differs from item prices").Len())
}

func TestPlaceOrder_QtyBelowOneBecomesOne(t *testing.T) {
	svc := newTestService(&mockRepository{}, nil)
	req := requestAt(geo.Destination(shopLoc, 0, 800))
	req.Items = []cart.Line{{ItemID: "a", OriginalPrice: 50, Qty: 0}}

	order, err := svc.PlaceOrder(context.Background(), "u", req)
	require.NoError(t, err)
	assert.Equal(t, 1, order.Items[0].Qty)
	assert.Equal(t, 50.0, order.TotalAmount)
}

func TestGetOrder(t *testing.T) {
	repo := &mockRepository{}
	svc := newTestService(repo, nil)
	placed, err := svc.PlaceOrder(context.Background(), "u", requestAt(geo.Destination(shopLoc, 0, 800)))
	require.NoError(t, err)

	got, err := svc.GetOrder(context.Background(), placed.ID)
	require.NoError(t, err)
	assert.Equal(t, placed.ID, got.ID)

	_, err = svc.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrders_NewestFirst(t *testing.T) {
	repo := &mockRepository{}
	svc := newTestService(repo, nil)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		o, err := svc.PlaceOrder(ctx, "u", requestAt(geo.Destination(shopLoc, 0, 800)))
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}

	list, err := svc.ListOrders(ctx, "u")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)

	empty, err := svc.ListOrders(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
