package reviews

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepository struct {
	items      map[string]bool
	reviews    []*Review
	aggregates map[string]Aggregate
	ratingErr  error
}

func newMemoryRepository(items ...string) *memoryRepository {
	m := &memoryRepository{items: map[string]bool{}, aggregates: map[string]Aggregate{}}
	for _, id := range items {
		m.items[id] = true
	}
	return m
}

func (m *memoryRepository) ItemExists(_ context.Context, itemID string) (bool, error) {
	return m.items[itemID], nil
}

func (m *memoryRepository) Create(_ context.Context, r *Review) error {
	for _, existing := range m.reviews {
		if existing.UserID == r.UserID && existing.ItemID == r.ItemID {
			return ErrAlreadyReviewed
		}
	}
	m.reviews = append(m.reviews, r)
	return nil
}

func (m *memoryRepository) AddRating(_ context.Context, itemID string, rating int) (Aggregate, error) {
	if m.ratingErr != nil {
		return Aggregate{}, m.ratingErr
	}
	a := m.aggregates[itemID]
	a.ItemID = itemID
	a.Sum += int64(rating)
	a.Count++
	m.aggregates[itemID] = a
	return a, nil
}

func (m *memoryRepository) ListByItem(_ context.Context, itemID string) ([]*Review, error) {
	var out []*Review
	for i := len(m.reviews) - 1; i >= 0; i-- {
		if m.reviews[i].ItemID == itemID {
			out = append(out, m.reviews[i])
		}
	}
	return out, nil
}

func (m *memoryRepository) GetAggregate(_ context.Context, itemID string) (Aggregate, error) {
	return m.aggregates[itemID], nil
}

func (m *memoryRepository) ListAggregates(context.Context) ([]Aggregate, error) {
	var out []Aggregate
	for _, a := range m.aggregates {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func TestCreateReview_Validation(t *testing.T) {
	svc := NewService(newMemoryRepository("item-1"), nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		itemID  string
		userID  string
		rating  int
		comment string
		want    error
	}{
		{"missing user", "item-1", " ", 4, "tasty", ErrUserRequired},
		{"missing item", " ", "u1", 4, "tasty", ErrItemIDRequired},
		{"rating too low", "item-1", "u1", 0, "tasty", ErrInvalidRating},
		{"rating too high", "item-1", "u1", 6, "tasty", ErrInvalidRating},
		{"blank comment", "item-1", "u1", 4, "   ", ErrCommentRequired},
		{"unknown item", "item-2", "u1", 4, "tasty", ErrItemNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateReview(ctx, tt.userID, tt.itemID, tt.rating, tt.comment)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateReview_OnePerUserAndItem(t *testing.T) {
	svc := NewService(newMemoryRepository("item-1"), nil)
	ctx := context.Background()

	r, err := svc.CreateReview(ctx, "u1", "item-1", 5, "  great thali ")
	require.NoError(t, err)
	assert.Equal(t, "great thali", r.Comment)
	assert.NotEmpty(t, r.ID)

	_, err = svc.CreateReview(ctx, "u1", "item-1", 3, "again")
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	_, err = svc.CreateReview(ctx, "u2", "item-1", 3, "fine")
	assert.NoError(t, err)
}

func TestItemReviews_AverageRoundedToOneDecimal(t *testing.T) {
	svc := NewService(newMemoryRepository("item-1"), nil)
	ctx := context.Background()

	for i, rating := range []int{5, 4, 4} {
		_, err := svc.CreateReview(ctx, string(rune('a'+i)), "item-1", rating, "ok")
		require.NoError(t, err)
	}

	got, err := svc.ItemReviews(ctx, "item-1")
	require.NoError(t, err)
	assert.Len(t, got.Reviews, 3)
	assert.Equal(t, "c", got.Reviews[0].UserID)
	assert.Equal(t, 4.3, got.AverageRating)
}

func TestItemReviews_NoReviews(t *testing.T) {
	svc := NewService(newMemoryRepository("item-1"), nil)

	got, err := svc.ItemReviews(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Empty(t, got.Reviews)
	assert.Equal(t, 0.0, got.AverageRating)
}

func TestCreateReview_AggregateFailureKeepsReview(t *testing.T) {
	repo := newMemoryRepository("item-1")
	repo.ratingErr = errors.New("write conflict")
	svc := NewService(repo, nil)

	r, err := svc.CreateReview(context.Background(), "u1", "item-1", 4, "ok")
	require.NoError(t, err)
	assert.NotNil(t, r)
	assert.Len(t, repo.reviews, 1)
}

func TestAverages(t *testing.T) {
	svc := NewService(newMemoryRepository("a", "b"), nil)
	ctx := context.Background()

	_, _ = svc.CreateReview(ctx, "u1", "a", 5, "x")
	_, _ = svc.CreateReview(ctx, "u2", "a", 2, "x")
	_, _ = svc.CreateReview(ctx, "u1", "b", 3, "x")

	got, err := svc.Averages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ItemAverage{
		{ItemID: "a", AverageRating: 3.5},
		{ItemID: "b", AverageRating: 3},
	}, got)
}

func TestAggregate_Average(t *testing.T) {
	assert.Equal(t, 0.0, Aggregate{}.Average())
	assert.Equal(t, 3.7, Aggregate{Sum: 11, Count: 3}.Average())
}
