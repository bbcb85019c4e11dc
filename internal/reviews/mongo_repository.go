package reviews

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRepository struct {
	reviews *mongo.Collection
	ratings *mongo.Collection
	items   *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		reviews: db.Collection("reviews"),
		ratings: db.Collection("item_ratings"),
		items:   db.Collection("items"),
	}
}

// itemFilter matches catalog ids stored either as ObjectIDs or plain strings.
func itemFilter(itemID string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(itemID); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, itemID}}}
	}
	return bson.M{"_id": itemID}
}

func (m *mongoRepository) ItemExists(ctx context.Context, itemID string) (bool, error) {
	n, err := m.items.CountDocuments(ctx, itemFilter(itemID), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to look up item: %w", err)
	}
	return n > 0, nil
}

func (m *mongoRepository) Create(ctx context.Context, r *Review) error {
	if _, err := m.reviews.InsertOne(ctx, r); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyReviewed
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (m *mongoRepository) AddRating(ctx context.Context, itemID string, rating int) (Aggregate, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var agg Aggregate
	err := m.ratings.FindOneAndUpdate(ctx,
		bson.M{"_id": itemID},
		bson.M{"$inc": bson.M{"sum": rating, "count": 1}},
		opts,
	).Decode(&agg)
	if err != nil {
		return Aggregate{}, fmt.Errorf("update item rating: %w", err)
	}

	// keep the catalog's denormalized rating in step
	if _, err := m.items.UpdateOne(ctx, itemFilter(itemID), bson.M{"$set": bson.M{"rating": agg.Average()}}); err != nil {
		return agg, fmt.Errorf("update item: %w", err)
	}
	return agg, nil
}

func (m *mongoRepository) ListByItem(ctx context.Context, itemID string) ([]*Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := m.reviews.Find(ctx, bson.M{"itemId": itemID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	defer cur.Close(ctx)

	list := []*Review{}
	if err := cur.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	return list, nil
}

func (m *mongoRepository) GetAggregate(ctx context.Context, itemID string) (Aggregate, error) {
	var agg Aggregate
	err := m.ratings.FindOne(ctx, bson.M{"_id": itemID}).Decode(&agg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Aggregate{ItemID: itemID}, nil
	}
	if err != nil {
		return Aggregate{}, fmt.Errorf("find item rating: %w", err)
	}
	return agg, nil
}

func (m *mongoRepository) ListAggregates(ctx context.Context) ([]Aggregate, error) {
	cur, err := m.ratings.Find(ctx, bson.M{"count": bson.M{"$gt": 0}})
	if err != nil {
		return nil, fmt.Errorf("find item ratings: %w", err)
	}
	defer cur.Close(ctx)

	list := []Aggregate{}
	if err := cur.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode item ratings: %w", err)
	}
	return list, nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	_, err := m.reviews.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "itemId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "itemId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
