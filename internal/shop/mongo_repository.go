package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Chetan2520/india-food-court/internal/geo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// point is a GeoJSON Point; coordinates are [lng, lat].
type point struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type shopDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Location  point              `bson:"location"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{collection: db.Collection("shops")}
}

func (m *mongoRepository) Get(ctx context.Context) (*Shop, error) {
	var doc shopDocument
	err := m.collection.FindOne(ctx, bson.M{}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrShopNotFound
		}
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	if len(doc.Location.Coordinates) != 2 {
		return nil, fmt.Errorf("shop %s has malformed location", doc.ID.Hex())
	}

	return &Shop{
		Name: doc.Name,
		Location: geo.Coordinate{
			Latitude:  doc.Location.Coordinates[1],
			Longitude: doc.Location.Coordinates[0],
		},
	}, nil
}

func (m *mongoRepository) SeedIfEmpty(ctx context.Context, s Shop) (bool, error) {
	count, err := m.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return false, fmt.Errorf("failed to count shops: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	now := time.Now()
	doc := shopDocument{
		Name: s.Name,
		Location: point{
			Type:        "Point",
			Coordinates: []float64{s.Location.Longitude, s.Location.Latitude},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		return false, fmt.Errorf("failed to seed shop: %w", err)
	}
	return true, nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "location", Value: "2dsphere"}},
		Options: options.Index().SetName("location_2dsphere"),
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// EnsureIndexes creates the repository's indexes when it supports them.
func EnsureIndexes(ctx context.Context, repo Repository) error {
	if r, ok := repo.(interface{ CreateIndexes(context.Context) error }); ok {
		return r.CreateIndexes(ctx)
	}
	return nil
}
