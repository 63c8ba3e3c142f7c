package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Eidanhurtado/Bibliowave/internal/domain"
)

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{
		collection: db.Collection("carts"),
	}
}

// cartDoc keeps items raw so legacy records can be inspected for
// missing or deprecated fields before decoding.
type cartDoc struct {
	ID           string     `bson:"_id,omitempty"`
	OwnerID      string     `bson:"owner_id"`
	Items        []bson.Raw `bson:"items"`
	DiscountRate float64    `bson:"discount_rate"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func (m *mongoRepository) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	var doc cartDoc

	filter := bson.M{"owner_id": ownerID}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	items, migrated, err := normalizeItems(doc.Items)
	if err != nil {
		return nil, err
	}

	cart := &domain.Cart{
		ID:           doc.ID,
		OwnerID:      doc.OwnerID,
		Items:        items,
		DiscountRate: doc.DiscountRate,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}

	if migrated {
		if errUpsert := m.UpsertCart(ctx, cart); errUpsert != nil {
			// Serve the normalized cart anyway; the next write persists it.
			log.Printf("failed to re-persist migrated cart: %v", errUpsert)
		}
	}

	return cart, nil
}

func (m *mongoRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()

	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	filter := bson.M{"owner_id": cart.OwnerID}
	update := bson.M{"$set": bson.M{
		"owner_id":      cart.OwnerID,
		"items":         cart.Items,
		"discount_rate": cart.DiscountRate,
		"created_at":    cart.CreatedAt,
		"updated_at":    cart.UpdatedAt,
	}}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	return nil
}

func (m *mongoRepository) DeleteCart(ctx context.Context, ownerID string) error {
	filter := bson.M{"owner_id": ownerID}

	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
