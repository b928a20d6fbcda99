package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CartsCollection = "carts"
	// DefaultRetention removes carts untouched for 90 days.
	DefaultRetention = 90 * 24 * time.Hour
)

var ErrCartNotFound = errors.New("cart not found")

// MongoRepository keeps one document per user in the carts collection, with
// the user id as the document id.
type MongoRepository struct {
	carts *mongo.Collection
	now   func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		carts: db.Collection(CartsCollection),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *MongoRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart := &domain.Cart{}
	err := r.carts.FindOne(ctx, bson.M{"_id": userID}).Decode(cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", userID, err)
	}
	if cart.Items == nil {
		cart.Items = []domain.LineItem{}
	}
	return cart, nil
}

// UpsertCart replaces the user's document with cart. A cart that was never
// stamped gets CreatedAt and UpdatedAt set here.
func (r *MongoRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = r.now()
	}
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = cart.CreatedAt
	}
	if cart.Items == nil {
		cart.Items = []domain.LineItem{}
	}

	doc := *cart
	doc.ID = cart.UserID
	_, err := r.carts.ReplaceOne(ctx, bson.M{"_id": cart.UserID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save cart %s: %w", cart.UserID, err)
	}
	return nil
}

// EnsureIndexes expires carts that were not updated within retention.
func (r *MongoRepository) EnsureIndexes(ctx context.Context, retention time.Duration) error {
	if retention <= 0 {
		retention = DefaultRetention
	}
	_, err := r.carts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: 1}},
		Options: options.Index().SetName("cart_retention").SetExpireAfterSeconds(int32(retention.Seconds())),
	})
	if err != nil {
		return fmt.Errorf("create cart retention index: %w", err)
	}
	return nil
}
