package data

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/example/unimart/internal/models"
)

// OrdersStore performs limit-order collection operations.
type OrdersStore struct {
	coll *mongo.Collection
}

// NewOrdersStore returns an OrdersStore using the provided collection.
func NewOrdersStore(coll *mongo.Collection) *OrdersStore {
	return &OrdersStore{coll: coll}
}

// Create inserts a new ACTIVE limit order and populates its ID.
func (s *OrdersStore) Create(ctx context.Context, order *models.LimitOrder) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if order.Status == "" {
		order.Status = models.OrderActive
	}
	result, err := s.coll.InsertOne(ctx, order)
	if err != nil {
		return err
	}
	order.ID = result.InsertedID.(bson.ObjectID)
	return nil
}

// FindByID returns the order with the given ID.
func (s *OrdersStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.LimitOrder, error) {
	var order models.LimitOrder
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByUser returns all of the user's orders, newest first.
func (s *OrdersStore) FindByUser(ctx context.Context, userID bson.ObjectID) ([]*models.LimitOrder, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})

	cursor, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []*models.LimitOrder
	if err = cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// FindActiveMatching returns ACTIVE orders in the sector whose ceiling
// covers the listing price, excluding the listing owner's own orders.
func (s *OrdersStore) FindActiveMatching(ctx context.Context, sectorKey string, price float64, exclude bson.ObjectID) ([]*models.LimitOrder, error) {
	query := bson.M{
		"status":     models.OrderActive,
		"sector_key": sectorKey,
		"max_price":  bson.M{"$gte": price},
		"user_id":    bson.M{"$ne": exclude},
	}

	cursor, err := s.coll.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []*models.LimitOrder
	if err = cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Fill transitions an order from ACTIVE to FILLED. The status predicate
// in the filter makes the write conditional, so when two listing
// creations race over the same order only one observes a modification.
func (s *OrdersStore) Fill(ctx context.Context, id bson.ObjectID, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "status": models.OrderActive}
	update := bson.M{"$set": bson.M{"status": models.OrderFilled, "filled_at": at}}

	result, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount == 1, nil
}

// Delete removes the order.
func (s *OrdersStore) Delete(ctx context.Context, id bson.ObjectID) error {
	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
