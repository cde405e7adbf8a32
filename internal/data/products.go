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

// ProductsStore performs product collection operations.
type ProductsStore struct {
	coll *mongo.Collection
}

// NewProductsStore returns a ProductsStore using the provided collection.
func NewProductsStore(coll *mongo.Collection) *ProductsStore {
	return &ProductsStore{coll: coll}
}

// Create inserts a new listing and populates its ID.
func (s *ProductsStore) Create(ctx context.Context, product *models.Product) error {
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now()
	}
	if product.Status == "" {
		product.Status = models.ProductAvailable
	}
	result, err := s.coll.InsertOne(ctx, product)
	if err != nil {
		return err
	}
	product.ID = result.InsertedID.(bson.ObjectID)
	return nil
}

// FindByID returns the listing with the given ID.
func (s *ProductsStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	var product models.Product
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// BrowseFilter narrows the marketplace listing query. SectorKey must be
// pre-folded; MaxPrice <= 0 means no price ceiling; a zero Exclude keeps
// every owner's listings.
type BrowseFilter struct {
	SectorKey string
	MaxPrice  float64
	Exclude   bson.ObjectID
}

// FindAvailable returns Available listings matching the filter, newest
// first, with the total count for pagination.
func (s *ProductsStore) FindAvailable(ctx context.Context, filter BrowseFilter, limit, offset int) ([]*models.Product, int64, error) {
	query := bson.M{"status": models.ProductAvailable}
	if filter.SectorKey != "" {
		query["category_key"] = filter.SectorKey
	}
	if filter.MaxPrice > 0 {
		query["price"] = bson.M{"$lte": filter.MaxPrice}
	}
	if !filter.Exclude.IsZero() {
		query["user_id"] = bson.M{"$ne": filter.Exclude}
	}

	total, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var products []*models.Product
	if err = cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// FindMatches returns Available listings in the sector priced at or
// below maxPrice, excluding the given owner. This is the read side of
// the matching engine and never mutates anything.
func (s *ProductsStore) FindMatches(ctx context.Context, sectorKey string, maxPrice float64, exclude bson.ObjectID) ([]*models.Product, error) {
	query := bson.M{
		"status":       models.ProductAvailable,
		"category_key": sectorKey,
		"price":        bson.M{"$lte": maxPrice},
		"user_id":      bson.M{"$ne": exclude},
	}

	cursor, err := s.coll.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []*models.Product
	if err = cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// FindByUser returns every listing owned by the user, newest first.
func (s *ProductsStore) FindByUser(ctx context.Context, userID bson.ObjectID) ([]*models.Product, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})

	cursor, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []*models.Product
	if err = cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Delete removes the listing.
func (s *ProductsStore) Delete(ctx context.Context, id bson.ObjectID) error {
	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
