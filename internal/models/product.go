package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Product listing statuses.
const (
	ProductAvailable = "Available"
	ProductSold      = "Sold"
)

// Product is a listing put up for sale by a user. CategoryKey holds the
// case-folded category used for matching; Category keeps the display form.
type Product struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string        `bson:"title" json:"title"`
	Description string        `bson:"description" json:"description"`
	Price       float64       `bson:"price" json:"price"`
	Category    string        `bson:"category" json:"category"`
	CategoryKey string        `bson:"category_key" json:"-"`
	Images      []string      `bson:"images" json:"images"`
	IsAnonymous bool          `bson:"is_anonymous" json:"is_anonymous"`
	UserID      bson.ObjectID `bson:"user_id" json:"user_id"`
	Status      string        `bson:"status" json:"status"`
	CreatedAt   time.Time     `bson:"created_at" json:"created_at"`
}

// Owner is the listing owner info attached to product responses. Withheld
// for anonymous listings unless the requester owns the product.
type Owner struct {
	ID        bson.ObjectID `json:"id"`
	Name      string        `json:"name"`
	Avatar    string        `json:"avatar"`
	StudentID string        `json:"student_id,omitempty"`
}
