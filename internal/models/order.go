package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Limit order statuses.
const (
	OrderActive = "ACTIVE"
	OrderFilled = "FILLED"
)

// LimitOrder is a standing request to buy within a sector at or below
// MaxPrice. SectorKey holds the case-folded sector used for matching.
type LimitOrder struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    bson.ObjectID `bson:"user_id" json:"user_id"`
	Sector    string        `bson:"sector" json:"sector"`
	SectorKey string        `bson:"sector_key" json:"-"`
	MaxPrice  float64       `bson:"max_price" json:"max_price"`
	Status    string        `bson:"status" json:"status"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
	FilledAt  time.Time     `bson:"filled_at,omitempty" json:"filled_at,omitzero"`
}
