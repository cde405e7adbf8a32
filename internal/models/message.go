package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Message is a chat message between two users, optionally tied to a
// product the conversation is about. Messages are immutable once stored.
type Message struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"id"`
	SenderID   bson.ObjectID `bson:"sender_id" json:"sender_id"`
	ReceiverID bson.ObjectID `bson:"receiver_id" json:"receiver_id"`
	Content    string        `bson:"content" json:"content"`
	ProductID  bson.ObjectID `bson:"product_id,omitempty" json:"product_id,omitzero"`
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
}
