package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/example/unimart/internal/models"
)

func TestMessagesStore_ConversationChronological(t *testing.T) {
	client := setupClient(t)
	store := NewMessagesStore(client.Messages())
	ctx := context.Background()

	alice := bson.NewObjectID()
	bob := bson.NewObjectID()
	carol := bson.NewObjectID()

	base := time.Now().Add(-time.Hour)
	seed := []struct {
		from, to bson.ObjectID
		content  string
		offset   time.Duration
	}{
		{alice, bob, "hi", 0},
		{bob, alice, "hello", time.Minute},
		{alice, bob, "is the bike still available?", 2 * time.Minute},
		{alice, carol, "unrelated", 3 * time.Minute},
	}
	for _, m := range seed {
		require.NoError(t, store.Create(ctx, &models.Message{
			SenderID:   m.from,
			ReceiverID: m.to,
			Content:    m.content,
			CreatedAt:  base.Add(m.offset),
		}))
	}

	msgs, err := store.Conversation(ctx, alice, bob, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 3, "messages with third parties stay out")
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "hello", msgs[1].Content)
	assert.Equal(t, "is the bike still available?", msgs[2].Content)

	// Same conversation regardless of which side asks.
	mirror, err := store.Conversation(ctx, bob, alice, 50)
	require.NoError(t, err)
	require.Len(t, mirror, 3)
	assert.Equal(t, msgs[0].ID, mirror[0].ID)
}

func TestMessagesStore_ConversationLimitKeepsNewest(t *testing.T) {
	client := setupClient(t)
	store := NewMessagesStore(client.Messages())
	ctx := context.Background()

	alice := bson.NewObjectID()
	bob := bson.NewObjectID()

	base := time.Now().Add(-time.Hour)
	contents := []string{"one", "two", "three", "four", "five"}
	for i, c := range contents {
		require.NoError(t, store.Create(ctx, &models.Message{
			SenderID:   alice,
			ReceiverID: bob,
			Content:    c,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	msgs, err := store.Conversation(ctx, alice, bob, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "four", msgs[0].Content)
	assert.Equal(t, "five", msgs[1].Content)
}
