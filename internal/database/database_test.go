package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// The driver refuses multi-key maps as index key specs, so every model
// must declare its keys as an ordered bson.D or index creation fails
// before reaching the server.
func TestIndexModels_KeysAreOrdered(t *testing.T) {
	for coll, models := range indexModels() {
		require.NotEmpty(t, models, coll)
		for i, model := range models {
			keys, ok := model.Keys.(bson.D)
			assert.True(t, ok, "%s index %d must use bson.D keys, got %T", coll, i, model.Keys)
			assert.NotEmpty(t, keys, "%s index %d has no keys", coll, i)
		}
	}
}

func TestIndexModels_CoverMatchingQueries(t *testing.T) {
	models := indexModels()

	firstKeys := func(coll string) []string {
		var names []string
		for _, m := range models[coll] {
			keys := m.Keys.(bson.D)
			names = append(names, keys[0].Key)
		}
		return names
	}

	assert.Contains(t, firstKeys("products"), "category_key")
	assert.Contains(t, firstKeys("limit_orders"), "sector_key")
	assert.Contains(t, firstKeys("users"), "email")
	assert.Contains(t, firstKeys("messages"), "sender_id")
}
