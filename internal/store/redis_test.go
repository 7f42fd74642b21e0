package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisKV(t *testing.T) {
	mr := miniredis.RunT(t)
	kv := NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer kv.Close()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, ok, err := kv.Get(ctx, "tasks")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set then get uses prefixed key", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "tasks", []byte(`[]`)))

		data, ok, err := kv.Get(ctx, "tasks")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[]`, string(data))

		stored, err := mr.Get("taskboard:collection:tasks")
		require.NoError(t, err)
		assert.Equal(t, `[]`, stored)
	})

	t.Run("server error", func(t *testing.T) {
		mr.SetError("ERR server unavailable")
		defer mr.SetError("")

		_, _, err := kv.Get(ctx, "tasks")
		assert.Error(t, err)
	})
}
