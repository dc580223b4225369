package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmartLinkDrive/vehicle-profile/internal/cache"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := New(cache.NewWithClient(rdb), "test-queue")
	q.block = 200 * time.Millisecond
	return q
}

func TestPublishConsumeFIFO(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, Message{Cmd: "createVehicle", Args: []interface{}{"u-1", "tok-1"}}))
	require.NoError(t, q.Publish(ctx, Message{Cmd: "deleteVehicle", Args: []interface{}{"v-9", "tok-2"}}))

	first, ok, err := q.Consume(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "createVehicle", first.Cmd)
	assert.Equal(t, "tok-1", first.Args[1])

	second, ok, err := q.Consume(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "deleteVehicle", second.Cmd)
}

func TestConsumeIdleReturnsNotOK(t *testing.T) {
	q := newTestQueue(t)
	_, ok, err := q.Consume(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPublishRejectsEmptyCmd(t *testing.T) {
	q := newTestQueue(t)
	if err := q.Publish(context.Background(), Message{}); err == nil {
		t.Fatalf("expected error for empty cmd")
	}
}
