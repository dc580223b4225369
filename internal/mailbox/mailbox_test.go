package mailbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmartLinkDrive/vehicle-profile/internal/cache"
	"github.com/SmartLinkDrive/vehicle-profile/internal/rpc"
)

func newTestCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return cache.NewWithClient(rdb), mr
}

func TestReplyThenWaitRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	mb := New(c, 30*time.Second, 2*time.Second)
	ctx := context.Background()

	token := NewToken()
	want := rpc.OK(map[string]interface{}{"id": "v-1"})
	require.NoError(t, mb.Reply(ctx, token, want))

	got := mb.Wait(ctx, token)
	assert.Equal(t, rpc.CodeOK, got.Code)
	data, ok := got.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "v-1", data["id"])
}

func TestWaitConsumesTokenAtMostOnce(t *testing.T) {
	c, mr := newTestCache(t)
	mb := New(c, 30*time.Second, 100*time.Millisecond)
	ctx := context.Background()

	token := NewToken()
	require.NoError(t, mb.Reply(ctx, token, rpc.OK(nil)))

	first := mb.Wait(ctx, token)
	assert.Equal(t, rpc.CodeOK, first.Code)

	// 弹出即消费：key 已空，第二次等待只能超时
	assert.False(t, mr.Exists(token))
	second := mb.Wait(ctx, token)
	assert.Equal(t, rpc.CodeTimeout, second.Code)
}

func TestWaitTimeoutSynthesizesEnvelope(t *testing.T) {
	c, _ := newTestCache(t)
	mb := New(c, 30*time.Second, 100*time.Millisecond)

	env := mb.Wait(context.Background(), NewToken())
	assert.Equal(t, rpc.CodeTimeout, env.Code)
	assert.NotEmpty(t, env.Msg)
}

func TestWaitResolvesWhileBlocked(t *testing.T) {
	c, _ := newTestCache(t)
	mb := New(c, 30*time.Second, 2*time.Second)
	token := NewToken()

	done := make(chan rpc.Envelope, 1)
	go func() {
		done <- mb.Wait(context.Background(), token)
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, mb.Reply(context.Background(), token, rpc.Fail(rpc.CodeNotFound, "no such vehicle")))

	select {
	case env := <-done:
		assert.Equal(t, rpc.CodeNotFound, env.Code)
		assert.Equal(t, "no such vehicle", env.Msg)
	case <-time.After(3 * time.Second):
		t.Fatal("waiter never resolved")
	}
}

func TestReplySetsExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	mb := New(c, 30*time.Second, time.Second)
	token := NewToken()

	require.NoError(t, mb.Reply(context.Background(), token, rpc.OK(nil)))
	require.True(t, mr.Exists(token))

	// 未被读取的回执在 TTL 之后自然过期
	mr.FastForward(31 * time.Second)
	assert.False(t, mr.Exists(token))
}

func TestNewTokenShape(t *testing.T) {
	a, b := NewToken(), NewToken()
	if a == b {
		t.Fatalf("tokens must be unique")
	}
	if !strings.Contains(a, "-") {
		t.Fatalf("token missing time prefix: %s", a)
	}
}
