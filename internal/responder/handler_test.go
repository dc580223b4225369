package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmartLinkDrive/vehicle-profile/internal/cache"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/logger"
	"github.com/SmartLinkDrive/vehicle-profile/internal/mailbox"
	"github.com/SmartLinkDrive/vehicle-profile/internal/queue"
	"github.com/SmartLinkDrive/vehicle-profile/internal/rpc"
)

const testQueueKey = "vehicle-profile-queue"

func newTestHandler(t *testing.T) (*Handler, *cache.Cache, *queue.Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewWithClient(rdb)
	q := queue.New(c, testQueueKey)
	mb := mailbox.New(c, 30*time.Second, 2*time.Second)
	log, err := logger.NewLogger("error", "text", "stdout", "")
	require.NoError(t, err)
	return New(q, mb, c, false, log), c, q, mr
}

func doRPC(t *testing.T, h *Handler, body string, headers map[string]string) (*httptest.ResponseRecorder, rpc.Envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewBufferString(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	var env rpc.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestUnknownCommand(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	rec, env := doRPC(t, h, `{"cmd":"noSuchCommand","args":[]}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, rpc.CodeNotFound, env.Code)
}

func TestMalformedBody(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	rec, env := doRPC(t, h, `{"cmd":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, rpc.CodeBadRequest, env.Code)
}

func TestDomainForbidden(t *testing.T) {
	h, _, q, _ := newTestHandler(t)

	// deleteVehicle 只对 admin 开放，mobile 调用被拒且不入队
	body := `{"cmd":"deleteVehicle","args":["d94f3f77-0f9b-4a8e-9a10-5a1d9d3cc001"]}`
	rec, env := doRPC(t, h, body, map[string]string{"X-Caller-Domain": "mobile"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, rpc.CodeForbidden, env.Code)

	n, err := q.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestValidationRejectsBeforeEnqueue(t *testing.T) {
	h, _, q, _ := newTestHandler(t)

	// uid 与调用方不一致 + vehicle 为空对象，两条违规都要报
	body := `{"cmd":"createVehicle","args":["someone-else",{}]}`
	rec, env := doRPC(t, h, body, map[string]string{"X-Caller-UID": "user-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, rpc.CodeBadRequest, env.Code)

	violations, ok := env.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, violations, 2)

	n, err := q.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "rejected call must not reach the queue")
}

func TestGetVehicleSync(t *testing.T) {
	h, c, _, _ := newTestHandler(t)
	ctx := context.Background()

	id := "d94f3f77-0f9b-4a8e-9a10-5a1d9d3cc001"
	require.NoError(t, c.HSetRaw(ctx, cache.KeyVehicleEntities, id, `{"id":"`+id+`","license":"京A12345","drivers":[]}`))

	rec, env := doRPC(t, h, `{"cmd":"getVehicle","args":["`+id+`"]}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, rpc.CodeOK, env.Code)

	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "京A12345", data["license"])

	// 未投影的 id 是 404
	rec, env = doRPC(t, h, `{"cmd":"getVehicle","args":["00000000-0000-4000-8000-000000000000"]}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, rpc.CodeNotFound, env.Code)
}

func TestGetVehicleListSync(t *testing.T) {
	h, c, _, _ := newTestHandler(t)
	ctx := context.Background()

	ids := []string{
		"11111111-1111-4111-8111-111111111111",
		"22222222-2222-4222-8222-222222222222",
		"33333333-3333-4333-8333-333333333333",
	}
	for _, id := range ids {
		require.NoError(t, c.RPush(ctx, cache.KeyVehicleList, id))
		require.NoError(t, c.HSetRaw(ctx, cache.KeyVehicleEntities, id, `{"id":"`+id+`"}`))
	}

	rec, env := doRPC(t, h, `{"cmd":"getVehicleList","args":[null,1,2]}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, rpc.CodeOK, env.Code)

	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), data["total"])
	items, ok := data["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 2)
	first, ok := items[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, ids[1], first["id"])
}

func TestGetVehicleListByOwner(t *testing.T) {
	h, c, _, _ := newTestHandler(t)
	ctx := context.Background()

	id := "11111111-1111-4111-8111-111111111111"
	require.NoError(t, c.RPush(ctx, cache.KeyOwnerVehicleList("user-1"), id))
	require.NoError(t, c.HSetRaw(ctx, cache.KeyVehicleEntities, id, `{"id":"`+id+`"}`))

	_, env := doRPC(t, h, `{"cmd":"getVehicleList","args":["user-1",0,10]}`, nil)
	require.Equal(t, rpc.CodeOK, env.Code)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["total"])

	// 别的车主是空列表，不是错误
	_, env = doRPC(t, h, `{"cmd":"getVehicleList","args":["user-2",0,10]}`, nil)
	require.Equal(t, rpc.CodeOK, env.Code)
	data = env.Data.(map[string]interface{})
	assert.Equal(t, float64(0), data["total"])
}

func TestGetVehicleModelSync(t *testing.T) {
	h, c, _, _ := newTestHandler(t)
	ctx := context.Background()

	require.NoError(t, c.HSetRaw(ctx, cache.KeyVehicleModelEntities, "BMW-X3-2020", `{"code":"BMW-X3-2020","brand":"宝马"}`))

	_, env := doRPC(t, h, `{"cmd":"getVehicleModel","args":["BMW-X3-2020"]}`, nil)
	require.Equal(t, rpc.CodeOK, env.Code)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "宝马", data["brand"])

	rec, env := doRPC(t, h, `{"cmd":"getVehicleModel","args":["NOPE"]}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, rpc.CodeNotFound, env.Code)
}

func TestAsyncRoundTrip(t *testing.T) {
	h, c, q, _ := newTestHandler(t)

	// 扮演 worker：消费一条消息，取尾部 token 写回执
	go func() {
		ctx := context.Background()
		mb := mailbox.New(c, 30*time.Second, 2*time.Second)
		for {
			msg, ok, err := q.Consume(ctx)
			if err != nil {
				return
			}
			if !ok {
				continue
			}
			token, _ := msg.Args[len(msg.Args)-1].(string)
			_ = mb.Reply(ctx, token, rpc.OK(map[string]interface{}{"echo": msg.Cmd}))
			return
		}
	}()

	body := `{"cmd":"getModelsByVin","args":["LSVAM4187C2177716"]}`
	rec, env := doRPC(t, h, body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, rpc.CodeOK, env.Code)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "getModelsByVin", data["echo"])
}

func TestAsyncTimeout(t *testing.T) {
	h, _, q, _ := newTestHandler(t)
	h.mailbox = mailbox.New(h.cache, 30*time.Second, 200*time.Millisecond)

	// 没有 worker 消费，等待超时合成 408
	rec, env := doRPC(t, h, `{"cmd":"getCityCode","args":["北京市","北京市"]}`, nil)
	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	assert.Equal(t, rpc.CodeTimeout, env.Code)

	// 消息确实投出去了，只是无人应答
	n, err := q.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
