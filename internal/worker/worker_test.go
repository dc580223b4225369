package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmartLinkDrive/vehicle-profile/internal/cache"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/config"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/logger"
	"github.com/SmartLinkDrive/vehicle-profile/internal/mailbox"
	"github.com/SmartLinkDrive/vehicle-profile/internal/provider"
	"github.com/SmartLinkDrive/vehicle-profile/internal/queue"
	"github.com/SmartLinkDrive/vehicle-profile/internal/rpc"
)

// newTestWorker 不带数据库，只能跑不落库的命令（getCityCode / 未知命令等）。
func newTestWorker(t *testing.T, cityURL string) (*Worker, *mailbox.Mailbox, *queue.Queue) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewWithClient(rdb)

	q := queue.New(c, "vehicle-profile-queue")
	mb := mailbox.New(c, 30*time.Second, 2*time.Second)
	log, err := logger.NewLogger("error", "text", "stdout", "")
	require.NoError(t, err)

	pc := provider.NewClient(config.ProviderConfig{CityURL: cityURL, TimeoutSec: 1}, log)
	pt := provider.NewProvinceTable(config.DefaultProvinces())

	return New(q, mb, nil, pc, pt, c, log), mb, q
}

func TestDispatchCityCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":0,"data":{"cityCode":"110100"}}`))
	}))
	defer srv.Close()

	w, mb, _ := newTestWorker(t, srv.URL)
	ctx := context.Background()

	token := mailbox.NewToken()
	w.dispatch(ctx, queue.Message{
		Cmd:  "getCityCode",
		Args: []interface{}{"北京市", "北京市", token},
	})

	env := mb.Wait(ctx, token)
	require.Equal(t, rpc.CodeOK, env.Code)
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "110000", data["provinceCode"])
	assert.Equal(t, "110100", data["cityCode"])
}

func TestDispatchUnknownProvince(t *testing.T) {
	w, mb, _ := newTestWorker(t, "")
	ctx := context.Background()

	token := mailbox.NewToken()
	w.dispatch(ctx, queue.Message{
		Cmd:  "getCityCode",
		Args: []interface{}{"不存在的省", "某市", token},
	})

	env := mb.Wait(ctx, token)
	assert.Equal(t, rpc.CodeNotFound, env.Code)
}

func TestDispatchUnknownCommandRepliesBadRequest(t *testing.T) {
	w, mb, _ := newTestWorker(t, "")
	ctx := context.Background()

	token := mailbox.NewToken()
	w.dispatch(ctx, queue.Message{Cmd: "noSuchCommand", Args: []interface{}{token}})

	env := mb.Wait(ctx, token)
	assert.Equal(t, rpc.CodeBadRequest, env.Code)
}

func TestDispatchDropsMessageWithoutToken(t *testing.T) {
	w, mb, _ := newTestWorker(t, "")
	ctx := context.Background()

	// 没有 token 的消息无处可回，只能丢弃
	w.dispatch(ctx, queue.Message{Cmd: "getCityCode", Args: []interface{}{}})

	env := mb.Wait(ctx, mailbox.NewToken())
	assert.Equal(t, rpc.CodeTimeout, env.Code)
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	w, mb, _ := newTestWorker(t, "")
	ctx := context.Background()

	// vehicles 为 nil，createVehicle 会 panic；回执必须是 500 而不是进程崩溃
	token := mailbox.NewToken()
	w.dispatch(ctx, queue.Message{
		Cmd:  "createVehicle",
		Args: []interface{}{"user-1", map[string]interface{}{"license": "京A12345"}, token},
	})

	env := mb.Wait(ctx, token)
	assert.Equal(t, rpc.CodeInternal, env.Code)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	w, _, _ := newTestWorker(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
