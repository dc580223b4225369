package vehicle

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmartLinkDrive/vehicle-profile/internal/cache"
	"github.com/SmartLinkDrive/vehicle-profile/internal/queue"
	"github.com/SmartLinkDrive/vehicle-profile/internal/vehiclemodel"
)

func newTestProjector(t *testing.T) (*Projector, *cache.Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return NewProjector(c), c
}

func TestProjectAndIndexVehicle(t *testing.T) {
	p, c := newTestProjector(t)
	ctx := context.Background()

	agg := Aggregate{ID: "v-1", UID: "u-1", VIN: "1HGCM82633A004352", Drivers: []PersonView{}}
	require.NoError(t, p.ProjectVehicle(ctx, agg))
	require.NoError(t, p.IndexVehicle(ctx, "v-1", "u-1"))
	// 重复投影不能产生重复索引
	require.NoError(t, p.IndexVehicle(ctx, "v-1", "u-1"))

	var got Aggregate
	ok, err := c.HGetJSON(ctx, cache.KeyVehicleEntities, "v-1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, agg, got)

	ids, err := c.LRange(ctx, cache.KeyVehicleList, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"v-1"}, ids)

	ownerIDs, err := c.LRange(ctx, cache.KeyOwnerVehicleList("u-1"), 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"v-1"}, ownerIDs)
}

func TestRemoveVehicle(t *testing.T) {
	p, c := newTestProjector(t)
	ctx := context.Background()

	require.NoError(t, p.ProjectVehicle(ctx, Aggregate{ID: "v-1", UID: "u-1"}))
	require.NoError(t, p.IndexVehicle(ctx, "v-1", "u-1"))
	require.NoError(t, p.RemoveVehicle(ctx, "v-1", "u-1"))

	_, ok, err := c.HGetRaw(ctx, cache.KeyVehicleEntities, "v-1")
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := c.LRange(ctx, cache.KeyVehicleList, 0, -1)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestClearWipesProjectionButKeepsLookupCaches(t *testing.T) {
	p, c := newTestProjector(t)
	ctx := context.Background()

	require.NoError(t, p.ProjectVehicle(ctx, Aggregate{ID: "v-1", UID: "u-1"}))
	require.NoError(t, p.IndexVehicle(ctx, "v-1", "u-1"))
	require.NoError(t, p.ProjectModel(ctx, vehiclemodel.Model{Code: "M-1", Source: vehiclemodel.SourceManual}))
	// 第三方查询缓存不属于投影，refresh 不应清掉
	require.NoError(t, c.HSetJSON(ctx, cache.KeyVehicleVinCodes, "1HGCM82633A004352", []string{"M-1"}))

	require.NoError(t, p.Clear(ctx))

	_, ok, err := c.HGetRaw(ctx, cache.KeyVehicleEntities, "v-1")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = c.HGetRaw(ctx, cache.KeyVehicleModelEntities, "M-1")
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := c.LRange(ctx, cache.KeyOwnerVehicleList("u-1"), 0, -1)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, ok, err = c.HGetRaw(ctx, cache.KeyVehicleVinCodes, "1HGCM82633A004352")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClearKeepsPendingQueueMessages(t *testing.T) {
	p, c := newTestProjector(t)
	ctx := context.Background()

	// 工作队列和投影共享 vehicle-* 命名空间；
	// 全量 refresh 不能吃掉其他在途请求已入队的消息
	q := queue.New(c, "")
	require.NoError(t, q.Publish(ctx, queue.Message{
		Cmd:  "createVehicle",
		Args: []interface{}{"u-1", map[string]interface{}{"license": "京A12345"}, "tok"},
	}))
	require.NoError(t, p.IndexVehicle(ctx, "v-1", "u-1"))

	require.NoError(t, p.Clear(ctx))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	msg, ok, err := q.Consume(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "createVehicle", msg.Cmd)

	// 投影本身照常被清掉
	ids, err := c.LRange(ctx, cache.KeyOwnerVehicleList("u-1"), 0, -1)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
