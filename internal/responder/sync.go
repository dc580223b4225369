package responder

import (
	"context"
	"encoding/json"

	"github.com/SmartLinkDrive/vehicle-profile/internal/cache"
	"github.com/SmartLinkDrive/vehicle-profile/internal/rpc"
)

// serveSync 同步命令直接读缓存投影，不碰数据库。
// worker 负责投影始终是最新的，这里只做读取。
func (h *Handler) serveSync(ctx context.Context, cmd string, args []interface{}) rpc.Envelope {
	switch cmd {
	case "getVehicle":
		return h.getVehicle(ctx, args)
	case "getVehicleList":
		return h.getVehicleList(ctx, args)
	case "getVehicleModel":
		return h.getVehicleModel(ctx, args)
	default:
		return rpc.Fail(rpc.CodeInternal, "sync command has no handler: "+cmd)
	}
}

func (h *Handler) getVehicle(ctx context.Context, args []interface{}) rpc.Envelope {
	id, _ := args[0].(string)
	raw, ok, err := h.cache.HGetRaw(ctx, cache.KeyVehicleEntities, id)
	if err != nil {
		return rpc.Fail(rpc.CodeInternal, err.Error())
	}
	if !ok {
		return rpc.Fail(rpc.CodeNotFound, "vehicle not found: "+id)
	}
	return rpc.OK(json.RawMessage(raw))
}

// getVehicleList 分页读 vehicle id 索引再水合实体。
// uid 缺省读全量列表，否则读该车主的列表。
func (h *Handler) getVehicleList(ctx context.Context, args []interface{}) rpc.Envelope {
	key := cache.KeyVehicleList
	if uid, ok := args[0].(string); ok && uid != "" {
		key = cache.KeyOwnerVehicleList(uid)
	}
	offset := argInt(args, 1)
	limit := argInt(args, 2)
	if offset < 0 || limit <= 0 {
		return rpc.Fail(rpc.CodeBadRequest, "offset/limit out of range")
	}

	total, err := h.cache.LLen(ctx, key)
	if err != nil {
		return rpc.Fail(rpc.CodeInternal, err.Error())
	}

	ids, err := h.cache.LRange(ctx, key, int64(offset), int64(offset+limit-1))
	if err != nil {
		return rpc.Fail(rpc.CodeInternal, err.Error())
	}

	items := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		raw, ok, err := h.cache.HGetRaw(ctx, cache.KeyVehicleEntities, id)
		if err != nil {
			return rpc.Fail(rpc.CodeInternal, err.Error())
		}
		// 索引比投影新是瞬时状态，跳过即可
		if !ok {
			continue
		}
		items = append(items, json.RawMessage(raw))
	}

	return rpc.OK(map[string]interface{}{
		"total": total,
		"items": items,
	})
}

func (h *Handler) getVehicleModel(ctx context.Context, args []interface{}) rpc.Envelope {
	code, _ := args[0].(string)
	raw, ok, err := h.cache.HGetRaw(ctx, cache.KeyVehicleModelEntities, code)
	if err != nil {
		return rpc.Fail(rpc.CodeInternal, err.Error())
	}
	if !ok {
		return rpc.Fail(rpc.CodeNotFound, "vehicle model not found: "+code)
	}
	return rpc.OK(json.RawMessage(raw))
}

// argInt 位置参数转 int。JSON 解码后的数值是 float64。
func argInt(args []interface{}, i int) int {
	if i >= len(args) {
		return -1
	}
	switch n := args[i].(type) {
	case float64:
		return int(n)
	case json.Number:
		v, err := n.Int64()
		if err != nil {
			return -1
		}
		return int(v)
	default:
		return -1
	}
}
