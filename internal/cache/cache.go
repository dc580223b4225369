package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SmartLinkDrive/vehicle-profile/internal/common/config"
)

// Cache 是对共享 Redis 的薄封装：
// - 永久 hash（实体投影）
// - list（分页索引 / 工作队列）
// - 带 TTL 的 string（回执 token / 信箱）
// responder 与 worker 之间的全部协作都走这里。
type Cache struct {
	rdb *redis.Client
}

// NewRedis 按配置创建 Redis 客户端。
func NewRedis(cfg config.RedisConfig) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	return &Cache{rdb: rdb}
}

// NewWithClient 直接包装一个已有客户端（测试用 miniredis）。
func NewWithClient(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Ping 连通性检查。
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭底层连接池。
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// HSetJSON 将 v 序列化后写入 hash field。
func (c *Cache) HSetJSON(ctx context.Context, key, field string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", key, field, err)
	}
	return c.rdb.HSet(ctx, key, field, string(data)).Err()
}

// HSetRaw 将裸字符串写入 hash field（不做序列化）。
func (c *Cache) HSetRaw(ctx context.Context, key, field, value string) error {
	return c.rdb.HSet(ctx, key, field, value).Err()
}

// HGetRaw 读取 hash field 原始字符串；第二个返回值表示是否存在。
func (c *Cache) HGetRaw(ctx context.Context, key, field string) (string, bool, error) {
	val, err := c.rdb.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// HGetJSON 读取 hash field 并反序列化到 out。
func (c *Cache) HGetJSON(ctx context.Context, key, field string, out interface{}) (bool, error) {
	raw, ok, err := c.HGetRaw(ctx, key, field)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return true, fmt.Errorf("unmarshal %s/%s: %w", key, field, err)
	}
	return true, nil
}

// HDel 删除 hash field。
func (c *Cache) HDel(ctx context.Context, key string, fields ...string) error {
	return c.rdb.HDel(ctx, key, fields...).Err()
}

// Del 删除若干 key。
func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// SetTTL 写入带过期时间的 string。
func (c *Cache) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Get 读取 string；第二个返回值表示是否存在。
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// RPush 追加到 list 尾部。
func (c *Cache) RPush(ctx context.Context, key string, values ...interface{}) error {
	return c.rdb.RPush(ctx, key, values...).Err()
}

// LPush 插到 list 头部（队列生产端）。
func (c *Cache) LPush(ctx context.Context, key string, values ...interface{}) error {
	return c.rdb.LPush(ctx, key, values...).Err()
}

// LPushEx 插入单元素并设置过期时间（信箱回执）。
func (c *Cache) LPushEx(ctx context.Context, key, value string, ttl time.Duration) error {
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, key, value)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// BRPop 阻塞式从 list 尾部弹出一个元素；超时返回 ok=false。
func (c *Cache) BRPop(ctx context.Context, timeout time.Duration, key string) (string, bool, error) {
	res, err := c.rdb.BRPop(ctx, timeout, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	// BRPOP 返回 [key, value]
	if len(res) != 2 {
		return "", false, fmt.Errorf("unexpected brpop reply: %v", res)
	}
	return res[1], true, nil
}

// LRange 读取 list 区间（含两端）。
func (c *Cache) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.rdb.LRange(ctx, key, start, stop).Result()
}

// LLen 返回 list 长度。
func (c *Cache) LLen(ctx context.Context, key string) (int64, error) {
	return c.rdb.LLen(ctx, key).Result()
}

// LRem 从 list 中移除所有等于 value 的元素。
func (c *Cache) LRem(ctx context.Context, key, value string) error {
	return c.rdb.LRem(ctx, key, 0, value).Err()
}

// ScanKeys 按 pattern 扫描全部 key。
func (c *Cache) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
