package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SmartLinkDrive/vehicle-profile/internal/cache"
)

// Message 单向工作队列消息 {cmd, args}。
// args 的最后一个元素约定为信箱 token。
type Message struct {
	Cmd  string        `json:"cmd"`
	Args []interface{} `json:"args"`
}

// Queue Redis list 实现的单向工作队列：
// responder LPUSH 生产，worker BRPOP 消费，先进先出。
type Queue struct {
	cache *cache.Cache
	key   string
	block time.Duration // 消费端单次阻塞时长
}

// New 创建队列。key 为空时用保留的默认队列 key；
// 自定义 key 不要落在 vehicle-* 命名空间里，全量 refresh 会清到它。
func New(c *cache.Cache, key string) *Queue {
	if key == "" {
		key = cache.KeyWorkQueue
	}
	return &Queue{cache: c, key: key, block: 5 * time.Second}
}

// Publish 投递一条工作消息。
func (q *Queue) Publish(ctx context.Context, msg Message) error {
	if msg.Cmd == "" {
		return fmt.Errorf("queue message cmd is empty")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode queue message: %w", err)
	}
	return q.cache.LPush(ctx, q.key, string(data))
}

// Consume 阻塞拉取一条消息；空闲超过 block 返回 ok=false，由调用方继续循环。
func (q *Queue) Consume(ctx context.Context) (Message, bool, error) {
	raw, ok, err := q.cache.BRPop(ctx, q.block, q.key)
	if err != nil || !ok {
		return Message{}, false, err
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return Message{}, false, fmt.Errorf("decode queue message: %w", err)
	}
	return msg, true, nil
}

// Len 当前积压长度（监控用）。
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.cache.LLen(ctx, q.key)
}
