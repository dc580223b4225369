package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SmartLinkDrive/vehicle-profile/internal/cache"
	"github.com/SmartLinkDrive/vehicle-profile/internal/rpc"
)

// Mailbox 实现 responder 与 worker 之间的一次性应答信箱。
//
// 协议：
//   - responder 为每次调用生成全新 token，把 token 追加到命令参数末尾投递，
//     然后在 token 上挂起等待（BRPOP，非轮询）。
//   - worker 完成操作后向 token 写入且仅写入一次信封（LPUSH + EXPIRE）。
//     业务失败同样写信封；写入前崩溃则 key 自然过期，responder 超时。
//   - 每个 token 恰好一个等待方；BRPOP 弹出即消费，最多被读一次。
//     不同 token 之间没有任何顺序保证。
type Mailbox struct {
	cache *cache.Cache
	ttl   time.Duration // 信箱 key 过期时间
	wait  time.Duration // responder 等待上限
}

// New 创建信箱。ttl/wait 不合法时回落到 30s/25s。
func New(c *cache.Cache, ttl, wait time.Duration) *Mailbox {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = 25 * time.Second
	}
	return &Mailbox{cache: c, ttl: ttl, wait: wait}
}

// NewToken 生成关联 token：毫秒时间戳前缀 + UUID。
// 前缀让 token 在调试时按时间有序，碰撞抗性来自 UUID。
func NewToken() string {
	return fmt.Sprintf("%x-%s", time.Now().UnixMilli(), uuid.NewString())
}

// Reply worker 侧：向 token 写入一次信封。
func (m *Mailbox) Reply(ctx context.Context, token string, env rpc.Envelope) error {
	if token == "" {
		return fmt.Errorf("mailbox token is empty")
	}
	data, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode mailbox reply: %w", err)
	}
	return m.cache.LPushEx(ctx, token, string(data), m.ttl)
}

// Wait responder 侧：在 token 上挂起直到信封出现或超时。
// 超时合成一个 408 信封；除此之外信封原样透传。
func (m *Mailbox) Wait(ctx context.Context, token string) rpc.Envelope {
	raw, ok, err := m.cache.BRPop(ctx, m.wait, token)
	if err != nil {
		return rpc.Fail(rpc.CodeInternal, fmt.Sprintf("mailbox wait failed: %v", err))
	}
	if !ok {
		return rpc.Fail(rpc.CodeTimeout, "no reply within deadline")
	}
	env, err := rpc.DecodeEnvelope([]byte(raw))
	if err != nil {
		return rpc.Fail(rpc.CodeInternal, fmt.Sprintf("malformed mailbox reply: %v", err))
	}
	return env
}
