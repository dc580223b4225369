package responder

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/SmartLinkDrive/vehicle-profile/internal/cache"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/logger"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/server"
	"github.com/SmartLinkDrive/vehicle-profile/internal/mailbox"
	"github.com/SmartLinkDrive/vehicle-profile/internal/queue"
	"github.com/SmartLinkDrive/vehicle-profile/internal/rpc"
)

// Handler responder 的入站门面：
// - 解析 {cmd, args} 调用
// - 命令目录查找 + 调用域访问控制 + 参数校验（任何副作用之前）
// - 同步命令直接从缓存应答
// - 异步命令追加信箱 token 投递给 worker，阻塞等待回执
type Handler struct {
	catalog map[string]rpc.Command
	queue   *queue.Queue
	mailbox *mailbox.Mailbox
	cache   *cache.Cache
	log     logger.Logger

	// authEnabled=false 时走开发模式：调用方身份取自请求头。
	authEnabled bool
}

// New 创建 Handler。
func New(q *queue.Queue, mb *mailbox.Mailbox, c *cache.Cache, authEnabled bool, log logger.Logger) *Handler {
	return &Handler{
		catalog:     rpc.Catalog(),
		queue:       q,
		mailbox:     mb,
		cache:       c,
		log:         log,
		authEnabled: authEnabled,
	}
}

// Router 注册路由。
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/rpc", h.ServeRPC).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	return r
}

// Healthz 健康检查（Consul HTTP check 探测点，不鉴权）。
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// ServeRPC 处理一次 {cmd, args} 调用。
// HTTP 状态码与信封 code 保持一致，信封本身始终是响应体。
func (h *Handler) ServeRPC(w http.ResponseWriter, r *http.Request) {
	var req rpc.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, rpc.Fail(rpc.CodeBadRequest, "malformed request body"))
		return
	}

	cmd, ok := h.catalog[req.Cmd]
	if !ok {
		writeEnvelope(w, rpc.Fail(rpc.CodeNotFound, "unknown command: "+req.Cmd))
		return
	}

	callerUID, domains := h.caller(r)
	if !cmd.Allowed(domains) {
		writeEnvelope(w, rpc.Fail(rpc.CodeForbidden, "command not allowed for caller domain"))
		return
	}

	// 校验先于任何副作用：有违规就整体拒绝，不入队。
	if violations := rpc.Validate(req.Args, cmd.Args, callerUID); len(violations) > 0 {
		writeEnvelope(w, rpc.Envelope{
			Code: rpc.CodeBadRequest,
			Data: violations,
			Msg:  "argument validation failed",
		})
		return
	}

	ctx := r.Context()
	if !cmd.Async {
		writeEnvelope(w, h.serveSync(ctx, cmd.Name, req.Args))
		return
	}

	// 异步路径：token 入参数尾部，worker 处理完写回信箱。
	token := mailbox.NewToken()
	args := append(append([]interface{}{}, req.Args...), token)
	if err := h.queue.Publish(ctx, queue.Message{Cmd: cmd.Name, Args: args}); err != nil {
		h.log.WithFields(map[string]interface{}{
			"cmd":   cmd.Name,
			"token": token,
		}).Errorf("publish failed: %v", err)
		writeEnvelope(w, rpc.Fail(rpc.CodeInternal, "failed to enqueue command"))
		return
	}
	writeEnvelope(w, h.mailbox.Wait(ctx, token))
}

// caller 解析调用方身份。
// 鉴权开启时取 JWT 中间件写入 ctx 的信息；
// 关闭时（本地开发）取 X-Caller-UID / X-Caller-Domain 头，域缺省为 mobile。
func (h *Handler) caller(r *http.Request) (uid string, domains []string) {
	if h.authEnabled {
		ai, ok := server.AuthFromContext(r.Context())
		if !ok {
			return "", nil
		}
		return ai.UID, ai.Domains
	}

	uid = r.Header.Get("X-Caller-UID")
	raw := r.Header.Get("X-Caller-Domain")
	if raw == "" {
		return uid, []string{rpc.DomainMobile}
	}
	for _, d := range strings.Split(raw, ",") {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	return uid, domains
}

func writeEnvelope(w http.ResponseWriter, env rpc.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.Code)
	_ = json.NewEncoder(w).Encode(env)
}
