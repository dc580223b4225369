package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SmartLinkDrive/vehicle-profile/internal/cache"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/logger"
	"github.com/SmartLinkDrive/vehicle-profile/internal/mailbox"
	"github.com/SmartLinkDrive/vehicle-profile/internal/provider"
	"github.com/SmartLinkDrive/vehicle-profile/internal/queue"
	"github.com/SmartLinkDrive/vehicle-profile/internal/rpc"
	"github.com/SmartLinkDrive/vehicle-profile/internal/vehicle"
)

// Worker 后端处理进程：消费工作队列，执行持久化与第三方查询，
// 把结果信封写回关联信箱。成功与业务失败都写信封；
// 写入前崩溃则 responder 侧超时，这里不做任何重试。
type Worker struct {
	queue     *queue.Queue
	mailbox   *mailbox.Mailbox
	vehicles  *vehicle.Service
	provider  *provider.Client
	provinces *provider.ProvinceTable
	cache     *cache.Cache
	log       logger.Logger
}

// New 创建 Worker。
func New(q *queue.Queue, mb *mailbox.Mailbox, svc *vehicle.Service, pc *provider.Client, pt *provider.ProvinceTable, c *cache.Cache, log logger.Logger) *Worker {
	return &Worker{
		queue:     q,
		mailbox:   mb,
		vehicles:  svc,
		provider:  pc,
		provinces: pt,
		cache:     c,
		log:       log,
	}
}

// Run 消费循环，直到 ctx 取消。
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker consuming")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopping")
			return ctx.Err()
		default:
		}

		msg, ok, err := w.queue.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Errorf("consume failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}
		w.dispatch(ctx, msg)
	}
}

// dispatch 处理一条消息：执行并把信封写回信箱。
// 任何错误都在这里被吸收，绝不传播出单条消息的处理。
func (w *Worker) dispatch(ctx context.Context, msg queue.Message) {
	if len(msg.Args) == 0 {
		w.log.WithField("cmd", msg.Cmd).Warn("message without mailbox token, dropped")
		return
	}
	token, ok := msg.Args[len(msg.Args)-1].(string)
	if !ok || token == "" {
		w.log.WithField("cmd", msg.Cmd).Warn("malformed mailbox token, dropped")
		return
	}
	args := msg.Args[:len(msg.Args)-1]

	env := w.execute(ctx, msg.Cmd, args)
	if env.Code != rpc.CodeOK {
		// 失败信封写回前先带全量上下文落日志
		w.log.WithFields(map[string]interface{}{
			"cmd":   msg.Cmd,
			"token": token,
			"args":  args,
			"code":  env.Code,
			"msg":   env.Msg,
		}).Warn("command failed")
	}
	if err := w.mailbox.Reply(ctx, token, env); err != nil {
		// 回执写不进去：调用方只能超时。记录后继续。
		w.log.WithFields(map[string]interface{}{
			"cmd":   msg.Cmd,
			"token": token,
		}).Errorf("mailbox reply failed: %v", err)
	}
}

func (w *Worker) execute(ctx context.Context, cmd string, args []interface{}) (env rpc.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			w.log.WithField("cmd", cmd).Errorf("panic in handler: %v", r)
			env = rpc.Fail(rpc.CodeInternal, "internal error")
		}
	}()

	switch cmd {
	case "createVehicle":
		return w.handleCreateVehicle(ctx, args)
	case "updateVehicle":
		return w.handleUpdateVehicle(ctx, args)
	case "deleteVehicle":
		return w.handleDeleteVehicle(ctx, args)
	case "setDrivers":
		return w.handleSetDrivers(ctx, args)
	case "saveVehicleModel":
		return w.handleSaveVehicleModel(ctx, args)
	case "refresh":
		return w.handleRefresh(ctx, args)
	case "getModelsByVin":
		return w.handleModelsByVin(ctx, args)
	case "getVehicleByLicense":
		return w.handleVehicleByLicense(ctx, args)
	case "getCityCode":
		return w.handleCityCode(ctx, args)
	default:
		return rpc.Fail(rpc.CodeBadRequest, fmt.Sprintf("unknown command: %s", cmd))
	}
}

// decodeArg JSON 反序列化位置参数到具体类型。
func decodeArg(v interface{}, out interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func argString(args []interface{}, i int) string {
	if i >= len(args) {
		return ""
	}
	s, _ := args[i].(string)
	return s
}

// mapError 错误分类 -> 信封响应码。
func mapError(err error) rpc.Envelope {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return rpc.Fail(rpc.CodeNotFound, "record not found")
	case errors.Is(err, provider.ErrNotFound):
		return rpc.Fail(rpc.CodeNotFound, "not recognized by provider")
	case errors.Is(err, provider.ErrTimeout):
		return rpc.Fail(rpc.CodeTimeout, "provider timeout")
	default:
		return rpc.Fail(rpc.CodeInternal, err.Error())
	}
}
