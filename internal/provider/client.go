package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/SmartLinkDrive/vehicle-profile/internal/common/config"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/logger"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/middleware"
	"github.com/SmartLinkDrive/vehicle-profile/internal/vehiclemodel"
)

// 上游错误分类。worker 据此映射响应码：
// ErrNotFound -> 404，ErrTimeout -> 408，其余 -> 500。
var (
	ErrNotFound = errors.New("provider: not found")
	ErrTimeout  = errors.New("provider: timeout")
	ErrUpstream = errors.New("provider: upstream failure")
)

// providerEnvelope 第三方接口的统一外层：业务 status 与 HTTP 状态是两回事。
type providerEnvelope struct {
	Status int             `json:"status"` // 0 成功；404 未识别；其他为上游错误
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

const (
	statusOK       = 0
	statusNotFound = 404
)

// LicenseLookup 车牌查询的返回：VIN + 上游回执 token + 车型记录。
type LicenseLookup struct {
	VIN          string                     `json:"vin"`
	ResponseCode string                     `json:"responseCode"`
	Model        vehiclemodel.LicenseRecord `json:"model"`
}

// Client 第三方车辆数据接口客户端。
// 每个端点独立熔断，避免一个接口抖动拖垮其他查询。
type Client struct {
	cfg   config.ProviderConfig
	httpc *http.Client
	log   logger.Logger

	vinBreaker     *middleware.CircuitBreaker
	licenseBreaker *middleware.CircuitBreaker
	cityBreaker    *middleware.CircuitBreaker
}

// NewClient 创建客户端。
func NewClient(cfg config.ProviderConfig, log logger.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		cfg:            cfg,
		httpc:          &http.Client{Timeout: timeout},
		log:            log,
		vinBreaker:     middleware.NewCircuitBreaker("provider-vin", 5, 30*time.Second),
		licenseBreaker: middleware.NewCircuitBreaker("provider-license", 5, 30*time.Second),
		cityBreaker:    middleware.NewCircuitBreaker("provider-city", 5, 30*time.Second),
	}
}

// ModelsByVin VIN -> 车型记录列表。
func (c *Client) ModelsByVin(ctx context.Context, vin string) ([]vehiclemodel.VinRecord, error) {
	var records []vehiclemodel.VinRecord
	err := c.vinBreaker.Call(ctx, func() error {
		return c.post(ctx, c.cfg.VinURL, map[string]string{
			"vin":    vin,
			"appKey": c.cfg.AppKey,
		}, &records)
	})
	if err != nil {
		return nil, classifyBreaker(err)
	}
	return records, nil
}

// VehicleByLicense 车牌 -> 车辆（含 VIN 与上游回执 token）。
func (c *Client) VehicleByLicense(ctx context.Context, license string) (*LicenseLookup, error) {
	var lookup LicenseLookup
	err := c.licenseBreaker.Call(ctx, func() error {
		return c.post(ctx, c.cfg.LicenseURL, map[string]string{
			"license": license,
			"appKey":  c.cfg.AppKey,
		}, &lookup)
	})
	if err != nil {
		return nil, classifyBreaker(err)
	}
	return &lookup, nil
}

// CityCode 省代码 + 城市名 -> 城市代码。
func (c *Client) CityCode(ctx context.Context, provinceCode, city string) (string, error) {
	var out struct {
		CityCode string `json:"cityCode"`
	}
	err := c.cityBreaker.Call(ctx, func() error {
		return c.post(ctx, c.cfg.CityURL, map[string]string{
			"provinceCode": provinceCode,
			"city":         city,
			"appKey":       c.cfg.AppKey,
		}, &out)
	})
	if err != nil {
		return "", classifyBreaker(err)
	}
	return out.CityCode, nil
}

// post 发起 POST JSON 调用并解包 providerEnvelope。
func (c *Client) post(ctx context.Context, url string, body interface{}, out interface{}) error {
	if url == "" {
		return fmt.Errorf("%w: endpoint not configured", ErrUpstream)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http status %d", ErrUpstream, resp.StatusCode)
	}

	var env providerEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	switch env.Status {
	case statusOK:
	case statusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: provider status %d: %s", ErrUpstream, env.Status, env.Msg)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %v", ErrUpstream, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// classifyBreaker 熔断拒绝按上游故障处理。
func classifyBreaker(err error) error {
	if errors.Is(err, middleware.ErrBreakerOpen) || errors.Is(err, middleware.ErrHalfOpenLimited) {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return err
}
