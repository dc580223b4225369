package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmartLinkDrive/vehicle-profile/internal/common/config"
)

func newTestClient(vinURL string) *Client {
	return NewClient(config.ProviderConfig{
		VinURL:     vinURL,
		TimeoutSec: 1,
	}, nil)
}

func TestModelsByVinSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":0,"data":[{"vehicleId":"BMW3-2021","brandName":"宝马","seatNum":5}]}`))
	}))
	defer srv.Close()

	records, err := newTestClient(srv.URL).ModelsByVin(context.Background(), "1HGCM82633A004352")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "BMW3-2021", records[0].ModelCode)
	assert.Equal(t, 5, records[0].SeatNum)
}

func TestModelsByVinNotRecognized(t *testing.T) {
	// 上游业务 status 与 HTTP 状态是两回事：HTTP 200 + status 404
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":404,"msg":"vin not recognized"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ModelsByVin(context.Background(), "UNKNOWNVIN0000000")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestModelsByVinUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ModelsByVin(context.Background(), "1HGCM82633A004352")
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestModelsByVinTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ModelsByVin(context.Background(), "1HGCM82633A004352")
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestCityCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":0,"data":{"cityCode":"110100"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.ProviderConfig{CityURL: srv.URL, TimeoutSec: 1}, nil)
	code, err := c.CityCode(context.Background(), "110000", "北京")
	require.NoError(t, err)
	assert.Equal(t, "110100", code)
}

func TestProvinceTable(t *testing.T) {
	table := NewProvinceTable(config.DefaultProvinces())

	code, ok := table.Code("北京")
	require.True(t, ok)
	assert.Equal(t, "110000", code)

	code, ok = table.Code("广东省")
	require.True(t, ok)
	assert.Equal(t, "440000", code)

	_, ok = table.Code("不存在的省")
	assert.False(t, ok)
}
