package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SmartLinkDrive/vehicle-profile/internal/common/auth"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/config"
)

func TestJWTAuthMiddleware(t *testing.T) {
	authCfg := config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "vehicle-profile",
		Audience:  "vehicle-profile",
	}

	tokenStr, _, err := auth.GenerateAccessToken(authCfg, "u-1", []string{"mobile", "admin"}, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	var gotUID string
	var gotDomains []string
	var nextCalled bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		if ai, ok := AuthFromContext(r.Context()); ok {
			gotUID = ai.UID
			gotDomains = ai.Domains
		}
	})

	h := JWTAuth(authCfg, nil, "/healthz")(next)

	// 合法 token 放行，身份写入 ctx
	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected allow, got status=%d", rec.Code)
	}
	if gotUID != "u-1" {
		t.Fatalf("subject mismatch: %s", gotUID)
	}
	if len(gotDomains) != 2 {
		t.Fatalf("domains mismatch: %v", gotDomains)
	}

	// 无 token 拒绝
	req2 := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec2.Code)
	}

	// 签名不对拒绝
	bad, _, err := auth.GenerateAccessToken(config.AuthConfig{JWTSecret: "other-secret"}, "u-1", nil, time.Hour)
	if err != nil {
		t.Fatalf("sign bad token: %v", err)
	}
	req3 := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req3.Header.Set("Authorization", "Bearer "+bad)
	rec3 := httptest.NewRecorder()
	h.ServeHTTP(rec3, req3)
	if rec3.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec3.Code)
	}

	// 公开路径不鉴权
	nextCalled = false
	req4 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec4 := httptest.NewRecorder()
	h.ServeHTTP(rec4, req4)
	if rec4.Code != http.StatusOK || !nextCalled {
		t.Fatalf("expected public path to pass, got status=%d called=%v", rec4.Code, nextCalled)
	}
}
