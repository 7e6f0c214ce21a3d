package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smartcargo-next/internal/authz"
	"github.com/smartcargo-next/internal/cache"
	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeResolver struct {
	claims   *service.JWTClaims
	state    *cache.UserAuthState
	parseErr error
	stateErr error
}

func (r *fakeResolver) ParseJWT(token string) (*service.JWTClaims, error) {
	if r.parseErr != nil {
		return nil, r.parseErr
	}
	return r.claims, nil
}

func (r *fakeResolver) ResolveAuthState(_ context.Context, _ *service.JWTClaims) (*cache.UserAuthState, error) {
	if r.stateErr != nil {
		return nil, r.stateErr
	}
	return r.state, nil
}

type envelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": c.GetString(requestIDKey)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	if !strings.Contains(w.Body.String(), "req-123") {
		t.Fatalf("context request id not propagated: %s", w.Body.String())
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if strings.TrimSpace(w2.Header().Get(requestIDHeader)) == "" {
		t.Fatalf("generated request id should not be empty")
	}
}

func newAuthRouter(resolver tokenResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddleware(resolver))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.Value(userIDKey), "role": c.GetString(userRoleKey)})
	})
	return r
}

func TestJWTAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	r := newAuthRouter(&fakeResolver{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status want 401 got %d", w.Code)
	}
	if resp := decodeEnvelope(t, w); resp.Success || resp.Message == "" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("non bearer header want 401 got %d", w.Code)
	}
}

func TestJWTAuthMiddlewareRevokedToken(t *testing.T) {
	r := newAuthRouter(&fakeResolver{
		claims:   &service.JWTClaims{UserID: 5},
		stateErr: service.ErrAccountInactive,
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer token")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status want 401 got %d", w.Code)
	}
	if resp := decodeEnvelope(t, w); resp.Message != service.ErrAccountInactive.Message {
		t.Fatalf("unexpected message: %s", resp.Message)
	}
}

func TestJWTAuthMiddlewareStoreFailure(t *testing.T) {
	r := newAuthRouter(&fakeResolver{
		claims:   &service.JWTClaims{UserID: 5},
		stateErr: errors.New("db down"),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer token")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status want 500 got %d", w.Code)
	}
}

func TestJWTAuthMiddlewareSetsIdentity(t *testing.T) {
	r := newAuthRouter(&fakeResolver{
		claims: &service.JWTClaims{UserID: 7, Role: constants.RoleShipper},
		state:  &cache.UserAuthState{UserID: 7, Role: constants.RoleCarrier, Status: constants.UserStatusActive},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer token")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	// 角色以账号当前状态为准
	if !strings.Contains(w.Body.String(), `"role":"Carrier"`) || !strings.Contains(w.Body.String(), `"user_id":7`) {
		t.Fatalf("identity not set: %s", w.Body.String())
	}
}

func setupRouterAuthz(t *testing.T) *authz.Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}
	return svc
}

func TestRoleAuthzMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authzService := setupRouterAuthz(t)

	newRouter := func(role string) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			if role != "" {
				c.Set(userRoleKey, role)
			}
			c.Next()
		})
		group := r.Group("/api/v1")
		group.Use(RoleAuthzMiddleware(authzService))
		group.POST("/cargo", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
		group.GET("/admin/users", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
		return r
	}

	cases := []struct {
		role   string
		method string
		path   string
		want   int
	}{
		{constants.RoleShipper, http.MethodPost, "/api/v1/cargo", http.StatusOK},
		{constants.RoleCarrier, http.MethodPost, "/api/v1/cargo", http.StatusForbidden},
		{constants.RoleShipper, http.MethodGet, "/api/v1/admin/users", http.StatusForbidden},
		{constants.RoleAdmin, http.MethodGet, "/api/v1/admin/users", http.StatusOK},
		{"", http.MethodGet, "/api/v1/admin/users", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		newRouter(tc.role).ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.want {
			t.Fatalf("%s %s as %q want %d got %d", tc.method, tc.path, tc.role, tc.want, w.Code)
		}
	}
}
