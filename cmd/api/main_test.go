package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pointhub/pointhub-api/internal/config"
	"github.com/pointhub/pointhub-api/internal/domain/account"
	"github.com/pointhub/pointhub-api/internal/domain/audit"
	"github.com/pointhub/pointhub-api/internal/domain/ledger"
	"github.com/pointhub/pointhub-api/internal/domain/progression"
	"github.com/pointhub/pointhub-api/internal/domain/redemption"
	"github.com/pointhub/pointhub-api/internal/domain/reward"
	"github.com/pointhub/pointhub-api/internal/domain/streak"
	"github.com/pointhub/pointhub-api/internal/middleware"
	"github.com/pointhub/pointhub-api/internal/pkg/jwt"
)

func newTestRouter(t *testing.T) (http.Handler, *jwt.Service) {
	t.Helper()

	jwtSvc := jwt.NewService("secret", time.Minute)
	h := &handlers{
		provision:   func(next http.Handler) http.Handler { return next },
		account:     account.NewHandler(nil),
		ledger:      ledger.NewHandler(nil),
		reward:      reward.NewHandler(nil),
		redemption:  redemption.NewHandler(nil),
		streak:      streak.NewHandler(nil),
		progression: progression.NewHandler(nil),
		audit:       audit.NewHandler(nil),
	}
	return newRouter(&config.Config{AllowedOrigins: []string{"http://localhost:3000"}}, jwtSvc, h), jwtSvc
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/accounts/me"},
		{http.MethodGet, "/api/v1/points/transactions"},
		{http.MethodPost, "/api/v1/streaks/claim"},
		{http.MethodPost, "/api/v1/rewards/" + uuid.NewString() + "/redeem"},
		{http.MethodGet, "/api/v1/businesses/" + uuid.NewString() + "/rewards"},
		{http.MethodGet, "/api/v1/redemptions"},
		{http.MethodGet, "/api/v1/business/progress"},
		{http.MethodGet, "/api/v1/admin/upgrades"},
		{http.MethodGet, "/api/v1/admin/audit-logs"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(rt.method, rt.path, nil))
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected status 401, got %d", rr.Code)
			}
		})
	}
}

func TestAdminRoutesForbidCustomers(t *testing.T) {
	router, jwtSvc := newTestRouter(t)

	token, err := jwtSvc.GenerateAccessToken(uuid.New(), middleware.RoleCustomer)
	if err != nil {
		t.Fatalf("token gen failed: %v", err)
	}

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/admin/points/award"},
		{http.MethodPost, "/api/v1/admin/businesses/" + uuid.NewString() + "/upgrade/approve"},
		{http.MethodGet, "/api/v1/admin/upgrades"},
		{http.MethodGet, "/api/v1/admin/audit-logs"},
		{http.MethodPost, "/api/v1/admin/redemptions/expire"},
		{http.MethodPost, "/api/v1/business/upgrade-request"},
		{http.MethodPost, "/api/v1/redemptions/" + uuid.NewString() + "/use"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			req := httptest.NewRequest(rt.method, rt.path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != http.StatusForbidden {
				t.Fatalf("expected status 403, got %d", rr.Code)
			}
		})
	}
}
