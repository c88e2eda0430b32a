package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"studiovault/internal/config"
	"studiovault/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func testHandler(db pinger) http.Handler {
	cfg := &config.Config{CORSAllowedOrigins: []string{"https://app.example.com"}}
	return Handler(cfg, &Services{}, db, validator.New(), middleware.AuthMiddleware("s", zerolog.Nop()), zerolog.Nop())
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	testHandler(pinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	testHandler(pinger{err: errors.New("down")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIRedirect(t *testing.T) {
	rec := httptest.NewRecorder()
	testHandler(pinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/payment-webhook", nil))
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/v1/payment-webhook", rec.Header().Get("Location"))
}

func TestV1RoutesAreAuthenticated(t *testing.T) {
	rec := httptest.NewRecorder()
	testHandler(pinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/downloads", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/v1/downloads", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	testHandler(pinger{}).ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
