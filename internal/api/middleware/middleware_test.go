package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/api/requestctx"
	"github.com/creamcroissant/vibemall/internal/cache"
	"github.com/creamcroissant/vibemall/internal/security"
	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

type stubAuth struct {
	service.AuthService
	claims  map[string]*service.Claims
	errs    map[string]error
	touched []int64
}

func (s *stubAuth) Verify(_ context.Context, token string) (*service.Claims, error) {
	if err, ok := s.errs[token]; ok {
		return nil, err
	}
	if c, ok := s.claims[token]; ok {
		return c, nil
	}
	return nil, service.ErrUnauthorized
}

func (s *stubAuth) TouchActivity(_ context.Context, userID int64) error {
	s.touched = append(s.touched, userID)
	return nil
}

func newStubAuth() *stubAuth {
	return &stubAuth{
		claims: map[string]*service.Claims{
			"user-token":  {UserID: 7, Username: "asha"},
			"admin-token": {UserID: 1, Username: "root", IsStaff: true},
		},
		errs: map[string]error{
			"blocked-token": service.ErrAccountBlocked,
		},
	}
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":   requestctx.UserID(r.Context()),
			"lang": requestctx.Language(r.Context()),
		})
	})
}

func call(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func withToken(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestGuards(t *testing.T) {
	auth := newStubAuth()
	user := UserGuard(auth)(echoUser())
	admin := AdminGuard(auth)(echoUser())

	require.Equal(t, http.StatusUnauthorized, call(user, withToken("")).Code)
	require.Equal(t, http.StatusUnauthorized, call(user, withToken("garbage")).Code)
	require.Equal(t, http.StatusForbidden, call(user, withToken("blocked-token")).Code)

	rec := call(user, withToken("user-token"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":7`)
	require.Equal(t, []int64{7}, auth.touched)

	require.Equal(t, http.StatusForbidden, call(admin, withToken("user-token")).Code)
	require.Equal(t, http.StatusOK, call(admin, withToken("admin-token")).Code)
}

func TestOptionalUser(t *testing.T) {
	h := OptionalUser(newStubAuth())(echoUser())

	rec := call(h, withToken(""))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":0`)

	rec = call(h, withToken("garbage"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":0`)

	rec = call(h, withToken("user-token"))
	require.Contains(t, rec.Body.String(), `"id":7`)
}

func TestExtractBearer(t *testing.T) {
	require.Equal(t, "abc", extractBearer("Bearer abc"))
	require.Equal(t, "abc", extractBearer("bearer  abc "))
	require.Equal(t, "abc", extractBearer("abc"))
	require.Empty(t, extractBearer("  "))
}

func TestRateLimit(t *testing.T) {
	limiter, err := security.NewRateLimiter(cache.NewStore(cache.Options{}))
	require.NoError(t, err)
	h := RateLimit(limiter, RateLimitConfig{Limit: 2, Window: time.Minute, SkipPaths: []string{"/healthz"}})(echoUser())

	req := func(path string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		r.RemoteAddr = "203.0.113.9:5000"
		return r
	}
	require.Equal(t, http.StatusOK, call(h, req("/a")).Code)
	rec := call(h, req("/a"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = call(h, req("/a"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	require.Equal(t, http.StatusOK, call(h, req("/healthz")).Code)

	other := req("/a")
	other.RemoteAddr = "198.51.100.1:5000"
	require.Equal(t, http.StatusOK, call(h, other).Code)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.2:1234"
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.2")
	require.Equal(t, "203.0.113.5", ClientIP(r))

	// 公网来源不信任转发头
	r.RemoteAddr = "198.51.100.7:1234"
	require.Equal(t, "198.51.100.7", ClientIP(r))
}

func TestBodyLimit(t *testing.T) {
	h := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"a very long value"}`))
	require.Equal(t, http.StatusRequestEntityTooLarge, call(h, req).Code)
}

func TestCORSPreflight(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://shop.example.com"}
	h := CORS(cfg)(echoUser())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	rec := call(h, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = call(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestI18nMiddleware(t *testing.T) {
	manager, err := i18n.NewManager()
	require.NoError(t, err)
	h := I18n(manager)(echoUser())

	req := httptest.NewRequest(http.MethodGet, "/?lang=hi-IN", nil)
	rec := call(h, req)
	require.Contains(t, rec.Body.String(), `"lang":"hi-IN"`)
	require.Equal(t, "hi-IN", rec.Header().Get("Content-Language"))
	require.NotEmpty(t, rec.Result().Cookies())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "fr-FR")
	rec = call(h, req)
	require.Contains(t, rec.Body.String(), `"lang":"en-US"`)
}

func TestNormalizePath(t *testing.T) {
	require.Equal(t, "/api/v1/products/:id", NormalizePath("/api/v1/products/42"))
	require.Equal(t, "/api/v1/orders/:number/invoice", NormalizePath("/api/v1/orders/ORD20260101001/invoice"))
	require.Equal(t, "/api/v1/cart", NormalizePath("/api/v1/cart"))
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(DefaultMetricsConfig(), reg)
	h := m.Middleware()(echoUser())

	call(h, httptest.NewRequest(http.MethodGet, "/api/v1/products/1", nil))
	call(h, httptest.NewRequest(http.MethodGet, "/api/v1/products/2", nil))
	call(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != "vibemall_http_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			total += metric.GetCounter().GetValue()
			for _, label := range metric.GetLabel() {
				if label.GetName() == "path" {
					require.Equal(t, "/api/v1/products/:id", label.GetValue())
				}
			}
		}
	}
	require.Equal(t, float64(2), total)
}

func TestMetricsGuard(t *testing.T) {
	h := MetricsGuard("scrape")(echoUser())
	require.Equal(t, http.StatusUnauthorized, call(h, withToken("")).Code)
	require.Equal(t, http.StatusOK, call(h, withToken("scrape")).Code)
}

func TestRequestLoggerRecordsUser(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestLogger(LoggingConfig{Logger: logger})(UserGuard(newStubAuth())(echoUser()))

	call(h, withToken("user-token"))
	require.Contains(t, buf.String(), `"user_id":7`)
	require.Contains(t, buf.String(), `"status":200`)

	buf.Reset()
	call(h, withToken(""))
	require.Contains(t, buf.String(), `"level":"WARN"`)
	require.NotContains(t, buf.String(), "user_id")
}
