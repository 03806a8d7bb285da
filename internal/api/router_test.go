package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/auth/token"
	"github.com/creamcroissant/vibemall/internal/cache"
	"github.com/creamcroissant/vibemall/internal/config"
	"github.com/creamcroissant/vibemall/internal/notifier"
	"github.com/creamcroissant/vibemall/internal/repository/sqlite/sqlitetest"
	"github.com/creamcroissant/vibemall/internal/security"
	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/hash"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

type testServer struct {
	*httptest.Server
	auth service.AuthService
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	store := sqlitetest.New(t)
	cacheStore := cache.NewStore(cache.Options{})
	hasher, err := hash.NewBcryptHasher(4)
	require.NoError(t, err)
	tokens, err := token.NewManager(token.Options{SigningKey: []byte("router-test"), TTL: time.Hour})
	require.NoError(t, err)
	limiter, err := security.NewRateLimiter(cacheStore)
	require.NoError(t, err)
	manager, err := i18n.NewManager()
	require.NoError(t, err)

	mail := notifier.NewLoggerService(nil)
	settings := service.DefaultShopSettings()
	auth := service.NewAuthService(store, hasher, tokens, limiter, nil, cacheStore, 24*time.Hour)
	services := Services{
		Auth:          auth,
		Customers:     service.NewCustomerService(store, nil),
		Addresses:     service.NewAddressService(store),
		Catalog:       service.NewCatalogService(store, cacheStore, settings),
		Cart:          service.NewCartService(store),
		Wishlist:      service.NewWishlistService(store),
		Checkout:      service.NewCheckoutService(store, mail, settings, nil, nil),
		Approvals:     service.NewApprovalService(store, mail, nil, settings, nil, nil),
		Orders:        service.NewOrderService(store, mail, nil, settings, nil, nil),
		Payments:      service.NewPaymentService(store, mail, nil, settings, nil, nil),
		Loyalty:       service.NewLoyaltyService(store, nil, settings),
		Resell:        service.NewResellService(store, mail, settings, nil, nil),
		Reviews:       service.NewReviewService(store),
		Questions:     service.NewQuestionService(store),
		Returns:       service.NewReturnService(store, mail, settings, nil, nil),
		Notifications: service.NewNotificationService(store, mail, settings, nil),
		Dashboard:     service.NewDashboardService(store, cacheStore, nil, settings, "test", nil),
		Invoices:      service.NewInvoiceService(store, settings),
		Content:       service.NewContentService(store),
		Chat:          service.NewChatService(store),
		RateLimiter:   limiter,
		I18n:          manager,
		Ready: func(ctx context.Context) error {
			_, err := store.Outbox().CountPending(ctx)
			return err
		},
	}
	srv := httptest.NewServer(NewRouter(nil, services, opts))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, auth: auth}
}

// do 发送 JSON 请求并解码响应体。
func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (s *testServer) register(t *testing.T, username string, staff bool) string {
	t.Helper()
	result, err := s.auth.Register(context.Background(), service.RegisterInput{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "supersecret",
		ConfirmPassword: "supersecret",
		IsStaff:         staff,
	})
	require.NoError(t, err)
	return result.Token
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func TestHealthRoutes(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/health", "/_internal/ready"} {
		status, body := srv.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, status, path)
		require.NotEmpty(t, body["status"])
	}
	status, _ := srv.do(t, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestRouterRequiresServices(t *testing.T) {
	require.Panics(t, func() {
		NewRouter(nil, Services{}, Options{})
	})
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})

	status, body := srv.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"username":         "asha",
		"email":            "asha@example.com",
		"password":         "supersecret",
		"confirm_password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, status)
	refresh := data(t, body)["refresh_token"].(string)

	status, body = srv.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"username":         "asha",
		"email":            "other@example.com",
		"password":         "supersecret",
		"confirm_password": "supersecret",
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "Username already exists", body["error"])

	status, body = srv.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "asha@example.com", "password": "wrong-password"})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "auth.login", body["action"])

	status, body = srv.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"username": "asha", "password": "supersecret"})
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, data(t, body)["token"])

	status, body = srv.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]any{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, status)
	rotated := data(t, body)["refresh_token"].(string)

	status, _ = srv.do(t, http.MethodPost, "/api/v1/auth/logout", "", map[string]any{"refresh_token": rotated})
	require.Equal(t, http.StatusOK, status)
	status, _ = srv.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]any{"refresh_token": rotated})
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestShopFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t, Options{})
	admin := srv.register(t, "root", true)
	customer := srv.register(t, "asha", false)

	status, _ := srv.do(t, http.MethodGet, "/api/v1/cart", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	status, _ = srv.do(t, http.MethodPost, "/api/v1/admin/products", customer, map[string]any{"name": "Lamp", "price": "300"})
	require.Equal(t, http.StatusForbidden, status)

	status, body := srv.do(t, http.MethodPost, "/api/v1/admin/products", admin, map[string]any{
		"name":     "Desk Lamp",
		"price":    "300",
		"stock":    5,
		"category": "furniture",
	})
	require.Equal(t, http.StatusCreated, status)
	productID := int64(data(t, body)["id"].(float64))

	status, body = srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", productID), "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Desk Lamp", data(t, body)["product"].(map[string]any)["name"])

	status, body = srv.do(t, http.MethodPost, "/api/v1/cart/items", customer, map[string]any{"product_id": productID, "quantity": 9})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "Not enough stock available", body["error"])

	status, _ = srv.do(t, http.MethodPost, "/api/v1/cart/items", customer, map[string]any{"product_id": productID, "quantity": 2})
	require.Equal(t, http.StatusOK, status)

	status, body = srv.do(t, http.MethodPost, "/api/v1/checkout/quote", customer, map[string]any{})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "708", data(t, body)["total"])

	status, body = srv.do(t, http.MethodPost, "/api/v1/checkout", customer, map[string]any{
		"shipping_address": "12 MG Road, Bengaluru",
		"payment_method":   "cod",
	})
	require.Equal(t, http.StatusCreated, status)
	order := data(t, body)
	number := order["order_number"].(string)
	orderID := int64(order["id"].(float64))
	require.Equal(t, "PENDING_APPROVAL", order["approval_status"])

	status, body = srv.do(t, http.MethodGet, "/api/v1/admin/approvals", admin, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["data"], 1)

	status, body = srv.do(t, http.MethodPost, "/api/v1/admin/approvals/approve", admin, map[string]any{"order_ids": []int64{orderID}})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "1 order(s) approved", body["message"])

	status, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/orders/%d/status", orderID), admin, map[string]any{"status": "DELIVERED"})
	require.Equal(t, http.StatusConflict, status)

	status, body = srv.do(t, http.MethodGet, "/api/v1/orders/"+number, customer, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "PROCESSING", data(t, body)["order_status"])

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/orders/"+number+"/invoice", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+customer)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	pdf, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	require.Regexp(t, `^INV\d{8}001$`, resp.Header.Get("X-Invoice-Number"))
	require.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	status, body = srv.do(t, http.MethodGet, "/api/v1/account/notifications", customer, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotZero(t, body["unread"])
}

func TestBlockedCustomerRejected(t *testing.T) {
	srv := newTestServer(t, Options{})
	admin := srv.register(t, "root", true)
	customer := srv.register(t, "asha", false)

	status, body := srv.do(t, http.MethodGet, "/api/v1/account/profile", customer, nil)
	require.Equal(t, http.StatusOK, status)
	userID := int64(data(t, body)["user_id"].(float64))

	status, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/customers/%d/block", userID), admin, map[string]any{"blocked": true})
	require.Equal(t, http.StatusOK, status)

	status, _ = srv.do(t, http.MethodGet, "/api/v1/account/profile", customer, nil)
	require.Equal(t, http.StatusForbidden, status)
}

func TestErrorsAreTranslated(t *testing.T) {
	srv := newTestServer(t, Options{})
	customer := srv.register(t, "asha", false)

	status, body := srv.do(t, http.MethodPost, "/api/v1/checkout/quote?lang=hi-IN", customer, map[string]any{})
	require.Equal(t, http.StatusBadRequest, status)
	require.NotEqual(t, "Your cart is empty", body["error"])
	require.NotEqual(t, "error.empty_cart", body["error"])

	status, body = srv.do(t, http.MethodPost, "/api/v1/checkout/quote", customer, map[string]any{})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Your cart is empty", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{
		Metrics:  config.MetricsConfig{Enabled: true, Token: "scrape"},
		Registry: prometheus.NewRegistry(),
	})
	srv.do(t, http.MethodGet, "/api/v1/categories", "", nil)

	status, _ := srv.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer scrape")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(raw), `vibemall_http_requests_total{method="GET",path="/api/v1/categories",status="200"} 1`)
}

func TestRateLimitedRouter(t *testing.T) {
	srv := newTestServer(t, Options{HTTP: config.HTTPConfig{RateLimit: 2, RateWindow: time.Minute}})
	for i := 0; i < 2; i++ {
		status, _ := srv.do(t, http.MethodGet, "/api/v1/categories", "", nil)
		require.Equal(t, http.StatusOK, status)
	}
	status, _ := srv.do(t, http.MethodGet, "/api/v1/categories", "", nil)
	require.Equal(t, http.StatusTooManyRequests, status)

	status, _ = srv.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, status)
}

func TestContentAndChatRoutes(t *testing.T) {
	srv := newTestServer(t, Options{})
	admin := srv.register(t, "root", true)
	customer := srv.register(t, "asha", false)

	status, _ := srv.do(t, http.MethodPost, "/api/v1/admin/content/banners", customer, map[string]any{"title": "x", "image_url": "/x.jpg"})
	require.Equal(t, http.StatusForbidden, status)
	status, body := srv.do(t, http.MethodPost, "/api/v1/admin/content/banners", admin, map[string]any{
		"title": "Shop sale", "image_url": "/b.jpg", "page_type": "SHOP", "is_active": true,
	})
	require.Equal(t, http.StatusCreated, status)
	bannerID := int64(data(t, body)["id"].(float64))
	status, _ = srv.do(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/content/banners/%d", bannerID), admin, map[string]any{
		"title": "Shop sale", "image_url": "/b.jpg", "page_type": "SHOP", "banner_type": "TINY",
	})
	require.Equal(t, http.StatusBadRequest, status)

	status, body = srv.do(t, http.MethodGet, "/api/v1/content/banners?page=shop", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["data"], 1)
	status, body = srv.do(t, http.MethodGet, "/api/v1/home", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, data(t, body)["category_icons"], 8)
	require.Empty(t, data(t, body)["banners"])

	status, _ = srv.do(t, http.MethodPost, "/api/v1/admin/content/category-icons", admin, map[string]any{
		"name": "Phones", "icon_class": "fas fa-phone", "category_key": "MOBILES",
	})
	require.Equal(t, http.StatusConflict, status)

	status, body = srv.do(t, http.MethodPost, "/api/v1/chat", customer, nil)
	require.Equal(t, http.StatusOK, status)
	threadID := int64(data(t, body)["id"].(float64))
	status, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/chat/%d/messages", threadID), customer, map[string]any{"message": "Hello"})
	require.Equal(t, http.StatusCreated, status)

	status, body = srv.do(t, http.MethodGet, "/api/v1/admin/chats?status=OPEN", admin, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["data"], 1)
	status, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/chats/%d/messages", threadID), admin, map[string]any{"message": "Hi, how can we help?"})
	require.Equal(t, http.StatusCreated, status)
	status, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/chats/%d/status", threadID), admin, map[string]any{"status": "CLOSED"})
	require.Equal(t, http.StatusOK, status)
	status, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/chat/%d/messages", threadID), customer, map[string]any{"message": "Thanks"})
	require.Equal(t, http.StatusConflict, status)

	status, body = srv.do(t, http.MethodPost, "/api/v1/guest-chat", "", map[string]any{"name": "Meera", "email": "meera@example.com"})
	require.Equal(t, http.StatusCreated, status)
	key := data(t, body)["access_key"].(string)
	status, _ = srv.do(t, http.MethodPost, "/api/v1/guest-chat/"+key+"/messages", "", map[string]any{"message": "Do you ship to Pune?"})
	require.Equal(t, http.StatusCreated, status)
	status, body = srv.do(t, http.MethodGet, "/api/v1/guest-chat/"+key+"/messages", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["data"], 1)
	status, _ = srv.do(t, http.MethodGet, "/api/v1/guest-chat/nope/messages", "", nil)
	require.Equal(t, http.StatusNotFound, status)
}
