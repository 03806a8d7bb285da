package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/notifier"
	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/repository/sqlite/sqlitetest"
)

// recordingNotifier 收集发出的邮件。
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifier.EmailRequest
}

func (n *recordingNotifier) SendEmail(_ context.Context, req notifier.EmailRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, req)
	return nil
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, req := range n.sent {
		out = append(out, req.Kind)
	}
	return out
}

type shopEnv struct {
	store    repository.Store
	mail     *recordingNotifier
	settings ShopSettings
	ctx      context.Context
}

func newShopEnv(t *testing.T) *shopEnv {
	t.Helper()
	settings := DefaultShopSettings()
	settings.PaymentKeyID = "rzp_test_key"
	settings.PaymentKeySecret = "test-secret"
	return &shopEnv{
		store:    sqlitetest.New(t),
		mail:     &recordingNotifier{},
		settings: settings,
		ctx:      context.Background(),
	}
}

// seedUser 创建用户；age 决定注册时间距今多久。
func (e *shopEnv) seedUser(t *testing.T, username string, age time.Duration) *repository.User {
	t.Helper()
	created := time.Now().Add(-age).Unix()
	user, err := e.store.Users().Create(e.ctx, &repository.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     username,
		IsActive:     true,
		CreatedAt:    created,
		UpdatedAt:    created,
	})
	require.NoError(t, err)
	require.NoError(t, e.store.Profiles().Create(e.ctx, &repository.UserProfile{
		UserID:          user.ID,
		TotalSpent:      decimal.Zero,
		CustomerSegment: repository.SegmentNew,
		CreatedAt:       created,
		UpdatedAt:       created,
	}))
	return user
}

func (e *shopEnv) seedProduct(t *testing.T, name, price string, stock int64) *repository.Product {
	t.Helper()
	now := time.Now().Unix()
	suffix := time.Now().UnixNano()
	p, err := e.store.Products().Create(e.ctx, &repository.Product{
		Name:      name,
		Slug:      fmt.Sprintf("%s-%d", name, suffix),
		SKU:       fmt.Sprintf("SKU-%s-%d", name, suffix),
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Category:  repository.CategoryRecommended,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return p
}

func (e *shopEnv) seedAddress(t *testing.T, userID int64) *repository.Address {
	t.Helper()
	addr, err := e.store.Addresses().Create(e.ctx, &repository.Address{
		UserID:    userID,
		FullName:  "Asha Rao",
		Mobile:    "9876543210",
		Line1:     "12 MG Road",
		City:      "Bengaluru",
		State:     "KA",
		Pincode:   "560001",
		Country:   "India",
		Type:      "HOME",
		IsDefault: true,
	})
	require.NoError(t, err)
	return addr
}

func (e *shopEnv) addToCart(t *testing.T, userID, productID, qty int64) {
	t.Helper()
	_, err := e.store.Carts().AddQuantity(e.ctx, &repository.CartItem{UserID: userID, ProductID: productID, Quantity: qty})
	require.NoError(t, err)
}

func (e *shopEnv) checkout() CheckoutService {
	return NewCheckoutService(e.store, e.mail, e.settings, nil, nil)
}

// placeBuyNow 以文本地址立即购买下单。
func (e *shopEnv) placeBuyNow(t *testing.T, userID, productID, qty int64, method string) *repository.Order {
	t.Helper()
	order, err := e.checkout().PlaceOrder(e.ctx, userID, PlaceOrderInput{
		QuoteInput:      QuoteInput{BuyNowProductID: productID, BuyNowQuantity: qty},
		ShippingAddress: "12 MG Road, Bengaluru",
		PaymentMethod:   method,
	})
	require.NoError(t, err)
	return order
}

func (e *shopEnv) reload(t *testing.T, id int64) *repository.Order {
	t.Helper()
	order, err := e.store.Orders().FindByID(e.ctx, id)
	require.NoError(t, err)
	return order
}

func (e *shopEnv) stock(t *testing.T, productID int64) int64 {
	t.Helper()
	p, err := e.store.Products().FindByID(e.ctx, productID)
	require.NoError(t, err)
	return p.Stock
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// deliver 审核通过后依次发货、送达。
func (e *shopEnv) deliver(t *testing.T, adminID, orderID int64) *repository.Order {
	t.Helper()
	_, err := NewApprovalService(e.store, e.mail, nil, e.settings, nil, nil).Approve(e.ctx, adminID, []int64{orderID}, "")
	require.NoError(t, err)
	orders := NewOrderService(e.store, e.mail, nil, e.settings, nil, nil)
	_, err = orders.UpdateStatus(e.ctx, adminID, orderID, StatusUpdate{Status: repository.OrderShipped})
	require.NoError(t, err)
	order, err := orders.UpdateStatus(e.ctx, adminID, orderID, StatusUpdate{Status: repository.OrderDelivered})
	require.NoError(t, err)
	return order
}
