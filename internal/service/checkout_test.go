package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/repository"
)

func TestQuotePricing(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 0)
	cheap := env.seedProduct(t, "mug", "300", 10)

	t.Run("below free shipping threshold", func(t *testing.T) {
		q, err := env.checkout().Quote(env.ctx, user.ID, QuoteInput{BuyNowProductID: cheap.ID, BuyNowQuantity: 1})
		require.NoError(t, err)
		require.False(t, q.FromCart)
		require.True(t, q.Subtotal.Equal(dec("300")))
		require.True(t, q.Tax.Equal(dec("54")))
		require.True(t, q.Shipping.Equal(dec("50")))
		require.True(t, q.Total.Equal(dec("404")))
	})

	t.Run("cart qualifies for free shipping", func(t *testing.T) {
		env.addToCart(t, user.ID, cheap.ID, 2)
		q, err := env.checkout().Quote(env.ctx, user.ID, QuoteInput{})
		require.NoError(t, err)
		require.True(t, q.FromCart)
		require.Len(t, q.Lines, 1)
		require.True(t, q.Subtotal.Equal(dec("600")))
		require.True(t, q.Shipping.IsZero())
		require.True(t, q.Total.Equal(dec("708")))
	})

	t.Run("redeem more than available", func(t *testing.T) {
		_, err := env.checkout().Quote(env.ctx, user.ID, QuoteInput{RedeemPoints: 10})
		require.ErrorIs(t, err, ErrInsufficientPoints)
	})
}

func TestQuoteEmptyCart(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "empty", 0)
	_, err := env.checkout().Quote(env.ctx, user.ID, QuoteInput{})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrderFromCart(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 0)
	env.seedAddress(t, user.ID)
	product := env.seedProduct(t, "lamp", "300", 5)
	env.addToCart(t, user.ID, product.ID, 2)
	require.NoError(t, env.store.AdminEmail().Save(env.ctx, &repository.AdminEmailSettings{AdminEmail: "ops@example.com", IsActive: true}))

	order, err := env.checkout().PlaceOrder(env.ctx, user.ID, PlaceOrderInput{PaymentMethod: "cod", Notes: "<b>ring</b> the bell"})
	require.NoError(t, err)

	require.Regexp(t, `^ORD\d{8}001$`, order.OrderNumber)
	require.Equal(t, repository.MethodCOD, order.PaymentMethod)
	require.Equal(t, repository.OrderPending, order.OrderStatus)
	require.Equal(t, repository.ApprovalPending, order.ApprovalStatus)
	require.Equal(t, 40, order.RiskScore)
	require.False(t, order.IsSuspicious)
	require.Contains(t, order.SuspiciousReason, "Cash on delivery")
	require.NotContains(t, order.CustomerNotes, "<b>")
	require.Contains(t, order.CustomerNotes, "the bell")
	require.Contains(t, order.ShippingAddress, "12 MG Road")
	require.Equal(t, order.ShippingAddress, order.BillingAddress)
	require.True(t, order.TotalAmount.Equal(dec("708")))

	require.Equal(t, int64(3), env.stock(t, product.ID))
	cart, err := env.store.Carts().ListByUser(env.ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, cart)

	history, err := env.store.Orders().ListHistory(env.ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, repository.OrderPending, history[0].NewStatus)

	unread, err := env.store.Notifications().UnreadCount(env.ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), unread)

	pending, err := env.store.Outbox().CountPending(env.ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), pending)

	require.ElementsMatch(t, []string{EmailOrderConfirmation, EmailAdminNewOrder}, env.mail.kinds())
}

func TestPlaceOrderOnlineAutoApproved(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "veteran", 72*time.Hour)
	product := env.seedProduct(t, "desk", "1200", 3)

	order := env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodOnline)
	require.Equal(t, 15, order.RiskScore)
	require.Equal(t, repository.ApprovalAutoApproved, order.ApprovalStatus)
	// 在线支付订单等付款后才进入处理中
	require.Equal(t, repository.OrderPending, order.OrderStatus)
	require.NotNil(t, order.ApprovedAt)
	require.Equal(t, []string{EmailOrderConfirmation}, env.mail.kinds())
}

func TestPlaceOrderRedeemsPoints(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "saver", 0)
	product := env.seedProduct(t, "chair", "300", 5)
	loyalty := NewLoyaltyService(env.store, nil, env.settings)
	_, err := loyalty.Earn(env.ctx, user.ID, 1000, "welcome", nil)
	require.NoError(t, err)

	order, err := env.checkout().PlaceOrder(env.ctx, user.ID, PlaceOrderInput{
		QuoteInput:      QuoteInput{BuyNowProductID: product.ID, BuyNowQuantity: 2, RedeemPoints: 500},
		ShippingAddress: "12 MG Road",
	})
	require.NoError(t, err)
	require.Equal(t, int64(500), order.PointsRedeemed)
	require.True(t, order.Discount.Equal(dec("15")))
	require.True(t, order.TotalAmount.Equal(dec("693")))

	balance, err := loyalty.Balance(env.ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(500), balance.PointsAvailable)
	require.Equal(t, int64(500), balance.PointsUsed)
}

func TestPlaceOrderValidation(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "val", 0)
	product := env.seedProduct(t, "vase", "100", 1)

	cases := []struct {
		name  string
		input PlaceOrderInput
		want  error
	}{
		{
			name:  "unknown payment method",
			input: PlaceOrderInput{QuoteInput: QuoteInput{BuyNowProductID: product.ID}, ShippingAddress: "x", PaymentMethod: "BITCOIN"},
			want:  ErrInvalidPaymentMethod,
		},
		{
			name:  "quantity above stock",
			input: PlaceOrderInput{QuoteInput: QuoteInput{BuyNowProductID: product.ID, BuyNowQuantity: 2}, ShippingAddress: "x"},
			want:  ErrOutOfStock,
		},
		{
			name:  "no address on file",
			input: PlaceOrderInput{QuoteInput: QuoteInput{BuyNowProductID: product.ID}},
			want:  ErrAddressRequired,
		},
		{
			name:  "empty cart",
			input: PlaceOrderInput{ShippingAddress: "x"},
			want:  ErrEmptyCart,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.checkout().PlaceOrder(env.ctx, user.ID, tc.input)
			require.ErrorIs(t, err, tc.want)
		})
	}
	require.Equal(t, int64(1), env.stock(t, product.ID))
}

func TestNormalizePaymentMethod(t *testing.T) {
	method, err := normalizePaymentMethod("")
	require.NoError(t, err)
	require.Equal(t, repository.MethodCOD, method)

	method, err = normalizePaymentMethod(" upi ")
	require.NoError(t, err)
	require.Equal(t, repository.MethodUPI, method)

	_, err = normalizePaymentMethod("cheque")
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)
}
