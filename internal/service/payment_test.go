package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/repository"
)

func (e *shopEnv) payments() PaymentService {
	return NewPaymentService(e.store, e.mail, nil, e.settings, nil, nil)
}

func TestPaymentConfirmFlow(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "veteran", 72*time.Hour)
	other := env.seedUser(t, "other", 0)
	product := env.seedProduct(t, "desk", "1200", 3)
	order := env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodOnline)
	require.Equal(t, repository.ApprovalAutoApproved, order.ApprovalStatus)

	_, err := env.payments().CreateGatewayOrder(env.ctx, other.ID, order.OrderNumber)
	require.ErrorIs(t, err, ErrNotFound)

	gw, err := env.payments().CreateGatewayOrder(env.ctx, user.ID, order.OrderNumber)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(gw.GatewayOrderID, "order_"))
	require.Equal(t, int64(141600), gw.AmountPaise)
	require.Equal(t, "INR", gw.Currency)
	require.Equal(t, "rzp_test_key", gw.KeyID)

	again, err := env.payments().CreateGatewayOrder(env.ctx, user.ID, order.OrderNumber)
	require.NoError(t, err)
	require.Equal(t, gw.GatewayOrderID, again.GatewayOrderID)

	_, err = env.payments().Confirm(env.ctx, user.ID, PaymentConfirmation{GatewayOrderID: gw.GatewayOrderID, PaymentID: "pay_1", Signature: "bogus"})
	require.ErrorIs(t, err, ErrInvalidSignature)
	require.Equal(t, repository.PaymentFailed, env.reload(t, order.ID).PaymentStatus)

	sig := Sign(env.settings.PaymentKeySecret, gw.GatewayOrderID, "pay_2")
	paid, err := env.payments().Confirm(env.ctx, user.ID, PaymentConfirmation{GatewayOrderID: gw.GatewayOrderID, PaymentID: "pay_2", Signature: sig})
	require.NoError(t, err)
	require.Equal(t, repository.PaymentPaid, paid.PaymentStatus)
	require.Equal(t, repository.OrderProcessing, paid.OrderStatus)
	require.Equal(t, "pay_2", paid.PaymentID)

	_, err = env.payments().Confirm(env.ctx, user.ID, PaymentConfirmation{GatewayOrderID: gw.GatewayOrderID, PaymentID: "pay_2", Signature: sig})
	require.ErrorIs(t, err, ErrPaymentNotPending)
	_, err = env.payments().CreateGatewayOrder(env.ctx, user.ID, order.OrderNumber)
	require.ErrorIs(t, err, ErrPaymentNotPending)
}

func TestPaymentConfirmRejectsCancelledOrder(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "veteran", 72*time.Hour)
	product := env.seedProduct(t, "desk", "1200", 3)
	order := env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodOnline)

	gw, err := env.payments().CreateGatewayOrder(env.ctx, user.ID, order.OrderNumber)
	require.NoError(t, err)
	_, err = env.orders().Cancel(env.ctx, user.ID, order.OrderNumber, "changed my mind")
	require.NoError(t, err)

	sig := Sign(env.settings.PaymentKeySecret, gw.GatewayOrderID, "pay_late")
	_, err = env.payments().Confirm(env.ctx, user.ID, PaymentConfirmation{GatewayOrderID: gw.GatewayOrderID, PaymentID: "pay_late", Signature: sig})
	require.ErrorIs(t, err, ErrPaymentNotPending)

	reloaded := env.reload(t, order.ID)
	require.Equal(t, repository.OrderCancelled, reloaded.OrderStatus)
	require.NotEqual(t, repository.PaymentPaid, reloaded.PaymentStatus)
	require.Empty(t, reloaded.PaymentID)
}

func TestPaymentRejectsCODAndMissingKeys(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 0)
	product := env.seedProduct(t, "lamp", "300", 3)
	order := env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodCOD)

	_, err := env.payments().CreateGatewayOrder(env.ctx, user.ID, order.OrderNumber)
	require.ErrorIs(t, err, ErrPaymentNotPending)

	env.settings.PaymentKeySecret = ""
	_, err = env.payments().CreateGatewayOrder(env.ctx, user.ID, order.OrderNumber)
	require.ErrorIs(t, err, ErrPaymentNotConfigured)
	_, err = env.payments().Confirm(env.ctx, user.ID, PaymentConfirmation{GatewayOrderID: "x", PaymentID: "y", Signature: "z"})
	require.ErrorIs(t, err, ErrPaymentNotConfigured)
}

func TestVerifySignature(t *testing.T) {
	sig := Sign("secret", "order_abc", "pay_1")
	require.Len(t, sig, 64)
	require.True(t, VerifySignature("secret", "order_abc", "pay_1", sig))
	require.False(t, VerifySignature("secret", "order_abc", "pay_2", sig))
	require.False(t, VerifySignature("other", "order_abc", "pay_1", sig))
}
