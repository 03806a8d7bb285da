package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/repository"
)

func (e *shopEnv) orders() OrderService {
	return NewOrderService(e.store, e.mail, nil, e.settings, nil, nil)
}

func (e *shopEnv) approvals() ApprovalService {
	return NewApprovalService(e.store, e.mail, nil, e.settings, nil, nil)
}

func TestApproveMovesOrderToProcessing(t *testing.T) {
	env := newShopEnv(t)
	admin := env.seedUser(t, "admin", 0)
	user := env.seedUser(t, "asha", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	order := env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodCOD)
	require.Equal(t, repository.ApprovalPending, order.ApprovalStatus)

	queue, page, err := env.approvals().Queue(env.ctx, 1)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Equal(t, int64(1), page.Total)

	count, err := env.approvals().Approve(env.ctx, admin.ID, []int64{order.ID, order.ID, 999}, "looks fine")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	got := env.reload(t, order.ID)
	require.Equal(t, repository.ApprovalApproved, got.ApprovalStatus)
	require.Equal(t, repository.OrderProcessing, got.OrderStatus)
	require.Equal(t, "looks fine", got.ApprovalNotes)
	require.NotNil(t, got.ApprovedBy)
	require.Equal(t, admin.ID, *got.ApprovedBy)

	// 已处理的订单不再计数
	count, err = env.approvals().Approve(env.ctx, admin.ID, []int64{order.ID}, "")
	require.NoError(t, err)
	require.Zero(t, count)
	require.Contains(t, env.mail.kinds(), "ORDER_"+repository.OrderProcessing)
}

func TestRejectReleasesStockAndPoints(t *testing.T) {
	env := newShopEnv(t)
	admin := env.seedUser(t, "admin", 0)
	user := env.seedUser(t, "asha", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	loyalty := NewLoyaltyService(env.store, nil, env.settings)
	_, err := loyalty.Earn(env.ctx, user.ID, 1000, "welcome", nil)
	require.NoError(t, err)

	order, err := env.checkout().PlaceOrder(env.ctx, user.ID, PlaceOrderInput{
		QuoteInput:      QuoteInput{BuyNowProductID: product.ID, BuyNowQuantity: 2, RedeemPoints: 500},
		ShippingAddress: "12 MG Road",
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), env.stock(t, product.ID))

	count, err := env.approvals().Reject(env.ctx, admin.ID, []int64{order.ID}, "fake address")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	got := env.reload(t, order.ID)
	require.Equal(t, repository.ApprovalRejected, got.ApprovalStatus)
	require.Equal(t, repository.OrderCancelled, got.OrderStatus)
	require.Equal(t, int64(5), env.stock(t, product.ID))

	balance, err := loyalty.Balance(env.ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1000), balance.PointsAvailable)
}

func TestAutoProcessKeepsRiskyOrdersPending(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	order := env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodCOD)

	got, err := env.approvals().AutoProcess(env.ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, repository.ApprovalPending, got.ApprovalStatus)
	require.Equal(t, 40, got.RiskScore)
}

func TestOrderLifecycleToDelivered(t *testing.T) {
	env := newShopEnv(t)
	admin := env.seedUser(t, "admin", 0)
	user := env.seedUser(t, "asha", 0)
	env.seedAddress(t, user.ID)
	product := env.seedProduct(t, "lamp", "300", 5)
	env.addToCart(t, user.ID, product.ID, 2)
	order, err := env.checkout().PlaceOrder(env.ctx, user.ID, PlaceOrderInput{})
	require.NoError(t, err)

	svc := env.orders()
	_, err = svc.UpdateStatus(env.ctx, admin.ID, order.ID, StatusUpdate{Status: repository.OrderProcessing})
	require.ErrorIs(t, err, ErrAwaitingApproval)

	_, err = env.approvals().Approve(env.ctx, admin.ID, []int64{order.ID}, "")
	require.NoError(t, err)

	shipped, err := svc.UpdateStatus(env.ctx, admin.ID, order.ID, StatusUpdate{Status: "shipped", CourierName: "BlueDart", TrackingNumber: "BD123"})
	require.NoError(t, err)
	require.Equal(t, repository.OrderShipped, shipped.OrderStatus)
	require.Equal(t, "BlueDart", shipped.CourierName)

	delivered, err := svc.UpdateStatus(env.ctx, admin.ID, order.ID, StatusUpdate{Status: repository.OrderDelivered})
	require.NoError(t, err)
	require.Equal(t, repository.PaymentPaid, delivered.PaymentStatus)
	require.NotNil(t, delivered.DeliveryDate)

	_, err = svc.UpdateStatus(env.ctx, admin.ID, order.ID, StatusUpdate{Status: repository.OrderCancelled})
	require.ErrorIs(t, err, ErrInvalidTransition)

	balance, err := NewLoyaltyService(env.store, nil, env.settings).Balance(env.ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(708*33), balance.TotalPoints)

	profile, err := env.store.Profiles().FindByUserID(env.ctx, user.ID)
	require.NoError(t, err)
	require.True(t, profile.TotalSpent.Equal(dec("708")))

	detail, err := svc.Get(env.ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, "success", detail.StatusColor)
	require.Empty(t, detail.NextStatuses)
	require.Len(t, detail.Items, 1)
	// 下单、审核、发货、送达
	require.Len(t, detail.History, 4)
	require.Contains(t, env.mail.kinds(), "ORDER_"+repository.OrderDelivered)
}

func TestCustomerCancel(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 0)
	other := env.seedUser(t, "other", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	order := env.placeBuyNow(t, user.ID, product.ID, 2, repository.MethodCOD)

	_, err := env.orders().Cancel(env.ctx, other.ID, order.OrderNumber, "")
	require.ErrorIs(t, err, ErrNotFound)

	cancelled, err := env.orders().Cancel(env.ctx, user.ID, order.OrderNumber, "changed my mind")
	require.NoError(t, err)
	require.Equal(t, repository.OrderCancelled, cancelled.OrderStatus)
	require.Equal(t, int64(5), env.stock(t, product.ID))

	_, err = env.orders().Cancel(env.ctx, user.ID, order.OrderNumber, "")
	require.ErrorIs(t, err, ErrOrderNotCancellable)

	detail, err := env.orders().GetForUser(env.ctx, user.ID, order.OrderNumber)
	require.NoError(t, err)
	require.False(t, detail.CanCancel)
	require.Equal(t, "danger", detail.StatusColor)
}

func TestAdminOrderListFilters(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 72*time.Hour)
	product := env.seedProduct(t, "lamp", "300", 10)
	env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodCOD)
	env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodOnline)

	list, page, err := env.orders().List(env.ctx, AdminOrderFilter{PaymentMethod: "online"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(1), page.Total)

	today := time.Now().UTC().Format(time.DateOnly)
	list, _, err = env.orders().List(env.ctx, AdminOrderFilter{From: today, To: today})
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestUpdatePaymentStatus(t *testing.T) {
	env := newShopEnv(t)
	admin := env.seedUser(t, "admin", 0)
	user := env.seedUser(t, "asha", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	order := env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodCOD)

	_, err := env.orders().UpdatePaymentStatus(env.ctx, admin.ID, order.ID, "settled", "")
	require.ErrorIs(t, err, ErrValidation)

	got, err := env.orders().UpdatePaymentStatus(env.ctx, admin.ID, order.ID, "paid", "cash collected")
	require.NoError(t, err)
	require.Equal(t, repository.PaymentPaid, got.PaymentStatus)

	history, err := env.orders().History(env.ctx, order.ID)
	require.NoError(t, err)
	require.Contains(t, history[len(history)-1].Notes, "cash collected")
}

func TestCanTransition(t *testing.T) {
	require.True(t, CanTransition(repository.OrderPending, repository.OrderProcessing))
	require.True(t, CanTransition(repository.OrderProcessing, repository.OrderShipped))
	require.False(t, CanTransition(repository.OrderDelivered, repository.OrderCancelled))
	require.False(t, CanTransition(repository.OrderCancelled, repository.OrderPending))
	require.False(t, CanTransition(repository.OrderPending, repository.OrderDelivered))
}
