package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/repository"
)

func (e *shopEnv) returns() *returnService {
	return NewReturnService(e.store, e.mail, e.settings, nil, nil).(*returnService)
}

func TestReturnLifecycle(t *testing.T) {
	env := newShopEnv(t)
	admin := env.seedUser(t, "admin", 0)
	user := env.seedUser(t, "asha", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	order := env.placeBuyNow(t, user.ID, product.ID, 2, repository.MethodCOD)
	items, err := env.store.Orders().ListItems(env.ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	input := ReturnInput{OrderNumber: order.OrderNumber, OrderItemID: items[0].ID, Reason: "defective", Description: "cracked"}

	_, err = env.returns().Request(env.ctx, user.ID, input)
	require.ErrorIs(t, err, ErrReturnNotAllowed)

	env.deliver(t, admin.ID, order.ID)

	_, err = env.returns().Request(env.ctx, user.ID, ReturnInput{OrderNumber: order.OrderNumber, OrderItemID: items[0].ID, Reason: "bored"})
	require.ErrorIs(t, err, ErrValidation)

	ret, err := env.returns().Request(env.ctx, user.ID, input)
	require.NoError(t, err)
	require.Regexp(t, `^RET\d{8}001$`, ret.ReturnNumber)
	require.Equal(t, repository.ReturnRequested, ret.Status)
	require.Equal(t, repository.ReasonDefective, ret.Reason)

	_, err = env.returns().Request(env.ctx, user.ID, input)
	require.ErrorIs(t, err, ErrReturnExists)

	_, err = env.returns().MarkPickedUp(env.ctx, admin.ID, ret.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	approved, err := env.returns().Approve(env.ctx, admin.ID, ret.ID, "schedule pickup", time.Now().Add(24*time.Hour).Unix())
	require.NoError(t, err)
	require.Equal(t, repository.ReturnApproved, approved.Status)
	require.NotNil(t, approved.PickupDate)

	_, err = env.returns().Refund(env.ctx, admin.ID, ret.ID, "601", "store_credit")
	require.ErrorIs(t, err, ErrInvalidRefund)
	_, err = env.returns().Refund(env.ctx, admin.ID, ret.ID, "-1", "")
	require.ErrorIs(t, err, ErrInvalidRefund)

	before, err := NewLoyaltyService(env.store, nil, env.settings).Balance(env.ctx, user.ID)
	require.NoError(t, err)

	refunded, err := env.returns().Refund(env.ctx, admin.ID, ret.ID, "600", "store_credit")
	require.NoError(t, err)
	require.Equal(t, repository.ReturnRefunded, refunded.Status)
	require.Equal(t, repository.RefundStoreCredit, refunded.RefundMethod)
	require.True(t, refunded.RefundAmount.Valid)

	after, err := NewLoyaltyService(env.store, nil, env.settings).Balance(env.ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, before.PointsAvailable+20000, after.PointsAvailable)
	require.Equal(t, repository.PaymentRefunded, env.reload(t, order.ID).PaymentStatus)

	mine, page, err := env.returns().ListForUser(env.ctx, user.ID, 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, int64(1), page.Total)
	require.Contains(t, env.mail.kinds(), EmailReturnUpdate)
}

func TestReturnAfterRejectionAndWindow(t *testing.T) {
	env := newShopEnv(t)
	admin := env.seedUser(t, "admin", 0)
	user := env.seedUser(t, "asha", 0)
	other := env.seedUser(t, "other", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	order := env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodCOD)
	env.deliver(t, admin.ID, order.ID)
	items, err := env.store.Orders().ListItems(env.ctx, order.ID)
	require.NoError(t, err)
	input := ReturnInput{OrderNumber: order.OrderNumber, OrderItemID: items[0].ID, Reason: repository.ReasonSizeIssue}

	_, err = env.returns().Request(env.ctx, other.ID, input)
	require.ErrorIs(t, err, ErrNotFound)

	ret, err := env.returns().Request(env.ctx, user.ID, input)
	require.NoError(t, err)
	_, err = env.returns().Reject(env.ctx, admin.ID, ret.ID, "worn")
	require.NoError(t, err)

	// 被拒绝后可以重新申请
	_, err = env.returns().Request(env.ctx, user.ID, input)
	require.NoError(t, err)

	late := env.returns()
	late.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err = late.Request(env.ctx, user.ID, input)
	require.ErrorIs(t, err, ErrReturnNotAllowed)

	_, err = env.returns().GetForUser(env.ctx, other.ID, ret.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
