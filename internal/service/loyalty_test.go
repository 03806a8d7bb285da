package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/repository"
)

func TestLoyaltyLedger(t *testing.T) {
	env := newShopEnv(t)
	admin := env.seedUser(t, "admin", 0)
	user := env.seedUser(t, "asha", 0)
	svc := NewLoyaltyService(env.store, nil, env.settings)

	empty, err := svc.Balance(env.ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, empty.PointsAvailable)

	_, err = svc.Earn(env.ctx, user.ID, 1000, "Order #ORD1 delivered", nil)
	require.NoError(t, err)

	_, err = svc.Redeem(env.ctx, user.ID, 1500, "too much", nil)
	require.ErrorIs(t, err, ErrInsufficientPoints)

	bal, err := svc.Redeem(env.ctx, user.ID, 400, "checkout", nil)
	require.NoError(t, err)
	require.Equal(t, int64(600), bal.PointsAvailable)
	require.True(t, bal.Value.Equal(dec("18")))

	// 退回先冲减已用积分
	bal, err = svc.Refund(env.ctx, user.ID, 100, "cancelled", nil)
	require.NoError(t, err)
	require.Equal(t, int64(1000), bal.TotalPoints)
	require.Equal(t, int64(300), bal.PointsUsed)

	bal, err = svc.Adjust(env.ctx, admin.ID, user.ID, -200, "")
	require.NoError(t, err)
	require.Equal(t, int64(500), bal.PointsAvailable)

	_, err = svc.Adjust(env.ctx, admin.ID, user.ID, -501, "")
	require.ErrorIs(t, err, ErrInsufficientPoints)
	_, err = svc.Adjust(env.ctx, admin.ID, user.ID, 0, "")
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.Earn(env.ctx, user.ID, -5, "", nil)
	require.ErrorIs(t, err, ErrValidation)

	history, page, err := svc.History(env.ctx, user.ID, 1)
	require.NoError(t, err)
	require.Equal(t, int64(4), page.Total)
	var sum int64
	kinds := map[string]int{}
	for _, tx := range history {
		sum += tx.Points
		kinds[tx.Type]++
	}
	require.Equal(t, int64(1000-400+100-200), sum)
	require.Equal(t, map[string]int{
		repository.PointsEarned:   1,
		repository.PointsRedeemed: 1,
		repository.PointsRefunded: 1,
		repository.PointsAdjusted: 1,
	}, kinds)
}

func TestPointsForAmount(t *testing.T) {
	require.Equal(t, int64(23364), pointsForAmount(dec("708"), 33))
	require.Equal(t, int64(33), pointsForAmount(dec("1.01"), 33))
	require.Zero(t, pointsForAmount(dec("0"), 33))
	require.Zero(t, pointsForAmount(dec("100"), 0))
}
