package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/repository"
)

func TestRiskScorer(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	old := now.Add(-30 * 24 * time.Hour).Unix()
	scorer := NewRiskScorer(0)

	cases := []struct {
		name       string
		in         RiskInput
		score      int
		suspicious bool
	}{
		{
			name:  "returning online customer",
			in:    RiskInput{Total: dec("999"), PaymentMethod: repository.MethodOnline, Stats: repository.CustomerOrderStats{Delivered: 3}, AccountCreatedAt: old, Now: now},
			score: 0,
		},
		{
			name:  "first cod order from new account",
			in:    RiskInput{Total: dec("708"), PaymentMethod: repository.MethodCOD, AccountCreatedAt: now.Add(-time.Hour).Unix(), Now: now},
			score: riskWeightCOD + riskWeightNoDelivered + riskWeightNewAccount,
		},
		{
			name: "high value bulk order with history of cancellations",
			in: RiskInput{
				Total:            dec("60000"),
				PaymentMethod:    repository.MethodCOD,
				Quantities:       []int64{1, 12},
				Stats:            repository.CustomerOrderStats{CancelledOrRejected: 2, RecentOrders: 3},
				AccountCreatedAt: old,
				Now:              now,
			},
			score:      riskMaxScore,
			suspicious: true,
		},
		{
			name:       "blocked customer",
			in:         RiskInput{Total: dec("10"), PaymentMethod: repository.MethodOnline, Stats: repository.CustomerOrderStats{Delivered: 1}, Blocked: true, Now: now},
			score:      riskMaxScore,
			suspicious: true,
		},
		{
			name:  "medium value",
			in:    RiskInput{Total: dec("25000"), PaymentMethod: repository.MethodCard, Stats: repository.CustomerOrderStats{Delivered: 1}, AccountCreatedAt: old, Now: now},
			score: riskWeightValueMedium,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := scorer.Score(tc.in)
			require.Equal(t, tc.score, got.Score)
			require.Equal(t, tc.suspicious, got.Suspicious)
		})
	}
}

func TestRiskScorerReasons(t *testing.T) {
	got := NewRiskScorer(70).Score(RiskInput{Total: dec("15000"), PaymentMethod: repository.MethodCOD, Stats: repository.CustomerOrderStats{Delivered: 1}})
	require.Equal(t, riskWeightValueLow+riskWeightCOD, got.Score)
	require.Equal(t, "Order value over ₹10000.00; Cash on delivery", got.Reason())
}

func TestRiskLabel(t *testing.T) {
	require.Equal(t, "Risk: 80%", RiskLabel(80, true))
	require.Equal(t, "Warning: 55%", RiskLabel(55, false))
	require.Equal(t, "Safe", RiskLabel(40, false))
	require.Equal(t, "danger", RiskLevel(80, true))
	require.Equal(t, "success", RiskLevel(10, false))
}
