// 文件路径: internal/service/risk.go
// 模块说明: 基于规则的订单风控评分：订单金额、支付方式、客户历史和购买数量。
package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creamcroissant/vibemall/internal/repository"
)

// 评分规则与权重。
var (
	riskValueHigh   = decimal.NewFromInt(50000)
	riskValueMedium = decimal.NewFromInt(20000)
	riskValueLow    = decimal.NewFromInt(10000)
)

const (
	riskWeightValueHigh     = 40
	riskWeightValueMedium   = 25
	riskWeightValueLow      = 10
	riskWeightCOD           = 15
	riskWeightNoDelivered   = 15
	riskWeightCancellations = 20
	riskWeightNewAccount    = 10
	riskWeightVelocity      = 20
	riskWeightBulkQuantity  = 15

	riskCancellationCount = 2
	riskVelocityCount     = 3
	riskBulkQuantity      = 10
	riskMaxScore          = 100
	riskWindow            = 24 * time.Hour
)

// RiskInput 是评分所需的订单与客户信息。
type RiskInput struct {
	Total            decimal.Decimal
	PaymentMethod    string
	Quantities       []int64
	Stats            repository.CustomerOrderStats
	AccountCreatedAt int64
	Blocked          bool
	Now              time.Time
}

// RiskAssessment 是评分结果。
type RiskAssessment struct {
	Score      int      `json:"score"`
	Reasons    []string `json:"reasons"`
	Suspicious bool     `json:"suspicious"`
}

// Reason joins the reasons for storage on the order.
func (a RiskAssessment) Reason() string {
	return strings.Join(a.Reasons, "; ")
}

// RiskScorer 计算订单风险分。
type RiskScorer struct {
	suspiciousThreshold int
}

// NewRiskScorer 使用给定可疑阈值构建评分器，<= 0 时取 70。
func NewRiskScorer(suspiciousThreshold int) RiskScorer {
	if suspiciousThreshold <= 0 {
		suspiciousThreshold = 70
	}
	return RiskScorer{suspiciousThreshold: suspiciousThreshold}
}

// Score 按规则累加分数，封禁客户直接 100，上限 100。
func (r RiskScorer) Score(in RiskInput) RiskAssessment {
	var (
		score   int
		reasons []string
	)
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	switch {
	case in.Total.GreaterThan(riskValueHigh):
		add(riskWeightValueHigh, fmt.Sprintf("High order value (over %s)", rupees(riskValueHigh)))
	case in.Total.GreaterThan(riskValueMedium):
		add(riskWeightValueMedium, fmt.Sprintf("Large order value (over %s)", rupees(riskValueMedium)))
	case in.Total.GreaterThan(riskValueLow):
		add(riskWeightValueLow, fmt.Sprintf("Order value over %s", rupees(riskValueLow)))
	}
	if in.PaymentMethod == repository.MethodCOD {
		add(riskWeightCOD, "Cash on delivery")
	}
	if in.Stats.Delivered == 0 {
		add(riskWeightNoDelivered, "No previously delivered orders")
	}
	if in.Stats.CancelledOrRejected >= riskCancellationCount {
		add(riskWeightCancellations, fmt.Sprintf("%d cancelled or rejected orders", in.Stats.CancelledOrRejected))
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	if in.AccountCreatedAt > 0 && now.Sub(time.Unix(in.AccountCreatedAt, 0)) < riskWindow {
		add(riskWeightNewAccount, "Account created within 24 hours")
	}
	if in.Stats.RecentOrders >= riskVelocityCount {
		add(riskWeightVelocity, fmt.Sprintf("%d orders in the last 24 hours", in.Stats.RecentOrders))
	}
	for _, qty := range in.Quantities {
		if qty > riskBulkQuantity {
			add(riskWeightBulkQuantity, fmt.Sprintf("Bulk quantity (more than %d units)", riskBulkQuantity))
			break
		}
	}
	if in.Blocked {
		score = riskMaxScore
		reasons = append(reasons, "Customer is blocked")
	}
	score = min(score, riskMaxScore)
	if reasons == nil {
		reasons = []string{}
	}
	return RiskAssessment{Score: score, Reasons: reasons, Suspicious: score >= r.suspiciousThreshold}
}

// RiskLabel 是后台列表中的风险展示文案。
func RiskLabel(score int, suspicious bool) string {
	switch {
	case suspicious:
		return fmt.Sprintf("Risk: %d%%", score)
	case score > 50:
		return fmt.Sprintf("Warning: %d%%", score)
	default:
		return "Safe"
	}
}

// RiskLevel 返回前端使用的颜色等级。
func RiskLevel(score int, suspicious bool) string {
	switch {
	case suspicious:
		return "danger"
	case score > 50:
		return "warning"
	default:
		return "success"
	}
}
