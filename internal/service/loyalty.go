package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/security"
)

// LoyaltyService 维护积分账户。每次余额变化都在同一事务内写一条流水。
type LoyaltyService interface {
	Balance(ctx context.Context, userID int64) (*LoyaltyBalance, error)
	History(ctx context.Context, userID int64, page int) ([]repository.PointsTransaction, Page, error)
	Earn(ctx context.Context, userID, points int64, description string, orderID *int64) (*LoyaltyBalance, error)
	Redeem(ctx context.Context, userID, points int64, description string, orderID *int64) (*LoyaltyBalance, error)
	Refund(ctx context.Context, userID, points int64, description string, orderID *int64) (*LoyaltyBalance, error)
	Adjust(ctx context.Context, actorID, userID, delta int64, description string) (*LoyaltyBalance, error)
}

// LoyaltyBalance 是积分账户视图。
type LoyaltyBalance struct {
	UserID          int64           `json:"user_id"`
	TotalPoints     int64           `json:"total_points"`
	PointsUsed      int64           `json:"points_used"`
	PointsAvailable int64           `json:"points_available"`
	Value           decimal.Decimal `json:"value"`
	UpdatedAt       int64           `json:"updated_at"`
}

type loyaltyService struct {
	store    repository.Store
	audit    security.Recorder
	settings ShopSettings
	now      func() time.Time
}

// NewLoyaltyService 组装积分服务。
func NewLoyaltyService(store repository.Store, audit security.Recorder, settings ShopSettings) LoyaltyService {
	return &loyaltyService{store: store, audit: audit, settings: settings, now: time.Now}
}

func (s *loyaltyService) Balance(ctx context.Context, userID int64) (*LoyaltyBalance, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("loyalty service not configured / 积分服务未配置")
	}
	account, err := s.store.Loyalty().FindAccount(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		account = &repository.LoyaltyAccount{UserID: userID}
	} else if err != nil {
		return nil, err
	}
	return s.view(account), nil
}

func (s *loyaltyService) History(ctx context.Context, userID int64, page int) ([]repository.PointsTransaction, Page, error) {
	if s == nil || s.store == nil {
		return nil, Page{}, fmt.Errorf("loyalty service not configured / 积分服务未配置")
	}
	p := newPage(page, 20)
	list, total, err := s.store.Loyalty().ListTransactions(ctx, userID, p.Size, p.Offset())
	if err != nil {
		return nil, Page{}, err
	}
	if list == nil {
		list = []repository.PointsTransaction{}
	}
	return list, p.withTotal(total), nil
}

func (s *loyaltyService) Earn(ctx context.Context, userID, points int64, description string, orderID *int64) (*LoyaltyBalance, error) {
	return s.apply(ctx, userID, repository.PointsEarned, points, description, orderID)
}

// Redeem 扣减可用积分，超过余额返回 ErrInsufficientPoints。
func (s *loyaltyService) Redeem(ctx context.Context, userID, points int64, description string, orderID *int64) (*LoyaltyBalance, error) {
	return s.apply(ctx, userID, repository.PointsRedeemed, points, description, orderID)
}

func (s *loyaltyService) Refund(ctx context.Context, userID, points int64, description string, orderID *int64) (*LoyaltyBalance, error) {
	return s.apply(ctx, userID, repository.PointsRefunded, points, description, orderID)
}

// Adjust 由后台手工调整，delta 可正可负，扣减不能超过可用积分。
func (s *loyaltyService) Adjust(ctx context.Context, actorID, userID, delta int64, description string) (*LoyaltyBalance, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("loyalty service not configured / 积分服务未配置")
	}
	if delta == 0 {
		return nil, fmt.Errorf("%w: adjustment must not be zero / 调整积分不能为 0", ErrValidation)
	}
	if _, err := s.store.Users().FindByID(ctx, userID); err != nil {
		return nil, mapNotFound(err)
	}
	desc := strings.TrimSpace(description)
	if desc == "" {
		desc = "Manual adjustment"
	}
	var account *repository.LoyaltyAccount
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		account, err = applyPoints(ctx, tx, userID, repository.PointsAdjusted, delta, desc, nil, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Record(ctx, security.Event{
			Kind:     security.KindPointsAdjusted,
			ActorID:  actorID,
			TargetID: userID,
			Metadata: map[string]any{"delta": delta, "description": desc},
			Occurred: s.now(),
		})
	}
	return s.view(account), nil
}

func (s *loyaltyService) apply(ctx context.Context, userID int64, kind string, points int64, description string, orderID *int64) (*LoyaltyBalance, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("loyalty service not configured / 积分服务未配置")
	}
	if points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive / 积分必须为正数", ErrValidation)
	}
	var account *repository.LoyaltyAccount
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		account, err = applyPoints(ctx, tx, userID, kind, points, strings.TrimSpace(description), orderID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.view(account), nil
}

func (s *loyaltyService) view(a *repository.LoyaltyAccount) *LoyaltyBalance {
	available := a.PointsAvailable()
	return &LoyaltyBalance{
		UserID:          a.UserID,
		TotalPoints:     a.TotalPoints,
		PointsUsed:      a.PointsUsed,
		PointsAvailable: available,
		Value:           s.settings.PointValue.Mul(decimal.NewFromInt(available)).Round(2),
		UpdatedAt:       a.UpdatedAt,
	}
}

// applyPoints 在事务内修改余额并写一条流水：
// EARNED 增加 total；REDEEMED 增加 used（流水为负）；
// REFUNDED 优先冲回 used，不足部分记为 total；ADJUSTED 正数增加 total，负数增加 used。
func applyPoints(ctx context.Context, tx repository.Store, userID int64, kind string, points int64, description string, orderID *int64, now time.Time) (*repository.LoyaltyAccount, error) {
	current, err := tx.Loyalty().FindAccount(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		current = &repository.LoyaltyAccount{UserID: userID}
	} else if err != nil {
		return nil, err
	}

	var totalDelta, usedDelta, signed int64
	switch kind {
	case repository.PointsEarned:
		totalDelta, signed = points, points
	case repository.PointsRedeemed:
		if points > current.PointsAvailable() {
			return nil, ErrInsufficientPoints
		}
		usedDelta, signed = points, -points
	case repository.PointsRefunded:
		back := min(points, current.PointsUsed)
		usedDelta = -back
		totalDelta = points - back
		signed = points
	case repository.PointsAdjusted:
		signed = points
		if points >= 0 {
			totalDelta = points
		} else {
			if -points > current.PointsAvailable() {
				return nil, ErrInsufficientPoints
			}
			usedDelta = -points
		}
	default:
		return nil, fmt.Errorf("unknown points transaction type %q", kind)
	}

	at := now.Unix()
	account, err := tx.Loyalty().Apply(ctx, userID, totalDelta, usedDelta, at)
	if err != nil {
		return nil, fmt.Errorf("apply points: %w", err)
	}
	if err := tx.Loyalty().AddTransaction(ctx, &repository.PointsTransaction{
		UserID:      userID,
		Points:      signed,
		Type:        kind,
		Description: description,
		OrderID:     orderID,
		CreatedAt:   at,
	}); err != nil {
		return nil, fmt.Errorf("record points transaction: %w", err)
	}
	return account, nil
}

// pointsForAmount = floor(amount × pointsPerRupee)。
func pointsForAmount(amount decimal.Decimal, perRupee int64) int64 {
	if !amount.IsPositive() || perRupee <= 0 {
		return 0
	}
	return amount.Mul(decimal.NewFromInt(perRupee)).Floor().IntPart()
}
