package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/creamcroissant/vibemall/internal/events"
	"github.com/creamcroissant/vibemall/internal/notifier"
	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/security"
)

// ApprovalService 处理待审核订单。
type ApprovalService interface {
	Queue(ctx context.Context, page int) ([]repository.Order, Page, error)
	AutoProcess(ctx context.Context, orderID int64) (*repository.Order, error)
	Approve(ctx context.Context, actorID int64, ids []int64, notes string) (int, error)
	Reject(ctx context.Context, actorID int64, ids []int64, notes string) (int, error)
}

type approvalService struct {
	store    repository.Store
	audit    security.Recorder
	settings ShopSettings
	scorer   RiskScorer
	flow     *orderFlow
	mailer   *orderMailer
	metrics  *Metrics
	now      func() time.Time
}

// NewApprovalService 组装审核服务。
func NewApprovalService(store repository.Store, mail notifier.Service, audit security.Recorder, settings ShopSettings, metrics *Metrics, logger *slog.Logger) ApprovalService {
	mailer := newOrderMailer(mail, settings.Name, logger)
	return &approvalService{
		store:    store,
		audit:    audit,
		settings: settings,
		scorer:   NewRiskScorer(settings.SuspiciousThreshold),
		flow:     newOrderFlow(settings, mailer, metrics),
		mailer:   mailer,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Queue 列出待审核订单，最新的在前。
func (s *approvalService) Queue(ctx context.Context, page int) ([]repository.Order, Page, error) {
	if s == nil || s.store == nil {
		return nil, Page{}, fmt.Errorf("approval service not configured / 审核服务未配置")
	}
	p := newPage(page, 20)
	filter := repository.OrderFilter{ApprovalStatus: repository.ApprovalPending, Limit: p.Size, Offset: p.Offset()}
	list, total, err := s.store.Orders().List(ctx, filter)
	if err != nil {
		return nil, Page{}, err
	}
	if list == nil {
		list = []repository.Order{}
	}
	return list, p.withTotal(total), nil
}

// AutoProcess 重新评分一张待审核订单，风险降到阈值以下时自动通过。
func (s *approvalService) AutoProcess(ctx context.Context, orderID int64) (*repository.Order, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("approval service not configured / 审核服务未配置")
	}
	var (
		order *repository.Order
		mails []notifier.EmailRequest
	)
	now := s.now()
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().FindByID(ctx, orderID)
		if err != nil {
			return mapNotFound(err)
		}
		if order.ApprovalStatus != repository.ApprovalPending {
			return nil
		}
		items, err := tx.Orders().ListItems(ctx, order.ID)
		if err != nil {
			return err
		}
		user, err := tx.Users().FindByID(ctx, order.UserID)
		if err != nil {
			return mapNotFound(err)
		}
		blocked := false
		if profile, err := tx.Profiles().FindByUserID(ctx, order.UserID); err == nil {
			blocked = profile.IsBlocked
		}
		since := now.Add(-riskWindow).Unix()
		stats, err := tx.Orders().CustomerStats(ctx, order.UserID, since)
		if err != nil {
			return err
		}
		// 当前订单本身不计入近 24 小时下单数
		if order.CreatedAt >= since {
			stats.RecentOrders = max(stats.RecentOrders-1, 0)
		}
		quantities := make([]int64, 0, len(items))
		for _, item := range items {
			quantities = append(quantities, item.Quantity)
		}
		risk := s.scorer.Score(RiskInput{
			Total:            order.TotalAmount,
			PaymentMethod:    order.PaymentMethod,
			Quantities:       quantities,
			Stats:            stats,
			AccountCreatedAt: user.CreatedAt,
			Blocked:          blocked,
			Now:              now,
		})
		order.RiskScore = risk.Score
		order.IsSuspicious = risk.Suspicious
		order.SuspiciousReason = risk.Reason()
		order.UpdatedAt = now.Unix()
		if risk.Suspicious || risk.Score >= s.settings.AutoApproveBelow {
			return mapNotFound(tx.Orders().Update(ctx, order))
		}

		at := now.Unix()
		order.ApprovalStatus = repository.ApprovalAutoApproved
		order.ApprovalNotes = fmt.Sprintf("Auto-approved (risk score %d)", risk.Score)
		order.ApprovedAt = &at
		if order.OrderStatus == repository.OrderPending &&
			(order.PaymentMethod == repository.MethodCOD || order.PaymentStatus == repository.PaymentPaid) {
			order.Items = items
			mails, err = s.flow.transition(ctx, tx, order, repository.OrderProcessing, nil, "Auto-approved", now)
			if err != nil {
				return err
			}
		} else if err := tx.Orders().Update(ctx, order); err != nil {
			return mapNotFound(err)
		}
		return s.flow.emit(ctx, tx, events.TopicOrderApproved, order, "", nil, now)
	})
	if err != nil {
		return nil, err
	}
	s.mailer.send(ctx, mails...)
	if order.ApprovalStatus == repository.ApprovalAutoApproved {
		s.metrics.approval("auto", 1)
	}
	return order, nil
}

// Approve 只处理 PENDING_APPROVAL 的订单，返回实际通过的数量。
func (s *approvalService) Approve(ctx context.Context, actorID int64, ids []int64, notes string) (int, error) {
	if s == nil || s.store == nil {
		return 0, fmt.Errorf("approval service not configured / 审核服务未配置")
	}
	return s.decide(ctx, actorID, ids, notes, true)
}

// Reject 拒绝待审核订单：订单取消、库存回补、积分退回。
func (s *approvalService) Reject(ctx context.Context, actorID int64, ids []int64, notes string) (int, error) {
	if s == nil || s.store == nil {
		return 0, fmt.Errorf("approval service not configured / 审核服务未配置")
	}
	return s.decide(ctx, actorID, ids, notes, false)
}

func (s *approvalService) decide(ctx context.Context, actorID int64, ids []int64, notes string, approve bool) (int, error) {
	notes = sanitizeText(notes)
	var (
		count int
		mails []notifier.EmailRequest
	)
	for _, id := range uniqueIDs(ids) {
		now := s.now()
		changed := false
		err := s.store.InTx(ctx, func(tx repository.Store) error {
			order, err := tx.Orders().FindByID(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if order.ApprovalStatus != repository.ApprovalPending {
				return nil
			}
			at := now.Unix()
			order.ApprovedBy = int64Ptr(actorID)
			order.ApprovedAt = &at
			order.ApprovalNotes = notes

			var (
				next  = repository.OrderProcessing
				topic = events.TopicOrderApproved
				label = "Approved"
			)
			order.ApprovalStatus = repository.ApprovalApproved
			if !approve {
				next = repository.OrderCancelled
				topic = events.TopicOrderRejected
				label = "Rejected"
				order.ApprovalStatus = repository.ApprovalRejected
			}
			historyNotes := label
			if notes != "" {
				historyNotes = label + ": " + notes
			}

			var sent []notifier.EmailRequest
			if order.OrderStatus == next || !CanTransition(order.OrderStatus, next) {
				order.UpdatedAt = at
				if err := tx.Orders().Update(ctx, order); err != nil {
					return mapNotFound(err)
				}
			} else if sent, err = s.flow.transition(ctx, tx, order, next, int64Ptr(actorID), historyNotes, now); err != nil {
				return err
			}
			if err := s.flow.emit(ctx, tx, topic, order, "", int64Ptr(actorID), now); err != nil {
				return err
			}
			mails = append(mails, sent...)
			changed = true
			return nil
		})
		if err != nil {
			return count, fmt.Errorf("decide order %d: %w", id, err)
		}
		if !changed {
			continue
		}
		count++
		if s.audit != nil {
			kind := security.KindOrderApproved
			if !approve {
				kind = security.KindOrderRejected
			}
			s.audit.Record(ctx, security.Event{
				Kind:     kind,
				ActorID:  actorID,
				TargetID: id,
				Metadata: map[string]any{"notes": notes},
				Occurred: now,
			})
		}
	}
	s.mailer.send(ctx, mails...)
	outcome := "approved"
	if !approve {
		outcome = "rejected"
	}
	s.metrics.approval(outcome, count)
	return count, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ParseIDs 解析以逗号或空白分隔的订单 ID 列表。
func ParseIDs(raw string) []int64 {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' })
	out := make([]int64, 0, len(fields))
	for _, f := range fields {
		if n, err := strconv.ParseInt(f, 10, 64); err == nil && n > 0 {
			out = append(out, n)
		}
	}
	return out
}
