// 文件路径: internal/service/return.go
// 模块说明: 退货申请。送达后 7 天内可申请，每件明细同时只有一个有效申请。
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creamcroissant/vibemall/internal/notifier"
	"github.com/creamcroissant/vibemall/internal/repository"
)

// ReturnService 处理退货申请与退款。
type ReturnService interface {
	Request(ctx context.Context, userID int64, input ReturnInput) (*repository.ReturnRequest, error)
	ListForUser(ctx context.Context, userID int64, page int) ([]repository.ReturnRequest, Page, error)
	GetForUser(ctx context.Context, userID, id int64) (*repository.ReturnRequest, error)

	List(ctx context.Context, status string, page int) ([]repository.ReturnRequest, Page, error)
	Approve(ctx context.Context, actorID, id int64, notes string, pickupDate int64) (*repository.ReturnRequest, error)
	Reject(ctx context.Context, actorID, id int64, notes string) (*repository.ReturnRequest, error)
	MarkPickedUp(ctx context.Context, actorID, id int64) (*repository.ReturnRequest, error)
	Refund(ctx context.Context, actorID, id int64, amount, method string) (*repository.ReturnRequest, error)
}

// ReturnInput 是退货申请表单。
type ReturnInput struct {
	OrderNumber string `json:"order_number"`
	OrderItemID int64  `json:"order_item_id"`
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

type returnService struct {
	store    repository.Store
	settings ShopSettings
	flow     *orderFlow
	mailer   *orderMailer
	metrics  *Metrics
	now      func() time.Time
}

// NewReturnService 组装退货服务。
func NewReturnService(store repository.Store, mail notifier.Service, settings ShopSettings, metrics *Metrics, logger *slog.Logger) ReturnService {
	mailer := newOrderMailer(mail, settings.Name, logger)
	return &returnService{
		store:    store,
		settings: settings,
		flow:     newOrderFlow(settings, mailer, metrics),
		mailer:   mailer,
		metrics:  metrics,
		now:      time.Now,
	}
}

func (s *returnService) Request(ctx context.Context, userID int64, input ReturnInput) (*repository.ReturnRequest, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("return service not configured / 退货服务未配置")
	}
	reason := strings.ToUpper(strings.TrimSpace(input.Reason))
	if !validReturnReason(reason) {
		return nil, fmt.Errorf("%w: unknown return reason / 退货原因无效", ErrValidation)
	}
	var (
		ret   *repository.ReturnRequest
		order *repository.Order
	)
	now := s.now()
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().FindByNumber(ctx, input.OrderNumber)
		if err != nil {
			return mapNotFound(err)
		}
		if order.UserID != userID {
			return ErrNotFound
		}
		item, err := tx.Orders().FindItem(ctx, input.OrderItemID)
		if err != nil {
			return mapNotFound(err)
		}
		if item.OrderID != order.ID {
			return ErrNotFound
		}
		if !s.withinWindow(order, now) {
			return ErrReturnNotAllowed
		}
		open, err := tx.Returns().HasOpenForItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if open {
			return ErrReturnExists
		}
		number, err := nextNumber(ctx, tx.Sequences(), "RET", now)
		if err != nil {
			return err
		}
		ret, err = tx.Returns().Create(ctx, &repository.ReturnRequest{
			ReturnNumber: number,
			OrderID:      order.ID,
			OrderItemID:  item.ID,
			UserID:       userID,
			Reason:       reason,
			Description:  sanitizeText(input.Description),
			Status:       repository.ReturnRequested,
			CreatedAt:    now.Unix(),
			UpdatedAt:    now.Unix(),
		})
		if err != nil {
			return err
		}
		return s.flow.notify(ctx, tx, userID, repository.NotifyReturnUpdate, "Return Requested",
			fmt.Sprintf("Return %s for %s has been submitted.", ret.ReturnNumber, item.ProductName), "/returns", now)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.returnRequested()
	s.mailer.send(ctx, s.mailer.returnUpdate(order, ret, "We have received your return request and will review it shortly."))
	return ret, nil
}

func (s *returnService) withinWindow(order *repository.Order, now time.Time) bool {
	if order.OrderStatus != repository.OrderDelivered || order.DeliveryDate == nil {
		return false
	}
	days := s.settings.ReturnWindowDays
	if days <= 0 {
		days = 7
	}
	deadline := time.Unix(*order.DeliveryDate, 0).Add(time.Duration(days) * 24 * time.Hour)
	return !now.After(deadline)
}

func (s *returnService) ListForUser(ctx context.Context, userID int64, page int) ([]repository.ReturnRequest, Page, error) {
	if s == nil || s.store == nil {
		return nil, Page{}, fmt.Errorf("return service not configured / 退货服务未配置")
	}
	return s.list(ctx, repository.ReturnFilter{UserID: &userID}, page)
}

func (s *returnService) GetForUser(ctx context.Context, userID, id int64) (*repository.ReturnRequest, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("return service not configured / 退货服务未配置")
	}
	ret, err := s.store.Returns().FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if ret.UserID != userID {
		return nil, ErrNotFound
	}
	return ret, nil
}

func (s *returnService) List(ctx context.Context, status string, page int) ([]repository.ReturnRequest, Page, error) {
	if s == nil || s.store == nil {
		return nil, Page{}, fmt.Errorf("return service not configured / 退货服务未配置")
	}
	return s.list(ctx, repository.ReturnFilter{Status: strings.ToUpper(strings.TrimSpace(status))}, page)
}

func (s *returnService) list(ctx context.Context, filter repository.ReturnFilter, page int) ([]repository.ReturnRequest, Page, error) {
	p := newPage(page, 20)
	filter.Limit = p.Size
	filter.Offset = p.Offset()
	list, total, err := s.store.Returns().List(ctx, filter)
	if err != nil {
		return nil, Page{}, err
	}
	if list == nil {
		list = []repository.ReturnRequest{}
	}
	return list, p.withTotal(total), nil
}

func (s *returnService) Approve(ctx context.Context, actorID, id int64, notes string, pickupDate int64) (*repository.ReturnRequest, error) {
	return s.advance(ctx, id, repository.ReturnApproved, "Your return request has been approved.", func(_ repository.Store, ret *repository.ReturnRequest, _ *repository.Order, _ time.Time) error {
		ret.AdminNotes = sanitizeText(notes)
		if pickupDate > 0 {
			ret.PickupDate = int64Ptr(pickupDate)
		}
		return nil
	})
}

func (s *returnService) Reject(ctx context.Context, actorID, id int64, notes string) (*repository.ReturnRequest, error) {
	return s.advance(ctx, id, repository.ReturnRejected, "Your return request has been rejected.", func(_ repository.Store, ret *repository.ReturnRequest, _ *repository.Order, _ time.Time) error {
		ret.AdminNotes = sanitizeText(notes)
		return nil
	})
}

func (s *returnService) MarkPickedUp(ctx context.Context, actorID, id int64) (*repository.ReturnRequest, error) {
	return s.advance(ctx, id, repository.ReturnPickedUp, "Your return has been picked up.", func(_ repository.Store, ret *repository.ReturnRequest, _ *repository.Order, now time.Time) error {
		if ret.PickupDate == nil {
			ret.PickupDate = int64Ptr(now.Unix())
		}
		return nil
	})
}

// Refund 金额不能超过明细小计；整单退完时订单付款状态改为 REFUNDED；
// STORE_CREDIT 按积分价值折算为积分。
func (s *returnService) Refund(ctx context.Context, actorID, id int64, amount, method string) (*repository.ReturnRequest, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || !value.IsPositive() {
		return nil, ErrInvalidRefund
	}
	value = value.Round(2)
	method = strings.ToUpper(strings.TrimSpace(method))
	switch method {
	case "":
		method = repository.RefundOriginal
	case repository.RefundOriginal, repository.RefundStoreCredit, repository.RefundBank:
	default:
		return nil, fmt.Errorf("%w: unknown refund method / 退款方式无效", ErrValidation)
	}
	message := fmt.Sprintf("Your refund of %s has been processed.", rupees(value))
	return s.advance(ctx, id, repository.ReturnRefunded, message, func(tx repository.Store, ret *repository.ReturnRequest, order *repository.Order, now time.Time) error {
		item, err := tx.Orders().FindItem(ctx, ret.OrderItemID)
		if err != nil {
			return mapNotFound(err)
		}
		if value.GreaterThan(item.Subtotal) {
			return ErrInvalidRefund
		}
		at := now.Unix()
		ret.RefundAmount = decimal.NewNullDecimal(value)
		ret.RefundMethod = method
		ret.RefundDate = &at

		if method == repository.RefundStoreCredit && s.settings.PointValue.IsPositive() {
			points := value.Div(s.settings.PointValue).Floor().IntPart()
			if points > 0 {
				desc := fmt.Sprintf("Store credit for return %s", ret.ReturnNumber)
				if _, err := applyPoints(ctx, tx, ret.UserID, repository.PointsRefunded, points, desc, int64Ptr(order.ID), now); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// advance 推进退货状态并在事务提交后发送通知邮件。
func (s *returnService) advance(ctx context.Context, id int64, next, message string,
	mutate func(tx repository.Store, ret *repository.ReturnRequest, order *repository.Order, now time.Time) error) (*repository.ReturnRequest, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("return service not configured / 退货服务未配置")
	}
	var (
		ret   *repository.ReturnRequest
		order *repository.Order
	)
	now := s.now()
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		ret, err = tx.Returns().FindByID(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}
		if !canAdvanceReturn(ret.Status, next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ret.Status, next)
		}
		order, err = tx.Orders().FindByID(ctx, ret.OrderID)
		if err != nil {
			return mapNotFound(err)
		}
		if err := mutate(tx, ret, order, now); err != nil {
			return err
		}
		ret.Status = next
		ret.UpdatedAt = now.Unix()
		if err := tx.Returns().Update(ctx, ret); err != nil {
			return mapNotFound(err)
		}
		if next == repository.ReturnRefunded {
			if err := s.markOrderRefunded(ctx, tx, order, now); err != nil {
				return err
			}
		}
		return s.flow.notify(ctx, tx, ret.UserID, repository.NotifyReturnUpdate,
			fmt.Sprintf("Return %s - %s", ret.ReturnNumber, ReturnStatusLabel(next)), message, "/returns", now)
	})
	if err != nil {
		return nil, err
	}
	s.mailer.send(ctx, s.mailer.returnUpdate(order, ret, message))
	return ret, nil
}

// markOrderRefunded 订单所有明细都已退款时把付款状态置为 REFUNDED。
func (s *returnService) markOrderRefunded(ctx context.Context, tx repository.Store, order *repository.Order, now time.Time) error {
	refunded, err := tx.Returns().CountRefundedItems(ctx, order.ID)
	if err != nil {
		return err
	}
	items, err := tx.Orders().ListItems(ctx, order.ID)
	if err != nil {
		return err
	}
	if refunded < int64(len(items)) || order.PaymentStatus == repository.PaymentRefunded {
		return nil
	}
	old := order.PaymentStatus
	order.PaymentStatus = repository.PaymentRefunded
	order.UpdatedAt = now.Unix()
	if err := tx.Orders().Update(ctx, order); err != nil {
		return mapNotFound(err)
	}
	return s.flow.history(ctx, tx, order.ID, order.OrderStatus, order.OrderStatus, nil,
		fmt.Sprintf("Payment status %s -> %s (all items returned)", old, repository.PaymentRefunded), now)
}

func canAdvanceReturn(from, to string) bool {
	switch from {
	case repository.ReturnRequested:
		return to == repository.ReturnApproved || to == repository.ReturnRejected
	case repository.ReturnApproved:
		return to == repository.ReturnPickedUp || to == repository.ReturnRefunded || to == repository.ReturnRejected
	case repository.ReturnPickedUp:
		return to == repository.ReturnRefunded
	default:
		return false
	}
}

func validReturnReason(reason string) bool {
	switch reason {
	case repository.ReasonDefective, repository.ReasonWrongItem, repository.ReasonSizeIssue,
		repository.ReasonNotAsDescribed, repository.ReasonOther:
		return true
	default:
		return false
	}
}
