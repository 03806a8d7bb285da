// 文件路径: internal/service/order_flow.go
// 模块说明: 订单状态机与状态变化的副作用（历史、事件、站内通知、库存与积分）。
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creamcroissant/vibemall/internal/events"
	"github.com/creamcroissant/vibemall/internal/notifier"
	"github.com/creamcroissant/vibemall/internal/repository"
)

var orderTransitions = map[string][]string{
	repository.OrderPending:    {repository.OrderProcessing, repository.OrderCancelled},
	repository.OrderProcessing: {repository.OrderPacked, repository.OrderShipped, repository.OrderCancelled},
	repository.OrderPacked:     {repository.OrderShipped, repository.OrderCancelled},
	repository.OrderShipped:    {repository.OrderDelivered},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses 返回当前状态允许的目标状态。
func NextStatuses(from string) []string {
	return append([]string(nil), orderTransitions[from]...)
}

// StatusColor 返回订单状态的展示颜色。
func StatusColor(status string) string {
	switch status {
	case repository.OrderPending:
		return "warning"
	case repository.OrderProcessing:
		return "info"
	case repository.OrderPacked:
		return "secondary"
	case repository.OrderShipped:
		return "primary"
	case repository.OrderDelivered:
		return "success"
	case repository.OrderCancelled:
		return "danger"
	default:
		return "secondary"
	}
}

// orderFlow 的方法都运行在调用方事务里；邮件由调用方在提交后发送。
type orderFlow struct {
	settings ShopSettings
	mailer   *orderMailer
	metrics  *Metrics
}

func newOrderFlow(settings ShopSettings, mailer *orderMailer, metrics *Metrics) *orderFlow {
	return &orderFlow{settings: settings, mailer: mailer, metrics: metrics}
}

// transition 校验并执行状态变化，返回待发送的通知邮件。
func (f *orderFlow) transition(ctx context.Context, tx repository.Store, order *repository.Order, next string, actorID *int64, notes string, now time.Time) ([]notifier.EmailRequest, error) {
	old := order.OrderStatus
	if !CanTransition(old, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, old, next)
	}
	if next != repository.OrderCancelled {
		switch order.ApprovalStatus {
		case repository.ApprovalPending, repository.ApprovalRejected:
			return nil, ErrAwaitingApproval
		}
	}

	order.OrderStatus = next
	order.UpdatedAt = now.Unix()
	switch next {
	case repository.OrderDelivered:
		if err := f.deliver(ctx, tx, order, now); err != nil {
			return nil, err
		}
	case repository.OrderCancelled:
		if err := f.release(ctx, tx, order, now); err != nil {
			return nil, err
		}
	}
	if err := tx.Orders().Update(ctx, order); err != nil {
		return nil, mapNotFound(err)
	}
	if err := f.history(ctx, tx, order.ID, old, next, actorID, notes, now); err != nil {
		return nil, err
	}
	if err := f.emit(ctx, tx, events.TopicOrderStatusChanged, order, old, actorID, now); err != nil {
		return nil, err
	}
	f.metrics.statusChanged(next)

	text, ok := statusCopyFor(order, next)
	if !ok {
		return nil, nil
	}
	if err := f.notify(ctx, tx, order.UserID, repository.NotifyOrderStatus, text.Title, text.Message, orderLink(order), now); err != nil {
		return nil, err
	}
	if mail, ok := f.mailer.statusUpdate(order, next); ok {
		return []notifier.EmailRequest{mail}, nil
	}
	return nil, nil
}

// deliver 设置送达时间，货到付款视为已付款，累计消费并发放积分。
func (f *orderFlow) deliver(ctx context.Context, tx repository.Store, order *repository.Order, now time.Time) error {
	at := now.Unix()
	order.DeliveryDate = &at
	if order.PaymentMethod == repository.MethodCOD && order.PaymentStatus == repository.PaymentPending {
		order.PaymentStatus = repository.PaymentPaid
	}
	if err := tx.Profiles().AddTotalSpent(ctx, order.UserID, order.TotalAmount); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("add total spent: %w", err)
	}
	points := pointsForAmount(order.TotalAmount, f.settings.PointsPerRupee)
	if points <= 0 {
		return nil
	}
	desc := fmt.Sprintf("Order #%s delivered - %s", order.OrderNumber, rupees(order.TotalAmount))
	if _, err := applyPoints(ctx, tx, order.UserID, repository.PointsEarned, points, desc, int64Ptr(order.ID), now); err != nil {
		return err
	}
	return f.notify(ctx, tx, order.UserID, repository.NotifyPointsEarned, "Points Earned",
		fmt.Sprintf("You earned %d points for order #%s.", points, order.OrderNumber), "/account/points", now)
}

// release 取消或拒绝时回补库存并退回抵扣积分。
func (f *orderFlow) release(ctx context.Context, tx repository.Store, order *repository.Order, now time.Time) error {
	items := order.Items
	if items == nil {
		var err error
		if items, err = tx.Orders().ListItems(ctx, order.ID); err != nil {
			return err
		}
	}
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		if err := tx.Products().RestoreStock(ctx, *item.ProductID, item.Quantity); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("restore stock: %w", err)
		}
	}
	if order.PointsRedeemed <= 0 {
		return nil
	}
	desc := fmt.Sprintf("Refund for cancelled order #%s", order.OrderNumber)
	_, err := applyPoints(ctx, tx, order.UserID, repository.PointsRefunded, order.PointsRedeemed, desc, int64Ptr(order.ID), now)
	return err
}

func (f *orderFlow) history(ctx context.Context, tx repository.Store, orderID int64, old, next string, actorID *int64, notes string, now time.Time) error {
	return tx.Orders().AddHistory(ctx, &repository.OrderStatusHistory{
		OrderID:   orderID,
		OldStatus: old,
		NewStatus: next,
		ChangedBy: actorID,
		Notes:     sanitizeText(notes),
		CreatedAt: now.Unix(),
	})
}

func (f *orderFlow) emit(ctx context.Context, tx repository.Store, topic string, order *repository.Order, old string, actorID *int64, now time.Time) error {
	data := events.FromOrder(order)
	data.OldStatus = old
	if actorID != nil {
		data.ActorID = *actorID
	}
	return events.Record(ctx, tx.Outbox(), topic, order.ID, data, now)
}

func (f *orderFlow) notify(ctx context.Context, tx repository.Store, userID int64, kind, title, message, link string, now time.Time) error {
	return tx.Notifications().Create(ctx, &repository.Notification{
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Message:   message,
		Link:      link,
		CreatedAt: now.Unix(),
	})
}

func orderLink(order *repository.Order) string {
	return "/orders/" + order.OrderNumber
}
