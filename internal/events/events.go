// 文件路径: internal/events/events.go
// 模块说明: 订单领域事件。事件先在业务事务内写入 outbox，再由 relay 任务投递。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/creamcroissant/vibemall/internal/repository"
)

// Topics.
const (
	TopicOrderPlaced        = "order.placed"
	TopicOrderStatusChanged = "order.status_changed"
	TopicOrderApproved      = "order.approved"
	TopicOrderRejected      = "order.rejected"
	TopicPaymentConfirmed   = "payment.confirmed"
)

// Envelope 是投递到消息总线的 JSON 结构。
type Envelope struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID int64           `json:"aggregate_id"`
	OccurredAt  int64           `json:"occurred_at"`
	Data        json.RawMessage `json:"data"`
}

// OrderEvent 是订单类事件的数据部分。
type OrderEvent struct {
	OrderID        int64  `json:"order_id"`
	OrderNumber    string `json:"order_number"`
	UserID         int64  `json:"user_id"`
	OrderStatus    string `json:"order_status"`
	OldStatus      string `json:"old_status,omitempty"`
	PaymentStatus  string `json:"payment_status"`
	ApprovalStatus string `json:"approval_status"`
	TotalAmount    string `json:"total_amount"`
	RiskScore      int    `json:"risk_score"`
	ActorID        int64  `json:"actor_id,omitempty"`
}

// FromOrder 从订单快照构造事件数据。
func FromOrder(o *repository.Order) OrderEvent {
	return OrderEvent{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		OrderStatus:    o.OrderStatus,
		PaymentStatus:  o.PaymentStatus,
		ApprovalStatus: o.ApprovalStatus,
		TotalAmount:    o.TotalAmount.StringFixed(2),
		RiskScore:      o.RiskScore,
	}
}

// NewMessage 将 data 编码为 outbox 行。
func NewMessage(topic string, aggregateID int64, data any, now time.Time) (*repository.OutboxMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode event data: %w", err)
	}
	id := uuid.NewString()
	payload, err := json.Marshal(Envelope{
		ID:          id,
		Topic:       topic,
		AggregateID: aggregateID,
		OccurredAt:  now.Unix(),
		Data:        raw,
	})
	if err != nil {
		return nil, fmt.Errorf("encode event envelope: %w", err)
	}
	return &repository.OutboxMessage{
		MessageID:     id,
		Topic:         topic,
		AggregateID:   aggregateID,
		Payload:       payload,
		Status:        repository.OutboxPending,
		NextAttemptAt: now.Unix(),
		CreatedAt:     now.Unix(),
	}, nil
}

// Record writes an event to the outbox; call it with the transaction-bound repository.
func Record(ctx context.Context, outbox repository.OutboxRepository, topic string, aggregateID int64, data any, now time.Time) error {
	if outbox == nil {
		return nil
	}
	msg, err := NewMessage(topic, aggregateID, data, now)
	if err != nil {
		return err
	}
	if err := outbox.Insert(ctx, msg); err != nil {
		return fmt.Errorf("insert outbox %s: %w", topic, err)
	}
	return nil
}

// Publisher 把 outbox 消息投递到外部。
type Publisher interface {
	Publish(ctx context.Context, msg repository.OutboxMessage) error
	Close() error
}
