// 文件路径: internal/service/payment.go
// 模块说明: 在线支付。只生成网关订单引用并校验回调签名，不调用外部 SDK。
package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/creamcroissant/vibemall/internal/events"
	"github.com/creamcroissant/vibemall/internal/notifier"
	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/security"
)

// PaymentService 处理在线支付订单。
type PaymentService interface {
	CreateGatewayOrder(ctx context.Context, userID int64, orderNumber string) (*GatewayOrder, error)
	Confirm(ctx context.Context, userID int64, input PaymentConfirmation) (*repository.Order, error)
}

// GatewayOrder 是前端拉起支付所需的参数。
type GatewayOrder struct {
	KeyID          string `json:"key_id"`
	AmountPaise    int64  `json:"amount"`
	Currency       string `json:"currency"`
	GatewayOrderID string `json:"gateway_order_id"`
	OrderNumber    string `json:"order_number"`
	Name           string `json:"name"`
	Email          string `json:"email"`
}

// PaymentConfirmation 是支付回调参数。
type PaymentConfirmation struct {
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
	Signature      string `json:"signature"`
}

type paymentService struct {
	store    repository.Store
	audit    security.Recorder
	settings ShopSettings
	flow     *orderFlow
	mailer   *orderMailer
	metrics  *Metrics
	now      func() time.Time
}

// NewPaymentService 组装支付服务，未配置密钥时所有操作返回 ErrPaymentNotConfigured。
func NewPaymentService(store repository.Store, mail notifier.Service, audit security.Recorder, settings ShopSettings, metrics *Metrics, logger *slog.Logger) PaymentService {
	mailer := newOrderMailer(mail, settings.Name, logger)
	return &paymentService{
		store:    store,
		audit:    audit,
		settings: settings,
		flow:     newOrderFlow(settings, mailer, metrics),
		mailer:   mailer,
		metrics:  metrics,
		now:      time.Now,
	}
}

// CreateGatewayOrder 为待付款的在线订单分配网关引用，重复调用返回同一引用。
func (s *paymentService) CreateGatewayOrder(ctx context.Context, userID int64, orderNumber string) (*GatewayOrder, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("payment service not configured / 支付服务未配置")
	}
	if s.settings.PaymentKeySecret == "" {
		return nil, ErrPaymentNotConfigured
	}
	order, err := s.store.Orders().FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if order.UserID != userID {
		return nil, ErrNotFound
	}
	if !order.IsOnline() || order.PaymentStatus == repository.PaymentPaid || order.OrderStatus == repository.OrderCancelled {
		return nil, ErrPaymentNotPending
	}
	if order.GatewayOrderID == "" {
		order.GatewayOrderID = "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		order.UpdatedAt = s.now().Unix()
		if err := s.store.Orders().Update(ctx, order); err != nil {
			return nil, mapNotFound(err)
		}
	}
	currency := s.settings.Currency
	if currency == "" {
		currency = "INR"
	}
	return &GatewayOrder{
		KeyID:          s.settings.PaymentKeyID,
		AmountPaise:    order.TotalAmount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
		Currency:       currency,
		GatewayOrderID: order.GatewayOrderID,
		OrderNumber:    order.OrderNumber,
		Name:           order.CustomerName,
		Email:          order.Email,
	}, nil
}

// Confirm 校验签名；失败时付款状态记为 FAILED 并返回 ErrInvalidSignature。
func (s *paymentService) Confirm(ctx context.Context, userID int64, input PaymentConfirmation) (*repository.Order, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("payment service not configured / 支付服务未配置")
	}
	if s.settings.PaymentKeySecret == "" {
		return nil, ErrPaymentNotConfigured
	}
	ref := strings.TrimSpace(input.GatewayOrderID)
	paymentID := strings.TrimSpace(input.PaymentID)
	if ref == "" || paymentID == "" || strings.TrimSpace(input.Signature) == "" {
		return nil, fmt.Errorf("%w: missing payment fields / 支付参数不完整", ErrValidation)
	}

	var (
		order *repository.Order
		mails []notifier.EmailRequest
		valid = VerifySignature(s.settings.PaymentKeySecret, ref, paymentID, input.Signature)
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().FindByGatewayOrderID(ctx, ref)
		if err != nil {
			return mapNotFound(err)
		}
		if order.UserID != userID {
			return ErrNotFound
		}
		if order.PaymentStatus == repository.PaymentPaid || order.OrderStatus == repository.OrderCancelled {
			return ErrPaymentNotPending
		}
		now := s.now()
		order.UpdatedAt = now.Unix()
		if !valid {
			order.PaymentStatus = repository.PaymentFailed
			return mapNotFound(tx.Orders().Update(ctx, order))
		}

		order.PaymentStatus = repository.PaymentPaid
		order.PaymentID = paymentID
		order.PaymentSignature = strings.TrimSpace(input.Signature)
		if order.ApprovalStatus == repository.ApprovalAutoApproved && order.OrderStatus == repository.OrderPending {
			mails, err = s.flow.transition(ctx, tx, order, repository.OrderProcessing, nil, "Payment received", now)
			if err != nil {
				return err
			}
		} else if err := tx.Orders().Update(ctx, order); err != nil {
			return mapNotFound(err)
		}
		return s.flow.emit(ctx, tx, events.TopicPaymentConfirmed, order, "", nil, now)
	})
	if err != nil {
		return nil, err
	}
	if !valid {
		s.metrics.payment("invalid_signature")
		if s.audit != nil {
			s.audit.Record(ctx, security.Event{
				Kind:     security.KindPaymentRejected,
				ActorID:  userID,
				TargetID: order.ID,
				Metadata: map[string]any{"gateway_order_id": ref, "payment_id": paymentID},
				Occurred: s.now(),
			})
		}
		return nil, ErrInvalidSignature
	}
	s.metrics.payment("paid")
	s.mailer.send(ctx, mails...)
	return order, nil
}

// Sign returns hex(HMAC_SHA256(secret, gatewayOrderID + "|" + paymentID)).
func Sign(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature 以常量时间比较签名。
func VerifySignature(secret, gatewayOrderID, paymentID, signature string) bool {
	expected := Sign(secret, gatewayOrderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
