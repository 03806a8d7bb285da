package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/creamcroissant/vibemall/internal/events"
	"github.com/creamcroissant/vibemall/internal/notifier"
	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/security"
)

// OrderService 提供用户订单与后台订单管理。
type OrderService interface {
	ListForUser(ctx context.Context, userID int64, page int) ([]repository.Order, Page, error)
	GetForUser(ctx context.Context, userID int64, number string) (*OrderDetail, error)
	Cancel(ctx context.Context, userID int64, number, reason string) (*repository.Order, error)

	List(ctx context.Context, filter AdminOrderFilter) ([]repository.Order, Page, error)
	Get(ctx context.Context, id int64) (*OrderDetail, error)
	UpdateStatus(ctx context.Context, actorID, id int64, input StatusUpdate) (*repository.Order, error)
	UpdatePaymentStatus(ctx context.Context, actorID, id int64, status, notes string) (*repository.Order, error)
	History(ctx context.Context, id int64) ([]repository.OrderStatusHistory, error)
	ReconcileDeliveredPayments(ctx context.Context) (int64, error)
}

// OrderDetail 是订单详情页的数据。
type OrderDetail struct {
	*repository.Order
	History      []repository.OrderStatusHistory `json:"history"`
	StatusColor  string                          `json:"status_color"`
	RiskLabel    string                          `json:"risk_label"`
	RiskLevel    string                          `json:"risk_level"`
	NextStatuses []string                        `json:"next_statuses"`
	CanCancel    bool                            `json:"can_cancel"`
}

// AdminOrderFilter 是后台订单列表的查询参数，日期为 YYYY-MM-DD（UTC）。
type AdminOrderFilter struct {
	Status         string
	PaymentStatus  string
	PaymentMethod  string
	ApprovalStatus string
	Suspicious     *bool
	Resell         *bool
	Search         string
	From           string
	To             string
	Page           int
	PageSize       int
}

// StatusUpdate 是后台修改订单状态的表单；Status 与当前相同时只更新物流信息。
type StatusUpdate struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
	CourierName    string `json:"courier_name"`
	Notes          string `json:"notes"`
	AdminNotes     string `json:"admin_notes"`
}

type orderService struct {
	store   repository.Store
	audit   security.Recorder
	flow    *orderFlow
	mailer  *orderMailer
	metrics *Metrics
	now     func() time.Time
}

// NewOrderService 组装订单服务。
func NewOrderService(store repository.Store, mail notifier.Service, audit security.Recorder, settings ShopSettings, metrics *Metrics, logger *slog.Logger) OrderService {
	mailer := newOrderMailer(mail, settings.Name, logger)
	return &orderService{
		store:   store,
		audit:   audit,
		flow:    newOrderFlow(settings, mailer, metrics),
		mailer:  mailer,
		metrics: metrics,
		now:     time.Now,
	}
}

func (s *orderService) ListForUser(ctx context.Context, userID int64, page int) ([]repository.Order, Page, error) {
	if s == nil || s.store == nil {
		return nil, Page{}, fmt.Errorf("order service not configured / 订单服务未配置")
	}
	p := newPage(page, 10)
	list, total, err := s.store.Orders().List(ctx, repository.OrderFilter{UserID: &userID, Limit: p.Size, Offset: p.Offset()})
	if err != nil {
		return nil, Page{}, err
	}
	if list == nil {
		list = []repository.Order{}
	}
	return list, p.withTotal(total), nil
}

// GetForUser 只返回属于该用户的订单，否则 ErrNotFound。
func (s *orderService) GetForUser(ctx context.Context, userID int64, number string) (*OrderDetail, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("order service not configured / 订单服务未配置")
	}
	order, err := s.store.Orders().FindByNumber(ctx, number)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if order.UserID != userID {
		return nil, ErrNotFound
	}
	return s.detail(ctx, order)
}

// Cancel 用户只能取消待处理或处理中的订单。
func (s *orderService) Cancel(ctx context.Context, userID int64, number, reason string) (*repository.Order, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("order service not configured / 订单服务未配置")
	}
	var (
		order *repository.Order
		mails []notifier.EmailRequest
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().FindByNumber(ctx, number)
		if err != nil {
			return mapNotFound(err)
		}
		if order.UserID != userID {
			return ErrNotFound
		}
		if !userCancellable(order.OrderStatus) {
			return ErrOrderNotCancellable
		}
		notes := "Cancelled by customer"
		if reason = strings.TrimSpace(reason); reason != "" {
			notes += ": " + reason
		}
		mails, err = s.flow.transition(ctx, tx, order, repository.OrderCancelled, int64Ptr(userID), notes, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.mailer.send(ctx, mails...)
	return order, nil
}

func (s *orderService) List(ctx context.Context, filter AdminOrderFilter) ([]repository.Order, Page, error) {
	if s == nil || s.store == nil {
		return nil, Page{}, fmt.Errorf("order service not configured / 订单服务未配置")
	}
	p := newPage(filter.Page, filter.PageSize)
	list, total, err := s.store.Orders().List(ctx, orderQuery(filter, p))
	if err != nil {
		return nil, Page{}, err
	}
	p = p.withTotal(total)
	if list == nil {
		list = []repository.Order{}
	}
	return list, p, nil
}

// orderQuery 把后台筛选条件转换成仓储过滤器，To 包含当天。
func orderQuery(filter AdminOrderFilter, p Page) repository.OrderFilter {
	query := repository.OrderFilter{
		Status:         strings.ToUpper(strings.TrimSpace(filter.Status)),
		PaymentStatus:  strings.ToUpper(strings.TrimSpace(filter.PaymentStatus)),
		PaymentMethod:  strings.ToUpper(strings.TrimSpace(filter.PaymentMethod)),
		ApprovalStatus: strings.ToUpper(strings.TrimSpace(filter.ApprovalStatus)),
		Suspicious:     filter.Suspicious,
		IsResell:       filter.Resell,
		Search:         strings.TrimSpace(filter.Search),
		Limit:          p.Size,
		Offset:         p.Offset(),
	}
	if day, ok := parseDay(filter.From); ok {
		query.From = day.Unix()
	}
	if day, ok := parseDay(filter.To); ok {
		query.To = day.AddDate(0, 0, 1).Unix()
	}
	return query
}

func (s *orderService) Get(ctx context.Context, id int64) (*OrderDetail, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("order service not configured / 订单服务未配置")
	}
	order, err := s.store.Orders().FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return s.detail(ctx, order)
}

// UpdateStatus 按状态机推进订单并触发对应副作用。
func (s *orderService) UpdateStatus(ctx context.Context, actorID, id int64, input StatusUpdate) (*repository.Order, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("order service not configured / 订单服务未配置")
	}
	next := strings.ToUpper(strings.TrimSpace(input.Status))
	var (
		order *repository.Order
		mails []notifier.EmailRequest
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().FindByID(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}
		if v := strings.TrimSpace(input.TrackingNumber); v != "" {
			order.TrackingNumber = v
		}
		if v := strings.TrimSpace(input.CourierName); v != "" {
			order.CourierName = v
		}
		if v := sanitizeText(input.AdminNotes); v != "" {
			order.AdminNotes = v
		}
		if next == "" || next == order.OrderStatus {
			order.UpdatedAt = s.now().Unix()
			return mapNotFound(tx.Orders().Update(ctx, order))
		}
		mails, err = s.flow.transition(ctx, tx, order, next, int64Ptr(actorID), input.Notes, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.mailer.send(ctx, mails...)
	if s.audit != nil && next != "" {
		s.audit.Record(ctx, security.Event{
			Kind:     security.KindOrderStatus,
			ActorID:  actorID,
			TargetID: id,
			Metadata: map[string]any{"status": order.OrderStatus},
			Occurred: s.now(),
		})
	}
	return order, nil
}

// UpdatePaymentStatus 手工修改付款状态并记一条历史。
func (s *orderService) UpdatePaymentStatus(ctx context.Context, actorID, id int64, status, notes string) (*repository.Order, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("order service not configured / 订单服务未配置")
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	switch status {
	case repository.PaymentPending, repository.PaymentPaid, repository.PaymentFailed, repository.PaymentRefunded:
	default:
		return nil, fmt.Errorf("%w: unknown payment status / 付款状态无效", ErrValidation)
	}
	var order *repository.Order
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().FindByID(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}
		old := order.PaymentStatus
		if old == status {
			return nil
		}
		now := s.now()
		order.PaymentStatus = status
		order.UpdatedAt = now.Unix()
		if err := tx.Orders().Update(ctx, order); err != nil {
			return mapNotFound(err)
		}
		text := fmt.Sprintf("Payment status %s -> %s", old, status)
		if notes = strings.TrimSpace(notes); notes != "" {
			text += ": " + notes
		}
		if err := s.flow.history(ctx, tx, order.ID, order.OrderStatus, order.OrderStatus, int64Ptr(actorID), text, now); err != nil {
			return err
		}
		if status == repository.PaymentPaid {
			return s.flow.emit(ctx, tx, events.TopicPaymentConfirmed, order, "", int64Ptr(actorID), now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) History(ctx context.Context, id int64) ([]repository.OrderStatusHistory, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("order service not configured / 订单服务未配置")
	}
	if _, err := s.store.Orders().FindByID(ctx, id); err != nil {
		return nil, mapNotFound(err)
	}
	list, err := s.store.Orders().ListHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []repository.OrderStatusHistory{}
	}
	return list, nil
}

// ReconcileDeliveredPayments 把已送达仍待付款的订单补记为已付款。
func (s *orderService) ReconcileDeliveredPayments(ctx context.Context) (int64, error) {
	if s == nil || s.store == nil {
		return 0, fmt.Errorf("order service not configured / 订单服务未配置")
	}
	return s.store.Orders().ReconcileDeliveredPayments(ctx, s.now().Unix())
}

func (s *orderService) detail(ctx context.Context, order *repository.Order) (*OrderDetail, error) {
	items, err := s.store.Orders().ListItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.Orders().ListHistory(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []repository.OrderItem{}
	}
	if history == nil {
		history = []repository.OrderStatusHistory{}
	}
	order.Items = items
	return &OrderDetail{
		Order:        order,
		History:      history,
		StatusColor:  StatusColor(order.OrderStatus),
		RiskLabel:    RiskLabel(order.RiskScore, order.IsSuspicious),
		RiskLevel:    RiskLevel(order.RiskScore, order.IsSuspicious),
		NextStatuses: NextStatuses(order.OrderStatus),
		CanCancel:    userCancellable(order.OrderStatus),
	}, nil
}

func userCancellable(status string) bool {
	return status == repository.OrderPending || status == repository.OrderProcessing
}

func parseDay(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
