package security

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// 审计事件类型。
const (
	KindLoginSuccess    = "auth.login.success"
	KindLoginFailure    = "auth.login.failure"
	KindLoginThrottled  = "auth.login.throttled"
	KindOrderApproved   = "order.approved"
	KindOrderRejected   = "order.rejected"
	KindOrderStatus     = "order.status_changed"
	KindCustomerBlocked = "customer.blocked"
	KindPointsAdjusted  = "loyalty.adjusted"
	KindPaymentRejected = "payment.signature_rejected"
)

// Event 表示一次需要留痕的操作。
type Event struct {
	Kind      string
	ActorID   int64
	TargetID  int64
	IP        string
	UserAgent string
	Metadata  map[string]any
	Occurred  time.Time
}

// Recorder 记录安全事件。
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// LoggerRecorder 将审计事件写入 slog.Logger。
type LoggerRecorder struct {
	logger *slog.Logger
}

// NewLoggerRecorder 返回记录器，logger 为空时丢弃输出。
func NewLoggerRecorder(logger *slog.Logger) *LoggerRecorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LoggerRecorder{logger: logger.With("component", "audit")}
}

func (r *LoggerRecorder) Record(ctx context.Context, event Event) {
	if r == nil || r.logger == nil {
		return
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}
	attrs := []any{
		"kind", event.Kind,
		"actor_id", event.ActorID,
		"occurred", event.Occurred.Format(time.RFC3339),
	}
	if event.TargetID != 0 {
		attrs = append(attrs, "target_id", event.TargetID)
	}
	if event.IP != "" {
		attrs = append(attrs, "ip", event.IP, "ua", event.UserAgent)
	}
	if len(event.Metadata) > 0 {
		attrs = append(attrs, "metadata", event.Metadata)
	}
	level := slog.LevelInfo
	if event.Kind == KindLoginFailure || event.Kind == KindLoginThrottled || event.Kind == KindPaymentRejected {
		level = slog.LevelWarn
	}
	r.logger.Log(ctx, level, "audit event", attrs...)
}
