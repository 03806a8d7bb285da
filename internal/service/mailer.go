// 文件路径: internal/service/mailer.go
// 模块说明: 订单相关邮件与站内通知的文案。邮件只入队，由 email.dispatch 任务投递并写发信日志。
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/creamcroissant/vibemall/internal/notifier"
	"github.com/creamcroissant/vibemall/internal/repository"
)

// Email kinds, also written to email_logs.email_type.
const (
	EmailOrderConfirmation = "ORDER_CONFIRMATION"
	EmailAdminNewOrder     = "ADMIN_ORDER_NOTIFICATION"
	EmailPriceDrop         = "PRICE_DROP"
	EmailReturnUpdate      = "RETURN_UPDATE"
)

// statusCopy 是状态变更通知的固定标题与正文。
type statusCopy struct {
	Title   string
	Message string
}

func statusCopyFor(order *repository.Order, status string) (statusCopy, bool) {
	switch status {
	case repository.OrderProcessing:
		return statusCopy{"Order is Being Processed", "Your order is now being prepared for shipment."}, true
	case repository.OrderShipped:
		courier := strings.TrimSpace(order.CourierName)
		if courier == "" {
			courier = "our delivery partner"
		}
		return statusCopy{"Order Shipped!", fmt.Sprintf("Your order has been shipped via %s.", courier)}, true
	case repository.OrderDelivered:
		return statusCopy{"Order Delivered Successfully", "Your order has been delivered. We hope you enjoy your purchase!"}, true
	case repository.OrderCancelled:
		return statusCopy{"Order Cancelled", "Your order has been cancelled."}, true
	default:
		return statusCopy{}, false
	}
}

// orderMailer 组装邮件并交给 notifier（生产环境是内存队列）。
type orderMailer struct {
	notifier notifier.Service
	shopName string
	logger   *slog.Logger
}

func newOrderMailer(n notifier.Service, shopName string, logger *slog.Logger) *orderMailer {
	if shopName == "" {
		shopName = "VibeMall"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &orderMailer{notifier: n, shopName: shopName, logger: logger}
}

func (m *orderMailer) confirmation(order *repository.Order) notifier.EmailRequest {
	subject := fmt.Sprintf("Order Confirmation - #%s - %s", order.OrderNumber, m.shopName)
	var b strings.Builder
	fmt.Fprintf(&b, "Order Confirmation - #%s\n\n", order.OrderNumber)
	fmt.Fprintf(&b, "Dear %s,\n\n", order.CustomerName)
	b.WriteString("Thank you for your order! Your order has been successfully placed.\n\n")
	b.WriteString("Order Details:\n")
	fmt.Fprintf(&b, "- Order Number: %s\n", order.OrderNumber)
	fmt.Fprintf(&b, "- Order Date: %s\n", unixDate(order.OrderDate))
	fmt.Fprintf(&b, "- Total Amount: %s\n", rupees(order.TotalAmount))
	fmt.Fprintf(&b, "- Payment Method: %s\n\n", PaymentMethodLabel(order.PaymentMethod))
	fmt.Fprintf(&b, "You can track your order at: /orders/%s\n\n", order.OrderNumber)
	fmt.Fprintf(&b, "Best regards,\n%s Team\n", m.shopName)
	return notifier.EmailRequest{
		To:      order.Email,
		Subject: subject,
		Body:    b.String(),
		Kind:    EmailOrderConfirmation,
		OrderID: order.ID,
		Variables: map[string]any{
			"order_number": order.OrderNumber,
			"total":        order.TotalAmount.StringFixed(2),
		},
	}
}

func (m *orderMailer) statusUpdate(order *repository.Order, status string) (notifier.EmailRequest, bool) {
	text, ok := statusCopyFor(order, status)
	if !ok {
		return notifier.EmailRequest{}, false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nHi %s,\n\n%s\n\n", text.Title, order.CustomerName, text.Message)
	fmt.Fprintf(&b, "Order Number: %s\nTotal Amount: %s\n", order.OrderNumber, rupees(order.TotalAmount))
	if order.TrackingNumber != "" {
		fmt.Fprintf(&b, "Tracking Number: %s\n", order.TrackingNumber)
	}
	fmt.Fprintf(&b, "\nTrack your order at: /orders/%s\n", order.OrderNumber)
	return notifier.EmailRequest{
		To:      order.Email,
		Subject: fmt.Sprintf("%s - Order #%s", text.Title, order.OrderNumber),
		Body:    b.String(),
		Kind:    "ORDER_" + status,
		OrderID: order.ID,
		Variables: map[string]any{
			"order_number": order.OrderNumber,
			"status":       status,
		},
	}, true
}

func (m *orderMailer) adminNewOrder(order *repository.Order, adminEmail string) notifier.EmailRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "New Order Received - #%s\n\n", order.OrderNumber)
	fmt.Fprintf(&b, "Customer: %s\nEmail: %s\n", order.CustomerName, order.Email)
	fmt.Fprintf(&b, "Total Amount: %s\nPayment Method: %s\nPayment Status: %s\n", rupees(order.TotalAmount), PaymentMethodLabel(order.PaymentMethod), order.PaymentStatus)
	fmt.Fprintf(&b, "Risk: %s\n\n", RiskLabel(order.RiskScore, order.IsSuspicious))
	if order.ApprovalStatus == repository.ApprovalPending {
		b.WriteString("Order requires your approval.\n\n")
	}
	fmt.Fprintf(&b, "View Details: /admin/orders/%d\n\nBest regards,\n%s System\n", order.ID, m.shopName)
	return notifier.EmailRequest{
		To:      adminEmail,
		Subject: fmt.Sprintf("New Order #%s - %s", order.OrderNumber, rupees(order.TotalAmount)),
		Body:    b.String(),
		Kind:    EmailAdminNewOrder,
		OrderID: order.ID,
	}
}

func (m *orderMailer) priceDrop(c repository.PriceAlertCandidate) notifier.EmailRequest {
	body := fmt.Sprintf("Good news! %s is now %s (was %s).\n\nView it at: /products/%d\n\n%s Team\n",
		c.ProductName, rupees(c.CurrentPrice), rupees(c.Alert.OriginalPrice), c.Alert.ProductID, m.shopName)
	return notifier.EmailRequest{
		To:      c.Email,
		Subject: fmt.Sprintf("Price Drop Alert - %s", c.ProductName),
		Body:    body,
		Kind:    EmailPriceDrop,
	}
}

func (m *orderMailer) returnUpdate(order *repository.Order, ret *repository.ReturnRequest, message string) notifier.EmailRequest {
	body := fmt.Sprintf("Hi %s,\n\n%s\n\nReturn Number: %s\nOrder Number: %s\n\n%s Team\n",
		order.CustomerName, message, ret.ReturnNumber, order.OrderNumber, m.shopName)
	return notifier.EmailRequest{
		To:      order.Email,
		Subject: fmt.Sprintf("Return %s - %s", ret.ReturnNumber, ReturnStatusLabel(ret.Status)),
		Body:    body,
		Kind:    EmailReturnUpdate,
		OrderID: order.ID,
	}
}

// send 入队失败只记日志，不影响业务结果。
func (m *orderMailer) send(ctx context.Context, reqs ...notifier.EmailRequest) {
	if m == nil || m.notifier == nil {
		return
	}
	for _, req := range reqs {
		if strings.TrimSpace(req.To) == "" {
			continue
		}
		if err := m.notifier.SendEmail(ctx, req); err != nil && !errors.Is(err, notifier.ErrNotImplemented) {
			m.logger.WarnContext(ctx, "enqueue email failed", "kind", req.Kind, "order_id", req.OrderID, "error", err)
		}
	}
}

// PaymentMethodLabel 返回支付方式的展示名称。
func PaymentMethodLabel(method string) string {
	switch method {
	case repository.MethodCOD:
		return "Cash on Delivery"
	case repository.MethodOnline:
		return "Online Payment"
	case repository.MethodUPI:
		return "UPI"
	case repository.MethodCard:
		return "Credit/Debit Card"
	default:
		return method
	}
}

// ReturnStatusLabel 返回退货状态的展示名称。
func ReturnStatusLabel(status string) string {
	switch status {
	case repository.ReturnRequested:
		return "Return Requested"
	case repository.ReturnApproved:
		return "Return Approved"
	case repository.ReturnRejected:
		return "Return Rejected"
	case repository.ReturnPickedUp:
		return "Picked Up"
	case repository.ReturnRefunded:
		return "Refunded"
	default:
		return status
	}
}
