// 文件路径: internal/api/handler/order.go
// 模块说明: 结算、我的订单、在线支付、转售、退货与发票下载。
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

// OrderHandler serves customer-facing order endpoints.
type OrderHandler struct {
	checkout service.CheckoutService
	orders   service.OrderService
	payments service.PaymentService
	resell   service.ResellService
	returns  service.ReturnService
	invoices service.InvoiceService
	i18n     *i18n.Manager
}

// OrderDeps 汇总 OrderHandler 依赖的服务。
type OrderDeps struct {
	Checkout service.CheckoutService
	Orders   service.OrderService
	Payments service.PaymentService
	Resell   service.ResellService
	Returns  service.ReturnService
	Invoices service.InvoiceService
}

func NewOrderHandler(deps OrderDeps, i18nMgr *i18n.Manager) *OrderHandler {
	return &OrderHandler{
		checkout: deps.Checkout,
		orders:   deps.Orders,
		payments: deps.Payments,
		resell:   deps.Resell,
		returns:  deps.Returns,
		invoices: deps.Invoices,
		i18n:     i18nMgr,
	}
}

// Quote handles POST /checkout/quote
func (h *OrderHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var payload service.QuoteInput
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "checkout.quote", err, h.i18n)
		return
	}
	quote, err := h.checkout.Quote(r.Context(), currentUser(r).ID, payload)
	if err != nil {
		respondServiceError(r.Context(), w, "checkout.quote", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, quote)
}

// PlaceOrder handles POST /checkout
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var payload service.PlaceOrderInput
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "checkout.place", err, h.i18n)
		return
	}
	order, err := h.checkout.PlaceOrder(r.Context(), currentUser(r).ID, payload)
	if err != nil {
		respondServiceError(r.Context(), w, "checkout.place", err, h.i18n)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"message": translate(r.Context(), h.i18n, "success.order_placed"),
		"data":    order,
	})
}

// List handles GET /orders?page=
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	list, page, err := h.orders.ListForUser(r.Context(), currentUser(r).ID, queryInt(r, "page"))
	if err != nil {
		respondServiceError(r.Context(), w, "orders.list", err, h.i18n)
		return
	}
	respondPage(w, list, page)
}

// Get handles GET /orders/{number}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.orders.GetForUser(r.Context(), currentUser(r).ID, chi.URLParam(r, "number"))
	if err != nil {
		respondServiceError(r.Context(), w, "orders.get", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, detail)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /orders/{number}/cancel
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var payload cancelRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "orders.cancel", err, h.i18n)
		return
	}
	order, err := h.orders.Cancel(r.Context(), currentUser(r).ID, chi.URLParam(r, "number"), payload.Reason)
	if err != nil {
		respondServiceError(r.Context(), w, "orders.cancel", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.order_cancelled", h.i18n, order)
}

// Invoice handles GET /orders/{number}/invoice；管理员可下载任意订单。
func (h *OrderHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	file, err := h.invoices.Generate(r.Context(), user.ID, user.IsStaff, chi.URLParam(r, "number"))
	if err != nil {
		respondServiceError(r.Context(), w, "orders.invoice", err, h.i18n)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Content)))
	w.Header().Set("X-Invoice-Number", file.InvoiceNumber)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}

// CreatePayment handles POST /orders/{number}/payment
func (h *OrderHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	gateway, err := h.payments.CreateGatewayOrder(r.Context(), currentUser(r).ID, chi.URLParam(r, "number"))
	if err != nil {
		respondServiceError(r.Context(), w, "payments.create", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, gateway)
}

// ConfirmPayment handles POST /payments/confirm
func (h *OrderHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var payload service.PaymentConfirmation
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "payments.confirm", err, h.i18n)
		return
	}
	order, err := h.payments.Confirm(r.Context(), currentUser(r).ID, payload)
	if err != nil {
		respondServiceError(r.Context(), w, "payments.confirm", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.payment_confirmed", h.i18n, order)
}

// Resell handles POST /orders/{id}/resell
func (h *OrderHandler) Resell(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "orders.resell", err, h.i18n)
		return
	}
	var payload service.ResellInput
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "orders.resell", err, h.i18n)
		return
	}
	order, err := h.resell.CreateResell(r.Context(), currentUser(r).ID, id, payload)
	if err != nil {
		respondServiceError(r.Context(), w, "orders.resell", err, h.i18n)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"message": translate(r.Context(), h.i18n, "success.order_placed"),
		"data":    order,
	})
}

// RequestReturn handles POST /returns
func (h *OrderHandler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	var payload service.ReturnInput
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "returns.request", err, h.i18n)
		return
	}
	ret, err := h.returns.Request(r.Context(), currentUser(r).ID, payload)
	if err != nil {
		respondServiceError(r.Context(), w, "returns.request", err, h.i18n)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"message": translate(r.Context(), h.i18n, "success.return_requested"),
		"data":    ret,
	})
}

// Returns handles GET /returns?page=
func (h *OrderHandler) Returns(w http.ResponseWriter, r *http.Request) {
	list, page, err := h.returns.ListForUser(r.Context(), currentUser(r).ID, queryInt(r, "page"))
	if err != nil {
		respondServiceError(r.Context(), w, "returns.list", err, h.i18n)
		return
	}
	respondPage(w, list, page)
}

// GetReturn handles GET /returns/{id}
func (h *OrderHandler) GetReturn(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "returns.get", err, h.i18n)
		return
	}
	ret, err := h.returns.GetForUser(r.Context(), currentUser(r).ID, id)
	if err != nil {
		respondServiceError(r.Context(), w, "returns.get", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, ret)
}
