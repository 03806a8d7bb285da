// 文件路径: internal/api/handler/admin_order.go
// 模块说明: 后台订单管理、审核队列与 Excel 导出。
package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

// AdminOrderHandler exposes admin order management endpoints.
type AdminOrderHandler struct {
	orders    service.OrderService
	approvals service.ApprovalService
	dashboard service.DashboardService
	i18n      *i18n.Manager
}

func NewAdminOrderHandler(orders service.OrderService, approvals service.ApprovalService, dashboard service.DashboardService, i18nMgr *i18n.Manager) *AdminOrderHandler {
	return &AdminOrderHandler{orders: orders, approvals: approvals, dashboard: dashboard, i18n: i18nMgr}
}

func orderFilterFromQuery(r *http.Request) service.AdminOrderFilter {
	q := r.URL.Query()
	return service.AdminOrderFilter{
		Status:         q.Get("status"),
		PaymentStatus:  q.Get("payment_status"),
		PaymentMethod:  q.Get("payment_method"),
		ApprovalStatus: q.Get("approval_status"),
		Suspicious:     queryBool(r, "suspicious"),
		Resell:         queryBool(r, "resell"),
		Search:         q.Get("q"),
		From:           q.Get("from"),
		To:             q.Get("to"),
		Page:           queryInt(r, "page"),
		PageSize:       queryInt(r, "page_size"),
	}
}

// List handles GET /admin/orders
func (h *AdminOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	list, page, err := h.orders.List(r.Context(), orderFilterFromQuery(r))
	if err != nil {
		respondServiceError(r.Context(), w, "admin.orders.list", err, h.i18n)
		return
	}
	respondPage(w, list, page)
}

// Get handles GET /admin/orders/{id}
func (h *AdminOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "admin.orders.get", err, h.i18n)
		return
	}
	detail, err := h.orders.Get(r.Context(), id)
	if err != nil {
		respondServiceError(r.Context(), w, "admin.orders.get", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, detail)
}

// History handles GET /admin/orders/{id}/history
func (h *AdminOrderHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "admin.orders.history", err, h.i18n)
		return
	}
	history, err := h.orders.History(r.Context(), id)
	if err != nil {
		respondServiceError(r.Context(), w, "admin.orders.history", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, history)
}

// UpdateStatus handles POST /admin/orders/{id}/status
func (h *AdminOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "admin.orders.status", err, h.i18n)
		return
	}
	var payload service.StatusUpdate
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "admin.orders.status", err, h.i18n)
		return
	}
	order, err := h.orders.UpdateStatus(r.Context(), currentUser(r).ID, id, payload)
	if err != nil {
		respondServiceError(r.Context(), w, "admin.orders.status", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.status_updated", h.i18n, order)
}

type paymentStatusRequest struct {
	Status string `json:"payment_status"`
	Notes  string `json:"notes"`
}

// UpdatePaymentStatus handles POST /admin/orders/{id}/payment-status
func (h *AdminOrderHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "admin.orders.payment_status", err, h.i18n)
		return
	}
	var payload paymentStatusRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "admin.orders.payment_status", err, h.i18n)
		return
	}
	order, err := h.orders.UpdatePaymentStatus(r.Context(), currentUser(r).ID, id, payload.Status, payload.Notes)
	if err != nil {
		respondServiceError(r.Context(), w, "admin.orders.payment_status", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.status_updated", h.i18n, order)
}

// Export handles GET /admin/orders/export，筛选参数与列表一致。
func (h *AdminOrderHandler) Export(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("orders_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := h.dashboard.ExportOrders(r.Context(), orderFilterFromQuery(r), w); err != nil {
		w.Header().Del("Content-Disposition")
		respondServiceError(r.Context(), w, "admin.orders.export", err, h.i18n)
	}
}

// ApprovalQueue handles GET /admin/approvals
func (h *AdminOrderHandler) ApprovalQueue(w http.ResponseWriter, r *http.Request) {
	list, page, err := h.approvals.Queue(r.Context(), queryInt(r, "page"))
	if err != nil {
		respondServiceError(r.Context(), w, "admin.approvals.queue", err, h.i18n)
		return
	}
	respondPage(w, list, page)
}

type approvalRequest struct {
	OrderIDs []int64 `json:"order_ids"`
	Notes    string  `json:"notes"`
}

// Approve handles POST /admin/approvals/approve
func (h *AdminOrderHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

// Reject handles POST /admin/approvals/reject
func (h *AdminOrderHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *AdminOrderHandler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	action, key := "admin.approvals.reject", "success.orders_rejected"
	if approve {
		action, key = "admin.approvals.approve", "success.orders_approved"
	}
	var payload approvalRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, action, err, h.i18n)
		return
	}
	if len(payload.OrderIDs) == 0 {
		RespondErrorI18nAction(r.Context(), w, http.StatusBadRequest, action, "error.validation", h.i18n)
		return
	}
	var (
		count int
		err   error
	)
	if approve {
		count, err = h.approvals.Approve(r.Context(), currentUser(r).ID, payload.OrderIDs, payload.Notes)
	} else {
		count, err = h.approvals.Reject(r.Context(), currentUser(r).ID, payload.OrderIDs, payload.Notes)
	}
	if err != nil {
		respondServiceError(r.Context(), w, action, err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, key, h.i18n, map[string]int{"count": count}, count)
}

// AutoProcess handles POST /admin/approvals/{id}/auto
func (h *AdminOrderHandler) AutoProcess(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "admin.approvals.auto", err, h.i18n)
		return
	}
	order, err := h.approvals.AutoProcess(r.Context(), id)
	if err != nil {
		respondServiceError(r.Context(), w, "admin.approvals.auto", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, order)
}
