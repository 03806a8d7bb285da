// 文件路径: internal/api/handler/admin_customer.go
// 模块说明: 后台客户、积分调整、退货处理、看板、系统状态与邮件设置。
package handler

import (
	"net/http"

	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

// AdminCustomerHandler exposes customer care and reporting endpoints.
type AdminCustomerHandler struct {
	customers     service.CustomerService
	loyalty       service.LoyaltyService
	returns       service.ReturnService
	dashboard     service.DashboardService
	notifications service.NotificationService
	i18n          *i18n.Manager
}

// AdminCustomerDeps 汇总 AdminCustomerHandler 依赖的服务。
type AdminCustomerDeps struct {
	Customers     service.CustomerService
	Loyalty       service.LoyaltyService
	Returns       service.ReturnService
	Dashboard     service.DashboardService
	Notifications service.NotificationService
}

func NewAdminCustomerHandler(deps AdminCustomerDeps, i18nMgr *i18n.Manager) *AdminCustomerHandler {
	return &AdminCustomerHandler{
		customers:     deps.Customers,
		loyalty:       deps.Loyalty,
		returns:       deps.Returns,
		dashboard:     deps.Dashboard,
		notifications: deps.Notifications,
		i18n:          i18nMgr,
	}
}

// Customers handles GET /admin/customers?q=&segment=&blocked=&page=&page_size=
func (h *AdminCustomerHandler) Customers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, page, err := h.customers.List(r.Context(), service.CustomerListFilter{
		Search:  q.Get("q"),
		Segment: q.Get("segment"),
		Blocked: queryBool(r, "blocked"),
		Page:    queryInt(r, "page"),
		Size:    queryInt(r, "page_size"),
	})
	if err != nil {
		respondServiceError(r.Context(), w, "admin.customers.list", err, h.i18n)
		return
	}
	respondPage(w, list, page)
}

type blockRequest struct {
	Blocked bool `json:"blocked"`
}

// SetBlocked handles POST /admin/customers/{id}/block
func (h *AdminCustomerHandler) SetBlocked(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "admin.customers.block", err, h.i18n)
		return
	}
	var payload blockRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "admin.customers.block", err, h.i18n)
		return
	}
	if err := h.customers.SetBlocked(r.Context(), currentUser(r).ID, id, payload.Blocked); err != nil {
		respondServiceError(r.Context(), w, "admin.customers.block", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, map[string]bool{"blocked": payload.Blocked})
}

// RefreshSegments handles POST /admin/customers/segments/refresh
func (h *AdminCustomerHandler) RefreshSegments(w http.ResponseWriter, r *http.Request) {
	count, err := h.customers.RefreshSegments(r.Context())
	if err != nil {
		respondServiceError(r.Context(), w, "admin.customers.segments", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, map[string]int64{"updated": count})
}

type adjustPointsRequest struct {
	Delta       int64  `json:"delta"`
	Description string `json:"description"`
}

// AdjustPoints handles POST /admin/customers/{id}/points
func (h *AdminCustomerHandler) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "admin.customers.points", err, h.i18n)
		return
	}
	var payload adjustPointsRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "admin.customers.points", err, h.i18n)
		return
	}
	balance, err := h.loyalty.Adjust(r.Context(), currentUser(r).ID, id, payload.Delta, payload.Description)
	if err != nil {
		respondServiceError(r.Context(), w, "admin.customers.points", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.points_adjusted", h.i18n, balance)
}

// Returns handles GET /admin/returns?status=&page=
func (h *AdminCustomerHandler) Returns(w http.ResponseWriter, r *http.Request) {
	list, page, err := h.returns.List(r.Context(), r.URL.Query().Get("status"), queryInt(r, "page"))
	if err != nil {
		respondServiceError(r.Context(), w, "admin.returns.list", err, h.i18n)
		return
	}
	respondPage(w, list, page)
}

type returnDecisionRequest struct {
	Notes      string `json:"notes"`
	PickupDate int64  `json:"pickup_date"`
	Amount     string `json:"amount"`
	Method     string `json:"method"`
}

// ReturnAction handles POST /admin/returns/{id}/{action}，action 为 approve、reject、picked-up 或 refund。
func (h *AdminCustomerHandler) ReturnAction(action string) http.HandlerFunc {
	name := "admin.returns." + action
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			respondServiceError(r.Context(), w, name, err, h.i18n)
			return
		}
		var payload returnDecisionRequest
		if err := decodeJSON(r, &payload); err != nil {
			respondServiceError(r.Context(), w, name, err, h.i18n)
			return
		}
		actor := currentUser(r).ID
		var ret any
		switch action {
		case "approve":
			ret, err = h.returns.Approve(r.Context(), actor, id, payload.Notes, payload.PickupDate)
		case "reject":
			ret, err = h.returns.Reject(r.Context(), actor, id, payload.Notes)
		case "picked-up":
			ret, err = h.returns.MarkPickedUp(r.Context(), actor, id)
		case "refund":
			ret, err = h.returns.Refund(r.Context(), actor, id, payload.Amount, payload.Method)
		default:
			err = errBadRequest
		}
		if err != nil {
			respondServiceError(r.Context(), w, name, err, h.i18n)
			return
		}
		RespondSuccessI18n(r.Context(), w, "success.returns_updated", h.i18n, ret)
	}
}

// Dashboard handles GET /admin/dashboard
func (h *AdminCustomerHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.dashboard.Dashboard(r.Context())
	if err != nil {
		respondServiceError(r.Context(), w, "admin.dashboard", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, snap)
}

// SystemStatus handles GET /admin/system/status
func (h *AdminCustomerHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.dashboard.SystemStatus(r.Context())
	if err != nil {
		respondServiceError(r.Context(), w, "admin.system.status", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, status)
}

type adminEmailRequest struct {
	AdminEmail string `json:"admin_email"`
	IsActive   bool   `json:"is_active"`
}

// AdminEmail handles GET /admin/settings/email
func (h *AdminCustomerHandler) AdminEmail(w http.ResponseWriter, r *http.Request) {
	settings, err := h.notifications.AdminEmail(r.Context())
	if err != nil {
		respondServiceError(r.Context(), w, "admin.settings.email", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, settings)
}

// SaveAdminEmail handles PUT /admin/settings/email
func (h *AdminCustomerHandler) SaveAdminEmail(w http.ResponseWriter, r *http.Request) {
	var payload adminEmailRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "admin.settings.email.save", err, h.i18n)
		return
	}
	settings, err := h.notifications.SaveAdminEmail(r.Context(), payload.AdminEmail, payload.IsActive)
	if err != nil {
		respondServiceError(r.Context(), w, "admin.settings.email.save", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, settings)
}

// EmailLogs handles GET /admin/email-logs?page=
func (h *AdminCustomerHandler) EmailLogs(w http.ResponseWriter, r *http.Request) {
	list, page, err := h.notifications.EmailLogs(r.Context(), queryInt(r, "page"))
	if err != nil {
		respondServiceError(r.Context(), w, "admin.email_logs", err, h.i18n)
		return
	}
	respondPage(w, list, page)
}
