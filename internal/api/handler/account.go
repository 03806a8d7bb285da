// 文件路径: internal/api/handler/account.go
// 模块说明: 个人资料、收货地址、积分与站内通知。
package handler

import (
	"net/http"

	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

// AccountHandler exposes the signed-in customer's own data.
type AccountHandler struct {
	customers     service.CustomerService
	addresses     service.AddressService
	loyalty       service.LoyaltyService
	notifications service.NotificationService
	i18n          *i18n.Manager
}

func NewAccountHandler(customers service.CustomerService, addresses service.AddressService, loyalty service.LoyaltyService, notifications service.NotificationService, i18nMgr *i18n.Manager) *AccountHandler {
	return &AccountHandler{
		customers:     customers,
		addresses:     addresses,
		loyalty:       loyalty,
		notifications: notifications,
		i18n:          i18nMgr,
	}
}

type profileRequest struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	Email        *string `json:"email"`
	CountryCode  *string `json:"country_code"`
	MobileNumber *string `json:"mobile_number"`
}

// Profile handles GET /account/profile
func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	view, err := h.customers.Profile(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(r.Context(), w, "account.profile", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, view)
}

// UpdateProfile handles PATCH /account/profile
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var payload profileRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "account.profile.update", err, h.i18n)
		return
	}
	view, err := h.customers.UpdateProfile(r.Context(), currentUser(r).ID, service.ProfileInput{
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		Email:        payload.Email,
		CountryCode:  payload.CountryCode,
		MobileNumber: payload.MobileNumber,
	})
	if err != nil {
		respondServiceError(r.Context(), w, "account.profile.update", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, view)
}

// ListAddresses handles GET /account/addresses
func (h *AccountHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	list, err := h.addresses.List(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(r.Context(), w, "account.address.list", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, list)
}

// CreateAddress handles POST /account/addresses
func (h *AccountHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var payload service.AddressInput
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "account.address.create", err, h.i18n)
		return
	}
	addr, err := h.addresses.Create(r.Context(), currentUser(r).ID, payload)
	if err != nil {
		respondServiceError(r.Context(), w, "account.address.create", err, h.i18n)
		return
	}
	respondData(w, http.StatusCreated, addr)
}

// UpdateAddress handles PUT /account/addresses/{id}
func (h *AccountHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "account.address.update", err, h.i18n)
		return
	}
	var payload service.AddressInput
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "account.address.update", err, h.i18n)
		return
	}
	addr, err := h.addresses.Update(r.Context(), currentUser(r).ID, id, payload)
	if err != nil {
		respondServiceError(r.Context(), w, "account.address.update", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, addr)
}

// DeleteAddress handles DELETE /account/addresses/{id}
func (h *AccountHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = h.addresses.Delete(r.Context(), currentUser(r).ID, id)
	}
	if err != nil {
		respondServiceError(r.Context(), w, "account.address.delete", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.deleted", h.i18n, nil)
}

// SetDefaultAddress handles POST /account/addresses/{id}/default
func (h *AccountHandler) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = h.addresses.SetDefault(r.Context(), currentUser(r).ID, id)
	}
	if err != nil {
		respondServiceError(r.Context(), w, "account.address.default", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, nil)
}

// LoyaltyBalance handles GET /account/loyalty
func (h *AccountHandler) LoyaltyBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.loyalty.Balance(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(r.Context(), w, "account.loyalty", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, balance)
}

// LoyaltyHistory handles GET /account/loyalty/history?page=
func (h *AccountHandler) LoyaltyHistory(w http.ResponseWriter, r *http.Request) {
	list, page, err := h.loyalty.History(r.Context(), currentUser(r).ID, queryInt(r, "page"))
	if err != nil {
		respondServiceError(r.Context(), w, "account.loyalty.history", err, h.i18n)
		return
	}
	respondPage(w, list, page)
}

// Notifications handles GET /account/notifications?unread=true&limit=
func (h *AccountHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := false
	if v := queryBool(r, "unread"); v != nil {
		unreadOnly = *v
	}
	userID := currentUser(r).ID
	list, err := h.notifications.List(r.Context(), userID, unreadOnly, queryInt(r, "limit"))
	if err != nil {
		respondServiceError(r.Context(), w, "account.notifications", err, h.i18n)
		return
	}
	unread, err := h.notifications.UnreadCount(r.Context(), userID)
	if err != nil {
		respondServiceError(r.Context(), w, "account.notifications", err, h.i18n)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": list, "unread": unread})
}

// MarkNotificationRead handles POST /account/notifications/{id}/read
func (h *AccountHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = h.notifications.MarkRead(r.Context(), currentUser(r).ID, id)
	}
	if err != nil {
		respondServiceError(r.Context(), w, "account.notifications.read", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, nil)
}

// MarkAllNotificationsRead handles POST /account/notifications/read-all
func (h *AccountHandler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifications.MarkAllRead(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(r.Context(), w, "account.notifications.read_all", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.notifications_read", h.i18n, map[string]int64{"updated": count})
}
