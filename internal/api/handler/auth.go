// 文件路径: internal/api/handler/auth.go
// 模块说明: 注册、登录、刷新令牌与登出。
package handler

import (
	"net/http"
	"strings"

	"github.com/creamcroissant/vibemall/internal/api/middleware"
	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

// AuthHandler handles auth/registration endpoints.
type AuthHandler struct {
	auth service.AuthService
	i18n *i18n.Manager
}

func NewAuthHandler(auth service.AuthService, i18nMgr *i18n.Manager) *AuthHandler {
	return &AuthHandler{auth: auth, i18n: i18nMgr}
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	CountryCode     string `json:"country_code"`
	MobileNumber    string `json:"mobile_number"`
}

type loginRequest struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload registerRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "auth.register", err, h.i18n)
		return
	}
	result, err := h.auth.Register(r.Context(), service.RegisterInput{
		Username:        payload.Username,
		Email:           payload.Email,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
		FirstName:       payload.FirstName,
		LastName:        payload.LastName,
		CountryCode:     payload.CountryCode,
		MobileNumber:    payload.MobileNumber,
		IP:              middleware.ClientIP(r),
		UserAgent:       r.UserAgent(),
	})
	if err != nil {
		respondServiceError(r.Context(), w, "auth.register", err, h.i18n)
		return
	}
	respondData(w, http.StatusCreated, result)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "auth.login", err, h.i18n)
		return
	}
	identifier := firstNonEmpty(payload.Identifier, payload.Email, payload.Username)
	if identifier == "" || strings.TrimSpace(payload.Password) == "" {
		RespondErrorI18nAction(r.Context(), w, http.StatusBadRequest, "auth.login", "error.invalid_credentials", h.i18n)
		return
	}
	result, err := h.auth.Login(r.Context(), service.LoginInput{
		Identifier: identifier,
		Password:   payload.Password,
		IP:         middleware.ClientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		respondServiceError(r.Context(), w, "auth.login", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, result)
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload refreshRequest
	if err := decodeJSON(r, &payload); err != nil || strings.TrimSpace(payload.RefreshToken) == "" {
		RespondErrorI18nAction(r.Context(), w, http.StatusBadRequest, "auth.refresh", "error.bad_request", h.i18n)
		return
	}
	result, err := h.auth.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		respondServiceError(r.Context(), w, "auth.refresh", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, result)
}

// Logout handles POST /auth/logout；未知令牌也视为成功。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var payload refreshRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "auth.logout", err, h.i18n)
		return
	}
	if err := h.auth.Logout(r.Context(), payload.RefreshToken); err != nil {
		respondServiceError(r.Context(), w, "auth.logout", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.logged_out", h.i18n, nil)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
