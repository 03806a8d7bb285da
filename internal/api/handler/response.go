// 文件路径: internal/api/handler/response.go
// 模块说明: JSON 响应、多语言错误与业务错误到 HTTP 状态码的映射。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/creamcroissant/vibemall/internal/api/requestctx"
	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

var errBadRequest = errors.New("bad request / 请求格式错误")

// Helper to respond with JSON
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response JSON", "error", err)
	}
}

func translate(ctx context.Context, mgr *i18n.Manager, key string, args ...any) string {
	if mgr == nil {
		return key
	}
	return mgr.Translate(requestctx.Language(ctx), key, args...)
}

// RespondErrorI18n writes {"error": <translated key>}.
func RespondErrorI18n(ctx context.Context, w http.ResponseWriter, status int, key string, i18nMgr *i18n.Manager, args ...any) {
	respondJSON(w, status, map[string]any{"error": translate(ctx, i18nMgr, key, args...)})
}

// RespondErrorI18nAction 额外带上 action 便于前端区分出错的操作。
func RespondErrorI18nAction(ctx context.Context, w http.ResponseWriter, status int, action, key string, i18nMgr *i18n.Manager, args ...any) {
	resp := map[string]any{"error": translate(ctx, i18nMgr, key, args...)}
	if action != "" {
		resp["action"] = action
	}
	respondJSON(w, status, resp)
}

// RespondSuccessI18n writes {"message": <translated key>, "data": data}.
func RespondSuccessI18n(ctx context.Context, w http.ResponseWriter, key string, i18nMgr *i18n.Manager, data any, args ...any) {
	resp := map[string]any{"message": translate(ctx, i18nMgr, key, args...)}
	if data != nil {
		resp["data"] = data
	}
	respondJSON(w, http.StatusOK, resp)
}

func respondData(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, map[string]any{"data": data})
}

func respondPage[T any](w http.ResponseWriter, items []T, page service.Page) {
	if items == nil {
		items = []T{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": items, "page": page})
}

type errorMapping struct {
	err    error
	status int
	key    string
}

var errorTable = []errorMapping{
	{errBadRequest, http.StatusBadRequest, "error.bad_request"},
	{service.ErrNotFound, http.StatusNotFound, "error.not_found"},
	{service.ErrValidation, http.StatusBadRequest, "error.validation"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "error.invalid_credentials"},
	{service.ErrRateLimited, http.StatusTooManyRequests, "error.rate_limited"},
	{service.ErrAccountBlocked, http.StatusForbidden, "error.account_blocked"},
	{service.ErrAccountDisabled, http.StatusForbidden, "error.account_disabled"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "error.unauthorized"},
	{service.ErrForbidden, http.StatusForbidden, "error.forbidden"},
	{service.ErrInvalidRefreshToken, http.StatusUnauthorized, "error.invalid_refresh_token"},
	{service.ErrUsernameExists, http.StatusConflict, "error.username_exists"},
	{service.ErrEmailExists, http.StatusConflict, "error.email_exists"},
	{service.ErrPasswordMismatch, http.StatusBadRequest, "error.password_mismatch"},
	{service.ErrWeakPassword, http.StatusBadRequest, "error.weak_password"},
	{service.ErrSKUExists, http.StatusConflict, "error.sku_exists"},
	{service.ErrCategoryIconExists, http.StatusConflict, "error.category_icon_exists"},
	{service.ErrInvalidQuantity, http.StatusBadRequest, "error.invalid_quantity"},
	{service.ErrOutOfStock, http.StatusConflict, "error.out_of_stock"},
	{service.ErrEmptyCart, http.StatusBadRequest, "error.empty_cart"},
	{service.ErrInvalidPaymentMethod, http.StatusBadRequest, "error.invalid_payment_method"},
	{service.ErrAddressRequired, http.StatusBadRequest, "error.address_required"},
	{service.ErrInvalidTransition, http.StatusConflict, "error.invalid_transition"},
	{service.ErrOrderNotCancellable, http.StatusConflict, "error.order_not_cancellable"},
	{service.ErrAwaitingApproval, http.StatusConflict, "error.awaiting_approval"},
	{service.ErrInsufficientPoints, http.StatusBadRequest, "error.insufficient_points"},
	{service.ErrInvalidSignature, http.StatusBadRequest, "error.invalid_signature"},
	{service.ErrPaymentNotPending, http.StatusConflict, "error.payment_not_pending"},
	{service.ErrPaymentNotConfigured, http.StatusServiceUnavailable, "error.payment_not_configured"},
	{service.ErrReturnNotAllowed, http.StatusConflict, "error.return_not_allowed"},
	{service.ErrReturnExists, http.StatusConflict, "error.return_exists"},
	{service.ErrInvalidRefund, http.StatusBadRequest, "error.invalid_refund"},
	{service.ErrInvalidRating, http.StatusBadRequest, "error.invalid_rating"},
	{service.ErrReviewFieldsRequired, http.StatusBadRequest, "error.review_fields_required"},
	{service.ErrChatClosed, http.StatusConflict, "error.chat_closed"},
}

// statusFor 把业务错误映射为状态码与语言包 key；未知错误一律 500。
func statusFor(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.key
		}
	}
	return http.StatusInternalServerError, "error.internal_server_error"
}

// respondServiceError 输出翻译后的错误；ErrValidation 附带具体原因。
func respondServiceError(ctx context.Context, w http.ResponseWriter, action string, err error, i18nMgr *i18n.Manager) {
	status, key := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request failed", "action", action, "error", err)
	}
	resp := map[string]any{
		"error":  translate(ctx, i18nMgr, key),
		"action": action,
	}
	if errors.Is(err, service.ErrValidation) {
		resp["detail"] = err.Error()
	}
	respondJSON(w, status, resp)
}

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errBadRequest
	}
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return errBadRequest
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadRequest
	}
	return id, nil
}

func queryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}

// queryBool 返回 nil 表示未提供该筛选条件。
func queryBool(r *http.Request, name string) *bool {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func currentUser(r *http.Request) requestctx.UserClaims {
	return requestctx.User(r.Context())
}
