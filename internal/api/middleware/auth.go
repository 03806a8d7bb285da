// 文件路径: internal/api/middleware/auth.go
// 模块说明: Bearer JWT 鉴权；封禁用户在 Verify 阶段被拒绝，通过后刷新最后活跃时间。
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/creamcroissant/vibemall/internal/api/requestctx"
	"github.com/creamcroissant/vibemall/internal/service"
)

// UserGuard ensures requests are authenticated end users.
func UserGuard(auth service.AuthService) func(http.Handler) http.Handler {
	return guard(auth, false)
}

// AdminGuard ensures requests originate from authenticated staff.
func AdminGuard(auth service.AuthService) func(http.Handler) http.Handler {
	return guard(auth, true)
}

// OptionalUser 有合法令牌时附加用户信息，没有或无效时按游客处理。
func OptionalUser(auth service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r.Header.Get("Authorization"))
			if auth == nil || token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := auth.Verify(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r, claims)))
		})
	}
}

func guard(auth service.AuthService, staffOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				writeError(w, http.StatusServiceUnavailable, "auth service unavailable")
				return
			}
			token := extractBearer(r.Header.Get("Authorization"))
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			claims, err := auth.Verify(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrAccountBlocked):
					writeError(w, http.StatusForbidden, "account blocked")
				case errors.Is(err, service.ErrAccountDisabled):
					writeError(w, http.StatusForbidden, "account disabled")
				default:
					writeError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}
			if staffOnly && !claims.IsStaff {
				writeError(w, http.StatusForbidden, "admin privileges required")
				return
			}
			if err := auth.TouchActivity(r.Context(), claims.UserID); err != nil {
				slog.Warn("touch activity failed", "user_id", claims.UserID, "error", err)
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r, claims)))
		})
	}
}

func withClaims(r *http.Request, claims *service.Claims) context.Context {
	recordUser(r.Context(), claims.UserID)
	return requestctx.WithUser(r.Context(), requestctx.UserClaims{
		ID:       claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		IsStaff:  claims.IsStaff,
	})
}

func extractBearer(header string) string {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return ""
	}
	parts := strings.SplitN(trimmed, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return trimmed
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
