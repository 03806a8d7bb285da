package middleware

import (
	"net/http"
	"time"

	"github.com/creamcroissant/vibemall/internal/api/requestctx"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

const langCookie = "vibemall_lang"

// I18n 依次读取 ?lang、X-Lang 头、cookie 与 Accept-Language，匹配到受支持的语言后写入 context。
func I18n(manager *i18n.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				next.ServeHTTP(w, r)
				return
			}
			query := r.URL.Query().Get("lang")
			var cookie string
			if c, err := r.Cookie(langCookie); err == nil {
				cookie = c.Value
			}
			lang := manager.Match(query, r.Header.Get("X-Lang"), cookie, r.Header.Get("Accept-Language"))

			// 显式切换语言时记住选择
			if query != "" {
				http.SetCookie(w, &http.Cookie{
					Name:     langCookie,
					Value:    lang,
					Path:     "/",
					Expires:  time.Now().Add(365 * 24 * time.Hour),
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set("Content-Language", lang)
			next.ServeHTTP(w, r.WithContext(requestctx.WithLanguage(r.Context(), lang)))
		})
	}
}
