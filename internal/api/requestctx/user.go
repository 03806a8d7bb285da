// 文件路径: internal/api/requestctx/user.go
// 模块说明: 在 context 中传递登录用户与语言。
package requestctx

import "context"

// DefaultLanguage 未协商出语言时使用。
const DefaultLanguage = "en-US"

// UserClaims 是鉴权中间件放入 context 的登录信息。
type UserClaims struct {
	ID       int64
	Username string
	Email    string
	IsStaff  bool
}

// Authenticated 报告请求是否携带有效登录。
func (c UserClaims) Authenticated() bool { return c.ID > 0 }

type (
	userKey     struct{}
	languageKey struct{}
)

func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, languageKey{}, lang)
}

// Language 返回协商出的语言，缺省为 DefaultLanguage。
func Language(ctx context.Context) string {
	if ctx != nil {
		if lang, _ := ctx.Value(languageKey{}).(string); lang != "" {
			return lang
		}
	}
	return DefaultLanguage
}

func WithUser(ctx context.Context, claims UserClaims) context.Context {
	return context.WithValue(ctx, userKey{}, claims)
}

// User 取出登录信息；匿名请求得到零值。
func User(ctx context.Context) UserClaims {
	if ctx == nil {
		return UserClaims{}
	}
	claims, _ := ctx.Value(userKey{}).(UserClaims)
	return claims
}

// UserID 返回当前登录用户 ID，未登录为 0。
func UserID(ctx context.Context) int64 {
	return User(ctx).ID
}
