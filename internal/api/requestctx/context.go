// 文件路径: internal/api/requestctx/context.go
// 模块说明: 在请求 context 中传递订阅用户与语言。
package requestctx

import (
	"context"

	"github.com/creamcroissant/xboard-sub/internal/repository"
)

type contextKey string

const (
	userContextKey contextKey = "xboard-sub-user"
	langContextKey contextKey = "xboard-sub-lang"
)

// WithUser 把通过 token 校验的用户附加到 context。
func WithUser(ctx context.Context, user *repository.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext 取出用户，未设置时返回 nil。
func UserFromContext(ctx context.Context) *repository.User {
	if ctx == nil {
		return nil
	}
	user, _ := ctx.Value(userContextKey).(*repository.User)
	return user
}

// WithLanguage 将语言标识附加到 context 中供下游使用。
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langContextKey, lang)
}

// GetLanguage 从 context 中获取语言标识，未设置时返回空串，由翻译器回退默认语言。
func GetLanguage(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	lang, _ := ctx.Value(langContextKey).(string)
	return lang
}
