package middleware

import (
	repo "reweave/internal/repository"

	"github.com/labstack/echo/v4"
)

// ルート登録で使うミドルウェアの組み合わせ
type Guards struct {
	// JWT必須 + token_version一致
	User []echo.MiddlewareFunc
	// ゲストか会員（カート）
	Optional []echo.MiddlewareFunc
	// User + ADMIN限定
	Admin []echo.MiddlewareFunc
}

func NewGuards(parser TokenParser, users repo.UserRepository) Guards {
	user := []echo.MiddlewareFunc{AuthJWT(parser), TokenVersionGuard(users)}
	return Guards{
		User:     user,
		Optional: []echo.MiddlewareFunc{OptionalAuthJWT(parser), OptionalTokenVersionGuard(users), GuestSession()},
		Admin:    append(append([]echo.MiddlewareFunc{}, user...), AdminRoleGuard()),
	}
}
