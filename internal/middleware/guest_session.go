package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ゲストカートのセッションIDを運ぶヘッダ
const HeaderSessionID = "X-Session-Id"

const maxSessionIDLength = 100

// GuestSession は x-session-id をcontextに入れる。無くても通す。
func GuestSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := strings.TrimSpace(c.Request().Header.Get(HeaderSessionID))
			if sid == "" {
				return next(c)
			}
			if len(sid) > maxSessionIDLength {
				return c.JSON(http.StatusBadRequest, errorJSON("invalid session id"))
			}
			c.Set(CtxSessionIDKey, sid)
			return next(c)
		}
	}
}
