package handler

import (
	"net/http"
	"strconv"

	"reweave/internal/middleware"
	"reweave/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// 全レスポンス共通の形 {success, data?, message?, error?}
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// 在庫不足のときにdataに入れる
type InsufficientInventoryData struct {
	ProductID         int64  `json:"product_id"`
	VariantID         *int64 `json:"variant_id"`
	RequestedQuantity int64  `json:"requested_quantity"`
	AvailableQuantity int64  `json:"available_quantity"`
}

func ok(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Response{Success: true, Data: data})
}

func okMessage(c echo.Context, status int, data interface{}, message string) error {
	return c.JSON(status, Response{Success: true, Data: data, Message: message})
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, Response{Success: false, Error: msg})
}

// writeError はusecaseのエラーをステータスに変換する。
// 500は原因をログに出し、クライアントには汎用メッセージだけ返す。
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	if ie, isInv := usecase.AsInsufficientInventory(err); isInv {
		return c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   ie.Error(),
			Data: InsufficientInventoryData{
				ProductID:         ie.ProductID,
				VariantID:         ie.VariantID,
				RequestedQuantity: ie.Requested,
				AvailableQuantity: ie.Available,
			},
		})
	}

	if he, isHTTP := usecase.AsHTTPError(err); isHTTP {
		if he.Status >= http.StatusInternalServerError {
			logger(c).Error("request failed", zap.Int("status", he.Status), zap.Error(he.Err))
			return fail(c, he.Status, "internal error")
		}
		return fail(c, he.Status, he.Message)
	}

	//500
	logger(c).Error("unhandled error", zap.Error(err))
	return fail(c, http.StatusInternalServerError, "internal error")
}

func logger(c echo.Context) *zap.Logger {
	return middleware.Logger(c, zap.L())
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func getSessionIDFromContext(c echo.Context) string {
	sid, _ := c.Get(middleware.CtxSessionIDKey).(string)
	return sid
}

// パスパラメータのID
func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// page（default 1）とlimit（defaultは呼び出し側）
func parsePaging(c echo.Context, defaultLimit int) (int, int, bool) {
	page := 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		page = p
	}

	limit := defaultLimit
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		limit = l
	}
	return page, limit, true
}
