package handler

import (
	"net/http"

	"reweave/internal/middleware"
	"reweave/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 同じキーの再送は同じ注文を返す
const HeaderIdempotencyKey = "X-Idempotency-Key"

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// shippingAddress（オブジェクト）か shippingAddressId のどちらか。snake_caseも受ける
type CheckoutRequest struct {
	ShippingAddress   *usecase.AddressInput `json:"shippingAddress"`
	ShippingAddressID int64                 `json:"shippingAddressId"`
	BillingAddress    *usecase.AddressInput `json:"billingAddress"`
	PaymentMethod     string                `json:"paymentMethod"`
	Notes             string                `json:"notes"`

	ShippingAddressSnake   *usecase.AddressInput `json:"shipping_address"`
	ShippingAddressIDSnake int64                 `json:"shipping_address_id"`
	BillingAddressSnake    *usecase.AddressInput `json:"billing_address"`
	PaymentMethodSnake     string                `json:"payment_method"`
}

// camelCaseが無ければsnake_caseで埋める
func (r CheckoutRequest) input(key string) usecase.CheckoutInput {
	in := usecase.CheckoutInput{
		ShippingAddress:   r.ShippingAddress,
		ShippingAddressID: r.ShippingAddressID,
		BillingAddress:    r.BillingAddress,
		PaymentMethod:     r.PaymentMethod,
		Notes:             r.Notes,
		IdempotencyKey:    key,
	}
	if in.ShippingAddress == nil {
		in.ShippingAddress = r.ShippingAddressSnake
	}
	if in.ShippingAddressID == 0 {
		in.ShippingAddressID = r.ShippingAddressIDSnake
	}
	if in.BillingAddress == nil {
		in.BillingAddress = r.BillingAddressSnake
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = r.PaymentMethodSnake
	}
	return in
}

func (h *OrderHandler) RegisterRoutes(api *echo.Group, g middleware.Guards) {
	og := api.Group("/orders", g.User...)
	og.POST("", h.checkout)
	og.GET("", h.listMine)
	og.GET("/:id", h.detail)
	og.POST("/:id/cancel", h.cancel)
}

func (h *OrderHandler) checkout(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.Checkout(c.Request().Context(), userID, req.input(c.Request().Header.Get(HeaderIdempotencyKey)))
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusCreated, map[string]interface{}{"order": out}, "Order created successfully")
}

func (h *OrderHandler) listMine(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	page, limit, valid := parsePaging(c, 20)
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid paging")
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	orderID, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.GetMyOrderDetail(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	orderID, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.CancelMyOrder(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, out, "Order cancelled")
}
