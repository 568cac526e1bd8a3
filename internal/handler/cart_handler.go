package handler

import (
	"net/http"

	"reweave/internal/domain/model"
	"reweave/internal/middleware"
	"reweave/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP（ゲストはx-session-id、会員はbearer）
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

// productId / variantId が正。snake_caseも受ける
type AddCartRequest struct {
	ProductID int64  `json:"productId"`
	VariantID *int64 `json:"variantId"`
	Quantity  int64  `json:"quantity"`

	ProductIDSnake int64  `json:"product_id"`
	VariantIDSnake *int64 `json:"variant_id"`
}

func (r AddCartRequest) productID() int64 {
	if r.ProductID != 0 {
		return r.ProductID
	}
	return r.ProductIDSnake
}

func (r AddCartRequest) variantID() *int64 {
	if r.VariantID != nil {
		return r.VariantID
	}
	return r.VariantIDSnake
}

type UpdateCartItemRequest struct {
	Quantity int64 `json:"quantity"`
}

func (h *CartHandler) RegisterRoutes(api *echo.Group, g middleware.Guards) {
	// セッション発行は誰でも
	api.POST("/cart/session", h.newSession)

	// 参照と追加はゲストも可
	cg := api.Group("/cart", g.Optional...)
	cg.GET("", h.getCart)
	cg.GET("/validate", h.validate)
	cg.POST("/items", h.addItem)

	// 変更・削除はログイン必須
	mg := api.Group("/cart", g.User...)
	mg.PUT("/items/:itemId", h.updateItem)
	mg.DELETE("/items/:itemId", h.removeItem)
	mg.DELETE("/clear", h.clear)
}

// 会員ならuser_id、ゲストならsession_id
func (h *CartHandler) owner(c echo.Context) (model.CartOwner, error) {
	userID, _ := getUserIDFromContext(c)
	return usecase.ResolveOwner(userID, getSessionIDFromContext(c))
}

func (h *CartHandler) newSession(c echo.Context) error {
	return ok(c, http.StatusCreated, map[string]string{"session_id": h.uc.NewSessionID()})
}

func (h *CartHandler) getCart(c echo.Context) error {
	owner, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.GetCart(c.Request().Context(), owner)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *CartHandler) addItem(c echo.Context) error {
	owner, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}

	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.AddItem(c.Request().Context(), owner, usecase.AddCartItemInput{
		ProductID: req.productID(),
		VariantID: req.variantID(),
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, out, "Item added to cart")
}

func (h *CartHandler) updateItem(c echo.Context) error {
	owner, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}
	itemID, found := parseIDParam(c, "itemId")
	if !found {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.UpdateItemQuantity(c.Request().Context(), owner, itemID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, out, "Cart updated")
}

func (h *CartHandler) removeItem(c echo.Context) error {
	owner, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}
	itemID, found := parseIDParam(c, "itemId")
	if !found {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.RemoveItem(c.Request().Context(), owner, itemID)
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, out, "Item removed from cart")
}

func (h *CartHandler) clear(c echo.Context) error {
	owner, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Clear(c.Request().Context(), owner)
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, out, "Cart cleared")
}

func (h *CartHandler) validate(c echo.Context) error {
	owner, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ValidateCart(c.Request().Context(), owner)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}
