package handler

import (
	"net/http"

	"reweave/internal/middleware"
	"reweave/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /wishlist と /loyalty
type AccountHandler struct {
	wishlist *usecase.WishlistUsecase
	loyalty  *usecase.LoyaltyUsecase
}

func NewAccountHandler(wishlist *usecase.WishlistUsecase, loyalty *usecase.LoyaltyUsecase) *AccountHandler {
	return &AccountHandler{wishlist: wishlist, loyalty: loyalty}
}

type WishlistAddRequest struct {
	ProductID int64 `json:"product_id"`
}

func (h *AccountHandler) RegisterRoutes(api *echo.Group, g middleware.Guards) {
	wg := api.Group("/wishlist", g.User...)
	wg.GET("", h.listWishlist)
	wg.POST("", h.addWishlist)
	wg.DELETE("", h.clearWishlist)
	wg.DELETE("/:productId", h.removeWishlist)

	lg := api.Group("/loyalty", g.User...)
	lg.GET("/balance", h.balance)
	lg.GET("/history", h.history)
	lg.POST("/redeem", h.redeem)
}

func (h *AccountHandler) listWishlist(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.wishlist.List(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *AccountHandler) addWishlist(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req WishlistAddRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.wishlist.Add(c.Request().Context(), userID, req.ProductID)
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusCreated, out, "Added to wishlist")
}

func (h *AccountHandler) removeWishlist(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	productID, valid := parseIDParam(c, "productId")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid product id")
	}

	if err := h.wishlist.Remove(c.Request().Context(), userID, productID); err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, nil, "Removed from wishlist")
}

func (h *AccountHandler) clearWishlist(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	if err := h.wishlist.Clear(c.Request().Context(), userID); err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, nil, "Wishlist cleared")
}

func (h *AccountHandler) balance(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.loyalty.Balance(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *AccountHandler) history(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	page, limit, valid := parsePaging(c, 20)
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid paging")
	}

	out, err := h.loyalty.History(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *AccountHandler) redeem(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req usecase.RedeemInput
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.loyalty.Redeem(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, out, "Points redeemed")
}
