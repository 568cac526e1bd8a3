package handler

import (
	"net/http"
	"strconv"

	"reweave/internal/middleware"
	"reweave/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /products の公開API
type ProductHandler struct {
	uc        *usecase.ProductUsecase
	inventory *usecase.InventoryUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase, inventory *usecase.InventoryUsecase) *ProductHandler {
	return &ProductHandler{uc: uc, inventory: inventory}
}

func (h *ProductHandler) RegisterRoutes(api *echo.Group, _ middleware.Guards) {
	api.GET("/products", h.list)
	api.GET("/products/:id", h.detail)
	api.GET("/products/:id/availability", h.availability)
}

// 金額クエリは小数を許す（"19.90"）
func parseDecimalQuery(c echo.Context, name string) (*decimal.Decimal, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, false
	}
	return &d, true
}

func (h *ProductHandler) list(c echo.Context) error {
	page, limit, valid := parsePaging(c, 20)
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid paging")
	}

	minPrice, valid := parseDecimalQuery(c, "min_price")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid min_price")
	}
	maxPrice, valid := parseDecimalQuery(c, "max_price")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid max_price")
	}

	out, err := h.uc.ListPublicProducts(c.Request().Context(), usecase.ListProductsInput{
		Page:     page,
		Limit:    limit,
		Q:        c.QueryParam("q"),
		Category: c.QueryParam("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     c.QueryParam("sort"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	p, err := h.uc.GetProductDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, p)
}

// ?variant_id=&quantity=（quantityは省略時1）
func (h *ProductHandler) availability(c echo.Context) error {
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var variantID *int64
	if v := c.QueryParam("variant_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fail(c, http.StatusBadRequest, "invalid variant_id")
		}
		variantID = &n
	}

	qty := int64(1)
	if v := c.QueryParam("quantity"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid quantity")
		}
		qty = n
	}

	out, err := h.inventory.ProductAvailability(c.Request().Context(), id, variantID, qty)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}
