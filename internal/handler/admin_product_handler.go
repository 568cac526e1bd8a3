package handler

import (
	"net/http"
	"strconv"

	"reweave/internal/middleware"
	"reweave/internal/repository"
	"reweave/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type ProductCreateRequest struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	Category     string                 `json:"category"`
	Images       []string               `json:"images"`
	Price        decimal.Decimal        `json:"price"`
	Status       string                 `json:"status"`
	Variants     []usecase.VariantInput `json:"variants"`
	InitialStock int64                  `json:"initial_stock"`
}

// nilのフィールドは変更しない
type ProductUpdateRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Images      *[]string        `json:"images"`
	Price       *decimal.Decimal `json:"price"`
	Status      *string          `json:"status"`
}

// /admin/products と /admin/inventory をまとめる
type AdminProductHandler struct {
	products  *usecase.ProductUsecase
	inventory *usecase.InventoryUsecase
}

// DI
func NewAdminProductHandler(products *usecase.ProductUsecase, inventory *usecase.InventoryUsecase) *AdminProductHandler {
	return &AdminProductHandler{products: products, inventory: inventory}
}

func (h *AdminProductHandler) RegisterRoutes(api *echo.Group, g middleware.Guards) {
	admin := api.Group("/admin", g.Admin...)

	admin.POST("/products", h.createProduct)
	admin.PATCH("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)

	admin.GET("/inventory", h.listInventory)
	admin.POST("/inventory", h.createInventory)
	admin.PATCH("/inventory/:id", h.updateInventory)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	adminID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req ProductCreateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.products.AdminCreateProduct(c.Request().Context(), adminID, usecase.AdminCreateProductInput{
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Images:       req.Images,
		Price:        req.Price,
		Status:       req.Status,
		Variants:     req.Variants,
		InitialStock: req.InitialStock,
	})
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusCreated, out, "Product created")
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	adminID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req ProductUpdateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.products.AdminUpdateProduct(c.Request().Context(), adminID, id, usecase.AdminUpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Images:      req.Images,
		Price:       req.Price,
		Status:      req.Status,
	})
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, out, "Product updated")
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	adminID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	if err := h.products.AdminDeleteProduct(c.Request().Context(), adminID, id); err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, nil, "Product deleted")
}

// ?low_stock=true&product_id=1
func (h *AdminProductHandler) listInventory(c echo.Context) error {
	page, limit, valid := parsePaging(c, 50)
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid paging")
	}

	f := repository.InventoryListFilter{Page: page, Limit: limit}
	if v := c.QueryParam("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid product_id")
		}
		f.ProductID = &id
	}
	if v := c.QueryParam("low_stock"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid low_stock")
		}
		f.LowStock = b
	}

	out, err := h.inventory.AdminList(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *AdminProductHandler) createInventory(c echo.Context) error {
	adminID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req usecase.AdminCreateInventoryInput
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.inventory.AdminCreate(c.Request().Context(), adminID, req)
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusCreated, out, "Inventory created")
}

func (h *AdminProductHandler) updateInventory(c echo.Context) error {
	adminID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req usecase.AdminUpdateInventoryInput
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.inventory.AdminUpdate(c.Request().Context(), adminID, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, out, "Inventory updated")
}
