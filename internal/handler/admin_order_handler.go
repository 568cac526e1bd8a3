package handler

import (
	"net/http"
	"strconv"

	"reweave/internal/domain/model"
	"reweave/internal/middleware"
	"reweave/internal/repository"
	"reweave/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	orders *usecase.AdminOrderUsecase
	audit  *usecase.AuditLogUsecase
}

func NewAdminOrderHandler(orders *usecase.AdminOrderUsecase, audit *usecase.AuditLogUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{orders: orders, audit: audit}
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *AdminOrderHandler) RegisterRoutes(api *echo.Group, g middleware.Guards) {
	admin := api.Group("/admin", g.Admin...)

	admin.GET("/orders", h.list)
	admin.PUT("/orders/:id/status", h.updateStatus)
	admin.PUT("/orders/:id/payment-status", h.updatePaymentStatus)
	admin.GET("/audit-logs", h.listAuditLogs)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page, limit, valid := parsePaging(c, 50)
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid paging")
	}

	f := repository.AdminOrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
	}

	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid user_id")
		}
		f.UserID = &id
	}

	if f.From, valid = usecase.ParseDateTimeRFC3339(c.QueryParam("from")); !valid {
		return fail(c, http.StatusBadRequest, "invalid from")
	}
	if f.To, valid = usecase.ParseDateTimeRFC3339(c.QueryParam("to")); !valid {
		return fail(c, http.StatusBadRequest, "invalid to")
	}

	out, err := h.orders.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	// 操作した管理者ID（監査ログ用）
	adminID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	orderID, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req StatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.orders.UpdateStatus(c.Request().Context(), adminID, orderID, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, out, "Order status updated")
}

func (h *AdminOrderHandler) updatePaymentStatus(c echo.Context) error {
	adminID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	orderID, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req StatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.orders.UpdatePaymentStatus(c.Request().Context(), adminID, orderID, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, out, "Payment status updated")
}

func (h *AdminOrderHandler) listAuditLogs(c echo.Context) error {
	page, limit, valid := parsePaging(c, 50)
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid paging")
	}

	f := repository.AuditLogFilter{Page: page, Limit: limit}

	if v := c.QueryParam("actor_user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid actor_user_id")
		}
		f.ActorUserID = &id
	}
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}
	if v := c.QueryParam("resource_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid resource_id")
		}
		f.ResourceID = &id
	}
	if f.From, valid = usecase.ParseDateTimeRFC3339(c.QueryParam("from")); !valid {
		return fail(c, http.StatusBadRequest, "invalid from")
	}
	if f.To, valid = usecase.ParseDateTimeRFC3339(c.QueryParam("to")); !valid {
		return fail(c, http.StatusBadRequest, "invalid to")
	}

	out, err := h.audit.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}
