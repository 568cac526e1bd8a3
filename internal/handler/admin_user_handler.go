package handler

import (
	"net/http"

	"reweave/internal/middleware"
	"reweave/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminUserHandler struct {
	uc *usecase.AuthUsecase
}

func NewAdminUserHandler(uc *usecase.AuthUsecase) *AdminUserHandler {
	return &AdminUserHandler{uc: uc}
}

func (h *AdminUserHandler) RegisterRoutes(api *echo.Group, g middleware.Guards) {
	admin := api.Group("/admin", g.Admin...)
	admin.POST("/users/:id/force-logout", h.forceLogout)
}

// 発行済みトークンを全部無効にする（token_version++）
func (h *AdminUserHandler) forceLogout(c echo.Context) error {
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.ForceLogout(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, out, "User logged out")
}
