package handler

import (
	"net/http"

	"reweave/internal/middleware"
	"reweave/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	uc *usecase.AuthUsecase
}

// DIコンストラクタ
func NewAuthHandler(uc *usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// /auth/register, /auth/login はゲストセッションを読む（カート統合のため）
func (h *AuthHandler) RegisterRoutes(api *echo.Group, g middleware.Guards) {
	a := api.Group("/auth", middleware.GuestSession())
	a.POST("/register", h.register)
	a.POST("/login", h.login)

	api.GET("/users/me", h.me, g.User...)
}

func (h *AuthHandler) register(c echo.Context) error {
	var req usecase.AuthRegisterRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.Register(c.Request().Context(), req, getSessionIDFromContext(c))
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusCreated, out, "Registration successful")
}

func (h *AuthHandler) login(c echo.Context) error {
	var req usecase.AuthLoginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.Login(c.Request().Context(), req, getSessionIDFromContext(c))
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, out, "Login successful")
}

func (h *AuthHandler) me(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.Me(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}
