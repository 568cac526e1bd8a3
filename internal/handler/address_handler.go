package handler

import (
	"net/http"

	"reweave/internal/middleware"
	"reweave/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AddressHandler struct {
	uc *usecase.AddressUsecase
}

func NewAddressHandler(uc *usecase.AddressUsecase) *AddressHandler {
	return &AddressHandler{uc: uc}
}

func (h *AddressHandler) RegisterRoutes(api *echo.Group, g middleware.Guards) {
	ag := api.Group("/addresses", g.User...)
	ag.GET("", h.list)
	ag.POST("", h.create)
	ag.GET("/:id", h.get)
	ag.PATCH("/:id", h.update)
	ag.DELETE("/:id", h.delete)
	ag.POST("/:id/default", h.setDefault)
}

func (h *AddressHandler) list(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.List(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *AddressHandler) get(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *AddressHandler) create(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req usecase.AddressCreateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.Create(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusCreated, out, "Address created")
}

func (h *AddressHandler) update(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req usecase.AddressUpdateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.Update(c.Request().Context(), userID, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, out, "Address updated")
}

func (h *AddressHandler) delete(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	if err := h.uc.Delete(c.Request().Context(), userID, id); err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, nil, "Address deleted")
}

func (h *AddressHandler) setDefault(c echo.Context) error {
	userID, found := getUserIDFromContext(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	if err := h.uc.SetDefault(c.Request().Context(), userID, id); err != nil {
		return writeError(c, err)
	}
	return okMessage(c, http.StatusOK, nil, "Default address updated")
}
