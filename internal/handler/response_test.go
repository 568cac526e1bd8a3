package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"reweave/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWriteError(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		c, rec := newTestContext("/")
		require.NoError(t, writeError(c, usecase.NewHTTPError(http.StatusNotFound, "Order not found")))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"success":false,"error":"Order not found"}`, rec.Body.String())
	})

	t.Run("insufficient inventory", func(t *testing.T) {
		c, rec := newTestContext("/")
		vid := int64(3)
		err := &usecase.InsufficientInventoryError{ProductID: 7, VariantID: &vid, Requested: 5, Available: 2}
		require.NoError(t, writeError(c, err))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{
			"success": false,
			"error": "`+err.Error()+`",
			"data": {"product_id": 7, "variant_id": 3, "requested_quantity": 5, "available_quantity": 2}
		}`, rec.Body.String())
	})

	// 原因はクライアントに出さない
	t.Run("unknown error", func(t *testing.T) {
		c, rec := newTestContext("/")
		require.NoError(t, writeError(c, errors.New("pq: connection refused")))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"success":false,"error":"internal error"}`, rec.Body.String())
	})
}

func TestParsePaging(t *testing.T) {
	c, _ := newTestContext("/?page=3&limit=5")
	page, limit, valid := parsePaging(c, 20)
	require.True(t, valid)
	assert.Equal(t, 3, page)
	assert.Equal(t, 5, limit)

	c, _ = newTestContext("/")
	page, limit, valid = parsePaging(c, 20)
	require.True(t, valid)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	c, _ = newTestContext("/?page=abc")
	_, _, valid = parsePaging(c, 20)
	assert.False(t, valid)
}
