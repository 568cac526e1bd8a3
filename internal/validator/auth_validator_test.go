package validator

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"reweave/internal/domain/model"
	"reweave/internal/infra/memory"
	"reweave/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertHTTPError(t *testing.T, err error, status int, msg string) {
	t.Helper()
	he, isHTTP := usecase.AsHTTPError(err)
	require.True(t, isHTTP, "want HTTPError, got %v", err)
	assert.Equal(t, status, he.Status)
	assert.Equal(t, msg, he.Message)
}

func TestValidateRegister(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Repos().Users().Create(ctx, &model.User{Email: "taken@test.com", PasswordHash: "x", IsActive: true}))
	v := NewAuthValidator(store.Repos().Users())

	cases := []struct {
		name     string
		email    string
		password string
		userName string
		status   int
		msg      string
	}{
		{"empty", "", "", "", http.StatusBadRequest, "email and password are required"},
		{"bad email", "not-an-email", "Sup3rSecret!", "", http.StatusBadRequest, "invalid email"},
		{"display name", "Aina <a@test.com>", "Sup3rSecret!", "", http.StatusBadRequest, "invalid email"},
		{"no tld", "a@localhost", "Sup3rSecret!", "", http.StatusBadRequest, "invalid email"},
		{"short", "a@test.com", "short", "", http.StatusBadRequest, "password must be at least 8 characters"},
		{"weak", "a@test.com", "Password123", "", http.StatusBadRequest, "password is too weak"},
		{"long name", "a@test.com", "Sup3rSecret!", strings.Repeat("x", 256), http.StatusBadRequest, "name too long"},
		{"taken", "taken@test.com", "Sup3rSecret!", "", http.StatusConflict, "Email already registered"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateRegister(ctx, tc.email, tc.password, tc.userName)
			assertHTTPError(t, err, tc.status, tc.msg)
		})
	}

	assert.NoError(t, v.ValidateRegister(ctx, "new@test.com", "Sup3rSecret!", "Aina"))
}

func TestValidateLogin(t *testing.T) {
	v := NewAuthValidator(memory.NewStore().Repos().Users())
	ctx := context.Background()

	assertHTTPError(t, v.ValidateLogin(ctx, "", "x"), http.StatusBadRequest, "email and password are required")
	assertHTTPError(t, v.ValidateLogin(ctx, "nope", "x"), http.StatusBadRequest, "invalid email")
	assert.NoError(t, v.ValidateLogin(ctx, "a@test.com", "anything"))
}
