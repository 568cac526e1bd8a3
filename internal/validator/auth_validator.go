package validator

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	repo "reweave/internal/repository"
	"reweave/internal/usecase"
)

// パスワードの最低文字数
const minPasswordLength = 8

// よくある弱いパスワード
var weakPasswords = map[string]struct{}{
	"password":     {},
	"password123":  {},
	"123456789012": {},
	"1234567890":   {},
	"12345678":     {},
	"qwertyuiop":   {},
	"letmein123":   {},
	"admin123":     {},
}

type authValidator struct {
	users repo.UserRepository
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repo.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, email string, password string, name string) error {
	if email == "" || password == "" {
		return usecase.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}
	if !isEmailLike(email) {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	if len(password) < minPasswordLength {
		return usecase.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}
	if _, weak := weakPasswords[strings.ToLower(password)]; weak {
		return usecase.NewHTTPError(http.StatusBadRequest, "password is too weak")
	}
	if len(name) > 255 {
		return usecase.NewHTTPError(http.StatusBadRequest, "name too long")
	}

	// email重複チェック（DBが必要）
	_, err := v.users.FindByEmail(ctx, email)
	if err == nil {
		return usecase.NewHTTPError(http.StatusConflict, "Email already registered")
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	if email == "" || password == "" {
		return usecase.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}
	if !isEmailLike(email) {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	return nil
}

// 簡易メール形式をチェック（表示名付きは不可）
func isEmailLike(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}
