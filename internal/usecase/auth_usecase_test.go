package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"reweave/internal/domain/model"
	"reweave/internal/infra/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =====================
// Mock: AuthValidator
// =====================

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateRegister(ctx context.Context, email string, password string, name string) error {
	args := m.Called(ctx, email, password, name)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

// =====================
// Mock: CartMerger
// =====================

type MockCartMerger struct {
	mock.Mock
}

func (m *MockCartMerger) MergeGuestCart(ctx context.Context, sessionID string, userID int64) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var authNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newAuthUC(f *fixture, v *MockAuthValidator, carts CartMerger) *AuthUsecase {
	return NewAuthUsecase(
		f.store.Repos().Users(),
		v,
		auth.NewBcryptPasswordHasher(4),
		auth.NewJWTIssuer("test-secret", 15*time.Minute),
		carts,
		fixedClock{authNow},
		zap.NewNop(),
	)
}

func TestAuthUsecase_Register_Success(t *testing.T) {
	f := newFixture(t)
	v := new(MockAuthValidator)
	carts := new(MockCartMerger)

	v.On("ValidateRegister", mock.Anything, "user@test.com", "CorrectPW1", "Aina").Return(nil)
	carts.On("MergeGuestCart", mock.Anything, "sess-1", mock.AnythingOfType("int64")).Return(nil)

	uc := newAuthUC(f, v, carts)

	// メールは小文字・trimされる
	res, err := uc.Register(f.ctx, AuthRegisterRequest{Email: "  User@Test.com ", Password: "CorrectPW1", Name: " Aina "}, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "user@test.com", res.User.Email)
	assert.Equal(t, "user", res.User.Role)
	assert.Equal(t, model.TierBronze, res.User.LoyaltyTier)
	assert.NotEmpty(t, res.Token.AccessToken)
	assert.Equal(t, 900, res.Token.ExpiresIn)

	// 平文では保存しない
	saved, err := f.store.Repos().Users().FindByEmail(f.ctx, "user@test.com")
	require.NoError(t, err)
	assert.NotEqual(t, "CorrectPW1", saved.PasswordHash)

	v.AssertExpectations(t)
	carts.AssertExpectations(t)
}

func TestAuthUsecase_Register_ValidationError(t *testing.T) {
	f := newFixture(t)
	v := new(MockAuthValidator)
	v.On("ValidateRegister", mock.Anything, "", "x", "").Return(NewHTTPError(http.StatusBadRequest, "email and password are required"))

	uc := newAuthUC(f, v, nil)

	res, err := uc.Register(f.ctx, AuthRegisterRequest{Password: "x"}, "")
	assert.Nil(t, res)
	assertHTTPError(t, err, http.StatusBadRequest, "email and password are required")
	v.AssertExpectations(t)
}

// validatorをすり抜けた同時登録
func TestAuthUsecase_Register_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.user("dup@test.com")
	v := new(MockAuthValidator)
	v.On("ValidateRegister", mock.Anything, "dup@test.com", "CorrectPW1", "").Return(nil)

	uc := newAuthUC(f, v, nil)

	_, err := uc.Register(f.ctx, AuthRegisterRequest{Email: "dup@test.com", Password: "CorrectPW1"}, "")
	assertHTTPError(t, err, http.StatusConflict, "Email already registered")
}

func registerUser(t *testing.T, f *fixture, email, pass string) *AuthLoginResponse {
	t.Helper()
	v := new(MockAuthValidator)
	v.On("ValidateRegister", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	res, err := newAuthUC(f, v, nil).Register(f.ctx, AuthRegisterRequest{Email: email, Password: pass}, "")
	require.NoError(t, err)
	return res
}

func TestAuthUsecase_Login(t *testing.T) {
	f := newFixture(t)
	registered := registerUser(t, f, "user@test.com", "CorrectPW1")

	v := new(MockAuthValidator)
	v.On("ValidateLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	uc := newAuthUC(f, v, nil)

	t.Run("success", func(t *testing.T) {
		res, err := uc.Login(f.ctx, AuthLoginRequest{Email: "USER@test.com", Password: "CorrectPW1"}, "")
		require.NoError(t, err)
		assert.Equal(t, registered.User.ID, res.User.ID)
		assert.Equal(t, 0, res.Token.TokenVersion)

		u, err := f.store.Repos().Users().FindByID(f.ctx, res.User.ID)
		require.NoError(t, err)
		require.NotNil(t, u.LastLoginAt)
		assert.True(t, authNow.Equal(*u.LastLoginAt))
	})

	t.Run("wrong password", func(t *testing.T) {
		res, err := uc.Login(f.ctx, AuthLoginRequest{Email: "user@test.com", Password: "WrongPW"}, "")
		assert.Nil(t, res)
		assertHTTPError(t, err, http.StatusUnauthorized, "Invalid email or password")
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := uc.Login(f.ctx, AuthLoginRequest{Email: "nobody@test.com", Password: "CorrectPW1"}, "")
		assertHTTPError(t, err, http.StatusUnauthorized, "Invalid email or password")
	})

	t.Run("inactive user", func(t *testing.T) {
		u, err := f.store.Repos().Users().FindByEmail(f.ctx, "user@test.com")
		require.NoError(t, err)
		u.IsActive = false
		require.NoError(t, f.store.Repos().Users().Update(f.ctx, u))

		_, err = uc.Login(f.ctx, AuthLoginRequest{Email: "user@test.com", Password: "CorrectPW1"}, "")
		assertHTTPError(t, err, http.StatusForbidden, "Account is disabled")
	})
}

// 統合に失敗してもログインは成功する
func TestAuthUsecase_Login_MergeFailureDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	registerUser(t, f, "user@test.com", "CorrectPW1")

	v := new(MockAuthValidator)
	v.On("ValidateLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	carts := new(MockCartMerger)
	carts.On("MergeGuestCart", mock.Anything, "sess-x", mock.AnythingOfType("int64")).Return(errors.New("boom"))

	res, err := newAuthUC(f, v, carts).Login(f.ctx, AuthLoginRequest{Email: "user@test.com", Password: "CorrectPW1"}, "sess-x")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token.AccessToken)
	carts.AssertExpectations(t)
}

// ゲストカートがログインでユーザーに移る
func TestAuthUsecase_Login_MergesGuestCart(t *testing.T) {
	f := newFixture(t)
	registered := registerUser(t, f, "user@test.com", "CorrectPW1")
	p := f.product("A", "10.00")
	f.stock(p.ID, nil, 10)

	_, err := f.carts().AddItem(f.ctx, guestOwner("sess-g"), AddCartItemInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	v := new(MockAuthValidator)
	v.On("ValidateLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	_, err = newAuthUC(f, v, f.carts()).Login(f.ctx, AuthLoginRequest{Email: "user@test.com", Password: "CorrectPW1"}, "sess-g")
	require.NoError(t, err)

	cart, err := f.carts().GetCart(f.ctx, userOwner(registered.User.ID))
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2), cart.Items[0].Quantity)
}

func TestAuthUsecase_MeAndForceLogout(t *testing.T) {
	f := newFixture(t)
	registered := registerUser(t, f, "user@test.com", "CorrectPW1")
	uc := newAuthUC(f, new(MockAuthValidator), nil)

	me, err := uc.Me(f.ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierBronze, me.Loyalty.CurrentTier)
	assert.Equal(t, model.TierSilver, me.Loyalty.NextTier)
	assert.Equal(t, int64(1000), me.Loyalty.PointsToNextTier)

	_, err = uc.Me(f.ctx, 0)
	assertHTTPError(t, err, http.StatusUnauthorized, "unauthorized")

	out, err := uc.ForceLogout(f.ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.NewTokenVersion)

	_, err = uc.ForceLogout(f.ctx, 999)
	assertHTTPError(t, err, http.StatusNotFound, "User not found")
}
