package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"reweave/internal/domain/model"
	"reweave/internal/domain/pricing"
	repo "reweave/internal/repository"

	"go.uber.org/zap"
)

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, email string, password string, name string) error
	ValidateLogin(ctx context.Context, email string, password string) error
}

// 平文パスワードのハッシュ化と照合
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain string, hashed string) bool
}

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(userID int64, role model.Role, tokenVersion int, now time.Time) (token string, expiresAt time.Time, err error)
}

// ログイン時のゲストカート統合
type CartMerger interface {
	MergeGuestCart(ctx context.Context, sessionID string, userID int64) error
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type UserDTO struct {
	ID            int64             `json:"id"`
	Email         string            `json:"email"`
	Name          string            `json:"name"`
	Role          string            `json:"role"`
	TokenVersion  int               `json:"token_version"`
	IsActive      bool              `json:"is_active"`
	LoyaltyPoints int64             `json:"loyalty_points"`
	LoyaltyTier   model.LoyaltyTier `json:"loyalty_tier"`
}

type JwtAccessTokenDTO struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type AuthRegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginResponse struct {
	User  UserDTO           `json:"user"`
	Token JwtAccessTokenDTO `json:"token"`
}

type MeResponse struct {
	UserDTO
	Loyalty pricing.TierProgress `json:"loyalty"`
}

type ForceLogoutResponse struct {
	UserID          int64 `json:"user_id"`
	NewTokenVersion int   `json:"new_token_version"`
}

type AuthUsecase struct {
	users     repo.UserRepository
	validator AuthValidator
	hasher    PasswordHasher
	issuer    AccessTokenIssuer
	carts     CartMerger
	clock     Clock
	log       *zap.Logger
}

func NewAuthUsecase(
	users repo.UserRepository,
	validator AuthValidator,
	hasher PasswordHasher,
	issuer AccessTokenIssuer,
	carts CartMerger,
	clock Clock,
	log *zap.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		validator: validator,
		hasher:    hasher,
		issuer:    issuer,
		carts:     carts,
		clock:     clock,
		log:       log,
	}
}

// Register は登録してそのままログイン状態にする。
// sessionIDがあればゲストカートを引き継ぐ。
func (u *AuthUsecase) Register(ctx context.Context, req AuthRegisterRequest, sessionID string) (*AuthLoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, req.Email, req.Password, req.Name); err != nil {
		return nil, err
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := u.hasher.Hash(req.Password)
	if err != nil {
		return nil, internalError(err)
	}

	user := &model.User{
		Email:         req.Email,
		Name:          req.Name,
		PasswordHash:  pwHash,
		Role:          model.RoleUser,
		TokenVersion:  0,
		IsActive:      true,
		LoyaltyTier:   model.TierBronze,
		LoyaltyPoints: 0,
	}

	//保存（validatorをすり抜けた同時登録はunique違反で弾く）
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, NewHTTPError(http.StatusConflict, "Email already registered")
		}
		return nil, internalError(err)
	}

	return u.signIn(ctx, user, sessionID)
}

func (u *AuthUsecase) Login(ctx context.Context, req AuthLoginRequest, sessionID string) (*AuthLoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := u.validator.ValidateLogin(ctx, req.Email, req.Password); err != nil {
		return nil, err
	}

	//ユーザー取得（存在しない場合もパスワード違いと同じ扱い）
	user, err := u.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err != nil {
		return nil, internalError(err)
	}

	//パスワード照合（bcrypt）
	if !u.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return nil, NewHTTPError(http.StatusForbidden, "Account is disabled")
	}

	//last_login更新
	now := u.clock.Now()
	if err := u.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, internalError(err)
	}
	user.LastLoginAt = &now

	return u.signIn(ctx, user, sessionID)
}

// トークン発行とゲストカート統合
func (u *AuthUsecase) signIn(ctx context.Context, user *model.User, sessionID string) (*AuthLoginResponse, error) {
	now := u.clock.Now()
	accessToken, exp, err := u.issuer.Issue(user.ID, user.Role, user.TokenVersion, now)
	if err != nil {
		return nil, internalError(err)
	}

	u.mergeGuestCart(ctx, sessionID, user.ID)

	return &AuthLoginResponse{
		User: toUserDTO(user),
		Token: JwtAccessTokenDTO{
			AccessToken:  accessToken,
			ExpiresIn:    int(exp.Sub(now).Seconds()),
			TokenVersion: user.TokenVersion,
		},
	}, nil
}

// 失敗してもログインは止めない。ログだけ残す
func (u *AuthUsecase) mergeGuestCart(ctx context.Context, sessionID string, userID int64) {
	if sessionID == "" || u.carts == nil {
		return
	}
	if err := u.carts.MergeGuestCart(ctx, sessionID, userID); err != nil {
		u.log.Warn("guest cart merge failed",
			zap.String("session_id", sessionID),
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (*MeResponse, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err != nil {
		return nil, internalError(err)
	}
	if !user.IsActive {
		return nil, NewHTTPError(http.StatusForbidden, "Account is disabled")
	}

	return &MeResponse{
		UserDTO: toUserDTO(user),
		Loyalty: pricing.ProgressFor(user.LoyaltyPoints),
	}, nil
}

// ForceLogout はtoken_versionを上げて既存のアクセストークンを無効にする（管理者用）
func (u *AuthUsecase) ForceLogout(ctx context.Context, targetUserID int64) (*ForceLogoutResponse, error) {
	if targetUserID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := u.users.IncrementTokenVersion(ctx, targetUserID); err != nil {
		return nil, notFoundOr(err, "User not found")
	}

	//更新後を取得してnew_token_versionを返す
	user, err := u.users.FindByID(ctx, targetUserID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}

	return &ForceLogoutResponse{
		UserID:          user.ID,
		NewTokenVersion: user.TokenVersion,
	}, nil
}

// model.UserをAPI返却用DTOに変換。
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          string(u.Role),
		TokenVersion:  u.TokenVersion,
		IsActive:      u.IsActive,
		LoyaltyPoints: u.LoyaltyPoints,
		LoyaltyTier:   u.LoyaltyTier,
	}
}
