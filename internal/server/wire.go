package server

import (
	"time"

	"reweave/internal/config"
	"reweave/internal/handler"
	"reweave/internal/infra/auth"
	"reweave/internal/middleware"
	repo "reweave/internal/repository"
	"reweave/internal/usecase"
	"reweave/internal/validator"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Backend はストア実装（GORM / memory）の差し替え口。
// Repos はtx外の読み取りとミドルウェアで使う。
type Backend struct {
	Tx    repo.TransactionManager
	Repos repo.TxRepos
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// NewApp はusecaseとhandlerを組み立ててechoを返す。
// cacheがnilなら商品キャッシュなし。
func NewApp(cfg config.Config, log *zap.Logger, b Backend, cache usecase.ProductCache) *echo.Echo {
	issuer := auth.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	hasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	guards := middleware.NewGuards(issuer, b.Repos.Users())

	carts := usecase.NewCartUsecase(b.Tx, log)
	authUC := usecase.NewAuthUsecase(
		b.Repos.Users(),
		validator.NewAuthValidator(b.Repos.Users()),
		hasher,
		issuer,
		carts,
		systemClock{},
		log,
	)
	inventory := usecase.NewInventoryUsecase(b.Tx, b.Repos.Inventory(), b.Repos.Products(), log)
	products := usecase.NewProductUsecase(b.Tx, b.Repos.Products(), b.Repos.Inventory(), cache, cfg.ProductCacheTTL, log)

	return New(cfg, log, guards,
		handler.NewAuthHandler(authUC),
		handler.NewCartHandler(carts),
		handler.NewOrderHandler(usecase.NewOrderUsecase(b.Tx, log)),
		handler.NewAddressHandler(usecase.NewAddressUsecase(b.Tx)),
		handler.NewPaymentMethodHandler(usecase.NewPaymentMethodUsecase(b.Tx)),
		handler.NewAccountHandler(usecase.NewWishlistUsecase(b.Tx), usecase.NewLoyaltyUsecase(b.Tx)),
		handler.NewProductHandler(products, inventory),
		handler.NewAdminProductHandler(products, inventory),
		handler.NewAdminOrderHandler(usecase.NewAdminOrderUsecase(b.Tx, log), usecase.NewAuditLogUsecase(b.Tx)),
		handler.NewAdminUserHandler(authUC),
	)
}
