package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reweave/internal/config"
	"reweave/internal/infra/cache"
	"reweave/internal/infra/db"
	"reweave/internal/infra/logger"
	"reweave/internal/infra/memory"
	infraRepo "reweave/internal/infra/repository"
	"reweave/internal/server"
	"reweave/internal/usecase"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(cfg, zl)
	if err != nil {
		return err
	}

	// interfaceにnilポインタを入れないよう、使うときだけ代入する
	var productCache usecase.ProductCache
	if cfg.RedisAddr != "" {
		rs := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rs.Close()

		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rs.Ping(pctx)
		cancel()
		if err != nil {
			// キャッシュが無くても動く
			zl.Warn("redis unavailable, product cache disabled", zap.Error(err))
		} else {
			productCache = rs
		}
	}

	e := server.NewApp(cfg, zl, backend, productCache)
	return server.Run(ctx, e, cfg.Addr(), 15*time.Second, zl)
}

func openBackend(cfg config.Config, zl *zap.Logger) (server.Backend, error) {
	if cfg.StoreDriver == config.StoreMemory {
		zl.Warn("using in-memory store, data is lost on restart")
		st := memory.NewStore()
		return server.Backend{Tx: st, Repos: st.Repos()}, nil
	}

	gdb, err := db.Connect(cfg.DSN(), zl)
	if err != nil {
		return server.Backend{}, err
	}
	if !cfg.IsProd() {
		if err := db.Migrate(gdb); err != nil {
			return server.Backend{}, err
		}
	}
	return server.Backend{
		Tx:    infraRepo.NewTxManagerGorm(gdb),
		Repos: infraRepo.NewRepos(gdb),
	}, nil
}
