// Package main запускает HTTP-сервер клиента магазина WoodCraft.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/woodcraft-storefront/internal/config"
	"github.com/mmeshcher/woodcraft-storefront/internal/gateway"
	"github.com/mmeshcher/woodcraft-storefront/internal/generation"
	"github.com/mmeshcher/woodcraft-storefront/internal/handler"
	"github.com/mmeshcher/woodcraft-storefront/internal/middleware"
	"github.com/mmeshcher/woodcraft-storefront/internal/repository"
	"github.com/mmeshcher/woodcraft-storefront/internal/service"
	"github.com/mmeshcher/woodcraft-storefront/internal/watermark"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	shippingFee, err := cfg.ShippingFeeAmount()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// История генераций сохраняется только при заданной базе данных
	var history generation.HistoryStore
	if cfg.DatabaseURI != "" {
		repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		defer repo.Close()
		history = repo
	} else {
		sugar.Info("DATABASE_URI is not set, generation history is kept in memory")
	}

	client := gateway.NewClient(cfg.APIURL, gateway.Options{
		Timeout:  cfg.GatewayTimeout,
		RetryMax: cfg.GatewayRetryMax,
		Logger:   logger,
	})
	protector := watermark.NewProtector(watermark.Options{
		MaxWidth: cfg.WatermarkMaxWidth,
		Logger:   logger,
	})

	svc := service.NewService(client, protector, history, logger, service.Options{
		PollInterval:          cfg.PollInterval,
		MaxPolls:              cfg.MaxPolls,
		MessageRefresh:        cfg.MessageRefreshInterval,
		AccessRefresh:         cfg.AccessRefreshInterval,
		AccessRequestsRefresh: cfg.AccessRequestsRefreshInterval,
		ShippingFee:           shippingFee,
	})
	defer svc.Close()

	secret := cfg.SessionSecret
	if secret == "" {
		secret = uuid.NewString()
		sugar.Warn("SESSION_SECRET is not set, using a random secret; sessions will not survive a restart")
	}

	authMiddleware := middleware.NewAuthMiddleware(secret, svc)
	h := handler.NewHandler(svc, logger, authMiddleware)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting storefront server", "addr", cfg.RunAddress, "api", cfg.APIURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
