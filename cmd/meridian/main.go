package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridian-erp/meridian/internal/app"
	"github.com/meridian-erp/meridian/internal/authz"
	"github.com/meridian-erp/meridian/internal/coa"
	"github.com/meridian-erp/meridian/internal/documents"
	dochttp "github.com/meridian-erp/meridian/internal/documents/http"
	"github.com/meridian-erp/meridian/internal/ledger"
	"github.com/meridian-erp/meridian/internal/platform/cache"
	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/reports"
	"github.com/meridian-erp/meridian/internal/rules"
	"github.com/meridian-erp/meridian/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, caches disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	authzService := authz.NewService(pool, authz.NewCache(redisClient, cfg.AuthzCacheTTL))

	accountsService := coa.NewService(coa.NewRepository(pool))
	documentsService := documents.NewService(documents.NewRepository(pool))
	ruleResolver := rules.NewRepository(pool)

	ledgerService := ledger.NewService(ledger.NewRepository(pool), ruleResolver, authzService, auditLogger)

	reportsService := reports.NewService(ledgerService, reports.NewCache(redisClient, cfg.ReportCacheTTL))

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AccountsHandler: coa.NewHandler(logger, accountsService),
		InvoiceHandler:  dochttp.NewHandler(logger, documents.TypeInvoice, documentsService, ledgerService),
		JournalHandler:  dochttp.NewHandler(logger, documents.TypeJournal, documentsService, ledgerService),
		ReportsHandler:  reports.NewHandler(logger, reportsService),
		AuthzMiddleware: authz.Middleware{Service: authzService, Logger: logger},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
}
