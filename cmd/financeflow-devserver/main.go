// Command financeflow-devserver runs the in-memory reference backend.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"financeflow/internal/cli"
	apphttp "financeflow/internal/http"
	"financeflow/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg, os.Stdout)

	srv := apphttp.NewServer(apphttp.ServerConfig{
		Addr:          ":" + cfg.Port,
		JWTSecret:     cfg.JWTSecret,
		TokenTTL:      apphttp.DefaultTokenTTL,
		AuthRateLimit: cfg.AuthRateLimit,
	}, apphttp.NewStore(), logger)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting financeflow dev server", "port", cfg.Port, log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
