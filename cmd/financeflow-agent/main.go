// Command financeflow-agent keeps a signed-in session polling in the
// background. After every successful poll it publishes over-budget alerts,
// and on its own interval it exports the month summary to a spreadsheet.
//
// The agent reuses the credential stored by `financeflow login`.
package main

import (
	"context"
	"os"
	"sync"
	"time"

	"financeflow/internal/api"
	"financeflow/internal/app"
	"financeflow/internal/backend"
	"financeflow/internal/cli"
	"financeflow/internal/log"
	"financeflow/internal/services"
	"financeflow/internal/session"
	"financeflow/internal/worker"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always runs.
func run() int {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg, os.Stdout)
	logger.Info("Starting financeflow-agent", log.FieldOperation, log.OpStartup)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		return 1
	}
	factory := backend.NewFactory(logger)

	repo, err := factory.OpenStore(bcfg)
	if err != nil {
		logger.Error("Failed to open store", log.FieldError, err)
		return 1
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn("Failed to close store", log.FieldError, err)
		}
	}()

	var publisher services.AlertPublisher
	amqpClient, err := factory.OpenPublisher(bcfg)
	if err != nil {
		// Alerts are best effort; the circuit breaker handles later outages.
		logger.Warn("Failed to initialize AMQP client, continuing without alerts", log.FieldError, err)
	} else if amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	exporter, err := factory.OpenExporter(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize exporter", log.FieldError, err)
		return 1
	}

	client := api.NewClient(cfg.APIURL, session.New(repo), api.WithLogger(logger))
	shell := app.New(client, repo, app.Config{PollInterval: cfg.PollInterval, Logger: logger})
	alerts := services.NewAlertService(publisher, repo)
	exports := worker.NewExportWorker(exporter, repo)

	exportPoller := services.NewPoller(func(ctx context.Context) error {
		if shell.State() != app.StateAuthenticated {
			return nil
		}
		_, err := exports.Export(ctx, shell.User().UID, shell.Snapshot())
		return err
	}, services.PollerConfig{Name: "export", Interval: cfg.ExportInterval})

	// stop waits for both pollers, so nothing touches the store or the
	// publisher once it returns.
	stop := func(ctx context.Context) {
		if err := exportPoller.Stop(ctx); err != nil {
			logger.Warn("Export poller did not stop cleanly", log.FieldError, err)
		}
		if err := shell.Close(ctx); err != nil {
			logger.Warn("Shell did not stop cleanly", log.FieldError, err)
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, stop)

	signedOut := make(chan struct{})
	var signOutOnce sync.Once
	shell.Subscribe(func(ev app.Event) {
		switch ev.Kind {
		case app.EventSnapshotUpdated:
			n, err := alerts.Check(ctx, ev.User.UID, ev.Snapshot)
			if err != nil {
				logger.Error("Budget alert check failed", log.FieldUserID, ev.User.UID, log.FieldError, err)
			}
			if n > 0 {
				logger.Info("Published budget alerts", log.FieldUserID, ev.User.UID, "count", n)
			}
		case app.EventStateChanged:
			if ev.State == app.StateUnauthenticated {
				signOutOnce.Do(func() { close(signedOut) })
			}
		}
	})

	stopNow := func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		stop(stopCtx)
	}

	if err := shell.Start(ctx); err != nil {
		logger.Error("Failed to start session", log.FieldError, err)
		stopNow()
		return 1
	}
	if shell.State() != app.StateAuthenticated {
		logger.Error("No valid session, run `financeflow login` first")
		stopNow()
		return 1
	}

	if err := exportPoller.Start(ctx); err != nil {
		logger.Error("Failed to start export poller", log.FieldError, err)
		stopNow()
		return 1
	}

	select {
	case <-ctx.Done():
		cli.WaitForShutdown(ctx, done)
	case <-signedOut:
		logger.Error("Session ended by the backend, run `financeflow login` again")
		stopNow()
		return 1
	}
	logger.Info("Agent stopped gracefully")
	return 0
}
