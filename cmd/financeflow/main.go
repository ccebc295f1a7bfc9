// Command financeflow is the terminal client for the FinanceFlow backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"financeflow/internal/api"
	"financeflow/internal/app"
	"financeflow/internal/backend"
	"financeflow/internal/cli"
	"financeflow/internal/config"
	"financeflow/internal/log"
	"financeflow/internal/render"
	"financeflow/internal/session"
	"financeflow/internal/storage"
)

const usage = `Usage: financeflow <command> [flags]

Commands:
  login                 sign in (-email, -password)
  register              create an account (-email, -password)
  logout                forget the stored credential
  whoami                show the signed-in user
  dashboard             month summary, breakdown and recent transactions
  budgets               budget progress per category
  budget set CAT AMOUNT set the monthly budget of a category
  expenses              list transactions (-q, -category, -range)
  expense add           record an expense (-amount, -category, -description, -date)
  expense edit ID       change an expense (same flags as add)
  expense rm ID         delete an expense
  categories            list categories
  watch                 redraw the dashboard on every poll
  alerts tail           print budget alerts from the message queue
`

// env is what every command works with.
type env struct {
	cfg    *config.Config
	logger *log.Logger
	repo   storage.Repository
	shell  *app.Shell
	out    io.Writer
	render *render.Renderer
}

func newEnv(cfg *config.Config, out io.Writer) (*env, error) {
	logger := cli.SetupLogger(cfg, os.Stderr)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	repo, err := backend.NewFactory(logger).OpenStore(bcfg)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.APIURL, session.New(repo), api.WithLogger(logger))
	return &env{
		cfg:    cfg,
		logger: logger,
		repo:   repo,
		shell:  app.New(client, repo, app.Config{PollInterval: cfg.PollInterval, Logger: logger}),
		out:    out,
		render: render.New(out),
	}, nil
}

func (e *env) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.shell.Close(ctx); err != nil {
		e.logger.Warn("Shell did not stop cleanly", log.FieldError, err)
	}
	if err := e.repo.Close(); err != nil {
		e.logger.Warn("Failed to close store", log.FieldError, err)
	}
}

// requireSession restores the stored credential and waits for the first
// snapshot.
func (e *env) requireSession(ctx context.Context) error {
	if err := e.shell.Start(ctx); err != nil {
		return err
	}
	if e.shell.State() != app.StateAuthenticated {
		return errNotSignedIn
	}
	return e.shell.Refresh(ctx)
}

var errNotSignedIn = errors.New("not signed in, run `financeflow login`")

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := newEnv(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "financeflow:", err)
		os.Exit(1)
	}

	err = run(ctx, e, os.Args[1], os.Args[2:])
	e.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "financeflow:", describe(err))
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// describe turns errors into what a user should read.
func describe(err error) string {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, api.ErrUnauthorized):
		return "session expired, run `financeflow login` again"
	default:
		return err.Error()
	}
}
