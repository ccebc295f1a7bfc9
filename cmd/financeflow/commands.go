package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"financeflow/internal/amqp"
	"financeflow/internal/app"
	"financeflow/internal/core"
	"financeflow/internal/insights"
	"financeflow/internal/log"
	"financeflow/internal/render"
)

var errUsage = errors.New("invalid usage, see `financeflow help`")

func run(ctx context.Context, e *env, cmd string, args []string) error {
	switch cmd {
	case "login":
		return cmdAuth(ctx, e, args, false)
	case "register":
		return cmdAuth(ctx, e, args, true)
	case "logout":
		return cmdLogout(ctx, e)
	case "whoami":
		return cmdWhoami(ctx, e)
	case "dashboard":
		return cmdDashboard(ctx, e)
	case "budgets":
		return cmdBudgets(ctx, e)
	case "budget":
		return cmdBudget(ctx, e, args)
	case "expenses":
		return cmdExpenses(ctx, e, args)
	case "expense":
		return cmdExpense(ctx, e, args)
	case "categories":
		fmt.Fprint(e.out, e.render.Categories())
		return nil
	case "watch":
		return cmdWatch(ctx, e)
	case "alerts":
		return cmdAlerts(ctx, e, args)
	case "help", "-h", "--help":
		fmt.Fprint(e.out, usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func cmdAuth(ctx context.Context, e *env, args []string, register bool) error {
	name := "login"
	if register {
		name = "register"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("FINANCEFLOW_PASSWORD"), "account password (default $FINANCEFLOW_PASSWORD, else prompted)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *email == "" {
		*email = prompt(e, "Email: ")
	}
	if *password == "" {
		*password = prompt(e, "Password: ")
	}

	auth := e.shell.Login
	if register {
		auth = e.shell.Register
	}
	user, err := auth(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Signed in as %s\n", user.Name())
	return nil
}

func prompt(e *env, label string) string {
	fmt.Fprint(e.out, label)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}

func cmdLogout(ctx context.Context, e *env) error {
	if err := e.shell.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "Signed out")
	return nil
}

func cmdWhoami(ctx context.Context, e *env) error {
	if err := e.shell.Start(ctx); err != nil {
		return err
	}
	if e.shell.State() != app.StateAuthenticated {
		return errNotSignedIn
	}
	u := e.shell.User()
	fmt.Fprintf(e.out, "%s <%s> (%s)\n", u.Name(), u.Email, u.UID)
	return nil
}

func cmdDashboard(ctx context.Context, e *env) error {
	if err := e.requireSession(ctx); err != nil {
		return err
	}
	fmt.Fprint(e.out, e.render.Dashboard(e.shell.Dashboard(time.Now())))
	return nil
}

func cmdBudgets(ctx context.Context, e *env) error {
	if err := e.requireSession(ctx); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Budgets · %s\n", time.Now().Format("January 2006"))
	fmt.Fprint(e.out, e.render.BudgetCards(e.shell.BudgetCards(time.Now())))
	return nil
}

func cmdBudget(ctx context.Context, e *env, args []string) error {
	if len(args) != 3 || args[0] != "set" {
		return fmt.Errorf("%w: budget set CATEGORY AMOUNT", errUsage)
	}
	category, err := core.ParseCategory(args[1])
	if err != nil {
		return err
	}
	if err := e.requireSession(ctx); err != nil {
		return err
	}

	b, applied, err := e.shell.SetBudget(ctx, category, args[2])
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	fmt.Fprintf(e.out, "%s budget set to %s\n", b.Category.Label(), render.Currency(b.Amount))
	return nil
}

func cmdExpenses(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("expenses", flag.ContinueOnError)
	query := fs.String("q", "", "search descriptions")
	category := fs.String("category", "All", "category or All")
	dateRange := fs.String("range", "all", "all, 7d, this-month or last-month")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	criteria := insights.Criteria{Query: *query, Category: insights.AllCategories}
	if !strings.EqualFold(*category, string(insights.AllCategories)) {
		c, err := core.ParseCategory(*category)
		if err != nil {
			return err
		}
		criteria.Category = c
	}
	r, err := insights.ParseDateRange(*dateRange)
	if err != nil {
		return err
	}
	criteria.Range = r

	if err := e.requireSession(ctx); err != nil {
		return err
	}
	fmt.Fprint(e.out, e.render.Transactions(e.shell.Transactions(criteria, time.Now())))
	return nil
}

func cmdExpense(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: expense add|edit|rm", errUsage)
	}
	switch args[0] {
	case "add":
		return cmdExpenseAdd(ctx, e, args[1:])
	case "edit":
		return cmdExpenseEdit(ctx, e, args[1:])
	case "rm":
		if len(args) != 2 {
			return fmt.Errorf("%w: expense rm ID", errUsage)
		}
		if err := e.requireSession(ctx); err != nil {
			return err
		}
		if err := e.shell.DeleteExpense(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintln(e.out, "Deleted", args[1])
		return nil
	default:
		return fmt.Errorf("%w: unknown expense command %q", errUsage, args[0])
	}
}

// expenseFlags registers the editable expense fields on fs.
type expenseFlags struct {
	amount, category, description, date *string
}

func newExpenseFlags(fs *flag.FlagSet, defaultDate string) expenseFlags {
	return expenseFlags{
		amount:      fs.String("amount", "", "amount, e.g. 12.50"),
		category:    fs.String("category", "", "category"),
		description: fs.String("description", "", "description"),
		date:        fs.String("date", defaultDate, "date YYYY-MM-DD"),
	}
}

func cmdExpenseAdd(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("expense add", flag.ContinueOnError)
	f := newExpenseFlags(fs, core.DateOf(time.Now()).String())
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	amount, err := core.ParseAmount(*f.amount)
	if err != nil {
		return fmt.Errorf("amount %q: %w", *f.amount, err)
	}
	category, err := core.ParseCategory(*f.category)
	if err != nil {
		return err
	}
	date, err := core.ParseDate(*f.date)
	if err != nil {
		return err
	}

	if err := e.requireSession(ctx); err != nil {
		return err
	}
	exp, err := e.shell.AddExpense(ctx, core.ExpenseInput{
		Amount:      amount,
		Category:    category,
		Description: *f.description,
		Date:        date,
	})
	if err != nil {
		return err
	}
	e.logger.Debug("Expense created", log.FieldExpenseID, exp.ID)
	fmt.Fprintf(e.out, "Added %s %s on %s (%s)\n", render.Currency(exp.Amount), exp.Category.Label(), exp.Date, exp.ID)
	return nil
}

func cmdExpenseEdit(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("%w: expense edit ID [flags]", errUsage)
	}
	id := args[0]
	fs := flag.NewFlagSet("expense edit", flag.ContinueOnError)
	f := newExpenseFlags(fs, "")
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}

	var patch core.ExpensePatch
	var parseErr error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "amount":
			m, err := core.ParseAmount(*f.amount)
			if err != nil {
				parseErr = fmt.Errorf("amount %q: %w", *f.amount, err)
				return
			}
			patch.Amount = &m
		case "category":
			c, err := core.ParseCategory(*f.category)
			if err != nil {
				parseErr = err
				return
			}
			patch.Category = &c
		case "description":
			patch.Description = f.description
		case "date":
			d, err := core.ParseDate(*f.date)
			if err != nil {
				parseErr = err
				return
			}
			patch.Date = &d
		}
	})
	if parseErr != nil {
		return parseErr
	}

	if err := e.requireSession(ctx); err != nil {
		return err
	}
	exp, err := e.shell.UpdateExpense(ctx, id, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Updated %s: %s %s on %s\n", exp.ID, render.Currency(exp.Amount), exp.Category.Label(), exp.Date)
	return nil
}

// cmdWatch redraws the dashboard after every successful poll until
// interrupted or signed out.
func cmdWatch(ctx context.Context, e *env) error {
	updates := make(chan struct{}, 1)
	signedOut := make(chan struct{}, 1)
	e.shell.Subscribe(func(ev app.Event) {
		switch {
		case ev.Kind == app.EventSnapshotUpdated:
			select {
			case updates <- struct{}{}:
			default:
			}
		case ev.Kind == app.EventPollFailed:
			e.logger.Warn("Poll failed, showing last data", log.FieldError, ev.Err)
		case ev.Kind == app.EventStateChanged && ev.State == app.StateUnauthenticated:
			select {
			case signedOut <- struct{}{}:
			default:
			}
		}
	})

	if err := e.shell.Start(ctx); err != nil {
		return err
	}
	if e.shell.State() != app.StateAuthenticated {
		return errNotSignedIn
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-signedOut:
			return errNotSignedIn
		case <-updates:
			fmt.Fprint(e.out, "\033[H\033[2J")
			fmt.Fprint(e.out, e.render.Dashboard(e.shell.Dashboard(time.Now())))
			fmt.Fprintf(e.out, "\nUpdated %s · every %s · Ctrl-C to quit\n",
				e.shell.Snapshot().FetchedAt.Format(time.Kitchen), e.cfg.PollInterval)
		}
	}
}

func cmdAlerts(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 || args[0] != "tail" {
		return fmt.Errorf("%w: alerts tail", errUsage)
	}
	if e.cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is not set")
	}

	client, err := amqp.NewClient(e.cfg.AMQPURL, e.cfg.AMQPExchange, e.cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Fprintln(e.out, "Waiting for budget alerts, Ctrl-C to quit")
	err = client.ConsumeBudgetAlerts(ctx, func(msg *amqp.BudgetAlertMessage) error {
		fmt.Fprintf(e.out, "%s  %04d-%02d  %-14s spent %s of %s (over by %s)\n",
			msg.Timestamp.Local().Format(time.DateTime),
			msg.Year, msg.Month,
			msg.Category.Label(),
			render.Currency(msg.Spent),
			render.Currency(msg.Budget),
			render.Currency(msg.Overspend()))
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
