// Package app is the session and polling shell of the client.
//
// A Shell moves between three states. It starts Unauthenticated, passes
// through Loading while a stored credential is checked, and is
// Authenticated once the backend accepts the credential. While
// Authenticated it polls expenses and budgets on a fixed interval and
// exposes the last good snapshot. Any 401 from the backend returns it to
// Unauthenticated.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"financeflow/internal/api"
	"financeflow/internal/core"
	"financeflow/internal/insights"
	"financeflow/internal/log"
	"financeflow/internal/services"
	"financeflow/internal/session"
	"financeflow/internal/storage"
)

var ErrNotAuthenticated = errors.New("not signed in")

type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

type EventKind int

const (
	EventStateChanged EventKind = iota
	EventSnapshotUpdated
	EventPollFailed
)

// Event is delivered to subscribers synchronously, outside the shell lock.
type Event struct {
	Kind     EventKind
	State    State
	User     core.User
	Snapshot core.Snapshot
	Err      error
}

// SnapshotStore persists the last good snapshot per user.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, userID string, snap core.Snapshot) error
	LoadSnapshot(ctx context.Context, userID string) (core.Snapshot, error)
}

type Config struct {
	PollInterval time.Duration
	Logger       *log.Logger
}

type Shell struct {
	session   *session.Session
	auth      *api.AuthService
	expenses  *api.ExpenseService
	budgets   *api.BudgetService
	snapshots SnapshotStore
	logger    *log.Logger
	interval  time.Duration
	now       func() time.Time

	// Root context of the pollers; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	state    State
	user     core.User
	snapshot core.Snapshot
	poller   *services.Poller
	gen      uint64
	// Pollers cancelled on sign-out whose last cycle may still be running.
	retired []*services.Poller

	// Cycles are numbered when they start; a cycle older than the applied
	// snapshot is discarded.
	pollSeq    atomic.Uint64
	appliedSeq uint64

	subMu  sync.Mutex
	subs   []subscriber
	nextID int
}

type subscriber struct {
	id int
	fn func(Event)
}

// New creates a shell around client. snapshots may be nil.
func New(client *api.Client, snapshots SnapshotStore, cfg Config) *Shell {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = services.DefaultPollerConfig().Interval
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Shell{
		session:   client.Session(),
		auth:      api.NewAuthService(client),
		expenses:  api.NewExpenseService(client),
		budgets:   api.NewBudgetService(client),
		snapshots: snapshots,
		logger:    logger.WithComponent(log.ComponentSession),
		interval:  interval,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.session.OnInvalidate(s.handleInvalidate)
	return s
}

// Start restores a stored credential, if any, and validates it against
// the backend. A 401 clears the credential; any other failure keeps it and
// leaves the shell Unauthenticated with the error returned.
func (s *Shell) Start(ctx context.Context) error {
	s.setState(StateLoading, core.User{})

	found, err := s.session.Restore(ctx)
	if err != nil {
		s.setState(StateUnauthenticated, core.User{})
		return fmt.Errorf("restore session: %w", err)
	}
	if !found {
		s.setState(StateUnauthenticated, core.User{})
		return nil
	}

	if session.Expired(s.session.Token(), s.now()) {
		s.logger.InfoContext(ctx, "Stored credential expired, discarding")
		if err := s.session.Clear(ctx); err != nil {
			s.logger.WarnContext(ctx, "Failed to clear expired credential", log.FieldError, err)
		}
		s.setState(StateUnauthenticated, core.User{})
		return nil
	}

	user, err := s.auth.CurrentUser(ctx)
	if errors.Is(err, api.ErrUnauthorized) {
		// Session invalidation already moved the shell to Unauthenticated.
		return nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to verify stored credential", log.FieldError, err)
		s.setState(StateUnauthenticated, core.User{})
		return fmt.Errorf("verify session: %w", err)
	}

	s.enterAuthenticated(ctx, user)
	return nil
}

// Login authenticates and, on success, starts polling. On failure the
// shell stays where it was and the error is returned for display.
func (s *Shell) Login(ctx context.Context, email, password string) (core.User, error) {
	res, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return core.User{}, err
	}
	s.enterAuthenticated(ctx, res.User)
	return res.User, nil
}

func (s *Shell) Register(ctx context.Context, email, password string) (core.User, error) {
	res, err := s.auth.Register(ctx, email, password)
	if err != nil {
		return core.User{}, err
	}
	s.enterAuthenticated(ctx, res.User)
	return res.User, nil
}

// Logout forgets the credential and stops polling.
func (s *Shell) Logout(ctx context.Context) error {
	err := s.auth.Logout(ctx)
	s.leaveAuthenticated()
	s.logger.InfoContext(ctx, "Signed out", log.FieldOperation, log.OpShutdown)
	return err
}

// Refresh runs a poll cycle that starts now, so it observes every write
// made before the call. Scheduled ticks keep joining cycles in flight.
func (s *Shell) Refresh(ctx context.Context) error {
	s.mu.RLock()
	p := s.poller
	s.mu.RUnlock()
	if p == nil {
		return ErrNotAuthenticated
	}
	return p.Refresh(ctx)
}

// Close stops polling and waits until no poll cycle is running, including
// cycles of sessions that already ended.
func (s *Shell) Close(ctx context.Context) error {
	s.mu.Lock()
	s.retireLocked()
	pollers := s.retired
	s.retired = nil
	s.mu.Unlock()

	s.cancel()
	var errs []error
	for _, p := range pollers {
		if err := p.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// retireLocked cancels the current poller without waiting for it. Pollers
// that have fully stopped are dropped from the retired list.
func (s *Shell) retireLocked() {
	s.retired = slices.DeleteFunc(s.retired, func(p *services.Poller) bool { return !p.Busy() })
	if s.poller != nil {
		s.poller.Cancel()
		s.retired = append(s.retired, s.poller)
		s.poller = nil
	}
}

// Subscribe registers fn for every event and returns a function that
// removes it.
func (s *Shell) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
	}
}

func (s *Shell) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Shell) User() core.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Snapshot returns a copy of the last good snapshot.
func (s *Shell) Snapshot() core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

func (s *Shell) enterAuthenticated(ctx context.Context, user core.User) {
	var restored core.Snapshot
	if s.snapshots != nil {
		snap, err := s.snapshots.LoadSnapshot(ctx, user.UID)
		if err != nil && !errors.Is(err, storage.ErrNoSnapshot) {
			s.logger.WarnContext(ctx, "Failed to load last snapshot", log.FieldUserID, user.UID, log.FieldError, err)
		}
		restored = snap
	}

	s.mu.Lock()
	s.retireLocked()
	s.gen++
	gen := s.gen
	s.user = user
	s.snapshot = restored
	p := services.NewPoller(func(ctx context.Context) error {
		return s.poll(ctx, gen, user.UID)
	}, services.PollerConfig{Name: "shell", Interval: s.interval})
	s.poller = p
	s.mu.Unlock()

	s.setState(StateAuthenticated, user)
	if !restored.IsZero() {
		s.emit(Event{Kind: EventSnapshotUpdated, State: StateAuthenticated, User: user, Snapshot: restored.Clone()})
	}

	s.logger.InfoContext(ctx, "Signed in", log.FieldUserID, user.UID, log.FieldOperation, log.OpLogin)
	if err := p.Start(s.ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to start poller", log.FieldError, err)
	}
}

func (s *Shell) leaveAuthenticated() {
	s.mu.Lock()
	s.retireLocked()
	s.gen++
	s.user = core.User{}
	s.snapshot = core.Snapshot{}
	s.mu.Unlock()

	s.setState(StateUnauthenticated, core.User{})
}

// handleInvalidate runs on whichever goroutine received the 401, possibly
// the poller's own, so it must not wait for the poller.
func (s *Shell) handleInvalidate() {
	s.logger.Warn("Session invalidated by backend", log.FieldState, StateUnauthenticated.String())
	s.leaveAuthenticated()
}

// poll fetches both collections concurrently. The snapshot is replaced
// only when both succeed, the shell is still in the session that started
// the cycle, and no newer cycle has been applied.
func (s *Shell) poll(ctx context.Context, gen uint64, userID string) error {
	seq := s.pollSeq.Add(1)
	var (
		expenses []core.Expense
		budgets  []core.Budget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.expenses.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		budgets, err = s.budgets.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if !errors.Is(err, api.ErrUnauthorized) && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "Poll failed, keeping previous snapshot",
				log.FieldUserID, userID, log.FieldOperation, log.OpPoll, log.FieldError, err)
			s.emit(Event{Kind: EventPollFailed, State: s.State(), Err: err})
		}
		return err
	}

	snap := core.Snapshot{Expenses: expenses, Budgets: budgets, FetchedAt: s.now()}

	s.mu.Lock()
	if s.gen != gen || s.state != StateAuthenticated || seq < s.appliedSeq {
		s.mu.Unlock()
		return nil
	}
	s.appliedSeq = seq
	s.snapshot = snap
	user := s.user
	s.mu.Unlock()

	if s.snapshots != nil {
		if err := s.snapshots.SaveSnapshot(ctx, userID, snap); err != nil {
			s.logger.WarnContext(ctx, "Failed to persist snapshot", log.FieldUserID, userID, log.FieldError, err)
		}
	}

	s.logger.DebugContext(ctx, "Snapshot updated",
		log.FieldUserID, userID,
		"expenses", len(expenses),
		"budgets", len(budgets))
	s.emit(Event{Kind: EventSnapshotUpdated, State: StateAuthenticated, User: user, Snapshot: snap.Clone()})
	return nil
}

func (s *Shell) setState(state State, user core.User) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()

	if changed {
		s.emit(Event{Kind: EventStateChanged, State: state, User: user})
	}
}

func (s *Shell) emit(ev Event) {
	s.subMu.Lock()
	subs := slices.Clone(s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(ev)
	}
}

// Dashboard derives the dashboard of the current snapshot.
func (s *Shell) Dashboard(now time.Time) insights.DashboardView {
	snap := s.Snapshot()
	return insights.Dashboard(snap.Expenses, snap.Budgets, now)
}

// BudgetCards derives one card per category from the current snapshot.
func (s *Shell) BudgetCards(now time.Time) []insights.BudgetCard {
	snap := s.Snapshot()
	return insights.BudgetCards(snap.Expenses, snap.Budgets, now)
}

// Transactions filters the current snapshot's expenses.
func (s *Shell) Transactions(c insights.Criteria, now time.Time) []core.Expense {
	return insights.Filter(s.Snapshot().Expenses, c, now)
}
