package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"nomadfinance/internal/log"
	"nomadfinance/internal/remote"
)

var (
	ErrEmptyPassword     = errors.New("password is required")
	ErrInvalidTransition = errors.New("action not allowed in current state")
)

// State selects what the mini-app renders. Exactly one holds at a time.
type State int

const (
	Loading State = iota
	NoIdentity
	NeedsRegistration
	Failed
	Authorized
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case NoIdentity:
		return "no_identity"
	case NeedsRegistration:
		return "needs_registration"
	case Failed:
		return "failed"
	case Authorized:
		return "authorized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UserBinder receives the account key once the gate authorizes a user.
// finance.Store satisfies it.
type UserBinder interface {
	SetUserID(ctx context.Context, id *string) error
}

// UserBinderFunc adapts a function to UserBinder.
type UserBinderFunc func(ctx context.Context, id *string) error

func (f UserBinderFunc) SetUserID(ctx context.Context, id *string) error { return f(ctx, id) }

// Gate walks one session through identity checks. Init runs once; after that
// only Register (from NeedsRegistration) and Retry (from Failed) move it.
type Gate struct {
	identity *HostIdentity
	accounts remote.AccountService
	binder   UserBinder
	encoder  PasswordEncoder
	logger   *log.Logger

	mu      sync.Mutex
	started bool
	state   State
	err     error
}

type GateOption func(*Gate)

func WithEncoder(e PasswordEncoder) GateOption {
	return func(g *Gate) { g.encoder = e }
}

func WithGateLogger(l *log.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

// NewGate builds a gate for the given host identity; nil means the host
// supplied none.
func NewGate(identity *HostIdentity, accounts remote.AccountService, binder UserBinder, opts ...GateOption) *Gate {
	g := &Gate{
		identity: identity,
		accounts: accounts,
		binder:   binder,
		encoder:  Plaintext{},
		logger:   log.FromContext(context.Background()).WithComponent(log.ComponentIdentity),
		state:    Loading,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Err is the account service error behind the Failed state.
func (g *Gate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Identity returns the host identity, if any.
func (g *Gate) Identity() (HostIdentity, bool) {
	if g.identity == nil {
		return HostIdentity{}, false
	}
	return *g.identity, true
}

// Init resolves the session. Calls after the first return the current state.
func (g *Gate) Init(ctx context.Context) State {
	g.mu.Lock()
	if g.started {
		defer g.mu.Unlock()
		return g.state
	}
	g.started = true
	g.mu.Unlock()
	return g.run(ctx)
}

// Retry re-runs initialization after an account service failure.
func (g *Gate) Retry(ctx context.Context) (State, error) {
	g.mu.Lock()
	if g.state != Failed {
		defer g.mu.Unlock()
		return g.state, ErrInvalidTransition
	}
	g.mu.Unlock()
	return g.run(ctx), nil
}

func (g *Gate) run(ctx context.Context) State {
	if g.identity == nil {
		return g.set(NoIdentity, nil)
	}
	g.set(Loading, nil)

	key := g.identity.Key()
	acc, err := g.accounts.GetAccount(ctx, key)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		return g.set(NeedsRegistration, nil)
	case err != nil:
		g.logger.ErrorContext(ctx, "Account lookup failed", log.FieldUserID, key, log.FieldError, err)
		return g.set(Failed, err)
	case acc.Password == "":
		return g.set(NeedsRegistration, nil)
	}
	g.bind(ctx, key)
	return g.set(Authorized, nil)
}

// Register stores the account with password and authorizes the session.
func (g *Gate) Register(ctx context.Context, password string) (State, error) {
	g.mu.Lock()
	if g.state != NeedsRegistration {
		defer g.mu.Unlock()
		return g.state, ErrInvalidTransition
	}
	if password == "" {
		defer g.mu.Unlock()
		return g.state, ErrEmptyPassword
	}
	g.state = Loading
	g.mu.Unlock()

	encoded, err := g.encoder.Encode(password)
	if err != nil {
		return g.set(Failed, err), err
	}
	acc := remote.Account{
		ID:        g.identity.Key(),
		Username:  g.identity.Username,
		FirstName: g.identity.FirstName,
		LastName:  g.identity.LastName,
		Password:  encoded,
	}
	if err := g.accounts.UpsertAccount(ctx, acc); err != nil {
		g.logger.ErrorContext(ctx, "Account registration failed", log.FieldUserID, acc.ID, log.FieldOperation, log.OpRegister, log.FieldError, err)
		return g.set(Failed, err), err
	}
	g.logger.InfoContext(ctx, "Account registered", log.FieldUserID, acc.ID)
	g.bind(ctx, acc.ID)
	return g.set(Authorized, nil), nil
}

// bind hands the key to the binder. Load problems are already reported by the
// binder and do not block access.
func (g *Gate) bind(ctx context.Context, key string) {
	if g.binder == nil {
		return
	}
	if err := g.binder.SetUserID(ctx, &key); err != nil {
		g.logger.WarnContext(ctx, "Loading user data failed", log.FieldUserID, key, log.FieldError, err)
	}
}

func (g *Gate) set(s State, err error) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = s
	g.err = err
	return s
}
