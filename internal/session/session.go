package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papaburgs/voidinvestor/internal/classify"
	"github.com/papaburgs/voidinvestor/internal/configstore"
	"github.com/papaburgs/voidinvestor/internal/console"
	"github.com/papaburgs/voidinvestor/internal/lock"
	"github.com/papaburgs/voidinvestor/internal/types"
)

const (
	KeyToken = "token"
	KeyURL   = "url"

	registerLock = "register"
)

var (
	// ErrSessionRenewed means the account was registered again, by this
	// call or by a concurrent one. Fleet work waits for the next cycle.
	ErrSessionRenewed = errors.New("session renewed, fleet resumes next cycle")
	// ErrSessionUnavailable means the session could not be validated and
	// nothing was done about it.
	ErrSessionUnavailable = errors.New("session unavailable")
)

// API is what the bootstrapper needs from the game api.
type API interface {
	GetAgent(ctx context.Context) (types.Agent, error)
	Register(ctx context.Context, symbol, faction string) (types.Registration, error)
}

// Dialer builds an API client for a base url and token.
type Dialer func(baseURL, token string) API

type Settings struct {
	// Section of the config store holding token and url.
	Section     string
	AgentSymbol string
	Faction     string
}

func DefaultSettings() Settings {
	return Settings{
		Section:     "spacetraders",
		AgentSymbol: "yvonne-aizawa",
		Faction:     "VOID",
	}
}

// Session is a validated token for one unit of work.
type Session struct {
	Token   string
	BaseURL string
	Agent   types.Agent
}

type Bootstrapper struct {
	store  configstore.Store
	locker lock.Locker
	dial   Dialer
	cfg    Settings
	out    *console.Printer
}

func New(store configstore.Store, locker lock.Locker, dial Dialer, cfg Settings, out *console.Printer) *Bootstrapper {
	if locker == nil {
		locker = lock.NewLocal()
	}
	if out == nil {
		out = console.New(nil)
	}
	return &Bootstrapper{store: store, locker: locker, dial: dial, cfg: cfg, out: out}
}

// Credentials reads the token and base url from the store.
func (b *Bootstrapper) Credentials(ctx context.Context) (token, baseURL string, err error) {
	token, err = b.store.GetString(ctx, b.cfg.Section, KeyToken)
	if err != nil {
		return "", "", fmt.Errorf("reading token: %w", err)
	}
	baseURL, err = b.store.GetString(ctx, b.cfg.Section, KeyURL)
	if err != nil {
		return "", "", fmt.Errorf("reading url: %w", err)
	}
	return token, baseURL, nil
}

// Establish validates the stored session by fetching the agent. An invalid
// account triggers a single re-registration; the new token is stored before
// Establish returns.
func (b *Bootstrapper) Establish(ctx context.Context) (Session, error) {
	l := slog.With("function", "Establish")

	token, baseURL, err := b.Credentials(ctx)
	if err != nil {
		return Session{}, err
	}

	agent, err := b.dial(baseURL, token).GetAgent(ctx)
	agent, err = classify.Classify(classify.OpGetAgent, agent, err)
	if err == nil {
		b.out.Agent(agent)
		return Session{Token: token, BaseURL: baseURL, Agent: agent}, nil
	}
	if classify.IsFatal(err) {
		return Session{}, err
	}

	code := classify.CodeOf(err)
	switch code {
	case classify.CodeAccountInvalid:
		l.Warn("account is no longer valid, registering a new one", "error", err)
		if err := b.renew(ctx, baseURL, token); err != nil {
			return Session{}, err
		}
		return Session{}, ErrSessionRenewed
	case classify.CodeRegistrationPending:
		l.Warn("registration in progress, skipping cycle", "error", err)
	default:
		l.Error("could not validate session, skipping cycle", "code", code, "error", err)
	}
	return Session{}, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
}

// renew registers once under the lock, unless the token changed while we
// waited for it, which means another cycle already did.
func (b *Bootstrapper) renew(ctx context.Context, baseURL, staleToken string) error {
	release, err := b.locker.Acquire(ctx, registerLock)
	if err != nil {
		return fmt.Errorf("waiting for registration lock: %w", err)
	}
	defer release()

	current, err := b.store.GetString(ctx, b.cfg.Section, KeyToken)
	if err != nil {
		return fmt.Errorf("reading token: %w", err)
	}
	if current != staleToken {
		slog.Info("token already renewed by another cycle")
		return nil
	}

	_, err = b.register(ctx, baseURL)
	return err
}

// Register creates a new account and stores its token. It takes the
// registration lock itself.
func (b *Bootstrapper) Register(ctx context.Context) (types.Registration, error) {
	release, err := b.locker.Acquire(ctx, registerLock)
	if err != nil {
		return types.Registration{}, fmt.Errorf("waiting for registration lock: %w", err)
	}
	defer release()

	baseURL, err := b.store.GetString(ctx, b.cfg.Section, KeyURL)
	if err != nil {
		return types.Registration{}, fmt.Errorf("reading url: %w", err)
	}
	return b.register(ctx, baseURL)
}

func (b *Bootstrapper) register(ctx context.Context, baseURL string) (types.Registration, error) {
	b.out.Note("creating new account %s for faction %s", b.cfg.AgentSymbol, b.cfg.Faction)
	reg, err := b.dial(baseURL, "").Register(ctx, b.cfg.AgentSymbol, b.cfg.Faction)
	reg, err = classify.Classify(classify.OpRegister, reg, err)
	if err != nil {
		return types.Registration{}, fmt.Errorf("registering %s: %w", b.cfg.AgentSymbol, err)
	}
	if reg.Token == "" {
		return types.Registration{}, fmt.Errorf("registering %s: empty token in response", b.cfg.AgentSymbol)
	}
	if err := b.store.SetString(ctx, b.cfg.Section, KeyToken, reg.Token); err != nil {
		return types.Registration{}, fmt.Errorf("storing new token: %w", err)
	}
	slog.Info("registered new agent", "symbol", reg.Agent.Symbol, "faction", reg.Agent.StartingFaction)
	return reg, nil
}
