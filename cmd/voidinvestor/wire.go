package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/papaburgs/voidinvestor/internal/config"
	"github.com/papaburgs/voidinvestor/internal/configstore"
	"github.com/papaburgs/voidinvestor/internal/console"
	"github.com/papaburgs/voidinvestor/internal/db"
	"github.com/papaburgs/voidinvestor/internal/fleet"
	"github.com/papaburgs/voidinvestor/internal/gate"
	"github.com/papaburgs/voidinvestor/internal/lock"
	"github.com/papaburgs/voidinvestor/internal/logging"
	"github.com/papaburgs/voidinvestor/internal/session"
	"github.com/papaburgs/voidinvestor/internal/spacetraders"
)

// app holds everything a command needs. It is filled in by wire once the
// flags are parsed.
type app struct {
	cfg     *config.Config
	store   configstore.Store
	locker  lock.Locker
	gate    *gate.Gate
	out     *console.Printer
	boot    *session.Bootstrapper
	driver  *fleet.Driver
	closers []func() error
}

type globalFlags struct {
	settings string
	debug    bool
}

// wire builds the app. On failure everything opened so far is closed again.
func (a *app) wire(ctx context.Context, flags globalFlags, w io.Writer) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(err, a.Close())
		}
	}()

	cfg, err := config.Load(flags.settings)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	logging.InitLogger(cfg.Log.Level, flags.debug)
	l := slog.With("function", "wire")

	a.cfg = cfg
	a.out = console.New(w)

	if a.store, err = a.openStore(ctx); err != nil {
		return err
	}

	if cfg.Redis.URL != "" {
		r, err := lock.NewRedis(ctx, cfg.Redis.URL, cfg.Redis.LockTTL)
		if err != nil {
			return fmt.Errorf("wire registration lock: %w", err)
		}
		a.closers = append(a.closers, r.Close)
		a.locker = r
		l.Debug("using redis registration lock")
	} else {
		a.locker = lock.NewLocal()
	}

	a.gate = gate.New(cfg.API.RatePerSecond, cfg.API.BurstPerMinute)
	a.closers = append(a.closers, func() error { a.gate.Stop(); return nil })

	a.boot = session.New(a.store, a.locker, func(baseURL, token string) session.API {
		return a.client(baseURL, token)
	}, cfg.Session(), a.out)
	a.driver = fleet.NewDriver(a.boot, func(baseURL, token string) fleet.API {
		return a.client(baseURL, token)
	}, fleet.Settings{
		PageSize:     cfg.Fleet.PageSize,
		CycleTimeout: cfg.Scheduler.CycleTimeout,
		Pilot:        cfg.Pilot(),
	}, a.out)
	return nil
}

func (a *app) openStore(ctx context.Context) (configstore.Store, error) {
	sc := a.cfg.Store
	switch sc.Backend {
	case config.BackendSQL:
		conn, err := db.Connect(ctx, sc.Driver, sc.DSN, sc.AuthToken)
		if err != nil {
			return nil, fmt.Errorf("wire config store: %w", err)
		}
		s, err := configstore.NewSQL(ctx, conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("wire config store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		f, err := configstore.NewFile(sc.Path)
		if err != nil {
			return nil, fmt.Errorf("wire config store: %w", err)
		}
		return f, nil
	}
}

// client builds an api client sharing the one rate limiter.
func (a *app) client(baseURL, token string) *spacetraders.Client {
	return spacetraders.New(baseURL, token, a.gate, spacetraders.WithTimeout(a.cfg.API.Timeout))
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
