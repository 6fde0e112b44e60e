// Package fleet runs units of work: validate the session, fetch a page of
// ships and give each of them a turn.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/papaburgs/voidinvestor/internal/classify"
	"github.com/papaburgs/voidinvestor/internal/console"
	"github.com/papaburgs/voidinvestor/internal/pilot"
	"github.com/papaburgs/voidinvestor/internal/session"
	"github.com/papaburgs/voidinvestor/internal/types"
)

// API is everything a unit of work calls once it has a session.
type API interface {
	pilot.API
	ListShips(ctx context.Context, page, limit int) ([]types.Ship, types.Meta, error)
}

// Dialer builds an authenticated API client.
type Dialer func(baseURL, token string) API

// Establisher hands out a validated session for each unit of work.
type Establisher interface {
	Establish(ctx context.Context) (session.Session, error)
}

type Settings struct {
	PageSize     int
	CycleTimeout time.Duration
	Pilot        pilot.Settings
}

func DefaultSettings() Settings {
	return Settings{
		PageSize:     5,
		CycleTimeout: 2 * time.Minute,
		Pilot:        pilot.DefaultSettings(),
	}
}

type Driver struct {
	sessions Establisher
	dial     Dialer
	cfg      Settings
	out      *console.Printer
}

func NewDriver(sessions Establisher, dial Dialer, cfg Settings, out *console.Printer) *Driver {
	if out == nil {
		out = console.New(nil)
	}
	return &Driver{sessions: sessions, dial: dial, cfg: cfg, out: out}
}

// RunOnce is one unit of work against the given page of ships.
func (d *Driver) RunOnce(ctx context.Context, page int) error {
	_, err := d.Cycle(ctx, page)
	return err
}

// Cycle runs one unit of work and returns the report of every ship that got
// a turn. A failing ship never stops the others; their failures are in the
// reports and the logs, not in the returned error.
func (d *Driver) Cycle(ctx context.Context, page int) ([]pilot.Report, error) {
	id := uuid.NewString()
	l := slog.With("function", "Cycle", "cycle", id, "page", page)
	if d.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.CycleTimeout)
		defer cancel()
	}

	api, ships, err := d.fetch(ctx, page)
	if err != nil {
		return nil, err
	}
	l.Debug("fetched ships", "count", len(ships))

	engine := pilot.New(api, d.cfg.Pilot, d.out)
	reports := make([]pilot.Report, 0, len(ships))
	for _, ship := range ships {
		if ctx.Err() != nil {
			l.Warn("cycle ran out of time", "remaining", len(ships)-len(reports), "error", ctx.Err())
			break
		}
		r := engine.Fly(ctx, ship)
		if r.Err != nil {
			l.Error("ship turn failed", "ship", r.Ship, "error", r.Err)
		}
		reports = append(reports, r)
	}
	l.Debug("cycle completed", "ships", len(reports))
	return reports, nil
}

// Status prints the agent and a page of ships without issuing commands.
func (d *Driver) Status(ctx context.Context, page int) ([]types.Ship, error) {
	_, ships, err := d.fetch(ctx, page)
	if err != nil {
		return nil, err
	}
	for _, s := range ships {
		d.out.Ship(s)
	}
	return ships, nil
}

func (d *Driver) fetch(ctx context.Context, page int) (API, []types.Ship, error) {
	s, err := d.sessions.Establish(ctx)
	if err != nil {
		return nil, nil, err
	}
	api := d.dial(s.BaseURL, s.Token)

	ships, _, err := api.ListShips(ctx, page, d.cfg.PageSize)
	ships, err = classify.Classify(classify.OpListShips, ships, err)
	if err != nil {
		return nil, nil, fmt.Errorf("listing ships page %d: %w", page, err)
	}
	return api, ships, nil
}

// logOutcome reports the end of a unit of work at a level matching how bad
// it was.
func logOutcome(l *slog.Logger, err error) {
	switch {
	case err == nil:
	case errors.Is(err, session.ErrSessionRenewed):
		l.Info("session renewed, ships wait for the next cycle")
	case errors.Is(err, session.ErrSessionUnavailable):
		l.Warn("cycle skipped", "error", err)
	case errors.Is(err, context.Canceled):
		l.Debug("cycle cancelled")
	default:
		l.Error("cycle failed", "error", err)
	}
}
