package pilot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/papaburgs/voidinvestor/internal/classify"
	"github.com/papaburgs/voidinvestor/internal/recovery"
	"github.com/papaburgs/voidinvestor/internal/types"
)

// autoMine extracts once at the current waypoint, never with a survey.
func (e *Engine) autoMine(ctx context.Context, ship types.Ship, r *Report) error {
	r.issue(CmdExtract, ship.Nav.WaypointSymbol, 0)
	res, err := e.api.Extract(ctx, ship.Symbol)
	res, err = classify.Classify(classify.OpExtract, res, err)
	if err != nil {
		slog.Error("error extracting resources", "ship", ship.Symbol, "code", classify.CodeOf(err), "error", err)
		e.out.Failure(ship.Symbol, err)
		return err
	}
	e.out.Event(ship.Symbol, "extracting resources: %dx%s",
		res.Extraction.Yield.Units, res.Extraction.Yield.Symbol)
	return nil
}

// recoverExtract applies the recovery policy to a failed extract.
func (e *Engine) recoverExtract(ctx context.Context, ship types.Ship, err error, r *Report) {
	l := slog.With("function", "recoverExtract", "ship", ship.Symbol)
	if classify.IsFatal(err) {
		r.Err = err
		return
	}

	action := recovery.DecideErr(err)
	r.Recoveries = append(r.Recoveries, action)
	l.Debug("recovery selected", "action", action, "code", classify.CodeOf(err))

	switch action {
	case recovery.NavigateFallback:
		e.navigateTo(ctx, ship, e.cfg.FallbackWaypoint, r)
	case recovery.NavigateMiningSite:
		site, err := e.findMiningSite(ctx, ship, r)
		if err != nil {
			r.Err = err
			return
		}
		e.navigateTo(ctx, ship, site, r)
	case recovery.Wait:
		if ce, ok := classify.AsError(err); ok {
			l.Info("ship is cooling down", "remainingSeconds", cooldownRemaining(ce.Data))
		}
	default:
		l.Info("no recovery for extract error", "code", classify.CodeOf(err))
	}
}

// findMiningSite looks through the first page of system waypoints for one
// with the mining trait. Domain errors fall back to the fallback waypoint;
// unrecognized failures end the turn.
func (e *Engine) findMiningSite(ctx context.Context, ship types.Ship, r *Report) (string, error) {
	r.issue(CmdListWaypoints, ship.Nav.SystemSymbol, 0)
	waypoints, _, err := e.api.ListWaypoints(ctx, ship.Nav.SystemSymbol, 1, e.cfg.WaypointPageSize)
	waypoints, err = classify.Classify(classify.OpListWaypoints, waypoints, err)
	if err != nil {
		if classify.IsFatal(err) {
			return "", fmt.Errorf("looking for a mining site: %w", err)
		}
		slog.Warn("could not list waypoints, using fallback", "ship", ship.Symbol, "error", err)
		return e.cfg.FallbackWaypoint, nil
	}
	return recovery.PickMiningSite(waypoints, e.cfg.MiningTrait, e.cfg.FallbackWaypoint), nil
}

// navigateTo sends the ship to waypoint. A failed navigate may trigger one
// refuel or orbit; navigate itself is not retried until the next cycle.
func (e *Engine) navigateTo(ctx context.Context, ship types.Ship, waypoint string, r *Report) {
	l := slog.With("function", "navigateTo", "ship", ship.Symbol, "waypoint", waypoint)
	r.issue(CmdNavigate, waypoint, 0)
	res, err := e.api.Navigate(ctx, ship.Symbol, waypoint)
	res, err = classify.Classify(classify.OpNavigate, res, err)
	if err == nil {
		e.out.Event(ship.Symbol, "traveling to waypoint %s", res.Nav.Route.Destination.Symbol)
		return
	}

	e.out.Failure(ship.Symbol, fmt.Errorf("unable to travel to waypoint %s: %w", waypoint, err))
	if classify.IsFatal(err) {
		r.Err = err
		return
	}

	action := recovery.DecideErr(err)
	r.Recoveries = append(r.Recoveries, action)
	switch action {
	case recovery.Refuel:
		e.out.Event(ship.Symbol, "refueling ship")
		r.issue(CmdRefuel, ship.Nav.WaypointSymbol, 0)
		_, err = e.api.Refuel(ctx, ship.Symbol)
		e.afterCorrection(classify.OpRefuel, classify.Err(classify.OpRefuel, err), l, r)
	case recovery.Orbit:
		e.out.Event(ship.Symbol, "undocking ship")
		r.issue(CmdOrbit, ship.Nav.WaypointSymbol, 0)
		_, err = e.api.Orbit(ctx, ship.Symbol)
		e.afterCorrection(classify.OpOrbit, classify.Err(classify.OpOrbit, err), l, r)
	default:
		l.Info("no recovery for navigate error", "code", classify.CodeOf(err))
	}
}

// afterCorrection logs the outcome of a corrective command. Its result is
// not acted on; the ship is looked at again next cycle.
func (e *Engine) afterCorrection(op classify.Operation, err error, l *slog.Logger, r *Report) {
	if err == nil {
		return
	}
	l.Warn("corrective command failed", "op", op, "error", err)
	if classify.IsFatal(err) {
		r.Err = err
	}
}

func cooldownRemaining(data json.RawMessage) int {
	var d struct {
		Cooldown types.Cooldown `json:"cooldown"`
	}
	if len(data) == 0 || json.Unmarshal(data, &d) != nil {
		return 0
	}
	return d.Cooldown.RemainingSeconds
}
