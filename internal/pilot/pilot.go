package pilot

import (
	"context"
	"log/slog"

	"github.com/papaburgs/voidinvestor/internal/classify"
	"github.com/papaburgs/voidinvestor/internal/console"
	"github.com/papaburgs/voidinvestor/internal/recovery"
	"github.com/papaburgs/voidinvestor/internal/types"
)

// API is the part of the game api a ship needs for one turn.
type API interface {
	Dock(ctx context.Context, ship string) (types.NavResult, error)
	Orbit(ctx context.Context, ship string) (types.NavResult, error)
	Navigate(ctx context.Context, ship, waypoint string) (types.NavigateResult, error)
	Refuel(ctx context.Context, ship string) (types.RefuelResult, error)
	Extract(ctx context.Context, ship string) (types.ExtractResult, error)
	Sell(ctx context.Context, ship, symbol string, units int) (types.SellResult, error)
	ListWaypoints(ctx context.Context, system string, page, limit int) ([]types.Waypoint, types.Meta, error)
}

type Settings struct {
	// FallbackWaypoint is where a ship goes to unload, and where it mines
	// when no better site is known.
	FallbackWaypoint string
	// ReservedCargo is held back from auto sell for a contract.
	ReservedCargo string
	// MiningTrait marks waypoints worth mining at.
	MiningTrait      string
	WaypointPageSize int
}

func DefaultSettings() Settings {
	return Settings{
		FallbackWaypoint: "X1-DC54-89945X",
		ReservedCargo:    "ANTIMATTER",
		MiningTrait:      "PRECIOUS_METAL_DEPOSITS",
		WaypointPageSize: 10,
	}
}

type CommandKind string

const (
	CmdDock          CommandKind = "dock"
	CmdOrbit         CommandKind = "orbit"
	CmdNavigate      CommandKind = "navigate"
	CmdRefuel        CommandKind = "refuel"
	CmdExtract       CommandKind = "extract"
	CmdSell          CommandKind = "sell"
	CmdListWaypoints CommandKind = "list-waypoints"
)

// Command is one remote call issued during a turn.
type Command struct {
	Kind   CommandKind
	Target string
	Units  int
}

// Report describes what happened to one ship in one cycle.
type Report struct {
	Ship       string
	Status     types.NavStatus
	Commands   []Command
	Recoveries []recovery.Action
	// Err is the last unrecognized failure, if any. Domain errors are
	// handled inside the turn and never show up here.
	Err error
}

func (r *Report) issue(kind CommandKind, target string, units int) {
	r.Commands = append(r.Commands, Command{Kind: kind, Target: target, Units: units})
}

// Engine decides and issues the next actions for a ship. It keeps no state
// between turns; everything it knows comes from the ship snapshot.
type Engine struct {
	api API
	cfg Settings
	out *console.Printer
}

func New(api API, cfg Settings, out *console.Printer) *Engine {
	if out == nil {
		out = console.New(nil)
	}
	return &Engine{api: api, cfg: cfg, out: out}
}

// Fly runs one turn for ship.
func (e *Engine) Fly(ctx context.Context, ship types.Ship) Report {
	l := slog.With("function", "Fly", "ship", ship.Symbol, "status", ship.Nav.Status)
	r := Report{Ship: ship.Symbol, Status: ship.Nav.Status}
	e.out.Ship(ship)

	switch ship.Nav.Status {
	case types.StatusInOrbit:
		r.issue(CmdDock, ship.Nav.WaypointSymbol, 0)
		if err := classify.Err(classify.OpDock, e.dock(ctx, ship.Symbol)); err != nil {
			// best effort, the next cycle sees whatever state it left
			l.Debug("dock failed", "error", err)
			if classify.IsFatal(err) {
				r.Err = err
			}
		}
	case types.StatusInTransit:
		l.Debug("ship is busy")
	case types.StatusDocked:
		e.autoSell(ctx, ship, &r)
		if err := e.autoMine(ctx, ship, &r); err != nil {
			e.recoverExtract(ctx, ship, err, &r)
		}
	default:
		l.Warn("unknown navigation status, leaving ship alone")
	}
	return r
}

func (e *Engine) dock(ctx context.Context, ship string) error {
	_, err := e.api.Dock(ctx, ship)
	return err
}

// autoSell sells every cargo line except the reserved one. Lines are
// independent, a failed sale does not stop the rest.
func (e *Engine) autoSell(ctx context.Context, ship types.Ship, r *Report) {
	l := slog.With("function", "autoSell", "ship", ship.Symbol)
	for _, item := range ship.Cargo.Inventory {
		if item.Symbol == e.cfg.ReservedCargo || item.Units <= 0 {
			continue
		}
		r.issue(CmdSell, item.Symbol, item.Units)
		res, err := e.api.Sell(ctx, ship.Symbol, item.Symbol, item.Units)
		res, err = classify.Classify(classify.OpSell, res, err)
		if err != nil {
			l.Error("error selling cargo", "symbol", item.Symbol, "units", item.Units, "error", err)
			e.out.Failure(ship.Symbol, err)
			if classify.IsFatal(err) {
				r.Err = err
			}
			continue
		}
		e.out.Event(ship.Symbol, "selling cargo %dx%s for %d", res.Transaction.Units, res.Transaction.TradeSymbol, res.Transaction.TotalPrice)
	}
}
