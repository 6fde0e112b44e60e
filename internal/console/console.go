package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/papaburgs/voidinvestor/internal/types"
)

var (
	shipName = color.New(color.FgCyan, color.Bold).SprintFunc()
	place    = color.New(color.FgYellow).SprintFunc()
	good     = color.New(color.FgGreen).SprintFunc()
	bad      = color.New(color.FgRed).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
)

// Printer writes the human readable status lines. Lines from concurrent
// cycles never interleave mid line.
type Printer struct {
	w   io.Writer
	now func() time.Time
	mu  sync.Mutex
}

func New(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{w: w, now: time.Now}
}

func (p *Printer) println(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Agent prints the agent details shown after a session is validated.
func (p *Printer) Agent(a types.Agent) {
	p.println("agent details: %s credits: %s", shipName(a.Symbol), good(a.Credits))
}

// Ship prints where a ship is and what it is doing.
func (p *Printer) Ship(s types.Ship) {
	switch s.Nav.Status {
	case types.StatusDocked:
		p.println("ship %s is docked at %s %d/%d",
			shipName(s.Symbol), place(s.Nav.WaypointSymbol), s.Cargo.Units, s.Cargo.Capacity)
	case types.StatusInOrbit:
		p.println("ship %s is in orbit at %s", shipName(s.Symbol), place(s.Nav.WaypointSymbol))
	case types.StatusInTransit:
		p.println("ship %s is traveling from %s to %s and will arrive in %ds",
			shipName(s.Symbol),
			place(s.Nav.Route.Departure.Symbol),
			place(s.Nav.Route.Destination.Symbol),
			SecondsUntil(s.Nav.Route.Arrival, p.now()))
	default:
		p.println("ship %s has unknown status %s at %s",
			shipName(s.Symbol), bad(string(s.Nav.Status)), place(s.Nav.WaypointSymbol))
	}
}

// Event prints something a ship did.
func (p *Printer) Event(ship, format string, args ...any) {
	p.println("%s %s", shipName(ship), fmt.Sprintf(format, args...))
}

// Failure prints an error event for a ship.
func (p *Printer) Failure(ship string, err error) {
	p.println("%s %s %v", shipName(ship), bad("error"), err)
}

// Note prints a line not tied to a ship.
func (p *Printer) Note(format string, args ...any) {
	p.println("%s", dim(fmt.Sprintf(format, args...)))
}

// SecondsUntil returns whole seconds until arrival, or 0 if it has passed.
func SecondsUntil(arrival, now time.Time) int64 {
	d := arrival.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}
