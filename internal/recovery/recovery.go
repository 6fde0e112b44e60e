package recovery

import (
	"github.com/papaburgs/voidinvestor/internal/classify"
	"github.com/papaburgs/voidinvestor/internal/types"
)

// Action is the corrective step taken after a failed operation.
type Action int

const (
	// None means the error is logged and the ship is revisited next cycle.
	None Action = iota
	NavigateFallback
	NavigateMiningSite
	Refuel
	Orbit
	// Wait is a deliberate no-op for errors that clear with time.
	Wait
)

func (a Action) String() string {
	switch a {
	case None:
		return "none"
	case NavigateFallback:
		return "navigate-fallback"
	case NavigateMiningSite:
		return "navigate-mining-site"
	case Refuel:
		return "refuel"
	case Orbit:
		return "orbit"
	case Wait:
		return "wait"
	default:
		return "unknown"
	}
}

type key struct {
	op   classify.Operation
	code int
}

var table = map[key]Action{
	{classify.OpExtract, classify.CodeInventoryFull}:         NavigateFallback,
	{classify.OpExtract, classify.CodeInvalidMiningLocation}: NavigateMiningSite,
	{classify.OpExtract, classify.CodeCooldown}:              Wait,
	{classify.OpNavigate, classify.CodeInsufficientFuel}:     Refuel,
	{classify.OpNavigate, classify.CodeShipNotInOrbit}:       Orbit,
}

// Decide maps a failed operation and its code to an action. Every pair not
// in the table maps to None.
func Decide(op classify.Operation, code int) Action {
	if a, ok := table[key{op, code}]; ok {
		return a
	}
	return None
}

// DecideErr is Decide for a classified error. Nil and unclassified errors
// map to None.
func DecideErr(err error) Action {
	ce, ok := classify.AsError(err)
	if !ok {
		return None
	}
	return Decide(ce.Op, ce.Code)
}

// PickMiningSite returns the first waypoint carrying trait, or fallback.
func PickMiningSite(waypoints []types.Waypoint, trait, fallback string) string {
	for _, wp := range waypoints {
		if wp.HasTrait(trait) {
			return wp.Symbol
		}
	}
	return fallback
}
