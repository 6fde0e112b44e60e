package types

import "time"

// NavStatus is the navigation state reported for a ship.
type NavStatus string

const (
	StatusDocked    NavStatus = "DOCKED"
	StatusInOrbit   NavStatus = "IN_ORBIT"
	StatusInTransit NavStatus = "IN_TRANSIT"
)

type Agent struct {
	// Credits can be negative if funds have been overdrawn.
	Credits         int64  `json:"credits"`
	Headquarters    string `json:"headquarters"`
	ShipCount       int    `json:"shipCount"`
	StartingFaction string `json:"startingFaction"`
	Symbol          string `json:"symbol"`
	AccountID       string `json:"accountId,omitempty"`
}

type Meta struct {
	Limit int `json:"limit"`
	Page  int `json:"page"`
	Total int `json:"total"`
}

type Ship struct {
	Symbol string `json:"symbol"`
	Nav    Nav    `json:"nav"`
	Cargo  Cargo  `json:"cargo"`
	Fuel   Fuel   `json:"fuel"`
}

type Nav struct {
	SystemSymbol   string    `json:"systemSymbol"`
	WaypointSymbol string    `json:"waypointSymbol"`
	Status         NavStatus `json:"status"`
	FlightMode     string    `json:"flightMode"`
	Route          Route     `json:"route"`
}

type Route struct {
	Departure     RouteWaypoint `json:"departure"`
	Destination   RouteWaypoint `json:"destination"`
	Arrival       time.Time     `json:"arrival"`
	DepartureTime time.Time     `json:"departureTime"`
}

type RouteWaypoint struct {
	Symbol       string `json:"symbol"`
	Type         string `json:"type"`
	SystemSymbol string `json:"systemSymbol"`
}

type Cargo struct {
	Capacity  int         `json:"capacity"`
	Units     int         `json:"units"`
	Inventory []CargoItem `json:"inventory"`
}

type CargoItem struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name,omitempty"`
	Units  int    `json:"units"`
}

type Fuel struct {
	Current  int `json:"current"`
	Capacity int `json:"capacity"`
}

// Waypoint is a single waypoint within a system, as returned by the
// system waypoints listing.
type Waypoint struct {
	Symbol       string  `json:"symbol"`
	Type         string  `json:"type"`
	SystemSymbol string  `json:"systemSymbol"`
	X            int     `json:"x"`
	Y            int     `json:"y"`
	Traits       []Trait `json:"traits"`
}

type Trait struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// HasTrait reports whether the waypoint carries the trait symbol.
func (w Waypoint) HasTrait(symbol string) bool {
	for _, t := range w.Traits {
		if t.Symbol == symbol {
			return true
		}
	}
	return false
}

type Extraction struct {
	ShipSymbol string `json:"shipSymbol"`
	Yield      struct {
		Symbol string `json:"symbol"`
		Units  int    `json:"units"`
	} `json:"yield"`
}

type Cooldown struct {
	ShipSymbol       string    `json:"shipSymbol"`
	TotalSeconds     int       `json:"totalSeconds"`
	RemainingSeconds int       `json:"remainingSeconds"`
	Expiration       time.Time `json:"expiration,omitempty"`
}

type Transaction struct {
	WaypointSymbol string    `json:"waypointSymbol"`
	ShipSymbol     string    `json:"shipSymbol"`
	TradeSymbol    string    `json:"tradeSymbol"`
	Type           string    `json:"type"`
	Units          int       `json:"units"`
	PricePerUnit   int       `json:"pricePerUnit"`
	TotalPrice     int       `json:"totalPrice"`
	Timestamp      time.Time `json:"timestamp"`
}

// ExtractResult is the data payload of a successful extract.
type ExtractResult struct {
	Cooldown   Cooldown   `json:"cooldown"`
	Extraction Extraction `json:"extraction"`
	Cargo      Cargo      `json:"cargo"`
}

// NavigateResult is the data payload of a successful navigate.
type NavigateResult struct {
	Fuel Fuel `json:"fuel"`
	Nav  Nav  `json:"nav"`
}

// SellResult is the data payload of a successful sell.
type SellResult struct {
	Agent       Agent       `json:"agent"`
	Cargo       Cargo       `json:"cargo"`
	Transaction Transaction `json:"transaction"`
}

// NavResult is the data payload of dock and orbit.
type NavResult struct {
	Nav Nav `json:"nav"`
}

// RefuelResult is the data payload of a successful refuel.
type RefuelResult struct {
	Agent       Agent       `json:"agent"`
	Fuel        Fuel        `json:"fuel"`
	Transaction Transaction `json:"transaction"`
}

// Registration is the data payload of register.
type Registration struct {
	Agent Agent  `json:"agent"`
	Token string `json:"token"`
	Ships []Ship `json:"ships,omitempty"`
}
