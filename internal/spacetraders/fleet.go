package spacetraders

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/papaburgs/voidinvestor/internal/types"
)

type registerRequest struct {
	Symbol  string `json:"symbol"`
	Faction string `json:"faction"`
}

type navigateRequest struct {
	WaypointSymbol string `json:"waypointSymbol"`
}

// extractRequest carries an optional survey. It is always sent empty.
type extractRequest struct {
	Survey *struct{} `json:"survey,omitempty"`
}

type sellRequest struct {
	Symbol string `json:"symbol"`
	Units  int    `json:"units"`
}

// Register creates a new agent. It does not need a token.
func (c *Client) Register(ctx context.Context, symbol, faction string) (types.Registration, error) {
	reg, _, err := call[types.Registration](ctx, c, http.MethodPost, "/register", registerRequest{Symbol: symbol, Faction: faction})
	return reg, err
}

func (c *Client) GetAgent(ctx context.Context) (types.Agent, error) {
	agent, _, err := call[types.Agent](ctx, c, http.MethodGet, "/my/agent", nil)
	return agent, err
}

// ListShips returns one page of the owned fleet.
func (c *Client) ListShips(ctx context.Context, page, limit int) ([]types.Ship, types.Meta, error) {
	path := fmt.Sprintf("/my/ships?page=%d&limit=%d", page, limit)
	ships, meta, err := call[[]types.Ship](ctx, c, http.MethodGet, path, nil)
	return ships, derefMeta(meta), err
}

// ListWaypoints returns one page of the waypoints in a system.
func (c *Client) ListWaypoints(ctx context.Context, system string, page, limit int) ([]types.Waypoint, types.Meta, error) {
	path := fmt.Sprintf("/systems/%s/waypoints?page=%d&limit=%d", url.PathEscape(system), page, limit)
	waypoints, meta, err := call[[]types.Waypoint](ctx, c, http.MethodGet, path, nil)
	return waypoints, derefMeta(meta), err
}

func (c *Client) Dock(ctx context.Context, ship string) (types.NavResult, error) {
	res, _, err := call[types.NavResult](ctx, c, http.MethodPost, shipPath(ship, "dock"), nil)
	return res, err
}

func (c *Client) Orbit(ctx context.Context, ship string) (types.NavResult, error) {
	res, _, err := call[types.NavResult](ctx, c, http.MethodPost, shipPath(ship, "orbit"), nil)
	return res, err
}

func (c *Client) Navigate(ctx context.Context, ship, waypoint string) (types.NavigateResult, error) {
	res, _, err := call[types.NavigateResult](ctx, c, http.MethodPost, shipPath(ship, "navigate"), navigateRequest{WaypointSymbol: waypoint})
	return res, err
}

func (c *Client) Refuel(ctx context.Context, ship string) (types.RefuelResult, error) {
	res, _, err := call[types.RefuelResult](ctx, c, http.MethodPost, shipPath(ship, "refuel"), nil)
	return res, err
}

// Extract mines at the current waypoint without a survey.
func (c *Client) Extract(ctx context.Context, ship string) (types.ExtractResult, error) {
	res, _, err := call[types.ExtractResult](ctx, c, http.MethodPost, shipPath(ship, "extract"), extractRequest{})
	return res, err
}

func (c *Client) Sell(ctx context.Context, ship, symbol string, units int) (types.SellResult, error) {
	res, _, err := call[types.SellResult](ctx, c, http.MethodPost, shipPath(ship, "sell"), sellRequest{Symbol: symbol, Units: units})
	return res, err
}

func shipPath(ship, action string) string {
	return fmt.Sprintf("/my/ships/%s/%s", url.PathEscape(ship), action)
}

func derefMeta(m *types.Meta) types.Meta {
	if m == nil {
		return types.Meta{}
	}
	return *m
}
