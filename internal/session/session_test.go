package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papaburgs/voidinvestor/internal/classify"
	"github.com/papaburgs/voidinvestor/internal/configstore"
	"github.com/papaburgs/voidinvestor/internal/console"
	"github.com/papaburgs/voidinvestor/internal/lock"
	"github.com/papaburgs/voidinvestor/internal/spacetraders"
	"github.com/papaburgs/voidinvestor/internal/types"
)

type memStore struct {
	mu     sync.Mutex
	values map[string]string
	sets   []string
}

func newMemStore(token, url string) *memStore {
	return &memStore{values: map[string]string{
		"spacetraders.token": token,
		"spacetraders.url":   url,
	}}
}

func (m *memStore) GetString(_ context.Context, section, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[section+"."+key]
	if !ok {
		return "", configstore.ErrNotFound
	}
	return v, nil
}

func (m *memStore) SetString(_ context.Context, section, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[section+"."+key] = value
	m.sets = append(m.sets, section+"."+key+"="+value)
	return nil
}

type fakeAPI struct {
	agentErr  func(token string) error
	regToken  string
	regErr    error
	registers *atomic.Int32
	token     string
}

func (f *fakeAPI) GetAgent(context.Context) (types.Agent, error) {
	if f.agentErr != nil {
		if err := f.agentErr(f.token); err != nil {
			return types.Agent{}, err
		}
	}
	return types.Agent{Symbol: "YVONNE-AIZAWA", Credits: 100}, nil
}

func (f *fakeAPI) Register(_ context.Context, symbol, faction string) (types.Registration, error) {
	f.registers.Add(1)
	if f.regErr != nil {
		return types.Registration{}, f.regErr
	}
	return types.Registration{
		Token: f.regToken,
		Agent: types.Agent{Symbol: symbol, StartingFaction: faction},
	}, nil
}

func apiErr(code int, msg string) error {
	return &spacetraders.ResponseError{
		Method:     http.MethodGet,
		Path:       "/my/agent",
		StatusCode: http.StatusBadRequest,
		Body:       fmt.Appendf(nil, `{"error":{"code":%d,"message":%q}}`, code, msg),
	}
}

type harness struct {
	store     *memStore
	registers *atomic.Int32
	dialed    []string
	mu        sync.Mutex
	out       bytes.Buffer
}

func newHarness(token string) *harness {
	return &harness{store: newMemStore(token, "https://example.test/v2"), registers: &atomic.Int32{}}
}

func (h *harness) bootstrapper(agentErr func(token string) error, regToken string, regErr error) *Bootstrapper {
	color.NoColor = true
	dial := func(baseURL, token string) API {
		h.mu.Lock()
		h.dialed = append(h.dialed, baseURL+"|"+token)
		h.mu.Unlock()
		return &fakeAPI{agentErr: agentErr, regToken: regToken, regErr: regErr, registers: h.registers, token: token}
	}
	return New(h.store, lock.NewLocal(), dial, DefaultSettings(), console.New(&h.out))
}

func TestEstablishValidSession(t *testing.T) {
	h := newHarness("good")
	b := h.bootstrapper(nil, "", nil)

	s, err := b.Establish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "good", s.Token)
	assert.Equal(t, "https://example.test/v2", s.BaseURL)
	assert.Equal(t, "YVONNE-AIZAWA", s.Agent.Symbol)
	assert.Zero(t, h.registers.Load())
	assert.Empty(t, h.store.sets)
	assert.Contains(t, h.out.String(), "YVONNE-AIZAWA")
}

func TestEstablishInvalidAccountRegistersOnce(t *testing.T) {
	h := newHarness("stale")
	b := h.bootstrapper(func(token string) error {
		if token == "stale" {
			return apiErr(classify.CodeAccountInvalid, "account not found")
		}
		return nil
	}, "fresh", nil)

	_, err := b.Establish(context.Background())
	assert.ErrorIs(t, err, ErrSessionRenewed)
	assert.EqualValues(t, 1, h.registers.Load())
	assert.Equal(t, []string{"spacetraders.token=fresh"}, h.store.sets)

	// the next cycle picks up the new token
	s, err := b.Establish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", s.Token)
	assert.EqualValues(t, 1, h.registers.Load())
}

func TestEstablishConcurrentRenewalsRegisterOnce(t *testing.T) {
	h := newHarness("stale")
	var arrived sync.WaitGroup
	arrived.Add(3)
	b := h.bootstrapper(func(token string) error {
		if token == "stale" {
			// every caller has read the stale token before any renews it
			arrived.Done()
			arrived.Wait()
			return apiErr(classify.CodeAccountInvalid, "account not found")
		}
		return nil
	}, "fresh", nil)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Establish(context.Background())
			assert.ErrorIs(t, err, ErrSessionRenewed)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, h.registers.Load())
}

func TestEstablishSkipsCycle(t *testing.T) {
	tests := map[string]error{
		"registration pending": apiErr(classify.CodeRegistrationPending, "token reset"),
		"other code":           apiErr(4001, "something else"),
		"unparsed body": &spacetraders.ResponseError{
			Method: http.MethodGet, Path: "/my/agent", StatusCode: 500, Body: []byte("oops"),
		},
	}
	for name, agentErr := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness("tok")
			b := h.bootstrapper(func(string) error { return agentErr }, "new", nil)

			_, err := b.Establish(context.Background())
			assert.ErrorIs(t, err, ErrSessionUnavailable)
			assert.Zero(t, h.registers.Load())
			assert.Empty(t, h.store.sets)
		})
	}
}

func TestEstablishTransportFailureIsFatal(t *testing.T) {
	h := newHarness("tok")
	b := h.bootstrapper(func(string) error { return errors.New("connection refused") }, "", nil)

	_, err := b.Establish(context.Background())
	assert.ErrorIs(t, err, classify.ErrUnrecognized)
	assert.NotErrorIs(t, err, ErrSessionUnavailable)
}

func TestEstablishMissingCredentials(t *testing.T) {
	h := newHarness("tok")
	delete(h.store.values, "spacetraders.url")
	b := h.bootstrapper(nil, "", nil)

	_, err := b.Establish(context.Background())
	assert.ErrorIs(t, err, configstore.ErrNotFound)
	assert.Empty(t, h.dialed)
}

func TestRegisterFailureKeepsToken(t *testing.T) {
	h := newHarness("stale")
	b := h.bootstrapper(
		func(string) error { return apiErr(classify.CodeAccountInvalid, "gone") },
		"",
		apiErr(4111, "symbol taken"),
	)

	_, err := b.Establish(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionRenewed)
	assert.Equal(t, 4111, classify.CodeOf(err))
	assert.Empty(t, h.store.sets)
}

func TestRegisterForced(t *testing.T) {
	h := newHarness("whatever")
	b := h.bootstrapper(nil, "forced", nil)

	reg, err := b.Register(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "forced", reg.Token)
	assert.Equal(t, "yvonne-aizawa", reg.Agent.Symbol)
	assert.Equal(t, "VOID", reg.Agent.StartingFaction)
	assert.Equal(t, []string{"spacetraders.token=forced"}, h.store.sets)
	// registration is unauthenticated
	assert.Equal(t, []string{"https://example.test/v2|"}, h.dialed)
}
