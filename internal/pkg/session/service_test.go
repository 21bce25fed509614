package session_test

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	rpscommon "github.com/vreid/rpsls/internal/pkg/common"
	"github.com/vreid/rpsls/internal/pkg/contracts"
	"github.com/vreid/rpsls/internal/pkg/contracts/contractstest"
	"github.com/vreid/rpsls/internal/pkg/session"
)

type fakeWallet struct {
	account common.Address
	game    *contractstest.Game
	err     error
}

func (w *fakeWallet) Ensure(_ context.Context) error {
	return w.err
}

func (w *fakeWallet) Address() common.Address {
	return w.account
}

func (w *fakeWallet) Game(_ context.Context, _ common.Address) (contracts.Game, error) {
	return w.game.For(w.account), nil
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) session.View {
	t.Helper()

	var view session.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))

	return view
}

func phaseOf(e *echo.Echo, target string) session.Phase {
	var view session.View

	_ = json.Unmarshal(serve(e, http.MethodGet, target, "").Body.Bytes(), &view)

	return view.Phase
}

func newServer(t *testing.T, w session.Wallet) (*echo.Echo, *session.SessionService) {
	t.Helper()

	registry := session.NewRegistry(w, session.Options{Interval: 5 * time.Millisecond}, time.Minute)
	t.Cleanup(func() {
		_ = registry.Shutdown()
	})

	e := echo.New()
	registry.Register(e)

	return e, registry
}

func TestGetGameInvalidAddress(t *testing.T) {
	t.Parallel()

	e, registry := newServer(t, &fakeWallet{})

	rec := serve(e, http.MethodGet, "/api/games/0x1234", "")
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeView(t, rec)
	assert.Equal(t, session.PhaseInvalidAddress, view.Phase)
	assert.Equal(t, "0x1234", view.ContractAddress)
	assert.Zero(t, registry.Len())
}

func TestGetGameWithoutWallet(t *testing.T) {
	t.Parallel()

	e, registry := newServer(t, &fakeWallet{
		err: rpscommon.Connectivity("Connect to your wallet to play this game", nil),
	})

	address := randomAddress(t)

	rec := serve(e, http.MethodGet, "/api/games/"+address.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.PhaseUnconnected, decodeView(t, rec).Phase)

	rec = serve(e, http.MethodPost, "/api/games/"+address.Hex()+"/withdraw", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, registry.Len())
}

func TestGameOverHTTP(t *testing.T) {
	t.Parallel()

	player1, player2 := randomAddress(t), randomAddress(t)
	address := randomAddress(t)
	salt := big.NewInt(31337)

	game := contractstest.NewGame(address, player1, player2,
		contracts.Commitment(contracts.Paper, salt), big.NewInt(5), time.Now)

	first, _ := newServer(t, &fakeWallet{account: player1, game: game})
	second, _ := newServer(t, &fakeWallet{account: player2, game: game})

	target := "/api/games/" + address.Hex()

	require.Eventually(t, func() bool {
		return phaseOf(second, target) == session.PhasePlayer2ToPlay
	}, time.Second, 5*time.Millisecond)

	rec := serve(second, http.MethodPost, target+"/play", `{"move": "rock"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.PhasePlayer2Waiting, decodeView(t, rec).Phase)

	rec = serve(second, http.MethodPost, target+"/play", `{"move": "rock"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Eventually(t, func() bool {
		return phaseOf(first, target) == session.PhasePlayer1ToResolve
	}, time.Second, 5*time.Millisecond)

	rec = serve(first, http.MethodPost, target+"/resolve", `{"move": "Paper", "salt": "1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t,
		`{"kind": "commitment-mismatch", "message": "You have inputted the wrong move or salt"}`,
		rec.Body.String())

	rec = serve(first, http.MethodPost, target+"/resolve", `{"move": "Paper", "salt": "31337"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.PhaseResolved, decodeView(t, rec).Phase)

	require.Eventually(t, func() bool {
		return phaseOf(second, target) == session.PhaseResolved
	}, time.Second, 5*time.Millisecond)
}

func TestSweepClosesIdleSessions(t *testing.T) {
	t.Parallel()

	player1, player2 := randomAddress(t), randomAddress(t)
	address := randomAddress(t)

	c := &clock{now: time.Unix(1_700_000_000, 0)}
	game := contractstest.NewGame(address, player1, player2, common.Hash{}, big.NewInt(1), c.Now)

	registry := session.NewRegistry(
		&fakeWallet{account: player1, game: game},
		session.Options{Interval: time.Hour, Now: c.Now},
		10*time.Minute)
	t.Cleanup(func() {
		_ = registry.Shutdown()
	})

	opened, err := registry.Open(context.Background(), address)
	require.NoError(t, err)

	again, err := registry.Open(context.Background(), address)
	require.NoError(t, err)
	assert.Same(t, opened, again)

	c.Advance(5 * time.Minute)
	registry.Sweep()
	assert.Equal(t, 1, registry.Len())

	c.Advance(6 * time.Minute)
	registry.Sweep()
	assert.Zero(t, registry.Len())
}
