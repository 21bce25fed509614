// Package contractstest provides in-memory stand-ins for the RPS and Hasher
// contracts that enforce the same rules the deployed bytecode does.
package contractstest

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vreid/rpsls/internal/pkg/contracts"
)

const Timeout = 5 * time.Minute

var ErrReverted = errors.New("execution reverted")

// Game holds the state of one RPS instance. Use For to get a handle signed by
// a given account.
type Game struct {
	mu sync.Mutex

	address    common.Address
	j1, j2     common.Address
	commitment common.Hash
	c2         contracts.Move
	stake      *big.Int
	lastAction int64

	now func() time.Time

	readErr error
	failing map[string]error
	calls   map[string]int
}

func NewGame(
	address, j1, j2 common.Address,
	commitment common.Hash,
	stake *big.Int,
	now func() time.Time) *Game {
	return &Game{
		address:    address,
		j1:         j1,
		j2:         j2,
		commitment: commitment,
		stake:      new(big.Int).Set(stake),
		lastAction: now().Unix(),
		now:        now,
		failing:    map[string]error{},
		calls:      map[string]int{},
	}
}

// For returns a contracts.Game whose transactions are sent from sender.
func (g *Game) For(sender common.Address) contracts.Game {
	return &handle{game: g, sender: sender}
}

// FailReads makes every read return err until called again with nil.
func (g *Game) FailReads(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.readErr = err
}

// Fail makes the next call of method return err.
func (g *Game) Fail(method string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.failing[method] = err
}

func (g *Game) Calls(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.calls[method]
}

func (g *Game) SetLastAction(unix int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastAction = unix
}

func (g *Game) StakeRemaining() *big.Int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return new(big.Int).Set(g.stake)
}

func (g *Game) begin(method string, read bool) error {
	g.calls[method]++

	if err, ok := g.failing[method]; ok {
		delete(g.failing, method)

		return err
	}

	if read && g.readErr != nil {
		return g.readErr
	}

	return nil
}

func (g *Game) expired() bool {
	return g.now().Unix() > g.lastAction+int64(Timeout/time.Second)
}

type handle struct {
	game   *Game
	sender common.Address
}

func (h *handle) Address() common.Address {
	return h.game.address
}

func (h *handle) J1(_ context.Context) (common.Address, error) {
	g := h.game
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin("j1", true); err != nil {
		return common.Address{}, err
	}

	return g.j1, nil
}

func (h *handle) J2(_ context.Context) (common.Address, error) {
	g := h.game
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin("j2", true); err != nil {
		return common.Address{}, err
	}

	return g.j2, nil
}

func (h *handle) C2(_ context.Context) (contracts.Move, error) {
	g := h.game
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin("c2", true); err != nil {
		return contracts.Null, err
	}

	return g.c2, nil
}

func (h *handle) Stake(_ context.Context) (*big.Int, error) {
	g := h.game
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin("stake", true); err != nil {
		return nil, err
	}

	return new(big.Int).Set(g.stake), nil
}

func (h *handle) LastAction(_ context.Context) (int64, error) {
	g := h.game
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin("lastAction", true); err != nil {
		return 0, err
	}

	return g.lastAction, nil
}

func (h *handle) Play(_ context.Context, move contracts.Move, value *big.Int) error {
	g := h.game
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin("play", false); err != nil {
		return err
	}

	if g.c2 != contracts.Null || !move.Valid() || h.sender != g.j2 || value == nil || value.Cmp(g.stake) != 0 {
		return ErrReverted
	}

	g.c2 = move
	g.lastAction = g.now().Unix()

	return nil
}

func (h *handle) Solve(_ context.Context, move contracts.Move, salt *big.Int) error {
	g := h.game
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin("solve", false); err != nil {
		return err
	}

	if !move.Valid() || g.c2 == contracts.Null || h.sender != g.j1 || contracts.Commitment(move, salt) != g.commitment {
		return ErrReverted
	}

	g.stake = new(big.Int)

	return nil
}

func (h *handle) J1Timeout(_ context.Context) error {
	g := h.game
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin("j1Timeout", false); err != nil {
		return err
	}

	if g.c2 == contracts.Null || h.sender != g.j2 || !g.expired() || g.stake.Sign() == 0 {
		return ErrReverted
	}

	g.stake = new(big.Int)

	return nil
}

func (h *handle) J2Timeout(_ context.Context) error {
	g := h.game
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.begin("j2Timeout", false); err != nil {
		return err
	}

	if g.c2 != contracts.Null || h.sender != g.j1 || !g.expired() || g.stake.Sign() == 0 {
		return ErrReverted
	}

	g.stake = new(big.Int)

	return nil
}

// Hasher computes commitments locally.
type Hasher struct {
	At  common.Address
	Err error
}

func (h *Hasher) Address() common.Address {
	return h.At
}

func (h *Hasher) Hash(_ context.Context, move contracts.Move, salt *big.Int) (common.Hash, error) {
	if h.Err != nil {
		return common.Hash{}, h.Err
	}

	return contracts.Commitment(move, salt), nil
}
