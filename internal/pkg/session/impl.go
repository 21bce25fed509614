package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/vreid/rpsls/internal/pkg/common"
	"github.com/vreid/rpsls/internal/pkg/contracts"
	"github.com/vreid/rpsls/internal/pkg/salt"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Interval time.Duration
	Now      func() time.Time
	Logger   echo.Logger
}

// Session is the view model of one game seen by one account. It owns the
// contract handle and the loops polling it.
type Session struct {
	attachMu sync.Mutex

	mu sync.Mutex

	contractAddress ethcommon.Address
	viewer          ethcommon.Address

	game       contracts.Game
	generation uint64
	cancel     context.CancelFunc
	group      *errgroup.Group

	playersKnown bool
	player1      ethcommon.Address
	player2      ethcommon.Address

	peerMove contracts.Move
	resolved bool

	lastActionKnown bool
	lastAction      int64
	timedOut        bool

	loading         bool
	withdrawLoading bool

	notices  []Notice
	lastSeen time.Time

	interval time.Duration
	now      func() time.Time
	logger   echo.Logger
}

func New(contractAddress, viewer ethcommon.Address, options Options) *Session {
	if options.Interval <= 0 {
		options.Interval = DefaultInterval
	}

	if options.Now == nil {
		options.Now = time.Now
	}

	if options.Logger == nil {
		options.Logger = echo.New().Logger
	}

	return &Session{
		contractAddress: contractAddress,
		viewer:          viewer,

		lastSeen: options.Now(),

		interval: options.Interval,
		now:      options.Now,
		logger:   options.Logger,
	}
}

func (s *Session) ContractAddress() ethcommon.Address {
	return s.contractAddress
}

func (s *Session) Viewer() ethcommon.Address {
	return s.viewer
}

// Attach replaces the contract handle. Loops polling the previous handle are
// stopped first and nothing they read afterwards is applied.
func (s *Session) Attach(game contracts.Game) {
	s.attachMu.Lock()
	defer s.attachMu.Unlock()

	s.detach()

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	s.mu.Lock()
	s.generation++
	generation := s.generation

	s.game = game
	s.cancel = cancel
	s.group = group

	s.playersKnown = false
	s.player1 = ethcommon.Address{}
	s.player2 = ethcommon.Address{}
	s.peerMove = contracts.Null
	s.resolved = false
	s.lastActionKnown = false
	s.timedOut = false
	s.loading = false
	s.withdrawLoading = false
	s.mu.Unlock()

	for _, tick := range []func(context.Context, uint64) bool{
		s.pollPlayers,
		s.pollTimeout,
		s.pollPeerMove,
		s.pollResolution,
	} {
		group.Go(func() error {
			return s.loop(ctx, generation, tick)
		})
	}
}

// Close stops every loop and drops the handle. It is safe to call twice.
func (s *Session) Close() {
	s.attachMu.Lock()
	defer s.attachMu.Unlock()

	s.detach()

	s.mu.Lock()
	s.game = nil
	s.mu.Unlock()
}

func (s *Session) detach() {
	s.mu.Lock()
	cancel, group := s.cancel, s.group
	s.cancel, s.group = nil, nil
	s.generation++
	s.mu.Unlock()

	if cancel != nil {
		cancel()

		_ = group.Wait()
	}
}

func (s *Session) loop(ctx context.Context, generation uint64, tick func(context.Context, uint64) bool) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if tick(ctx, generation) {
				return nil
			}
		}
	}
}

// handle returns the game for generation, nil once it has been replaced.
func (s *Session) handle(generation uint64) contracts.Game {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return nil
	}

	return s.game
}

func (s *Session) current() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.generation
}

// PollPlayers, PollTimeout, PollPeerMove and PollResolution run one tick of
// the corresponding loop against the current handle. They report whether the
// loop is done.
func (s *Session) PollPlayers(ctx context.Context) bool {
	return s.pollPlayers(ctx, s.current())
}

func (s *Session) PollTimeout(ctx context.Context) bool {
	return s.pollTimeout(ctx, s.current())
}

func (s *Session) PollPeerMove(ctx context.Context) bool {
	return s.pollPeerMove(ctx, s.current())
}

func (s *Session) PollResolution(ctx context.Context) bool {
	return s.pollResolution(ctx, s.current())
}

func (s *Session) pollPlayers(ctx context.Context, generation uint64) bool {
	game := s.handle(generation)
	if game == nil {
		return true
	}

	player1, err := game.J1(ctx)
	if err != nil {
		s.report(generation, err)

		return false
	}

	player2, err := game.J2(ctx)
	if err != nil {
		s.report(generation, err)

		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation == s.generation {
		s.player1 = player1
		s.player2 = player2
		s.playersKnown = true
	}

	return true
}

// pollTimeout never finishes on its own; the countdown keeps moving.
func (s *Session) pollTimeout(ctx context.Context, generation uint64) bool {
	game := s.handle(generation)
	if game == nil {
		return true
	}

	lastAction, err := game.LastAction(ctx)
	if err != nil {
		s.report(generation, err)

		return false
	}

	timedOut := Remaining(lastAction, s.now()) <= 0

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return true
	}

	if timedOut && !s.timedOut {
		s.logger.Infof("game %s timed out", s.contractAddress.Hex())
	}

	s.lastAction = lastAction
	s.lastActionKnown = true
	s.timedOut = timedOut

	return false
}

func (s *Session) pollPeerMove(ctx context.Context, generation uint64) bool {
	game := s.handle(generation)
	if game == nil {
		return true
	}

	if s.peerMoved() {
		return true
	}

	move, err := game.C2(ctx)
	if err != nil {
		s.report(generation, err)

		return false
	}

	return s.latchPeerMove(generation, move)
}

func (s *Session) pollResolution(ctx context.Context, generation uint64) bool {
	game := s.handle(generation)
	if game == nil {
		return true
	}

	if s.isResolved() {
		return true
	}

	stake, err := game.Stake(ctx)
	if err != nil {
		s.report(generation, err)

		return false
	}

	return s.latchResolved(generation, stake.Sign() == 0)
}

func (s *Session) peerMoved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.peerMove != contracts.Null
}

func (s *Session) isResolved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.resolved
}

func (s *Session) latchPeerMove(generation uint64, move contracts.Move) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return true
	}

	if s.peerMove != contracts.Null {
		return true
	}

	if move == contracts.Null {
		return false
	}

	s.peerMove = move
	s.loading = false

	s.logger.Infof("game %s: player 2 played %s", s.contractAddress.Hex(), move)

	return true
}

func (s *Session) latchResolved(generation uint64, resolved bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return true
	}

	if s.resolved {
		return true
	}

	if !resolved {
		return false
	}

	s.resolved = true
	s.loading = false
	s.withdrawLoading = false

	s.logger.Infof("game %s resolved", s.contractAddress.Hex())

	return true
}

// report turns a failed read into a notice. The loop carries on.
func (s *Session) report(generation uint64, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return
	}

	s.pushLocked(common.NormalizeMessage(err))
	s.logger.Warnf("game %s: %v", s.contractAddress.Hex(), err)
}

func (s *Session) pushLocked(message string) {
	notice := Notice{
		ID:      uuid.NewString(),
		Message: message,
		Time:    s.now(),
	}

	s.notices = append(s.notices, notice)
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ContractAddress: s.contractAddress.Hex(),
		ValidAddress:    true,
		Connected:       true,
		Viewer:          s.viewer,

		PlayersKnown: s.playersKnown,
		Player1:      s.player1,
		Player2:      s.player2,

		PeerMove: s.peerMove,
		Resolved: s.resolved,

		LastActionKnown: s.lastActionKnown,
		LastAction:      s.lastAction,

		Loading:         s.loading,
		WithdrawLoading: s.withdrawLoading,
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// View derives the current presentation state and hands over pending notices.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.lastSeen = now

	view := Derive(s.snapshotLocked(), now)
	view.Notices = s.notices
	s.notices = nil

	return view
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSeen
}

// begin checks that action is offered and raises its in-flight flag.
func (s *Session) begin(action ActionName) (contracts.Game, uint64, Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game == nil {
		return nil, 0, RoleNone, common.Unavailable("Cannot find the current game")
	}

	view := Derive(s.snapshotLocked(), s.now())
	if !view.Allows(action) {
		if s.loading || s.withdrawLoading {
			return nil, 0, view.Role, common.Unavailable("Another transaction is in flight")
		}

		return nil, 0, view.Role, common.Unavailable(fmt.Sprintf("Cannot %s in the current state of the game", action))
	}

	if action == ActionWithdraw {
		s.withdrawLoading = true
	} else {
		s.loading = true
	}

	return s.game, s.generation, view.Role, nil
}

// finish lowers the in-flight flag raised by begin.
func (s *Session) finish(generation uint64, action ActionName) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return
	}

	if action == ActionWithdraw {
		s.withdrawLoading = false
	} else {
		s.loading = false
	}
}

// Play submits the second player's move with the stake read fresh from the
// contract, then records the move without waiting for the next poll.
func (s *Session) Play(ctx context.Context, move contracts.Move) error {
	if !move.Valid() {
		return common.MalformedInput("Choose your move")
	}

	game, generation, _, err := s.begin(ActionPlay)
	if err != nil {
		return err
	}

	stake, err := game.Stake(ctx)
	if err != nil {
		s.finish(generation, ActionPlay)

		return common.RemoteCall(err)
	}

	err = game.Play(ctx, move, stake)
	if err != nil {
		s.finish(generation, ActionPlay)

		return common.RemoteCall(err)
	}

	played, err := game.C2(ctx)
	if err != nil {
		// The move is on chain; the peer-move loop will pick it up.
		s.report(generation, err)

		return nil
	}

	s.latchPeerMove(generation, played)

	return nil
}

// Resolve replays the first player's commitment.
func (s *Session) Resolve(ctx context.Context, moveInput, saltInput string) error {
	if strings.TrimSpace(moveInput) == "" || strings.TrimSpace(saltInput) == "" {
		return common.MalformedInput("Input back your move and salt to resolve the game")
	}

	move, err := contracts.ParseMove(moveInput)
	if err != nil {
		return common.MalformedInput("Choose your move")
	}

	game, generation, _, err := s.begin(ActionResolve)
	if err != nil {
		return err
	}

	defer s.finish(generation, ActionResolve)

	saltValue, err := salt.Parse(saltInput)
	if err != nil {
		return common.CommitmentMismatch(err)
	}

	err = game.Solve(ctx, move, saltValue)
	if err != nil {
		if contracts.IsRevert(err) {
			return common.CommitmentMismatch(err)
		}

		return common.RemoteCall(err)
	}

	s.confirmResolved(ctx, game, generation)

	return nil
}

// Withdraw claims the pot after the other player let the game time out.
func (s *Session) Withdraw(ctx context.Context) error {
	game, generation, role, err := s.begin(ActionWithdraw)
	if err != nil {
		return err
	}

	defer s.finish(generation, ActionWithdraw)

	if role == RolePlayer1 {
		err = game.J2Timeout(ctx)
	} else {
		err = game.J1Timeout(ctx)
	}

	if err != nil {
		return common.RemoteCall(err)
	}

	s.confirmResolved(ctx, game, generation)

	return nil
}

func (s *Session) confirmResolved(ctx context.Context, game contracts.Game, generation uint64) {
	stake, err := game.Stake(ctx)
	if err != nil {
		s.report(generation, err)

		return
	}

	s.latchResolved(generation, stake.Sign() == 0)
}
