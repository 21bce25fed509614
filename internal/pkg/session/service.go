package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	"github.com/vreid/rpsls/internal/pkg/common"
	"github.com/vreid/rpsls/internal/pkg/contracts"
	"github.com/vreid/rpsls/internal/pkg/wallet"
)

// Wallet is what sessions need from the player's wallet.
type Wallet interface {
	Ensure(ctx context.Context) error
	Address() ethcommon.Address
	Game(ctx context.Context, address ethcommon.Address) (contracts.Game, error)
}

type SessionService struct {
	sync.Mutex

	Wallet Wallet

	Options Options
	Idle    time.Duration

	sessions map[ethcommon.Address]*Session

	stop chan struct{}
	done chan struct{}
}

func NewSessionService(i do.Injector) (*SessionService, error) {
	walletService := do.MustInvoke[*wallet.WalletService](i)

	interval := do.MustInvokeNamed[time.Duration](i, "poll-interval")
	idle := do.MustInvokeNamed[time.Duration](i, "session-idle")

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	result := NewRegistry(walletService, Options{
		Interval: interval,
		Logger:   echoService.Logger(),
	}, idle)

	echoService.Register(result.Register)

	return result, nil
}

func NewRegistry(w Wallet, options Options, idle time.Duration) *SessionService {
	if options.Now == nil {
		options.Now = time.Now
	}

	return &SessionService{
		Wallet:   w,
		Options:  options,
		Idle:     idle,
		sessions: map[ethcommon.Address]*Session{},
	}
}

func (s *SessionService) Register(e *echo.Echo) {
	gamesGroup := e.Group("/api/games")

	gamesGroup.GET("/:address", s.GetGame)
	gamesGroup.POST("/:address/play", s.PostPlay)
	gamesGroup.POST("/:address/resolve", s.PostResolve)
	gamesGroup.POST("/:address/withdraw", s.PostWithdraw)
}

// Start runs the janitor that closes sessions nobody looked at for Idle.
func (s *SessionService) Start() {
	if s.Idle <= 0 {
		return
	}

	s.Lock()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.Unlock()

	go func() {
		defer close(done)

		ticker := time.NewTicker(s.Idle / 2)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Sweep closes idle sessions.
func (s *SessionService) Sweep() {
	now := s.Options.Now()

	s.Lock()
	defer s.Unlock()

	for address, session := range s.sessions {
		if now.Sub(session.LastSeen()) > s.Idle {
			session.Close()
			delete(s.sessions, address)
		}
	}
}

func (s *SessionService) Len() int {
	s.Lock()
	defer s.Unlock()

	return len(s.sessions)
}

// Open returns the session for address as seen by the wallet's account,
// replacing one opened for a different account.
func (s *SessionService) Open(ctx context.Context, address ethcommon.Address) (*Session, error) {
	err := s.Wallet.Ensure(ctx)
	if err != nil {
		//nolint:wrapcheck
		return nil, err
	}

	viewer := s.Wallet.Address()

	s.Lock()
	defer s.Unlock()

	existing, ok := s.sessions[address]
	if ok && existing.Viewer() == viewer {
		return existing, nil
	}

	if ok {
		existing.Close()
		delete(s.sessions, address)
	}

	game, err := s.Wallet.Game(ctx, address)
	if err != nil {
		//nolint:wrapcheck
		return nil, err
	}

	session := New(address, viewer, s.Options)
	session.Attach(game)

	s.sessions[address] = session

	return session, nil
}

func (s *SessionService) Shutdown() error {
	s.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil

	for address, session := range s.sessions {
		session.Close()
		delete(s.sessions, address)
	}
	s.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	return nil
}

func (s *SessionService) GetGame(c echo.Context) error {
	raw := c.Param("address")
	now := s.Options.Now()

	address, err := contracts.ParseAddress(raw)
	if err != nil {
		//nolint:wrapcheck
		return c.JSON(http.StatusOK, Derive(Snapshot{ContractAddress: raw}, now))
	}

	session, err := s.Open(c.Request().Context(), address)
	if err != nil {
		if common.KindOf(err) == common.KindConnectivity {
			//nolint:wrapcheck
			return c.JSON(http.StatusOK, Derive(Snapshot{
				ContractAddress: address.Hex(),
				ValidAddress:    true,
			}, now))
		}

		return common.HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, session.View())
}

func (s *SessionService) PostPlay(c echo.Context) error {
	return s.act(c, func(ctx context.Context, session *Session, request GameRequest) error {
		move, err := contracts.ParseMove(request.Move)
		if err != nil {
			return common.MalformedInput("Choose your move")
		}

		return session.Play(ctx, move)
	})
}

func (s *SessionService) PostResolve(c echo.Context) error {
	return s.act(c, func(ctx context.Context, session *Session, request GameRequest) error {
		return session.Resolve(ctx, request.Move, request.Salt)
	})
}

func (s *SessionService) PostWithdraw(c echo.Context) error {
	return s.act(c, func(ctx context.Context, session *Session, _ GameRequest) error {
		return session.Withdraw(ctx)
	})
}

func (s *SessionService) act(c echo.Context, action func(context.Context, *Session, GameRequest) error) error {
	address, err := contracts.ParseAddress(c.Param("address"))
	if err != nil {
		return common.HTTPError(common.MalformedInput("Invalid game address"))
	}

	var request GameRequest

	err = c.Bind(&request)
	if err != nil {
		return common.HTTPError(common.MalformedInput("Invalid request body"))
	}

	// The call outlives a client that stops waiting for it.
	ctx := context.WithoutCancel(c.Request().Context())

	session, err := s.Open(ctx, address)
	if err != nil {
		return common.HTTPError(err)
	}

	err = action(ctx, session, request)
	if err != nil {
		return common.HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, session.View())
}
