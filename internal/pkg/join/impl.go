package join

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	"github.com/vreid/rpsls/internal/pkg/common"
	"github.com/vreid/rpsls/internal/pkg/contracts"
	"github.com/vreid/rpsls/internal/pkg/journal"
	"github.com/vreid/rpsls/internal/pkg/wallet"
)

var Routes = []Route{
	{Label: "Home", Method: http.MethodGet, Path: "/"},
	{Label: "Start a new game", Method: http.MethodPost, Path: "/api/games"},
	{Label: "Join an existing game", Method: http.MethodPost, Path: "/api/join"},
	{Label: "Game zone", Method: http.MethodGet, Path: "/api/games/:address"},
	{Label: "Your games", Method: http.MethodGet, Path: "/api/games"},
}

type Wallet interface {
	Status() wallet.Status
}

type Journal interface {
	RecordJoined(address string) error
}

type JoinService struct {
	Wallet  Wallet
	Journal Journal
	Logger  echo.Logger
}

func NewJoinService(i do.Injector) (*JoinService, error) {
	walletService := do.MustInvoke[*wallet.WalletService](i)
	journalSink := do.MustInvokeNamed[journal.Sink](i, "journal-sink")

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	result := &JoinService{
		Wallet:  walletService,
		Journal: journalSink,
		Logger:  echoService.Logger(),
	}

	echoService.Register(result.Register)

	return result, nil
}

func (s *JoinService) Register(e *echo.Echo) {
	e.GET("/", s.GetHome)

	apiGroup := e.Group("/api")

	apiGroup.POST("/join", s.PostJoin)
}

func (s *JoinService) GetHome(c echo.Context) error {
	home := Home{
		Wallet: s.Wallet.Status(),
		Routes: Routes,
	}

	if !home.Wallet.Connected {
		home.Banner = MessageConnect
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, home)
}

// PostJoin checks the address syntax only and sends the player to the game.
func (s *JoinService) PostJoin(c echo.Context) error {
	var request JoinRequest

	err := c.Bind(&request)
	if err != nil {
		return common.HTTPError(common.MalformedInput(MessageInvalidAddress))
	}

	address, err := contracts.ParseAddress(request.Address)
	if err != nil {
		return common.HTTPError(common.MalformedInput(MessageInvalidAddress))
	}

	if s.Journal != nil {
		err = s.Journal.RecordJoined(address.Hex())
		if err != nil && s.Logger != nil {
			s.Logger.Warnf("failed to journal game %s: %v", address.Hex(), err)
		}
	}

	//nolint:wrapcheck
	return c.Redirect(http.StatusSeeOther, "/api/games/"+address.Hex())
}
