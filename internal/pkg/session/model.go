package session

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vreid/rpsls/internal/pkg/contracts"
)

const (
	DefaultInterval = 1000 * time.Millisecond
	Timeout         = 5 * time.Minute

	maxNotices = 32
)

// Snapshot is everything a view is derived from: the polled contract fields
// plus the session's own flags.
type Snapshot struct {
	ContractAddress string
	ValidAddress    bool
	Connected       bool

	Viewer common.Address

	PlayersKnown bool
	Player1      common.Address
	Player2      common.Address

	PeerMove contracts.Move
	Resolved bool

	LastActionKnown bool
	LastAction      int64 // unix seconds

	Loading         bool
	WithdrawLoading bool
}

type Phase string

const (
	PhaseInvalidAddress   Phase = "invalid-address"
	PhaseUnconnected      Phase = "unconnected"
	PhaseConnecting       Phase = "connecting"
	PhaseIneligible       Phase = "ineligible"
	PhasePlayer1Waiting   Phase = "player1-waiting"
	PhasePlayer1ToResolve Phase = "player1-to-resolve"
	PhasePlayer2ToPlay    Phase = "player2-to-play"
	PhasePlayer2Waiting   Phase = "player2-waiting"
	PhaseTimedOut         Phase = "timed-out"
	PhaseResolved         Phase = "resolved"
)

type Role string

const (
	RoleNone    Role = "none"
	RolePlayer1 Role = "player1"
	RolePlayer2 Role = "player2"
)

type ActionName string

const (
	ActionPlay     ActionName = "play"
	ActionResolve  ActionName = "resolve"
	ActionWithdraw ActionName = "withdraw"
	ActionNewGame  ActionName = "new-game"
)

type Action struct {
	Name    ActionName `json:"name"`
	Label   string     `json:"label"`
	Inputs  []string   `json:"inputs,omitempty"`
	Enabled bool       `json:"enabled"`
}

type Notice struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

type View struct {
	Phase Phase `json:"phase"`
	Role  Role  `json:"role"`

	ContractAddress string `json:"contract_address"`
	Player1         string `json:"player1,omitempty"`
	Player2         string `json:"player2,omitempty"`

	PeerMove string `json:"peer_move,omitempty"`

	TimedOut         bool  `json:"timed_out"`
	RemainingMillis  int64 `json:"remaining_millis"`
	RemainingSeconds int64 `json:"remaining_seconds"`

	Messages []string `json:"messages"`
	Actions  []Action `json:"actions"`

	Loading         bool `json:"loading"`
	WithdrawLoading bool `json:"withdraw_loading"`

	Notices []Notice `json:"notices,omitempty"`
}

// Allows reports whether action is offered and currently enabled.
func (v View) Allows(action ActionName) bool {
	for _, a := range v.Actions {
		if a.Name == action {
			return a.Enabled
		}
	}

	return false
}

type GameRequest struct {
	Move string `json:"move"`
	Salt string `json:"salt"`
}
