package session

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vreid/rpsls/internal/pkg/contracts"
)

// RoleOf tells which seat viewer holds. A viewer holding both seats plays as
// player 1.
func RoleOf(viewer, player1, player2 common.Address) Role {
	switch viewer {
	case common.Address{}:
		return RoleNone
	case player1:
		return RolePlayer1
	case player2:
		return RolePlayer2
	}

	return RoleNone
}

// Remaining is the time left before lastAction (unix seconds) times out.
func Remaining(lastAction int64, now time.Time) time.Duration {
	return time.Duration(lastAction*1000+Timeout.Milliseconds()-now.UnixMilli()) * time.Millisecond
}

// Derive computes the presentation state of a session. It is a pure function
// of its inputs; precedence is resolved > timed out > waiting/played.
//
//nolint:cyclop,funlen
func Derive(s Snapshot, now time.Time) View {
	view := View{
		Role:            RoleNone,
		ContractAddress: s.ContractAddress,
		Messages:        []string{},
		Actions:         []Action{},
		Loading:         s.Loading,
		WithdrawLoading: s.WithdrawLoading,
	}

	switch {
	case !s.ValidAddress:
		view.Phase = PhaseInvalidAddress
		view.Messages = append(view.Messages, "Invalid game address: "+s.ContractAddress)

		return view
	case !s.Connected:
		view.Phase = PhaseUnconnected
		view.Messages = append(view.Messages, "Connect to your wallet to play this game")

		return view
	case !s.PlayersKnown:
		view.Phase = PhaseConnecting
		view.Messages = append(view.Messages, "Loading the current game...")

		return view
	}

	view.Player1 = s.Player1.Hex()
	view.Player2 = s.Player2.Hex()
	view.Role = RoleOf(s.Viewer, s.Player1, s.Player2)

	if view.Role == RoleNone {
		view.Phase = PhaseIneligible
		view.Messages = append(view.Messages, "You are not eligible to play the current game. Try to change your account")

		return view
	}

	if s.LastActionKnown {
		remaining := Remaining(s.LastAction, now)

		view.TimedOut = remaining <= 0
		view.RemainingMillis = remaining.Milliseconds()

		if !view.TimedOut {
			view.RemainingSeconds = int64(remaining / time.Second)
		}
	}

	peerMoved := s.PeerMove != contracts.Null
	if peerMoved {
		view.PeerMove = s.PeerMove.String()
	}

	switch {
	case s.Resolved:
		view.Phase = PhaseResolved
		view.TimedOut = false
		view.RemainingSeconds = 0
		view.Messages = append(view.Messages, "The game has been resolved. Please check your wallet for changes.")
		view.Actions = append(view.Actions, Action{
			Name:    ActionNewGame,
			Label:   "Play another game",
			Enabled: true,
		})
	case view.TimedOut:
		view.Phase = PhaseTimedOut
		deriveTimedOut(&view, peerMoved, s.WithdrawLoading)
	case view.Role == RolePlayer1 && peerMoved:
		view.Phase = PhasePlayer1ToResolve
		view.Messages = append(view.Messages,
			"Player 2 has played: "+view.PeerMove,
			"Input back your move and salt to resolve the game")
		view.Actions = append(view.Actions, Action{
			Name:    ActionResolve,
			Label:   "Resolve the game",
			Inputs:  []string{"move", "salt"},
			Enabled: !s.Loading,
		})
	case view.Role == RolePlayer1:
		view.Phase = PhasePlayer1Waiting
		view.Messages = append(view.Messages, "Waiting for player 2 to play...")
	case peerMoved:
		view.Phase = PhasePlayer2Waiting
		view.Messages = append(view.Messages,
			"You have submitted a move: "+view.PeerMove,
			"Waiting for player 1 to resolve the game.")
	default:
		view.Phase = PhasePlayer2ToPlay
		view.Actions = append(view.Actions, Action{
			Name:    ActionPlay,
			Label:   "Submit your move",
			Inputs:  []string{"move"},
			Enabled: !s.Loading,
		})
	}

	return view
}

func deriveTimedOut(view *View, peerMoved, withdrawLoading bool) {
	withdraw := Action{
		Name:    ActionWithdraw,
		Label:   "Take your fund back",
		Enabled: !withdrawLoading,
	}

	switch {
	case view.Role == RolePlayer1 && !peerMoved:
		view.Messages = append(view.Messages, "Player 2 failed to make a move before timeout.")
		view.Actions = append(view.Actions, withdraw)
	case view.Role == RolePlayer1:
		view.Messages = append(view.Messages, "You failed to resolve the game before timeout. Player 2 can withdraw now.")
	case !peerMoved:
		view.Messages = append(view.Messages, "You failed to make a move before timeout. Player 1 can withdraw now.")
	default:
		view.Messages = append(view.Messages, "Player 1 failed to resolve the game before timeout.")
		view.Actions = append(view.Actions, withdraw)
	}
}
