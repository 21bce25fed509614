package session_test

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/rpsls/internal/pkg/contracts"
	"github.com/vreid/rpsls/internal/pkg/session"
)

func randomAddress(t *testing.T) common.Address {
	t.Helper()

	b := make([]byte, common.AddressLength)

	_, err := rand.Read(b)
	require.NoError(t, err)

	return common.BytesToAddress(b)
}

func playing(viewer, player1, player2 common.Address) session.Snapshot {
	return session.Snapshot{
		ContractAddress: "0x0000000000000000000000000000000000000001",
		ValidAddress:    true,
		Connected:       true,
		Viewer:          viewer,
		PlayersKnown:    true,
		Player1:         player1,
		Player2:         player2,
	}
}

func TestDeriveIneligible(t *testing.T) {
	t.Parallel()

	now := time.Now()

	for range 100 {
		a, b, viewer := randomAddress(t), randomAddress(t), randomAddress(t)

		for _, snapshot := range []session.Snapshot{
			playing(viewer, a, b),
			func() session.Snapshot {
				s := playing(viewer, a, b)
				s.PeerMove = contracts.Spock
				s.LastActionKnown = true
				s.LastAction = now.Add(-time.Hour).Unix()

				return s
			}(),
		} {
			view := session.Derive(snapshot, now)

			assert.Equal(t, session.PhaseIneligible, view.Phase)
			assert.Equal(t, session.RoleNone, view.Role)
			assert.Empty(t, view.Actions)
		}
	}
}

func TestDeriveBeforePlayers(t *testing.T) {
	t.Parallel()

	now := time.Now()

	view := session.Derive(session.Snapshot{ContractAddress: "0xnope"}, now)
	assert.Equal(t, session.PhaseInvalidAddress, view.Phase)
	assert.Equal(t, []string{"Invalid game address: 0xnope"}, view.Messages)

	view = session.Derive(session.Snapshot{ValidAddress: true}, now)
	assert.Equal(t, session.PhaseUnconnected, view.Phase)

	view = session.Derive(session.Snapshot{ValidAddress: true, Connected: true}, now)
	assert.Equal(t, session.PhaseConnecting, view.Phase)
}

func TestDeriveTimeoutBoundary(t *testing.T) {
	t.Parallel()

	player1, player2 := randomAddress(t), randomAddress(t)

	for _, lastAction := range []int64{0, 1, 1_700_000_000, 1_999_999_999} {
		snapshot := playing(player1, player1, player2)
		snapshot.LastActionKnown = true
		snapshot.LastAction = lastAction

		deadline := time.UnixMilli(lastAction*1000 + 300000)

		before := session.Derive(snapshot, deadline.Add(-time.Millisecond))
		assert.False(t, before.TimedOut)
		assert.Equal(t, int64(1), before.RemainingMillis)
		assert.Equal(t, session.PhasePlayer1Waiting, before.Phase)

		for _, now := range []time.Time{deadline, deadline.Add(time.Millisecond), deadline.Add(time.Hour)} {
			view := session.Derive(snapshot, now)

			assert.True(t, view.TimedOut)
			assert.LessOrEqual(t, view.RemainingMillis, int64(0))
			assert.Equal(t, session.PhaseTimedOut, view.Phase)
		}
	}
}

func TestDeriveCountdown(t *testing.T) {
	t.Parallel()

	player1, player2 := randomAddress(t), randomAddress(t)
	now := time.Unix(1_700_000_000, 0)

	snapshot := playing(player2, player1, player2)
	snapshot.LastActionKnown = true
	snapshot.LastAction = now.Add(-90 * time.Second).Unix()

	view := session.Derive(snapshot, now)

	assert.Equal(t, session.PhasePlayer2ToPlay, view.Phase)
	assert.Equal(t, int64(210), view.RemainingSeconds)
	assert.True(t, view.Allows(session.ActionPlay))
}

func TestDeriveResolvedWinsOverTimeout(t *testing.T) {
	t.Parallel()

	player1, player2 := randomAddress(t), randomAddress(t)
	now := time.Now()

	snapshot := playing(player1, player1, player2)
	snapshot.PeerMove = contracts.Rock
	snapshot.Resolved = true
	snapshot.LastActionKnown = true
	snapshot.LastAction = now.Add(-time.Hour).Unix()

	view := session.Derive(snapshot, now)

	assert.Equal(t, session.PhaseResolved, view.Phase)
	assert.False(t, view.Allows(session.ActionWithdraw))
	assert.True(t, view.Allows(session.ActionNewGame))
}

func TestDeriveTimedOutBranches(t *testing.T) {
	t.Parallel()

	player1, player2 := randomAddress(t), randomAddress(t)
	now := time.Now()

	for _, tc := range []struct {
		viewer   common.Address
		peerMove contracts.Move
		message  string
		withdraw bool
	}{
		{player1, contracts.Null, "Player 2 failed to make a move before timeout.", true},
		{player1, contracts.Paper, "You failed to resolve the game before timeout. Player 2 can withdraw now.", false},
		{player2, contracts.Null, "You failed to make a move before timeout. Player 1 can withdraw now.", false},
		{player2, contracts.Paper, "Player 1 failed to resolve the game before timeout.", true},
	} {
		snapshot := playing(tc.viewer, player1, player2)
		snapshot.PeerMove = tc.peerMove
		snapshot.LastActionKnown = true
		snapshot.LastAction = now.Add(-6 * time.Minute).Unix()

		view := session.Derive(snapshot, now)

		assert.Equal(t, session.PhaseTimedOut, view.Phase)
		assert.Equal(t, []string{tc.message}, view.Messages)
		assert.Equal(t, tc.withdraw, view.Allows(session.ActionWithdraw))
		assert.False(t, view.Allows(session.ActionResolve))
		assert.False(t, view.Allows(session.ActionPlay))

		snapshot.WithdrawLoading = true
		assert.False(t, session.Derive(snapshot, now).Allows(session.ActionWithdraw))
	}
}

func TestRoleOf(t *testing.T) {
	t.Parallel()

	a, b := randomAddress(t), randomAddress(t)

	assert.Equal(t, session.RolePlayer1, session.RoleOf(a, a, b))
	assert.Equal(t, session.RolePlayer2, session.RoleOf(b, a, b))
	assert.Equal(t, session.RolePlayer1, session.RoleOf(a, a, a))
	assert.Equal(t, session.RoleNone, session.RoleOf(common.Address{}, a, b))
}
