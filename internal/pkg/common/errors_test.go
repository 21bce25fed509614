package common_test

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/rpsls/internal/pkg/common"
)

type panicky struct{}

func (panicky) Error() string {
	panic("boom")
}

func TestNormalizeMessage(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, common.FallbackMessage},
		{"empty", errors.New(""), common.FallbackMessage},
		{"blank before payload", errors.New(" (code=1)"), common.FallbackMessage},
		{"no payload", errors.New("nonce too low"), "nonce too low"},
		{"payload", errors.New(`execution reverted (action="estimateGas", data="0x")`), "execution reverted"},
		{"first payload only", errors.New("a (b) (c)"), "a"},
		{"wrapped", fmt.Errorf("failed to play: %w", errors.New("x")), "failed to play: x"},
		{"panicking error", panicky{}, common.FallbackMessage},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, common.NormalizeMessage(tc.err))
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	inner := errors.New("dial tcp: connection refused")

	assert.Equal(t, common.KindUnknown, common.KindOf(inner))
	assert.Equal(t, common.KindConnectivity, common.KindOf(common.Connectivity("no wallet", inner)))
	assert.Equal(t, common.KindRemoteCall, common.KindOf(fmt.Errorf("wrapped: %w", common.RemoteCall(inner))))
	assert.Equal(t, common.KindCommitmentMismatch, common.KindOf(common.CommitmentMismatch(inner)))
	require.ErrorIs(t, common.Connectivity("no wallet", inner), inner)

	assert.Equal(t, "You have inputted the wrong move or salt", common.CommitmentMismatch(inner).Error())
	assert.Equal(t, "dial tcp: connection refused", (&common.Error{Err: inner}).Error())
}

func TestHTTPError(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		err    error
		status int
		kind   string
	}{
		{common.Connectivity("Connect to your wallet to start", nil), http.StatusServiceUnavailable, "connectivity"},
		{common.MalformedInput("Invalid Address!"), http.StatusBadRequest, "malformed-input"},
		{common.RemoteCall(errors.New("x")), http.StatusBadGateway, "remote-call"},
		{common.CommitmentMismatch(nil), http.StatusUnprocessableEntity, "commitment-mismatch"},
		{common.Unavailable("busy"), http.StatusConflict, "unavailable"},
		{errors.New("plain (detail)"), http.StatusBadGateway, "remote-call"},
	} {
		he := common.HTTPError(tc.err)

		assert.Equal(t, tc.status, he.Code)

		body, ok := he.Message.(common.ErrorBody)
		require.True(t, ok)
		assert.Equal(t, tc.kind, body.Kind)
		assert.NotEmpty(t, body.Message)
	}

	body, ok := common.HTTPError(errors.New("plain (detail)")).Message.(common.ErrorBody)
	require.True(t, ok)
	assert.Equal(t, "plain", body.Message)
}

func TestInt64Bytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(1_700_000_000), common.BytesToInt64(common.Int64ToBytes(1_700_000_000), 0))
	assert.Equal(t, int64(-1), common.BytesToInt64(common.Int64ToBytes(-1), 0))
	assert.Equal(t, int64(7), common.BytesToInt64(nil, 7))
	assert.Equal(t, int64(7), common.BytesToInt64([]byte{1, 2}, 7))
}

func TestOpenDatabase(t *testing.T) {
	t.Parallel()

	db, err := common.OpenDatabase(filepath.Join(t.TempDir(), "rpsls.db"))
	require.NoError(t, err)
	require.NoError(t, db.Shutdown())
}
