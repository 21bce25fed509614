package contracts_test

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/rpsls/internal/pkg/contracts"
)

func TestParseMove(t *testing.T) {
	t.Parallel()

	for input, expected := range map[string]contracts.Move{
		"1":        contracts.Rock,
		"3":        contracts.Scissors,
		"scissors": contracts.Scissors,
		" Lizard ": contracts.Lizard,
		"SPOCK":    contracts.Spock,
	} {
		move, err := contracts.ParseMove(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, move, input)
	}

	for _, input := range []string{"", "0", "6", "Null", "well"} {
		_, err := contracts.ParseMove(input)
		require.ErrorIs(t, err, contracts.ErrInvalidMove, input)
	}

	assert.Equal(t, "Paper", contracts.Paper.String())
	assert.Equal(t, "Move(9)", contracts.Move(9).String())
}

func TestParseAddress(t *testing.T) {
	t.Parallel()

	checksummed := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

	for _, input := range []string{
		checksummed,
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		"0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED",
		"5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	} {
		address, err := contracts.ParseAddress(input)
		require.NoError(t, err, input)
		assert.Equal(t, checksummed, address.Hex(), input)
	}

	_, err := contracts.ParseAddress("0x5aaeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.ErrorIs(t, err, contracts.ErrBadChecksum)

	for _, input := range []string{"", "0x", "0x1234", "hello", "0xZZaeb6053f3e94c9b9a09f33669435e7ef1beaed", " " + checksummed} {
		_, err := contracts.ParseAddress(input)
		require.ErrorIs(t, err, contracts.ErrInvalidAddress, input)
	}
}

func TestParseEther(t *testing.T) {
	t.Parallel()

	for input, expected := range map[string]string{
		"1":                    "1000000000000000000",
		"0.5":                  "500000000000000000",
		".25":                  "250000000000000000",
		"2.":                   "2000000000000000000",
		"0.000000000000000001": "1",
		"0":                    "0",
	} {
		wei, err := contracts.ParseEther(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, wei.String(), input)
	}

	for _, input := range []string{"", ".", "abc", "1.2.3", "-1", "0.0000000000000000001"} {
		_, err := contracts.ParseEther(input)
		require.ErrorIs(t, err, contracts.ErrInvalidAmount, input)
	}
}

func TestFormatEther(t *testing.T) {
	t.Parallel()

	wei, _ := new(big.Int).SetString("1500000000000000000", 10)

	assert.Equal(t, "1.5", contracts.FormatEther(wei))
	assert.Equal(t, "0.000000000000000001", contracts.FormatEther(big.NewInt(1)))
	assert.Equal(t, "0", contracts.FormatEther(nil))
}

func TestCommitment(t *testing.T) {
	t.Parallel()

	salt := big.NewInt(42)

	packed := append([]byte{byte(contracts.Rock)}, common.LeftPadBytes(salt.Bytes(), 32)...)

	assert.Len(t, packed, 33)
	assert.Equal(t, crypto.Keccak256Hash(packed), contracts.Commitment(contracts.Rock, salt))
	assert.Equal(t, contracts.Commitment(contracts.Rock, salt), contracts.Commitment(contracts.Rock, big.NewInt(42)))
	assert.NotEqual(t, contracts.Commitment(contracts.Rock, salt), contracts.Commitment(contracts.Paper, salt))
	assert.NotEqual(t, contracts.Commitment(contracts.Rock, salt), contracts.Commitment(contracts.Rock, big.NewInt(43)))
}

func TestIsRevert(t *testing.T) {
	t.Parallel()

	assert.True(t, contracts.IsRevert(fmt.Errorf("outer: %w", contracts.ErrTransactionFailed)))
	assert.True(t, contracts.IsRevert(errors.New("failed to send solve: execution reverted")))
	assert.False(t, contracts.IsRevert(errors.New("dial tcp 127.0.0.1:8545: connection refused")))
	assert.False(t, contracts.IsRevert(nil))
}

func TestParseArtifact(t *testing.T) {
	t.Parallel()

	artifact, err := contracts.ParseArtifact([]byte(`{"abi": [], "bytecode": "0x6080"}`))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80}, artifact.Code)

	artifact, err = contracts.ParseArtifact([]byte(`{"abi": [], "bytecode": {"object": "0x6001"}}`))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x01}, artifact.Code)

	_, err = contracts.ParseArtifact([]byte(`{"abi": []}`))
	require.ErrorIs(t, err, contracts.ErrMissingBytecode)

	_, err = contracts.ParseArtifact([]byte(`{"abi": [], "bytecode": "0x"}`))
	require.ErrorIs(t, err, contracts.ErrMissingBytecode)
}

func TestEmbeddedABI(t *testing.T) {
	t.Parallel()

	for _, method := range []string{"j1", "j2", "c2", "stake", "lastAction", "play", "solve", "j1Timeout", "j2Timeout"} {
		_, ok := contracts.RPSABI.Methods[method]
		assert.True(t, ok, method)
	}

	assert.True(t, contracts.RPSABI.Methods["play"].IsPayable())
	assert.Len(t, contracts.RPSABI.Constructor.Inputs, 2)

	_, ok := contracts.HasherABI.Methods["hash"]
	assert.True(t, ok)
}
