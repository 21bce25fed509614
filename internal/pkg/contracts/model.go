package contracts

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrBadChecksum    = errors.New("bad address checksum")
	ErrInvalidMove    = errors.New("invalid move")
	ErrInvalidAmount  = errors.New("invalid amount")
)

// Move mirrors the contract's Move enum; Null is "not played".
type Move uint8

const (
	Null Move = iota
	Rock
	Paper
	Scissors
	Spock
	Lizard
)

var Moves = []Move{Rock, Paper, Scissors, Spock, Lizard}

var moveNames = map[Move]string{
	Null:     "Null",
	Rock:     "Rock",
	Paper:    "Paper",
	Scissors: "Scissors",
	Spock:    "Spock",
	Lizard:   "Lizard",
}

func (m Move) String() string {
	name, ok := moveNames[m]
	if !ok {
		return fmt.Sprintf("Move(%d)", uint8(m))
	}

	return name
}

// Valid reports whether m is a playable move.
func (m Move) Valid() bool {
	return m >= Rock && m <= Lizard
}

// ParseMove accepts a move name (case-insensitive) or its numeric code.
func ParseMove(s string) (Move, error) {
	s = strings.TrimSpace(s)

	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		m := Move(n)
		if !m.Valid() {
			return Null, fmt.Errorf("%w: %d", ErrInvalidMove, n)
		}

		return m, nil
	}

	for _, m := range Moves {
		if strings.EqualFold(m.String(), s) {
			return m, nil
		}
	}

	return Null, fmt.Errorf("%w: %q", ErrInvalidMove, s)
}

var (
	addressPattern = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{40}$`)
	mixedCase      = regexp.MustCompile(`([A-F].*[a-f])|([a-f].*[A-F])`)
)

// ParseAddress checks address syntax the way wallets do: 40 hex digits with an
// optional 0x prefix, and a valid EIP-55 checksum whenever the case is mixed.
func ParseAddress(s string) (common.Address, error) {
	if !addressPattern.MatchString(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	digits := strings.TrimPrefix(s, "0x")
	address := common.HexToAddress(digits)

	if mixedCase.MatchString(digits) && address.Hex()[2:] != digits {
		return common.Address{}, fmt.Errorf("%w: %q", ErrBadChecksum, s)
	}

	return address, nil
}

func IsAddress(s string) bool {
	_, err := ParseAddress(s)

	return err == nil
}

var etherPattern = regexp.MustCompile(`^([0-9]*)(?:\.([0-9]*))?$`)

// ParseEther converts a decimal ETH amount into wei.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)

	match := etherPattern.FindStringSubmatch(s)
	if match == nil || match[1]+match[2] == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	whole, fraction := match[1], match[2]
	if len(fraction) > 18 {
		return nil, fmt.Errorf("%w: %q has more than 18 decimals", ErrInvalidAmount, s)
	}

	digits := whole + fraction + strings.Repeat("0", 18-len(fraction))

	wei, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	return wei, nil
}

// FormatEther renders wei as a decimal ETH amount without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	whole, fraction := new(big.Int).QuoRem(wei, unit, new(big.Int))

	if fraction.Sign() == 0 {
		return whole.String()
	}

	digits := fraction.String()
	digits = strings.Repeat("0", 18-len(digits)) + digits

	return whole.String() + "." + strings.TrimRight(digits, "0")
}

// Commitment is keccak256(abi.encodePacked(uint8(move), uint256(salt))), the
// value Hasher.hash returns and RPS.solve checks against.
func Commitment(move Move, salt *big.Int) common.Hash {
	packed := make([]byte, 0, 33)
	packed = append(packed, byte(move))
	packed = append(packed, common.LeftPadBytes(salt.Bytes(), 32)...)

	return crypto.Keccak256Hash(packed)
}
