package salt

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	ErrEmpty      = errors.New("salt is empty")
	ErrMalformed  = errors.New("salt is not a number")
	ErrOutOfRange = errors.New("salt is not a 256-bit unsigned integer")
)

// Limit is 2^256, one past the largest salt.
var Limit = new(big.Int).Lsh(big.NewInt(1), 256)

// Generate returns a uniformly random 256-bit unsigned integer. It panics if
// the system entropy source fails.
func Generate() *big.Int {
	n, err := rand.Int(rand.Reader, Limit)
	if err != nil {
		panic(fmt.Sprintf("failed to read random salt: %v", err))
	}

	return n
}

// Parse reads a salt as typed back by a player, decimal or 0x-prefixed hex.
func Parse(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmpty
	}

	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	if n.Sign() < 0 || n.Cmp(Limit) >= 0 {
		return nil, ErrOutOfRange
	}

	return n, nil
}
