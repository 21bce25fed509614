package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

var ErrMissingBytecode = errors.New("artifact has no bytecode")

// Artifact is a compiled contract as Hardhat, Truffle or Foundry write it.
type Artifact struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode json.RawMessage `json:"bytecode"`

	Code []byte `json:"-"`
}

func LoadArtifact(path string) (*Artifact, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	return ParseArtifact(data)
}

func ParseArtifact(data []byte) (*Artifact, error) {
	var artifact Artifact

	err := json.Unmarshal(data, &artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact: %w", err)
	}

	var code string

	// Foundry nests the hex under "object".
	if err := json.Unmarshal(artifact.Bytecode, &code); err != nil {
		var nested struct {
			Object string `json:"object"`
		}

		if err := json.Unmarshal(artifact.Bytecode, &nested); err != nil {
			return nil, ErrMissingBytecode
		}

		code = nested.Object
	}

	artifact.Code = common.FromHex(code)
	if len(artifact.Code) == 0 {
		return nil, ErrMissingBytecode
	}

	return &artifact, nil
}
