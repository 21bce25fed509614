package creator

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/vreid/rpsls/internal/pkg/common"
	"github.com/vreid/rpsls/internal/pkg/contracts"
)

const (
	ProgressSigner        = "Getting signer"
	ProgressDeployHasher  = "Deploying hasher contract"
	ProgressHashMove      = "Hashing player 1 move"
	ProgressDeployGame    = "Deploying RPS contract"
	ProgressGameAddress   = "Getting RPS contract address"
	SecretWarning         = "Save these information. They are important to resolve the game."
	SecretShareHint       = "Send this address to your friend to have them play with you"
	MessageInvalidAddress = "Invalid Address!"
)

type GameRequest struct {
	Stake string `json:"stake"`
	Peer  string `json:"peer"`
	Move  string `json:"move"`
}

// Plan is a validated GameRequest.
type Plan struct {
	Stake *big.Int
	Peer  ethcommon.Address
	Move  contracts.Move
}

// Secret is everything player 1 needs to resolve the game later. It is handed
// out once and never stored.
type Secret struct {
	Move     string `json:"move"`
	MoveCode uint8  `json:"move_code"`
	Salt     string `json:"salt"`
	Address  string `json:"address"`
	Warning  string `json:"warning"`
	Hint     string `json:"hint"`
}

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

type JobCreated struct {
	JobID    string `json:"job_id"`
	Location string `json:"location"`
}

type Job struct {
	ID       string            `json:"id"`
	Status   JobStatus         `json:"status"`
	Progress string            `json:"progress,omitempty"`
	Address  string            `json:"address,omitempty"`
	Error    *common.ErrorBody `json:"error,omitempty"`
	Secret   *Secret           `json:"secret,omitempty"`
}
