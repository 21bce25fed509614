package creator

import (
	"context"
	"errors"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/vreid/rpsls/internal/pkg/common"
	"github.com/vreid/rpsls/internal/pkg/contracts"
	"github.com/vreid/rpsls/internal/pkg/salt"
)

var ErrUnexpectedCommitment = errors.New("hasher returned an unexpected commitment")

// Wallet is what a creation flow needs from the player's wallet.
type Wallet interface {
	Ensure(ctx context.Context) error
	Deployer(ctx context.Context) (contracts.Deployer, error)
}

// Validate checks a request locally; nothing here touches the network.
func Validate(request GameRequest) (*Plan, error) {
	stake, err := contracts.ParseEther(request.Stake)
	if err != nil || stake.Sign() <= 0 {
		return nil, common.MalformedInput("Amount to stake must be greater than 0")
	}

	peer, err := contracts.ParseAddress(request.Peer)
	if err != nil {
		return nil, common.MalformedInput(MessageInvalidAddress)
	}

	move, err := contracts.ParseMove(request.Move)
	if err != nil {
		return nil, common.MalformedInput("Your move is required")
	}

	return &Plan{
		Stake: stake,
		Peer:  peer,
		Move:  move,
	}, nil
}

type Flow struct {
	Wallet Wallet
	Salt   func() *big.Int
}

func NewFlow(w Wallet) *Flow {
	return &Flow{
		Wallet: w,
		Salt:   salt.Generate,
	}
}

// Run deploys a hasher, commits to the plan's move with a fresh salt and
// deploys the game holding the stake. Deployments that already happened are
// left on chain when a later step fails.
func (f *Flow) Run(ctx context.Context, plan Plan, progress func(string)) (*Secret, error) {
	if progress == nil {
		progress = func(string) {}
	}

	progress(ProgressSigner)

	deployer, err := f.Wallet.Deployer(ctx)
	if err != nil {
		return nil, remote(err)
	}

	progress(ProgressDeployHasher)

	hasher, err := deployer.DeployHasher(ctx)
	if err != nil {
		return nil, remote(err)
	}

	secret := f.Salt()

	progress(ProgressHashMove)

	commitment, err := hasher.Hash(ctx, plan.Move, secret)
	if err != nil {
		return nil, remote(err)
	}

	if commitment != contracts.Commitment(plan.Move, secret) {
		return nil, common.RemoteCall(ErrUnexpectedCommitment)
	}

	progress(ProgressDeployGame)

	address, err := deployer.DeployGame(ctx, commitment, plan.Peer, plan.Stake)
	if err != nil {
		return nil, remote(err)
	}

	progress(ProgressGameAddress)

	if address == (ethcommon.Address{}) {
		return nil, common.RemoteCall(contracts.ErrEmptyResult)
	}

	return &Secret{
		Move:     plan.Move.String(),
		MoveCode: uint8(plan.Move),
		Salt:     secret.String(),
		Address:  address.Hex(),
		Warning:  SecretWarning,
		Hint:     SecretShareHint,
	}, nil
}

func remote(err error) error {
	if common.KindOf(err) != common.KindUnknown {
		return err
	}

	return common.RemoteCall(err)
}
