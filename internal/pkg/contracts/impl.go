package contracts

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

//go:embed abi/RPS.json
var rpsABIJSON string

//go:embed abi/Hasher.json
var hasherABIJSON string

var (
	RPSABI    = mustParseABI(rpsABIJSON)
	HasherABI = mustParseABI(hasherABIJSON)
)

var (
	ErrTransactionFailed = errors.New("transaction failed")
	ErrEmptyResult       = errors.New("empty call result")
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded ABI: %v", err))
	}

	return parsed
}

// Backend is what the bindings need from a provider; *ethclient.Client is one.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Transactor produces signing options for a single transaction.
type Transactor func(ctx context.Context) (*bind.TransactOpts, error)

// Game is the consumed surface of the RPS contract.
type Game interface {
	Address() common.Address

	J1(ctx context.Context) (common.Address, error)
	J2(ctx context.Context) (common.Address, error)
	C2(ctx context.Context) (Move, error)
	Stake(ctx context.Context) (*big.Int, error)
	LastAction(ctx context.Context) (int64, error)

	Play(ctx context.Context, move Move, value *big.Int) error
	Solve(ctx context.Context, move Move, salt *big.Int) error
	J1Timeout(ctx context.Context) error
	J2Timeout(ctx context.Context) error
}

// Hasher is the stateless helper that computes move commitments.
type Hasher interface {
	Address() common.Address
	Hash(ctx context.Context, move Move, salt *big.Int) (common.Hash, error)
}

type Deployer interface {
	DeployHasher(ctx context.Context) (Hasher, error)
	DeployGame(ctx context.Context, commitment common.Hash, peer common.Address, stake *big.Int) (common.Address, error)
}

type RPS struct {
	address    common.Address
	backend    Backend
	contract   *bind.BoundContract
	transactor Transactor
}

func NewRPS(address common.Address, backend Backend, transactor Transactor) *RPS {
	return &RPS{
		address:    address,
		backend:    backend,
		contract:   bind.NewBoundContract(address, RPSABI, backend, backend, backend),
		transactor: transactor,
	}
}

func (c *RPS) Address() common.Address {
	return c.address
}

func (c *RPS) J1(ctx context.Context) (common.Address, error) {
	out, err := call(ctx, c.contract, "j1")
	if err != nil {
		return common.Address{}, err
	}

	return *abi.ConvertType(out, new(common.Address)).(*common.Address), nil
}

func (c *RPS) J2(ctx context.Context) (common.Address, error) {
	out, err := call(ctx, c.contract, "j2")
	if err != nil {
		return common.Address{}, err
	}

	return *abi.ConvertType(out, new(common.Address)).(*common.Address), nil
}

func (c *RPS) C2(ctx context.Context) (Move, error) {
	out, err := call(ctx, c.contract, "c2")
	if err != nil {
		return Null, err
	}

	return Move(*abi.ConvertType(out, new(uint8)).(*uint8)), nil
}

func (c *RPS) Stake(ctx context.Context) (*big.Int, error) {
	out, err := call(ctx, c.contract, "stake")
	if err != nil {
		return nil, err
	}

	return *abi.ConvertType(out, new(*big.Int)).(**big.Int), nil
}

// LastAction returns the contract's last action time in unix seconds.
func (c *RPS) LastAction(ctx context.Context) (int64, error) {
	out, err := call(ctx, c.contract, "lastAction")
	if err != nil {
		return 0, err
	}

	return (*abi.ConvertType(out, new(*big.Int)).(**big.Int)).Int64(), nil
}

func (c *RPS) Play(ctx context.Context, move Move, value *big.Int) error {
	return transact(ctx, c.backend, c.contract, c.transactor, value, "play", uint8(move))
}

func (c *RPS) Solve(ctx context.Context, move Move, salt *big.Int) error {
	return transact(ctx, c.backend, c.contract, c.transactor, nil, "solve", uint8(move), salt)
}

func (c *RPS) J1Timeout(ctx context.Context) error {
	return transact(ctx, c.backend, c.contract, c.transactor, nil, "j1Timeout")
}

func (c *RPS) J2Timeout(ctx context.Context) error {
	return transact(ctx, c.backend, c.contract, c.transactor, nil, "j2Timeout")
}

type HasherContract struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewHasherContract(address common.Address, backend Backend) *HasherContract {
	return &HasherContract{
		address:  address,
		contract: bind.NewBoundContract(address, HasherABI, backend, backend, backend),
	}
}

func (c *HasherContract) Address() common.Address {
	return c.address
}

func (c *HasherContract) Hash(ctx context.Context, move Move, salt *big.Int) (common.Hash, error) {
	out, err := call(ctx, c.contract, "hash", uint8(move), salt)
	if err != nil {
		return common.Hash{}, err
	}

	return common.Hash(*abi.ConvertType(out, new([32]byte)).(*[32]byte)), nil
}

type ContractDeployer struct {
	backend    Backend
	transactor Transactor

	rpsBytecode    []byte
	hasherBytecode []byte
}

func NewContractDeployer(backend Backend, transactor Transactor, rps, hasher *Artifact) *ContractDeployer {
	return &ContractDeployer{
		backend:    backend,
		transactor: transactor,

		rpsBytecode:    rps.Code,
		hasherBytecode: hasher.Code,
	}
}

func (d *ContractDeployer) DeployHasher(ctx context.Context) (Hasher, error) {
	address, err := d.deploy(ctx, HasherABI, d.hasherBytecode, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy hasher: %w", err)
	}

	return NewHasherContract(address, d.backend), nil
}

func (d *ContractDeployer) DeployGame(
	ctx context.Context,
	commitment common.Hash,
	peer common.Address,
	stake *big.Int) (common.Address, error) {
	address, err := d.deploy(ctx, RPSABI, d.rpsBytecode, stake, [32]byte(commitment), peer)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to deploy game: %w", err)
	}

	return address, nil
}

func (d *ContractDeployer) deploy(
	ctx context.Context,
	definition abi.ABI,
	bytecode []byte,
	value *big.Int,
	params ...any) (common.Address, error) {
	opts, err := d.transactor(ctx)
	if err != nil {
		return common.Address{}, err
	}

	opts.Value = value

	_, tx, _, err := bind.DeployContract(opts, definition, bytecode, d.backend, params...)
	if err != nil {
		//nolint:wrapcheck
		return common.Address{}, err
	}

	address, err := bind.WaitDeployed(ctx, d.backend, tx)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to wait for %s: %w", tx.Hash().Hex(), err)
	}

	return address, nil
}

func call(ctx context.Context, contract *bind.BoundContract, method string, params ...any) (any, error) {
	var out []any

	err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyResult, method)
	}

	return out[0], nil
}

func transact(
	ctx context.Context,
	backend Backend,
	contract *bind.BoundContract,
	transactor Transactor,
	value *big.Int,
	method string,
	params ...any) error {
	opts, err := transactor(ctx)
	if err != nil {
		return err
	}

	opts.Value = value

	tx, err := contract.Transact(opts, method, params...)
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return fmt.Errorf("failed to wait for %s: %w", method, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s %s", ErrTransactionFailed, method, tx.Hash().Hex())
	}

	return nil
}

// IsRevert reports whether err is the contract refusing the call, as opposed
// to the transport or the signer failing.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrTransactionFailed) {
		return true
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}

	return strings.Contains(err.Error(), "execution reverted")
}
