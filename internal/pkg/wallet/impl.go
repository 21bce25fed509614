package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/samber/do/v2"
	"github.com/vreid/rpsls/internal/pkg/common"
	"github.com/vreid/rpsls/internal/pkg/contracts"
)

const dialTimeout = 5 * time.Second

var (
	ErrNoWallet           = errors.New("no wallet configured")
	ErrProviderNotReached = errors.New("provider not reachable")
)

type Config struct {
	RPCURL           string
	PrivateKey       string
	KeystorePath     string
	KeystorePassword string

	RPSArtifact    string
	HasherArtifact string
}

type Status struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
	ChainID   string `json:"chain_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// WalletService stands in for the browser wallet: it holds the player's key
// and the provider connection. A missing key or an unreachable provider is a
// state, not a construction failure.
type WalletService struct {
	sync.Mutex

	config Config

	key     *ecdsa.PrivateKey
	address ethcommon.Address

	client  *ethclient.Client
	chainID *big.Int

	reason error
}

func NewWalletService(i do.Injector) (*WalletService, error) {
	config := Config{
		RPCURL:           do.MustInvokeNamed[string](i, "rpc-url"),
		PrivateKey:       do.MustInvokeNamed[string](i, "private-key"),
		KeystorePath:     do.MustInvokeNamed[string](i, "keystore"),
		KeystorePassword: do.MustInvokeNamed[string](i, "keystore-password"),
		RPSArtifact:      do.MustInvokeNamed[string](i, "rps-artifact"),
		HasherArtifact:   do.MustInvokeNamed[string](i, "hasher-artifact"),
	}

	result := New(config)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	_ = result.Ensure(ctx)

	return result, nil
}

func New(config Config) *WalletService {
	result := &WalletService{
		config: config,
	}

	key, err := loadKey(config)
	if err != nil {
		result.reason = err

		return result
	}

	result.key = key
	result.address = crypto.PubkeyToAddress(key.PublicKey)

	return result
}

func loadKey(config Config) (*ecdsa.PrivateKey, error) {
	if len(config.PrivateKey) > 0 {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(config.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}

		return key, nil
	}

	if len(config.KeystorePath) > 0 {
		data, err := os.ReadFile(config.KeystorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read keystore: %w", err)
		}

		key, err := keystore.DecryptKey(data, config.KeystorePassword)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt keystore: %w", err)
		}

		return key.PrivateKey, nil
	}

	return nil, ErrNoWallet
}

// Ensure dials the provider if that hasn't happened yet.
func (s *WalletService) Ensure(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if s.key == nil {
		return common.Connectivity("Connect to your wallet to play this game", s.reason)
	}

	if s.client != nil {
		return nil
	}

	client, err := ethclient.DialContext(ctx, s.config.RPCURL)
	if err != nil {
		s.reason = fmt.Errorf("%w: %w", ErrProviderNotReached, err)

		return common.Connectivity("Wallet provider not reachable", s.reason)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()

		s.reason = fmt.Errorf("%w: %w", ErrProviderNotReached, err)

		return common.Connectivity("Wallet provider not reachable", s.reason)
	}

	s.client = client
	s.chainID = chainID
	s.reason = nil

	return nil
}

func (s *WalletService) Connected() bool {
	s.Lock()
	defer s.Unlock()

	return s.key != nil && s.client != nil
}

// Address is the account the player acts as; zero without a key.
func (s *WalletService) Address() ethcommon.Address {
	return s.address
}

func (s *WalletService) Status() Status {
	s.Lock()
	defer s.Unlock()

	status := Status{
		Connected: s.key != nil && s.client != nil,
	}

	if s.key != nil {
		status.Address = s.address.Hex()
	}

	if s.chainID != nil {
		status.ChainID = s.chainID.String()
	}

	if s.reason != nil {
		status.Reason = s.reason.Error()
	}

	return status
}

func (s *WalletService) Transactor(ctx context.Context) (*bind.TransactOpts, error) {
	err := s.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	s.Lock()
	defer s.Unlock()

	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	opts.Context = ctx

	return opts, nil
}

func (s *WalletService) Game(ctx context.Context, address ethcommon.Address) (contracts.Game, error) {
	err := s.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	s.Lock()
	defer s.Unlock()

	return contracts.NewRPS(address, s.client, s.Transactor), nil
}

func (s *WalletService) Deployer(ctx context.Context) (contracts.Deployer, error) {
	err := s.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	rps, err := contracts.LoadArtifact(s.config.RPSArtifact)
	if err != nil {
		return nil, fmt.Errorf("failed to load RPS artifact: %w", err)
	}

	hasher, err := contracts.LoadArtifact(s.config.HasherArtifact)
	if err != nil {
		return nil, fmt.Errorf("failed to load Hasher artifact: %w", err)
	}

	s.Lock()
	defer s.Unlock()

	return contracts.NewContractDeployer(s.client, s.Transactor, rps, hasher), nil
}

func (s *WalletService) Shutdown() {
	s.Lock()
	defer s.Unlock()

	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
}
