// Package chainapi holds the per-chain RPC handles the transaction core
// talks to: dialed go-ethereum clients for account-based chains and
// host-registered handles for module-based chains.
package chainapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/dialect"
	"wallet-txcore/internal/eventparse"
	"wallet-txcore/internal/fee"
	"wallet-txcore/pkg/errno"
	"wallet-txcore/pkg/logger"
)

// ErrNoConnection means no RPC handle is available for the chain.
var ErrNoConnection = errors.New("no rpc connection for chain")

// EVMClient is the subset of *ethclient.Client the core uses.
type EVMClient interface {
	fee.EVMAPI
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Stage is a module-based submission milestone.
type Stage string

const (
	StageBroadcast Stage = "broadcast"
	StageInBlock   Stage = "inBlock"
	StageFinalized Stage = "finalized"
	StageInvalid   Stage = "invalid"
)

// SubmitStatus is one update of a watched extrinsic. Events are set once the
// extrinsic is in a block.
type SubmitStatus struct {
	Stage         Stage
	ExtrinsicHash string
	BlockHash     string
	Events        []eventparse.Event
	Err           error
}

// SignFunc signs the extrinsic payload produced by the chain handle.
type SignFunc func(ctx context.Context, payload []byte) ([]byte, error)

// SubstrateClient is a module-based chain handle. SignAndSend builds the
// signing payload for call, obtains the signature through sign and streams
// status updates until the channel is closed.
type SubstrateClient interface {
	fee.SubstrateAPI
	eventparse.ErrorLookup
	SignAndSend(ctx context.Context, call *dialect.Call, address string, sign SignFunc) (<-chan SubmitStatus, error)
}

// Dialer opens an account-based client for an RPC url.
type Dialer func(ctx context.Context, url string) (EVMClient, error)

func dialEthereum(ctx context.Context, url string) (EVMClient, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type Pool struct {
	chains *chain.Registry
	dial   Dialer

	mu        sync.Mutex
	evm       map[string]EVMClient
	substrate map[string]SubstrateClient
	log       *zap.Logger
}

func NewPool(chains *chain.Registry) *Pool {
	return &Pool{
		chains:    chains,
		dial:      dialEthereum,
		evm:       make(map[string]EVMClient),
		substrate: make(map[string]SubstrateClient),
		log:       logger.Named("chainapi"),
	}
}

// WithDialer replaces the go-ethereum dialer.
func (p *Pool) WithDialer(d Dialer) *Pool {
	p.dial = d
	return p
}

// EVM returns the client of slug, dialing it on first use.
func (p *Pool) EVM(ctx context.Context, slug string) (EVMClient, error) {
	info, ok := p.chains.Chain(slug)
	if !ok {
		return nil, errno.ErrChainNotFound
	}
	if !info.IsEVM() {
		return nil, errno.TxErrorf(errno.KindUnsupported, "Chain %s is not account-based", slug)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.evm[slug]; ok {
		return c, nil
	}
	if info.RpcUrl == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoConnection, slug)
	}
	c, err := p.dial(ctx, info.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", slug, err)
	}
	p.evm[slug] = c
	p.log.Info("rpc connected", zap.String("chain", slug))
	return c, nil
}

// RegisterEVM installs an already-open client for slug.
func (p *Pool) RegisterEVM(slug string, c EVMClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evm[slug] = c
}

// Substrate returns the registered module-based handle of slug.
func (p *Pool) Substrate(slug string) (SubstrateClient, error) {
	if _, ok := p.chains.Chain(slug); !ok {
		return nil, errno.ErrChainNotFound
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.substrate[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoConnection, slug)
	}
	return c, nil
}

// RegisterSubstrate installs the module-based handle for slug.
func (p *Pool) RegisterSubstrate(slug string, c SubstrateClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.substrate[slug] = c
}

// Connected lists chains with an open handle.
func (p *Pool) Connected() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.evm)+len(p.substrate))
	for slug := range p.evm {
		out = append(out, slug)
	}
	for slug := range p.substrate {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

// Close closes every handle that can be closed.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for slug, c := range p.evm {
		if closer, ok := c.(interface{ Close() }); ok {
			closer.Close()
		}
		delete(p.evm, slug)
	}
	for slug, c := range p.substrate {
		if closer, ok := c.(interface{ Close() }); ok {
			closer.Close()
		}
		delete(p.substrate, slug)
	}
}
