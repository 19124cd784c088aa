// Package fee estimates transaction fees for both ledger models and keeps a
// short-lived cache of account-based fee market quotes.
package fee

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/dialect"
	"wallet-txcore/pkg/cache"
	"wallet-txcore/pkg/errno"
	"wallet-txcore/pkg/logger"
	"wallet-txcore/pkg/monitor"
)

// SubstrateAPI is the fee-query primitive of a module-based chain.
type SubstrateAPI interface {
	PaymentInfo(ctx context.Context, call *dialect.Call, address string) (*big.Int, error)
}

// EVMAPI is the subset of *ethclient.Client the estimator uses.
type EVMAPI interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Estimate is a fee in the chain's native token.
type Estimate struct {
	Symbol   string   `json:"symbol"`
	Decimals int32    `json:"decimals"`
	Value    *big.Int `json:"value"`
	TooHigh  bool     `json:"too_high"`
}

type Config struct {
	QuoteTTL        time.Duration
	FetchTimeout    time.Duration
	BusyBaseFeeGwei int64
	BusyUtilization float64
}

type Estimator struct {
	chains  *chain.Registry
	cache   cache.Cache
	cfg     Config
	group   singleflight.Group
	metrics *monitor.TxMetrics
	log     *zap.Logger
}

// NewEstimator builds an estimator; c may be nil to disable quote caching.
func NewEstimator(chains *chain.Registry, c cache.Cache, cfg Config) *Estimator {
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = 15 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	return &Estimator{
		chains:  chains,
		cache:   c,
		cfg:     cfg,
		metrics: monitor.Tx,
		log:     logger.Named("fee"),
	}
}

// WithMetrics swaps the metric set, mostly for tests.
func (e *Estimator) WithMetrics(m *monitor.TxMetrics) *Estimator {
	e.metrics = m
	return e
}

func (e *Estimator) base(slug string) Estimate {
	est := Estimate{Value: new(big.Int)}
	if native, ok := e.chains.NativeAsset(slug); ok {
		est.Symbol = native.Symbol
		est.Decimals = native.Decimals
	}
	return est
}

// Unknown is the zero estimate reported when the chain cannot be queried.
func (e *Estimator) Unknown(slug string) Estimate { return e.base(slug) }

// EstimateSubstrate asks the chain for the partial fee of call. A fee on a
// module-based chain is deterministic, so TooHigh is never set.
func (e *Estimator) EstimateSubstrate(ctx context.Context, slug string, api SubstrateAPI, call *dialect.Call, address string) (Estimate, *errno.TxError) {
	est := e.base(slug)
	fee, err := api.PaymentInfo(ctx, call, address)
	if err != nil {
		return est, e.degrade(slug, chain.LedgerSubstrate, err)
	}
	if fee != nil {
		est.Value = fee
	}
	return est, nil
}

// EstimateEVM estimates gasLimit × (maxFeePerGas or gasPrice). Gas estimation
// and the fee quote run concurrently.
func (e *Estimator) EstimateEVM(ctx context.Context, slug string, api EVMAPI, msg ethereum.CallMsg) (Estimate, *errno.TxError) {
	est := e.base(slug)

	var (
		gas   uint64
		quote *PriorityQuote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		gas, err = api.EstimateGas(gctx, msg)
		return err
	})
	g.Go(func() error {
		var err error
		quote, err = e.Quote(gctx, slug, api)
		return err
	})
	if err := g.Wait(); err != nil {
		return est, e.degrade(slug, chain.LedgerEVM, err)
	}

	perGas := quote.PerGas()
	if perGas == nil {
		perGas = new(big.Int)
	}
	est.Value = new(big.Int).Mul(new(big.Int).SetUint64(gas), perGas)
	est.TooHigh = quote.BusyNetwork
	return est, nil
}

// IsInsufficientFunds matches the node error raised when the sender cannot
// cover value plus gas.
func IsInsufficientFunds(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "gas required exceeds allowance") && strings.Contains(msg, "insufficient funds")
}

// degrade turns an estimation failure into NOT_ENOUGH_BALANCE when it is the
// insufficient funds pattern; anything else is logged and the fee stays zero.
func (e *Estimator) degrade(slug string, ledger chain.LedgerModel, err error) *errno.TxError {
	if IsInsufficientFunds(err) {
		return errno.NewTxError(errno.KindNotEnoughBalance, "")
	}
	e.metrics.FeeEstimateFailures.WithLabelValues(slug, string(ledger)).Inc()
	e.log.Warn("fee estimation failed", zap.String("chain", slug), zap.String("ledger", string(ledger)), zap.Error(err))
	return nil
}
