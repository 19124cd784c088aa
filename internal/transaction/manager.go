// Package transaction owns the transaction registry and drives each
// transaction through validation, signing, broadcast and settlement.
package transaction

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/chainapi"
	"wallet-txcore/internal/dialect"
	"wallet-txcore/internal/event"
	"wallet-txcore/internal/eventparse"
	"wallet-txcore/internal/fee"
	"wallet-txcore/internal/signer"
	"wallet-txcore/internal/validation"
	"wallet-txcore/pkg/errno"
	"wallet-txcore/pkg/logger"
	"wallet-txcore/pkg/monitor"
	"wallet-txcore/pkg/validator"
)

// APIs resolves chain handles. *chainapi.Pool satisfies it.
type APIs interface {
	EVM(ctx context.Context, slug string) (chainapi.EVMClient, error)
	Substrate(slug string) (chainapi.SubstrateClient, error)
}

// Signer obtains signatures. *signer.Dispatcher satisfies it.
type Signer interface {
	Sign(ctx context.Context, req signer.Request) (signer.Result, error)
}

// Deps are the collaborators of a Manager. Guard and Bus are optional.
type Deps struct {
	Chains   *chain.Registry
	Dialects *dialect.Registry
	Pairs    validation.PairLookup
	Fees     *fee.Estimator
	APIs     APIs
	Signer   Signer
	Parser   *eventparse.Parser
	Store    *Store
	Guard    *Guard
	Bus      *event.Bus
}

type Config struct {
	EDAsWarning      bool
	ReceiptPollEvery time.Duration
}

// ValidationError carries every blocking error found before registration.
// It unwraps to the first one.
type ValidationError struct {
	Result validation.Result
}

func (e *ValidationError) Error() string {
	if err := e.Result.Err(); err != nil {
		return err.Error()
	}
	return "validation failed"
}

func (e *ValidationError) Unwrap() error { return e.Result.Err() }

type Manager struct {
	Deps
	cfg     Config
	metrics *monitor.TxMetrics
	log     *zap.Logger

	// submissions outlive the request that started them
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(deps Deps, cfg Config) *Manager {
	if deps.Store == nil {
		deps.Store = NewStore()
	}
	if cfg.ReceiptPollEvery <= 0 {
		cfg.ReceiptPollEvery = 3 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		Deps:    deps,
		cfg:     cfg,
		metrics: monitor.Tx,
		log:     logger.Named("transaction"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// WithMetrics swaps the metric set, mostly for tests.
func (m *Manager) WithMetrics(mt *monitor.TxMetrics) *Manager {
	m.metrics = mt
	return m
}

// Close stops watching submissions and waits for their goroutines.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

// Validate runs every pre-registration check and returns the record that
// would be registered.
func (m *Manager) Validate(ctx context.Context, in Intent) (Record, validation.Result) {
	rec := Record{Intent: in, ID: NewRecordID(in), Status: StatusPending}
	var res validation.Result

	if err := validator.Struct(in); err != nil {
		res.AddError(errno.KindInvalidParams, validator.GetErrorMsg(err))
		return m.finishValidation(rec, res)
	}
	info, ok := m.Chains.Chain(in.Chain)
	if !ok {
		res.AddError(errno.KindInvalidParams, "Not found chain "+in.Chain)
		return m.finishValidation(rec, res)
	}
	rec.Fee = m.Fees.Unknown(in.Chain)
	switch {
	case info.Ledger != in.Ledger:
		res.AddError(errno.KindInvalidParams, "Chain "+in.Chain+" is not a "+string(in.Ledger)+" chain")
	case !in.Type.Valid():
		res.AddError(errno.KindInvalidParams, "Unknown transaction type "+string(in.Type))
	case in.Ledger == chain.LedgerEVM && in.Payload.EVM == nil,
		in.Ledger == chain.LedgerSubstrate && in.Payload.Call == nil:
		res.AddError(errno.KindInvalidParams, "Transaction payload is required")
	}
	if res.HasErrors() {
		return m.finishValidation(rec, res)
	}

	res.Merge(validation.CheckSigningAccount(m.Pairs, in.Address))
	res.Merge(validation.CheckSupport(in.Type, info, m.Dialects))
	if res.HasErrors() {
		return m.finishValidation(rec, res)
	}

	estimate, known, txErr := m.estimate(ctx, rec)
	rec.Fee = estimate
	if txErr != nil {
		res.Errors = append(res.Errors, txErr)
	}

	if in.Balance != nil && txErr == nil {
		check := validation.FeeCheck{
			Chain:        in.Chain,
			Type:         in.Type,
			Available:    in.Balance.Available,
			NativeAmount: in.Balance.NativeAmount,
			TransferAll:  in.TransferAll,
			SkipFee:      in.SkipFeeValidation,
			EDAsWarning:  m.cfg.EDAsWarning,
			Account:      in.Balance.Account,
		}
		if known {
			check.Fee = estimate.Value
		}
		if native, ok := m.Chains.NativeAsset(in.Chain); ok {
			check.NativeMin = native.Min()
		}
		res.Merge(validation.CheckBalanceWithFee(check, m.Dialects))
	}

	for _, extra := range in.Validators {
		res.Merge(extra(ctx, &rec))
	}
	return m.finishValidation(rec, res)
}

func (m *Manager) finishValidation(rec Record, res validation.Result) (Record, validation.Result) {
	rec.Errors = append(rec.Errors, res.Errors...)
	rec.Warnings = append(rec.Warnings, res.Warnings...)
	return rec, res
}

// estimate quotes the fee. known is false when the chain could not be asked.
func (m *Manager) estimate(ctx context.Context, rec Record) (fee.Estimate, bool, *errno.TxError) {
	switch rec.Ledger {
	case chain.LedgerEVM:
		api, err := m.APIs.EVM(ctx, rec.Chain)
		if err != nil {
			m.log.Warn("fee estimation skipped", zap.String("chain", rec.Chain), zap.Error(err))
			return m.Fees.Unknown(rec.Chain), false, nil
		}
		call := rec.Payload.EVM
		est, txErr := m.Fees.EstimateEVM(ctx, rec.Chain, api, ethereum.CallMsg{
			From:  evmAddress(rec.Address),
			To:    &call.To,
			Value: call.Value,
			Data:  call.Data,
		})
		return est, true, txErr
	default:
		api, err := m.APIs.Substrate(rec.Chain)
		if err != nil {
			m.log.Warn("fee estimation skipped", zap.String("chain", rec.Chain), zap.Error(err))
			return m.Fees.Unknown(rec.Chain), false, nil
		}
		est, txErr := m.Fees.EstimateSubstrate(ctx, rec.Chain, api, rec.Payload.Call, rec.Address)
		return est, true, txErr
	}
}

// AddTransaction validates and registers the intent, then submits it in the
// background. Validation failures return a *ValidationError and nothing is
// registered; a concurrent in-flight transaction of the same account on the
// same chain yields DUPLICATE_TRANSACTION.
func (m *Manager) AddTransaction(ctx context.Context, in Intent) (*Emitter, error) {
	// 先做便宜的重复检查, 避免白白请求手续费
	if m.Store.InFlight(in.Chain, in.Address) {
		return nil, errno.NewTxError(errno.KindDuplicateTransaction, "")
	}

	rec, res := m.Validate(ctx, in)
	if res.HasErrors() {
		return nil, &ValidationError{Result: res}
	}

	if m.Guard != nil {
		if err := m.Guard.Acquire(ctx, rec.Chain, rec.Address); err != nil {
			return nil, err
		}
	}
	if err := m.Store.Insert(rec); err != nil {
		if m.Guard != nil {
			m.Guard.Release(ctx, rec.Chain, rec.Address)
		}
		return nil, err
	}
	rec, _ = m.Store.Get(rec.ID)
	m.metrics.TransactionsInflight.WithLabelValues(rec.Chain).Inc()
	m.log.Info("transaction registered",
		zap.String("id", rec.ID),
		zap.String("chain", rec.Chain),
		zap.String("type", string(rec.Type)))

	em := newEmitter(rec.ID)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.submit(m.ctx, rec, em)
	}()
	return em, nil
}

// HandleResult is the awaited outcome of HandleTransaction.
type HandleResult struct {
	ID            string             `json:"id,omitempty"`
	ExtrinsicHash string             `json:"extrinsic_hash,omitempty"`
	TxError       *errno.TxError     `json:"tx_error,omitempty"`
	Errors        []*errno.TxError   `json:"errors,omitempty"`
	Warnings      []*errno.TxWarning `json:"warnings,omitempty"`
	Fee           *fee.Estimate      `json:"fee,omitempty"`
}

// HandleTransaction adds the intent and waits until its hash is known or it
// fails, whichever comes first. The transaction keeps progressing afterwards.
func (m *Manager) HandleTransaction(ctx context.Context, in Intent) HandleResult {
	em, err := m.AddTransaction(ctx, in)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return HandleResult{Errors: verr.Result.Errors, Warnings: verr.Result.Warnings}
		}
		return HandleResult{TxError: errno.Normalize(err, errno.KindInternalError)}
	}

	out := HandleResult{ID: em.ID}
	if rec, ok := m.Store.Get(em.ID); ok {
		out.Warnings = rec.Warnings
		est := rec.Fee
		out.Fee = &est
	}
	select {
	case ev, ok := <-em.Events():
		if !ok {
			out.TxError = errno.NewTxError(errno.KindInternalError, "")
			return out
		}
		out.ExtrinsicHash = ev.ExtrinsicHash
		if ev.Type == EventError {
			out.TxError = ev.Error
		}
	case <-ctx.Done():
		out.TxError = errno.NewTxError(errno.KindInternalError, "Stopped waiting for transaction: "+ctx.Err().Error())
	}
	return out
}

// Link returns the explorer URL of a transaction, or "" when the hash or
// the chain's explorer is unknown.
func (m *Manager) Link(id string) string {
	rec, ok := m.Store.Get(id)
	if !ok {
		return ""
	}
	info, ok := m.Chains.Chain(rec.Chain)
	if !ok {
		return ""
	}
	return info.ExplorerLink(rec.ExtrinsicHash)
}

// Get returns a copy of one record.
func (m *Manager) Get(id string) (Record, bool) { return m.Store.Get(id) }

// Snapshot returns copies of all records, oldest first.
func (m *Manager) Snapshot() []Record { return m.Store.Snapshot() }

// Subscribe streams registry snapshots.
func (m *Manager) Subscribe() (<-chan []Record, func()) { return m.Store.Subscribe() }
