package transaction

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/chainapi"
	"wallet-txcore/internal/event"
	"wallet-txcore/internal/eventparse"
	"wallet-txcore/internal/signer"
	"wallet-txcore/internal/validation"
	"wallet-txcore/pkg/errno"
)

func evmAddress(addr string) common.Address { return common.HexToAddress(addr) }

func (m *Manager) submit(ctx context.Context, rec Record, em *Emitter) {
	if rec.Ledger == chain.LedgerEVM {
		m.submitEVM(ctx, rec, em)
		return
	}
	m.submitSubstrate(ctx, rec, em)
}

// signRequest fills the signing mode and device coordinates from the account.
func (m *Manager) signRequest(rec Record) signer.Request {
	req := signer.Request{
		SessionID: rec.ID,
		Mode:      signer.ModePassword,
		Chain:     rec.Chain,
		Ledger:    rec.Ledger,
		Address:   rec.Address,
		Password:  rec.Password,
	}
	if pair, ok := m.Pairs.GetPair(rec.Address); ok {
		meta := pair.Meta()
		req.Mode = signer.ModeForAccount(meta)
		req.AccountIndex = meta.AccountIndex
		req.AddressOffset = meta.AddressOffset
	}
	return req
}

func (m *Manager) submitEVM(ctx context.Context, rec Record, em *Emitter) {
	client, err := m.APIs.EVM(ctx, rec.Chain)
	if err != nil {
		m.fail(rec.ID, errno.NewTxError(errno.KindUnableToSend, err.Error()), em)
		return
	}
	info, _ := m.Chains.Chain(rec.Chain)
	chainID := big.NewInt(info.EVMChainID)

	tx, err := m.buildEVMTx(ctx, client, rec, chainID)
	if err != nil {
		m.fail(rec.ID, errno.NewTxError(errno.KindUnableToSend, err.Error()), em)
		return
	}
	if updated, err := m.Store.Update(rec.ID, func(r *Record) { r.Payload.EVMTx = tx }); err == nil {
		rec = updated
	}

	req := m.signRequest(rec)
	req.EVMTx = tx
	req.EVMChainID = chainID
	res, err := m.Signer.Sign(ctx, req)
	if err != nil {
		m.reject(rec, err, em)
		return
	}

	if err := client.SendTransaction(ctx, res.SignedTx); err != nil {
		m.fail(rec.ID, errno.NewTxError(errno.KindUnableToSend, err.Error()), em)
		return
	}
	hash := res.SignedTx.Hash()
	m.broadcast(rec.ID, hash.Hex(), em)

	receipt, err := m.waitReceipt(ctx, client, hash)
	if err != nil {
		// manager shutting down; the record stays PROCESSING
		m.log.Warn("stopped watching transaction", zap.String("id", rec.ID), zap.Error(err))
		return
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		m.fail(rec.ID, errno.NewTxError(errno.KindSendTransactionFailed, "Transaction reverted"), em)
		return
	}
	m.succeed(rec.ID, m.paidFee(rec.Chain, receipt), em)
}

func (m *Manager) buildEVMTx(ctx context.Context, client chainapi.EVMClient, rec Record, chainID *big.Int) (*types.Transaction, error) {
	call := rec.Payload.EVM
	from := evmAddress(rec.Address)

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, err
	}
	gas, err := client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &call.To, Value: call.Value, Data: call.Data})
	if err != nil {
		return nil, err
	}
	quote, err := m.Fees.Quote(ctx, rec.Chain, client)
	if err != nil {
		return nil, err
	}

	to := call.To
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	if quote.IsDynamic() {
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: quote.MaxPriorityFeePerGas,
			GasFeeCap: quote.MaxFeePerGas,
			Gas:       gas,
			To:        &to,
			Value:     value,
			Data:      call.Data,
		}), nil
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: quote.GasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     call.Data,
	}), nil
}

func (m *Manager) waitReceipt(ctx context.Context, client chainapi.EVMClient, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(m.cfg.ReceiptPollEvery)
	defer ticker.Stop()
	for {
		receipt, err := client.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			m.log.Debug("receipt query failed", zap.String("hash", hash.Hex()), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// paidFee is gasUsed × effectiveGasPrice in the native token.
func (m *Manager) paidFee(slug string, receipt *types.Receipt) *eventparse.Result {
	est := m.Fees.Unknown(slug)
	res := &eventparse.Result{Fee: eventparse.Value{Value: "0", Symbol: est.Symbol, Decimals: est.Decimals}}
	if receipt.EffectiveGasPrice != nil {
		paid := new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), receipt.EffectiveGasPrice)
		res.Fee.Value = paid.String()
	}
	return res
}

// signOutcome remembers whether the signing callback was refused.
type signOutcome struct {
	mu  sync.Mutex
	err error
}

func (s *signOutcome) set(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *signOutcome) get() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (m *Manager) submitSubstrate(ctx context.Context, rec Record, em *Emitter) {
	api, err := m.APIs.Substrate(rec.Chain)
	if err != nil {
		m.fail(rec.ID, errno.NewTxError(errno.KindUnableToSend, err.Error()), em)
		return
	}

	req := m.signRequest(rec)
	var outcome signOutcome
	sign := func(ctx context.Context, payload []byte) ([]byte, error) {
		r := req
		r.Payload = payload
		res, err := m.Signer.Sign(ctx, r)
		if err != nil {
			outcome.set(err)
			return nil, err
		}
		return res.Signature, nil
	}

	stream, err := api.SignAndSend(ctx, rec.Payload.Call, rec.Address, sign)
	if err != nil {
		if signErr := outcome.get(); signErr != nil {
			m.reject(rec, signErr, em)
			return
		}
		m.fail(rec.ID, errno.NewTxError(errno.KindUnableToSend, err.Error()), em)
		return
	}

	hashed := false
	for {
		var st chainapi.SubmitStatus
		var ok bool
		select {
		case st, ok = <-stream:
		case <-ctx.Done():
			m.log.Warn("stopped watching extrinsic", zap.String("id", rec.ID), zap.Error(ctx.Err()))
			return
		}
		if !ok {
			break
		}

		if st.Err != nil {
			if signErr := outcome.get(); signErr != nil && !hashed {
				m.reject(rec, signErr, em)
				return
			}
			kind := errno.KindSendTransactionFailed
			if !hashed {
				kind = errno.KindUnableToSend
			}
			m.fail(rec.ID, errno.NewTxError(kind, st.Err.Error()), em)
			return
		}
		if !hashed && st.ExtrinsicHash != "" {
			hashed = true
			m.broadcast(rec.ID, st.ExtrinsicHash, em)
		}

		switch st.Stage {
		case chainapi.StageInvalid:
			m.fail(rec.ID, errno.NewTxError(errno.KindSendTransactionFailed, "Transaction is invalid"), em)
			return
		case chainapi.StageInBlock, chainapi.StageFinalized:
			if len(st.Events) == 0 {
				continue
			}
			if eventparse.IsSuccess(st.Events) {
				m.succeed(rec.ID, m.parseResult(rec, st.Events), em)
				return
			}
			msg, _ := eventparse.ParseFailure(st.Events, api)
			m.fail(rec.ID, errno.NewTxError(errno.KindSendTransactionFailed, msg), em)
			return
		}
	}

	if signErr := outcome.get(); signErr != nil && !hashed {
		m.reject(rec, signErr, em)
		return
	}
	m.fail(rec.ID, errno.NewTxError(errno.KindSendTransactionFailed, "Transaction status stream ended"), em)
}

func (m *Manager) parseResult(rec Record, events []eventparse.Event) *eventparse.Result {
	native, _ := m.Chains.NativeAsset(rec.Chain)
	var token *chain.Asset
	if rec.Asset != "" {
		token, _ = m.Chains.Asset(rec.Asset)
	}
	res := m.Parser.ParseChain(rec.Chain, native, token, events)
	return &res
}

// broadcast marks the record PROCESSING once the chain accepted it.
func (m *Manager) broadcast(id, hash string, em *Emitter) {
	rec, err := m.Store.Update(id, func(r *Record) {
		r.Status = StatusProcessing
		r.ExtrinsicHash = hash
	})
	if err != nil {
		m.log.Error("mark processing", zap.String("id", id), zap.Error(err))
		return
	}
	m.log.Info("transaction submitted", zap.String("id", id), zap.String("hash", hash))
	em.extrinsicHash(hash, rec)
	m.publish(event.TopicTransactionSubmitted, rec)
}

func (m *Manager) succeed(id string, result *eventparse.Result, em *Emitter) {
	rec, err := m.Store.Update(id, func(r *Record) {
		r.Status = StatusSuccess
		r.Result = result
	})
	if err != nil {
		m.log.Error("mark success", zap.String("id", id), zap.Error(err))
		return
	}
	m.settled(rec)
	em.success(rec)
	m.publish(event.TopicTransactionCompleted, rec)
}

// fail marks the record FAIL. Errors without a message become internal errors.
func (m *Manager) fail(id string, txErr *errno.TxError, em *Emitter) {
	if txErr == nil || txErr.Message == "" {
		txErr = errno.NewTxError(errno.KindInternalError, "")
	}
	rec, err := m.Store.Update(id, func(r *Record) {
		r.Status = StatusFail
		r.Errors = append(r.Errors, txErr)
	})
	if err != nil {
		m.log.Error("mark failed", zap.String("id", id), zap.Error(err))
		return
	}
	m.log.Warn("transaction failed", zap.String("id", id), zap.String("kind", txErr.Kind.String()), zap.String("reason", txErr.Message))
	m.settled(rec)
	em.fail(txErr, rec)
	m.publish(event.TopicTransactionFailed, rec)
}

// reject discards a record whose signing was refused; nothing reached the chain.
func (m *Manager) reject(rec Record, err error, em *Emitter) {
	txErr := errno.Normalize(err, errno.KindUnableToSign)
	last, ok := m.Store.Remove(rec.ID)
	if !ok {
		last = rec
	}
	m.metrics.TransactionsInflight.WithLabelValues(rec.Chain).Dec()
	m.releaseGuard(rec)
	m.log.Info("transaction discarded", zap.String("id", rec.ID), zap.String("kind", txErr.Kind.String()))
	em.fail(txErr, last)
	m.publish(event.TopicTransactionRemoved, last)
}

func (m *Manager) settled(rec Record) {
	m.metrics.TransactionsInflight.WithLabelValues(rec.Chain).Dec()
	m.metrics.TransactionsTotal.WithLabelValues(rec.Chain, string(rec.Status)).Inc()
	m.releaseGuard(rec)
}

func (m *Manager) releaseGuard(rec Record) {
	if m.Guard == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.Guard.Release(ctx, rec.Chain, rec.Address)
}

func (m *Manager) publish(topic string, rec Record) {
	if m.Bus == nil {
		return
	}
	m.Bus.Publish(topic, m.toEvent(rec))
}

// toEvent flattens rec for bus subscribers and the message queue.
func (m *Manager) toEvent(rec Record) event.TransactionEvent {
	ev := event.TransactionEvent{
		ID:            rec.ID,
		Chain:         rec.Chain,
		Address:       rec.Address,
		Type:          string(rec.Type),
		Status:        string(rec.Status),
		ExtrinsicHash: rec.ExtrinsicHash,
		Error:         rec.Message(),
		External:      rec.External,
		OccurredAt:    rec.UpdatedAt,
	}
	if info, ok := m.Chains.Chain(rec.Chain); ok {
		ev.Link = info.ExplorerLink(rec.ExtrinsicHash)
	}
	if rec.Result != nil {
		ev.Amount = formatValue(rec.Result.Amount)
		ev.AmountSymbol = rec.Result.Amount.Symbol
		ev.Fee = formatValue(rec.Result.Fee)
		ev.FeeSymbol = rec.Result.Fee.Symbol
	} else if rec.Fee.Value != nil {
		ev.Fee = validation.FormatAmount(rec.Fee.Value, rec.Fee.Decimals)
		ev.FeeSymbol = rec.Fee.Symbol
	}
	return ev
}

// formatValue renders a parsed base-unit value; unparsable values pass through.
func formatValue(v eventparse.Value) string {
	n, ok := new(big.Int).SetString(v.Value, 10)
	if !ok {
		return v.Value
	}
	return validation.FormatAmount(n, v.Decimals)
}
