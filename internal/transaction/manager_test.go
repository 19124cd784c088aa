package transaction

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/chainapi"
	"wallet-txcore/internal/dialect"
	"wallet-txcore/internal/event"
	"wallet-txcore/internal/eventparse"
	"wallet-txcore/internal/fee"
	"wallet-txcore/internal/keyring"
	"wallet-txcore/internal/signer"
	"wallet-txcore/internal/validation"
	"wallet-txcore/pkg/errno"
	"wallet-txcore/pkg/keystore"
	"wallet-txcore/pkg/monitor"
	"wallet-txcore/pkg/utils/lock"
)

type fakeSubstrate struct {
	fee      *big.Int
	statuses []chainapi.SubmitStatus
	// hold keeps the status stream open until closed
	hold chan struct{}

	feeCalls atomic.Int32
}

func (f *fakeSubstrate) PaymentInfo(context.Context, *dialect.Call, string) (*big.Int, error) {
	f.feeCalls.Add(1)
	return f.fee, nil
}

func (f *fakeSubstrate) FindMetaError(m eventparse.ModuleError) (eventparse.MetaError, bool) {
	if m.Index == 5 && m.Error == 2 {
		return eventparse.MetaError{Section: "balances", Name: "InsufficientBalance", Docs: []string{"Balance too low to send value."}}, true
	}
	return eventparse.MetaError{}, false
}

func (f *fakeSubstrate) SignAndSend(ctx context.Context, _ *dialect.Call, _ string, sign chainapi.SignFunc) (<-chan chainapi.SubmitStatus, error) {
	if _, err := sign(ctx, []byte("payload")); err != nil {
		return nil, err
	}
	ch := make(chan chainapi.SubmitStatus, len(f.statuses))
	for _, st := range f.statuses {
		ch <- st
	}
	if f.hold == nil {
		close(ch)
		return ch, nil
	}
	go func() {
		select {
		case <-f.hold:
		case <-ctx.Done():
		}
		close(ch)
	}()
	return ch, nil
}

type fakeEVM struct {
	reverted bool

	mu       sync.Mutex
	sent     *types.Transaction
	receipts int
}

func (f *fakeEVM) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) { return 21000, nil }
func (f *fakeEVM) SuggestGasPrice(context.Context) (*big.Int, error)              { return gwei(1), nil }
func (f *fakeEVM) SuggestGasTipCap(context.Context) (*big.Int, error)             { return gwei(1), nil }

func (f *fakeEVM) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: gwei(10), GasUsed: 10, GasLimit: 100}, nil
}

func (f *fakeEVM) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 7, nil }

func (f *fakeEVM) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = tx
	return nil
}

// TransactionReceipt reports the receipt from the second poll on.
func (f *fakeEVM) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts++
	if f.sent == nil || f.sent.Hash() != hash || f.receipts < 2 {
		return nil, ethereum.NotFound
	}
	status := types.ReceiptStatusSuccessful
	if f.reverted {
		status = types.ReceiptStatusFailed
	}
	return &types.Receipt{Status: status, TxHash: hash, GasUsed: 21000, EffectiveGasPrice: gwei(2)}, nil
}

func (f *fakeEVM) sentTx() *types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

type fakeAPIs struct {
	evm chainapi.EVMClient
	sub chainapi.SubstrateClient
}

func (f fakeAPIs) EVM(context.Context, string) (chainapi.EVMClient, error) {
	if f.evm == nil {
		return nil, chainapi.ErrNoConnection
	}
	return f.evm, nil
}

func (f fakeAPIs) Substrate(string) (chainapi.SubstrateClient, error) {
	if f.sub == nil {
		return nil, chainapi.ErrNoConnection
	}
	return f.sub, nil
}

type signFunc func(ctx context.Context, req signer.Request) (signer.Result, error)

func (f signFunc) Sign(ctx context.Context, req signer.Request) (signer.Result, error) { return f(ctx, req) }

func approve(context.Context, signer.Request) (signer.Result, error) {
	return signer.Result{Signature: []byte{0x01}}, nil
}

func signWith(key *ecdsa.PrivateKey) signFunc {
	return func(_ context.Context, req signer.Request) (signer.Result, error) {
		tx, err := types.SignTx(req.EVMTx, types.LatestSignerForChainID(req.EVMChainID), key)
		if err != nil {
			return signer.Result{}, err
		}
		raw, _ := tx.MarshalBinary()
		return signer.Result{Signature: raw, SignedTx: tx}, nil
	}
}

func gwei(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.GWei)) }

type harness struct {
	m       *Manager
	bus     *event.Bus
	metrics *monitor.TxMetrics
	evmKey  *ecdsa.PrivateKey
	evmFrom string
}

func newHarness(t *testing.T, apis fakeAPIs, sign Signer) *harness {
	t.Helper()
	chains, err := chain.NewRegistry([]chain.Info{
		{Slug: "ethereum", Ledger: chain.LedgerEVM, EVMChainID: 1, NativeSymbol: "ETH", NativeDecimals: 18, BlockExplorer: "https://etherscan.io/"},
		{Slug: "polkadot", Ledger: chain.LedgerSubstrate, NativeSymbol: "DOT", NativeDecimals: 10, BlockExplorer: "https://polkadot.subscan.io"},
	}, nil)
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey).Hex()

	kr := keyring.New("", keystore.LightScryptN)
	kr.AddExternal(dotAddr, chain.LedgerSubstrate, keyring.Meta{Name: "dot"})
	kr.AddExternal(from, chain.LedgerEVM, keyring.Meta{Name: "eth"})

	if sign == nil {
		sign = signWith(key)
	}
	metrics := monitor.NewTxMetrics()
	dialects := dialect.DefaultRegistry()
	bus := event.NewBus()
	m := NewManager(Deps{
		Chains:   chains,
		Dialects: dialects,
		Pairs:    kr,
		Fees:     fee.NewEstimator(chains, nil, fee.Config{}).WithMetrics(metrics),
		APIs:     apis,
		Signer:   sign,
		Parser:   eventparse.NewParser(dialects),
		Guard:    NewGuard(lock.NewMemoryLock(), time.Minute),
		Bus:      bus,
	}, Config{ReceiptPollEvery: 5 * time.Millisecond}).WithMetrics(metrics)
	t.Cleanup(m.Close)
	return &harness{m: m, bus: bus, metrics: metrics, evmKey: key, evmFrom: from}
}

func dotTransfer() Intent {
	return Intent{
		Address: dotAddr,
		Chain:   "polkadot",
		Ledger:  chain.LedgerSubstrate,
		Type:    chain.TransferBalance,
		Payload: Payload{Call: dialect.NewCall("balances", "transferKeepAlive", genericAddr, "100")},
	}
}

func (h *harness) ethTransfer() Intent {
	return Intent{
		Address: h.evmFrom,
		Chain:   "ethereum",
		Ledger:  chain.LedgerEVM,
		Type:    chain.TransferBalance,
		Payload: Payload{EVM: &dialect.EVMCall{To: common.HexToAddress(evmAddr), Value: big.NewInt(1000)}},
	}
}

func collect(t *testing.T, em *Emitter) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-em.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("transaction %s did not settle, got %d events", em.ID, len(out))
		}
	}
}

func eventTypes(evs []Event) []EventType {
	out := make([]EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

func busEvents(t *testing.T, bus *event.Bus, topic string) <-chan event.TransactionEvent {
	t.Helper()
	ch := make(chan event.TransactionEvent, 4)
	require.NoError(t, bus.Subscribe(topic, func(ev event.TransactionEvent) { ch <- ev }))
	return ch
}

func inBlock(events ...eventparse.Event) chainapi.SubmitStatus {
	return chainapi.SubmitStatus{Stage: chainapi.StageInBlock, ExtrinsicHash: "0xabc", BlockHash: "0xb1", Events: events}
}

var broadcastStatus = chainapi.SubmitStatus{Stage: chainapi.StageBroadcast, ExtrinsicHash: "0xabc"}

func TestSubstrateTransferSucceeds(t *testing.T) {
	sub := &fakeSubstrate{fee: big.NewInt(15), statuses: []chainapi.SubmitStatus{
		broadcastStatus,
		inBlock(
			eventparse.Event{Section: "balances", Method: "Withdraw", Data: []string{dotAddr, "15"}},
			eventparse.Event{Section: "balances", Method: "Transfer", Data: []string{dotAddr, genericAddr, "100"}},
			eventparse.Event{Section: "system", Method: "ExtrinsicSuccess"},
		),
	}}
	h := newHarness(t, fakeAPIs{sub: sub}, signFunc(approve))
	completed := busEvents(t, h.bus, event.TopicTransactionCompleted)

	em, err := h.m.AddTransaction(context.Background(), dotTransfer())
	require.NoError(t, err)
	evs := collect(t, em)
	require.Equal(t, []EventType{EventExtrinsicHash, EventSuccess}, eventTypes(evs))
	assert.Equal(t, "0xabc", evs[0].ExtrinsicHash)

	rec, ok := h.m.Get(em.ID)
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, rec.Status)
	require.NotNil(t, rec.Result)
	assert.Equal(t, "100", rec.Result.Amount.Value)
	assert.Equal(t, "15", rec.Result.Fee.Value)
	assert.Equal(t, "DOT", rec.Result.Fee.Symbol)
	assert.Equal(t, "https://polkadot.subscan.io/extrinsic/0xabc", h.m.Link(em.ID))

	select {
	case ev := <-completed:
		assert.Equal(t, em.ID, ev.ID)
		assert.Equal(t, "SUCCESS", ev.Status)
		assert.Equal(t, "DOT", ev.AmountSymbol)
		assert.Equal(t, "https://polkadot.subscan.io/extrinsic/0xabc", ev.Link)
	case <-time.After(time.Second):
		t.Fatal("no completion event")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.TransactionsTotal.WithLabelValues("polkadot", "SUCCESS")))
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.TransactionsInflight.WithLabelValues("polkadot")))
}

func TestSubstrateModuleError(t *testing.T) {
	sub := &fakeSubstrate{fee: big.NewInt(15), statuses: []chainapi.SubmitStatus{
		broadcastStatus,
		inBlock(eventparse.Event{
			Section:  "system",
			Method:   "ExtrinsicFailed",
			Dispatch: &eventparse.DispatchError{Module: &eventparse.ModuleError{Index: 5, Error: 2}},
		}),
	}}
	h := newHarness(t, fakeAPIs{sub: sub}, signFunc(approve))

	em, err := h.m.AddTransaction(context.Background(), dotTransfer())
	require.NoError(t, err)
	evs := collect(t, em)
	require.Equal(t, []EventType{EventExtrinsicHash, EventError}, eventTypes(evs))

	txErr := evs[1].Error
	assert.Equal(t, errno.KindSendTransactionFailed, txErr.Kind)
	assert.Equal(t, "balances.InsufficientBalance: Balance too low to send value.", txErr.Message)

	rec, _ := h.m.Get(em.ID)
	assert.Equal(t, StatusFail, rec.Status)
	assert.Equal(t, "0xabc", rec.ExtrinsicHash)
	assert.Equal(t, txErr.Message, rec.Message())
}

func TestSubstrateStreamEndsUnsettled(t *testing.T) {
	sub := &fakeSubstrate{fee: big.NewInt(15), statuses: []chainapi.SubmitStatus{broadcastStatus}}
	h := newHarness(t, fakeAPIs{sub: sub}, signFunc(approve))

	em, err := h.m.AddTransaction(context.Background(), dotTransfer())
	require.NoError(t, err)
	evs := collect(t, em)
	require.Equal(t, []EventType{EventExtrinsicHash, EventError}, eventTypes(evs))
	assert.Equal(t, errno.KindSendTransactionFailed, evs[1].Error.Kind)
}

func TestSigningRejectionRemovesRecord(t *testing.T) {
	sub := &fakeSubstrate{fee: big.NewInt(15), statuses: []chainapi.SubmitStatus{broadcastStatus}}
	var calls int
	var mu sync.Mutex
	reject := signFunc(func(context.Context, signer.Request) (signer.Result, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return signer.Result{}, errno.NewTxError(errno.KindUserRejectRequest, "")
	})
	h := newHarness(t, fakeAPIs{sub: sub}, reject)
	removed := busEvents(t, h.bus, event.TopicTransactionRemoved)

	em, err := h.m.AddTransaction(context.Background(), dotTransfer())
	require.NoError(t, err)
	evs := collect(t, em)
	require.Equal(t, []EventType{EventError}, eventTypes(evs))
	assert.Equal(t, errno.KindUserRejectRequest, evs[0].Error.Kind)

	_, ok := h.m.Get(em.ID)
	assert.False(t, ok)
	select {
	case ev := <-removed:
		assert.Equal(t, em.ID, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("no removal event")
	}

	// the account is free again
	em, err = h.m.AddTransaction(context.Background(), dotTransfer())
	require.NoError(t, err)
	collect(t, em)
	assert.Equal(t, 2, calls)
}

func TestDuplicateTransaction(t *testing.T) {
	sub := &fakeSubstrate{fee: big.NewInt(15), statuses: []chainapi.SubmitStatus{broadcastStatus}, hold: make(chan struct{})}
	h := newHarness(t, fakeAPIs{sub: sub}, signFunc(approve))

	res := h.m.HandleTransaction(context.Background(), dotTransfer())
	require.Nil(t, res.TxError)
	assert.Equal(t, "0xabc", res.ExtrinsicHash)
	require.NotNil(t, res.Fee)
	assert.Equal(t, "15", res.Fee.Value.String())

	_, err := h.m.AddTransaction(context.Background(), dotTransfer())
	requireKind(t, err, errno.KindDuplicateTransaction)

	dup := h.m.HandleTransaction(context.Background(), dotTransfer())
	require.NotNil(t, dup.TxError)
	assert.Equal(t, errno.KindDuplicateTransaction, dup.TxError.Kind)
	assert.Len(t, h.m.Snapshot(), 1)
	assert.Equal(t, int32(1), sub.feeCalls.Load(), "duplicates must not ask the node for a fee")

	close(sub.hold)
}

func TestConcurrentAddTransaction(t *testing.T) {
	sub := &fakeSubstrate{fee: big.NewInt(15), statuses: []chainapi.SubmitStatus{broadcastStatus}, hold: make(chan struct{})}
	h := newHarness(t, fakeAPIs{sub: sub}, signFunc(approve))
	defer close(sub.hold)

	const n = 16
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = h.m.AddTransaction(context.Background(), dotTransfer())
		}(i)
	}
	close(start)
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		requireKind(t, err, errno.KindDuplicateTransaction)
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, h.m.Snapshot(), 1)
}

func TestValidationFailures(t *testing.T) {
	h := newHarness(t, fakeAPIs{sub: &fakeSubstrate{fee: big.NewInt(1)}}, signFunc(approve))

	tests := []struct {
		name   string
		modify func(*Intent)
		kind   errno.Kind
		msg    string
	}{
		{"unknown chain", func(in *Intent) { in.Chain = "moonriver" }, errno.KindInvalidParams, "Not found chain moonriver"},
		{"ledger mismatch", func(in *Intent) { in.Ledger = chain.LedgerEVM }, errno.KindInvalidParams, "Chain polkadot is not a evm chain"},
		{"missing payload", func(in *Intent) { in.Payload = Payload{} }, errno.KindInvalidParams, "Transaction payload is required"},
		{"bad address", func(in *Intent) { in.Address = "alice" }, errno.KindInvalidParams, "Address is not a valid address"},
		{"unknown account", func(in *Intent) { in.Address = evmAddr }, errno.KindInternalError, "Unable to find account"},
		{"nft on substrate", func(in *Intent) { in.Type = chain.SendNFT }, errno.KindUnsupported, "This feature is not yet available for this NFT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := dotTransfer()
			tt.modify(&in)
			res := h.m.HandleTransaction(context.Background(), in)
			assert.Empty(t, res.ID)
			require.NotEmpty(t, res.Errors)
			assert.Equal(t, tt.kind, res.Errors[0].Kind)
			assert.Equal(t, tt.msg, res.Errors[0].Message)
		})
	}
	assert.Empty(t, h.m.Snapshot())
}

func TestExtraValidatorBlocks(t *testing.T) {
	h := newHarness(t, fakeAPIs{sub: &fakeSubstrate{fee: big.NewInt(1)}}, signFunc(approve))
	in := dotTransfer()
	in.Validators = []ExtraValidator{func(context.Context, *Record) (res validation.Result) {
		res.AddError(errno.KindNotEnoughBalance, "")
		return res
	}}

	_, err := h.m.AddTransaction(context.Background(), in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	requireKind(t, err, errno.KindNotEnoughBalance)
	assert.Empty(t, h.m.Snapshot())
}

func TestEVMTransferSucceeds(t *testing.T) {
	client := &fakeEVM{}
	h := newHarness(t, fakeAPIs{evm: client}, nil)

	em, err := h.m.AddTransaction(context.Background(), h.ethTransfer())
	require.NoError(t, err)
	evs := collect(t, em)
	require.Equal(t, []EventType{EventExtrinsicHash, EventSuccess}, eventTypes(evs))

	sent := client.sentTx()
	require.NotNil(t, sent)
	assert.Equal(t, uint8(types.DynamicFeeTxType), sent.Type())
	assert.Equal(t, uint64(7), sent.Nonce())
	assert.Equal(t, uint64(21000), sent.Gas())
	assert.Equal(t, big.NewInt(1), sent.ChainId())
	assert.Equal(t, gwei(1), sent.GasTipCap())
	assert.Equal(t, gwei(21), sent.GasFeeCap())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), sent)
	require.NoError(t, err)
	assert.Equal(t, h.evmFrom, sender.Hex())

	rec, _ := h.m.Get(em.ID)
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Equal(t, sent.Hash().Hex(), rec.ExtrinsicHash)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(21000), gwei(2)).String(), rec.Result.Fee.Value)
	assert.Equal(t, "https://etherscan.io/tx/"+sent.Hash().Hex(), h.m.Link(em.ID))
}

func TestEVMRevert(t *testing.T) {
	client := &fakeEVM{reverted: true}
	h := newHarness(t, fakeAPIs{evm: client}, nil)

	em, err := h.m.AddTransaction(context.Background(), h.ethTransfer())
	require.NoError(t, err)
	evs := collect(t, em)
	require.Len(t, evs, 2)
	assert.Equal(t, errno.KindSendTransactionFailed, evs[1].Error.Kind)
	assert.Equal(t, "Transaction reverted", evs[1].Error.Message)
}

func TestEVMWithoutConnectionFails(t *testing.T) {
	h := newHarness(t, fakeAPIs{}, nil)

	// the fee stays unknown but the transaction is still accepted
	res := h.m.HandleTransaction(context.Background(), h.ethTransfer())
	require.NotNil(t, res.TxError)
	assert.Equal(t, errno.KindUnableToSend, res.TxError.Kind)
	require.NotNil(t, res.Fee)
	assert.Equal(t, "ETH", res.Fee.Symbol)
	assert.Zero(t, res.Fee.Value.Sign())
}

func TestStatusesOnlyMoveForward(t *testing.T) {
	sub := &fakeSubstrate{fee: big.NewInt(15), statuses: []chainapi.SubmitStatus{
		broadcastStatus,
		{Stage: chainapi.StageInBlock, ExtrinsicHash: "0xabc"},
		inBlock(eventparse.Event{Section: "system", Method: "ExtrinsicSuccess"}),
	}}
	h := newHarness(t, fakeAPIs{sub: sub}, signFunc(approve))

	snaps, cancel := h.m.Subscribe()
	var seen []Status
	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range snaps {
			for _, r := range snap {
				seen = append(seen, r.Status)
			}
		}
	}()

	em, err := h.m.AddTransaction(context.Background(), dotTransfer())
	require.NoError(t, err)
	collect(t, em)
	cancel()
	<-done

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.True(t, CanTransition(seen[i-1], seen[i]), "%s -> %s", seen[i-1], seen[i])
	}
	assert.Equal(t, StatusSuccess, seen[len(seen)-1])
}
