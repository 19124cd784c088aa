package signer

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/keyring"
	"wallet-txcore/pkg/errno"
	"wallet-txcore/pkg/keystore"
	"wallet-txcore/pkg/monitor"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

var chainID = big.NewInt(1284)

func newTx() *types.Transaction {
	to := common.HexToAddress("0x931715FEE2d06333043d11F658C8CE934aC61D0c")
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     3,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(10),
	})
}

func requireKind(t *testing.T, err error, kind errno.Kind) {
	t.Helper()
	require.Error(t, err)
	var txErr *errno.TxError
	require.True(t, errors.As(err, &txErr), "not a TxError: %v", err)
	assert.Equal(t, kind, txErr.Kind, txErr.Message)
}

func newDispatcher() *Dispatcher {
	return NewDispatcher().WithMetrics(monitor.NewTxMetrics())
}

func TestModeForAccount(t *testing.T) {
	assert.Equal(t, ModePassword, ModeForAccount(keyring.Meta{}))
	assert.Equal(t, ModeQR, ModeForAccount(keyring.Meta{IsQR: true, IsExternal: true}))
	assert.Equal(t, ModeLedger, ModeForAccount(keyring.Meta{IsHardware: true}))
	assert.Equal(t, ModeLedgerGeneric, ModeForAccount(keyring.Meta{IsHardware: true, IsGeneric: true}))
	assert.Equal(t, ModeInjected, ModeForAccount(keyring.Meta{IsInjected: true}))
}

func TestDispatcherUnknownMode(t *testing.T) {
	d := newDispatcher()
	_, err := d.Sign(context.Background(), Request{Mode: ModeLedger})
	requireKind(t, err, errno.KindUnsupported)
}

func TestPasswordBackend(t *testing.T) {
	kr := keyring.New("", keystore.LightScryptN)
	pair, err := kr.AddMnemonic("main", testMnemonic, "pw", chain.LedgerEVM, 0)
	require.NoError(t, err)

	d := newDispatcher()
	d.Register(ModePassword, NewPasswordBackend(kr))

	_, err = d.Sign(context.Background(), Request{Mode: ModePassword, Address: "0x0000000000000000000000000000000000000001"})
	requireKind(t, err, errno.KindUnableToSign)

	_, err = d.Sign(context.Background(), Request{Mode: ModePassword, Address: pair.Address(), Payload: []byte("hi")})
	requireKind(t, err, errno.KindUnableToSign)
	assert.Contains(t, err.Error(), "account is locked")

	_, err = d.Sign(context.Background(), Request{Mode: ModePassword, Address: pair.Address(), Password: "nope", Payload: []byte("hi")})
	requireKind(t, err, errno.KindUnableToSign)

	res, err := d.Sign(context.Background(), Request{
		Mode:       ModePassword,
		Address:    pair.Address(),
		Password:   "pw",
		EVMTx:      newTx(),
		EVMChainID: chainID,
	})
	require.NoError(t, err)
	require.NotNil(t, res.SignedTx)
	from, err := types.Sender(types.NewLondonSigner(chainID), res.SignedTx)
	require.NoError(t, err)
	assert.Equal(t, pair.Address(), from.Hex())
	assert.True(t, pair.IsLocked(), "attempt-scoped unlock must relock")

	decoded := new(types.Transaction)
	require.NoError(t, decoded.UnmarshalBinary(res.Signature))
	assert.Equal(t, res.SignedTx.Hash(), decoded.Hash())

	assert.Empty(t, d.Sessions())
}

func TestPasswordBackendChecksEveryAttempt(t *testing.T) {
	kr := keyring.New("", keystore.LightScryptN)
	pair, err := kr.AddMnemonic("main", testMnemonic, "pw", chain.LedgerEVM, 0)
	require.NoError(t, err)
	b := NewPasswordBackend(kr)

	// another holder keeps the pair unlocked meanwhile
	require.NoError(t, pair.Unlock("pw"))
	defer pair.Lock()

	for _, pw := range []string{"wrong", ""} {
		_, err := b.Sign(context.Background(), nil, Request{Address: pair.Address(), Password: pw, Payload: []byte("hi")})
		requireKind(t, err, errno.KindUnableToSign)
	}

	res, err := b.Sign(context.Background(), nil, Request{Address: pair.Address(), Password: "pw", Payload: []byte("hi")})
	require.NoError(t, err)
	assert.Len(t, res.Signature, 65)
	assert.False(t, pair.IsLocked(), "an attempt must not touch the shared lock state")
}

func TestPasswordBackendConcurrentAttempts(t *testing.T) {
	kr := keyring.New("", keystore.LightScryptN)
	pair, err := kr.AddMnemonic("main", testMnemonic, "pw", chain.LedgerEVM, 0)
	require.NoError(t, err)
	b := NewPasswordBackend(kr)

	const n = 8
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
			pw := "pw"
			if i%2 == 1 {
				pw = "wrong"
			}
			_, errs[i] = b.Sign(context.Background(), nil, Request{
				Address:    pair.Address(),
				Password:   pw,
				EVMTx:      newTx(),
				EVMChainID: chainID,
			})
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		if i%2 == 0 {
			assert.NoError(t, err, "attempt %d", i)
			continue
		}
		requireKind(t, err, errno.KindUnableToSign)
	}
	assert.True(t, pair.IsLocked())
}

type fakeDevice struct {
	connected bool
	key       *ecdsa.PrivateKey
	reject    bool
	refreshed chan struct{}
	message   atomic.Bool
}

func (f *fakeDevice) Connected() bool { return f.connected }

func (f *fakeDevice) Refresh(context.Context) error {
	close(f.refreshed)
	return nil
}

func (f *fakeDevice) SignTransaction(_ context.Context, payload []byte, _, _ uint32, _ string) ([]byte, error) {
	if f.reject {
		return nil, ErrUserRejected
	}
	return crypto.Sign(payload, f.key)
}

func (f *fakeDevice) SignMessage(ctx context.Context, payload []byte, a, o uint32, addr string) ([]byte, error) {
	f.message.Store(true)
	return f.SignTransaction(ctx, crypto.Keccak256(payload), a, o, addr)
}

func TestLedgerNotConnected(t *testing.T) {
	dev := &fakeDevice{refreshed: make(chan struct{})}
	d := newDispatcher()
	d.Register(ModeLedger, NewLedgerBackend(dev, time.Second))

	_, err := d.Sign(context.Background(), Request{Mode: ModeLedger, Payload: []byte{1}})
	requireKind(t, err, errno.KindDeviceNotConnected)

	select {
	case <-dev.refreshed:
	case <-time.After(time.Second):
		t.Fatal("device refresh was not requested")
	}
}

func TestLedgerSigns(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	dev := &fakeDevice{connected: true, key: key}

	d := newDispatcher()
	d.Register(ModeLedgerGeneric, NewLedgerBackend(dev, time.Second))

	res, err := d.Sign(context.Background(), Request{Mode: ModeLedgerGeneric, EVMTx: newTx(), EVMChainID: chainID})
	require.NoError(t, err)
	from, err := types.Sender(types.LatestSignerForChainID(chainID), res.SignedTx)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), from)

	res, err = d.Sign(context.Background(), Request{Mode: ModeLedgerGeneric, Payload: []byte("msg"), Message: true})
	require.NoError(t, err)
	assert.Len(t, res.Signature, 65)
	assert.True(t, dev.message.Load())

	dev.reject = true
	_, err = d.Sign(context.Background(), Request{Mode: ModeLedgerGeneric, Payload: []byte{1}})
	requireKind(t, err, errno.KindUserRejectRequest)
}

type fakeProvider struct {
	mu      sync.Mutex
	key     *ecdsa.PrivateKey
	tx      *types.Transaction
	methods []string
	params  []any
	errCode int
}

func (f *fakeProvider) SwitchChain(_ context.Context, id *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, "wallet_switchEthereumChain:"+id.String())
	return nil
}

func (f *fakeProvider) Request(_ context.Context, method string, params []any) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, method)
	f.params = params
	if f.errCode != 0 {
		return nil, &ProviderError{Code: f.errCode, Message: "nope"}
	}
	if method == "eth_signTransaction" {
		signed, err := types.SignTx(f.tx, types.NewLondonSigner(chainID), f.key)
		if err != nil {
			return nil, err
		}
		raw, err := signed.MarshalBinary()
		if err != nil {
			return nil, err
		}
		return json.Marshal(hexutil.Encode(raw))
	}
	return json.Marshal("0x" + common.Bytes2Hex(make([]byte, 65)))
}

func TestInjectedBackend(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	tx := newTx()
	p := &fakeProvider{key: key, tx: tx}

	d := newDispatcher()
	d.Register(ModeInjected, NewInjectedBackend(p))

	from := crypto.PubkeyToAddress(key.PublicKey).Hex()
	res, err := d.Sign(context.Background(), Request{
		Mode:       ModeInjected,
		Address:    from,
		EVMTx:      tx,
		EVMChainID: chainID,
		Display:    map[string]string{"label": "Send 10 GLMR"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"wallet_switchEthereumChain:1284", "eth_signTransaction"}, p.methods)
	sent := p.params[0].(map[string]string)
	assert.Equal(t, from, sent["from"])
	assert.NotContains(t, sent, "label")
	assert.Equal(t, "0x2", sent["maxFeePerGas"])
	signer, err := types.Sender(types.NewLondonSigner(chainID), res.SignedTx)
	require.NoError(t, err)
	assert.Equal(t, from, signer.Hex())

	p.methods = nil
	res, err = d.Sign(context.Background(), Request{Mode: ModeInjected, Address: from, Payload: []byte("hello"), Message: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"personal_sign"}, p.methods)
	assert.Len(t, res.Signature, 65)

	p.errCode = CodeUserRejected
	_, err = d.Sign(context.Background(), Request{Mode: ModeInjected, Address: from, Payload: []byte("hello"), Message: true})
	requireKind(t, err, errno.KindUserRejectRequest)

	p.errCode = -32603
	_, err = d.Sign(context.Background(), Request{Mode: ModeInjected, Address: from, Payload: []byte("hello"), Message: true})
	requireKind(t, err, errno.KindUnableToSign)
}

func TestSanitizeLegacyTx(t *testing.T) {
	to := common.HexToAddress("0x931715FEE2d06333043d11F658C8CE934aC61D0c")
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, GasPrice: big.NewInt(5), Gas: 60000, To: &to, Data: []byte{0xa9}})

	out := SanitizeTx(tx, "0xabc", big.NewInt(1))
	assert.Equal(t, "0x5", out["gasPrice"])
	assert.Equal(t, "0xa9", out["data"])
	assert.Equal(t, "0x1", out["chainId"])
	assert.NotContains(t, out, "maxFeePerGas")
}

// awaitSession waits for the single live QR session to publish its envelope.
func awaitSession(t *testing.T, d *Dispatcher) SessionInfo {
	t.Helper()
	var info SessionInfo
	require.Eventually(t, func() bool {
		sessions := d.Sessions()
		if len(sessions) != 1 || sessions[0].Envelope == nil {
			return false
		}
		info = sessions[0]
		return true
	}, time.Second, 5*time.Millisecond)
	return info
}

func signAsync(d *Dispatcher, req Request) (<-chan Result, <-chan error) {
	results := make(chan Result, 1)
	errs := make(chan error, 1)
	go func() {
		res, err := d.Sign(context.Background(), req)
		results <- res
		errs <- err
	}()
	return results, errs
}

func TestQRBackendScan(t *testing.T) {
	d := newDispatcher()
	d.Register(ModeQR, NewQRBackend(time.Second))

	results, errs := signAsync(d, Request{Mode: ModeQR, Chain: "polkadot", Address: "5Grw", Payload: []byte{0xde, 0xad}})
	info := awaitSession(t, d)
	assert.Equal(t, StateAwaiting, info.State)
	assert.Equal(t, "dead", info.Envelope.Payload)

	s, ok := d.Session(info.ID)
	require.True(t, ok)
	png, err := Render(s)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	require.NoError(t, d.Scan(info.ID, []byte{1, 2, 3}, info.Envelope.Digest))
	require.NoError(t, <-errs)
	assert.Equal(t, []byte{1, 2, 3}, (<-results).Signature)
	assert.Empty(t, d.Sessions())

	assert.ErrorIs(t, d.Scan(info.ID, nil, ""), errno.ErrSessionNotFound)
}

func TestQRBackendRejections(t *testing.T) {
	d := newDispatcher()
	d.Register(ModeQR, NewQRBackend(time.Second))

	_, errs := signAsync(d, Request{Mode: ModeQR, Payload: []byte{1}})
	info := awaitSession(t, d)
	require.NoError(t, d.Scan(info.ID, []byte{9}, "bad-digest"))
	requireKind(t, <-errs, errno.KindUnableToSign)

	_, errs = signAsync(d, Request{Mode: ModeQR, Payload: []byte{1}})
	info = awaitSession(t, d)
	require.NoError(t, d.Cancel(info.ID))
	requireKind(t, <-errs, errno.KindUserRejectRequest)

	d.Register(ModeQR, NewQRBackend(20*time.Millisecond))
	_, err := d.Sign(context.Background(), Request{Mode: ModeQR, Payload: []byte{1}})
	requireKind(t, err, errno.KindUserRejectRequest)

	assert.ErrorIs(t, d.Cancel("missing"), errno.ErrSessionNotFound)
}

func TestQRBackendSignsEVMTx(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	d := newDispatcher()
	d.Register(ModeQR, NewQRBackend(time.Second))

	tx := newTx()
	results, errs := signAsync(d, Request{Mode: ModeQR, EVMTx: tx, EVMChainID: chainID})
	info := awaitSession(t, d)

	hash := types.LatestSignerForChainID(chainID).Hash(tx)
	assert.Equal(t, common.Bytes2Hex(hash.Bytes()), info.Envelope.Payload)
	sig, err := crypto.Sign(hash.Bytes(), key)
	require.NoError(t, err)
	require.NoError(t, d.Scan(info.ID, sig, info.Envelope.Digest))

	require.NoError(t, <-errs)
	res := <-results
	from, err := types.Sender(types.LatestSignerForChainID(chainID), res.SignedTx)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), from)
}
