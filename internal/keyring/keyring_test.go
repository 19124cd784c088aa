package keyring

import (
	"crypto/ed25519"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-txcore/internal/chain"
	"wallet-txcore/pkg/address"
	"wallet-txcore/pkg/keystore"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestEVMPair(t *testing.T) {
	k := New("", keystore.LightScryptN)

	p, err := k.AddMnemonic("main", testMnemonic, "pw", chain.LedgerEVM, 0)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", p.Address())
	assert.True(t, p.IsLocked())

	got, ok := k.GetPair("0x9858effd232b4033e47d90003d41ec34ecaeda94")
	require.True(t, ok)
	assert.Same(t, p, got)

	_, err = p.Sign([]byte("hello"))
	assert.ErrorIs(t, err, ErrLocked)

	assert.Error(t, p.Unlock("wrong"))
	require.NoError(t, p.Unlock("pw"))
	assert.False(t, p.IsLocked())

	chainID := big.NewInt(1284)
	to := common.HexToAddress("0x931715FEE2d06333043d11F658C8CE934aC61D0c")
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     1,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(10),
	})
	signed, err := p.SignEVMTx(tx, chainID)
	require.NoError(t, err)
	from, err := types.Sender(types.NewLondonSigner(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, p.Address(), from.Hex())

	sig, err := p.Sign([]byte("hello"))
	require.NoError(t, err)
	assert.Len(t, sig, 65)

	p.Lock()
	assert.True(t, p.IsLocked())
}

func TestSubstratePair(t *testing.T) {
	k := New("", keystore.LightScryptN)

	p, err := k.AddMnemonic("dot", testMnemonic, "pw", chain.LedgerSubstrate, 0)
	require.NoError(t, err)
	assert.True(t, address.IsSubstrateAddress(p.Address()))

	other, err := k.AddMnemonic("dot-1", testMnemonic, "pw", chain.LedgerSubstrate, 1)
	require.NoError(t, err)
	assert.NotEqual(t, p.Address(), other.Address())

	require.NoError(t, p.Unlock("pw"))
	payload := []byte("extrinsic payload")
	sig, err := p.Sign(payload)
	require.NoError(t, err)

	_, pub, err := address.DecodeSS58(p.Address())
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(pub, payload, sig))

	_, err = p.SignEVMTx(types.NewTx(&types.LegacyTx{}), big.NewInt(1))
	assert.ErrorIs(t, err, ErrWrongLedger)
}

func TestExternalPair(t *testing.T) {
	k := New("", keystore.LightScryptN)
	p := k.AddExternal("0x931715FEE2d06333043d11F658C8CE934aC61D0c", chain.LedgerEVM, Meta{IsHardware: true, AccountIndex: 2})

	assert.True(t, p.Meta().IsExternal)
	assert.True(t, p.Meta().IsHardware)
	assert.ErrorIs(t, p.Unlock("pw"), ErrNoLocalKey)
	_, err := p.Sign(nil)
	assert.ErrorIs(t, err, ErrNoLocalKey)
}

func TestDecryptIsScoped(t *testing.T) {
	k := New("", keystore.LightScryptN)
	p, err := k.AddMnemonic("main", testMnemonic, "pw", chain.LedgerEVM, 0)
	require.NoError(t, err)

	_, err = p.Decrypt("wrong")
	assert.Error(t, err)

	keys, err := p.Decrypt("pw")
	require.NoError(t, err)
	assert.True(t, p.IsLocked())

	sig, err := keys.Sign([]byte("hello"))
	require.NoError(t, err)
	assert.Len(t, sig, 65)

	keys.Wipe()
	_, err = keys.Sign([]byte("hello"))
	assert.ErrorIs(t, err, ErrLocked)

	ext := k.AddExternal("0x931715FEE2d06333043d11F658C8CE934aC61D0c", chain.LedgerEVM, Meta{IsQR: true})
	_, err = ext.Decrypt("pw")
	assert.ErrorIs(t, err, ErrNoLocalKey)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir, keystore.LightScryptN).AddMnemonic("main", testMnemonic, "pw", chain.LedgerEVM, 0)
	require.NoError(t, err)

	k := New(dir, keystore.LightScryptN)
	require.NoError(t, k.Load())
	assert.Equal(t, []string{"0x9858EfFD232B4033E47d90003D41EC34EcaEda94"}, k.Addresses())

	p, ok := k.GetPair("0x9858EfFD232B4033E47d90003D41EC34EcaEda94")
	require.True(t, ok)
	assert.Equal(t, "main", p.Meta().Name)
	assert.NoError(t, p.Unlock("pw"))
}

func TestAddMnemonicRejectsGarbage(t *testing.T) {
	_, err := New("", keystore.LightScryptN).AddMnemonic("x", "not a mnemonic", "pw", chain.LedgerEVM, 0)
	assert.Error(t, err)
}
