package cmd

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/dialect"
	"wallet-txcore/internal/fee"
	"wallet-txcore/internal/keyring"
	"wallet-txcore/pkg/keystore"
	"wallet-txcore/pkg/wallet/types"
)

type fakeEVM struct {
	baseFee *big.Int
}

func (f *fakeEVM) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) { return 21000, nil }
func (f *fakeEVM) SuggestGasPrice(context.Context) (*big.Int, error)             { return big.NewInt(params.GWei * 5), nil }
func (f *fakeEVM) SuggestGasTipCap(context.Context) (*big.Int, error)            { return big.NewInt(params.GWei), nil }
func (f *fakeEVM) HeaderByNumber(context.Context, *big.Int) (*ethtypes.Header, error) {
	return &ethtypes.Header{BaseFee: f.baseFee, GasLimit: 30_000_000, GasUsed: 1_000_000}, nil
}
func (f *fakeEVM) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 3, nil }
func (f *fakeEVM) SendTransaction(context.Context, *ethtypes.Transaction) error   { return nil }
func (f *fakeEVM) TransactionReceipt(context.Context, common.Hash) (*ethtypes.Receipt, error) {
	return nil, ethereum.NotFound
}

func testChains(t *testing.T) *chain.Registry {
	t.Helper()
	chains, err := chain.NewRegistry([]chain.Info{
		{Slug: "ethereum", Ledger: chain.LedgerEVM, EVMChainID: 1, NativeSymbol: "ETH", NativeDecimals: 18},
	}, nil)
	require.NoError(t, err)
	return chains
}

func TestBuildUnsigned(t *testing.T) {
	chains := testChains(t)
	info, _ := chains.Chain("ethereum")
	est := fee.NewEstimator(chains, nil, fee.Config{})
	to := common.HexToAddress("0x9858EfFD232B4033E47d90003D41EC34EcaEda94")
	call := &dialect.EVMCall{To: to, Value: big.NewInt(1000)}
	from := "0x1111111111111111111111111111111111111111"

	utx, err := buildUnsigned(context.Background(), est, &fakeEVM{baseFee: big.NewInt(params.GWei * 10)}, info, from, call, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), utx.Nonce)
	assert.Equal(t, uint64(21000), utx.GasLimit)
	assert.Equal(t, "1000", utx.Amount)
	assert.Equal(t, "21000000000", utx.MaxFeePerGas)
	assert.Equal(t, "1000000000", utx.MaxPriorityFeePerGas)
	assert.Empty(t, utx.GasPrice)
	assert.Equal(t, uint32(2), utx.AccountIndex)
	assert.Equal(t, int64(1), utx.ChainID)

	// pre-London chains get a legacy gas price
	utx, err = buildUnsigned(context.Background(), fee.NewEstimator(chains, nil, fee.Config{}), &fakeEVM{}, info, from, call, 0)
	require.NoError(t, err)
	assert.Equal(t, "5000000000", utx.GasPrice)
	assert.Empty(t, utx.MaxFeePerGas)

	_, err = buildUnsigned(context.Background(), est, &fakeEVM{}, info, "nope", call, 0)
	assert.Error(t, err)
}

func TestSignUnsigned(t *testing.T) {
	mnemonic, err := keyring.GenerateMnemonic()
	require.NoError(t, err)
	kr := keyring.New("", keystore.LightScryptN)
	pair, err := kr.AddMnemonic("cold", mnemonic, "secret1", chain.LedgerEVM, 0)
	require.NoError(t, err)

	utx := &types.UnsignedTransaction{
		Chain:                "ethereum",
		From:                 pair.Address(),
		To:                   "0x9858EfFD232B4033E47d90003D41EC34EcaEda94",
		Amount:               "1000",
		Nonce:                1,
		GasLimit:             21000,
		MaxFeePerGas:         "21000000000",
		MaxPriorityFeePerGas: "1000000000",
		ChainID:              1,
	}

	_, err = signUnsigned(pair, "wrong", utx)
	require.Error(t, err)

	signed, err := signUnsigned(pair, "secret1", utx)
	require.NoError(t, err)
	tx, err := signed.Decode()
	require.NoError(t, err)
	assert.Equal(t, signed.TxHash, tx.Hash().Hex())

	sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(big.NewInt(1)), tx)
	require.NoError(t, err)
	assert.Equal(t, pair.Address(), sender.Hex())
	assert.True(t, pair.IsLocked())

	utx.From = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	_, err = signUnsigned(pair, "secret1", utx)
	assert.Error(t, err)
}

func TestEnvelopeQR(t *testing.T) {
	env, err := loadEnvelope("", "0xdeadbeef", "polkadot", "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", env.Payload)
	assert.NotEmpty(t, env.ID)

	code, err := envelopeQR(env)
	require.NoError(t, err)
	assert.NotEmpty(t, code.ToSmallString(false))

	env.Payload = "deadbeee"
	_, err = envelopeQR(env)
	assert.ErrorIs(t, err, types.ErrDigestMismatch)

	_, err = loadEnvelope("", "", "", "")
	assert.Error(t, err)
}
