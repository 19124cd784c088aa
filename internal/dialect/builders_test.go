package dialect

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-txcore/internal/chain"
	"wallet-txcore/pkg/errno"
)

const (
	alice    = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	bob      = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
	evmAlice = "0x931715FEE2d06333043d11F658C8CE934aC61D0c"
)

func native(chainSlug string) *chain.Asset {
	return &chain.Asset{Slug: chainSlug + "-NATIVE", OriginChain: chainSlug, Symbol: "NAT", Decimals: 10, Type: chain.AssetNative}
}

func token(chainSlug, id string) *chain.Asset {
	return &chain.Asset{Slug: chainSlug + "-LOCAL", OriginChain: chainSlug, Symbol: "TOK", Decimals: 12, Type: chain.AssetLocal, OnChainID: id}
}

func requireKind(t *testing.T, err error, kind errno.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, errno.Normalize(err, errno.KindInternalError).Kind)
}

func TestBuildTransfer(t *testing.T) {
	r := DefaultRegistry()
	v := big.NewInt(100)

	tests := []struct {
		name  string
		chain string
		asset *chain.Asset
		all   bool
		want  string
	}{
		{"default native", "polkadot", native("polkadot"), false, "balances.transferKeepAlive"},
		{"default native all", "polkadot", native("polkadot"), true, "balances.transferAll"},
		{"acala token", "acala", token("acala", `{"Token":"AUSD"}`), false, "currencies.transfer"},
		{"acala native", "acala", native("acala"), false, "balances.transferKeepAlive"},
		{"kintsugi native all", "kintsugi", native("kintsugi"), true, "tokens.transferAll"},
		{"statemine asset", "statemint", token("statemint", "1984"), false, "assets.transfer"},
		{"pendulum token", "pendulum", token("pendulum", ""), false, "tokens.transfer"},
		{"bitcountry token", "bifrost", token("bifrost", ""), false, "currencies.transfer"},
		{"sora asset", "sora_substrate", token("sora_substrate", "0x02"), false, "assets.transfer"},
		{"psp22", "aleph", &chain.Asset{Symbol: "PSP", Type: chain.AssetPSP22, ContractAddress: "5Cxyz"}, false, "contracts.psp22::transfer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := r.BuildTransfer(tt.chain, TransferParams{Asset: tt.asset, From: alice, To: bob, Value: v, TransferAll: tt.all})
			require.NoError(t, err)
			assert.Equal(t, tt.want, call.Name())
		})
	}
}

func TestBuildTransferArgs(t *testing.T) {
	r := DefaultRegistry()

	call, err := r.BuildTransfer("acala", TransferParams{Asset: token("acala", `{"Token":"AUSD"}`), To: bob, Value: big.NewInt(5)})
	require.NoError(t, err)
	assert.Equal(t, bob, call.Args[0])
	assert.Equal(t, map[string]any{"Token": "AUSD"}, call.Args[1])

	call, err = r.BuildTransfer("statemint", TransferParams{Asset: token("statemint", "1984"), To: bob, Value: big.NewInt(5)})
	require.NoError(t, err)
	assert.Equal(t, "1984", call.Args[0])

	call, err = r.BuildTransfer("kintsugi", TransferParams{Asset: token("kintsugi", ""), To: bob, Value: big.NewInt(5)})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Token": "TOK"}, call.Args[1])
}

func TestBuildTransferUnsupported(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.BuildTransfer("genshiro", TransferParams{Asset: native("genshiro")})
	requireKind(t, err, errno.KindUnsupported)

	_, err = r.BuildTransfer("crab", TransferParams{Asset: native("crab")})
	requireKind(t, err, errno.KindUnsupported)

	_, err = r.BuildTransfer("polkadot", TransferParams{Asset: token("polkadot", "")})
	requireKind(t, err, errno.KindUnsupported)

	_, err = r.BuildTransfer("kulupu", TransferParams{Asset: native("kulupu")})
	requireKind(t, err, errno.KindUnsupported)

	_, err = r.BuildTransfer("polkadot", TransferParams{})
	requireKind(t, err, errno.KindUnsupported)
}

func TestBuildXcm(t *testing.T) {
	r := DefaultRegistry()

	// relay → system parachain teleports
	call, err := r.BuildXcm("polkadot", XcmParams{Asset: native("polkadot"), DestParaID: 1000, Recipient: bob, Value: big.NewInt(1)})
	require.NoError(t, err)
	assert.Equal(t, "xcmPallet.limitedTeleportAssets", call.Name())

	// relay → parachain reserve transfer
	call, err = r.BuildXcm("polkadot", XcmParams{Asset: native("polkadot"), DestParaID: 2004, Recipient: evmAlice, Value: big.NewInt(1)})
	require.NoError(t, err)
	assert.Equal(t, "xcmPallet.limitedReserveTransferAssets", call.Name())
	who := call.Args[1].(Location)
	assert.Equal(t, evmAlice, who.Interior[0].AccountKey20)

	// asset hub → relay teleports
	call, err = r.BuildXcm("statemint", XcmParams{Asset: token("statemint", "1984"), Recipient: bob, Value: big.NewInt(1)})
	require.NoError(t, err)
	assert.Equal(t, "polkadotXcm.limitedTeleportAssets", call.Name())

	// moonbeam uses xTokens with SelfReserve
	call, err = r.BuildXcm("moonbeam", XcmParams{Asset: native("moonbeam"), DestParaID: 2000, Recipient: bob, Value: big.NewInt(7)})
	require.NoError(t, err)
	assert.Equal(t, "xTokens.transfer", call.Name())
	assert.Equal(t, "SelfReserve", call.Args[0])
	dest := call.Args[2].(Location)
	require.Len(t, dest.Interior, 2)
	assert.Equal(t, uint32(2000), *dest.Interior[0].Parachain)
	assert.Equal(t, "0x8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48", dest.Interior[1].AccountID32)
	assert.Equal(t, map[string]uint64{"Limited": DefaultXcmWeight}, call.Args[3])

	_, err = r.BuildXcm("polkadot", XcmParams{Asset: native("polkadot"), Recipient: bob})
	requireKind(t, err, errno.KindUnsupported)

	_, err = r.BuildXcm("acala", XcmParams{Asset: native("acala"), DestParaID: 2000, Recipient: "garbage"})
	assert.Error(t, err)
}

func TestBuildEVMTransfer(t *testing.T) {
	to := "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"

	nat, err := BuildEVMTransfer(&chain.Asset{Type: chain.AssetNative}, evmAlice, to, big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(to), nat.To)
	assert.Empty(t, nat.Data)

	erc20, err := BuildEVMTransfer(&chain.Asset{Type: chain.AssetERC20, ContractAddress: evmAlice}, evmAlice, to, big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(evmAlice), erc20.To)
	assert.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, erc20.Data[:4])
	assert.Len(t, erc20.Data, 4+32+32)

	nft, err := BuildEVMTransfer(&chain.Asset{Type: chain.AssetERC721, ContractAddress: evmAlice}, evmAlice, to, big.NewInt(1))
	require.NoError(t, err)
	assert.Len(t, nft.Data, 4+32*3)

	_, err = BuildEVMTransfer(&chain.Asset{Type: chain.AssetPSP22}, evmAlice, to, big.NewInt(1))
	requireKind(t, err, errno.KindUnsupported)
}
