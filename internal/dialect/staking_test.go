package dialect

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-txcore/pkg/errno"
)

func TestRelayBonding(t *testing.T) {
	r := DefaultRegistry()
	targets := []ValidatorInfo{{Address: alice}, {Address: bob}}

	call, err := r.BuildBonding("polkadot", BondParams{Amount: big.NewInt(10), Targets: targets})
	require.NoError(t, err)
	assert.Equal(t, "utility.batchAll", call.Name())
	inner := call.Args[0].([]*Call)
	require.Len(t, inner, 2)
	assert.Equal(t, "staking.bond", inner[0].Name())
	assert.Equal(t, "Staked", inner[0].Args[1])
	assert.Equal(t, []string{alice, bob}, inner[1].Args[0])

	bonded := &NominatorMetadata{IsBondedBefore: true, ActiveStake: big.NewInt(5)}
	call, err = r.BuildBonding("kusama", BondParams{Amount: big.NewInt(10), Nominator: bonded})
	require.NoError(t, err)
	assert.Equal(t, "staking.bondExtra", call.Name())

	_, err = r.BuildBonding("kusama", BondParams{Amount: big.NewInt(0), Nominator: bonded})
	requireKind(t, err, errno.KindUnsupported)
}

func TestRelayUnbonding(t *testing.T) {
	r := DefaultRegistry()
	nominator := &NominatorMetadata{ActiveStake: big.NewInt(100)}

	call, err := r.BuildUnbonding("polkadot", UnbondParams{Amount: big.NewInt(100), Nominator: nominator})
	require.NoError(t, err)
	assert.Equal(t, "utility.batchAll", call.Name())
	assert.Equal(t, "staking.chill", call.Args[0].([]*Call)[0].Name())

	call, err = r.BuildUnbonding("polkadot", UnbondParams{Amount: big.NewInt(40), Nominator: nominator})
	require.NoError(t, err)
	assert.Equal(t, "staking.unbond", call.Name())

	call, err = r.BuildCancelWithdrawal("polkadot", WithdrawParams{Unstaking: &Unstaking{Claimable: big.NewInt(3)}})
	require.NoError(t, err)
	assert.Equal(t, "staking.rebond", call.Name())

	_, err = r.BuildClaimReward("polkadot", ClaimParams{})
	requireKind(t, err, errno.KindUnsupported)
}

func TestParaStaking(t *testing.T) {
	r := DefaultRegistry()
	collator := ValidatorInfo{Address: evmAlice, NominatorCount: 12}

	call, err := r.BuildBonding("moonbeam", BondParams{Amount: big.NewInt(1), Targets: []ValidatorInfo{collator}})
	require.NoError(t, err)
	assert.Equal(t, "parachainStaking.delegate", call.Name())
	assert.Equal(t, uint32(12), call.Args[2])
	assert.Equal(t, 0, call.Args[3])

	// address match is case-insensitive for account-based chains
	nominator := &NominatorMetadata{Nominations: []Nomination{{ValidatorAddress: "0x931715fee2d06333043d11f658c8ce934ac61d0c", ActiveStake: big.NewInt(50)}}}
	call, err = r.BuildBonding("moonbeam", BondParams{Amount: big.NewInt(1), Targets: []ValidatorInfo{collator}, Nominator: nominator})
	require.NoError(t, err)
	assert.Equal(t, "parachainStaking.delegatorBondMore", call.Name())

	call, err = r.BuildUnbonding("moonbeam", UnbondParams{Amount: big.NewInt(50), Validator: evmAlice, Nominator: nominator})
	require.NoError(t, err)
	assert.Equal(t, "parachainStaking.scheduleRevokeDelegation", call.Name())

	call, err = r.BuildUnbonding("moonbeam", UnbondParams{Amount: big.NewInt(10), Validator: evmAlice, Nominator: nominator})
	require.NoError(t, err)
	assert.Equal(t, "parachainStaking.scheduleDelegatorBondLess", call.Name())

	_, err = r.BuildBonding("moonbeam", BondParams{Amount: big.NewInt(1)})
	requireKind(t, err, errno.KindUnsupported)
}

func TestAstarAndAmplitudeStaking(t *testing.T) {
	r := DefaultRegistry()

	call, err := r.BuildBonding("astar", BondParams{Amount: big.NewInt(1), Targets: []ValidatorInfo{{Address: "XyzWasm", IsWasm: true}}})
	require.NoError(t, err)
	assert.Equal(t, "dappsStaking.bondAndStake", call.Name())
	assert.Equal(t, map[string]string{"Wasm": "XyzWasm"}, call.Args[0])

	call, err = r.BuildClaimReward("shiden", ClaimParams{Dapps: []ValidatorInfo{{Address: evmAlice}, {Address: "XyzWasm", IsWasm: true}}})
	require.NoError(t, err)
	assert.Equal(t, "utility.batch", call.Name())

	_, err = r.BuildCancelWithdrawal("astar", WithdrawParams{})
	requireKind(t, err, errno.KindUnsupported)

	call, err = r.BuildBonding("kilt", BondParams{Amount: big.NewInt(1), Targets: []ValidatorInfo{{Address: alice}}})
	require.NoError(t, err)
	assert.Equal(t, "parachainStaking.joinDelegators", call.Name())

	staking := &NominatorMetadata{Status: StakingEarning, ActiveStake: big.NewInt(9), Nominations: []Nomination{{ValidatorAddress: alice}}}
	call, err = r.BuildBonding("kilt", BondParams{Amount: big.NewInt(1), Targets: []ValidatorInfo{{Address: alice}}, Nominator: staking})
	require.NoError(t, err)
	assert.Equal(t, "parachainStaking.delegatorStakeMore", call.Name())

	call, err = r.BuildUnbonding("kilt", UnbondParams{Amount: big.NewInt(9), Nominator: staking})
	require.NoError(t, err)
	assert.Equal(t, "parachainStaking.leaveDelegators", call.Name())

	call, err = r.BuildWithdrawal("amplitude", WithdrawParams{Address: alice})
	require.NoError(t, err)
	assert.Equal(t, "parachainStaking.unlockUnstaked", call.Name())
}

func TestNominationPools(t *testing.T) {
	r := DefaultRegistry()

	call, err := r.BuildPoolJoin("polkadot", PoolJoinParams{Amount: big.NewInt(10), PoolID: 7})
	require.NoError(t, err)
	assert.Equal(t, "nominationPools.join", call.Name())
	assert.Equal(t, uint32(7), call.Args[1])

	call, err = r.BuildPoolJoin("polkadot", PoolJoinParams{Amount: big.NewInt(10), Nominator: &NominatorMetadata{ActiveStake: big.NewInt(1)}})
	require.NoError(t, err)
	assert.Equal(t, "nominationPools.bondExtra", call.Name())

	call, err = r.BuildPoolClaim("kusama", true)
	require.NoError(t, err)
	assert.Equal(t, []any{"Rewards"}, call.Args)

	_, err = r.BuildPoolJoin("moonbeam", PoolJoinParams{Amount: big.NewInt(1)})
	requireKind(t, err, errno.KindUnsupported)
	_, err = r.BuildPoolUnbond("astar", alice, big.NewInt(1))
	requireKind(t, err, errno.KindUnsupported)
}
