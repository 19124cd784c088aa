package dialect

import (
	"math/big"

	"wallet-txcore/pkg/address"
)

// StakingStatus is the nominator's earning status.
type StakingStatus string

const (
	StakingNotStaking  StakingStatus = "NOT_STAKING"
	StakingEarning     StakingStatus = "EARNING_REWARD"
	StakingPartialEarn StakingStatus = "PARTIALLY_EARNING"
	StakingWaiting     StakingStatus = "WAITING"
)

// PoolStateOpen is the only nomination pool state that accepts members.
const PoolStateOpen = "Open"

// ChainStakingMetadata are the chain-wide staking constants.
type ChainStakingMetadata struct {
	Chain                            string   `json:"chain"`
	MinStake                         *big.Int `json:"min_stake"`
	MinJoinNominationPool            *big.Int `json:"min_join_nomination_pool"`
	MaxValidatorPerNominator         int      `json:"max_validator_per_nominator"`
	MaxWithdrawalRequestPerValidator int      `json:"max_withdrawal_request_per_validator"`
}

// Nomination is one validator/collator the nominator backs.
type Nomination struct {
	ValidatorAddress  string   `json:"validator_address"`
	ActiveStake       *big.Int `json:"active_stake"`
	ValidatorMinStake *big.Int `json:"validator_min_stake"`
	HasUnstaking      bool     `json:"has_unstaking"`
}

// Unstaking is a pending unbond request.
type Unstaking struct {
	ValidatorAddress string   `json:"validator_address"`
	Claimable        *big.Int `json:"claimable"`
}

// NominatorMetadata is the account's current staking position on a chain.
type NominatorMetadata struct {
	Address        string        `json:"address"`
	Status         StakingStatus `json:"status"`
	ActiveStake    *big.Int      `json:"active_stake"`
	IsBondedBefore bool          `json:"is_bonded_before"`
	Nominations    []Nomination  `json:"nominations"`
	Unstakings     []Unstaking   `json:"unstakings"`
}

// FindNomination returns the nomination of validator, comparing addresses
// regardless of SS58 prefix.
func (n *NominatorMetadata) FindNomination(validator string) (*Nomination, bool) {
	if n == nil {
		return nil, false
	}
	for i := range n.Nominations {
		if address.Equal(n.Nominations[i].ValidatorAddress, validator) {
			return &n.Nominations[i], true
		}
	}
	return nil, false
}

// ValidatorInfo is a validator, collator or dapp target.
type ValidatorInfo struct {
	Address        string   `json:"address"`
	MinBond        *big.Int `json:"min_bond"`
	NominatorCount uint32   `json:"nominator_count"`
	// IsWasm marks an astar dapp contract deployed as wasm rather than evm.
	IsWasm bool `json:"is_wasm"`
}

// PoolInfo is a nomination pool.
type PoolInfo struct {
	ID    uint32 `json:"id"`
	State string `json:"state"`
}

type BondParams struct {
	Address   string
	Amount    *big.Int
	Targets   []ValidatorInfo
	Nominator *NominatorMetadata
	// BondDest is the relay reward destination, "Staked" when empty.
	BondDest string
}

type UnbondParams struct {
	Address   string
	Amount    *big.Int
	Validator string
	Nominator *NominatorMetadata
}

type WithdrawParams struct {
	Address       string
	Validator     string
	SlashingSpans uint32
	Unstaking     *Unstaking
}

type ClaimParams struct {
	Address string
	Dapps   []ValidatorInfo
}

// StakingBuilder builds native staking calls for one staking family.
type StakingBuilder interface {
	Bond(p BondParams) (*Call, error)
	Unbond(p UnbondParams) (*Call, error)
	Withdraw(p WithdrawParams) (*Call, error)
	ClaimReward(p ClaimParams) (*Call, error)
	CancelWithdrawal(p WithdrawParams) (*Call, error)
}

var builtinStakingBuilders = map[Family]StakingBuilder{
	FamilyRelay:     relayStaking{},
	FamilyPara:      paraStaking{},
	FamilyAstar:     astarStaking{},
	FamilyAmplitude: amplitudeStaking{},
}

func (r *Registry) stakingBuilder(chain string) (StakingBuilder, error) {
	family := r.FamilyOf(CategoryStaking, chain)
	r.mu.RLock()
	b, ok := r.staking[family]
	r.mu.RUnlock()
	if !ok {
		return nil, unsupported("Staking is not supported on %s", chain)
	}
	return b, nil
}

func (r *Registry) BuildBonding(chain string, p BondParams) (*Call, error) {
	b, err := r.stakingBuilder(chain)
	if err != nil {
		return nil, err
	}
	if p.Amount == nil {
		p.Amount = new(big.Int)
	}
	return b.Bond(p)
}

func (r *Registry) BuildUnbonding(chain string, p UnbondParams) (*Call, error) {
	b, err := r.stakingBuilder(chain)
	if err != nil {
		return nil, err
	}
	if p.Amount == nil {
		p.Amount = new(big.Int)
	}
	return b.Unbond(p)
}

func (r *Registry) BuildWithdrawal(chain string, p WithdrawParams) (*Call, error) {
	b, err := r.stakingBuilder(chain)
	if err != nil {
		return nil, err
	}
	return b.Withdraw(p)
}

func (r *Registry) BuildClaimReward(chain string, p ClaimParams) (*Call, error) {
	b, err := r.stakingBuilder(chain)
	if err != nil {
		return nil, err
	}
	return b.ClaimReward(p)
}

func (r *Registry) BuildCancelWithdrawal(chain string, p WithdrawParams) (*Call, error) {
	b, err := r.stakingBuilder(chain)
	if err != nil {
		return nil, err
	}
	return b.CancelWithdrawal(p)
}

// Nomination pools exist only on relay-family chains.

type PoolJoinParams struct {
	Amount    *big.Int
	PoolID    uint32
	Nominator *NominatorMetadata
}

func (r *Registry) requireRelay(chain string) error {
	if r.FamilyOf(CategoryStaking, chain) != FamilyRelay {
		return unsupported("Nomination pools are not supported on %s", chain)
	}
	return nil
}

// BuildPoolJoin joins a pool, or bonds extra free balance when already a member.
func (r *Registry) BuildPoolJoin(chain string, p PoolJoinParams) (*Call, error) {
	if err := r.requireRelay(chain); err != nil {
		return nil, err
	}
	if p.Nominator != nil && p.Nominator.ActiveStake != nil && p.Nominator.ActiveStake.Sign() > 0 {
		return NewCall("nominationPools", "bondExtra", map[string]*big.Int{"FreeBalance": p.Amount}), nil
	}
	return NewCall("nominationPools", "join", p.Amount, p.PoolID), nil
}

func (r *Registry) BuildPoolUnbond(chain, member string, amount *big.Int) (*Call, error) {
	if err := r.requireRelay(chain); err != nil {
		return nil, err
	}
	return NewCall("nominationPools", "unbond", map[string]string{"Id": member}, amount), nil
}

func (r *Registry) BuildPoolWithdraw(chain, member string, slashingSpans uint32) (*Call, error) {
	if err := r.requireRelay(chain); err != nil {
		return nil, err
	}
	return NewCall("nominationPools", "withdrawUnbonded", map[string]string{"Id": member}, slashingSpans), nil
}

// BuildPoolClaim restakes pending rewards when bondReward, otherwise pays them out.
func (r *Registry) BuildPoolClaim(chain string, bondReward bool) (*Call, error) {
	if err := r.requireRelay(chain); err != nil {
		return nil, err
	}
	if bondReward {
		return NewCall("nominationPools", "bondExtra", "Rewards"), nil
	}
	return NewCall("nominationPools", "claimPayout"), nil
}

type relayStaking struct{}

func (relayStaking) Bond(p BondParams) (*Call, error) {
	dest := p.BondDest
	if dest == "" {
		dest = "Staked"
	}
	targets := make([]string, 0, len(p.Targets))
	for _, v := range p.Targets {
		targets = append(targets, v.Address)
	}

	if p.Nominator == nil || !p.Nominator.IsBondedBefore {
		return Batch(true,
			NewCall("staking", "bond", p.Amount, dest),
			NewCall("staking", "nominate", targets),
		), nil
	}

	var calls []*Call
	if p.Amount.Sign() > 0 {
		calls = append(calls, NewCall("staking", "bondExtra", p.Amount))
	}
	if len(targets) > 0 {
		calls = append(calls, NewCall("staking", "nominate", targets))
	}
	if len(calls) == 0 {
		return nil, unsupported("Nothing to bond")
	}
	return Batch(true, calls...), nil
}

func (relayStaking) Unbond(p UnbondParams) (*Call, error) {
	unbond := NewCall("staking", "unbond", p.Amount)
	if p.Nominator != nil && p.Nominator.ActiveStake != nil && p.Amount.Cmp(p.Nominator.ActiveStake) == 0 {
		return Batch(true, NewCall("staking", "chill"), unbond), nil
	}
	return unbond, nil
}

func (relayStaking) Withdraw(p WithdrawParams) (*Call, error) {
	return NewCall("staking", "withdrawUnbonded", p.SlashingSpans), nil
}

func (relayStaking) ClaimReward(ClaimParams) (*Call, error) {
	return nil, unsupported("Rewards are paid out automatically on this chain")
}

func (relayStaking) CancelWithdrawal(p WithdrawParams) (*Call, error) {
	if p.Unstaking == nil || p.Unstaking.Claimable == nil {
		return nil, unsupported("No unstaking request selected")
	}
	return NewCall("staking", "rebond", p.Unstaking.Claimable), nil
}

type paraStaking struct{}

func (paraStaking) Bond(p BondParams) (*Call, error) {
	if len(p.Targets) == 0 {
		return nil, unsupported("No collator selected")
	}
	collator := p.Targets[0]
	if _, bonded := p.Nominator.FindNomination(collator.Address); bonded {
		return NewCall("parachainStaking", "delegatorBondMore", collator.Address, p.Amount), nil
	}
	count := 0
	if p.Nominator != nil {
		count = len(p.Nominator.Nominations)
	}
	return NewCall("parachainStaking", "delegate", collator.Address, p.Amount, collator.NominatorCount, count), nil
}

func (paraStaking) Unbond(p UnbondParams) (*Call, error) {
	n, ok := p.Nominator.FindNomination(p.Validator)
	if ok && n.ActiveStake != nil && p.Amount.Cmp(n.ActiveStake) == 0 {
		return NewCall("parachainStaking", "scheduleRevokeDelegation", p.Validator), nil
	}
	return NewCall("parachainStaking", "scheduleDelegatorBondLess", p.Validator, p.Amount), nil
}

func (paraStaking) Withdraw(p WithdrawParams) (*Call, error) {
	return NewCall("parachainStaking", "executeDelegationRequest", p.Address, p.Validator), nil
}

func (paraStaking) ClaimReward(ClaimParams) (*Call, error) {
	return nil, unsupported("Rewards are paid out automatically on this chain")
}

func (paraStaking) CancelWithdrawal(p WithdrawParams) (*Call, error) {
	return NewCall("parachainStaking", "cancelDelegationRequest", p.Validator), nil
}

type astarStaking struct{}

func dappParam(v ValidatorInfo) map[string]string {
	if v.IsWasm {
		return map[string]string{"Wasm": v.Address}
	}
	return map[string]string{"Evm": v.Address}
}

func (astarStaking) Bond(p BondParams) (*Call, error) {
	if len(p.Targets) == 0 {
		return nil, unsupported("No dApp selected")
	}
	return NewCall("dappsStaking", "bondAndStake", dappParam(p.Targets[0]), p.Amount), nil
}

func (astarStaking) Unbond(p UnbondParams) (*Call, error) {
	return NewCall("dappsStaking", "unbondAndUnstake", dappParam(ValidatorInfo{Address: p.Validator}), p.Amount), nil
}

func (astarStaking) Withdraw(WithdrawParams) (*Call, error) {
	return NewCall("dappsStaking", "withdrawUnbonded"), nil
}

func (astarStaking) ClaimReward(p ClaimParams) (*Call, error) {
	if len(p.Dapps) == 0 {
		return nil, unsupported("No reward to claim")
	}
	calls := make([]*Call, 0, len(p.Dapps))
	for _, d := range p.Dapps {
		calls = append(calls, NewCall("dappsStaking", "claimStaker", dappParam(d)))
	}
	return Batch(false, calls...), nil
}

func (astarStaking) CancelWithdrawal(WithdrawParams) (*Call, error) {
	return nil, unsupported("Cancel unstaking is not supported on this chain")
}

type amplitudeStaking struct{}

func (amplitudeStaking) Bond(p BondParams) (*Call, error) {
	if len(p.Targets) == 0 {
		return nil, unsupported("No collator selected")
	}
	collator := p.Targets[0].Address
	if p.Nominator == nil || p.Nominator.Status == StakingNotStaking || len(p.Nominator.Nominations) == 0 {
		return NewCall("parachainStaking", "joinDelegators", collator, p.Amount), nil
	}
	return NewCall("parachainStaking", "delegatorStakeMore", collator, p.Amount), nil
}

func (amplitudeStaking) Unbond(p UnbondParams) (*Call, error) {
	if p.Nominator != nil && p.Nominator.ActiveStake != nil && p.Amount.Cmp(p.Nominator.ActiveStake) == 0 {
		return NewCall("parachainStaking", "leaveDelegators"), nil
	}
	return NewCall("parachainStaking", "delegatorStakeLess", p.Validator, p.Amount), nil
}

func (amplitudeStaking) Withdraw(p WithdrawParams) (*Call, error) {
	return NewCall("parachainStaking", "unlockUnstaked", p.Address), nil
}

func (amplitudeStaking) ClaimReward(ClaimParams) (*Call, error) {
	return Batch(false,
		NewCall("parachainStaking", "incrementDelegatorRewards"),
		NewCall("parachainStaking", "claimRewards"),
	), nil
}

func (amplitudeStaking) CancelWithdrawal(WithdrawParams) (*Call, error) {
	return nil, unsupported("Cancel unstaking is not supported on this chain")
}
