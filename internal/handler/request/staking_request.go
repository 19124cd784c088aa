package request

// StakingTarget 验证人, 收集人或 dapp
type StakingTarget struct {
	Address        string `json:"address" binding:"required"`
	MinBond        string `json:"min_bond"`
	NominatorCount uint32 `json:"nominator_count"`
	IsWasm         bool   `json:"is_wasm"`
}

// StakingMetadata 链上质押常量, 由调用方读取后传入
type StakingMetadata struct {
	MinStake                         string `json:"min_stake"`
	MinJoinNominationPool            string `json:"min_join_nomination_pool"`
	MaxValidatorPerNominator         int    `json:"max_validator_per_nominator"`
	MaxWithdrawalRequestPerValidator int    `json:"max_withdrawal_request_per_validator"`
}

type NominationRequest struct {
	ValidatorAddress  string `json:"validator_address" binding:"required"`
	ActiveStake       string `json:"active_stake"`
	ValidatorMinStake string `json:"validator_min_stake"`
	HasUnstaking      bool   `json:"has_unstaking"`
}

type UnstakingRequest struct {
	ValidatorAddress string `json:"validator_address"`
	Claimable        string `json:"claimable"`
}

// NominatorRequest 账户当前的质押状态
type NominatorRequest struct {
	Status         string              `json:"status"`
	ActiveStake    string              `json:"active_stake"`
	IsBondedBefore bool                `json:"is_bonded_before"`
	Nominations    []NominationRequest `json:"nominations"`
	Unstakings     []UnstakingRequest  `json:"unstakings"`
}

// StakingRequest 原生质押请求, 具体动作由路径决定
type StakingRequest struct {
	Address       string            `json:"address" binding:"required"`
	Chain         string            `json:"chain" binding:"required"`
	Value         string            `json:"value"`
	Targets       []StakingTarget   `json:"targets"`
	Validator     string            `json:"validator"`
	BondDest      string            `json:"bond_dest"`
	SlashingSpans uint32            `json:"slashing_spans"`
	PoolID        uint32            `json:"pool_id"`
	PoolState     string            `json:"pool_state"`
	BondReward    bool              `json:"bond_reward"`
	Metadata      StakingMetadata   `json:"metadata"`
	Nominator     *NominatorRequest `json:"nominator"`
	Password      string            `json:"password"`
	SkipFee       bool              `json:"skip_fee_validation"`
	Balance       *BalanceRequest   `json:"balance"`
}
