package chain

// ExtrinsicType classifies what a transaction does. It drives which economic
// rules apply and how the result is parsed.
type ExtrinsicType string

const (
	TransferBalance      ExtrinsicType = "TRANSFER_BALANCE"
	TransferToken        ExtrinsicType = "TRANSFER_TOKEN"
	TransferXcm          ExtrinsicType = "TRANSFER_XCM"
	SendNFT              ExtrinsicType = "SEND_NFT"
	StakingBond          ExtrinsicType = "STAKING_BOND"
	StakingUnbond        ExtrinsicType = "STAKING_UNBOND"
	StakingWithdraw      ExtrinsicType = "STAKING_WITHDRAW"
	StakingClaimReward   ExtrinsicType = "STAKING_CLAIM_REWARD"
	StakingCancelUnstake ExtrinsicType = "STAKING_CANCEL_UNSTAKE"
	StakingJoinPool      ExtrinsicType = "STAKING_JOIN_POOL"
	StakingLeavePool     ExtrinsicType = "STAKING_LEAVE_POOL"
	StakingPoolWithdraw  ExtrinsicType = "STAKING_POOL_WITHDRAW"
	EVMExecute           ExtrinsicType = "EVM_EXECUTE"
	UnknownExtrinsic     ExtrinsicType = "UNKNOWN"
)

var extrinsicTypes = map[ExtrinsicType]struct{}{
	TransferBalance: {}, TransferToken: {}, TransferXcm: {}, SendNFT: {},
	StakingBond: {}, StakingUnbond: {}, StakingWithdraw: {}, StakingClaimReward: {},
	StakingCancelUnstake: {}, StakingJoinPool: {}, StakingLeavePool: {}, StakingPoolWithdraw: {},
	EVMExecute: {}, UnknownExtrinsic: {},
}

// Valid reports whether t is a known extrinsic type.
func (t ExtrinsicType) Valid() bool {
	_, ok := extrinsicTypes[t]
	return ok
}

// IsTransfer reports whether t moves tokens between accounts on one chain.
func (t ExtrinsicType) IsTransfer() bool {
	return t == TransferBalance || t == TransferToken || t == SendNFT
}
