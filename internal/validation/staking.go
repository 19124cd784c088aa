package validation

import (
	"fmt"
	"math/big"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/dialect"
	"wallet-txcore/pkg/errno"
)

func minStakeMessage(info *chain.Info, minStake *big.Int) string {
	return fmt.Sprintf("Insufficient stake. You need to stake at least %s %s",
		FormatAmount(minStake, info.NativeDecimals), info.NativeSymbol)
}

func maxValidatorMessage(limit int) string {
	return fmt.Sprintf("You cannot select more than %d validators", limit)
}

const existUnstakeMessage = "You have a pending unstake request. Withdraw or cancel it before staking again"

func maxBig(a, b *big.Int) *big.Int {
	if bigOrZero(a).Cmp(bigOrZero(b)) >= 0 {
		return bigOrZero(a)
	}
	return bigOrZero(b)
}

func notStaking(n *dialect.NominatorMetadata) bool {
	return n == nil || n.Status == dialect.StakingNotStaking
}

// remainingStakeValid: after unbonding the stake is either gone or still at least floor.
func remainingStakeValid(remaining, floor *big.Int) bool {
	return remaining.Sign() == 0 || remaining.Cmp(floor) >= 0
}

// ValidateRelayBonding checks a nomination on a relay-family chain.
func ValidateRelayBonding(info *chain.Info, amount *big.Int, targets []dialect.ValidatorInfo,
	meta dialect.ChainStakingMetadata, nominator *dialect.NominatorMetadata) Result {
	var res Result
	total := new(big.Int).Set(bigOrZero(amount))
	minStake := bigOrZero(meta.MinStake)

	if !notStaking(nominator) {
		total.Add(total, bigOrZero(nominator.ActiveStake))
	}
	if total.Cmp(minStake) < 0 {
		res.AddError(errno.KindNotEnoughMinStake, minStakeMessage(info, minStake))
	}
	if len(targets) > meta.MaxValidatorPerNominator {
		res.AddError(errno.KindExceedMaxNominations, maxValidatorMessage(meta.MaxValidatorPerNominator))
	}
	return res
}

// ValidatePoolBonding checks joining (or bonding more into) a nomination pool.
func ValidatePoolBonding(info *chain.Info, amount *big.Int, pool dialect.PoolInfo,
	meta dialect.ChainStakingMetadata, nominator *dialect.NominatorMetadata) Result {
	var res Result
	total := new(big.Int).Set(bigOrZero(amount))
	minStake := bigOrZero(meta.MinJoinNominationPool)

	if pool.State != dialect.PoolStateOpen {
		res.AddError(errno.KindInactiveNominationPool, "")
	}
	if nominator != nil {
		active := bigOrZero(nominator.ActiveStake)
		total.Add(total, active)
		if len(nominator.Unstakings) > 0 && active.Sign() == 0 {
			res.AddError(errno.KindExistUnstakingRequest, existUnstakeMessage)
		}
	}
	if total.Cmp(minStake) < 0 {
		res.AddError(errno.KindNotEnoughMinStake, minStakeMessage(info, minStake))
	}
	return res
}

// ValidateParaBonding checks a delegation to the first target collator.
func ValidateParaBonding(info *chain.Info, amount *big.Int, targets []dialect.ValidatorInfo,
	meta dialect.ChainStakingMetadata, nominator *dialect.NominatorMetadata) Result {
	var res Result
	if len(targets) == 0 {
		res.AddError(errno.KindInvalidParams, "No collator selected")
		return res
	}
	collator := targets[0]
	total := new(big.Int).Set(bigOrZero(amount))
	minStake := maxBig(collator.MinBond, meta.MinStake)

	if notStaking(nominator) {
		if total.Cmp(minStake) < 0 {
			res.AddError(errno.KindNotEnoughMinStake, minStakeMessage(info, minStake))
		}
		return res
	}

	current, bonded := nominator.FindNomination(collator.Address)
	if !bonded {
		if total.Cmp(minStake) < 0 {
			res.AddError(errno.KindNotEnoughMinStake, minStakeMessage(info, minStake))
		}
		if len(nominator.Nominations)+1 > meta.MaxValidatorPerNominator {
			res.AddError(errno.KindExceedMaxNominations, maxValidatorMessage(meta.MaxValidatorPerNominator))
		}
		return res
	}

	total.Add(total, bigOrZero(current.ActiveStake))
	if total.Cmp(minStake) < 0 {
		res.AddError(errno.KindNotEnoughMinStake, minStakeMessage(info, minStake))
	}
	if current.HasUnstaking {
		res.AddError(errno.KindExistUnstakingRequest, existUnstakeMessage)
	}
	return res
}

// ValidateRelayUnbonding checks the stake left behind and the unlocking queue.
// Pool members are held to the pool join minimum, direct nominators to the
// chain minimum.
func ValidateRelayUnbonding(amount *big.Int, meta dialect.ChainStakingMetadata, nominator *dialect.NominatorMetadata) Result {
	var res Result
	if nominator == nil {
		res.AddError(errno.KindInternalError, "")
		return res
	}
	remaining := new(big.Int).Sub(bigOrZero(nominator.ActiveStake), bigOrZero(amount))
	minStake := meta.MinJoinNominationPool
	if minStake == nil {
		minStake = meta.MinStake
	}
	if !remainingStakeValid(remaining, bigOrZero(minStake)) {
		res.AddError(errno.KindInvalidActiveStake, "")
	}
	if len(nominator.Unstakings) > meta.MaxWithdrawalRequestPerValidator {
		res.AddError(errno.KindExceedMaxUnstaking,
			fmt.Sprintf("You cannot unstake more than %d times", meta.MaxWithdrawalRequestPerValidator))
	}
	return res
}

// ValidateParaUnbonding checks unbonding amount from one collator.
func ValidateParaUnbonding(amount *big.Int, meta dialect.ChainStakingMetadata,
	nominator *dialect.NominatorMetadata, collator string) Result {
	var res Result
	target, ok := nominator.FindNomination(collator)
	if !ok {
		res.AddError(errno.KindInternalError, "")
		return res
	}
	remaining := new(big.Int).Sub(bigOrZero(target.ActiveStake), bigOrZero(amount))
	minStake := maxBig(target.ValidatorMinStake, meta.MinStake)

	if target.HasUnstaking {
		res.AddError(errno.KindExistUnstakingRequest, existUnstakeMessage)
	}
	if !remainingStakeValid(remaining, minStake) {
		res.AddError(errno.KindInvalidActiveStake, "")
	}
	return res
}
