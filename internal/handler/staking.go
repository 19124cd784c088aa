package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/dialect"
	"wallet-txcore/internal/handler/request"
	"wallet-txcore/internal/handler/response"
	"wallet-txcore/internal/transaction"
	"wallet-txcore/internal/validation"
	"wallet-txcore/pkg/address"
	"wallet-txcore/pkg/errno"
)

// 质押动作, 对应路径 /transactions/staking/:action
const (
	actionBond         = "bond"
	actionUnbond       = "unbond"
	actionWithdraw     = "withdraw"
	actionClaim        = "claim"
	actionCancel       = "cancel"
	actionJoinPool     = "join-pool"
	actionLeavePool    = "leave-pool"
	actionPoolWithdraw = "pool-withdraw"
	actionPoolClaim    = "pool-claim"
)

// Staking 原生质押
// @Summary 原生质押
// @Description action: bond, unbond, withdraw, claim, cancel, join-pool, leave-pool, pool-withdraw, pool-claim
// @Tags Transaction
// @Accept json
// @Produce json
// @Param action path string true "Staking action"
// @Param request body request.StakingRequest true "Staking Request"
// @Success 200 {object} response.Response
// @Router /api/v1/transactions/staking/{action} [post]
func (h *TransactionHandler) Staking(c *gin.Context) {
	var req request.StakingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	in, err := h.stakingIntent(c.Param("action"), req)
	if err != nil {
		h.reject(c, err)
		return
	}
	h.respond(c, h.mgr.HandleTransaction(c.Request.Context(), in))
}

func (h *TransactionHandler) stakingIntent(action string, req request.StakingRequest) (transaction.Intent, error) {
	info, ok := h.mgr.Chains.Chain(req.Chain)
	if !ok {
		return transaction.Intent{}, errno.ErrChainNotFound.WithMessage("Not found chain " + req.Chain)
	}
	if info.IsEVM() {
		return transaction.Intent{}, errno.ErrInvalidParams.WithMessage("Native staking is not supported on " + req.Chain)
	}
	amount, err := parseUint(req.Value, "value")
	if err != nil {
		return transaction.Intent{}, err
	}
	targets, err := parseTargets(req.Targets)
	if err != nil {
		return transaction.Intent{}, err
	}
	meta, err := parseStakingMetadata(req.Chain, req.Metadata)
	if err != nil {
		return transaction.Intent{}, err
	}
	nominator, err := parseNominator(req.Address, req.Nominator)
	if err != nil {
		return transaction.Intent{}, err
	}
	balance, err := parseBalance(req.Balance)
	if err != nil {
		return transaction.Intent{}, err
	}

	var (
		d      = h.mgr.Dialects
		relay  = d.FamilyOf(dialect.CategoryStaking, req.Chain) == dialect.FamilyRelay
		t      chain.ExtrinsicType
		call   *dialect.Call
		check  func() validation.Result
		stakes bool
	)
	withdraw := dialect.WithdrawParams{
		Address:       req.Address,
		Validator:     req.Validator,
		SlashingSpans: req.SlashingSpans,
		Unstaking:     findUnstaking(nominator, req.Validator),
	}

	switch action {
	case actionBond:
		t, stakes = chain.StakingBond, true
		call, err = d.BuildBonding(req.Chain, dialect.BondParams{
			Address:   req.Address,
			Amount:    amount,
			Targets:   targets,
			Nominator: nominator,
			BondDest:  req.BondDest,
		})
		check = func() validation.Result {
			if relay {
				return validation.ValidateRelayBonding(info, amount, targets, meta, nominator)
			}
			return validation.ValidateParaBonding(info, amount, targets, meta, nominator)
		}
	case actionUnbond:
		t = chain.StakingUnbond
		call, err = d.BuildUnbonding(req.Chain, dialect.UnbondParams{
			Address:   req.Address,
			Amount:    amount,
			Validator: req.Validator,
			Nominator: nominator,
		})
		check = func() validation.Result {
			if relay {
				return validation.ValidateRelayUnbonding(amount, meta, nominator)
			}
			return validation.ValidateParaUnbonding(amount, meta, nominator, req.Validator)
		}
	case actionWithdraw:
		t = chain.StakingWithdraw
		call, err = d.BuildWithdrawal(req.Chain, withdraw)
	case actionClaim:
		t = chain.StakingClaimReward
		call, err = d.BuildClaimReward(req.Chain, dialect.ClaimParams{Address: req.Address, Dapps: targets})
	case actionCancel:
		t = chain.StakingCancelUnstake
		call, err = d.BuildCancelWithdrawal(req.Chain, withdraw)
	case actionJoinPool:
		t, stakes = chain.StakingJoinPool, true
		call, err = d.BuildPoolJoin(req.Chain, dialect.PoolJoinParams{Amount: amount, PoolID: req.PoolID, Nominator: nominator})
		pool := dialect.PoolInfo{ID: req.PoolID, State: req.PoolState}
		check = func() validation.Result {
			return validation.ValidatePoolBonding(info, amount, pool, meta, nominator)
		}
	case actionLeavePool:
		t = chain.StakingLeavePool
		call, err = d.BuildPoolUnbond(req.Chain, req.Address, amount)
		check = func() validation.Result {
			return validation.ValidateRelayUnbonding(amount, meta, nominator)
		}
	case actionPoolWithdraw:
		t = chain.StakingPoolWithdraw
		call, err = d.BuildPoolWithdraw(req.Chain, req.Address, req.SlashingSpans)
	case actionPoolClaim:
		t = chain.StakingClaimReward
		call, err = d.BuildPoolClaim(req.Chain, req.BondReward)
	default:
		return transaction.Intent{}, errno.ErrInvalidParams.WithMessage("Unknown staking action " + action)
	}
	if err != nil {
		return transaction.Intent{}, err
	}
	// 质押会锁定原生资产
	if balance != nil && stakes {
		balance.NativeAmount = amount
	}

	in := transaction.Intent{
		Address:           req.Address,
		Chain:             req.Chain,
		Ledger:            info.Ledger,
		Type:              t,
		Data:              map[string]string{"action": action, "value": req.Value},
		Payload:           transaction.Payload{Call: call},
		SkipFeeValidation: req.SkipFee,
		Balance:           balance,
		Password:          req.Password,
	}
	if check != nil {
		in.Validators = append(in.Validators, func(context.Context, *transaction.Record) validation.Result {
			return check()
		})
	}
	return in, nil
}

func parseTargets(reqs []request.StakingTarget) ([]dialect.ValidatorInfo, error) {
	out := make([]dialect.ValidatorInfo, 0, len(reqs))
	for _, r := range reqs {
		minBond, err := parseOptionalUint(r.MinBond, "min_bond")
		if err != nil {
			return nil, err
		}
		out = append(out, dialect.ValidatorInfo{
			Address:        r.Address,
			MinBond:        minBond,
			NominatorCount: r.NominatorCount,
			IsWasm:         r.IsWasm,
		})
	}
	return out, nil
}

func parseStakingMetadata(chainSlug string, req request.StakingMetadata) (dialect.ChainStakingMetadata, error) {
	meta := dialect.ChainStakingMetadata{
		Chain:                            chainSlug,
		MaxValidatorPerNominator:         req.MaxValidatorPerNominator,
		MaxWithdrawalRequestPerValidator: req.MaxWithdrawalRequestPerValidator,
	}
	var err error
	if meta.MinStake, err = parseOptionalUint(req.MinStake, "min_stake"); err != nil {
		return meta, err
	}
	if meta.MinJoinNominationPool, err = parseOptionalUint(req.MinJoinNominationPool, "min_join_nomination_pool"); err != nil {
		return meta, err
	}
	return meta, nil
}

// parseNominator returns nil when the account has never staked.
func parseNominator(addr string, req *request.NominatorRequest) (*dialect.NominatorMetadata, error) {
	if req == nil {
		return nil, nil
	}
	active, err := parseUint(req.ActiveStake, "active_stake")
	if err != nil {
		return nil, err
	}
	n := &dialect.NominatorMetadata{
		Address:        addr,
		Status:         dialect.StakingStatus(req.Status),
		ActiveStake:    active,
		IsBondedBefore: req.IsBondedBefore,
	}
	if n.Status == "" {
		n.Status = dialect.StakingNotStaking
		if active.Sign() > 0 {
			n.Status = dialect.StakingEarning
		}
	}
	for _, r := range req.Nominations {
		stake, err := parseUint(r.ActiveStake, "nominations.active_stake")
		if err != nil {
			return nil, err
		}
		minStake, err := parseOptionalUint(r.ValidatorMinStake, "nominations.validator_min_stake")
		if err != nil {
			return nil, err
		}
		n.Nominations = append(n.Nominations, dialect.Nomination{
			ValidatorAddress:  r.ValidatorAddress,
			ActiveStake:       stake,
			ValidatorMinStake: minStake,
			HasUnstaking:      r.HasUnstaking,
		})
	}
	for _, r := range req.Unstakings {
		claimable, err := parseUint(r.Claimable, "unstakings.claimable")
		if err != nil {
			return nil, err
		}
		n.Unstakings = append(n.Unstakings, dialect.Unstaking{ValidatorAddress: r.ValidatorAddress, Claimable: claimable})
	}
	return n, nil
}

// findUnstaking picks the request of validator, or the first one when no
// validator is named.
func findUnstaking(n *dialect.NominatorMetadata, validator string) *dialect.Unstaking {
	if n == nil {
		return nil
	}
	for i := range n.Unstakings {
		if validator == "" || address.Equal(n.Unstakings[i].ValidatorAddress, validator) {
			return &n.Unstakings[i]
		}
	}
	return nil
}
