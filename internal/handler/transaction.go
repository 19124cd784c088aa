package handler

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/dialect"
	"wallet-txcore/internal/handler/request"
	"wallet-txcore/internal/handler/response"
	"wallet-txcore/internal/model"
	"wallet-txcore/internal/transaction"
	"wallet-txcore/internal/validation"
	"wallet-txcore/pkg/errno"
)

const defaultHistoryLimit = 50

// HistoryLister reads persisted transaction outcomes. *service.HistoryService satisfies it.
type HistoryLister interface {
	List(ctx context.Context, chain, address string, limit int) ([]model.TransactionHistory, error)
}

type TransactionHandler struct {
	mgr     *transaction.Manager
	history HistoryLister
}

// NewTransactionHandler builds the handler; history may be nil when no
// database is configured.
func NewTransactionHandler(mgr *transaction.Manager, history HistoryLister) *TransactionHandler {
	return &TransactionHandler{mgr: mgr, history: history}
}

// ValidateResponse 预校验结果
type ValidateResponse struct {
	Valid    bool               `json:"valid"`
	Fee      interface{}        `json:"fee"`
	Errors   []*errno.TxError   `json:"errors"`
	Warnings []*errno.TxWarning `json:"warnings"`
}

// Transfer 同链转账
// @Summary 同链转账
// @Description 构造并提交一笔同链转账, 在拿到交易哈希或失败后返回
// @Tags Transaction
// @Accept json
// @Produce json
// @Param request body request.TransferRequest true "Transfer Request"
// @Success 200 {object} response.Response
// @Router /api/v1/transactions/transfer [post]
func (h *TransactionHandler) Transfer(c *gin.Context) {
	var req request.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	in, err := h.transferIntent(req)
	if err != nil {
		h.reject(c, err)
		return
	}
	h.respond(c, h.mgr.HandleTransaction(c.Request.Context(), in))
}

// XcmTransfer 跨链转账
// @Summary 跨链转账
// @Tags Transaction
// @Accept json
// @Produce json
// @Param request body request.XcmTransferRequest true "XCM Transfer Request"
// @Success 200 {object} response.Response
// @Router /api/v1/transactions/xcm [post]
func (h *TransactionHandler) XcmTransfer(c *gin.Context) {
	var req request.XcmTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	in, err := h.xcmIntent(req)
	if err != nil {
		h.reject(c, err)
		return
	}
	h.respond(c, h.mgr.HandleTransaction(c.Request.Context(), in))
}

// Submit 提交任意交易
// @Summary 提交交易
// @Description 提交调用方已构造好的调用 (call 或 evm)
// @Tags Transaction
// @Accept json
// @Produce json
// @Param request body request.TransactionRequest true "Transaction Request"
// @Success 200 {object} response.Response
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) Submit(c *gin.Context) {
	var req request.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	in, err := h.intent(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, h.mgr.HandleTransaction(c.Request.Context(), in))
}

// Validate 只做校验与手续费估算, 不登记交易
// @Summary 预校验交易
// @Tags Transaction
// @Accept json
// @Produce json
// @Param request body request.TransactionRequest true "Transaction Request"
// @Success 200 {object} response.Response
// @Router /api/v1/transactions/validate [post]
func (h *TransactionHandler) Validate(c *gin.Context) {
	var req request.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	in, err := h.intent(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	rec, res := h.mgr.Validate(c.Request.Context(), in)
	response.Success(c, ValidateResponse{
		Valid:    !res.HasErrors(),
		Fee:      rec.Fee,
		Errors:   res.Errors,
		Warnings: res.Warnings,
	})
}

// List 当前注册表中的交易
// @Summary 列出交易
// @Tags Transaction
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	response.Success(c, h.mgr.Snapshot())
}

// Get 查询单笔交易
// @Summary 查询交易
// @Tags Transaction
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Response
// @Router /api/v1/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	rec, ok := h.mgr.Get(c.Param("id"))
	if !ok {
		response.Error(c, errno.ErrTransactionNotFound)
		return
	}
	response.Success(c, rec)
}

// Link 区块浏览器链接
// @Summary 交易浏览器链接
// @Tags Transaction
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Response
// @Router /api/v1/transactions/{id}/link [get]
func (h *TransactionHandler) Link(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.mgr.Get(id); !ok {
		response.Error(c, errno.ErrTransactionNotFound)
		return
	}
	response.Success(c, gin.H{"link": h.mgr.Link(id)})
}

// History 已落库的交易结果
// @Summary 交易历史
// @Tags Transaction
// @Produce json
// @Param chain query string true "Chain slug"
// @Param address query string true "Account address"
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Response
// @Router /api/v1/history [get]
func (h *TransactionHandler) History(c *gin.Context) {
	if h.history == nil {
		response.Error(c, errno.ErrHistoryDisabled)
		return
	}
	var q request.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultHistoryLimit
	}
	rows, err := h.history.List(c.Request.Context(), q.Chain, q.Address, q.Limit)
	if err != nil {
		response.Error(c, errno.ErrDatabase)
		return
	}
	response.Success(c, rows)
}

func (h *TransactionHandler) respond(c *gin.Context, out transaction.HandleResult) {
	switch {
	case out.TxError != nil:
		response.Fail(c, out.TxError, out)
	case len(out.Errors) > 0:
		response.Fail(c, out.Errors[0], out)
	default:
		response.Success(c, out)
	}
}

// reject answers a request that failed before reaching the manager.
func (h *TransactionHandler) reject(c *gin.Context, err error) {
	var verr *transaction.ValidationError
	if errors.As(err, &verr) {
		h.respond(c, transaction.HandleResult{Errors: verr.Result.Errors, Warnings: verr.Result.Warnings})
		return
	}
	response.Error(c, err)
}

func (h *TransactionHandler) lookupAsset(chainSlug, slug string) (*chain.Info, *chain.Asset, error) {
	info, ok := h.mgr.Chains.Chain(chainSlug)
	if !ok {
		return nil, nil, errno.ErrChainNotFound.WithMessage("Not found chain " + chainSlug)
	}
	asset, ok := h.mgr.Chains.Asset(slug)
	if !ok || asset.OriginChain != chainSlug {
		return nil, nil, errno.ErrAssetNotFound.WithMessage("Not found token " + slug + " on " + chainSlug)
	}
	return info, asset, nil
}

func transferType(asset *chain.Asset) chain.ExtrinsicType {
	switch {
	case asset.IsNative():
		return chain.TransferBalance
	case asset.Type.IsNFT():
		return chain.SendNFT
	}
	return chain.TransferToken
}

func (h *TransactionHandler) transferIntent(req request.TransferRequest) (transaction.Intent, error) {
	info, asset, err := h.lookupAsset(req.Chain, req.Asset)
	if err != nil {
		return transaction.Intent{}, err
	}
	if info.IsEVM() && req.TransferAll {
		return transaction.Intent{}, errno.ErrInvalidParams.WithMessage("Transfer all is not supported on " + req.Chain)
	}
	res, _, value := validation.ValidateTransferRequest(h.mgr.Pairs, asset, req.From, req.To, req.Value, req.TransferAll)
	if res.HasErrors() {
		return transaction.Intent{}, &transaction.ValidationError{Result: res}
	}
	balance, err := parseBalance(req.Balance)
	if err != nil {
		return transaction.Intent{}, err
	}

	in := transaction.Intent{
		Address:           req.From,
		Chain:             req.Chain,
		Ledger:            info.Ledger,
		Type:              transferType(asset),
		Data:              map[string]string{"to": req.To, "value": req.Value},
		TransferAll:       req.TransferAll,
		SkipFeeValidation: req.SkipFee,
		Asset:             asset.Slug,
		Balance:           balance,
		Password:          req.Password,
	}
	if req.Balance != nil && req.Balance.ReceiverFree != "" {
		amount := value
		if amount == nil {
			amount = balance.Available
		}
		check, err := receiverCheck(asset, req.Balance, amount)
		if err != nil {
			return transaction.Intent{}, err
		}
		in.Validators = append(in.Validators, check)
	}
	if info.IsEVM() {
		call, err := dialect.BuildEVMTransfer(asset, req.From, req.To, value)
		if err != nil {
			return transaction.Intent{}, err
		}
		in.Payload.EVM = call
		if balance != nil && asset.IsNative() {
			balance.NativeAmount = value
		}
		return in, nil
	}
	call, err := h.mgr.Dialects.BuildTransfer(req.Chain, dialect.TransferParams{
		Asset:       asset,
		From:        req.From,
		To:          req.To,
		Value:       value,
		TransferAll: req.TransferAll,
	})
	if err != nil {
		return transaction.Intent{}, err
	}
	in.Payload.Call = call
	if balance != nil && asset.IsNative() && value != nil {
		balance.NativeAmount = value
	}
	return in, nil
}

func (h *TransactionHandler) xcmIntent(req request.XcmTransferRequest) (transaction.Intent, error) {
	info, asset, err := h.lookupAsset(req.OriginChain, req.Asset)
	if err != nil {
		return transaction.Intent{}, err
	}
	destInfo, ok := h.mgr.Chains.Chain(req.DestChain)
	if !ok {
		return transaction.Intent{}, errno.ErrChainNotFound.WithMessage("Not found chain " + req.DestChain)
	}
	if info.IsEVM() {
		return transaction.Intent{}, errno.ErrInvalidParams.WithMessage("Cross-chain transfer must start on a substrate chain")
	}
	res, _, value := validation.ValidateTransferRequest(h.mgr.Pairs, asset, req.From, req.To, req.Value, false)
	if res.HasErrors() {
		return transaction.Intent{}, &transaction.ValidationError{Result: res}
	}
	call, err := h.mgr.Dialects.BuildXcm(req.OriginChain, dialect.XcmParams{
		Asset:       asset,
		DestChain:   req.DestChain,
		DestParaID:  req.DestParaID,
		Recipient:   req.To,
		Value:       value,
		WeightLimit: req.WeightLimit,
	})
	if err != nil {
		return transaction.Intent{}, err
	}

	// 目标链资产未指定时按同一资产的最小值校验
	dest := asset
	if req.DestAsset != "" {
		if _, dest, err = h.lookupAsset(req.DestChain, req.DestAsset); err != nil {
			return transaction.Intent{}, err
		}
	}
	balance, err := parseBalance(req.Balance)
	if err != nil {
		return transaction.Intent{}, err
	}
	xcm := validation.XcmCheck{
		Origin:     asset,
		Dest:       dest,
		DestChain:  destInfo,
		Amount:     value,
		Snowbridge: req.Snowbridge,
	}
	if req.Balance != nil {
		if xcm.SenderTransferable, err = parseOptionalUint(req.Balance.SenderTransferable, "sender_transferable"); err != nil {
			return transaction.Intent{}, err
		}
		if xcm.ReceiverNative, err = parseOptionalUint(req.Balance.ReceiverFree, "receiver_free"); err != nil {
			return transaction.Intent{}, err
		}
		if asset.IsNative() {
			balance.NativeAmount = value
		}
	}

	return transaction.Intent{
		Address:           req.From,
		Chain:             req.OriginChain,
		Ledger:            info.Ledger,
		Type:              chain.TransferXcm,
		Data:              map[string]string{"to": req.To, "dest_chain": req.DestChain, "value": req.Value},
		Payload:           transaction.Payload{Call: call},
		SkipFeeValidation: req.SkipFee,
		Asset:             asset.Slug,
		Balance:           balance,
		Password:          req.Password,
		Validators: []transaction.ExtraValidator{
			func(context.Context, *transaction.Record) validation.Result {
				return validation.AdditionalValidateXcmTransfer(xcm)
			},
		},
	}, nil
}

// receiverCheck guards the existential deposits on both ends of a same-chain
// transfer of amount.
func receiverCheck(asset *chain.Asset, req *request.BalanceRequest, amount *big.Int) (transaction.ExtraValidator, error) {
	receiverFree, err := parseOptionalUint(req.ReceiverFree, "receiver_free")
	if err != nil {
		return nil, err
	}
	senderTransferable, err := parseOptionalUint(req.SenderTransferable, "sender_transferable")
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, rec *transaction.Record) validation.Result {
		return validation.AdditionalValidateTransfer(asset, rec.Type, receiverFree, amount, senderTransferable)
	}, nil
}

func (h *TransactionHandler) intent(req request.TransactionRequest) (transaction.Intent, error) {
	info, ok := h.mgr.Chains.Chain(req.Chain)
	if !ok {
		return transaction.Intent{}, errno.ErrChainNotFound.WithMessage("Not found chain " + req.Chain)
	}
	in := transaction.Intent{
		Address:           req.Address,
		Chain:             req.Chain,
		Ledger:            info.Ledger,
		Type:              chain.ExtrinsicType(req.Type),
		TransferAll:       req.TransferAll,
		SkipFeeValidation: req.SkipFee,
		URL:               req.URL,
		External:          req.External,
		Asset:             req.Asset,
		Password:          req.Password,
	}
	switch {
	case req.EVM != nil:
		call, err := parseEVMCall(*req.EVM)
		if err != nil {
			return in, err
		}
		in.Payload.EVM = call
	case req.Call != nil:
		in.Payload.Call = dialect.NewCall(req.Call.Section, req.Call.Method, req.Call.Args...)
	}
	balance, err := parseBalance(req.Balance)
	if err != nil {
		return in, err
	}
	in.Balance = balance
	return in, nil
}

func parseEVMCall(req request.EVMCallRequest) (*dialect.EVMCall, error) {
	if !common.IsHexAddress(req.To) {
		return nil, errno.ErrInvalidParams.WithMessage("Invalid contract or recipient address " + req.To)
	}
	value, err := parseUint(req.Value, "value")
	if err != nil {
		return nil, err
	}
	call := &dialect.EVMCall{To: common.HexToAddress(req.To), Value: value}
	if req.Data != "" {
		data, err := hexutil.Decode(req.Data)
		if err != nil {
			return nil, errno.ErrInvalidParams.WithMessage("Invalid call data: " + err.Error())
		}
		call.Data = data
	}
	return call, nil
}

func parseBalance(req *request.BalanceRequest) (*transaction.Balance, error) {
	if req == nil {
		return nil, nil
	}
	available, err := parseUint(req.Available, "available")
	if err != nil {
		return nil, err
	}
	native, err := parseUint(req.NativeAmount, "native_amount")
	if err != nil {
		return nil, err
	}
	out := &transaction.Balance{Available: available, NativeAmount: native}
	if req.Account != nil {
		out.Account = &validation.AccountInfo{
			Consumers:   req.Account.Consumers,
			Providers:   req.Account.Providers,
			Sufficients: req.Account.Sufficients,
		}
	}
	return out, nil
}

// parseOptionalUint is parseUint but "" stays nil.
func parseOptionalUint(s, field string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	return parseUint(s, field)
}

// parseUint reads a non-negative base-10 amount; "" is zero.
func parseUint(s, field string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, errno.ErrInvalidParams.WithMessage("Invalid " + field + " " + s)
	}
	return v, nil
}
