package signer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"wallet-txcore/pkg/errno"
)

// CodeUserRejected is the EIP-1193 user rejection code.
const CodeUserRejected = 4001

// ProviderError is an EIP-1193 provider error.
type ProviderError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// Provider is an externally injected wallet.
type Provider interface {
	SwitchChain(ctx context.Context, chainID *big.Int) error
	Request(ctx context.Context, method string, params []any) ([]byte, error)
}

// InjectedBackend forwards requests to an injected provider.
type InjectedBackend struct {
	provider Provider
}

func NewInjectedBackend(p Provider) *InjectedBackend {
	return &InjectedBackend{provider: p}
}

func (b *InjectedBackend) Sign(ctx context.Context, s *Session, req Request) (Result, error) {
	ctx, stop := withSessionCancel(ctx, s)
	defer stop()

	if req.EVMTx != nil {
		return b.signTx(ctx, req)
	}

	method := req.Method
	if method == "" {
		method = "personal_sign"
	}
	out, err := b.provider.Request(ctx, method, []any{hexutil.Encode(req.Payload), req.Address})
	if err != nil {
		return Result{}, providerError(err)
	}
	sig, err := decodeHexResult(out)
	if err != nil {
		return Result{}, err
	}
	return Result{Signature: sig}, nil
}

func (b *InjectedBackend) signTx(ctx context.Context, req Request) (Result, error) {
	if err := b.provider.SwitchChain(ctx, req.EVMChainID); err != nil {
		return Result{}, providerError(err)
	}
	out, err := b.provider.Request(ctx, "eth_signTransaction", []any{SanitizeTx(req.EVMTx, req.Address, req.EVMChainID)})
	if err != nil {
		return Result{}, providerError(err)
	}
	raw, err := decodeHexResult(out)
	if err != nil {
		return Result{}, err
	}
	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(raw); err != nil {
		return Result{}, errno.NewTxError(errno.KindUnableToSign, "Invalid signed transaction: "+err.Error())
	}
	return Result{Signature: raw, SignedTx: signed}, nil
}

// SanitizeTx is the provider-facing form of tx: wire fields only.
func SanitizeTx(tx *types.Transaction, from string, chainID *big.Int) map[string]string {
	out := map[string]string{
		"from":  from,
		"value": hexutil.EncodeBig(tx.Value()),
		"nonce": hexutil.EncodeUint64(tx.Nonce()),
		"gas":   hexutil.EncodeUint64(tx.Gas()),
	}
	if tx.To() != nil {
		out["to"] = tx.To().Hex()
	}
	if len(tx.Data()) > 0 {
		out["data"] = hexutil.Encode(tx.Data())
	}
	if chainID != nil {
		out["chainId"] = hexutil.EncodeBig(chainID)
	}
	if tx.Type() == types.DynamicFeeTxType {
		out["maxFeePerGas"] = hexutil.EncodeBig(tx.GasFeeCap())
		out["maxPriorityFeePerGas"] = hexutil.EncodeBig(tx.GasTipCap())
	} else {
		out["gasPrice"] = hexutil.EncodeBig(tx.GasPrice())
	}
	return out
}

func providerError(err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Code == CodeUserRejected {
		return errno.NewTxError(errno.KindUserRejectRequest, "")
	}
	if errors.Is(err, ErrUserRejected) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errno.NewTxError(errno.KindUserRejectRequest, "")
	}
	return errno.NewTxError(errno.KindUnableToSign, err.Error())
}

// decodeHexResult accepts a JSON string or raw hex text.
func decodeHexResult(out []byte) ([]byte, error) {
	var s string
	if err := json.Unmarshal(out, &s); err != nil {
		s = strings.TrimSpace(string(out))
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, errno.NewTxError(errno.KindUnableToSign, "Invalid signature returned by provider")
	}
	return b, nil
}
