package signer

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/core/types"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/keyring"
	"wallet-txcore/pkg/errno"
)

// PairLookup resolves a keyring pair by address.
type PairLookup interface {
	GetPair(addr string) (keyring.Pair, bool)
}

// PasswordBackend signs with keystore-backed local pairs. Every attempt
// decrypts its own key set from the request password, so concurrent attempts
// on one address never share unlocked state.
type PasswordBackend struct {
	pairs PairLookup
}

func NewPasswordBackend(pairs PairLookup) *PasswordBackend {
	return &PasswordBackend{pairs: pairs}
}

func (b *PasswordBackend) Sign(_ context.Context, _ *Session, req Request) (Result, error) {
	pair, ok := b.pairs.GetPair(req.Address)
	if !ok {
		return Result{}, errno.NewTxError(errno.KindUnableToSign, "Unable to find account")
	}

	// 每次签名都校验密码, 密钥只在本次调用内有效
	if req.Password == "" {
		return Result{}, errno.NewTxError(errno.KindUnableToSign, "account is locked")
	}
	keys, err := pair.Decrypt(req.Password)
	if err != nil {
		return Result{}, errno.NewTxError(errno.KindUnableToSign, "Unable to unlock account: "+err.Error())
	}
	defer keys.Wipe()

	if req.EVMTx != nil {
		if pair.Ledger() != chain.LedgerEVM {
			return Result{}, pairError(keyring.ErrWrongLedger)
		}
		signed, err := keys.SignEVMTx(req.EVMTx, req.EVMChainID)
		if err != nil {
			return Result{}, pairError(err)
		}
		return encodeSigned(signed)
	}

	sig, err := keys.Sign(req.Payload)
	if err != nil {
		return Result{}, pairError(err)
	}
	return Result{Signature: sig}, nil
}

func pairError(err error) *errno.TxError {
	if errors.Is(err, keyring.ErrLocked) {
		return errno.NewTxError(errno.KindUnableToSign, "account is locked")
	}
	return errno.NewTxError(errno.KindUnableToSign, err.Error())
}

func encodeSigned(tx *types.Transaction) (Result, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return Result{}, errno.NewTxError(errno.KindUnableToSign, err.Error())
	}
	return Result{Signature: raw, SignedTx: tx}, nil
}
