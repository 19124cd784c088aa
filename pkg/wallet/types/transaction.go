// Package types holds the JSON envelopes exchanged with offline and
// air-gapped signers.
package types

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"wallet-txcore/pkg/crypto_util"
)

// ErrDigestMismatch means the payload was altered after the envelope was built.
var ErrDigestMismatch = errors.New("payload digest mismatch")

// UnsignedTransaction represents an EVM transaction waiting to be signed.
// It carries everything a cold signer needs plus metadata for the user to verify.
type UnsignedTransaction struct {
	Chain    string `json:"chain"`          // chain slug
	From     string `json:"from"`           // Sender Address
	To       string `json:"to"`             // Recipient Address
	Amount   string `json:"amount"`         // Amount in wei
	Nonce    uint64 `json:"nonce"`          // Account Nonce
	GasLimit uint64 `json:"gas_limit"`      // Gas Limit
	Data     string `json:"data,omitempty"` // Contract Data (Hex)

	// Either GasPrice (legacy) or the EIP-1559 pair is set.
	GasPrice             string `json:"gas_price,omitempty"`
	MaxFeePerGas         string `json:"max_fee_per_gas,omitempty"`
	MaxPriorityFeePerGas string `json:"max_priority_fee_per_gas,omitempty"`

	// AccountIndex selects m/44'/60'/0'/0/<index> on the signer.
	AccountIndex uint32 `json:"account_index"`

	// ChainID for EIP-155 replay protection
	ChainID int64 `json:"chain_id"`
}

// Build turns the envelope into a go-ethereum transaction.
func (u *UnsignedTransaction) Build() (*ethtypes.Transaction, error) {
	if !common.IsHexAddress(u.To) {
		return nil, fmt.Errorf("invalid to address %q", u.To)
	}
	to := common.HexToAddress(u.To)

	value, err := parseWei("amount", u.Amount)
	if err != nil {
		return nil, err
	}

	var data []byte
	if u.Data != "" {
		if data, err = hexutil.Decode(u.Data); err != nil {
			return nil, fmt.Errorf("invalid data: %w", err)
		}
	}

	if u.MaxFeePerGas != "" {
		feeCap, err := parseWei("max_fee_per_gas", u.MaxFeePerGas)
		if err != nil {
			return nil, err
		}
		tipCap, err := parseWei("max_priority_fee_per_gas", u.MaxPriorityFeePerGas)
		if err != nil {
			return nil, err
		}
		return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   big.NewInt(u.ChainID),
			Nonce:     u.Nonce,
			GasTipCap: tipCap,
			GasFeeCap: feeCap,
			Gas:       u.GasLimit,
			To:        &to,
			Value:     value,
			Data:      data,
		}), nil
	}

	gasPrice, err := parseWei("gas_price", u.GasPrice)
	if err != nil {
		return nil, err
	}
	return ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    u.Nonce,
		GasPrice: gasPrice,
		Gas:      u.GasLimit,
		To:       &to,
		Value:    value,
		Data:     data,
	}), nil
}

// SignedTransaction represents the result of the signing process.
type SignedTransaction struct {
	TxHash string `json:"tx_hash"` // Transaction Hash
	RawTx  string `json:"raw_tx"`  // Encoded Hex String (ready to broadcast)
}

// NewSignedTransaction encodes a signed transaction for transport.
func NewSignedTransaction(tx *ethtypes.Transaction) (*SignedTransaction, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &SignedTransaction{TxHash: tx.Hash().Hex(), RawTx: hexutil.Encode(raw)}, nil
}

// Decode parses RawTx back into a transaction.
func (s *SignedTransaction) Decode() (*ethtypes.Transaction, error) {
	raw, err := hexutil.Decode(s.RawTx)
	if err != nil {
		return nil, fmt.Errorf("invalid raw tx: %w", err)
	}
	tx := new(ethtypes.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return tx, nil
}

// SigningEnvelope is what a QR signer displays and scans back.
type SigningEnvelope struct {
	ID      string `json:"id"`
	Chain   string `json:"chain"`
	Address string `json:"address"`
	Payload string `json:"payload"` // hex
	Digest  string `json:"digest"`  // blake3 of the payload bytes
}

// NewSigningEnvelope wraps payload for session id.
func NewSigningEnvelope(id, chain, addr string, payload []byte) SigningEnvelope {
	return SigningEnvelope{
		ID:      id,
		Chain:   chain,
		Address: addr,
		Payload: hex.EncodeToString(payload),
		Digest:  crypto_util.PayloadDigest(payload),
	}
}

// Bytes decodes the payload and checks it against the digest.
func (e SigningEnvelope) Bytes() ([]byte, error) {
	payload, err := hex.DecodeString(strings.TrimPrefix(e.Payload, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	if crypto_util.PayloadDigest(payload) != e.Digest {
		return nil, ErrDigestMismatch
	}
	return payload, nil
}

func parseWei(field, s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q", field, s)
	}
	return v, nil
}
