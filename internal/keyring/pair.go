package keyring

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"wallet-txcore/internal/chain"
	"wallet-txcore/pkg/address"
	"wallet-txcore/pkg/crypto_util"
	"wallet-txcore/pkg/keystore"
)

var (
	ErrLocked      = errors.New("account is locked")
	ErrNoLocalKey  = errors.New("account has no local key")
	ErrWrongLedger = errors.New("operation not supported by this account type")
	ErrKeyMismatch = errors.New("keystore does not match account address")
	ErrNoKeystore  = errors.New("account has no keystore")
)

// Meta is the signing-relevant account metadata.
type Meta struct {
	Name          string `json:"name"`
	IsExternal    bool   `json:"is_external"`
	IsHardware    bool   `json:"is_hardware"`
	IsReadOnly    bool   `json:"is_read_only"`
	IsInjected    bool   `json:"is_injected"`
	IsQR          bool   `json:"is_qr"`
	IsGeneric     bool   `json:"is_generic"`
	AccountIndex  uint32 `json:"account_index"`
	AddressOffset uint32 `json:"address_offset"`
}

// Pair is an account as seen by the signing backends.
type Pair interface {
	Address() string
	Ledger() chain.LedgerModel
	Meta() Meta
	IsLocked() bool
	Unlock(password string) error
	Lock()
	// Sign signs an opaque payload: EVM pairs sign the personal-message hash,
	// substrate pairs sign the (possibly blake2b-hashed) extrinsic payload.
	Sign(payload []byte) ([]byte, error)
	SignEVMTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
	// Decrypt returns a key set owned by the caller. The pair's own lock state
	// is neither read nor changed.
	Decrypt(password string) (*Keys, error)
}

// Keys is a decrypted key set scoped to one signing attempt.
type Keys struct {
	ledger chain.LedgerModel
	evmKey *ecdsa.PrivateKey
	edKey  ed25519.PrivateKey
}

func (k *Keys) Sign(payload []byte) ([]byte, error) {
	switch {
	case k == nil:
		return nil, ErrLocked
	case k.evmKey != nil:
		return crypto.Sign(accounts.TextHash(payload), k.evmKey)
	case k.edKey != nil:
		return ed25519.Sign(k.edKey, crypto_util.SubstrateSigningPayload(payload)), nil
	}
	return nil, ErrLocked
}

func (k *Keys) SignEVMTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if k == nil || k.evmKey == nil {
		if k != nil && k.ledger != chain.LedgerEVM {
			return nil, ErrWrongLedger
		}
		return nil, ErrLocked
	}
	return types.SignTx(tx, types.NewLondonSigner(chainID), k.evmKey)
}

// Wipe drops the key references.
func (k *Keys) Wipe() {
	if k == nil {
		return
	}
	k.evmKey = nil
	for i := range k.edKey {
		k.edKey[i] = 0
	}
	k.edKey = nil
}

// localPair holds a keystore-backed key, decrypted only while unlocked.
type localPair struct {
	mu     sync.RWMutex
	addr   string
	ledger chain.LedgerModel
	meta   Meta
	store  *keystore.EncryptedKeyJSON
	keys   *Keys // nil while locked
}

func (p *localPair) Address() string           { return p.addr }
func (p *localPair) Ledger() chain.LedgerModel { return p.ledger }
func (p *localPair) Meta() Meta                { return p.meta }

func (p *localPair) IsLocked() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.keys == nil
}

func (p *localPair) Decrypt(password string) (*Keys, error) {
	if p.store == nil {
		return nil, ErrNoKeystore
	}
	secret, err := keystore.Decrypt(p.store, password)
	if err != nil {
		return nil, err
	}
	mnemonic := string(secret)
	index := p.store.Account.Index

	keys := &Keys{ledger: p.ledger}
	switch p.ledger {
	case chain.LedgerEVM:
		key, err := DeriveEVMKey(mnemonic, index)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(crypto.PubkeyToAddress(key.PublicKey).Hex(), p.addr) {
			return nil, ErrKeyMismatch
		}
		keys.evmKey = key
	default:
		key, err := DeriveSubstrateKey(mnemonic, index)
		if err != nil {
			return nil, err
		}
		pub := key.Public().(ed25519.PublicKey)
		if addr, _ := address.EncodeSS58(pub, address.GenericPrefix); !address.Equal(addr, p.addr) {
			return nil, ErrKeyMismatch
		}
		keys.edKey = key
	}
	return keys, nil
}

// Unlock keeps the keys in the pair until Lock. Long-lived tools such as the
// CLI use it; signing backends use Decrypt.
func (p *localPair) Unlock(password string) error {
	keys, err := p.Decrypt(password)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = keys
	return nil
}

func (p *localPair) Lock() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys.Wipe()
	p.keys = nil
}

func (p *localPair) Sign(payload []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.keys.Sign(payload)
}

func (p *localPair) SignEVMTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if p.ledger != chain.LedgerEVM {
		return nil, ErrWrongLedger
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.keys.SignEVMTx(tx, chainID)
}

// externalPair is an account whose key lives elsewhere (hardware, extension,
// air-gapped device) or nowhere (watch-only).
type externalPair struct {
	addr   string
	ledger chain.LedgerModel
	meta   Meta
}

func (p *externalPair) Address() string           { return p.addr }
func (p *externalPair) Ledger() chain.LedgerModel { return p.ledger }
func (p *externalPair) Meta() Meta                { return p.meta }
func (p *externalPair) IsLocked() bool            { return true }
func (p *externalPair) Unlock(string) error       { return ErrNoLocalKey }
func (p *externalPair) Lock()                     {}

func (p *externalPair) Sign([]byte) ([]byte, error)   { return nil, ErrNoLocalKey }
func (p *externalPair) Decrypt(string) (*Keys, error) { return nil, ErrNoLocalKey }

func (p *externalPair) SignEVMTx(*types.Transaction, *big.Int) (*types.Transaction, error) {
	return nil, ErrNoLocalKey
}
