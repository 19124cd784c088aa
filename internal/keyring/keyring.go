// Package keyring keeps the wallet's accounts: keystore-backed local pairs
// and metadata-only external pairs.
package keyring

import (
	"crypto/ed25519"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
	"go.uber.org/zap"

	"wallet-txcore/internal/chain"
	"wallet-txcore/pkg/address"
	"wallet-txcore/pkg/keystore"
	"wallet-txcore/pkg/logger"
)

type Keyring struct {
	mu      sync.RWMutex
	pairs   map[string]Pair
	dir     string
	scryptN int
}

// New creates a keyring persisting to dir. An empty dir keeps everything in
// memory. scryptN <= 0 uses the keystore default.
func New(dir string, scryptN int) *Keyring {
	return &Keyring{
		pairs:   make(map[string]Pair),
		dir:     dir,
		scryptN: scryptN,
	}
}

// GetPair looks an account up by address in any encoding.
func (k *Keyring) GetPair(addr string) (Pair, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	p, ok := k.pairs[address.Normalize(addr)]
	return p, ok
}

// Addresses lists known accounts.
func (k *Keyring) Addresses() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]string, 0, len(k.pairs))
	for _, p := range k.pairs {
		out = append(out, p.Address())
	}
	sort.Strings(out)
	return out
}

// AddMnemonic derives the account at index, encrypts the phrase under
// password and registers the pair locked.
func (k *Keyring) AddMnemonic(name, mnemonic, password string, ledger chain.LedgerModel, index uint32) (Pair, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}

	var addr string
	switch ledger {
	case chain.LedgerEVM:
		key, err := DeriveEVMKey(mnemonic, index)
		if err != nil {
			return nil, err
		}
		addr = crypto.PubkeyToAddress(key.PublicKey).Hex()
	case chain.LedgerSubstrate:
		key, err := DeriveSubstrateKey(mnemonic, index)
		if err != nil {
			return nil, err
		}
		if addr, err = address.EncodeSS58(key.Public().(ed25519.PublicKey), address.GenericPrefix); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown ledger model %q", ledger)
	}

	store, err := keystore.Encrypt([]byte(mnemonic), password, keystore.Account{
		Address: addr,
		Name:    name,
		Ledger:  string(ledger),
		Index:   index,
	}, k.scryptN)
	if err != nil {
		return nil, fmt.Errorf("encrypt keystore: %w", err)
	}

	if k.dir != "" {
		if err := store.SaveToFile(filepath.Join(k.dir, store.FileName())); err != nil {
			return nil, fmt.Errorf("save keystore: %w", err)
		}
	}

	p := pairFromKeystore(store)
	k.put(p)
	logger.Info("Account added", zap.String("address", addr), zap.String("ledger", string(ledger)))
	return p, nil
}

// AddExternal registers an account whose key is not held locally.
func (k *Keyring) AddExternal(addr string, ledger chain.LedgerModel, meta Meta) Pair {
	meta.IsExternal = true
	p := &externalPair{addr: addr, ledger: ledger, meta: meta}
	k.put(p)
	return p
}

// Load registers every keystore file in the keyring directory, locked.
func (k *Keyring) Load() error {
	if k.dir == "" {
		return nil
	}
	stores, err := keystore.LoadDir(k.dir)
	if err != nil {
		return err
	}
	for _, s := range stores {
		k.put(pairFromKeystore(s))
	}
	logger.Info("Keyring loaded", zap.String("dir", k.dir), zap.Int("accounts", len(stores)))
	return nil
}

func (k *Keyring) put(p Pair) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pairs[address.Normalize(p.Address())] = p
}

func pairFromKeystore(s *keystore.EncryptedKeyJSON) *localPair {
	return &localPair{
		addr:   s.Account.Address,
		ledger: chain.LedgerModel(s.Account.Ledger),
		meta:   Meta{Name: s.Account.Name, AccountIndex: s.Account.Index},
		store:  s,
	}
}
