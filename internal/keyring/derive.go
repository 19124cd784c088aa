package keyring

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha512"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"
)

// EVMPathTemplate is the BIP-44 Ethereum path; %d is the account index.
const EVMPathTemplate = "m/44'/60'/0'/0/%d"

// GenerateMnemonic creates a new 24-word mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("生成熵失败: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// DeriveEVMKey derives the secp256k1 key at m/44'/60'/0'/0/index.
func DeriveEVMKey(mnemonic string, index uint32) (*ecdsa.PrivateKey, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("生成主密钥失败: %w", err)
	}
	child, err := derivePath(master, fmt.Sprintf(EVMPathTemplate, index))
	if err != nil {
		return nil, err
	}
	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return priv.ToECDSA(), nil
}

// DeriveSubstrateKey derives an ed25519 key from the mnemonic mini secret
// (PBKDF2-SHA512 over the entropy, salt "mnemonic"). A non-zero index is
// mixed in as a soft suffix so several accounts can share one phrase.
func DeriveSubstrateKey(mnemonic string, index uint32) (ed25519.PrivateKey, error) {
	entropy, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	salt := "mnemonic"
	if index > 0 {
		salt += "//" + strconv.FormatUint(uint64(index), 10)
	}
	mini := pbkdf2.Key(entropy, []byte(salt), 2048, 64, sha512.New)[:32]
	return ed25519.NewKeyFromSeed(mini), nil
}

// derivePath 解析路径并派生密钥，支持 m/44'/60'/0'/0/0 或 m/44h/60h/0h/0/0
func derivePath(key *hdkeychain.ExtendedKey, path string) (*hdkeychain.ExtendedKey, error) {
	path = strings.TrimPrefix(strings.TrimSpace(path), "m/")
	if path == "" || path == "m" {
		return key, nil
	}

	for _, segment := range strings.Split(path, "/") {
		hardened := strings.HasSuffix(segment, "'") || strings.HasSuffix(segment, "h")
		if hardened {
			segment = segment[:len(segment)-1]
		}
		val, err := strconv.ParseUint(segment, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("无效的路径段 '%s': %w", segment, err)
		}
		index := uint32(val)
		if hardened {
			index += hdkeychain.HardenedKeyStart
		}
		if key, err = key.Derive(index); err != nil {
			return nil, fmt.Errorf("派生子密钥失败: %w", err)
		}
	}
	return key, nil
}
