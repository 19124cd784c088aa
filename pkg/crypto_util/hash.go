package crypto_util

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// maxRawPayload 以上的 extrinsic payload 需要先做 blake2b-256 再签名
const maxRawPayload = 256

// Keccak256 计算以太坊使用的 Keccak256 哈希
func Keccak256(data []byte) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write(data)
	return hash.Sum(nil)
}

// Blake2b256 计算 substrate 使用的 blake2b-256 哈希
func Blake2b256(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// SubstrateSigningPayload returns what is actually signed for a module-based
// extrinsic payload.
func SubstrateSigningPayload(payload []byte) []byte {
	if len(payload) > maxRawPayload {
		return Blake2b256(payload)
	}
	return payload
}

// PayloadDigest 是签名请求的指纹 (blake3, hex)，用于把扫码回来的签名和展示的 payload 对上
func PayloadDigest(payload []byte) string {
	sum := blake3.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
