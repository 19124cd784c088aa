package address

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

// GenericPrefix is the SS58 network identifier of the generic substrate format.
const GenericPrefix uint16 = 42

var ss58Pre = []byte("SS58PRE")

var (
	ErrInvalidSS58  = errors.New("invalid ss58 address")
	ErrBadChecksum  = errors.New("ss58 checksum mismatch")
	ErrPrefixRange  = errors.New("ss58 prefix out of range")
	ErrPublicKeyLen = errors.New("public key must be 32 bytes")
)

// DecodeSS58 returns the network prefix and the 32 byte public key.
func DecodeSS58(addr string) (uint16, []byte, error) {
	data := base58.Decode(addr)
	if len(data) < 2 {
		return 0, nil, ErrInvalidSS58
	}

	var prefix uint16
	prefixLen := 1
	switch {
	case data[0] < 64:
		prefix = uint16(data[0])
	case data[0] < 128:
		lower := (data[0]&0x3f)<<2 | data[1]>>6
		upper := data[1] & 0x3f
		prefix = uint16(lower) | uint16(upper)<<8
		prefixLen = 2
	default:
		return 0, nil, ErrInvalidSS58
	}

	// 32 byte account id + 2 byte checksum
	if len(data) != prefixLen+32+2 {
		return 0, nil, ErrInvalidSS58
	}

	body := data[:prefixLen+32]
	sum := checksum(body)
	if !bytes.Equal(sum[:2], data[prefixLen+32:]) {
		return 0, nil, ErrBadChecksum
	}

	return prefix, append([]byte(nil), data[prefixLen:prefixLen+32]...), nil
}

// EncodeSS58 encodes a 32 byte public key with the given network prefix.
func EncodeSS58(pub []byte, prefix uint16) (string, error) {
	if len(pub) != 32 {
		return "", ErrPublicKeyLen
	}
	if prefix > 16383 {
		return "", ErrPrefixRange
	}

	var body []byte
	if prefix < 64 {
		body = append(body, byte(prefix))
	} else {
		first := byte((prefix&0xfc)>>2) | 0x40
		second := byte(prefix>>8) | byte((prefix&0x03)<<6)
		body = append(body, first, second)
	}
	body = append(body, pub...)

	sum := checksum(body)
	return base58.Encode(append(body, sum[:2]...)), nil
}

// Reformat re-encodes an SS58 address under another network prefix.
func Reformat(addr string, prefix uint16) (string, error) {
	_, pub, err := DecodeSS58(addr)
	if err != nil {
		return "", fmt.Errorf("reformat %s: %w", addr, err)
	}
	return EncodeSS58(pub, prefix)
}

// IsSubstrateAddress reports whether s decodes as a valid SS58 address.
func IsSubstrateAddress(s string) bool {
	_, _, err := DecodeSS58(s)
	return err == nil
}

func checksum(body []byte) [64]byte {
	return blake2b.Sum512(append(append([]byte(nil), ss58Pre...), body...))
}
