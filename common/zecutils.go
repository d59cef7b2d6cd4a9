package common

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Zcash transparent P2PKH address version bytes. Unlike bitcoin,
// zcash uses a two-byte version, so btcutil's CheckEncode cannot be
// used directly and the checksum is computed here.
var (
	ZecMainNetP2PKH = [2]byte{0x1c, 0xb8} // "t1..."
	ZecTestNetP2PKH = [2]byte{0x1d, 0x25} // "tm..."
)

var (
	ErrorTAddrChecksum = errors.New("transparent address checksum mismatch")
	ErrorTAddrLength   = errors.New("transparent address has wrong length")
	ErrorPubKeyHashLen = errors.New("pubkey hash must be 20 bytes")
)

// EncodeTransparentAddr encodes a 20-byte pubkey hash into a zcash
// transparent address string.
func EncodeTransparentAddr(pubKeyHash []byte, version [2]byte) (string, error) {
	if len(pubKeyHash) != 20 {
		return "", ErrorPubKeyHashLen
	}

	payload := make([]byte, 0, 26)
	payload = append(payload, version[:]...)
	payload = append(payload, pubKeyHash...)

	checksum := chainhash.DoubleHashB(payload)[:4]
	return base58.Encode(append(payload, checksum...)), nil
}

// DecodeTransparentAddr decodes a zcash transparent address into its
// version bytes and 20-byte pubkey hash.
func DecodeTransparentAddr(addr string) ([2]byte, []byte, error) {
	decoded := base58.Decode(addr)
	// 2 version + 20 hash + 4 checksum
	if len(decoded) != 26 {
		return [2]byte{}, nil, ErrorTAddrLength
	}

	payload, checksum := decoded[:22], decoded[22:]
	expected := chainhash.DoubleHashB(payload)[:4]
	if !CompareSlices(checksum, expected) {
		return [2]byte{}, nil, ErrorTAddrChecksum
	}

	var version [2]byte
	copy(version[:], payload[:2])
	return version, payload[2:], nil
}

func IsValidTransparentAddr(addr string) bool {
	_, _, err := DecodeTransparentAddr(addr)
	return err == nil
}
