package common

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	logger "github.com/sirupsen/logrus"
)

// EncodePacked mimics solidity's abi.encodePacked for the types
// the bridge hashes over (amounts, destinations, roots).
func EncodePacked(values ...interface{}) []byte {
	var res [][]byte
	for _, value := range values {
		switch v := value.(type) {
		case string:
			res = append(res, encodeString(v))
		case []byte:
			res = append(res, v)
		case [32]byte:
			res = append(res, v[:])
		case *big.Int:
			res = append(res, math.U256Bytes(v))
		case uint64:
			res = append(res, math.U256Bytes(new(big.Int).SetUint64(v)))
		case common.Hash:
			res = append(res, v[:])
		case common.Address:
			res = append(res, v[:])
		}
	}
	return bytes.Join(res, nil)
}

func encodeString(v string) []byte {
	if strings.HasPrefix(v, "0x") {
		return encodeHexString(v)
	}

	return []byte(v)
}

func encodeHexString(v string) []byte {
	decoded, err := hex.DecodeString(strings.TrimPrefix(v, "0x"))
	if err != nil {
		logger.Fatal(err)
	}
	return decoded
}
