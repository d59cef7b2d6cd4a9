package ledger

import (
	"errors"
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/zecbridge/bridge-go/common"
)

var (
	// checkpoint chaining violated: stale or conflicting submission
	ErrInvalidPreviousState = errors.New("previous checkpoint does not match latest state")
	// checkpoint heights must strictly increase on both chains
	ErrInvalidBlockNumber = errors.New("new checkpoint block number does not increase")

	ErrZeroAmount         = errors.New("amount is zero")
	ErrAmountOverflow     = errors.New("amount does not fit in 64 bits")
	ErrInvalidDestination = errors.New("destination is empty or zero")
	ErrInvalidRecipient   = errors.New("mint recipient is the zero address")

	// the burn batch references no pending withdrawal for that (amount, destination)
	ErrWithdrawalNotFound = errors.New("no pending withdrawal for key")
	// defensive; unreachable as long as the cursor discipline holds
	ErrWithdrawalAlreadyProcessed = errors.New("withdrawal already processed")
)

// WithdrawalRequest records a user's intent to move funds to the
// zcash side. Requests are append-only: once processed they stay in
// the table for lookup, the queue cursor just moves past them.
type WithdrawalRequest struct {
	Id          uint64
	Requester   ethcommon.Address
	Amount      *big.Int
	Destination []byte // 20-byte transparent pubkey hash
	Key         ethcommon.Hash
	Processed   bool
}

func (w *WithdrawalRequest) Clone() *WithdrawalRequest {
	clone := *w
	clone.Amount = new(big.Int).Set(w.Amount)
	clone.Destination = append([]byte(nil), w.Destination...)
	return &clone
}

func (w *WithdrawalRequest) String() string {
	return fmt.Sprintf("WithdrawalRequest { Id: %d, Requester: %s, Amount: %v, Destination: 0x%x, Key: %s, Processed: %v }",
		w.Id, w.Requester.String(), w.Amount, w.Destination, w.Key.String(), w.Processed)
}

type JSONWithdrawal struct {
	Id          uint64 `json:"id"`
	Requester   string `json:"requester"`
	Amount      string `json:"amount"`
	Destination string `json:"destination"`
	Key         string `json:"key"`
	Processed   bool   `json:"processed"`
}

func (w *WithdrawalRequest) JSON() *JSONWithdrawal {
	return &JSONWithdrawal{
		Id:          w.Id,
		Requester:   w.Requester.String(),
		Amount:      common.BigIntToHexStr(w.Amount),
		Destination: common.Prepend0xPrefix(common.ByteSliceToPureHexStr(w.Destination)),
		Key:         w.Key.String(),
		Processed:   w.Processed,
	}
}

// sqlWithdrawal is the sql row form of a WithdrawalRequest.
type sqlWithdrawal struct {
	Id          uint64
	Requester   string // hex, no 0x prefix
	Destination string // hex, no 0x prefix
	Amount      uint64
	QueueKey    string // hex, no 0x prefix
	Processed   bool
}

func (s *sqlWithdrawal) encode(w *WithdrawalRequest) *sqlWithdrawal {
	s.Id = w.Id
	s.Requester = common.ByteSliceToPureHexStr(w.Requester.Bytes())
	s.Destination = common.ByteSliceToPureHexStr(w.Destination)
	s.Amount = w.Amount.Uint64()
	s.QueueKey = w.Key.String()[2:]
	s.Processed = w.Processed
	return s
}

func (s *sqlWithdrawal) decode() *WithdrawalRequest {
	return &WithdrawalRequest{
		Id:          s.Id,
		Requester:   ethcommon.HexToAddress(s.Requester),
		Amount:      new(big.Int).SetUint64(s.Amount),
		Destination: common.HexStrToByteSlice(s.Destination),
		Key:         ethcommon.HexToHash(s.QueueKey),
		Processed:   s.Processed,
	}
}
