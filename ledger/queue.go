package ledger

import (
	"database/sql"
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/zecbridge/bridge-go/agreement"
	"github.com/zecbridge/bridge-go/common"
)

// ComputeWithdrawalKey derives the FIFO matching key for a withdrawal.
// The zcash transfer primitive cannot carry an opaque request id, so
// (amount, destination) is the only correlation available between a
// request and its eventual fulfillment. Requests sharing a key are
// indistinguishable to the matcher and are released oldest-first.
func ComputeWithdrawalKey(amount *big.Int, destination []byte) ethcommon.Hash {
	return crypto.Keccak256Hash(common.EncodePacked(amount, destination))
}

// matchBurnTx pairs one burn entry with the oldest unconsumed request
// under its key, marks the request processed and adjusts the
// aggregate counters. The cursor is advanced, never rewound, so a
// consumed request stays queryable by id.
func (l *Ledger) matchBurnTx(tx *sql.Tx, burn *agreement.BurnEntry) (*WithdrawalRequest, error) {
	key := ComputeWithdrawalKey(burn.Amount, burn.Destination)

	cursor, err := l.db.cursorTx(tx, key)
	if err != nil {
		return nil, err
	}
	length, err := l.db.queueLengthTx(tx, key)
	if err != nil {
		return nil, err
	}

	if cursor >= length {
		return nil, fmt.Errorf("%w: key=%s amount=%v destination=0x%x",
			ErrWithdrawalNotFound, key.String(), burn.Amount, burn.Destination)
	}

	w, ok, err := l.db.WithdrawalAtTx(tx, key, cursor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: key=%s cursor=%d", ErrWithdrawalNotFound, key.String(), cursor)
	}

	if err := l.db.setCursorTx(tx, key, cursor+1); err != nil {
		return nil, err
	}

	// unreachable as long as only the cursor hands out requests
	if w.Processed {
		return nil, fmt.Errorf("%w: id=%d", ErrWithdrawalAlreadyProcessed, w.Id)
	}

	if err := l.db.MarkProcessedTx(tx, w.Id); err != nil {
		return nil, err
	}

	if err := l.db.AddCounterTx(tx, KeyTotalLocked, new(big.Int).Neg(w.Amount)); err != nil {
		return nil, err
	}
	if err := l.db.AddCounterTx(tx, KeyTotalBurned, w.Amount); err != nil {
		return nil, err
	}

	if err := l.appendAuditTx(tx, AuditWithdrawalProcessed, &WithdrawalProcessedEvent{
		Id:          w.Id,
		Amount:      common.BigIntToHexStr(w.Amount),
		Destination: common.Prepend0xPrefix(common.ByteSliceToPureHexStr(w.Destination)),
		Key:         key.String(),
	}); err != nil {
		return nil, err
	}

	w.Processed = true
	return w, nil
}
