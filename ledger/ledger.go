// The bridge ledger state machine. It owns the checkpoint chain, the
// withdrawal FIFO queues and the aggregate counters, and drives the
// custody token on every accepted mutation.
//
// Trust model: nothing here verifies that a submitted state update
// reflects real chain events. Whoever is authorized to call
// SubmitStateUpdate is trusted; checkpoint chaining only protects
// against stale, replayed or reordered submissions.

package ledger

import (
	"fmt"
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/zecbridge/bridge-go/agreement"
	"github.com/zecbridge/bridge-go/common"
)

type Ledger struct {
	db    *LedgerDB
	token agreement.TokenAccount

	// single mutual-exclusion boundary around all ledger state; no
	// mutation interleaves with another
	mu sync.Mutex
}

func New(db *LedgerDB, token agreement.TokenAccount) *Ledger {
	return &Ledger{
		db:    db,
		token: token,
	}
}

// RequestWithdrawal escrows amount from the requester into bridge
// custody and queues a withdrawal to the given zcash destination.
// It returns the allocated monotonic request id. Custody failures
// (insufficient balance) propagate unchanged.
func (l *Ledger) RequestWithdrawal(requester ethcommon.Address, amount *big.Int, destination []byte) (uint64, error) {
	if amount == nil || amount.Sign() <= 0 {
		return 0, ErrZeroAmount
	}
	// rows and balances store amounts as uint64; wider values would
	// truncate there while the counters kept full precision
	if !amount.IsUint64() {
		return 0, ErrAmountOverflow
	}
	if len(destination) == 0 || common.IsZeroBytes(destination) {
		return 0, ErrInvalidDestination
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.token.TransferIn(requester, amount); err != nil {
		return 0, err
	}

	tx, err := l.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	key := ComputeWithdrawalKey(amount, destination)
	w := &WithdrawalRequest{
		Requester:   requester,
		Amount:      common.BigIntClone(amount),
		Destination: destination,
		Key:         key,
	}

	id, err := l.db.InsertWithdrawalTx(tx, w)
	if err != nil {
		return 0, err
	}

	if err := l.db.AddCounterTx(tx, KeyTotalLocked, amount); err != nil {
		return 0, err
	}

	if err := l.appendAuditTx(tx, AuditWithdrawalRequested, &WithdrawalRequestedEvent{
		Id:          id,
		Requester:   requester.String(),
		Amount:      common.BigIntToHexStr(amount),
		Destination: common.Prepend0xPrefix(common.ByteSliceToPureHexStr(destination)),
		Key:         key.String(),
	}); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	logger.WithFields(logger.Fields{
		"id":        id,
		"requester": requester.String(),
		"amount":    amount,
		"key":       key.String(),
	}).Info("withdrawal requested")

	return id, nil
}

// SubmitStateUpdate validates checkpoint chaining and applies the
// update's mint and burn batches, all or nothing. On any validation
// failure the whole call aborts with no side effects; retry is the
// coordinator's responsibility.
func (l *Ledger) SubmitStateUpdate(update *agreement.StateUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// phase a: checkpoint validation. The very first accepted update
	// establishes the baseline instead of being checked against one.
	stored, hasPrior, err := l.db.GetCheckpoint()
	if err != nil {
		return err
	}
	if hasPrior && !stored.Equal(&update.Previous) {
		return fmt.Errorf("%w: stored=%s submitted=%s",
			ErrInvalidPreviousState, stored.String(), update.Previous.String())
	}
	if update.New.ZecBlock <= update.Previous.ZecBlock {
		return fmt.Errorf("%w: zec %d -> %d",
			ErrInvalidBlockNumber, update.Previous.ZecBlock, update.New.ZecBlock)
	}
	if update.New.EthBlock <= update.Previous.EthBlock {
		return fmt.Errorf("%w: eth %d -> %d",
			ErrInvalidBlockNumber, update.Previous.EthBlock, update.New.EthBlock)
	}

	// phase b: batch application. Every mint entry is checked before
	// any custody mutation so a bad entry cannot leave a half-applied
	// batch behind.
	for i := range update.Mints {
		m := &update.Mints[i]
		if m.Amount == nil || m.Amount.Sign() <= 0 {
			return fmt.Errorf("%w: mint entry %d", ErrZeroAmount, i)
		}
		if !m.Amount.IsUint64() {
			return fmt.Errorf("%w: mint entry %d", ErrAmountOverflow, i)
		}
		if m.Recipient == (ethcommon.Address{}) {
			return fmt.Errorf("%w: mint entry %d", ErrInvalidRecipient, i)
		}
	}
	for i := range update.Burns {
		b := &update.Burns[i]
		if b.Amount == nil || b.Amount.Sign() <= 0 {
			return fmt.Errorf("%w: burn entry %d", ErrZeroAmount, i)
		}
		if !b.Amount.IsUint64() {
			return fmt.Errorf("%w: burn entry %d", ErrAmountOverflow, i)
		}
	}

	tx, err := l.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range update.Mints {
		m := &update.Mints[i]
		if err := l.db.AddCounterTx(tx, KeyTotalMinted, m.Amount); err != nil {
			return err
		}
		if err := l.appendAuditTx(tx, AuditMintProcessed, &MintProcessedEvent{
			Amount:    common.BigIntToHexStr(m.Amount),
			Recipient: m.Recipient.String(),
		}); err != nil {
			return err
		}
	}

	var matched []*WithdrawalRequest
	for i := range update.Burns {
		w, err := l.matchBurnTx(tx, &update.Burns[i])
		if err != nil {
			return err
		}
		matched = append(matched, w)
	}

	if err := l.db.SetCheckpointTx(tx, &update.New); err != nil {
		return err
	}

	ev := &CheckpointUpdatedEvent{New: update.New.JSON()}
	if hasPrior {
		ev.Old = stored.JSON()
	}
	if err := l.appendAuditTx(tx, AuditCheckpointUpdated, ev); err != nil {
		return err
	}

	// custody side, after all ledger-side validation has passed
	for i := range update.Mints {
		m := &update.Mints[i]
		if err := l.token.Mint(m.Recipient, m.Amount); err != nil {
			return err
		}
	}
	for _, w := range matched {
		if err := l.token.Burn(w.Amount); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	logger.WithFields(logger.Fields{
		"zecBlock": update.New.ZecBlock,
		"ethBlock": update.New.EthBlock,
		"mints":    len(update.Mints),
		"burns":    len(update.Burns),
	}).Info("state update accepted")

	return nil
}

// LatestCheckpoint returns the stored checkpoint. ok == false means
// no state update has been accepted yet.
func (l *Ledger) LatestCheckpoint() (*agreement.Checkpoint, bool, error) {
	return l.db.GetCheckpoint()
}

// GetWithdrawalRequest looks a request up by id; ok == false for
// unknown ids.
func (l *Ledger) GetWithdrawalRequest(id uint64) (*WithdrawalRequest, bool, error) {
	return l.db.GetWithdrawal(id)
}

// PendingWithdrawalCount reports how many requests under
// (amount, destination) still await a matching burn.
func (l *Ledger) PendingWithdrawalCount(amount *big.Int, destination []byte) (uint64, error) {
	key := ComputeWithdrawalKey(amount, destination)

	length, err := l.db.QueueLength(key)
	if err != nil {
		return 0, err
	}
	cursor, err := l.db.Cursor(key)
	if err != nil {
		return 0, err
	}

	return length - cursor, nil
}

func (l *Ledger) TotalLocked() (*big.Int, error) {
	return l.db.GetCounter(KeyTotalLocked)
}

func (l *Ledger) TotalMinted() (*big.Int, error) {
	return l.db.GetCounter(KeyTotalMinted)
}

func (l *Ledger) TotalBurned() (*big.Int, error) {
	return l.db.GetCounter(KeyTotalBurned)
}

// AuditLog returns the newest audit records, most recent first.
func (l *Ledger) AuditLog(limit uint64) ([]*AuditRecord, error) {
	return l.db.ListAudit(limit)
}
