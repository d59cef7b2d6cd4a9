package ledger

import (
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"github.com/zecbridge/bridge-go/common"
)

func newTestLedgerDBEnv(t *testing.T) (*LedgerDB, func()) {
	sqlDB := getMemoryDB()
	ldb, err := NewLedgerDB(sqlDB)
	assert.NoError(t, err)
	return ldb, func() {
		ldb.Close()
		sqlDB.Close()
	}
}

func TestKeyedValue(t *testing.T) {
	ldb, close := newTestLedgerDBEnv(t)
	defer close()

	key := common.RandBytes32()
	_, ok, err := ldb.GetKeyedValue(key)
	assert.NoError(t, err)
	assert.False(t, ok)

	value := common.RandBytes32()
	tx, err := ldb.Begin()
	assert.NoError(t, err)
	assert.NoError(t, ldb.SetKeyedValueTx(tx, key, value))
	assert.NoError(t, tx.Commit())

	stored, ok, err := ldb.GetKeyedValue(key)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, value, [32]byte(stored))
}

func TestCheckpointRoundTrip(t *testing.T) {
	ldb, close := newTestLedgerDBEnv(t)
	defer close()

	_, ok, err := ldb.GetCheckpoint()
	assert.NoError(t, err)
	assert.False(t, ok)

	cp := RandCheckpoint(10, 20)
	tx, err := ldb.Begin()
	assert.NoError(t, err)
	assert.NoError(t, ldb.SetCheckpointTx(tx, cp))
	assert.NoError(t, tx.Commit())

	stored, ok, err := ldb.GetCheckpoint()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, stored.Equal(cp))
}

func TestInsertAndGetWithdrawal(t *testing.T) {
	ldb, close := newTestLedgerDBEnv(t)
	defer close()

	w := RandWithdrawal()

	tx, err := ldb.Begin()
	assert.NoError(t, err)
	id, err := ldb.InsertWithdrawalTx(tx, w)
	assert.NoError(t, err)
	assert.NoError(t, tx.Commit())
	assert.Equal(t, uint64(1), id)

	stored, ok, err := ldb.GetWithdrawal(id)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, stored.Id)
	assert.Equal(t, w.Requester, stored.Requester)
	assert.Equal(t, w.Amount, stored.Amount)
	assert.Equal(t, w.Destination, stored.Destination)
	assert.Equal(t, w.Key, stored.Key)
	assert.False(t, stored.Processed)

	// unknown id
	_, ok, err = ldb.GetWithdrawal(999)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestWithdrawalIdsAreMonotonic(t *testing.T) {
	ldb, close := newTestLedgerDBEnv(t)
	defer close()

	for i := uint64(1); i <= 3; i++ {
		tx, err := ldb.Begin()
		assert.NoError(t, err)
		id, err := ldb.InsertWithdrawalTx(tx, RandWithdrawal())
		assert.NoError(t, err)
		assert.NoError(t, tx.Commit())
		assert.Equal(t, i, id)
	}
}

func TestQueueCursor(t *testing.T) {
	ldb, close := newTestLedgerDBEnv(t)
	defer close()

	key := ethcommon.Hash(common.RandBytes32())
	cursor, err := ldb.Cursor(key)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), cursor)

	tx, err := ldb.Begin()
	assert.NoError(t, err)
	assert.NoError(t, ldb.setCursorTx(tx, key, 2))
	assert.NoError(t, tx.Commit())

	cursor, err = ldb.Cursor(key)
	assert.NoError(t, err)
	assert.Equal(t, uint64(2), cursor)
}

func TestWithdrawalAtKeepsFIFOOrder(t *testing.T) {
	ldb, close := newTestLedgerDBEnv(t)
	defer close()

	// two requests under the same key, one under a different key between them
	w1 := RandWithdrawal()
	w2 := w1.Clone()
	w2.Requester = common.RandEthAddress()
	other := RandWithdrawal()

	var ids []uint64
	for _, w := range []*WithdrawalRequest{w1, other, w2} {
		tx, err := ldb.Begin()
		assert.NoError(t, err)
		id, err := ldb.InsertWithdrawalTx(tx, w)
		assert.NoError(t, err)
		assert.NoError(t, tx.Commit())
		ids = append(ids, id)
	}

	tx, err := ldb.Begin()
	assert.NoError(t, err)
	first, ok, err := ldb.WithdrawalAtTx(tx, w1.Key, 0)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ids[0], first.Id)

	second, ok, err := ldb.WithdrawalAtTx(tx, w1.Key, 1)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ids[2], second.Id)

	_, ok, err = ldb.WithdrawalAtTx(tx, w1.Key, 2)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, tx.Rollback())
}

func TestAuditLog(t *testing.T) {
	ldb, close := newTestLedgerDBEnv(t)
	defer close()

	tx, err := ldb.Begin()
	assert.NoError(t, err)
	assert.NoError(t, ldb.AppendAuditTx(tx, AuditWithdrawalRequested, []byte(`{"id":1}`)))
	assert.NoError(t, ldb.AppendAuditTx(tx, AuditCheckpointUpdated, []byte(`{}`)))
	assert.NoError(t, tx.Commit())

	records, err := ldb.ListAudit(10)
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	// newest first
	assert.Equal(t, AuditCheckpointUpdated, records[0].Kind)
	assert.Equal(t, AuditWithdrawalRequested, records[1].Kind)
}
