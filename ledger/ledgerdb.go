package ledger

import (
	"database/sql"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/zecbridge/bridge-go/agreement"
	"github.com/zecbridge/bridge-go/common"
	"github.com/zecbridge/bridge-go/database"
)

// kv keys for the persisted checkpoint and aggregate counters
var (
	KeyZecRoot  = crypto.Keccak256Hash([]byte("KeyZecRoot"))
	KeyZecBlock = crypto.Keccak256Hash([]byte("KeyZecBlock"))
	KeyEthRoot  = crypto.Keccak256Hash([]byte("KeyEthRoot"))
	KeyEthBlock = crypto.Keccak256Hash([]byte("KeyEthBlock"))

	KeyTotalLocked = crypto.Keccak256Hash([]byte("KeyTotalLocked"))
	KeyTotalMinted = crypto.Keccak256Hash([]byte("KeyTotalMinted"))
	KeyTotalBurned = crypto.Keccak256Hash([]byte("KeyTotalBurned"))
)

const withdrawalParamList = " id, requester, destination, amount, queueKey, processed "

// LedgerDB persists the entire externally visible bridge state:
// the latest checkpoint, the aggregate counters, the append-only
// withdrawal table and the per-key queue cursors, plus the audit log.
type LedgerDB struct {
	db        *sql.DB
	stmtCache *database.StmtCache
}

func NewLedgerDB(db *sql.DB) (*LedgerDB, error) {
	if _, err := db.Exec(withdrawalTable + cursorTable + kvTable + auditTable); err != nil {
		return nil, err
	}

	return &LedgerDB{
		db:        db,
		stmtCache: database.NewStmtCache(db),
	}, nil
}

func (ldb *LedgerDB) Close() {
	ldb.stmtCache.Clear()
}

// Begin opens the transaction that scopes one ledger mutation.
func (ldb *LedgerDB) Begin() (*sql.Tx, error) {
	return ldb.db.Begin()
}

func (ldb *LedgerDB) GetKeyedValue(key ethcommon.Hash) (ethcommon.Hash, bool, error) {
	query := `SELECT value FROM kv WHERE key = ?`
	stmt, err := ldb.stmtCache.Prepare(query)
	if err != nil {
		return ethcommon.Hash{}, false, err
	}

	var value string
	if err := stmt.QueryRow(key.String()[2:]).Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return ethcommon.Hash{}, false, nil
		}
		return ethcommon.Hash{}, false, err
	}

	return common.HexStrToBytes32(value), true, nil
}

func (ldb *LedgerDB) SetKeyedValueTx(tx *sql.Tx, key, value ethcommon.Hash) error {
	query := `INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`
	stmt, err := ldb.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return err
	}

	if _, err := stmt.Exec(key.String()[2:], value.String()[2:]); err != nil {
		return err
	}

	return nil
}

// GetCheckpoint loads the latest checkpoint. ok == false means the
// ledger has no prior state (genesis).
func (ldb *LedgerDB) GetCheckpoint() (*agreement.Checkpoint, bool, error) {
	zecRoot, ok, err := ldb.GetKeyedValue(KeyZecRoot)
	if err != nil || !ok {
		return nil, false, err
	}

	zecBlock, _, err := ldb.GetKeyedValue(KeyZecBlock)
	if err != nil {
		return nil, false, err
	}
	ethRoot, _, err := ldb.GetKeyedValue(KeyEthRoot)
	if err != nil {
		return nil, false, err
	}
	ethBlock, _, err := ldb.GetKeyedValue(KeyEthBlock)
	if err != nil {
		return nil, false, err
	}

	return &agreement.Checkpoint{
		ZecRoot:  zecRoot,
		ZecBlock: zecBlock.Big().Uint64(),
		EthRoot:  ethRoot,
		EthBlock: ethBlock.Big().Uint64(),
	}, true, nil
}

func (ldb *LedgerDB) SetCheckpointTx(tx *sql.Tx, cp *agreement.Checkpoint) error {
	pairs := []struct {
		key   ethcommon.Hash
		value ethcommon.Hash
	}{
		{KeyZecRoot, cp.ZecRoot},
		{KeyZecBlock, common.Uint64ToBytes32(cp.ZecBlock)},
		{KeyEthRoot, cp.EthRoot},
		{KeyEthBlock, common.Uint64ToBytes32(cp.EthBlock)},
	}

	for _, p := range pairs {
		if err := ldb.SetKeyedValueTx(tx, p.key, p.value); err != nil {
			return err
		}
	}

	return nil
}

// GetCounter reads an aggregate counter; a missing row counts as zero.
func (ldb *LedgerDB) GetCounter(key ethcommon.Hash) (*big.Int, error) {
	value, ok, err := ldb.GetKeyedValue(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(big.Int), nil
	}
	return value.Big(), nil
}

func (ldb *LedgerDB) getCounterTx(tx *sql.Tx, key ethcommon.Hash) (*big.Int, error) {
	query := `SELECT value FROM kv WHERE key = ?`
	stmt, err := ldb.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return nil, err
	}

	var value string
	if err := stmt.QueryRow(key.String()[2:]).Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return new(big.Int), nil
		}
		return nil, err
	}

	return ethcommon.Hash(common.HexStrToBytes32(value)).Big(), nil
}

// AddCounterTx adds delta (may be negative) to the counter under key.
func (ldb *LedgerDB) AddCounterTx(tx *sql.Tx, key ethcommon.Hash, delta *big.Int) error {
	current, err := ldb.getCounterTx(tx, key)
	if err != nil {
		return err
	}

	next := new(big.Int).Add(current, delta)
	return ldb.SetKeyedValueTx(tx, key, common.BigInt2Bytes32(next))
}

// InsertWithdrawalTx appends a withdrawal request and returns the
// allocated monotonic id.
func (ldb *LedgerDB) InsertWithdrawalTx(tx *sql.Tx, w *WithdrawalRequest) (uint64, error) {
	query := `INSERT INTO withdrawal (requester, destination, amount, queueKey, processed) VALUES (?, ?, ?, ?, ?)`
	stmt, err := ldb.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return 0, err
	}

	s := new(sqlWithdrawal).encode(w)
	res, err := stmt.Exec(s.Requester, s.Destination, s.Amount, s.QueueKey, s.Processed)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (ldb *LedgerDB) GetWithdrawal(id uint64) (*WithdrawalRequest, bool, error) {
	query := `SELECT` + withdrawalParamList + `FROM withdrawal WHERE id = ?`
	stmt, err := ldb.stmtCache.Prepare(query)
	if err != nil {
		return nil, false, err
	}

	return scanWithdrawal(stmt.QueryRow(id))
}

// WithdrawalAtTx returns the request at the given position within the
// key's FIFO queue (position 0 is the oldest request under the key).
func (ldb *LedgerDB) WithdrawalAtTx(tx *sql.Tx, key ethcommon.Hash, position uint64) (*WithdrawalRequest, bool, error) {
	query := `SELECT` + withdrawalParamList + `FROM withdrawal WHERE queueKey = ? ORDER BY id LIMIT 1 OFFSET ?`
	stmt, err := ldb.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return nil, false, err
	}

	return scanWithdrawal(stmt.QueryRow(key.String()[2:], position))
}

func (ldb *LedgerDB) MarkProcessedTx(tx *sql.Tx, id uint64) error {
	query := `UPDATE withdrawal SET processed = 1 WHERE id = ?`
	stmt, err := ldb.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return err
	}

	if _, err := stmt.Exec(id); err != nil {
		return err
	}
	return nil
}

func (ldb *LedgerDB) QueueLength(key ethcommon.Hash) (uint64, error) {
	query := `SELECT COUNT(*) FROM withdrawal WHERE queueKey = ?`
	stmt, err := ldb.stmtCache.Prepare(query)
	if err != nil {
		return 0, err
	}

	var count uint64
	if err := stmt.QueryRow(key.String()[2:]).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (ldb *LedgerDB) queueLengthTx(tx *sql.Tx, key ethcommon.Hash) (uint64, error) {
	query := `SELECT COUNT(*) FROM withdrawal WHERE queueKey = ?`
	stmt, err := ldb.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return 0, err
	}

	var count uint64
	if err := stmt.QueryRow(key.String()[2:]).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Cursor returns how many requests under the key have been consumed.
func (ldb *LedgerDB) Cursor(key ethcommon.Hash) (uint64, error) {
	query := `SELECT consumed FROM queue_cursor WHERE queueKey = ?`
	stmt, err := ldb.stmtCache.Prepare(query)
	if err != nil {
		return 0, err
	}

	var consumed uint64
	if err := stmt.QueryRow(key.String()[2:]).Scan(&consumed); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return consumed, nil
}

func (ldb *LedgerDB) cursorTx(tx *sql.Tx, key ethcommon.Hash) (uint64, error) {
	query := `SELECT consumed FROM queue_cursor WHERE queueKey = ?`
	stmt, err := ldb.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return 0, err
	}

	var consumed uint64
	if err := stmt.QueryRow(key.String()[2:]).Scan(&consumed); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return consumed, nil
}

func (ldb *LedgerDB) setCursorTx(tx *sql.Tx, key ethcommon.Hash, consumed uint64) error {
	query := `INSERT OR REPLACE INTO queue_cursor (queueKey, consumed) VALUES (?, ?)`
	stmt, err := ldb.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return err
	}

	if _, err := stmt.Exec(key.String()[2:], consumed); err != nil {
		return err
	}
	return nil
}

// AppendAuditTx records one audit row; payload is a JSON document.
func (ldb *LedgerDB) AppendAuditTx(tx *sql.Tx, kind string, payload []byte) error {
	query := `INSERT INTO audit (kind, payload) VALUES (?, ?)`
	stmt, err := ldb.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return err
	}

	if _, err := stmt.Exec(kind, string(payload)); err != nil {
		return err
	}
	return nil
}

// AuditRecord is one row of the audit log.
type AuditRecord struct {
	Seq     uint64 `json:"seq"`
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

func (ldb *LedgerDB) ListAudit(limit uint64) ([]*AuditRecord, error) {
	query := `SELECT seq, kind, payload FROM audit ORDER BY seq DESC LIMIT ?`
	stmt, err := ldb.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*AuditRecord
	for rows.Next() {
		var r AuditRecord
		if err := rows.Scan(&r.Seq, &r.Kind, &r.Payload); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}

	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWithdrawal(row rowScanner) (*WithdrawalRequest, bool, error) {
	var s sqlWithdrawal
	if err := row.Scan(
		&s.Id,
		&s.Requester,
		&s.Destination,
		&s.Amount,
		&s.QueueKey,
		&s.Processed,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	return s.decode(), true, nil
}
