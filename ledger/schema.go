package ledger

import "strings"

var (
	strZeroBytes20 = strings.Repeat("0", 40)

	// append-only table of withdrawal requests. The autoincrement id is
	// the monotonic request id; rows are never deleted or reordered.
	withdrawalTable = `CREATE TABLE IF NOT EXISTS withdrawal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		requester CHAR(40) NOT NULL,
		destination CHAR(40) NOT NULL,
		amount BIGINT UNSIGNED NOT NULL,
		queueKey CHAR(64) NOT NULL,
		processed BOOLEAN NOT NULL DEFAULT 0,
		CONSTRAINT chk_amount CHECK (amount > 0),
		CONSTRAINT chk_requester CHECK (requester != '` + strZeroBytes20 + `'),
		CONSTRAINT chk_destination CHECK (destination != '` + strZeroBytes20 + `'),
		CONSTRAINT chk_processed CHECK (processed IN (0, 1))
	);
	CREATE INDEX IF NOT EXISTS idx_withdrawal_queueKey ON withdrawal (queueKey);`

	// per-key consumption cursor: counts how many requests under the key
	// have been matched. A cursor only ever advances.
	cursorTable = `CREATE TABLE IF NOT EXISTS queue_cursor (
		queueKey CHAR(64) PRIMARY KEY NOT NULL,
		consumed BIGINT UNSIGNED NOT NULL,
		CONSTRAINT chk_consumed CHECK (consumed >= 0)
	);`

	// table stores key-value pairs (checkpoint fields, aggregate
	// counters). Both key and value are a 32-byte hex string without
	// prefix '0x'
	kvTable = `CREATE TABLE IF NOT EXISTS kv (
		key CHAR(64) PRIMARY KEY NOT NULL,
		value CHAR(64) NOT NULL
	);`

	// audit log of every accepted mutation; ledger history can be
	// reconstructed from this table alone.
	auditTable = `CREATE TABLE IF NOT EXISTS audit (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		kind VARCHAR(24) NOT NULL,
		payload TEXT NOT NULL,
		CONSTRAINT chk_kind CHECK (kind IN
			('checkpoint-updated', 'withdrawal-requested', 'withdrawal-processed', 'mint-processed'))
	);`
)
