// Package token is the WZEC custody ledger: standard fungible-token
// bookkeeping with mint/burn restricted to the bridge. It implements
// agreement.TokenAccount, the only surface the bridge ledger drives.

package token

import (
	"database/sql"
	"errors"
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/zecbridge/bridge-go/common"
	"github.com/zecbridge/bridge-go/database"
)

var (
	ErrZeroAmount          = errors.New("token amount is zero")
	ErrAmountOverflow      = errors.New("token amount does not fit in 64 bits")
	ErrZeroAddress         = errors.New("token account is the zero address")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

var balanceTable = `CREATE TABLE IF NOT EXISTS wzec_balance (
	account CHAR(40) PRIMARY KEY NOT NULL,
	balance BIGINT UNSIGNED NOT NULL,
	CONSTRAINT chk_balance CHECK (balance >= 0)
);`

// WZEC keeps one balance row per account. The custody account holds
// everything escrowed by the bridge; supply is conserved because every
// mutation either moves value between rows or adjusts exactly one row.
type WZEC struct {
	stmtCache *database.StmtCache
	db        *sql.DB
	custody   ethcommon.Address

	mu sync.Mutex
}

func NewWZEC(db *sql.DB, custody ethcommon.Address) (*WZEC, error) {
	if custody == (ethcommon.Address{}) {
		return nil, ErrZeroAddress
	}

	if _, err := db.Exec(balanceTable); err != nil {
		return nil, err
	}

	return &WZEC{
		stmtCache: database.NewStmtCache(db),
		db:        db,
		custody:   custody,
	}, nil
}

func (t *WZEC) Close() {
	t.stmtCache.Clear()
}

// Custody returns the bridge custody account address.
func (t *WZEC) Custody() ethcommon.Address {
	return t.custody
}

// CustodyBalance is the escrowed amount held by the bridge.
func (t *WZEC) CustodyBalance() (*big.Int, error) {
	return t.BalanceOf(t.custody)
}

func (t *WZEC) TransferIn(from ethcommon.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if from == (ethcommon.Address{}) {
		return ErrZeroAddress
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tx, err := t.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := t.subTx(tx, from, amount); err != nil {
		return err
	}
	if err := t.addTx(tx, t.custody, amount); err != nil {
		return err
	}

	return tx.Commit()
}

func (t *WZEC) Mint(to ethcommon.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if to == (ethcommon.Address{}) {
		return ErrZeroAddress
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tx, err := t.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := t.addTx(tx, to, amount); err != nil {
		return err
	}

	return tx.Commit()
}

// Burn destroys amount units held in bridge custody.
func (t *WZEC) Burn(amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tx, err := t.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := t.subTx(tx, t.custody, amount); err != nil {
		return err
	}

	return tx.Commit()
}

func (t *WZEC) BalanceOf(account ethcommon.Address) (*big.Int, error) {
	query := `SELECT balance FROM wzec_balance WHERE account = ?`
	stmt, err := t.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	var balance uint64
	if err := stmt.QueryRow(hexAddr(account)).Scan(&balance); err != nil {
		if err == sql.ErrNoRows {
			return new(big.Int), nil
		}
		return nil, err
	}

	return new(big.Int).SetUint64(balance), nil
}

func (t *WZEC) TotalSupply() (*big.Int, error) {
	query := `SELECT COALESCE(SUM(balance), 0) FROM wzec_balance`
	stmt, err := t.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	var supply uint64
	if err := stmt.QueryRow().Scan(&supply); err != nil {
		return nil, err
	}

	return new(big.Int).SetUint64(supply), nil
}

func (t *WZEC) addTx(tx *sql.Tx, account ethcommon.Address, amount *big.Int) error {
	query := `INSERT INTO wzec_balance (account, balance) VALUES (?, ?)
		ON CONFLICT(account) DO UPDATE SET balance = balance + excluded.balance`
	stmt, err := t.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return err
	}

	if _, err := stmt.Exec(hexAddr(account), amount.Uint64()); err != nil {
		return err
	}
	return nil
}

func (t *WZEC) subTx(tx *sql.Tx, account ethcommon.Address, amount *big.Int) error {
	query := `SELECT balance FROM wzec_balance WHERE account = ?`
	stmt, err := t.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return err
	}

	var balance uint64
	if err := stmt.QueryRow(hexAddr(account)).Scan(&balance); err != nil {
		if err == sql.ErrNoRows {
			return ErrInsufficientBalance
		}
		return err
	}

	if balance < amount.Uint64() {
		return ErrInsufficientBalance
	}

	update := `UPDATE wzec_balance SET balance = balance - ? WHERE account = ?`
	stmt, err = t.stmtCache.PrepareTx(tx, update)
	if err != nil {
		return err
	}

	if _, err := stmt.Exec(amount.Uint64(), hexAddr(account)); err != nil {
		return err
	}
	return nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	// balances are stored as uint64; anything wider would truncate
	if !amount.IsUint64() {
		return ErrAmountOverflow
	}
	return nil
}

func hexAddr(account ethcommon.Address) string {
	return common.ByteSliceToPureHexStr(account.Bytes())
}
