package database

import (
	"database/sql"
	"sync"
)

// StmtCache caches prepared sql statements, mapping query string to stmt.
type StmtCache struct {
	db *sql.DB
	m  sync.Map
}

func NewStmtCache(db *sql.DB) *StmtCache {
	return &StmtCache{db: db}
}

func (sc *StmtCache) Prepare(query string) (*sql.Stmt, error) {
	cached, _ := sc.m.Load(query)
	if cached == nil {
		stmt, err := sc.db.Prepare(query)
		if err != nil {
			return nil, err
		}
		sc.m.Store(query, stmt)
		cached = stmt
	}
	return cached.(*sql.Stmt), nil
}

// PrepareTx prepares the statement on the transaction's own
// connection. Preparing on the pool here would grab a second
// connection while tx holds its one, which breaks per-connection
// databases and can deadlock a size-one pool. The returned stmt is
// closed together with tx, not with the cache.
func (sc *StmtCache) PrepareTx(tx *sql.Tx, query string) (*sql.Stmt, error) {
	return tx.Prepare(query)
}

func (sc *StmtCache) Clear() {
	sc.m.Range(func(k, v interface{}) bool {
		_ = v.(*sql.Stmt).Close()
		sc.m.Delete(k)
		return true
	})
}
