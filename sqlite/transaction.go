package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	orm "github.com/medatechnology/simpleshop"
)

// sqliteTransaction implements the orm.Transaction interface
type sqliteTransaction struct {
	tx *sql.Tx
}

// BeginTransaction starts a new database transaction. With a single pooled
// connection, nothing else may use the database until Commit or Rollback.
func (sdb *SQLiteDB) BeginTransaction() (orm.Transaction, error) {
	tx, err := sdb.db.Begin()
	if err != nil {
		return nil, orm.WrapTransactionError(err, "BEGIN")
	}
	return &sqliteTransaction{tx: tx}, nil
}

func (stx *sqliteTransaction) Commit() error {
	if stx.tx == nil {
		return orm.ErrTxClosed
	}
	err := stx.tx.Commit()
	stx.tx = nil
	if err != nil {
		return orm.WrapTransactionError(err, "COMMIT")
	}
	return nil
}

// Rollback is a no-op after Commit, so it can always be deferred
func (stx *sqliteTransaction) Rollback() error {
	if stx.tx == nil {
		return nil
	}
	err := stx.tx.Rollback()
	stx.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return orm.WrapTransactionError(err, "ROLLBACK")
	}
	return nil
}

func (stx *sqliteTransaction) ExecOneSQLParameterized(paramSQL orm.ParametereizedSQL) orm.BasicSQLResult {
	if stx.tx == nil {
		return orm.BasicSQLResult{Error: orm.ErrTxClosed}
	}
	return execStatement(stx.tx, paramSQL, "EXEC", "")
}

func (stx *sqliteTransaction) InsertOneDBRecord(record orm.DBRecord) orm.BasicSQLResult {
	if stx.tx == nil {
		return orm.BasicSQLResult{Error: orm.ErrTxClosed}
	}
	return insertOne(stx.tx, record)
}

func (stx *sqliteTransaction) InsertManyDBRecordsSameTable(records []orm.DBRecord) ([]orm.BasicSQLResult, error) {
	if stx.tx == nil {
		return nil, orm.ErrTxClosed
	}
	results, err := insertBatch(stx.tx, records)
	if err != nil {
		return results, fmt.Errorf("batch insert: %w", err)
	}
	return results, nil
}

func (stx *sqliteTransaction) SelectOneSQLParameterized(paramSQL orm.ParametereizedSQL) (orm.DBRecords, error) {
	if stx.tx == nil {
		return nil, orm.ErrTxClosed
	}
	return selectRecords(stx.tx, paramSQL, "")
}
