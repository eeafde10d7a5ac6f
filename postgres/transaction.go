package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	orm "github.com/medatechnology/simpleshop"
)

// postgresTransaction implements the orm.Transaction interface
type postgresTransaction struct {
	tx *sql.Tx
	// failed is set after a statement error; PostgreSQL rejects everything
	// but ROLLBACK from then on.
	failed error
}

// BeginTransaction starts a new database transaction
func (pdb *PostgresDB) BeginTransaction() (orm.Transaction, error) {
	tx, err := pdb.db.Begin()
	if err != nil {
		return nil, orm.WrapTransactionError(WrapPostgreSQLError(err, "BEGIN", "", ""), "BEGIN")
	}
	return &postgresTransaction{tx: tx}, nil
}

// Commit commits the transaction, or rolls it back and reports the first
// statement error if one happened.
func (ptx *postgresTransaction) Commit() error {
	if ptx.tx == nil {
		return orm.ErrTxClosed
	}
	if ptx.failed != nil {
		_ = ptx.Rollback()
		return orm.WrapTransactionError(ptx.failed, "COMMIT")
	}
	err := ptx.tx.Commit()
	ptx.tx = nil
	if err != nil {
		return orm.WrapTransactionError(WrapPostgreSQLError(err, "COMMIT", "", ""), "COMMIT")
	}
	return nil
}

// Rollback is a no-op after Commit, so it can always be deferred
func (ptx *postgresTransaction) Rollback() error {
	if ptx.tx == nil {
		return nil
	}
	err := ptx.tx.Rollback()
	ptx.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return orm.WrapTransactionError(err, "ROLLBACK")
	}
	return nil
}

func (ptx *postgresTransaction) usable() error {
	if ptx.tx == nil {
		return orm.ErrTxClosed
	}
	return ptx.failed
}

func (ptx *postgresTransaction) ExecOneSQLParameterized(paramSQL orm.ParametereizedSQL) orm.BasicSQLResult {
	if err := ptx.usable(); err != nil {
		return orm.BasicSQLResult{Error: err}
	}
	res := execStatement(ptx.tx, paramSQL, "EXEC", "")
	ptx.failed = res.Error
	return res
}

func (ptx *postgresTransaction) InsertOneDBRecord(record orm.DBRecord) orm.BasicSQLResult {
	if err := ptx.usable(); err != nil {
		return orm.BasicSQLResult{Error: err}
	}
	res := insertOne(ptx.tx, record)
	ptx.failed = res.Error
	return res
}

func (ptx *postgresTransaction) InsertManyDBRecordsSameTable(records []orm.DBRecord) ([]orm.BasicSQLResult, error) {
	if err := ptx.usable(); err != nil {
		return nil, err
	}
	results, err := insertBatch(ptx.tx, records)
	if err != nil {
		ptx.failed = err
		return results, fmt.Errorf("batch insert: %w", err)
	}
	return results, nil
}

func (ptx *postgresTransaction) SelectOneSQLParameterized(paramSQL orm.ParametereizedSQL) (orm.DBRecords, error) {
	if err := ptx.usable(); err != nil {
		return nil, err
	}
	records, err := selectRecords(ptx.tx, paramSQL, "")
	ptx.failed = err
	return records, err
}
