package rqlite

import (
	orm "github.com/medatechnology/simpleshop"
)

// rqliteTransaction implements the orm.Transaction interface.
// rqlite keeps no transaction state between requests, so writes are buffered
// and sent as one atomic request on Commit. Results returned before Commit
// carry no LastInsertID, and reads inside the transaction do not see the
// buffered writes.
type rqliteTransaction struct {
	db         *RQLiteDB
	statements []orm.ParametereizedSQL
	tables     []string // table per statement, for error context
	closed     bool
}

// BeginTransaction starts an empty write buffer
func (db *RQLiteDB) BeginTransaction() (orm.Transaction, error) {
	return &rqliteTransaction{db: db}, nil
}

func (tx *rqliteTransaction) buffer(p orm.ParametereizedSQL, table string) {
	tx.statements = append(tx.statements, p)
	tx.tables = append(tx.tables, table)
}

// Commit sends every buffered statement in one request
func (tx *rqliteTransaction) Commit() error {
	if tx.closed {
		return orm.ErrTxClosed
	}
	tx.closed = true
	results, err := tx.db.write(tx.statements, "COMMIT", "")
	if err != nil {
		for i, r := range results {
			if r.Error != nil && i < len(tx.tables) {
				return orm.WrapTransactionError(WrapRQLiteError(r.Error, "COMMIT", tx.tables[i], tx.statements[i].Query), "COMMIT")
			}
		}
		return orm.WrapTransactionError(err, "COMMIT")
	}
	return nil
}

// Rollback drops the buffer; nothing has reached the server yet
func (tx *rqliteTransaction) Rollback() error {
	tx.closed = true
	tx.statements = nil
	tx.tables = nil
	return nil
}

func (tx *rqliteTransaction) ExecOneSQLParameterized(paramSQL orm.ParametereizedSQL) orm.BasicSQLResult {
	if tx.closed {
		return orm.BasicSQLResult{Error: orm.ErrTxClosed}
	}
	tx.buffer(paramSQL, "")
	return orm.BasicSQLResult{}
}

func (tx *rqliteTransaction) InsertOneDBRecord(record orm.DBRecord) orm.BasicSQLResult {
	if tx.closed {
		return orm.BasicSQLResult{Error: orm.ErrTxClosed}
	}
	if err := orm.ValidateTableName(record.TableName); err != nil {
		return orm.BasicSQLResult{Error: err}
	}
	query, values := record.ToInsertSQLParameterized()
	tx.buffer(orm.ParametereizedSQL{Query: query, Values: values}, record.TableName)
	return orm.BasicSQLResult{RowsAffected: 1}
}

func (tx *rqliteTransaction) InsertManyDBRecordsSameTable(records []orm.DBRecord) ([]orm.BasicSQLResult, error) {
	if tx.closed {
		return nil, orm.ErrTxClosed
	}
	tableName, err := orm.DBRecords(records).SameTable()
	if err != nil {
		return nil, err
	}
	statements := orm.DBRecords(records).ToInsertSQLParameterized()
	results := make([]orm.BasicSQLResult, 0, len(statements))
	for _, statement := range statements {
		tx.buffer(statement, tableName)
		results = append(results, orm.BasicSQLResult{RowsAffected: len(statement.Values) / len(records[0].Data)})
	}
	return results, nil
}

// SelectOneSQLParameterized reads committed data only
func (tx *rqliteTransaction) SelectOneSQLParameterized(paramSQL orm.ParametereizedSQL) (orm.DBRecords, error) {
	if tx.closed {
		return nil, orm.ErrTxClosed
	}
	return tx.db.query(paramSQL, "")
}
