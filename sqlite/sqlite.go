// Package sqlite provides an embedded SQLite implementation of orm.Database on
// top of the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	orm "github.com/medatechnology/simpleshop"
	_ "modernc.org/sqlite"
)

const (
	DriverName            = "sqlite"
	PREFIX_SQLITE_TABLE   = "sqlite_"
	defaultSchemaOrdering = "type, tbl_name, name"
)

var _ orm.Database = (*SQLiteDB)(nil)

// SQLiteDB implements the orm.Database interface for SQLite.
type SQLiteDB struct {
	db        *sql.DB
	config    SQLiteConfig
	startTime time.Time
}

// NewDatabase opens (creating if needed) the SQLite database described by config.
func NewDatabase(config SQLiteConfig) (*SQLiteDB, error) {
	dsn, err := config.ToDSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSQLiteConnectionFailed, err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxOpenConns)
	db.SetConnMaxIdleTime(DefaultConnMaxIdleTime)
	db.SetConnMaxLifetime(0)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrSQLiteConnectionFailed, WrapSQLiteError(err, "PING", "", ""))
	}

	return &SQLiteDB{
		db:        db,
		config:    config,
		startTime: time.Now(),
	}, nil
}

// NewMemoryDatabase opens a private in-memory database, mostly for tests.
func NewMemoryDatabase() (*SQLiteDB, error) {
	return NewDatabase(*NewMemoryConfig())
}

func (sdb *SQLiteDB) Dialect() orm.Dialect {
	return orm.DialectSQLite
}

func (sdb *SQLiteDB) Close() error {
	return sdb.db.Close()
}

func (sdb *SQLiteDB) IsConnected() bool {
	if sdb.db == nil {
		return false
	}
	return sdb.db.Ping() == nil
}

// SelectOneSQLParameterized runs a query and returns every row, possibly none.
func (sdb *SQLiteDB) SelectOneSQLParameterized(paramSQL orm.ParametereizedSQL) (orm.DBRecords, error) {
	return selectRecords(sdb.db, paramSQL, "")
}

// SelectOnlyOneSQLParameterized runs a query that must return exactly one row.
func (sdb *SQLiteDB) SelectOnlyOneSQLParameterized(paramSQL orm.ParametereizedSQL) (orm.DBRecord, error) {
	records, err := sdb.SelectOneSQLParameterized(paramSQL)
	if err != nil {
		return orm.DBRecord{}, err
	}
	return orm.OnlyOne(records)
}

// SelectManyWithCondition selects from tableName filtered by condition; a nil
// condition selects the whole table.
func (sdb *SQLiteDB) SelectManyWithCondition(tableName string, condition *orm.Condition) ([]orm.DBRecord, error) {
	if condition == nil {
		condition = &orm.Condition{}
	}
	query, params, err := condition.ToSelectString(tableName)
	if err != nil {
		return nil, err
	}
	return selectRecords(sdb.db, orm.ParametereizedSQL{Query: query, Values: params}, tableName)
}

func (sdb *SQLiteDB) ExecOneSQL(sqlStmt string) orm.BasicSQLResult {
	return execStatement(sdb.db, orm.ParametereizedSQL{Query: sqlStmt}, "EXEC", "")
}

func (sdb *SQLiteDB) ExecOneSQLParameterized(paramSQL orm.ParametereizedSQL) orm.BasicSQLResult {
	return execStatement(sdb.db, paramSQL, "EXEC", "")
}

// ExecManySQL runs every statement in one transaction.
func (sdb *SQLiteDB) ExecManySQL(sqls []string) ([]orm.BasicSQLResult, error) {
	tx, err := sdb.db.Begin()
	if err != nil {
		return nil, orm.WrapTransactionError(err, "BEGIN")
	}
	defer tx.Rollback()

	results := make([]orm.BasicSQLResult, 0, len(sqls))
	for _, s := range sqls {
		res := execStatement(tx, orm.ParametereizedSQL{Query: s}, "EXEC", "")
		results = append(results, res)
		if res.Error != nil {
			return results, res.Error
		}
	}
	if err := tx.Commit(); err != nil {
		return results, orm.WrapTransactionError(err, "COMMIT")
	}
	return results, nil
}

func (sdb *SQLiteDB) InsertOneDBRecord(record orm.DBRecord) orm.BasicSQLResult {
	return insertOne(sdb.db, record)
}

// InsertManyDBRecordsSameTable inserts records of one table atomically.
func (sdb *SQLiteDB) InsertManyDBRecordsSameTable(records []orm.DBRecord) ([]orm.BasicSQLResult, error) {
	tx, err := sdb.db.Begin()
	if err != nil {
		return nil, orm.WrapTransactionError(err, "BEGIN")
	}
	defer tx.Rollback()

	results, err := insertBatch(tx, records)
	if err != nil {
		return results, err
	}
	if err := tx.Commit(); err != nil {
		return results, orm.WrapTransactionError(err, "COMMIT")
	}
	return results, nil
}

// GetSchema lists sqlite_master, hiding sqlite_* internals when asked.
func (sdb *SQLiteDB) GetSchema(hideInternal bool) []orm.SchemaStruct {
	res, err := sdb.SelectManyWithCondition("sqlite_master", &orm.Condition{
		OrderBy: []string{defaultSchemaOrdering},
	})
	if err != nil {
		orm.LogErrorWithContext(nil, err)
		return nil
	}

	schemas := make([]orm.SchemaStruct, 0, len(res))
	for _, t := range res {
		tableName, _ := t.Text("tbl_name")
		if hideInternal && strings.HasPrefix(tableName, PREFIX_SQLITE_TABLE) {
			continue
		}
		schemas = append(schemas, recordToSchema(t))
	}
	return schemas
}

// Status reports engine version, file size and pool usage.
func (sdb *SQLiteDB) Status() (orm.NodeStatusStruct, error) {
	var status orm.NodeStatusStruct
	status.DBMS = "sqlite"
	status.DBMSDriver = "modernc.org/sqlite"
	status.URL = sdb.config.Path
	status.NodeID = sdb.config.Path
	status.StartTime = sdb.startTime
	status.Uptime = time.Since(sdb.startTime)
	status.IsLeader = true
	status.Nodes = 1
	status.Mode = "rw"
	status.MaxPool = sdb.config.MaxOpenConns

	rec, err := sdb.SelectOnlyOneSQLParameterized(orm.ParametereizedSQL{Query: "SELECT sqlite_version() AS version"})
	if err != nil {
		return status, fmt.Errorf("failed to get SQLite version: %w", err)
	}
	status.Version, _ = rec.Text("version")

	if !sdb.config.IsMemory() {
		if fi, err := os.Stat(sdb.config.Path); err == nil {
			status.DBSize = fi.Size()
		}
	}
	return status, nil
}
