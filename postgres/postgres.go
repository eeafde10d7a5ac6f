// Package postgres provides a PostgreSQL implementation for the orm.Database interface.
// Either lib/pq or pgx can drive the connection, chosen by PostgresConfig.Driver.
package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	orm "github.com/medatechnology/simpleshop"
)

var _ orm.Database = (*PostgresDB)(nil)

// PostgresDB implements the orm.Database interface for PostgreSQL.
type PostgresDB struct {
	db        *sql.DB
	config    PostgresConfig
	startTime time.Time
}

// NewDatabase creates a new PostgreSQL database instance.
func NewDatabase(config PostgresConfig) (*PostgresDB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	connStr, err := config.ToSimpleDSN()
	if err != nil {
		return nil, fmt.Errorf("failed to build DSN: %w", err)
	}

	db, err := sql.Open(config.Driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPostgresConnectionFailed, WrapPostgreSQLError(err, "CONNECT", "", ""))
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrPostgresConnectionFailed, WrapPostgreSQLError(err, "PING", "", ""))
	}
	if err = validatePostgreSQLConnection(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection validation failed: %w", err)
	}

	return &PostgresDB{
		db:        db,
		config:    config,
		startTime: time.Now(),
	}, nil
}

// NewDatabaseFromDSN parses dsn (URL or key=value) and connects
func NewDatabaseFromDSN(dsn string) (*PostgresDB, error) {
	config, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return NewDatabase(*config)
}

func (pdb *PostgresDB) Dialect() orm.Dialect {
	return orm.DialectPostgres
}

func (pdb *PostgresDB) Close() error {
	return pdb.db.Close()
}

func (pdb *PostgresDB) IsConnected() bool {
	if pdb.db == nil {
		return false
	}
	return pdb.db.Ping() == nil
}

// SelectOneSQLParameterized runs one query and returns every row, possibly none.
func (pdb *PostgresDB) SelectOneSQLParameterized(paramSQL orm.ParametereizedSQL) (orm.DBRecords, error) {
	return selectRecords(pdb.db, paramSQL, "")
}

// SelectOnlyOneSQLParameterized runs a query that must return exactly one row.
func (pdb *PostgresDB) SelectOnlyOneSQLParameterized(paramSQL orm.ParametereizedSQL) (orm.DBRecord, error) {
	records, err := pdb.SelectOneSQLParameterized(paramSQL)
	if err != nil {
		return orm.DBRecord{}, err
	}
	return orm.OnlyOne(records)
}

// SelectManyWithCondition selects from tableName filtered by condition
func (pdb *PostgresDB) SelectManyWithCondition(tableName string, condition *orm.Condition) ([]orm.DBRecord, error) {
	if condition == nil {
		condition = &orm.Condition{}
	}
	query, params, err := condition.ToSelectString(tableName)
	if err != nil {
		return nil, err
	}
	return selectRecords(pdb.db, orm.ParametereizedSQL{Query: query, Values: params}, tableName)
}

func (pdb *PostgresDB) ExecOneSQL(sqlStmt string) orm.BasicSQLResult {
	return execStatement(pdb.db, orm.ParametereizedSQL{Query: sqlStmt}, "EXEC", "")
}

func (pdb *PostgresDB) ExecOneSQLParameterized(paramSQL orm.ParametereizedSQL) orm.BasicSQLResult {
	return execStatement(pdb.db, paramSQL, "EXEC", "")
}

// ExecManySQL runs the statements in one transaction, stopping at the first error.
func (pdb *PostgresDB) ExecManySQL(sqls []string) ([]orm.BasicSQLResult, error) {
	tx, err := pdb.db.Begin()
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

// InsertOneDBRecord inserts a single DBRecord. LastInsertID is filled from the
// returned id column, when the table has one.
func (pdb *PostgresDB) InsertOneDBRecord(record orm.DBRecord) orm.BasicSQLResult {
	return insertOne(pdb.db, record)
}

// InsertManyDBRecordsSameTable inserts records of one table atomically.
func (pdb *PostgresDB) InsertManyDBRecordsSameTable(records []orm.DBRecord) ([]orm.BasicSQLResult, error) {
	tx, err := pdb.db.Begin()
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

const schemaQuery = `
SELECT 'table' AS type, c.relname AS name, c.relname AS tbl_name, c.oid::bigint AS rootpage,
       'CREATE TABLE ' || c.relname || ' (' || string_agg(a.attname || ' ' || format_type(a.atttypid, a.atttypmod), ', ' ORDER BY a.attnum) || ')' AS sql
  FROM pg_class c
  JOIN pg_namespace n ON n.oid = c.relnamespace
  JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum > 0 AND NOT a.attisdropped
 WHERE c.relkind = 'r' AND n.nspname = current_schema()
 GROUP BY c.relname, c.oid
UNION ALL
SELECT 'index', indexname, tablename, 0::bigint, indexdef
  FROM pg_indexes
 WHERE schemaname = current_schema()
 ORDER BY 1, 3, 2`

// GetSchema lists tables and indexes of the current schema. Catalog schemas are
// never part of current_schema, so hideInternal only drops pg_ prefixed names.
func (pdb *PostgresDB) GetSchema(hideInternal bool) []orm.SchemaStruct {
	rows, err := selectRecords(pdb.db, orm.ParametereizedSQL{Query: schemaQuery}, "pg_catalog")
	if err != nil {
		orm.LogErrorWithContext(nil, err)
		return nil
	}

	schemas := make([]orm.SchemaStruct, 0, len(rows))
	for _, rec := range rows {
		var s orm.SchemaStruct
		s.ObjectType, _ = rec.Text("type")
		s.ObjectName, _ = rec.Text("name")
		s.TableName, _ = rec.Text("tbl_name")
		s.SQLCommand, _ = rec.Text("sql")
		rootPage, _ := rec.Int64("rootpage")
		s.RootPage = int(rootPage)
		if hideInternal && strings.HasPrefix(s.ObjectName, "pg_") {
			continue
		}
		schemas = append(schemas, s)
	}
	return schemas
}

// Status reports the server version, database size and pool usage.
func (pdb *PostgresDB) Status() (orm.NodeStatusStruct, error) {
	var status orm.NodeStatusStruct
	status.DBMS = "postgresql"
	status.DBMSDriver = pdb.config.Driver
	status.URL = fmt.Sprintf("postgres://%s@%s:%d/%s",
		pdb.config.User, pdb.config.Host, pdb.config.Port, pdb.config.DBName)
	status.NodeID = fmt.Sprintf("%s:%d", pdb.config.Host, pdb.config.Port)
	status.StartTime = pdb.startTime
	status.Uptime = time.Since(pdb.startTime)
	status.IsLeader = true
	status.Nodes = 1
	status.MaxPool = pdb.config.MaxOpenConns

	rec, err := pdb.SelectOnlyOneSQLParameterized(orm.ParametereizedSQL{Query: "SELECT version() AS version"})
	if err != nil {
		return status, fmt.Errorf("failed to get PostgreSQL version: %w", err)
	}
	version, _ := rec.Text("version")
	status.Version = shortVersion(version)

	var readOnly string
	if err := pdb.db.QueryRow("SHOW transaction_read_only").Scan(&readOnly); err == nil && readOnly == "on" {
		status.Mode = "ro"
	} else {
		status.Mode = "rw"
	}

	stats := getPostgreSQLStats(pdb.db, pdb.config.DBName)
	status.DBSize = stats.DBSize

	dbStats := pdb.db.Stats()
	status.Leader = fmt.Sprintf("%s (open:%d idle:%d in use:%d cache hit:%.1f%%)",
		status.NodeID, dbStats.OpenConnections, dbStats.Idle, dbStats.InUse, stats.CacheHitRatio())
	status.Peers = map[int]orm.StatusStruct{0: status.StatusStruct}
	return status, nil
}
