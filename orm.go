// Package orm is the small data layer the shop schema is built on. Backends
// (sqlite, postgres, rqlite) implement Database; callers write queries with
// '?' placeholders and the backend rebinds them for its dialect.
package orm

// Dialect names the SQL flavour a backend speaks.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectRQLite   Dialect = "rqlite"
)

// IsSQLiteFamily is true for engines that run SQLite underneath (sqlite and rqlite).
func (d Dialect) IsSQLiteFamily() bool {
	return d == DialectSQLite || d == DialectRQLite
}

type Database interface {
	Dialect() Dialect
	GetSchema(hideInternal bool) []SchemaStruct
	Status() (NodeStatusStruct, error)

	SelectOneSQLParameterized(ParametereizedSQL) (DBRecords, error)    // zero rows is not an error
	SelectOnlyOneSQLParameterized(ParametereizedSQL) (DBRecord, error) // ErrSQLNoRows or ErrSQLMoreThanOneRow unless exactly one
	SelectManyWithCondition(string, *Condition) ([]DBRecord, error)

	ExecOneSQL(string) BasicSQLResult
	ExecOneSQLParameterized(ParametereizedSQL) BasicSQLResult
	ExecManySQL([]string) ([]BasicSQLResult, error) // all or nothing

	InsertOneDBRecord(DBRecord) BasicSQLResult
	InsertManyDBRecordsSameTable([]DBRecord) ([]BasicSQLResult, error)

	BeginTransaction() (Transaction, error)

	IsConnected() bool
	Close() error

	// There is no UPDATE or DELETE from a DBRecord: a record cannot tell which
	// fields belong in SET and which in WHERE. Use ExecOneSQLParameterized.
}

// Transaction groups writes so they commit or roll back together. Reads inside
// a transaction see its own uncommitted writes, except on rqlite where writes
// are buffered until Commit.
type Transaction interface {
	Commit() error
	Rollback() error

	ExecOneSQLParameterized(ParametereizedSQL) BasicSQLResult
	InsertOneDBRecord(DBRecord) BasicSQLResult
	InsertManyDBRecordsSameTable([]DBRecord) ([]BasicSQLResult, error)
	SelectOneSQLParameterized(ParametereizedSQL) (DBRecords, error)
}
