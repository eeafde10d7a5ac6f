// Package rqlite implements orm.Database over an rqlite cluster using gorqlite.
package rqlite

import (
	"fmt"
	"strings"
	"time"

	orm "github.com/medatechnology/simpleshop"
	"github.com/rqlite/gorqlite"
)

const (
	PREFIX_SQLITE_TABLE = "sqlite_"
	SCHEMA_TABLE        = "sqlite_master"
)

var _ orm.Database = (*RQLiteDB)(nil)

// RQLiteDB implements the orm.Database interface for rqlite
type RQLiteDB struct {
	Config    RqliteConfig
	conn      *gorqlite.Connection
	startTime time.Time
}

// NewDatabase connects to the cluster. gorqlite asks the node for its peers
// unless DisableDiscovery is set, so this needs a live node.
func NewDatabase(config RqliteConfig) (*RQLiteDB, error) {
	connURL, err := config.ToURL()
	if err != nil {
		return nil, err
	}
	conn, err := gorqlite.Open(connURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRQLiteConnectionFailed, err)
	}
	return &RQLiteDB{Config: config, conn: conn, startTime: time.Now()}, nil
}

// NewDatabaseFromDSN parses dsn and connects
func NewDatabaseFromDSN(dsn string) (*RQLiteDB, error) {
	config, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return NewDatabase(*config)
}

func (db *RQLiteDB) Dialect() orm.Dialect {
	return orm.DialectRQLite
}

func (db *RQLiteDB) IsConnected() bool {
	if db.conn == nil {
		return false
	}
	_, err := db.conn.Leader()
	return err == nil
}

func (db *RQLiteDB) Close() error {
	if db.conn != nil {
		db.conn.Close()
	}
	return nil
}

// Leader returns the address of the current leader node
func (db *RQLiteDB) Leader() (string, error) {
	return db.conn.Leader()
}

func (db *RQLiteDB) Peers() ([]string, error) {
	return db.conn.Peers()
}

func (db *RQLiteDB) query(paramSQL orm.ParametereizedSQL, tableName string) (orm.DBRecords, error) {
	qr, err := db.conn.QueryOneParameterized(toStatement(paramSQL))
	if err != nil {
		return nil, WrapRQLiteError(err, "SELECT", tableName, paramSQL.Query)
	}
	return queryResultToDBRecords(qr, tableName)
}

// SelectOneSQLParameterized runs one query and returns every row, possibly none.
func (db *RQLiteDB) SelectOneSQLParameterized(paramSQL orm.ParametereizedSQL) (orm.DBRecords, error) {
	return db.query(paramSQL, "")
}

func (db *RQLiteDB) SelectOnlyOneSQLParameterized(paramSQL orm.ParametereizedSQL) (orm.DBRecord, error) {
	records, err := db.query(paramSQL, "")
	if err != nil {
		return orm.DBRecord{}, err
	}
	return orm.OnlyOne(records)
}

// SelectManyWithCondition selects rows of tableName matching condition
func (db *RQLiteDB) SelectManyWithCondition(tableName string, condition *orm.Condition) ([]orm.DBRecord, error) {
	if condition == nil {
		condition = &orm.Condition{}
	}
	query, values, err := condition.ToSelectString(tableName)
	if err != nil {
		return nil, err
	}
	return db.query(orm.ParametereizedSQL{Query: query, Values: values}, tableName)
}

func (db *RQLiteDB) ExecOneSQL(sql string) orm.BasicSQLResult {
	return db.ExecOneSQLParameterized(orm.ParametereizedSQL{Query: sql})
}

func (db *RQLiteDB) ExecOneSQLParameterized(p orm.ParametereizedSQL) orm.BasicSQLResult {
	res, err := db.conn.WriteOneParameterized(toStatement(p))
	ret := writeResultToBasicSQLResult(res)
	if err != nil {
		ret.Error = WrapRQLiteError(err, "EXEC", "", p.Query)
	}
	return ret
}

// write sends statements in one request; gorqlite wraps them in a transaction
// so they apply all or nothing.
func (db *RQLiteDB) write(statements []orm.ParametereizedSQL, operation, tableName string) ([]orm.BasicSQLResult, error) {
	if len(statements) == 0 {
		return nil, nil
	}
	res, err := db.conn.WriteParameterized(toStatements(statements))
	results := writeResultsToBasicSQLResults(res)
	if err != nil {
		for i, r := range results {
			if r.Error != nil {
				return results, WrapRQLiteError(r.Error, operation, tableName, statements[i].Query)
			}
		}
		return results, WrapRQLiteError(err, operation, tableName, "")
	}
	if len(results) < len(statements) {
		return results, ErrRQLiteTxNoResults
	}
	return results, nil
}

// ExecManySQL runs every statement atomically.
func (db *RQLiteDB) ExecManySQL(sqls []string) ([]orm.BasicSQLResult, error) {
	statements := make([]orm.ParametereizedSQL, 0, len(sqls))
	for _, s := range sqls {
		statements = append(statements, orm.ParametereizedSQL{Query: s})
	}
	return db.write(statements, "EXEC", "")
}

func (db *RQLiteDB) InsertOneDBRecord(record orm.DBRecord) orm.BasicSQLResult {
	if err := orm.ValidateTableName(record.TableName); err != nil {
		return orm.BasicSQLResult{Error: err}
	}
	query, values := record.ToInsertSQLParameterized()
	res := db.ExecOneSQLParameterized(orm.ParametereizedSQL{Query: query, Values: values})
	if rqErr, ok := res.Error.(*RQLiteError); ok {
		rqErr.Operation, rqErr.Table = "INSERT", record.TableName
	}
	return res
}

// InsertManyDBRecordsSameTable inserts records of one table atomically, as
// chunked multi-row INSERTs in a single request.
func (db *RQLiteDB) InsertManyDBRecordsSameTable(records []orm.DBRecord) ([]orm.BasicSQLResult, error) {
	tableName, err := orm.DBRecords(records).SameTable()
	if err != nil {
		return nil, err
	}
	return db.write(orm.DBRecords(records).ToInsertSQLParameterized(), "INSERT", tableName)
}

// GetSchema reads sqlite_master through the cluster
func (db *RQLiteDB) GetSchema(hideInternal bool) []orm.SchemaStruct {
	res, err := db.SelectManyWithCondition(SCHEMA_TABLE, &orm.Condition{
		OrderBy: []string{"type", "tbl_name", "name"},
	})
	if err != nil {
		orm.LogErrorWithContext(nil, err)
		return nil
	}

	schemas := make([]orm.SchemaStruct, 0, len(res))
	for _, t := range res {
		var s orm.SchemaStruct
		s.ObjectType, _ = t.Text("type")
		s.ObjectName, _ = t.Text("name")
		s.TableName, _ = t.Text("tbl_name")
		s.SQLCommand, _ = t.Text("sql")
		rootPage, _ := t.Int64("rootpage")
		s.RootPage = int(rootPage)
		if hideInternal && strings.HasPrefix(s.TableName, PREFIX_SQLITE_TABLE) {
			continue
		}
		schemas = append(schemas, s)
	}
	return schemas
}

// Status reports leader and peers; each peer gets its own entry.
func (db *RQLiteDB) Status() (orm.NodeStatusStruct, error) {
	var status orm.NodeStatusStruct
	status.DBMS = "rqlite"
	status.DBMSDriver = "github.com/rqlite/gorqlite"
	status.URL = db.Config.URL
	status.StartTime = db.startTime
	status.Uptime = time.Since(db.startTime)
	status.Mode = "rw"

	leader, err := db.conn.Leader()
	if err != nil {
		orm.LogErrorWithContext(nil, err, orm.String("operation", "leader"))
		return status, WrapRQLiteError(err, "STATUS", "", "")
	}
	status.Leader = leader
	status.NodeID = leader
	status.IsLeader = strings.Contains(db.Config.URL, leader)

	peers, err := db.conn.Peers()
	if err != nil {
		return status, WrapRQLiteError(err, "STATUS", "", "")
	}
	status.Nodes = len(peers)
	status.Peers = make(map[int]orm.StatusStruct, len(peers))
	for i, peer := range peers {
		status.Peers[i] = orm.StatusStruct{
			URL:        peer,
			NodeID:     peer,
			DBMS:       "rqlite",
			IsLeader:   peer == leader,
			NodeNumber: i,
		}
	}

	if rec, err := db.SelectOnlyOneSQLParameterized(orm.ParametereizedSQL{Query: "SELECT sqlite_version() AS version"}); err == nil {
		status.Version, _ = rec.Text("version")
	}
	return status, nil
}
