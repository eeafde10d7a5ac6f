package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	orm "github.com/medatechnology/simpleshop"
)

// querier is what *sql.DB and *sql.Tx have in common
type querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// scanRowsToDBRecords converts sql.Rows to DBRecords; no rows gives an empty slice
func scanRowsToDBRecords(rows *sql.Rows, tableName string) (orm.DBRecords, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	records := orm.DBRecords{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		data := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			data[col] = convertPostgreSQLValue(values[i])
		}
		records = append(records, orm.DBRecord{TableName: tableName, Data: data})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

// convertPostgreSQLValue converts driver values to the types DBRecord getters read.
// NUMERIC arrives as []byte from lib/pq and as string from pgx; both become string.
func convertPostgreSQLValue(value interface{}) interface{} {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC()
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case float32:
		return float64(v)
	default:
		return v
	}
}

// normalizeArgs sends every time.Time as UTC microseconds, the column precision
func normalizeArgs(values []interface{}) []interface{} {
	if len(values) == 0 {
		return values
	}
	out := make([]interface{}, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case time.Time:
			out[i] = orm.NormalizeTime(t)
		case *time.Time:
			if t == nil {
				out[i] = nil
			} else {
				out[i] = orm.NormalizeTime(*t)
			}
		default:
			out[i] = v
		}
	}
	return out
}

func selectRecords(q querier, paramSQL orm.ParametereizedSQL, tableName string) (orm.DBRecords, error) {
	query := orm.Rebind(orm.DialectPostgres, paramSQL.Query)
	rows, err := q.Query(query, normalizeArgs(paramSQL.Values)...)
	if err != nil {
		return nil, WrapPostgreSQLError(err, "SELECT", tableName, query)
	}
	defer rows.Close()
	return scanRowsToDBRecords(rows, tableName)
}

func execStatement(q querier, paramSQL orm.ParametereizedSQL, operation, tableName string) orm.BasicSQLResult {
	query := orm.Rebind(orm.DialectPostgres, paramSQL.Query)
	start := time.Now()
	result, err := q.Exec(query, normalizeArgs(paramSQL.Values)...)
	if err != nil {
		return orm.BasicSQLResult{Error: WrapPostgreSQLError(err, operation, tableName, query)}
	}
	rowsAffected, _ := result.RowsAffected()
	return orm.BasicSQLResult{
		Timing:       time.Since(start).Seconds(),
		RowsAffected: int(rowsAffected),
	}
}

// insertOne inserts a record and reads back the id column when the table has one.
// PostgreSQL has no LastInsertId, so RETURNING * stands in for it.
func insertOne(q querier, record orm.DBRecord) orm.BasicSQLResult {
	if err := orm.ValidateTableName(record.TableName); err != nil {
		return orm.BasicSQLResult{Error: err}
	}
	query, values := record.ToInsertSQLParameterized()
	query = orm.Rebind(orm.DialectPostgres, query) + " RETURNING *"

	start := time.Now()
	rows, err := q.Query(query, normalizeArgs(values)...)
	if err != nil {
		return orm.BasicSQLResult{Error: WrapPostgreSQLError(err, "INSERT", record.TableName, query)}
	}
	defer rows.Close()

	returned, err := scanRowsToDBRecords(rows, record.TableName)
	if err != nil {
		return orm.BasicSQLResult{Error: WrapPostgreSQLError(err, "INSERT", record.TableName, query)}
	}

	res := orm.BasicSQLResult{
		Timing:       time.Since(start).Seconds(),
		RowsAffected: len(returned),
	}
	if len(returned) == 1 {
		if id, err := returned[0].Int64("id"); err == nil {
			res.LastInsertID = int(id)
		}
	}
	return res
}

// insertBatch runs the chunked multi-row INSERTs for records of one table. The
// caller decides the transaction boundary.
func insertBatch(q querier, records []orm.DBRecord) ([]orm.BasicSQLResult, error) {
	tableName, err := orm.DBRecords(records).SameTable()
	if err != nil {
		return nil, err
	}
	statements := orm.DBRecords(records).ToInsertSQLParameterized()
	results := make([]orm.BasicSQLResult, 0, len(statements))
	for _, statement := range statements {
		res := execStatement(q, statement, "INSERT", tableName)
		results = append(results, res)
		if res.Error != nil {
			return results, res.Error
		}
	}
	return results, nil
}

// validatePostgreSQLConnection checks we can reach the system catalogs, not just ping
func validatePostgreSQLConnection(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM pg_catalog.pg_database").Scan(&count); err != nil {
		return fmt.Errorf("system catalog query failed: %w", err)
	}
	return nil
}

// postgresStats holds the pg_stat_database counters reported by Status
type postgresStats struct {
	DBSize       int64
	Connections  int
	XactCommit   int64
	XactRollback int64
	BlocksRead   int64
	BlocksHit    int64
}

// CacheHitRatio is the share of block reads served from shared buffers, in percent
func (s postgresStats) CacheHitRatio() float64 {
	if s.BlocksHit+s.BlocksRead == 0 {
		return 0
	}
	return float64(s.BlocksHit) / float64(s.BlocksHit+s.BlocksRead) * 100.0
}

// getPostgreSQLStats retrieves size and activity counters for dbName; missing
// privileges leave the matching fields at zero.
func getPostgreSQLStats(db *sql.DB, dbName string) postgresStats {
	var stats postgresStats
	_ = db.QueryRow("SELECT pg_database_size($1)", dbName).Scan(&stats.DBSize)
	_ = db.QueryRow("SELECT COUNT(*) FROM pg_stat_activity WHERE datname = $1", dbName).Scan(&stats.Connections)
	_ = db.QueryRow(`SELECT xact_commit, xact_rollback, blks_read, blks_hit
		FROM pg_stat_database WHERE datname = $1`, dbName).Scan(
		&stats.XactCommit, &stats.XactRollback, &stats.BlocksRead, &stats.BlocksHit)
	return stats
}

// shortVersion trims "PostgreSQL 16.2 on x86_64-pc-linux-gnu, ..." to "16.2"
func shortVersion(version string) string {
	fields := strings.Fields(version)
	if len(fields) >= 2 && fields[0] == "PostgreSQL" {
		return fields[1]
	}
	return version
}
