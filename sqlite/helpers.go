package sqlite

import (
	"database/sql"
	"fmt"
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
			data[col] = convertSQLiteValue(values[i])
		}
		records = append(records, orm.DBRecord{TableName: tableName, Data: data})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

// convertSQLiteValue maps driver values onto the types DBRecord getters expect
func convertSQLiteValue(value interface{}) interface{} {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC()
	default:
		return v
	}
}

// normalizeArgs stores every time.Time in the one canonical form so that text
// comparisons between stored timestamps order correctly.
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
	rows, err := q.Query(paramSQL.Query, normalizeArgs(paramSQL.Values)...)
	if err != nil {
		return nil, WrapSQLiteError(err, "SELECT", tableName, paramSQL.Query)
	}
	defer rows.Close()
	return scanRowsToDBRecords(rows, tableName)
}

func execStatement(q querier, paramSQL orm.ParametereizedSQL, operation, tableName string) orm.BasicSQLResult {
	start := time.Now()
	result, err := q.Exec(paramSQL.Query, normalizeArgs(paramSQL.Values)...)
	if err != nil {
		return orm.BasicSQLResult{Error: WrapSQLiteError(err, operation, tableName, paramSQL.Query)}
	}
	rowsAffected, _ := result.RowsAffected()
	lastInsertID, _ := result.LastInsertId()
	return orm.BasicSQLResult{
		Timing:       time.Since(start).Seconds(),
		RowsAffected: int(rowsAffected),
		LastInsertID: int(lastInsertID),
	}
}

func insertOne(q querier, record orm.DBRecord) orm.BasicSQLResult {
	if err := orm.ValidateTableName(record.TableName); err != nil {
		return orm.BasicSQLResult{Error: err}
	}
	query, values := record.ToInsertSQLParameterized()
	return execStatement(q, orm.ParametereizedSQL{Query: query, Values: values}, "INSERT", record.TableName)
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

func recordToSchema(rec orm.DBRecord) orm.SchemaStruct {
	var s orm.SchemaStruct
	s.ObjectType, _ = rec.Text("type")
	s.ObjectName, _ = rec.Text("name")
	s.TableName, _ = rec.Text("tbl_name")
	s.SQLCommand, _ = rec.Text("sql")
	rootPage, _ := rec.Int64("rootpage")
	s.RootPage = int(rootPage)
	return s
}
