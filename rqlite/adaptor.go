package rqlite

import (
	"time"

	orm "github.com/medatechnology/simpleshop"
	"github.com/rqlite/gorqlite"
)

// sqliteTimeLayout matches what modernc.org/sqlite writes with
// _time_format=sqlite, so both SQLite backends store identical text.
const sqliteTimeLayout = "2006-01-02 15:04:05.999999999-07:00"

// normalizeArgs turns times into canonical text; rqlite would otherwise
// receive RFC3339 from encoding/json, which does not sort against stored rows.
func normalizeArgs(values []interface{}) []interface{} {
	if len(values) == 0 {
		return values
	}
	out := make([]interface{}, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case time.Time:
			out[i] = orm.NormalizeTime(t).Format(sqliteTimeLayout)
		case *time.Time:
			if t == nil {
				out[i] = nil
			} else {
				out[i] = orm.NormalizeTime(*t).Format(sqliteTimeLayout)
			}
		default:
			out[i] = v
		}
	}
	return out
}

// toStatement converts one ParametereizedSQL to a gorqlite statement
func toStatement(p orm.ParametereizedSQL) gorqlite.ParameterizedStatement {
	return gorqlite.ParameterizedStatement{
		Query:     p.Query,
		Arguments: normalizeArgs(p.Values),
	}
}

func toStatements(ps []orm.ParametereizedSQL) []gorqlite.ParameterizedStatement {
	out := make([]gorqlite.ParameterizedStatement, 0, len(ps))
	for _, p := range ps {
		out = append(out, toStatement(p))
	}
	return out
}

func writeResultToBasicSQLResult(res gorqlite.WriteResult) orm.BasicSQLResult {
	return orm.BasicSQLResult{
		Error:        res.Err,
		Timing:       res.Timing,
		RowsAffected: int(res.RowsAffected),
		LastInsertID: int(res.LastInsertID),
	}
}

func writeResultsToBasicSQLResults(res []gorqlite.WriteResult) []orm.BasicSQLResult {
	out := make([]orm.BasicSQLResult, 0, len(res))
	for _, one := range res {
		out = append(out, writeResultToBasicSQLResult(one))
	}
	return out
}

// convertValue maps JSON-decoded values onto DBRecord getter types. rqlite
// sends every number as float64; integral ones become int64.
func convertValue(value interface{}) interface{} {
	switch v := value.(type) {
	case float64:
		if v == float64(int64(v)) {
			return int64(v)
		}
		return v
	case time.Time:
		return v.UTC()
	case []byte:
		return string(v)
	default:
		return v
	}
}

// queryResultToDBRecords drains qr; no rows gives an empty slice
func queryResultToDBRecords(qr gorqlite.QueryResult, tableName string) (orm.DBRecords, error) {
	records := make(orm.DBRecords, 0, qr.NumRows())
	for qr.Next() {
		row, err := qr.Map()
		if err != nil {
			return nil, err
		}
		data := make(map[string]interface{}, len(row))
		for col, v := range row {
			data[col] = convertValue(v)
		}
		records = append(records, orm.DBRecord{TableName: tableName, Data: data})
	}
	return records, nil
}
