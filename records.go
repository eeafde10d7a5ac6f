package orm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/medatechnology/goutil/medaerror"
)

var (
	ErrColumnMissing medaerror.MedaError = medaerror.MedaError{Message: "column not present in record"}
	ErrColumnType    medaerror.MedaError = medaerror.MedaError{Message: "column value has unexpected type"}
)

// Layouts tried, in order, when a timestamp comes back as text. The first one
// is what modernc.org/sqlite writes with _time_format=sqlite.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type DBRecord struct {
	TableName string
	Data      map[string]interface{}
}

type DBRecords []DBRecord

// Append adds a new DBRecord to the DBRecords slice.
func (d *DBRecords) Append(rec DBRecord) {
	*d = append(*d, rec)
}

// Columns returns the record's column names sorted, so generated SQL is stable.
func (d *DBRecord) Columns() []string {
	columns := make([]string, 0, len(d.Data))
	for key := range d.Data {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return columns
}

// ToInsertSQLParameterized converts a single DBRecord to a parameterized INSERT.
// Usage:
//
//	sql, values := record.ToInsertSQLParameterized()
//	// INSERT INTO customers (city, email) VALUES (?, ?)
func (d *DBRecord) ToInsertSQLParameterized() (string, []interface{}) {
	columns := d.Columns()
	placeholders := make([]string, len(columns))
	values := make([]interface{}, 0, len(columns))

	for i, col := range columns {
		placeholders[i] = "?"
		values = append(values, d.Data[col])
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		d.TableName,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
	return sql, values
}

// ToInsertSQLParameterized converts records of ONE table into multi-row INSERT
// statements of at most MAX_MULTIPLE_INSERTS rows each. Columns come from the
// first record; a column missing from a later record is inserted as NULL.
// Usage:
//
//	statements := records.ToInsertSQLParameterized()
func (records DBRecords) ToInsertSQLParameterized() []ParametereizedSQL {
	if len(records) == 0 || records[0].Data == nil {
		return nil
	}

	tableName := records[0].TableName
	columns := records[0].Columns()
	numFields := len(columns)
	if numFields == 0 {
		return nil
	}

	batchSize := MAX_MULTIPLE_INSERTS
	if batchSize < 1 {
		batchSize = DEFAULT_MAX_MULTIPLE_INSERTS
	}
	numStatements := (len(records) + batchSize - 1) / batchSize
	paramStatements := make([]ParametereizedSQL, 0, numStatements)

	columnsSQL := fmt.Sprintf("(%s)", strings.Join(columns, ", "))
	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", numFields), ", ") + ")"

	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		currentBatch := records[i:end]

		placeholderGroups := make([]string, 0, len(currentBatch))
		values := make([]interface{}, 0, len(currentBatch)*numFields)
		for _, record := range currentBatch {
			placeholderGroups = append(placeholderGroups, rowPlaceholder)
			for _, col := range columns {
				values = append(values, record.Data[col])
			}
		}

		sql := fmt.Sprintf(
			"INSERT INTO %s %s VALUES %s",
			tableName,
			columnsSQL,
			strings.Join(placeholderGroups, ", "),
		)
		paramStatements = append(paramStatements, ParametereizedSQL{
			Query:  sql,
			Values: values,
		})
	}
	return paramStatements
}

// SameTable validates that every record targets one valid table and returns it.
func (records DBRecords) SameTable() (string, error) {
	if len(records) == 0 {
		return "", ErrEmptyRecords
	}
	tableName := records[0].TableName
	if err := ValidateTableName(tableName); err != nil {
		return "", err
	}
	for i, record := range records {
		if record.TableName != tableName {
			return "", fmt.Errorf("%w: record %d has table '%s' but expected '%s'",
				ErrMixedTables, i, record.TableName, tableName)
		}
	}
	return tableName, nil
}

func (d DBRecord) value(col string) (interface{}, error) {
	v, ok := d.Data[col]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnMissing, col)
	}
	return v, nil
}

// IsNull reports whether col is absent or NULL.
func (d DBRecord) IsNull(col string) bool {
	v, ok := d.Data[col]
	return !ok || v == nil
}

// Int64 reads col as an integer. Engines hand integers back as int64, float64
// (JSON based rqlite) or text, all of which are accepted.
func (d DBRecord) Int64(col string) (int64, error) {
	v, err := d.value(col)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case float32:
		return int64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseInt(col, string(n))
	case string:
		return parseInt(col, n)
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %s is %T", ErrColumnType, col, v)
}

func parseInt(col, s string) (int64, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrColumnType, col, s)
	}
	return int64(f), nil
}

// Float64 reads col as a float, NULL reads as 0.
func (d DBRecord) Float64(col string) (float64, error) {
	v, err := d.value(col)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case []byte:
		return parseFloat(col, string(n))
	case string:
		return parseFloat(col, n)
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %s is %T", ErrColumnType, col, v)
}

func parseFloat(col, s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrColumnType, col, s)
	}
	return f, nil
}

// Text reads col as a string, NULL reads as "".
func (d DBRecord) Text(col string) (string, error) {
	v, err := d.value(col)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case nil:
		return "", nil
	}
	return fmt.Sprint(v), nil
}

// NullText reads a nullable text column.
func (d DBRecord) NullText(col string) (string, bool, error) {
	if d.IsNull(col) {
		if _, ok := d.Data[col]; !ok {
			return "", false, fmt.Errorf("%w: %s", ErrColumnMissing, col)
		}
		return "", false, nil
	}
	s, err := d.Text(col)
	return s, err == nil, err
}

// Time reads col as a UTC timestamp.
func (d DBRecord) Time(col string) (time.Time, error) {
	t, ok, err := d.NullTime(col)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s is NULL", ErrColumnType, col)
	}
	return t, nil
}

// NullTime reads a nullable timestamp; ok is false for NULL.
func (d DBRecord) NullTime(col string) (t time.Time, ok bool, err error) {
	v, err := d.value(col)
	if err != nil {
		return time.Time{}, false, err
	}
	switch tv := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return tv.UTC(), true, nil
	case string:
		t, err = ParseTime(tv)
	case []byte:
		t, err = ParseTime(string(tv))
	default:
		return time.Time{}, false, fmt.Errorf("%w: %s is %T", ErrColumnType, col, v)
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %s: %v", ErrColumnType, col, err)
	}
	return t, true, nil
}

// ParseTime parses the textual timestamp formats the backends produce. Values
// without a zone are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time %q", s)
}
