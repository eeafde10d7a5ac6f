package orm

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionToSelectString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		condition Condition
		wantSQL   string
		wantArgs  []interface{}
	}{
		{
			name:      "simple",
			condition: Condition{Field: "customer_id", Operator: "=", Value: 7},
			wantSQL:   "SELECT * FROM orders WHERE customer_id = ?",
			wantArgs:  []interface{}{7},
		},
		{
			name:      "unary with order",
			condition: Condition{Field: "shipped_date", Operator: "is null", OrderBy: []string{"order_date DESC"}},
			wantSQL:   "SELECT * FROM orders WHERE shipped_date IS NULL ORDER BY order_date DESC",
		},
		{
			name: "nested or",
			condition: Condition{Logic: "or", Nested: []Condition{
				{Field: "coupon_code", Operator: "=", Value: "50OFF"},
				{Field: "coupon_code", Operator: "IS NOT NULL"},
			}},
			wantSQL:  "SELECT * FROM orders WHERE (coupon_code = ?) OR (coupon_code IS NOT NULL)",
			wantArgs: []interface{}{"50OFF"},
		},
		{
			name:      "offset without limit uses default page",
			condition: Condition{Offset: 10},
			wantSQL:   fmt.Sprintf("SELECT * FROM orders LIMIT %d OFFSET 10", DEFAULT_PAGINATION_LIMIT),
		},
		{
			name:      "empty",
			condition: Condition{},
			wantSQL:   "SELECT * FROM orders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.condition.ToSelectString("orders")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestConditionRejectsBadTable(t *testing.T) {
	t.Parallel()
	c := Condition{}
	_, _, err := c.ToSelectString("orders; DROP TABLE customers")
	require.Error(t, err)
	assert.True(t, IsError(err, ErrInvalidTableName))
}

func TestRebind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SELECT * FROM t WHERE a = ? AND b = ?",
		Rebind(DialectSQLite, "SELECT * FROM t WHERE a = ? AND b = ?"))
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2",
		Rebind(DialectPostgres, "SELECT * FROM t WHERE a = ? AND b = ?"))
	assert.Equal(t, "SELECT '?', 'it''s ?' FROM t WHERE a = $1",
		Rebind(DialectPostgres, "SELECT '?', 'it''s ?' FROM t WHERE a = ?"))
	assert.Equal(t, "INSERT INTO t (a) VALUES ($1), ($2)",
		Rebind(DialectPostgres, "INSERT INTO t (a) VALUES (?), (?)"))
}

func TestValidateTableName(t *testing.T) {
	t.Parallel()
	for _, ok := range []string{"orders", "order_products", "public.orders", "_x1"} {
		assert.NoError(t, ValidateTableName(ok), ok)
	}
	for _, bad := range []string{"", "1orders", "orders x", "orders;", "a.b.c", "o-rders"} {
		assert.Error(t, ValidateTableName(bad), bad)
	}
}

func TestDBRecordInsertSQLIsSorted(t *testing.T) {
	t.Parallel()
	rec := DBRecord{TableName: "products", Data: map[string]interface{}{"price": 20, "name": "Red"}}
	sql, values := rec.ToInsertSQLParameterized()
	assert.Equal(t, "INSERT INTO products (name, price) VALUES (?, ?)", sql)
	assert.Equal(t, []interface{}{"Red", 20}, values)
}

func TestDBRecordsInsertBatches(t *testing.T) {
	old := MAX_MULTIPLE_INSERTS
	MAX_MULTIPLE_INSERTS = 2
	t.Cleanup(func() { MAX_MULTIPLE_INSERTS = old })

	var records DBRecords
	for i := 0; i < 5; i++ {
		records.Append(DBRecord{TableName: "order_products", Data: map[string]interface{}{
			"order_id": i, "product_id": i * 10,
		}})
	}

	statements := records.ToInsertSQLParameterized()
	require.Len(t, statements, 3)
	assert.Equal(t, "INSERT INTO order_products (order_id, product_id) VALUES (?, ?), (?, ?)", statements[0].Query)
	assert.Equal(t, []interface{}{0, 0, 1, 10}, statements[0].Values)
	assert.Equal(t, "INSERT INTO order_products (order_id, product_id) VALUES (?, ?)", statements[2].Query)
	assert.Equal(t, []interface{}{4, 40}, statements[2].Values)

	assert.Nil(t, DBRecords{}.ToInsertSQLParameterized())
}

func TestDBRecordsSameTable(t *testing.T) {
	t.Parallel()

	_, err := DBRecords{}.SameTable()
	assert.True(t, IsError(err, ErrEmptyRecords))

	_, err = DBRecords{{TableName: "a"}, {TableName: "b"}}.SameTable()
	assert.True(t, IsError(err, ErrMixedTables))

	name, err := DBRecords{{TableName: "orders"}, {TableName: "orders"}}.SameTable()
	require.NoError(t, err)
	assert.Equal(t, "orders", name)
}

func TestDBRecordGetters(t *testing.T) {
	t.Parallel()

	when := time.Date(2026, 3, 4, 5, 6, 7, 123456000, time.UTC)
	rec := DBRecord{Data: map[string]interface{}{
		"i64":      int64(7),
		"f64":      float64(42),
		"txt":      []byte("19"),
		"name":     "Ana",
		"nil":      nil,
		"ts":       when,
		"ts_text":  "2026-03-04 05:06:07.123456+00:00",
		"ts_rfc":   "2026-03-04T05:06:07.123456Z",
		"bad_time": "yesterday",
	}}

	n, err := rec.Int64("i64")
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)

	n, err = rec.Int64("f64")
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)

	n, err = rec.Int64("txt")
	require.NoError(t, err)
	assert.EqualValues(t, 19, n)

	f, err := rec.Float64("i64")
	require.NoError(t, err)
	assert.InDelta(t, 7.0, f, 1e-9)

	s, err := rec.Text("name")
	require.NoError(t, err)
	assert.Equal(t, "Ana", s)

	_, ok, err := rec.NullText("nil")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, col := range []string{"ts", "ts_text", "ts_rfc"} {
		got, err := rec.Time(col)
		require.NoError(t, err, col)
		assert.True(t, when.Equal(got), "%s: %v", col, got)
	}

	_, ok, err = rec.NullTime("nil")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = rec.Time("nil")
	assert.True(t, IsError(err, ErrColumnType))

	_, err = rec.Time("bad_time")
	assert.True(t, IsError(err, ErrColumnType))

	_, err = rec.Int64("missing")
	assert.True(t, IsError(err, ErrColumnMissing))
}

func TestIsErrorFollowsWrapping(t *testing.T) {
	t.Parallel()

	wrapped := WrapSelectError(fmt.Errorf("lookup: %w", ErrSQLNoRows), "orders")
	assert.True(t, IsNoRows(wrapped))
	assert.False(t, IsError(wrapped, ErrSQLMoreThanOneRow))
	assert.True(t, IsORMError(fmt.Errorf("outer: %w", wrapped)))

	joined := errors.Join(errors.New("other"), ErrSQLMoreThanOneRow)
	assert.True(t, IsError(joined, ErrSQLMoreThanOneRow))
	assert.False(t, IsNoRows(nil))

	ctx, ok := GetErrorContext(wrapped)
	require.True(t, ok)
	assert.Equal(t, "SELECT", ctx.Operation)
	assert.Equal(t, "orders", ctx.Table)
	assert.Contains(t, FormatError(WrapErrorWithQuery(errors.New("boom"), "INSERT", "orders", "INSERT ...")), "Query: INSERT ...")
}

func TestOnlyOne(t *testing.T) {
	t.Parallel()

	_, err := OnlyOne(nil)
	assert.True(t, IsNoRows(err))

	_, err = OnlyOne(DBRecords{{}, {}})
	assert.True(t, IsError(err, ErrSQLMoreThanOneRow))

	rec, err := OnlyOne(DBRecords{{TableName: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "x", rec.TableName)
}

func TestSplitSQLScript(t *testing.T) {
	t.Parallel()

	script := `
-- customers first
CREATE TABLE a (id INTEGER); CREATE TABLE b (
  id INTEGER -- inline
);

CREATE INDEX ix ON b (id)`
	assert.Equal(t, []string{
		"CREATE TABLE a (id INTEGER)",
		"CREATE TABLE b ( id INTEGER )",
		"CREATE INDEX ix ON b (id)",
	}, SplitSQLScript(script))
}

func TestLogrusLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogrusLogger(&buf, LogLevelInfo, true)
	logger.Debug("hidden")
	logger.With(String("run_id", "abc")).Info("seeded", Int("rows", 3))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"run_id":"abc"`)
	assert.Contains(t, out, `"rows":3`)
	assert.Contains(t, out, `"msg":"seeded"`)

	logger.SetLevel(LogLevelDebug)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]LogLevel{"DEBUG": LogLevelDebug, "": LogLevelInfo, "warning": LogLevelWarn, "error": LogLevelError} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestStatusWritePretty(t *testing.T) {
	t.Parallel()

	status := NodeStatusStruct{StatusStruct: StatusStruct{
		URL: "file::memory:", DBMS: "sqlite", DBMSDriver: "modernc.org/sqlite", Version: "3.50.4", Nodes: 1, IsLeader: true,
	}}
	var buf bytes.Buffer
	status.WritePretty(&buf)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Status:\n"))
	assert.Contains(t, out, "DBMS")
	assert.Contains(t, out, "3.50.4")
	assert.NotContains(t, out, "Uptime")
}
