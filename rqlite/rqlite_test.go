package rqlite

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/medatechnology/goutil/medaerror"
	orm "github.com/medatechnology/simpleshop"
	"github.com/rqlite/gorqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigToURL(t *testing.T) {
	t.Parallel()

	config := RqliteConfig{
		URL:              "https://node1:4001",
		Consistency:      "STRONG",
		Username:         "shop",
		Password:         "s3cret",
		Timeout:          2500 * time.Millisecond,
		DisableDiscovery: true,
	}
	raw, err := config.ToURL()
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "node1:4001", u.Host)
	assert.Equal(t, "shop", u.User.Username())
	assert.Equal(t, "strong", u.Query().Get("level"))
	assert.Equal(t, "2", u.Query().Get("timeout"))
	assert.Equal(t, "true", u.Query().Get("disableClusterDiscovery"))
	assert.NotContains(t, config.String(), "s3cret")
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		config    RqliteConfig
		shouldErr bool
		target    medaerror.MedaError
	}{
		{"defaults", RqliteConfig{}, false, medaerror.MedaError{}},
		{"bad scheme", RqliteConfig{URL: "ftp://x:4001"}, true, ErrRQLiteInvalidURL},
		{"no host", RqliteConfig{URL: "http://"}, true, ErrRQLiteInvalidURL},
		{"bad level", RqliteConfig{URL: DefaultURL, Consistency: "eventual"}, true, ErrRQLiteInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if !tt.shouldErr {
				require.NoError(t, err)
				assert.Equal(t, DefaultURL, tt.config.URL)
				assert.Equal(t, DefaultConsistency, tt.config.Consistency)
				assert.Equal(t, DefaultTimeout, tt.config.Timeout)
				return
			}
			require.Error(t, err)
			assert.True(t, orm.IsError(err, tt.target), err.Error())
		})
	}
}

func TestParseDSN(t *testing.T) {
	t.Parallel()

	config, err := ParseDSN("rqlite://admin:pw@db1:4001/?level=none&timeout=7&disableClusterDiscovery=true")
	require.NoError(t, err)
	assert.Equal(t, "http://db1:4001", config.URL)
	assert.Equal(t, "admin", config.Username)
	assert.Equal(t, "pw", config.Password)
	assert.Equal(t, "none", config.Consistency)
	assert.Equal(t, 7*time.Second, config.Timeout)
	assert.True(t, config.DisableDiscovery)

	config, err = ParseDSN("http://localhost:4001")
	require.NoError(t, err)
	assert.Equal(t, DefaultConsistency, config.Consistency)
	assert.False(t, config.DisableDiscovery)

	_, err = ParseDSN("http://localhost:4001?timeout=soon")
	assert.True(t, orm.IsError(err, ErrRQLiteInvalidURL))
}

func TestNormalizeArgs(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 5, 6, 7, 8, 9, 123456789, time.FixedZone("BRT", -3*3600))
	var nilTime *time.Time
	got := normalizeArgs([]interface{}{at, &at, nilTime, 42, "x", nil})

	assert.Equal(t, "2026-05-06 10:08:09.123456+00:00", got[0])
	assert.Equal(t, got[0], got[1])
	assert.Nil(t, got[2])
	assert.Equal(t, 42, got[3])
	assert.Equal(t, "x", got[4])
	assert.Nil(t, got[5])
	assert.Empty(t, normalizeArgs(nil))

	parsed, err := orm.ParseTime(got[0].(string))
	require.NoError(t, err)
	assert.True(t, orm.NormalizeTime(at).Equal(parsed))
}

func TestConversions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(30), convertValue(float64(30)))
	assert.Equal(t, 19.5, convertValue(19.5))
	assert.Equal(t, "abc", convertValue([]byte("abc")))
	assert.Nil(t, convertValue(nil))

	statements := toStatements([]orm.ParametereizedSQL{
		{Query: "INSERT INTO products (name, price) VALUES (?, ?)", Values: []interface{}{"Red", 10}},
		{Query: "DELETE FROM products"},
	})
	require.Len(t, statements, 2)
	assert.Equal(t, []interface{}{"Red", 10}, statements[0].Arguments)
	assert.Empty(t, statements[1].Arguments)

	results := writeResultsToBasicSQLResults([]gorqlite.WriteResult{
		{LastInsertID: 5, RowsAffected: 1, Timing: 0.01},
		{Err: errors.New("UNIQUE constraint failed: products.name")},
	})
	require.Len(t, results, 2)
	assert.Equal(t, 5, results[0].LastInsertID)
	assert.Equal(t, 1, results[0].RowsAffected)
	assert.True(t, IsUniqueViolation(results[1].Error))
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	fk := WrapRQLiteError(errors.New("FOREIGN KEY constraint failed"), "INSERT", "orders", "INSERT ...")
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(fk))
	assert.Contains(t, fk.Error(), "table=orders")
	assert.Contains(t, FormatRQLiteError(fk), "Query: INSERT ...")

	assert.True(t, IsUniqueViolation(errors.New("PRIMARY KEY constraint failed: order_products")))
	assert.True(t, IsCheckViolation(fmt.Errorf("commit: %w", errors.New("CHECK constraint failed: delivered"))))
	assert.True(t, IsNotNullViolation(errors.New("NOT NULL constraint failed: customers.email")))
	assert.True(t, IsTableNotFound(errors.New("no such table: shop")))
	assert.True(t, IsRetryable(errors.New("leader not found")))
	assert.True(t, IsConnectionError(fmt.Errorf("%w: dial", ErrRQLiteConnectionFailed)))
	assert.False(t, IsRetryable(nil))
	assert.Nil(t, WrapRQLiteError(nil, "", "", ""))
	assert.Equal(t, "no error", FormatRQLiteError(nil))
}

func TestTransactionBuffersUntilCommit(t *testing.T) {
	t.Parallel()

	// no connection: nothing may reach the server before Commit
	db := &RQLiteDB{}
	tx, err := db.BeginTransaction()
	require.NoError(t, err)

	res := tx.InsertOneDBRecord(orm.DBRecord{TableName: "products", Data: map[string]interface{}{"name": "Red", "price": 10}})
	require.NoError(t, res.Error)
	assert.Zero(t, res.LastInsertID)

	results, err := tx.InsertManyDBRecordsSameTable([]orm.DBRecord{
		{TableName: "products", Data: map[string]interface{}{"name": "Blue", "price": 11}},
		{TableName: "products", Data: map[string]interface{}{"name": "Green", "price": 12}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].RowsAffected)

	bad := tx.InsertOneDBRecord(orm.DBRecord{TableName: "drop table", Data: map[string]interface{}{"a": 1}})
	assert.True(t, orm.IsError(bad.Error, orm.ErrInvalidTableName))

	rtx := tx.(*rqliteTransaction)
	assert.Len(t, rtx.statements, 2)
	assert.Equal(t, []string{"products", "products"}, rtx.tables)

	require.NoError(t, tx.Rollback())
	assert.Empty(t, rtx.statements)
	assert.True(t, orm.IsError(tx.Commit(), orm.ErrTxClosed))
	assert.True(t, orm.IsError(tx.ExecOneSQLParameterized(orm.ParametereizedSQL{Query: "DELETE FROM products"}).Error, orm.ErrTxClosed))

	empty, err := db.BeginTransaction()
	require.NoError(t, err)
	assert.NoError(t, empty.Commit(), "empty commit sends nothing")
}

// TestLiveCluster needs a running node, e.g. SHOP_TEST_RQLITE_URL=http://localhost:4001
func TestLiveCluster(t *testing.T) {
	dsn := os.Getenv("SHOP_TEST_RQLITE_URL")
	if dsn == "" {
		t.Skip("SHOP_TEST_RQLITE_URL not set")
	}
	db, err := NewDatabaseFromDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecManySQL([]string{
		"DROP TABLE IF EXISTS live_probe",
		"CREATE TABLE live_probe (id INTEGER PRIMARY KEY, name TEXT UNIQUE, at DATETIME)",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.ExecOneSQL("DROP TABLE IF EXISTS live_probe") })

	at := time.Now()
	tx, err := db.BeginTransaction()
	require.NoError(t, err)
	tx.InsertOneDBRecord(orm.DBRecord{TableName: "live_probe", Data: map[string]interface{}{"name": "a", "at": at}})
	tx.InsertOneDBRecord(orm.DBRecord{TableName: "live_probe", Data: map[string]interface{}{"name": "a", "at": at}})
	err = tx.Commit()
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	rows, err := db.SelectOneSQLParameterized(orm.ParametereizedSQL{Query: "SELECT * FROM live_probe"})
	require.NoError(t, err)
	assert.Empty(t, rows, "failed commit leaves nothing behind")

	res := db.InsertOneDBRecord(orm.DBRecord{TableName: "live_probe", Data: map[string]interface{}{"name": "b", "at": at}})
	require.NoError(t, res.Error)
	rec, err := db.SelectOnlyOneSQLParameterized(orm.SQLAndValuesToParameterized(
		"SELECT at FROM live_probe WHERE at <= ?", at.Add(time.Second)))
	require.NoError(t, err)
	got, err := rec.Time("at")
	require.NoError(t, err)
	assert.True(t, orm.NormalizeTime(at).Equal(got))
}
