package shop

import (
	"testing"
	"time"

	orm "github.com/medatechnology/simpleshop"
	"github.com/medatechnology/simpleshop/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlite.NewMemoryDatabase()
	require.NoError(t, err)
	store := NewStore(db, WithClock(fixedClock))
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.CreateSchema())
	return store
}

func ptr(t time.Time) *time.Time { return &t }

type fixture struct {
	ana, bruno, carla  int64
	cheap, mid, pricey int64 // 20, 30, 50
}

func seedFixture(t *testing.T, s *Store) fixture {
	t.Helper()
	var f fixture
	var err error
	f.ana, err = s.CreateCustomer(Customer{FirstName: "Ana", LastName: "Souza", Address: "Rua A, 1", City: "Recife", Postcode: "50000-000", Email: "ana@example.com"})
	require.NoError(t, err)
	f.bruno, err = s.CreateCustomer(Customer{FirstName: "Bruno", LastName: "Lima", Address: "Rua B, 2", City: "Natal", Postcode: "59000-000", Email: "bruno@example.com"})
	require.NoError(t, err)
	f.carla, err = s.CreateCustomer(Customer{FirstName: "Carla", LastName: "Dias", Address: "Rua C, 3", City: "Belém", Postcode: "66000-000", Email: "carla@example.com"})
	require.NoError(t, err)

	f.cheap, err = s.CreateProduct(Product{Name: "Red", Price: 20})
	require.NoError(t, err)
	f.mid, err = s.CreateProduct(Product{Name: "Blue", Price: 30})
	require.NoError(t, err)
	f.pricey, err = s.CreateProduct(Product{Name: "Green", Price: 50})
	require.NoError(t, err)
	return f
}

func allOrders(t *testing.T, s *Store) []Order {
	t.Helper()
	records, err := s.DB().SelectManyWithCondition(TableOrders, &orm.Condition{OrderBy: []string{"id"}})
	require.NoError(t, err)
	orders, err := ordersFromRecords("all orders", records)
	require.NoError(t, err)
	return orders
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	n, err := s.count(table)
	require.NoError(t, err)
	return n
}

func TestSchema(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	// idempotent
	require.NoError(t, s.CreateSchema())

	tables := map[string]bool{}
	for _, obj := range s.DB().GetSchema(true) {
		if obj.ObjectType == "table" {
			tables[obj.ObjectName] = true
		}
	}
	for _, name := range []string{TableCustomers, TableProducts, TableOrders, TableOrderProducts} {
		assert.True(t, tables[name], name)
	}

	require.NoError(t, s.DropSchema())
	_, err := s.HowManyCustomers()
	assert.Error(t, err)
}

func TestSchemaStatementsPerDialect(t *testing.T) {
	t.Parallel()

	lite := SchemaStatements(orm.DialectSQLite)
	pg := SchemaStatements(orm.DialectPostgres)
	require.Len(t, lite, len(pg))
	assert.Contains(t, lite[0], "AUTOINCREMENT")
	assert.Contains(t, pg[0], "SERIAL")
	assert.Equal(t, lite, SchemaStatements(orm.DialectRQLite))

	lite[0] = "mutated"
	assert.NotEqual(t, "mutated", SchemaStatements(orm.DialectSQLite)[0])
}

func TestDeliveredNeedsShippedConstraint(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := seedFixture(t, s)

	// bypass CreateOrder validation to hit the table constraint itself
	res := s.DB().InsertOneDBRecord(Order{
		OrderDate:     testNow.Add(-time.Hour),
		DeliveredDate: ptr(testNow),
		CustomerID:    f.ana,
	}.ToDBRecord())
	require.Error(t, res.Error)
	assert.True(t, sqlite.IsCheckViolation(res.Error), res.Error.Error())
}

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := seedFixture(t, s)

	ordered := time.Date(2026, 3, 1, 8, 30, 15, 123456789, time.FixedZone("BRT", -3*3600))
	id, err := s.CreateOrder(Order{
		OrderDate:   ordered,
		ShippedDate: ptr(ordered.Add(26 * time.Hour)),
		Coupon:      CouponFreeShipping,
		CustomerID:  f.carla,
	}, f.cheap)
	require.NoError(t, err)

	got, err := s.GetOrder(id)
	require.NoError(t, err)
	assert.True(t, orm.NormalizeTime(ordered).Equal(got.OrderDate), got.OrderDate)
	require.NotNil(t, got.ShippedDate)
	d, ok := got.FulfillmentTime()
	assert.True(t, ok)
	assert.Equal(t, 26*time.Hour, d)
	assert.Nil(t, got.DeliveredDate)
	assert.Equal(t, CouponFreeShipping, got.Coupon)
	assert.Equal(t, f.carla, got.CustomerID)
	assert.False(t, got.IsPending())
}

func TestOrderDateDefaultSortsWithDriverDates(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := seedFixture(t, s)

	res := s.DB().ExecOneSQLParameterized(orm.ParametereizedSQL{
		Query:  "INSERT INTO orders (customer_id) VALUES (?)",
		Values: []interface{}{f.ana},
	})
	require.NoError(t, res.Error)

	rec, err := s.DB().SelectOnlyOneSQLParameterized(orm.ParametereizedSQL{
		Query: "SELECT id, CAST(order_date AS TEXT) AS raw FROM orders",
	})
	require.NoError(t, err)
	raw, err := rec.Text("raw")
	require.NoError(t, err)
	defaulted, err := time.Parse("2006-01-02 15:04:05-07:00", raw)
	require.NoError(t, err, "default must use the driver's whole-second layout: %q", raw)
	defaultedID, err := rec.Int64("id")
	require.NoError(t, err)

	// same second, written by the driver with a trimmed fraction
	later := s.DB().InsertOneDBRecord(Order{OrderDate: defaulted.Add(250 * time.Millisecond), CustomerID: f.bruno}.ToDBRecord())
	require.NoError(t, later.Error)

	ids, err := s.ids("orders by date", "SELECT id FROM orders ORDER BY order_date")
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, defaultedID, ids[0])
}
