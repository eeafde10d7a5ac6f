package shop

import (
	"testing"
	"time"

	"github.com/google/uuid"
	orm "github.com/medatechnology/simpleshop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T, s *Store, cfg GeneratorConfig) *Generator {
	t.Helper()
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	g, err := NewGenerator(s, cfg)
	require.NoError(t, err)
	return g
}

func TestAddCustomers(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	g := newTestGenerator(t, s, GeneratorConfig{})

	n, err := g.AddCustomers(100)
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	total, err := s.HowManyCustomers()
	require.NoError(t, err)
	assert.Equal(t, 100, total)

	rec, err := s.DB().SelectOnlyOneSQLParameterized(orm.ParametereizedSQL{
		Query: "SELECT COUNT(DISTINCT email) AS emails, MAX(LENGTH(postcode)) AS postcode FROM customers",
	})
	require.NoError(t, err)
	emails, _ := rec.Int64("emails")
	assert.EqualValues(t, 100, emails)
	postcode, _ := rec.Int64("postcode")
	assert.LessOrEqual(t, postcode, int64(10))

	// a second batch must not collide with the first
	_, err = g.AddCustomers(50)
	require.NoError(t, err)
	assert.Equal(t, 150, countRows(t, s, TableCustomers))

	_, err = g.AddCustomers(-1)
	assert.True(t, orm.IsError(err, ErrInvalidCount))
}

func TestAddZeroWritesNothing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	g := newTestGenerator(t, s, GeneratorConfig{})

	for name, add := range map[string]func(int) (int, error){
		TableCustomers: g.AddCustomers,
		TableOrders:    g.AddOrders,
		TableProducts:  g.AddProducts,
	} {
		n, err := add(0)
		require.NoError(t, err, name)
		assert.Zero(t, n, name)
		assert.Zero(t, countRows(t, s, name), name)
	}
}

func TestAddOrdersNeedsCustomers(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	g := newTestGenerator(t, s, GeneratorConfig{})

	_, err := g.AddOrders(10)
	assert.True(t, orm.IsError(err, ErrNoCustomers))
	assert.Zero(t, countRows(t, s, TableOrders))
}

func TestGeneratedOrderDates(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	g := newTestGenerator(t, s, GeneratorConfig{})

	_, err := g.AddCustomers(20)
	require.NoError(t, err)
	n, err := g.AddOrders(400)
	require.NoError(t, err)
	assert.Equal(t, 400, n)

	yearStart := time.Date(testNow.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	var pending, delivered int
	for _, o := range allOrders(t, s) {
		assert.False(t, o.OrderDate.Before(yearStart), "order %d", o.ID)
		assert.False(t, o.OrderDate.After(testNow), "order %d", o.ID)
		assert.NotZero(t, o.Coupon.ID(), "order %d", o.ID)
		if o.ShippedDate == nil {
			pending++
			assert.Nil(t, o.DeliveredDate, "order %d delivered without shipping", o.ID)
			continue
		}
		assert.False(t, o.ShippedDate.Before(o.OrderDate), "order %d", o.ID)
		assert.False(t, o.ShippedDate.After(testNow), "order %d", o.ID)
		if o.DeliveredDate != nil {
			delivered++
			assert.False(t, o.DeliveredDate.Before(*o.ShippedDate), "order %d", o.ID)
		}
	}
	// 10% pending and half of the shipped delivered, with plenty of slack
	assert.Greater(t, pending, 10)
	assert.Less(t, pending, 90)
	assert.Greater(t, delivered, 100)
}

func TestAddOrderProducts(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	g := newTestGenerator(t, s, GeneratorConfig{})

	_, err := g.AddCustomers(10)
	require.NoError(t, err)
	_, err = g.AddOrders(200)
	require.NoError(t, err)

	_, err = g.AddOrderProducts()
	assert.True(t, orm.IsError(err, ErrNoProducts))

	_, err = g.AddProducts(10)
	require.NoError(t, err)
	rows, err := g.AddOrderProducts()
	require.NoError(t, err)
	assert.Equal(t, rows, countRows(t, s, TableOrderProducts))

	records, err := s.DB().SelectOneSQLParameterized(orm.ParametereizedSQL{Query: `SELECT o.id,
COUNT(op.product_id) AS n, COUNT(DISTINCT op.product_id) AS distinct_n
FROM orders o LEFT JOIN order_products op ON op.order_id = o.id
GROUP BY o.id`})
	require.NoError(t, err)
	require.Len(t, records, 200)
	for _, rec := range records {
		n, _ := rec.Int64("n")
		distinct, _ := rec.Int64("distinct_n")
		assert.GreaterOrEqual(t, n, int64(1))
		assert.LessOrEqual(t, n, int64(3))
		assert.Equal(t, n, distinct)
	}

	// every order already has products
	rows, err = g.AddOrderProducts()
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestAddOrderProductsCappedByProducts(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	g := newTestGenerator(t, s, GeneratorConfig{MinProductsPerOrder: 3, MaxProductsPerOrder: 3})

	_, err := g.AddCustomers(3)
	require.NoError(t, err)
	_, err = g.AddOrders(20)
	require.NoError(t, err)
	_, err = g.AddProducts(2)
	require.NoError(t, err)

	rows, err := g.AddOrderProducts()
	require.NoError(t, err)
	assert.Equal(t, 40, rows)
}

func TestAddProducts(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	g := newTestGenerator(t, s, GeneratorConfig{})

	// more products than colour names forces the numbered fallback
	_, err := g.AddProducts(300)
	require.NoError(t, err)

	products, err := s.ListProducts()
	require.NoError(t, err)
	require.Len(t, products, 300)
	names := map[string]bool{}
	for _, p := range products {
		assert.False(t, names[p.Name], "duplicate %s", p.Name)
		names[p.Name] = true
		assert.LessOrEqual(t, len(p.Name), 50)
		assert.GreaterOrEqual(t, p.Price, int64(DefaultMinPrice))
		assert.LessOrEqual(t, p.Price, int64(DefaultMaxPrice))
	}
	assert.LessOrEqual(t, products[0].Price, products[len(products)-1].Price)
}

func TestCreateRandomData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	g := newTestGenerator(t, s, GeneratorConfig{Customers: 5, Orders: 30, Products: 4})
	summary, err := g.CreateRandomData()
	require.NoError(t, err)

	assert.Equal(t, g.RunID(), summary.RunID)
	_, err = uuid.Parse(summary.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 5, summary.Customers)
	assert.Equal(t, 30, summary.Orders)
	assert.Equal(t, 4, summary.Products)
	assert.GreaterOrEqual(t, summary.OrderProducts, 30)
	assert.LessOrEqual(t, summary.OrderProducts, 90)
	assert.Equal(t, summary.OrderProducts, countRows(t, s, TableOrderProducts))
}

func TestGeneratorSeedIsReproducible(t *testing.T) {
	t.Parallel()

	run := func() ([]Product, Customer) {
		s := newTestStore(t)
		g := newTestGenerator(t, s, GeneratorConfig{Seed: 2026})
		_, err := g.AddCustomers(5)
		require.NoError(t, err)
		_, err = g.AddProducts(5)
		require.NoError(t, err)
		products, err := s.ListProducts()
		require.NoError(t, err)
		c, err := s.GetCustomer(3)
		require.NoError(t, err)
		return products, c
	}
	p1, c1 := run()
	p2, c2 := run()
	assert.Equal(t, p1, p2)
	assert.Equal(t, c1, c2)
}

func TestGeneratorConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := GeneratorConfig{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultGeneratorConfig(), cfg)

	tests := []struct {
		name   string
		config GeneratorConfig
		target func(error) bool
	}{
		{"negative orders", GeneratorConfig{Orders: -5}, func(err error) bool { return orm.IsError(err, ErrInvalidCount) }},
		{"min above max", GeneratorConfig{MinProductsPerOrder: 4, MaxProductsPerOrder: 2}, func(err error) bool { return orm.IsError(err, ErrInvalidCount) }},
		{"price range", GeneratorConfig{MinPrice: 50, MaxPrice: 10}, func(err error) bool { return orm.IsError(err, ErrInvalidCount) }},
		{"zero weights", GeneratorConfig{Shipped: Weighted[bool]{{Value: true, Weight: 0}}}, func(err error) bool { return orm.IsError(err, ErrInvalidWeights) }},
		{"unknown coupon", GeneratorConfig{Coupons: Weighted[Coupon]{{Value: "10OFF", Weight: 1}}}, func(err error) bool { return orm.IsError(err, ErrUnknownCoupon) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			require.Error(t, err)
			assert.True(t, tt.target(err), err.Error())

			_, err = NewGenerator(NewStore(nil), tt.config)
			assert.Error(t, err)
		})
	}
}
