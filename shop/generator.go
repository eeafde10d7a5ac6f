package shop

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	orm "github.com/medatechnology/simpleshop"
)

const (
	DefaultCustomers           = 100
	DefaultOrders              = 1000
	DefaultProducts            = 10
	DefaultMinProductsPerOrder = 1
	DefaultMaxProductsPerOrder = 3
	DefaultMinPrice            = 10
	DefaultMaxPrice            = 100

	maxNameLength  = 50
	maxEmailLength = 100
)

// GeneratorConfig drives the random data. Zero counts, bounds and empty
// weight lists fall back to the defaults above.
type GeneratorConfig struct {
	Customers int `yaml:"customers"`
	Orders    int `yaml:"orders"`
	Products  int `yaml:"products"`

	MinProductsPerOrder int   `yaml:"min_products_per_order"`
	MaxProductsPerOrder int   `yaml:"max_products_per_order"`
	MinPrice            int64 `yaml:"min_price"`
	MaxPrice            int64 `yaml:"max_price"`

	Shipped   Weighted[bool]   `yaml:"shipped"`
	Delivered Weighted[bool]   `yaml:"delivered"`
	Coupons   Weighted[Coupon] `yaml:"coupons"`

	// Seed 0 picks a random seed
	Seed uint64 `yaml:"seed"`
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Customers:           DefaultCustomers,
		Orders:              DefaultOrders,
		Products:            DefaultProducts,
		MinProductsPerOrder: DefaultMinProductsPerOrder,
		MaxProductsPerOrder: DefaultMaxProductsPerOrder,
		MinPrice:            DefaultMinPrice,
		MaxPrice:            DefaultMaxPrice,
		Shipped:             DefaultShippedWeights(),
		Delivered:           DefaultDeliveredWeights(),
		Coupons:             DefaultCouponWeights(),
	}
}

// Validate fills defaults and checks bounds and weights.
func (c *GeneratorConfig) Validate() error {
	def := DefaultGeneratorConfig()
	if c.Customers == 0 {
		c.Customers = def.Customers
	}
	if c.Orders == 0 {
		c.Orders = def.Orders
	}
	if c.Products == 0 {
		c.Products = def.Products
	}
	if c.MinProductsPerOrder == 0 {
		c.MinProductsPerOrder = def.MinProductsPerOrder
	}
	if c.MaxProductsPerOrder == 0 {
		c.MaxProductsPerOrder = def.MaxProductsPerOrder
	}
	if c.MinPrice == 0 && c.MaxPrice == 0 {
		c.MinPrice, c.MaxPrice = def.MinPrice, def.MaxPrice
	}
	if len(c.Shipped) == 0 {
		c.Shipped = def.Shipped
	}
	if len(c.Delivered) == 0 {
		c.Delivered = def.Delivered
	}
	if len(c.Coupons) == 0 {
		c.Coupons = def.Coupons
	}

	if c.Customers < 0 || c.Orders < 0 || c.Products < 0 {
		return fmt.Errorf("%w: customers=%d orders=%d products=%d", ErrInvalidCount, c.Customers, c.Orders, c.Products)
	}
	if c.MinProductsPerOrder < 1 || c.MaxProductsPerOrder < c.MinProductsPerOrder {
		return fmt.Errorf("%w: products per order %d..%d", ErrInvalidCount, c.MinProductsPerOrder, c.MaxProductsPerOrder)
	}
	if c.MinPrice < 0 || c.MaxPrice < c.MinPrice {
		return fmt.Errorf("%w: price range %d..%d", ErrInvalidCount, c.MinPrice, c.MaxPrice)
	}
	if err := c.Shipped.Validate(); err != nil {
		return fmt.Errorf("shipped: %w", err)
	}
	if err := c.Delivered.Validate(); err != nil {
		return fmt.Errorf("delivered: %w", err)
	}
	for _, choice := range c.Coupons {
		if choice.Value.ID() == 0 {
			return fmt.Errorf("coupons: %w: %q", ErrUnknownCoupon, string(choice.Value))
		}
	}
	if err := c.Coupons.Validate(); err != nil {
		return fmt.Errorf("coupons: %w", err)
	}
	return nil
}

// GenerationSummary counts what one CreateRandomData run wrote.
type GenerationSummary struct {
	RunID         string        `json:"run_id"`
	Customers     int           `json:"customers"`
	Orders        int           `json:"orders"`
	Products      int           `json:"products"`
	OrderProducts int           `json:"order_products"`
	Duration      time.Duration `json:"duration"`
}

// Generator fills a Store with fake customers, orders and products. Every
// Add* call reads what it needs first, then writes one atomic batch.
type Generator struct {
	store  *Store
	config GeneratorConfig
	faker  *gofakeit.Faker
	logger orm.Logger
	runID  string
}

func NewGenerator(store *Store, config GeneratorConfig) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	return &Generator{
		store:  store,
		config: config,
		faker:  gofakeit.New(config.Seed),
		logger: store.logger.With(orm.String("run_id", runID)),
		runID:  runID,
	}, nil
}

func (g *Generator) RunID() string { return g.runID }

func (g *Generator) Config() GeneratorConfig { return g.config }

func checkCount(count int) error {
	if count < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}
	return nil
}

// between returns a uniform instant in [start, end] at microsecond resolution.
func (g *Generator) between(start, end time.Time) time.Time {
	start = orm.NormalizeTime(start)
	if !end.After(start) {
		return start
	}
	span := end.Sub(start) / time.Microsecond
	offset := time.Duration(g.faker.Float64Range(0, float64(span)))
	if offset > span {
		offset = span
	}
	return start.Add(offset * time.Microsecond)
}

func (g *Generator) existing(op, query string) (map[string]bool, error) {
	records, err := g.store.selectRows(op, query)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		v, err := rec.Text("value")
		if err != nil {
			return nil, err
		}
		seen[strings.ToLower(v)] = true
	}
	return seen, nil
}

func emailLocal(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, s)
}

// uniqueEmail tries the faker first, then first.last@domain with a counter.
func (g *Generator) uniqueEmail(first, last string, seen map[string]bool) string {
	candidate := strings.ToLower(g.faker.Email())
	domain := g.faker.DomainName()
	for n := 1; seen[candidate] || len(candidate) > maxEmailLength; n++ {
		candidate = fmt.Sprintf("%s.%s%d@%s", emailLocal(first), emailLocal(last), n, domain)
	}
	seen[candidate] = true
	return candidate
}

// uniqueProductName uses a colour name, numbered when it is already taken.
func (g *Generator) uniqueProductName(seen map[string]bool) string {
	base := g.faker.Color()
	candidate := base
	for n := 2; seen[strings.ToLower(candidate)] || len(candidate) > maxNameLength; n++ {
		candidate = fmt.Sprintf("%s %d", base, n)
	}
	seen[strings.ToLower(candidate)] = true
	return candidate
}

// AddCustomers inserts count random customers and returns how many were
// written. A zero count writes nothing.
func (g *Generator) AddCustomers(count int) (int, error) {
	if err := checkCount(count); err != nil || count == 0 {
		return 0, err
	}
	seen, err := g.existing("customer emails", "SELECT email AS value FROM customers")
	if err != nil {
		return 0, err
	}

	records := make([]orm.DBRecord, 0, count)
	for i := 0; i < count; i++ {
		first, last := g.faker.FirstName(), g.faker.LastName()
		c := Customer{
			FirstName: first,
			LastName:  last,
			Address:   g.faker.Street(),
			City:      g.faker.City(),
			Postcode:  g.faker.Zip(),
			Email:     g.uniqueEmail(first, last, seen),
		}
		records = append(records, c.ToDBRecord())
	}

	written, err := g.store.insertBatch(records)
	if err != nil {
		orm.LogErrorWithContext(g.logger, err, orm.String("step", "customers"))
		return 0, err
	}
	g.logger.Info("customers added", orm.String("table", TableCustomers), orm.Int("rows", written))
	return written, nil
}

// AddOrders inserts count orders for random existing customers, dated this
// year. Shipping, delivery and coupon follow the configured weights.
func (g *Generator) AddOrders(count int) (int, error) {
	if err := checkCount(count); err != nil || count == 0 {
		return 0, err
	}
	customerIDs, err := g.store.ids("customer ids", "SELECT id FROM customers ORDER BY id")
	if err != nil {
		return 0, err
	}
	if len(customerIDs) == 0 {
		return 0, ErrNoCustomers
	}

	now := g.store.Now()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	records := make([]orm.DBRecord, 0, count)
	for i := 0; i < count; i++ {
		o := Order{
			CustomerID: customerIDs[g.faker.Number(0, len(customerIDs)-1)],
			OrderDate:  g.between(yearStart, now),
			Coupon:     g.config.Coupons.Pick(g.faker),
		}
		if g.config.Shipped.Pick(g.faker) {
			shipped := g.between(o.OrderDate, now)
			o.ShippedDate = &shipped
			if g.config.Delivered.Pick(g.faker) {
				delivered := g.between(shipped, now)
				o.DeliveredDate = &delivered
			}
		}
		records = append(records, o.ToDBRecord())
	}

	written, err := g.store.insertBatch(records)
	if err != nil {
		orm.LogErrorWithContext(g.logger, err, orm.String("step", "orders"))
		return 0, err
	}
	g.logger.Info("orders added", orm.String("table", TableOrders), orm.Int("rows", written))
	return written, nil
}

// AddProducts inserts count products with unique colour names and integer
// prices in the configured range.
func (g *Generator) AddProducts(count int) (int, error) {
	if err := checkCount(count); err != nil || count == 0 {
		return 0, err
	}
	seen, err := g.existing("product names", "SELECT name AS value FROM products")
	if err != nil {
		return 0, err
	}

	records := make([]orm.DBRecord, 0, count)
	for i := 0; i < count; i++ {
		p := Product{
			Name:  g.uniqueProductName(seen),
			Price: int64(g.faker.Number(int(g.config.MinPrice), int(g.config.MaxPrice))),
		}
		records = append(records, p.ToDBRecord())
	}

	written, err := g.store.insertBatch(records)
	if err != nil {
		orm.LogErrorWithContext(g.logger, err, orm.String("step", "products"))
		return 0, err
	}
	g.logger.Info("products added", orm.String("table", TableProducts), orm.Int("rows", written))
	return written, nil
}

// AddOrderProducts gives every order that has no products yet between
// MinProductsPerOrder and MaxProductsPerOrder distinct products, capped by
// the number of products. Returns the number of association rows.
func (g *Generator) AddOrderProducts() (int, error) {
	productIDs, err := g.store.ids("product ids", "SELECT id FROM products ORDER BY id")
	if err != nil {
		return 0, err
	}
	if len(productIDs) == 0 {
		return 0, ErrNoProducts
	}
	orderIDs, err := g.store.ids("bare orders", `SELECT o.id FROM orders o
WHERE NOT EXISTS (SELECT 1 FROM order_products op WHERE op.order_id = o.id)
ORDER BY o.id`)
	if err != nil {
		return 0, err
	}

	records := make([]orm.DBRecord, 0, len(orderIDs)*g.config.MaxProductsPerOrder)
	pool := make([]int64, len(productIDs))
	for _, orderID := range orderIDs {
		k := g.faker.Number(g.config.MinProductsPerOrder, g.config.MaxProductsPerOrder)
		if k > len(productIDs) {
			k = len(productIDs)
		}
		copy(pool, productIDs)
		// partial Fisher-Yates: pool[:k] ends up a uniform k-subset
		for i := 0; i < k; i++ {
			j := g.faker.Number(i, len(pool)-1)
			pool[i], pool[j] = pool[j], pool[i]
			records = append(records, OrderProduct{OrderID: orderID, ProductID: pool[i]}.ToDBRecord())
		}
	}

	written, err := g.store.insertBatch(records)
	if err != nil {
		orm.LogErrorWithContext(g.logger, err, orm.String("step", "order products"))
		return 0, err
	}
	g.logger.Info("order products added",
		orm.String("table", TableOrderProducts),
		orm.Int("orders", len(orderIDs)),
		orm.Int("rows", written))
	return written, nil
}

// CreateRandomData creates the schema, then customers, orders, products and
// their associations in that order, using the configured counts.
func (g *Generator) CreateRandomData() (GenerationSummary, error) {
	start := time.Now()
	summary := GenerationSummary{RunID: g.runID}
	g.logger.Info("generating random data",
		orm.Int("customers", g.config.Customers),
		orm.Int("orders", g.config.Orders),
		orm.Int("products", g.config.Products))

	if err := g.store.CreateSchema(); err != nil {
		return summary, err
	}
	var err error
	if summary.Customers, err = g.AddCustomers(g.config.Customers); err != nil {
		return summary, err
	}
	if summary.Orders, err = g.AddOrders(g.config.Orders); err != nil {
		return summary, err
	}
	if summary.Products, err = g.AddProducts(g.config.Products); err != nil {
		return summary, err
	}
	if summary.OrderProducts, err = g.AddOrderProducts(); err != nil {
		return summary, err
	}

	summary.Duration = time.Since(start)
	g.logger.Info("random data ready",
		orm.Int("order_products", summary.OrderProducts),
		orm.Duration("duration", summary.Duration))
	return summary, nil
}
