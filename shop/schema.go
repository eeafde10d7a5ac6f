package shop

import (
	"time"

	orm "github.com/medatechnology/simpleshop"
)

// sqliteSchema is shared by sqlite and rqlite. order_date defaults to the same
// text layout the drivers write, so lexical order stays chronological.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  first_name VARCHAR(50) NOT NULL,
  last_name VARCHAR(50) NOT NULL,
  address VARCHAR(500) NOT NULL,
  city VARCHAR(50) NOT NULL,
  postcode VARCHAR(10) NOT NULL,
  email VARCHAR(100) NOT NULL UNIQUE
)`,
	`CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name VARCHAR(50) NOT NULL UNIQUE,
  price INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_date DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%S+00:00', 'now')),
  shipped_date DATETIME,
  delivered_date DATETIME,
  coupon_code VARCHAR(50),
  customer_id INTEGER NOT NULL REFERENCES customers(id),
  CHECK (delivered_date IS NULL OR shipped_date IS NOT NULL)
)`,
	`CREATE TABLE IF NOT EXISTS order_products (
  order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id INTEGER NOT NULL REFERENCES products(id),
  PRIMARY KEY (order_id, product_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders (customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_order_date ON orders (order_date)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
  id SERIAL PRIMARY KEY,
  first_name VARCHAR(50) NOT NULL,
  last_name VARCHAR(50) NOT NULL,
  address VARCHAR(500) NOT NULL,
  city VARCHAR(50) NOT NULL,
  postcode VARCHAR(10) NOT NULL,
  email VARCHAR(100) NOT NULL UNIQUE
)`,
	`CREATE TABLE IF NOT EXISTS products (
  id SERIAL PRIMARY KEY,
  name VARCHAR(50) NOT NULL UNIQUE,
  price INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS orders (
  id SERIAL PRIMARY KEY,
  order_date TIMESTAMPTZ NOT NULL DEFAULT now(),
  shipped_date TIMESTAMPTZ,
  delivered_date TIMESTAMPTZ,
  coupon_code VARCHAR(50),
  customer_id INTEGER NOT NULL REFERENCES customers(id),
  CONSTRAINT orders_delivered_needs_shipped CHECK (delivered_date IS NULL OR shipped_date IS NOT NULL)
)`,
	`CREATE TABLE IF NOT EXISTS order_products (
  order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id INTEGER NOT NULL REFERENCES products(id),
  PRIMARY KEY (order_id, product_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders (customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_order_date ON orders (order_date)`,
}

// dropOrder is reverse dependency order
var dropOrder = []string{TableOrderProducts, TableOrders, TableProducts, TableCustomers}

// SchemaStatements returns the DDL CreateSchema runs for dialect.
func SchemaStatements(dialect orm.Dialect) []string {
	src := sqliteSchema
	if dialect == orm.DialectPostgres {
		src = postgresSchema
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// CreateSchema creates every table and index that does not exist yet, all or nothing.
func (s *Store) CreateSchema() error {
	start := time.Now()
	statements := SchemaStatements(s.db.Dialect())
	if _, err := s.db.ExecManySQL(statements); err != nil {
		orm.LogErrorWithContext(s.logger, err, orm.String("step", "create schema"))
		return orm.WrapError(err, "CREATE SCHEMA", "")
	}
	s.logger.Debug("schema ready",
		orm.Int("statements", len(statements)),
		orm.Duration("duration", time.Since(start)))
	return nil
}

// DropSchema removes the four tables and everything in them.
func (s *Store) DropSchema() error {
	statements := make([]string, 0, len(dropOrder))
	for _, table := range dropOrder {
		statements = append(statements, "DROP TABLE IF EXISTS "+table)
	}
	if _, err := s.db.ExecManySQL(statements); err != nil {
		return orm.WrapError(err, "DROP SCHEMA", "")
	}
	s.logger.Info("schema dropped", orm.Int("tables", len(statements)))
	return nil
}
