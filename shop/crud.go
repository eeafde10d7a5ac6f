package shop

import (
	"fmt"
	"time"

	orm "github.com/medatechnology/simpleshop"
)

func (s *Store) insertOne(rec orm.DBRecord) (int64, error) {
	res := s.db.InsertOneDBRecord(rec)
	if res.Error != nil {
		return 0, orm.WrapInsertError(res.Error, rec.TableName)
	}
	s.logger.Debug("row inserted", orm.String("table", rec.TableName), orm.Int("id", res.LastInsertID))
	return int64(res.LastInsertID), nil
}

// CreateCustomer inserts c and returns its new id.
func (s *Store) CreateCustomer(c Customer) (int64, error) {
	c.ID = 0
	return s.insertOne(c.ToDBRecord())
}

func (s *Store) CreateProduct(p Product) (int64, error) {
	p.ID = 0
	return s.insertOne(p.ToDBRecord())
}

// CreateOrder inserts order and one association row per product in a single
// transaction. A zero OrderDate means now.
func (s *Store) CreateOrder(order Order, productIDs ...int64) (int64, error) {
	order.ID = 0
	if order.OrderDate.IsZero() {
		order.OrderDate = s.Now()
	}
	if err := order.validateDates(); err != nil {
		return 0, err
	}
	seen := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		if seen[id] {
			return 0, fmt.Errorf("%w: product %d", ErrDuplicateProduct, id)
		}
		seen[id] = true
	}

	tx, err := s.db.BeginTransaction()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res := tx.InsertOneDBRecord(order.ToDBRecord())
	if res.Error != nil {
		return 0, orm.WrapInsertError(res.Error, TableOrders)
	}
	orderID := int64(res.LastInsertID)

	for _, productID := range productIDs {
		if orderID != 0 {
			res = tx.InsertOneDBRecord(OrderProduct{OrderID: orderID, ProductID: productID}.ToDBRecord())
		} else {
			// buffered backends (rqlite) only learn the id at commit time
			res = tx.ExecOneSQLParameterized(orm.SQLAndValuesToParameterized(
				"INSERT INTO order_products (order_id, product_id) SELECT MAX(id), ? FROM orders", productID))
		}
		if res.Error != nil {
			return 0, orm.WrapInsertError(res.Error, TableOrderProducts)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}

	if orderID == 0 {
		rec, err := s.db.SelectOnlyOneSQLParameterized(orm.SQLAndValuesToParameterized(
			"SELECT MAX(id) AS id FROM orders WHERE customer_id = ?", order.CustomerID))
		if err != nil {
			return 0, orm.WrapSelectError(err, TableOrders)
		}
		if orderID, err = rec.Int64("id"); err != nil {
			return 0, err
		}
	}
	s.logger.Debug("order created",
		orm.Int64("id", orderID),
		orm.Int64("customer_id", order.CustomerID),
		orm.Int("products", len(productIDs)))
	return orderID, nil
}

func (s *Store) findCustomer(condition *orm.Condition) (Customer, error) {
	records, err := s.db.SelectManyWithCondition(TableCustomers, condition)
	if err != nil {
		return Customer{}, orm.WrapSelectError(err, TableCustomers)
	}
	rec, err := orm.OnlyOne(records)
	if orm.IsNoRows(err) {
		return Customer{}, ErrCustomerNotFound
	}
	if err != nil {
		return Customer{}, err
	}
	return customerFromRecord(rec)
}

func (s *Store) GetCustomer(id int64) (Customer, error) {
	c, err := s.findCustomer(&orm.Condition{Field: "id", Operator: "=", Value: id})
	if orm.IsError(err, ErrCustomerNotFound) {
		return c, fmt.Errorf("%w: id %d", ErrCustomerNotFound, id)
	}
	return c, err
}

func (s *Store) FindCustomerByEmail(email string) (Customer, error) {
	c, err := s.findCustomer(&orm.Condition{Field: "email", Operator: "=", Value: email})
	if orm.IsError(err, ErrCustomerNotFound) {
		return c, fmt.Errorf("%w: %s", ErrCustomerNotFound, email)
	}
	return c, err
}

func (s *Store) GetOrder(id int64) (Order, error) {
	records, err := s.db.SelectManyWithCondition(TableOrders, &orm.Condition{Field: "id", Operator: "=", Value: id})
	if err != nil {
		return Order{}, orm.WrapSelectError(err, TableOrders)
	}
	if len(records) == 0 {
		return Order{}, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	return orderFromRecord(records[0])
}

// ListProducts returns every product, cheapest first
func (s *Store) ListProducts() ([]Product, error) {
	records, err := s.db.SelectManyWithCondition(TableProducts, &orm.Condition{OrderBy: []string{"price", "id"}})
	if err != nil {
		return nil, orm.WrapSelectError(err, TableProducts)
	}
	return productsFromRecords(records)
}

func productsFromRecords(records []orm.DBRecord) ([]Product, error) {
	out := make([]Product, 0, len(records))
	for _, rec := range records {
		p, err := productFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// OrderProducts lists the products attached to an order.
func (s *Store) OrderProducts(orderID int64) ([]Product, error) {
	records, err := s.selectRows("order products", `SELECT p.id, p.name, p.price
FROM order_products op JOIN products p ON p.id = op.product_id
WHERE op.order_id = ?
ORDER BY p.id`, orderID)
	if err != nil {
		return nil, err
	}
	return productsFromRecords(records)
}

func (s *Store) exec(op, table, query string, args ...interface{}) (int, error) {
	res := s.db.ExecOneSQLParameterized(orm.SQLAndValuesToParameterized(query, args...))
	if res.Error != nil {
		return 0, orm.WrapError(res.Error, op, table)
	}
	s.logger.Debug("row changed", orm.String("table", table), orm.String("op", op), orm.Int("rows", res.RowsAffected))
	return res.RowsAffected, nil
}

func (s *Store) UpdateCustomerAddress(id int64, address, city, postcode string) error {
	n, err := s.exec("UPDATE", TableCustomers,
		"UPDATE customers SET address = ?, city = ?, postcode = ? WHERE id = ?",
		address, city, postcode, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrCustomerNotFound, id)
	}
	return nil
}

// MarkShipped sets shipped_date; at must not be before the order date. A zero
// at means now.
func (s *Store) MarkShipped(orderID int64, at time.Time) error {
	o, err := s.GetOrder(orderID)
	if err != nil {
		return err
	}
	if at.IsZero() {
		at = s.Now()
	}
	o.ShippedDate = &at
	if err = o.validateDates(); err != nil {
		return err
	}
	_, err = s.exec("UPDATE", TableOrders, "UPDATE orders SET shipped_date = ? WHERE id = ?", orm.NormalizeTime(at), orderID)
	return err
}

// MarkDelivered sets delivered_date on an order that has already shipped.
func (s *Store) MarkDelivered(orderID int64, at time.Time) error {
	o, err := s.GetOrder(orderID)
	if err != nil {
		return err
	}
	if at.IsZero() {
		at = s.Now()
	}
	o.DeliveredDate = &at
	if err = o.validateDates(); err != nil {
		return err
	}
	_, err = s.exec("UPDATE", TableOrders, "UPDATE orders SET delivered_date = ? WHERE id = ?", orm.NormalizeTime(at), orderID)
	return err
}

// DeleteCustomer refuses while the customer still owns orders.
func (s *Store) DeleteCustomer(id int64) error {
	rec, err := s.db.SelectOnlyOneSQLParameterized(orm.SQLAndValuesToParameterized(
		"SELECT COUNT(*) AS total FROM orders WHERE customer_id = ?", id))
	if err != nil {
		return orm.WrapSelectError(err, TableOrders)
	}
	orders, err := rec.Int64("total")
	if err != nil {
		return err
	}
	if orders > 0 {
		return fmt.Errorf("%w: customer %d has %d orders", ErrCustomerHasOrders, id, orders)
	}
	n, err := s.exec("DELETE", TableCustomers, "DELETE FROM customers WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrCustomerNotFound, id)
	}
	s.logger.Info("customer deleted", orm.Int64("id", id))
	return nil
}
