package shop

import (
	"fmt"
	"time"

	orm "github.com/medatechnology/simpleshop"
)

const (
	TableCustomers     = "customers"
	TableProducts      = "products"
	TableOrders        = "orders"
	TableOrderProducts = "order_products"
)

// Customer owns zero or more orders.
type Customer struct {
	ID        int64  `json:"id"         db:"id"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name"  db:"last_name"`
	Address   string `json:"address"    db:"address"`
	City      string `json:"city"       db:"city"`
	Postcode  string `json:"postcode"   db:"postcode"`
	Email     string `json:"email"      db:"email"`
}

func (Customer) TableName() string { return TableCustomers }

// FullName is "first last"
func (c Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// ToDBRecord leaves id out while it is zero so the engine assigns one.
func (c Customer) ToDBRecord() orm.DBRecord {
	data := map[string]interface{}{
		"first_name": c.FirstName,
		"last_name":  c.LastName,
		"address":    c.Address,
		"city":       c.City,
		"postcode":   c.Postcode,
		"email":      c.Email,
	}
	if c.ID != 0 {
		data["id"] = c.ID
	}
	return orm.DBRecord{TableName: TableCustomers, Data: data}
}

func customerFromRecord(rec orm.DBRecord) (Customer, error) {
	var c Customer
	var err error
	if c.ID, err = rec.Int64("id"); err != nil {
		return c, err
	}
	for col, dst := range map[string]*string{
		"first_name": &c.FirstName,
		"last_name":  &c.LastName,
		"address":    &c.Address,
		"city":       &c.City,
		"postcode":   &c.Postcode,
		"email":      &c.Email,
	} {
		if *dst, err = rec.Text(col); err != nil {
			return c, err
		}
	}
	return c, nil
}

// Product prices are whole currency units.
type Product struct {
	ID    int64  `json:"id"    db:"id"`
	Name  string `json:"name"  db:"name"`
	Price int64  `json:"price" db:"price"`
}

func (Product) TableName() string { return TableProducts }

func (p Product) ToDBRecord() orm.DBRecord {
	data := map[string]interface{}{
		"name":  p.Name,
		"price": p.Price,
	}
	if p.ID != 0 {
		data["id"] = p.ID
	}
	return orm.DBRecord{TableName: TableProducts, Data: data}
}

func productFromRecord(rec orm.DBRecord) (Product, error) {
	var p Product
	var err error
	if p.ID, err = rec.Int64("id"); err != nil {
		return p, err
	}
	if p.Name, err = rec.Text("name"); err != nil {
		return p, err
	}
	p.Price, err = rec.Int64("price")
	return p, err
}

// Order belongs to exactly one customer. A nil ShippedDate means pending;
// DeliveredDate is only ever set together with ShippedDate.
type Order struct {
	ID            int64      `json:"id"             db:"id"`
	OrderDate     time.Time  `json:"order_date"     db:"order_date"`
	ShippedDate   *time.Time `json:"shipped_date"   db:"shipped_date"`
	DeliveredDate *time.Time `json:"delivered_date" db:"delivered_date"`
	Coupon        Coupon     `json:"coupon_code"    db:"coupon_code"`
	CustomerID    int64      `json:"customer_id"    db:"customer_id"`
}

func (Order) TableName() string { return TableOrders }

// IsPending reports whether the order has not shipped yet
func (o Order) IsPending() bool { return o.ShippedDate == nil }

// FulfillmentTime is shipped minus ordered; false while pending.
func (o Order) FulfillmentTime() (time.Duration, bool) {
	if o.ShippedDate == nil {
		return 0, false
	}
	return o.ShippedDate.Sub(o.OrderDate), true
}

// validateDates checks ordered <= shipped <= delivered, and delivered needs shipped.
func (o Order) validateDates() error {
	if o.DeliveredDate != nil && o.ShippedDate == nil {
		return fmt.Errorf("%w: delivered without being shipped", ErrInvalidOrderDates)
	}
	if o.ShippedDate != nil && o.ShippedDate.Before(o.OrderDate) {
		return fmt.Errorf("%w: shipped before it was ordered", ErrInvalidOrderDates)
	}
	if o.DeliveredDate != nil && o.DeliveredDate.Before(*o.ShippedDate) {
		return fmt.Errorf("%w: delivered before it was shipped", ErrInvalidOrderDates)
	}
	return nil
}

// ToDBRecord always carries every column, nil for unset ones, so orders can
// share one multi-row INSERT.
func (o Order) ToDBRecord() orm.DBRecord {
	data := map[string]interface{}{
		"order_date":     orm.NormalizeTime(o.OrderDate),
		"shipped_date":   nullTime(o.ShippedDate),
		"delivered_date": nullTime(o.DeliveredDate),
		"coupon_code":    o.Coupon.value(),
		"customer_id":    o.CustomerID,
	}
	if o.ID != 0 {
		data["id"] = o.ID
	}
	return orm.DBRecord{TableName: TableOrders, Data: data}
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return orm.NormalizeTime(*t)
}

func optionalTime(rec orm.DBRecord, col string) (*time.Time, error) {
	t, ok, err := rec.NullTime(col)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

func orderFromRecord(rec orm.DBRecord) (Order, error) {
	var o Order
	var err error
	if o.ID, err = rec.Int64("id"); err != nil {
		return o, err
	}
	if o.OrderDate, err = rec.Time("order_date"); err != nil {
		return o, err
	}
	if o.ShippedDate, err = optionalTime(rec, "shipped_date"); err != nil {
		return o, err
	}
	if o.DeliveredDate, err = optionalTime(rec, "delivered_date"); err != nil {
		return o, err
	}
	code, _, err := rec.NullText("coupon_code")
	if err != nil {
		return o, err
	}
	o.Coupon = Coupon(code)
	o.CustomerID, err = rec.Int64("customer_id")
	return o, err
}

// OrderProduct is one line of an order; (OrderID, ProductID) is unique.
type OrderProduct struct {
	OrderID   int64 `json:"order_id"   db:"order_id"`
	ProductID int64 `json:"product_id" db:"product_id"`
}

func (OrderProduct) TableName() string { return TableOrderProducts }

func (op OrderProduct) ToDBRecord() orm.DBRecord {
	return orm.DBRecord{TableName: TableOrderProducts, Data: map[string]interface{}{
		"order_id":   op.OrderID,
		"product_id": op.ProductID,
	}}
}

// CustomerOrder is an order with its owner's name resolved.
type CustomerOrder struct {
	Order
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name"  db:"last_name"`
}

func customerOrderFromRecord(rec orm.DBRecord) (CustomerOrder, error) {
	o, err := orderFromRecord(rec)
	if err != nil {
		return CustomerOrder{}, err
	}
	co := CustomerOrder{Order: o}
	if co.FirstName, err = rec.Text("first_name"); err != nil {
		return co, err
	}
	co.LastName, err = rec.Text("last_name")
	return co, err
}

// CustomerSpend is a customer with the summed price of every product they ordered.
type CustomerSpend struct {
	Customer
	Spent int64 `json:"spent" db:"spent"`
}
