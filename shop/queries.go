package shop

import (
	"fmt"
	"math"
	"time"

	"github.com/medatechnology/goutil/timedate"
	orm "github.com/medatechnology/simpleshop"
)

const customerOrderColumns = `o.id, o.order_date, o.shipped_date, o.delivered_date, o.coupon_code, o.customer_id,
c.first_name, c.last_name`

func (s *Store) customerOrders(op, query string, args ...interface{}) ([]CustomerOrder, error) {
	records, err := s.selectRows(op, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]CustomerOrder, 0, len(records))
	for _, rec := range records {
		co, err := customerOrderFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, co)
	}
	return out, nil
}

func ordersFromRecords(op string, records orm.DBRecords) ([]Order, error) {
	out := make([]Order, 0, len(records))
	for _, rec := range records {
		o, err := orderFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, o)
	}
	return out, nil
}

// GetOrdersBy lists a customer's orders with the customer's names, oldest
// first. An unknown customer yields no orders.
func (s *Store) GetOrdersBy(customerID int64) ([]CustomerOrder, error) {
	return s.customerOrders("orders by customer", `SELECT `+customerOrderColumns+`
FROM orders o JOIN customers c ON c.id = o.customer_id
WHERE o.customer_id = ?
ORDER BY o.order_date, o.id`, customerID)
}

// GetPendingOrders returns orders not shipped yet, newest first.
func (s *Store) GetPendingOrders() ([]Order, error) {
	records, err := s.db.SelectManyWithCondition(TableOrders, &orm.Condition{
		Field:    "shipped_date",
		Operator: "IS NULL",
		OrderBy:  []string{"order_date DESC", "id DESC"},
	})
	if err != nil {
		return nil, orm.WrapSelectError(err, TableOrders)
	}
	return ordersFromRecords("pending orders", records)
}

func (s *Store) HowManyCustomers() (int, error) {
	return s.count(TableCustomers)
}

// OrdersWithCode maps couponID 1..4 to none, 50OFF, FREESHIPPING and
// BUYONEGETTWO, then behaves like OrdersWithCoupon.
func (s *Store) OrdersWithCode(couponID int) ([]CustomerOrder, error) {
	coupon, err := CouponFromID(couponID)
	if err != nil {
		return nil, err
	}
	return s.OrdersWithCoupon(coupon)
}

// OrdersWithCoupon lists orders using coupon, oldest first. CouponNone
// matches orders without a coupon.
func (s *Store) OrdersWithCoupon(coupon Coupon) ([]CustomerOrder, error) {
	if coupon.ID() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCoupon, string(coupon))
	}
	where, args := "o.coupon_code = ?", []interface{}{string(coupon)}
	if coupon.IsNone() {
		where, args = "o.coupon_code IS NULL", nil
	}
	return s.customerOrders("orders with coupon", `SELECT `+customerOrderColumns+`
FROM orders o JOIN customers c ON c.id = o.customer_id
WHERE `+where+`
ORDER BY o.order_date, o.id`, args...)
}

// maxPeriodDays keeps the revenue cutoff inside the year range every backend
// stores. Longer periods count every order.
const maxPeriodDays = 700_000

// RevenueByPeriod sums product prices over orders placed strictly after
// now - days. Zero days sets the cutoff to now.
func (s *Store) RevenueByPeriod(days int) (int64, error) {
	if days < 0 {
		return 0, fmt.Errorf("%w: %d days", ErrInvalidPeriod, days)
	}
	query := `SELECT COALESCE(SUM(p.price), 0) AS revenue
FROM order_products op
JOIN orders o ON o.id = op.order_id
JOIN products p ON p.id = op.product_id`
	var args []any
	if days <= maxPeriodDays {
		query += "\nWHERE o.order_date > ?"
		args = append(args, s.Now().AddDate(0, 0, -days))
	}
	records, err := s.selectRows("revenue by period", query, args...)
	if err != nil {
		return 0, err
	}
	rec, err := orm.OnlyOne(records)
	if err != nil {
		return 0, err
	}
	return rec.Int64("revenue")
}

// Fulfillment is the mean time from order to shipment.
type Fulfillment struct {
	Average time.Duration `json:"average"`
	Shipped int           `json:"shipped"`
}

// FulfillmentBreakdown splits a duration the way it is usually read out.
type FulfillmentBreakdown struct {
	Days, Hours, Minutes, Seconds int
}

func (f Fulfillment) Breakdown() FulfillmentBreakdown {
	total := int(f.Average.Round(time.Second) / time.Second)
	return FulfillmentBreakdown{
		Days:    total / 86400,
		Hours:   total % 86400 / 3600,
		Minutes: total % 3600 / 60,
		Seconds: total % 60,
	}
}

func (f Fulfillment) String() string {
	b := f.Breakdown()
	return fmt.Sprintf("%d days, %d hours, %d minutes, %d seconds", b.Days, b.Hours, b.Minutes, b.Seconds)
}

// Human is the compact uptime-style rendering, e.g. "3d 4h".
func (f Fulfillment) Human() string {
	return timedate.DurationUptimeShort(f.Average)
}

// AverageFulfillmentTime averages shipped_date - order_date over shipped
// orders. Shipped is 0 and Average is 0 when nothing has shipped.
func (s *Store) AverageFulfillmentTime() (Fulfillment, error) {
	elapsed := "(julianday(shipped_date) - julianday(order_date)) * 86400.0"
	if s.db.Dialect() == orm.DialectPostgres {
		elapsed = "EXTRACT(EPOCH FROM (shipped_date - order_date))::float8"
	}
	records, err := s.selectRows("average fulfillment", `SELECT COUNT(*) AS shipped, AVG(`+elapsed+`) AS seconds
FROM orders WHERE shipped_date IS NOT NULL`)
	if err != nil {
		return Fulfillment{}, err
	}
	rec, err := orm.OnlyOne(records)
	if err != nil {
		return Fulfillment{}, err
	}
	shipped, err := rec.Int64("shipped")
	if err != nil {
		return Fulfillment{}, err
	}
	if shipped == 0 || rec.IsNull("seconds") {
		return Fulfillment{}, nil
	}
	seconds, err := rec.Float64("seconds")
	if err != nil {
		return Fulfillment{}, err
	}
	return Fulfillment{
		Average: time.Duration(math.Round(seconds * float64(time.Second))),
		Shipped: int(shipped),
	}, nil
}

// CustomersSpentByAmount lists customers whose summed product spend is
// strictly greater than amount, biggest spender first.
func (s *Store) CustomersSpentByAmount(amount int64) ([]CustomerSpend, error) {
	records, err := s.selectRows("customers by spend", `SELECT c.id, c.first_name, c.last_name, c.address, c.city, c.postcode, c.email,
SUM(p.price) AS spent
FROM customers c
JOIN orders o ON o.customer_id = c.id
JOIN order_products op ON op.order_id = o.id
JOIN products p ON p.id = op.product_id
GROUP BY c.id, c.first_name, c.last_name, c.address, c.city, c.postcode, c.email
HAVING SUM(p.price) > ?
ORDER BY spent DESC, c.id`, amount)
	if err != nil {
		return nil, err
	}
	out := make([]CustomerSpend, 0, len(records))
	for _, rec := range records {
		c, err := customerFromRecord(rec)
		if err != nil {
			return nil, err
		}
		spent, err := rec.Int64("spent")
		if err != nil {
			return nil, err
		}
		out = append(out, CustomerSpend{Customer: c, Spent: spent})
	}
	return out, nil
}
