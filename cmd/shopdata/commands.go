package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/medatechnology/simpleshop/shop"
)

var commands map[string]command

func init() {
	commands = map[string]command{
		"init":               {"create the tables if they do not exist", cmdInit},
		"drop":               {"drop every shop table", cmdDrop},
		"generate":           {"create the schema and fill it with random data", cmdGenerate},
		"add-customers":      {"add random customers", cmdAddCustomers},
		"add-orders":         {"add random orders for existing customers", cmdAddOrders},
		"add-products":       {"add random products", cmdAddProducts},
		"add-order-products": {"attach random products to orders without any", cmdAddOrderProducts},
		"customers":          {"count customers", cmdCustomers},
		"customer":           {"show one customer by -id or -email", cmdCustomer},
		"orders":             {"list a customer's orders", cmdOrders},
		"pending":            {"list orders not shipped yet, newest first", cmdPending},
		"coupon":             {"list orders by coupon id 1-4 (none, 50OFF, FREESHIPPING, BUYONEGETTWO)", cmdCoupon},
		"revenue":            {"revenue of orders placed in the last -days", cmdRevenue},
		"fulfillment":        {"average time from order to shipment", cmdFulfillment},
		"spent":              {"customers who spent more than -amount", cmdSpent},
		"products":           {"list products, or those of one -order", cmdProducts},
		"update-address":     {"change a customer's address", cmdUpdateAddress},
		"ship":               {"mark an order shipped", cmdShip},
		"deliver":            {"mark a shipped order delivered", cmdDeliver},
		"delete-customer":    {"delete a customer without orders", cmdDeleteCustomer},
		"status":             {"database status", cmdStatus},
		"schema":             {"print the database schema", cmdSchema},
	}
}

func noFlags(name string, args []string) error {
	return parseFlags(flag.NewFlagSet(name, flag.ContinueOnError), args)
}

func countFlag(name string, args []string, fallback int) (int, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	n := fs.Int("n", fallback, "how many rows")
	if err := parseFlags(fs, args); err != nil {
		return 0, err
	}
	return *n, nil
}

func parseAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("-at wants RFC3339, e.g. 2026-01-02T15:04:05Z: %w", err)
	}
	return t, nil
}

func cmdInit(a *app, args []string) error {
	if err := noFlags("init", args); err != nil {
		return err
	}
	return a.store.CreateSchema()
}

func cmdDrop(a *app, args []string) error {
	if err := noFlags("drop", args); err != nil {
		return err
	}
	return a.store.DropSchema()
}

func cmdGenerate(a *app, args []string) error {
	gc := a.cfg.Generator
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.IntVar(&gc.Customers, "customers", gc.Customers, "customers to create")
	fs.IntVar(&gc.Orders, "orders", gc.Orders, "orders to create")
	fs.IntVar(&gc.Products, "products", gc.Products, "products to create")
	fs.Uint64Var(&gc.Seed, "seed", gc.Seed, "random seed, 0 for a random one")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	g, err := shop.NewGenerator(a.store, gc)
	if err != nil {
		return err
	}
	summary, err := g.CreateRandomData()
	if err != nil {
		return err
	}
	return a.reporter.Summary(summary)
}

func newGenerator(a *app) (*shop.Generator, error) {
	return shop.NewGenerator(a.store, a.cfg.Generator)
}

func cmdAddCustomers(a *app, args []string) error {
	n, err := countFlag("add-customers", args, a.cfg.Generator.Customers)
	if err != nil {
		return err
	}
	g, err := newGenerator(a)
	if err != nil {
		return err
	}
	written, err := g.AddCustomers(n)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "added %d customers\n", written)
	return err
}

func cmdAddOrders(a *app, args []string) error {
	n, err := countFlag("add-orders", args, a.cfg.Generator.Orders)
	if err != nil {
		return err
	}
	g, err := newGenerator(a)
	if err != nil {
		return err
	}
	written, err := g.AddOrders(n)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "added %d orders\n", written)
	return err
}

func cmdAddProducts(a *app, args []string) error {
	n, err := countFlag("add-products", args, a.cfg.Generator.Products)
	if err != nil {
		return err
	}
	g, err := newGenerator(a)
	if err != nil {
		return err
	}
	written, err := g.AddProducts(n)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "added %d products\n", written)
	return err
}

func cmdAddOrderProducts(a *app, args []string) error {
	if err := noFlags("add-order-products", args); err != nil {
		return err
	}
	g, err := newGenerator(a)
	if err != nil {
		return err
	}
	written, err := g.AddOrderProducts()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "added %d order products\n", written)
	return err
}

func cmdCustomers(a *app, args []string) error {
	if err := noFlags("customers", args); err != nil {
		return err
	}
	n, err := a.store.HowManyCustomers()
	if err != nil {
		return err
	}
	return a.reporter.CustomerCount(n)
}

func cmdCustomer(a *app, args []string) error {
	fs := flag.NewFlagSet("customer", flag.ContinueOnError)
	id := fs.Int64("id", 0, "customer id")
	email := fs.String("email", "", "customer email")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	var c shop.Customer
	var err error
	switch {
	case *id != 0:
		c, err = a.store.GetCustomer(*id)
	case *email != "":
		c, err = a.store.FindCustomerByEmail(*email)
	default:
		return fmt.Errorf("customer: -id or -email is required")
	}
	if err != nil {
		return err
	}
	return a.reporter.Customer(c)
}

func cmdOrders(a *app, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ContinueOnError)
	customer := fs.Int64("customer", 0, "customer id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	orders, err := a.store.GetOrdersBy(*customer)
	if err != nil {
		return err
	}
	return a.reporter.Orders(fmt.Sprintf("orders of customer %d", *customer), orders)
}

func cmdPending(a *app, args []string) error {
	if err := noFlags("pending", args); err != nil {
		return err
	}
	orders, err := a.store.GetPendingOrders()
	if err != nil {
		return err
	}
	return a.reporter.PendingOrders(orders)
}

func cmdCoupon(a *app, args []string) error {
	fs := flag.NewFlagSet("coupon", flag.ContinueOnError)
	id := fs.Int("id", 1, "coupon id: 1 none, 2 50OFF, 3 FREESHIPPING, 4 BUYONEGETTWO")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	orders, err := a.store.OrdersWithCode(*id)
	if err != nil {
		return err
	}
	coupon, _ := shop.CouponFromID(*id)
	return a.reporter.Orders("orders with coupon "+coupon.String(), orders)
}

func cmdRevenue(a *app, args []string) error {
	fs := flag.NewFlagSet("revenue", flag.ContinueOnError)
	days := fs.Int("days", 30, "period in days")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	total, err := a.store.RevenueByPeriod(*days)
	if err != nil {
		return err
	}
	return a.reporter.Revenue(*days, total)
}

func cmdFulfillment(a *app, args []string) error {
	if err := noFlags("fulfillment", args); err != nil {
		return err
	}
	f, err := a.store.AverageFulfillmentTime()
	if err != nil {
		return err
	}
	return a.reporter.Fulfillment(f)
}

func cmdSpent(a *app, args []string) error {
	fs := flag.NewFlagSet("spent", flag.ContinueOnError)
	amount := fs.Int64("amount", 100, "spend threshold, exclusive")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	spenders, err := a.store.CustomersSpentByAmount(*amount)
	if err != nil {
		return err
	}
	return a.reporter.CustomersSpent(*amount, spenders)
}

func cmdProducts(a *app, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	order := fs.Int64("order", 0, "only the products of this order")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *order != 0 {
		products, err := a.store.OrderProducts(*order)
		if err != nil {
			return err
		}
		return a.reporter.Products(fmt.Sprintf("products of order %d", *order), products)
	}
	products, err := a.store.ListProducts()
	if err != nil {
		return err
	}
	return a.reporter.Products("products", products)
}

func cmdUpdateAddress(a *app, args []string) error {
	fs := flag.NewFlagSet("update-address", flag.ContinueOnError)
	id := fs.Int64("id", 0, "customer id")
	address := fs.String("address", "", "street address")
	city := fs.String("city", "", "city")
	postcode := fs.String("postcode", "", "postcode")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *address == "" || *city == "" || *postcode == "" {
		return fmt.Errorf("update-address: -address, -city and -postcode are required")
	}
	return a.store.UpdateCustomerAddress(*id, *address, *city, *postcode)
}

func orderAtFlags(name string, args []string) (int64, time.Time, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	order := fs.Int64("order", 0, "order id")
	at := fs.String("at", "", "timestamp in RFC3339, default now")
	if err := parseFlags(fs, args); err != nil {
		return 0, time.Time{}, err
	}
	t, err := parseAt(*at)
	return *order, t, err
}

func cmdShip(a *app, args []string) error {
	order, at, err := orderAtFlags("ship", args)
	if err != nil {
		return err
	}
	return a.store.MarkShipped(order, at)
}

func cmdDeliver(a *app, args []string) error {
	order, at, err := orderAtFlags("deliver", args)
	if err != nil {
		return err
	}
	return a.store.MarkDelivered(order, at)
}

func cmdDeleteCustomer(a *app, args []string) error {
	fs := flag.NewFlagSet("delete-customer", flag.ContinueOnError)
	id := fs.Int64("id", 0, "customer id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	return a.store.DeleteCustomer(*id)
}

func cmdStatus(a *app, args []string) error {
	if err := noFlags("status", args); err != nil {
		return err
	}
	status, err := a.store.DB().Status()
	if err != nil {
		return err
	}
	status.WritePretty(a.out)
	return nil
}

func cmdSchema(a *app, args []string) error {
	if err := noFlags("schema", args); err != nil {
		return err
	}
	for _, obj := range a.store.DB().GetSchema(true) {
		obj.WriteDebug(a.out, true)
	}
	return nil
}
