package shop

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultLocale    = "pt-BR"
	reportTimeLayout = "2006-01-02 15:04"
)

// Reporter prints query results as plain text tables. Numbers follow the
// locale's grouping and decimal marks.
type Reporter struct {
	w       io.Writer
	printer *message.Printer
	tag     language.Tag
}

func NewReporter(w io.Writer, locale string) (*Reporter, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("locale %q: %w", locale, err)
	}
	return &Reporter{w: w, printer: message.NewPrinter(tag), tag: tag}, nil
}

func (r *Reporter) Locale() string { return r.tag.String() }

func (r *Reporter) table(header string, rows func(tw io.Writer)) error {
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(reportTimeLayout)
}

func (r *Reporter) Summary(s GenerationSummary) error {
	_, err := r.printer.Fprintf(r.w,
		"run %s: %d customers, %d orders, %d products, %d order products in %s\n",
		s.RunID, s.Customers, s.Orders, s.Products, s.OrderProducts, s.Duration.Round(time.Millisecond))
	return err
}

func (r *Reporter) CustomerCount(n int) error {
	_, err := r.printer.Fprintf(r.w, "customers: %d\n", n)
	return err
}

func (r *Reporter) Customer(c Customer) error {
	_, err := fmt.Fprintf(r.w, "#%d %s <%s>\n  %s, %s %s\n", c.ID, c.FullName(), c.Email, c.Address, c.City, c.Postcode)
	return err
}

// Orders prints orders with their customer's name.
func (r *Reporter) Orders(title string, orders []CustomerOrder) error {
	r.printer.Fprintf(r.w, "%s (%d)\n", title, len(orders))
	return r.table("ID\tCUSTOMER\tORDERED\tSHIPPED\tDELIVERED\tCOUPON", func(tw io.Writer) {
		for _, o := range orders {
			fmt.Fprintf(tw, "%d\t%s %s\t%s\t%s\t%s\t%s\n",
				o.ID, o.FirstName, o.LastName,
				formatTime(&o.OrderDate), formatTime(o.ShippedDate), formatTime(o.DeliveredDate), o.Coupon)
		}
	})
}

func (r *Reporter) PendingOrders(orders []Order) error {
	r.printer.Fprintf(r.w, "pending orders (%d)\n", len(orders))
	return r.table("ID\tCUSTOMER ID\tORDERED\tCOUPON", func(tw io.Writer) {
		for _, o := range orders {
			fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", o.ID, o.CustomerID, formatTime(&o.OrderDate), o.Coupon)
		}
	})
}

func (r *Reporter) Products(title string, products []Product) error {
	r.printer.Fprintf(r.w, "%s (%d)\n", title, len(products))
	return r.table("ID\tNAME\tPRICE", func(tw io.Writer) {
		for _, p := range products {
			fmt.Fprintf(tw, "%d\t%s\t", p.ID, p.Name)
			r.printer.Fprintf(tw, "%d\n", p.Price)
		}
	})
}

func (r *Reporter) Revenue(days int, total int64) error {
	_, err := r.printer.Fprintf(r.w, "revenue over the last %d days: %d\n", days, total)
	return err
}

func (r *Reporter) Fulfillment(f Fulfillment) error {
	if f.Shipped == 0 {
		_, err := fmt.Fprintln(r.w, "average fulfillment time: no shipped orders")
		return err
	}
	_, err := r.printer.Fprintf(r.w, "average fulfillment time: %s (%s) over %d shipped orders\n",
		f.String(), f.Human(), f.Shipped)
	return err
}

func (r *Reporter) CustomersSpent(amount int64, spenders []CustomerSpend) error {
	r.printer.Fprintf(r.w, "customers who spent more than %d (%d)\n", amount, len(spenders))
	return r.table("ID\tNAME\tEMAIL\tSPENT", func(tw io.Writer) {
		for _, c := range spenders {
			fmt.Fprintf(tw, "%d\t%s\t%s\t", c.ID, c.FullName(), c.Email)
			r.printer.Fprintf(tw, "%d\n", c.Spent)
		}
	})
}
