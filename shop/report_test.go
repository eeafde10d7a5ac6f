package shop

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporterLocale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		locale string
		want   string
	}{
		{"", "1.234.567"},
		{"en", "1,234,567"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		r, err := NewReporter(&buf, tt.locale)
		require.NoError(t, err)
		require.NoError(t, r.Revenue(30, 1234567))
		assert.Contains(t, buf.String(), tt.want, "locale %q", tt.locale)
	}

	_, err := NewReporter(&bytes.Buffer{}, "not a locale!")
	assert.Error(t, err)
}

func TestReporterTables(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r, err := NewReporter(&buf, "en")
	require.NoError(t, err)
	assert.Equal(t, "en", r.Locale())

	ordered := time.Date(2026, 2, 3, 4, 5, 0, 0, time.UTC)
	require.NoError(t, r.Orders("orders with coupon 50OFF", []CustomerOrder{{
		Order:     Order{ID: 7, OrderDate: ordered, ShippedDate: ptr(ordered.Add(time.Hour)), Coupon: Coupon50Off},
		FirstName: "Ana",
		LastName:  "Souza",
	}}))
	out := buf.String()
	assert.Contains(t, out, "orders with coupon 50OFF (1)")
	assert.Contains(t, out, "Ana Souza")
	assert.Contains(t, out, "2026-02-03 04:05")
	assert.Contains(t, out, "2026-02-03 05:05")

	buf.Reset()
	require.NoError(t, r.PendingOrders([]Order{{ID: 1, CustomerID: 2, OrderDate: ordered}}))
	assert.Contains(t, buf.String(), "pending orders (1)")
	assert.Contains(t, buf.String(), "none")

	buf.Reset()
	require.NoError(t, r.CustomersSpent(100, []CustomerSpend{{Customer: Customer{ID: 3, FirstName: "Carla", LastName: "Dias", Email: "c@x"}, Spent: 2500}}))
	assert.Contains(t, buf.String(), "2,500")
	assert.Contains(t, buf.String(), "Carla Dias")

	buf.Reset()
	require.NoError(t, r.Fulfillment(Fulfillment{}))
	assert.Contains(t, buf.String(), "no shipped orders")

	buf.Reset()
	require.NoError(t, r.Fulfillment(Fulfillment{Average: 50 * time.Hour, Shipped: 3}))
	assert.Contains(t, buf.String(), "2 days, 2 hours, 0 minutes, 0 seconds")

	buf.Reset()
	require.NoError(t, r.Summary(GenerationSummary{RunID: "run-1", Customers: 100, Orders: 1000}))
	assert.Contains(t, buf.String(), "1,000 orders")

	buf.Reset()
	require.NoError(t, r.CustomerCount(12))
	require.NoError(t, r.Customer(Customer{ID: 1, FirstName: "Ana", LastName: "Souza", Email: "a@x", City: "Recife"}))
	require.NoError(t, r.Products("products", []Product{{ID: 1, Name: "Red", Price: 20}}))
	assert.Contains(t, buf.String(), "customers: 12")
	assert.Contains(t, buf.String(), "Recife")
	assert.Contains(t, buf.String(), "Red")
}
