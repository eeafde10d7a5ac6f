package shop

import "fmt"

// Choice is one outcome of a weighted draw
type Choice[T any] struct {
	Value  T   `yaml:"value"  json:"value"`
	Weight int `yaml:"weight" json:"weight"`
}

// Weighted draws Values with probability Weight / total. Zero weights are
// allowed and never drawn.
type Weighted[T any] []Choice[T]

// numberSource is satisfied by *gofakeit.Faker
type numberSource interface {
	Number(min, max int) int
}

func (w Weighted[T]) Total() int {
	total := 0
	for _, c := range w {
		total += c.Weight
	}
	return total
}

func (w Weighted[T]) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("%w: no choices", ErrInvalidWeights)
	}
	for i, c := range w {
		if c.Weight < 0 {
			return fmt.Errorf("%w: choice %d has weight %d", ErrInvalidWeights, i, c.Weight)
		}
	}
	if w.Total() <= 0 {
		return fmt.Errorf("%w: weights sum to zero", ErrInvalidWeights)
	}
	return nil
}

// Pick assumes Validate passed.
func (w Weighted[T]) Pick(src numberSource) T {
	r := src.Number(1, w.Total())
	cumulative := 0
	for _, c := range w {
		cumulative += c.Weight
		if r <= cumulative {
			return c.Value
		}
	}
	return w[len(w)-1].Value
}

// Probability of the i-th choice, 0 when out of range.
func (w Weighted[T]) Probability(i int) float64 {
	total := w.Total()
	if i < 0 || i >= len(w) || total == 0 {
		return 0
	}
	return float64(w[i].Weight) / float64(total)
}

// DefaultShippedWeights: 90% of generated orders have shipped.
func DefaultShippedWeights() Weighted[bool] {
	return Weighted[bool]{{Value: false, Weight: 10}, {Value: true, Weight: 90}}
}

// DefaultDeliveredWeights applies to shipped orders only
func DefaultDeliveredWeights() Weighted[bool] {
	return Weighted[bool]{{Value: false, Weight: 50}, {Value: true, Weight: 50}}
}

func DefaultCouponWeights() Weighted[Coupon] {
	return Weighted[Coupon]{
		{Value: CouponNone, Weight: 80},
		{Value: Coupon50Off, Weight: 5},
		{Value: CouponFreeShipping, Weight: 5},
		{Value: CouponBuyOneGetTwo, Weight: 5},
	}
}
