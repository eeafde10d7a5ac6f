package shop

import "fmt"

// Coupon is the discount label on an order. The zero value means no coupon
// and is stored as NULL.
type Coupon string

const (
	CouponNone         Coupon = ""
	Coupon50Off        Coupon = "50OFF"
	CouponFreeShipping Coupon = "FREESHIPPING"
	CouponBuyOneGetTwo Coupon = "BUYONEGETTWO"
)

// couponIDs is the numbering used by OrdersWithCode, 1-based.
var couponIDs = []Coupon{CouponNone, Coupon50Off, CouponFreeShipping, CouponBuyOneGetTwo}

// CouponFromID maps 1..4 to none, 50OFF, FREESHIPPING and BUYONEGETTWO.
func CouponFromID(id int) (Coupon, error) {
	if id < 1 || id > len(couponIDs) {
		return CouponNone, fmt.Errorf("%w: id %d, want 1..%d", ErrUnknownCoupon, id, len(couponIDs))
	}
	return couponIDs[id-1], nil
}

// Coupons lists every known coupon in id order
func Coupons() []Coupon {
	out := make([]Coupon, len(couponIDs))
	copy(out, couponIDs)
	return out
}

// ID is the inverse of CouponFromID, 0 for codes outside the known set.
func (c Coupon) ID() int {
	for i, known := range couponIDs {
		if known == c {
			return i + 1
		}
	}
	return 0
}

func (c Coupon) IsNone() bool { return c == CouponNone }

func (c Coupon) String() string {
	if c == CouponNone {
		return "none"
	}
	return string(c)
}

func (c Coupon) value() interface{} {
	if c == CouponNone {
		return nil
	}
	return string(c)
}
