package shop

import "github.com/medatechnology/goutil/medaerror"

var (
	ErrUnknownCoupon     medaerror.MedaError = medaerror.MedaError{Message: "unknown coupon id"}
	ErrInvalidPeriod     medaerror.MedaError = medaerror.MedaError{Message: "period must not be negative"}
	ErrNoCustomers       medaerror.MedaError = medaerror.MedaError{Message: "no customers to attach orders to"}
	ErrNoProducts        medaerror.MedaError = medaerror.MedaError{Message: "no products to attach to orders"}
	ErrCustomerNotFound  medaerror.MedaError = medaerror.MedaError{Message: "customer not found"}
	ErrOrderNotFound     medaerror.MedaError = medaerror.MedaError{Message: "order not found"}
	ErrCustomerHasOrders medaerror.MedaError = medaerror.MedaError{Message: "customer still has orders"}
	ErrInvalidOrderDates medaerror.MedaError = medaerror.MedaError{Message: "invalid order dates"}
	ErrDuplicateProduct  medaerror.MedaError = medaerror.MedaError{Message: "product listed twice on one order"}
	ErrInvalidWeights    medaerror.MedaError = medaerror.MedaError{Message: "invalid weighted choices"}
	ErrInvalidCount      medaerror.MedaError = medaerror.MedaError{Message: "count must be positive"}
)
