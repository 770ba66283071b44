package util

import "github.com/shopspring/decimal"

func FloatPointer(f float64) *float64 {
	return &f
}

func DecimalPointer(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func Pointer[T any](v T) *T {
	return &v
}
