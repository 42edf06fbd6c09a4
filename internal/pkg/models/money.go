package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents).
type Money int64

const centsPerUnit = 100

// KES builds a Money value from whole shillings.
func KES(units int64) Money {
	return Money(units * centsPerUnit)
}

// MoneyFromDecimal rounds half away from zero to the nearest cent.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Mul(decimal.NewFromInt(centsPerUnit)).Round(0).IntPart())
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// MulRate returns m * rate rounded to the nearest cent.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money(decimal.NewFromInt(int64(m)).Mul(rate).Round(0).IntPart())
}

func (m Money) IsNegative() bool {
	return m < 0
}

func MinMoney(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}

// String renders "KES 1,234.56".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	units := strconv.FormatInt(v/centsPerUnit, 10)
	var b strings.Builder
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("KES %s%s.%02d", sign, b.String(), v%centsPerUnit)
}
