package core

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// MoneyDigits is the number of fractional digits kept for currency amounts.
const MoneyDigits = 2

var bigTen = big.NewInt(10)

func pow10(n int) *big.Int {
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}

func isFinite(n pgtype.Numeric) bool {
	return n.Valid && !n.NaN && n.InfinityModifier == pgtype.Finite && n.Int != nil
}

// RoundMoney rounds an exact decimal to the given number of fractional digits
// using round-half-up (ties move away from zero). The result always carries
// exponent -digits. Absent, NaN and infinite input is absent.
func RoundMoney(n pgtype.Numeric, digits int) pgtype.Numeric {
	if !isFinite(n) || digits < 0 {
		return pgtype.Numeric{}
	}

	target := int32(-digits)
	if n.Exp >= target {
		scaled := new(big.Int).Mul(n.Int, pow10(int(n.Exp-target)))
		return pgtype.Numeric{Int: scaled, Exp: target, Valid: true}
	}

	div := pow10(int(target - n.Exp))
	q, r := new(big.Int).QuoRem(n.Int, div, new(big.Int))

	twice := new(big.Int).Abs(r)
	twice.Lsh(twice, 1)
	if twice.Cmp(div) >= 0 {
		if n.Int.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}

	return pgtype.Numeric{Int: q, Exp: target, Valid: true}
}

// RoundMoneyString parses s as money and rounds it to MoneyDigits.
// Non-numeric input is absent.
func RoundMoneyString(s string) pgtype.Numeric {
	return RoundMoney(ParseMoney(s), MoneyDigits)
}

// RoundMoneyFloat rounds a float through its shortest decimal text, so 2.005
// is treated as the decimal 2.005 rather than its binary approximation.
func RoundMoneyFloat(f float64) pgtype.Numeric {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return pgtype.Numeric{}
	}
	return RoundMoneyString(strconv.FormatFloat(f, 'f', -1, 64))
}

// MultiplyMoney returns price × qty rounded to MoneyDigits.
func MultiplyMoney(price pgtype.Numeric, qty int64) pgtype.Numeric {
	if !isFinite(price) {
		return pgtype.Numeric{}
	}
	product := pgtype.Numeric{
		Int:   new(big.Int).Mul(price.Int, big.NewInt(qty)),
		Exp:   price.Exp,
		Valid: true,
	}
	return RoundMoney(product, MoneyDigits)
}

// AddMoney sums two amounts. An absent operand is skipped, not treated as
// zero: the result is absent only when both are absent.
func AddMoney(a, b pgtype.Numeric) pgtype.Numeric {
	switch {
	case !isFinite(a) && !isFinite(b):
		return pgtype.Numeric{}
	case !isFinite(a):
		return RoundMoney(b, MoneyDigits)
	case !isFinite(b):
		return RoundMoney(a, MoneyDigits)
	}
	ra, rb := RoundMoney(a, MoneyDigits), RoundMoney(b, MoneyDigits)
	return pgtype.Numeric{Int: new(big.Int).Add(ra.Int, rb.Int), Exp: ra.Exp, Valid: true}
}

// CompareMoney orders two amounts. Absent sorts below every present amount.
func CompareMoney(a, b pgtype.Numeric) int {
	switch {
	case !isFinite(a) && !isFinite(b):
		return 0
	case !isFinite(a):
		return -1
	case !isFinite(b):
		return 1
	}
	ra, rb := RoundMoney(a, MoneyDigits), RoundMoney(b, MoneyDigits)
	return ra.Int.Cmp(rb.Int)
}

// FormatMoney renders an amount with exactly MoneyDigits fractional digits,
// or "" when absent.
func FormatMoney(n pgtype.Numeric) string {
	r := RoundMoney(n, MoneyDigits)
	if !r.Valid {
		return ""
	}

	digits := new(big.Int).Abs(r.Int).String()
	if len(digits) <= MoneyDigits {
		digits = strings.Repeat("0", MoneyDigits-len(digits)+1) + digits
	}

	var b strings.Builder
	if r.Int.Sign() < 0 {
		b.WriteByte('-')
	}
	b.WriteString(digits[:len(digits)-MoneyDigits])
	b.WriteByte('.')
	b.WriteString(digits[len(digits)-MoneyDigits:])
	return b.String()
}

// MoneyFloat returns the amount as float64 for display and metrics only.
func MoneyFloat(n pgtype.Numeric) (float64, bool) {
	s := FormatMoney(n)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
