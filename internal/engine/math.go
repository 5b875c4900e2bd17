package engine

import (
	"math/bits"

	"github.com/alanyoungcy/eventum/internal/domain"
)

// u128 is an unsigned 128-bit intermediate, used for the constant-product K
// and for proportional-share math so 64-bit reserve values never overflow
// mid-computation.
type u128 struct {
	hi, lo uint64
}

// mul128 returns a*b as a u128. Never overflows.
func mul128(a, b uint64) u128 {
	hi, lo := bits.Mul64(a, b)
	return u128{hi: hi, lo: lo}
}

// div64 returns floor(x / d). It reports ErrArithmeticOverflow when the
// quotient does not fit in 64 bits, and treats division by zero the same
// way rather than panicking.
func (x u128) div64(d uint64) (uint64, error) {
	if d == 0 || x.hi >= d {
		return 0, domain.ErrArithmeticOverflow
	}
	q, _ := bits.Div64(x.hi, x.lo, d)
	return q, nil
}

// addU64 returns a+b, reporting ErrArithmeticOverflow on wraparound.
func addU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, domain.ErrArithmeticOverflow
	}
	return sum, nil
}

// feeOf returns floor(amount * feeBps / 10000). The 128-bit intermediate
// makes this exact for the full uint64 range; the quotient always fits
// because feeBps <= 10000.
func feeOf(amount uint64, feeBps uint32) uint64 {
	q, _ := mul128(amount, uint64(feeBps)).div64(domain.MaxFeeBps)
	return q
}
