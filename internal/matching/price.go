package matching

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidPrice is returned when a price string holds no positive amount.
var ErrInvalidPrice = errors.New("invalid price")

// ParsePrice turns a currency-formatted string such as "₩ 32,900원" into an
// integer amount by keeping only ASCII digits. Empty, zero and overflowing
// values are rejected. Decimal fractions are not expected for won prices.
func ParsePrice(raw string) (int, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return 0, ErrInvalidPrice
	}
	value, err := strconv.ParseInt(digits, 10, 32)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	if value <= 0 {
		return 0, ErrInvalidPrice
	}
	return int(value), nil
}
