package sequence

import (
	"fmt"
	"strconv"
	"strings"
)

// OrderNumberPrefix starts every internal order number.
const OrderNumberPrefix = "SK"

// FormatOrderNumber renders n with the order prefix, zero-padded to two
// digits below 100 and unpadded from 100 on.
func FormatOrderNumber(n int64) string {
	return fmt.Sprintf("%s%02d", OrderNumberPrefix, n)
}

// ParseOrderNumber extracts the numeric part of a well-formed order number.
// Anything that is not the prefix followed by a positive integer is rejected.
func ParseOrderNumber(id string) (int64, bool) {
	digits, ok := strings.CutPrefix(id, OrderNumberPrefix)
	if !ok || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Highest returns the largest well-formed number among ids, or 0.
func Highest(ids []string) int64 {
	var highest int64
	for _, id := range ids {
		if n, ok := ParseOrderNumber(id); ok && n > highest {
			highest = n
		}
	}
	return highest
}

// NextAfter returns the order number following the highest one in ids.
// Malformed identifiers are ignored; with none usable the first number is returned.
func NextAfter(ids []string) string {
	return FormatOrderNumber(Highest(ids) + 1)
}
