// Package num projects host floating-point numbers onto the unsigned integer
// types the engine expects, and carries 64-bit operation stamps across the
// boundary without loss of precision.
package num

import (
	"math"
	"strconv"

	"github.com/Aman-CERP/searchbridge/internal/errors"
)

// MaxSafeInteger is the largest integer a float64 represents exactly.
const MaxSafeInteger = 1<<53 - 1

// ToUint validates that f is a non-negative integer that fits in an unsigned
// integer of the given bit width and returns it.
func ToUint(f float64, bits int) (uint64, error) {
	if bits <= 0 || bits > 64 {
		return 0, errors.InvalidArgument("unsupported integer width %d", bits)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return 0, errors.InvalidArgument("%v is not an integer", f)
	}
	// Values above 2^53 lose integer precision in a float64, so they are
	// rejected even for 64-bit targets.
	limit := float64(MaxSafeInteger)
	if bits < 53 {
		limit = float64(uint64(1)<<bits - 1)
	}
	if f < 0 || f > limit {
		return 0, errors.InvalidArgument("%v is out of range for %s", f, typeName(bits))
	}
	return uint64(f), nil
}

func typeName(bits int) string {
	if bits >= 53 {
		return "u53"
	}
	return "u" + strconv.Itoa(bits)
}

// ToU53 accepts any integer a float64 can hold exactly.
func ToU53(f float64) (uint64, error) { return ToUint(f, 53) }

// ToUint32 projects f onto uint32.
func ToUint32(f float64) (uint32, error) {
	v, err := ToUint(f, 32)
	return uint32(v), err
}

// ToUint16 projects f onto uint16.
func ToUint16(f float64) (uint16, error) {
	v, err := ToUint(f, 16)
	return uint16(v), err
}

// ToUint8 projects f onto uint8.
func ToUint8(f float64) (uint8, error) {
	v, err := ToUint(f, 8)
	return uint8(v), err
}

// ToInt projects f onto a non-negative platform int, used for limits and
// counts.
func ToInt(f float64) (int, error) {
	bits := 53
	if math.MaxInt == math.MaxInt32 {
		bits = 31
	}
	v, err := ToUint(f, bits)
	return int(v), err
}
