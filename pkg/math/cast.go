package math

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// limits returns the bounds of T as int64/uint64 pairs without relying on reflection.
func limits[T constraints.Integer]() (minimum int64, maximum uint64) {
	var zero T
	allOnes := ^zero
	if allOnes < zero {
		// signed: ^0 == -1
		var bits uint
		for v := T(1); v > 0; v <<= 1 {
			bits++
		}
		return -1 << bits, 1<<bits - 1
	}
	return 0, uint64(allOnes)
}

// SafeCastTo converts from to T and fails when the value does not fit.
func SafeCastTo[T, F constraints.Integer](from F) (T, error) {
	minimum, maximum := limits[T]()
	if from > 0 && uint64(from) > maximum {
		return T(0), fmt.Errorf("value(%v) exceeds the maximum value for type(%v)", from, maximum)
	}
	if from < 0 && int64(from) < minimum {
		return T(0), fmt.Errorf("value(%v) exceeds the minimum value for type(%v)", from, minimum)
	}
	return T(from), nil
}
