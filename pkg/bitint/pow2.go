// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers used to size analysis
windows and FFT recursion.

Design Principles:
- Zero Allocations: All operations use stack memory only
- Predictable Performance: O(1) constant time operations
- Real-Time Safe: No locks, syscalls, or blocking operations

Usage:

	// Suggest a valid analysis window when the configured one is not
	size := bitint.NextPowerOfTwo(100) // Returns 128

	// Guard FFT construction
	ok := bitint.IsPowerOfTwo(size)

	// Recursion depth of a radix-2 transform
	depth := bitint.Log2(size) // Returns 7
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size. Subtracting 1 first
// keeps exact powers of two unchanged (8-1 = 0b0111, Len = 3, 1<<3 = 8).
//
// Examples:
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo checks if n is a power of 2. Powers of two have exactly one
// bit set, so n & (n-1) clears it to zero.
//
// Examples:
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns floor(log2(n)) for n > 0 and -1 otherwise. For a power of two
// this is the number of radix-2 stages.
func Log2(n int) int {
	if n <= 0 {
		return -1
	}
	return bits.Len(uint(n)) - 1
}
