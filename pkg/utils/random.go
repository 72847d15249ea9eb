package utils

import (
	"crypto/rand"
	"math/big"
)

// RandInt returns a uniform random integer in [0, max). Returns 0 when
// max <= 0 or if the system randomness source fails.
func RandInt(max int) int {
	if max <= 0 {
		return 0
	}
	num, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return int(num.Int64())
}

// SampleIndices picks k distinct indices out of [0, n) in random order.
// If k >= n every index is returned.
func SampleIndices(n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// partial Fisher-Yates
	for i := 0; i < k; i++ {
		j := i + RandInt(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
