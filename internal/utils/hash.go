package utils

import "hash/fnv"

// StableIndex maps key onto [0, n) with FNV-1a. The same key always lands on
// the same index for a given n. n must be positive.
func StableIndex(key string, n int) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum64() % uint64(n))
}
