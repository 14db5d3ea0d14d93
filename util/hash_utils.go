// Package util holds small stateless helpers shared across the cache
// packages. It deliberately stays tiny: anything with its own state or
// locking belongs in its own package.
package util

import (
	"encoding/binary"

	"github.com/OneOfOne/xxhash"
)

// HashCode hashes an arbitrary byte key.
func HashCode(key []byte) uint64 {
	h := xxhash.New64()
	h.Write(key)
	return h.Sum64()
}

// HashMetricID hashes a metric identifier for index partition selection.
// Section is folded in so the same metric ID in two sections doesn't
// necessarily land on the same partition, which would otherwise
// concentrate a busy section's pages onto one shard.
func HashMetricID(section uint64, metricID uint64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], section)
	binary.LittleEndian.PutUint64(buf[8:16], metricID)
	return HashCode(buf[:])
}
