package ingest

import (
	"encoding/binary"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Dedup remembers tweet ids in a bloom filter. A false positive drops a
// tweet that was never stored, at the configured rate.
type Dedup struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

func NewDedup(capacity uint, falsePositive float64) *Dedup {
	if capacity == 0 {
		capacity = 1_000_000
	}
	if falsePositive <= 0 || falsePositive >= 1 {
		falsePositive = 0.001
	}
	return &Dedup{filter: bloom.NewWithEstimates(capacity, falsePositive)}
}

// Seen reports whether id was probably added before.
func (d *Dedup) Seen(id int64) bool {
	key := dedupKey(id)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filter.Test(key[:])
}

// Add records id. Call it only once the tweet is stored, so a requeued
// delivery is not mistaken for a duplicate.
func (d *Dedup) Add(id int64) {
	key := dedupKey(id)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filter.Add(key[:])
}

func dedupKey(id int64) [8]byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(id))
	return key
}
