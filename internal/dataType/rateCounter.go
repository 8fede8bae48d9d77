package dataType

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

type rateWindow struct {
	segments    []int64
	timestamps  []int64
	lastUpdated int64
}

func newRateWindow(windowSec int64) *rateWindow {
	return &rateWindow{
		segments:   make([]int64, windowSec),
		timestamps: make([]int64, windowSec),
	}
}

func (w *rateWindow) add(ts int64) {
	idx := ts % int64(len(w.segments))
	if w.timestamps[idx] != ts {
		w.timestamps[idx] = ts
		w.segments[idx] = 1
	} else {
		w.segments[idx]++
	}
	w.lastUpdated = ts
}

func (w *rateWindow) total(now int64) int64 {
	var sum int64
	size := int64(len(w.segments))
	for i := int64(0); i < size; i++ {
		sec := now - size + 1 + i
		idx := sec % size
		if w.timestamps[idx] == sec {
			sum += w.segments[idx]
		}
	}
	return sum
}

type rateBucket struct {
	mu      sync.Mutex
	windows map[uint64]*rateWindow
}

// RateCounter tracks per-sender datagram counts over a short sliding window
// so a misbehaving peer can be damped before its traffic reaches the
// decoder. Keys are sharded by xxhash across buckets.
type RateCounter struct {
	buckets     []*rateBucket
	bucketCount uint64
	windowSec   int64
}

func NewRateCounter(bucketCount int, windowSec int64) *RateCounter {
	rc := &RateCounter{
		buckets:     make([]*rateBucket, bucketCount),
		bucketCount: uint64(bucketCount),
		windowSec:   windowSec,
	}
	for i := 0; i < bucketCount; i++ {
		rc.buckets[i] = &rateBucket{windows: make(map[uint64]*rateWindow)}
	}
	return rc
}

func (rc *RateCounter) bucket(hashKey uint64) *rateBucket {
	return rc.buckets[hashKey%rc.bucketCount]
}

// Allow records one event for key and reports whether the count over the
// current window stays within limit. A limit of 0 disables damping.
func (rc *RateCounter) Allow(key string, limit int64) bool {
	if limit <= 0 {
		return true
	}
	now := time.Now().Unix()
	hashKey := xxhash.Sum64String(key)
	bucket := rc.bucket(hashKey)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	w, exists := bucket.windows[hashKey]
	if !exists {
		w = newRateWindow(rc.windowSec)
		bucket.windows[hashKey] = w
	}
	w.add(now)
	return w.total(now) <= limit
}

// GC drops windows idle for longer than the window size.
func (rc *RateCounter) GC() {
	now := time.Now().Unix()
	expireThreshold := now - rc.windowSec
	for _, bucket := range rc.buckets {
		bucket.mu.Lock()
		for key, w := range bucket.windows {
			if w.lastUpdated < expireThreshold {
				delete(bucket.windows, key)
			}
		}
		bucket.mu.Unlock()
	}
}
