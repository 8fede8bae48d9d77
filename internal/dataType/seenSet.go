package dataType

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const seenBucketCount = 16

type seenBucket struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// SeenSet records message IDs already processed by this node, each with the
// local time it was first observed. Buckets are selected by xxhash so
// concurrent callers mostly contend on different locks.
type SeenSet struct {
	buckets [seenBucketCount]*seenBucket
}

func NewSeenSet() *SeenSet {
	s := &SeenSet{}
	for i := range s.buckets {
		s.buckets[i] = &seenBucket{entries: make(map[string]time.Time)}
	}
	return s
}

func (s *SeenSet) bucket(id string) *seenBucket {
	return s.buckets[xxhash.Sum64String(id)%seenBucketCount]
}

// Mark records id as seen at now and reports whether this was its first
// sighting. The check and the insert are one atomic step; a message is
// forwarded at most once per node no matter how many neighbors deliver
// copies concurrently.
func (s *SeenSet) Mark(id string, now time.Time) bool {
	b := s.bucket(id)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[id]; ok {
		return false
	}
	b.entries[id] = now
	return true
}

// Sweep removes every entry first seen more than retention before now and
// returns how many were dropped. Runs on a fixed period independent of
// traffic so an idle node still bounds its memory.
func (s *SeenSet) Sweep(now time.Time, retention time.Duration) int {
	removed := 0
	for _, b := range s.buckets {
		b.mu.Lock()
		for id, first := range b.entries {
			if now.Sub(first) > retention {
				delete(b.entries, id)
				removed++
			}
		}
		b.mu.Unlock()
	}
	return removed
}

// Len returns the number of recorded IDs.
func (s *SeenSet) Len() int {
	total := 0
	for _, b := range s.buckets {
		b.mu.Lock()
		total += len(b.entries)
		b.mu.Unlock()
	}
	return total
}
