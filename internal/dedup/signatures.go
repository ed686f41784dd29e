// Package dedup tracks what a watch session has already handled: which
// transaction signatures produced a processing attempt, and which batch
// identities were already acted on. Both structures are bounded with a
// recency bias so multi-day sessions do not grow without limit.
package dedup

import "sync"

// Default capacities.
const (
	DefaultSignatureCapacity = 10000
	DefaultRecencyCapacity   = 100
)

// SignatureSet remembers processed transaction signatures for one watch
// session, alongside the newest confirmed block time. When the set grows
// past its capacity it drops roughly the older half; ordering within the
// kept half is insertion-biased, not strict FIFO.
type SignatureSet struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	order    []string
	capacity int

	lastBlockTime int64
	lastSignature string
}

// NewSignatureSet creates a set with the given capacity. A non-positive
// capacity falls back to the default.
func NewSignatureSet(capacity int) *SignatureSet {
	if capacity <= 0 {
		capacity = DefaultSignatureCapacity
	}
	return &SignatureSet{
		seen:     make(map[string]struct{}, capacity),
		capacity: capacity,
	}
}

// HasProcessed reports whether signature was already marked.
func (s *SignatureSet) HasProcessed(signature string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.seen[signature]
	return ok
}

// MarkProcessed records a processing attempt for signature. blockTime
// advances the last confirmed block time when newer; pass zero when the
// transaction carried none.
func (s *SignatureSet) MarkProcessed(signature string, blockTime int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[signature]; !ok {
		s.seen[signature] = struct{}{}
		s.order = append(s.order, signature)
		s.trimLocked()
	}

	if blockTime > s.lastBlockTime {
		s.lastBlockTime = blockTime
		s.lastSignature = signature
	}
}

// LastBlockTime returns the newest confirmed block time seen so far, or
// zero before the first.
func (s *SignatureSet) LastBlockTime() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastBlockTime
}

// LastSignature returns the signature carrying the newest confirmed
// block time, or empty before the first. Used to bound signature
// queries so already-covered history is not listed again.
func (s *SignatureSet) LastSignature() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSignature
}

// Len returns the number of tracked signatures.
func (s *SignatureSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.order)
}

func (s *SignatureSet) trimLocked() {
	if len(s.order) <= s.capacity {
		return
	}
	drop := len(s.order) / 2
	for _, sig := range s.order[:drop] {
		delete(s.seen, sig)
	}
	s.order = append([]string(nil), s.order[drop:]...)
}

// RecencySet is a bounded set of string keys trimmed to half capacity on
// overflow. Used for batch-identity dedup.
type RecencySet struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	order    []string
	capacity int
}

// NewRecencySet creates a set with the given capacity. A non-positive
// capacity falls back to the default.
func NewRecencySet(capacity int) *RecencySet {
	if capacity <= 0 {
		capacity = DefaultRecencyCapacity
	}
	return &RecencySet{
		seen:     make(map[string]struct{}, capacity),
		capacity: capacity,
	}
}

// Seen reports whether key is in the set.
func (r *RecencySet) Seen(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.seen[key]
	return ok
}

// Add inserts key, trimming the older half when capacity is exceeded.
func (r *RecencySet) Add(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[key]; ok {
		return
	}
	r.seen[key] = struct{}{}
	r.order = append(r.order, key)

	if len(r.order) > r.capacity {
		drop := len(r.order) / 2
		for _, k := range r.order[:drop] {
			delete(r.seen, k)
		}
		r.order = append([]string(nil), r.order[drop:]...)
	}
}

// Len returns the number of tracked keys.
func (r *RecencySet) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.order)
}
