package app

import (
	"math/rand/v2"
	"sync"
)

// Sampler draws random subsets of image URLs. Safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSampler uses src as the random source; nil seeds from the runtime.
func NewSampler(src rand.Source) *Sampler {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Sampler{rnd: rand.New(src)}
}

// Sample returns min(count, len(urls)) distinct urls in no particular order.
func (s *Sampler) Sample(urls []string, count int) []string {
	n := len(urls)
	if count > n {
		count = n
	}
	if count <= 0 {
		return []string{}
	}
	pool := make([]string, n)
	copy(pool, urls)

	s.mu.Lock()
	defer s.mu.Unlock()
	// partial Fisher-Yates: the first count slots end up uniformly sampled
	for i := 0; i < count; i++ {
		j := i + s.rnd.IntN(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:count:count]
}
