// Package rand provides a weak pseudo-random generator that is safe for
// concurrent use. It is meant for correlation values such as tokens and
// message ids, never for anything with security consequences.
package rand

import (
	"math/rand"
	"sync"
)

type Rand struct {
	src  *rand.Rand
	lock sync.Mutex
}

// NewRand creates a generator seeded with seed. Generators are never
// initialized implicitly; callers own the instance and its seed.
func NewRand(seed int64) *Rand {
	return &Rand{
		src: rand.New(rand.NewSource(seed)), //nolint:gosec
	}
}

func (l *Rand) Int63() int64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.src.Int63()
}

func (l *Rand) Uint32() uint32 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.src.Uint32()
}

// Read fills p with pseudo-random bytes. It always returns len(p) and a nil error.
func (l *Rand) Read(p []byte) (int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	for i := range p {
		p[i] = byte(l.src.Int63())
	}
	return len(p), nil
}
