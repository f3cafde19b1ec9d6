package service

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
)

// Picker selects one index out of n uniformly at random. Injecting it
// lets tests seed the draw while production uses an unpredictable
// source.
type Picker interface {
	// Pick returns an index in [0, n). Every index has probability 1/n.
	Pick(n int) int
}

type rngPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker returns a picker seeded from crypto/rand.
func NewPicker() (Picker, error) {
	seed, err := randomSeed()
	if err != nil {
		return nil, err
	}
	return NewSeededPicker(seed), nil
}

// NewSeededPicker returns a deterministic picker for reproducible
// draws in tests.
func NewSeededPicker(seed int64) Picker {
	return &rngPicker{rng: rand.New(rand.NewSource(seed))}
}

func (p *rngPicker) Pick(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}

// randomSeed generates a seed using crypto/rand.
func randomSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
