package service

import (
	"sync"
	"testing"
)

func TestPicker_BoundsRespected(t *testing.T) {
	p := NewSeededPicker(42)
	for i := 0; i < 1000; i++ {
		got := p.Pick(6)
		if got < 0 || got >= 6 {
			t.Fatalf("Pick(6) returned %d, out of range", got)
		}
	}
}

func TestPicker_RoughlyUniform(t *testing.T) {
	p := NewSeededPicker(1)

	const draws = 6000
	counts := make([]int, 6)
	for i := 0; i < draws; i++ {
		counts[p.Pick(6)]++
	}

	// Expected 1000 per slot. A 25% band is far wider than the
	// statistical noise of 6000 draws, so this cannot flake while still
	// catching a biased or constant picker.
	for i, c := range counts {
		if c < 750 || c > 1250 {
			t.Errorf("index %d drawn %d times, expected near 1000", i, c)
		}
	}
}

func TestPicker_ConcurrentUse(t *testing.T) {
	p, err := NewPicker()
	if err != nil {
		t.Fatalf("NewPicker failed: %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if got := p.Pick(6); got < 0 || got >= 6 {
					t.Errorf("Pick(6) returned %d", got)
				}
			}
		}()
	}
	wg.Wait()
}
