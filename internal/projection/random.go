package projection

import (
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// RandomSource supplies standard normal samples to the projector
type RandomSource interface {
	Gaussian() float64
}

// ZeroNoise is a RandomSource that always returns 0, leaving only the drift term
type ZeroNoise struct{}

// Gaussian implements RandomSource
func (ZeroNoise) Gaussian() float64 { return 0 }

// NormalSource draws N(0,1) samples from a seeded PCG generator.
// It is safe for concurrent use.
type NormalSource struct {
	mu   sync.Mutex
	dist distuv.Normal
}

// NewNormalSource creates a reproducible source for the given seed
func NewNormalSource(seed uint64) *NormalSource {
	return &NormalSource{
		dist: distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)},
	}
}

// NewTimeSeededSource creates a source seeded from the wall clock
func NewTimeSeededSource() *NormalSource {
	return NewNormalSource(uint64(time.Now().UnixNano()))
}

// Gaussian implements RandomSource
func (s *NormalSource) Gaussian() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dist.Rand()
}
