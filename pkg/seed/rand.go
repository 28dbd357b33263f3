package seed

import (
	"hash/fnv"
)

// Rand is a SplitMix64 generator. The algorithm is small and fully specified,
// so any port seeded with the same value produces the same stream:
//
//	state += 0x9E3779B97F4A7C15
//	z = state
//	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
//	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
//	return z ^ (z >> 31)
//
// Float64 keeps the top 53 bits: (next >> 11) * 2^-53.
// It is not safe for concurrent use and not suitable for anything secret.
type Rand struct {
	state uint64
}

func NewRand(seed uint64) *Rand {
	return &Rand{state: seed}
}

func (r *Rand) Uint64() uint64 {
	r.state += 0x9E3779B97F4A7C15
	z := r.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Float64 returns a value in [0, 1)
func (r *Rand) Float64() float64 {
	return float64(r.Uint64()>>11) * (1.0 / (1 << 53))
}

// Intn returns floor(Float64()*n) + offset
func (r *Rand) Intn(n, offset int) int {
	return int(r.Float64()*float64(n)) + offset
}

// LabelFloat hashes s with 32 bit FNV-1a and scales it to [0, 1). The same
// label always gives the same value, whatever else has been generated.
func LabelFloat(s string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return float64(h.Sum32()) / (1 << 32)
}
