package seed

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"

	"github.com/daiverp/daiverp/pkg/series"
	"github.com/pkg/errors"
)

const (
	// DefaultSeed feeds the generator when nothing else is configured
	DefaultSeed = 1234

	// StorageKey is where the demo seed is cached
	StorageKey = "daiverpDemoSeed"
)

// Demo is the synthetic hourly baseline shown before live data arrives.
// V1 values lie in [3,12], V2 values in [2,9].
type Demo struct {
	V1 []int `json:"v1" yaml:"v1"`
	V2 []int `json:"v2" yaml:"v2"`
}

func (d Demo) valid() bool {
	return len(d.V1) == series.HoursPerDay && len(d.V2) == series.HoursPerDay
}

// Pair returns the first n hours of the demo as a labelled pair
func (d Demo) Pair(n int) series.Pair {
	labels := series.HourLabels()
	if n > len(labels) {
		n = len(labels)
	}
	if n < 0 {
		n = 0
	}

	return series.Pair{
		V1: series.FromInts(labels, d.V1).Head(n),
		V2: series.FromInts(labels, d.V2).Head(n),
	}
}

// Store is the durable key/value cache the demo seed lives in
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// PutIfAbsent stores value unless key already holds one and returns
	// whatever the key holds afterwards.
	PutIfAbsent(ctx context.Context, key string, value []byte) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Generate draws 24 V1 values then 24 V2 values from one stream
func Generate(seed uint64) Demo {
	r := NewRand(seed)
	d := Demo{
		V1: make([]int, series.HoursPerDay),
		V2: make([]int, series.HoursPerDay),
	}

	for i := range d.V1 {
		d.V1[i] = r.Intn(10, 3)
	}
	for i := range d.V2 {
		d.V2[i] = r.Intn(8, 2)
	}

	return d
}

type Generator struct {
	store Store
	seed  uint64
	key   string

	mu sync.Mutex
}

func NewGenerator(store Store, seed uint64) *Generator {
	return &Generator{store: store, seed: seed, key: StorageKey}
}

// Load returns the cached demo seed, generating and caching it on first use.
// A cached entry is returned verbatim and the seed is ignored. When the store
// fails the freshly generated demo is still returned, together with the error.
func (g *Generator) Load(ctx context.Context) (Demo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.store == nil {
		return Generate(g.seed), nil
	}

	cached, ok, err := g.store.Get(ctx, g.key)
	if err != nil {
		return Generate(g.seed), errors.Wrap(err, "could not read demo seed")
	}

	if ok {
		if d, err := decode(cached); err == nil {
			return d, nil
		}

		slog.Debug("cached demo seed is corrupt, regenerating", "key", g.key)
		if err := g.store.Delete(ctx, g.key); err != nil {
			return Generate(g.seed), errors.Wrap(err, "could not drop corrupt demo seed")
		}
	}

	fresh := Generate(g.seed)
	data, err := json.Marshal(fresh)
	if err != nil {
		return fresh, err
	}

	stored, err := g.store.PutIfAbsent(ctx, g.key, data)
	if err != nil {
		return fresh, errors.Wrap(err, "could not store demo seed")
	}

	// another instance may have won the race, use its value
	if d, err := decode(stored); err == nil {
		return d, nil
	}
	return fresh, nil
}

// Reset clears the cached entry so the next Load regenerates it
func (g *Generator) Reset(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.store == nil {
		return nil
	}
	return g.store.Delete(ctx, g.key)
}

func decode(data []byte) (Demo, error) {
	var d Demo
	if err := json.Unmarshal(data, &d); err != nil {
		return Demo{}, err
	}
	if !d.valid() {
		return Demo{}, errors.New("demo seed does not hold 24 hours")
	}
	return d, nil
}

// Daily is the synthetic contribution for calendar buckets. Every value only
// depends on the label and its position, so the same day always looks the same.
func Daily(labels []string) series.Pair {
	v1 := make([]float64, len(labels))
	v2 := make([]float64, len(labels))

	for i, lab := range labels {
		amp := 1 + LabelFloat("amp"+lab)*5
		phi := LabelFloat("phi"+lab) * 2 * math.Pi
		base1 := math.Floor(LabelFloat("b1"+lab)*16) + 15
		base2 := math.Floor(LabelFloat("b2"+lab)*11) + 10

		x := float64(i)/2 + phi
		v1[i] = roundHalfUp(base1 + amp*math.Sin(x))
		v2[i] = roundHalfUp(base2 + (amp-1)*math.Cos(x))
	}

	return series.PairFromValues(labels, v1, v2)
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
