package seed

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/daiverp/daiverp/pkg/kvstore"
)

func TestRand(t *testing.T) {
	r := NewRand(0)
	if got := r.Uint64(); got != 0xE220A8397B1DCDAF {
		t.Errorf("Uint64() got = %#x, want 0xe220a8397b1dcdaf", got)
	}

	r = NewRand(DefaultSeed)
	for i := 0; i < 10000; i++ {
		f := r.Float64()
		if f < 0 || f >= 1 {
			t.Fatalf("Float64() out of range: %v", f)
		}
	}
}

func TestLabelFloat(t *testing.T) {
	if got, want := LabelFloat(""), float64(2166136261)/(1<<32); got != want {
		t.Errorf("LabelFloat(\"\") got = %v, want %v", got, want)
	}
	if got, want := LabelFloat("a"), float64(0xe40c292c)/(1<<32); got != want {
		t.Errorf("LabelFloat(\"a\") got = %v, want %v", got, want)
	}
	if LabelFloat("ampApr 09") != LabelFloat("ampApr 09") {
		t.Errorf("LabelFloat() is not stable")
	}
}

func TestGenerate(t *testing.T) {
	a, _ := json.Marshal(Generate(DefaultSeed))
	b, _ := json.Marshal(Generate(DefaultSeed))
	if string(a) != string(b) {
		t.Errorf("Generate() not deterministic:\n%s\n%s", a, b)
	}

	d := Generate(DefaultSeed)
	if len(d.V1) != 24 || len(d.V2) != 24 {
		t.Fatalf("Generate() wrong lengths %d %d", len(d.V1), len(d.V2))
	}
	for i := range d.V1 {
		if d.V1[i] < 3 || d.V1[i] > 12 {
			t.Errorf("v1[%d] = %d out of [3,12]", i, d.V1[i])
		}
		if d.V2[i] < 2 || d.V2[i] > 9 {
			t.Errorf("v2[%d] = %d out of [2,9]", i, d.V2[i])
		}
	}

	if reflect.DeepEqual(Generate(1), Generate(2)) {
		t.Errorf("different seeds gave the same demo")
	}
}

func TestGeneratorLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("emptyCache", func(t *testing.T) {
		store := kvstore.NewMemory()
		got, err := NewGenerator(store, DefaultSeed).Load(ctx)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !reflect.DeepEqual(got, Generate(DefaultSeed)) {
			t.Errorf("Load() got = %v", got)
		}

		stored, ok, _ := store.Get(ctx, StorageKey)
		want, _ := json.Marshal(Generate(DefaultSeed))
		if !ok || string(stored) != string(want) {
			t.Errorf("stored = %s, want %s", stored, want)
		}

		again, _ := NewGenerator(kvstore.NewMemory(), DefaultSeed).Load(ctx)
		if !reflect.DeepEqual(got, again) {
			t.Errorf("two empty caches gave different demos")
		}
	})

	t.Run("populatedCache", func(t *testing.T) {
		store := kvstore.NewMemory()
		cached := Demo{V1: make([]int, 24), V2: make([]int, 24)}
		cached.V1[0] = 99
		data, _ := json.Marshal(cached)
		_ = store.Set(ctx, StorageKey, data)

		got, err := NewGenerator(store, DefaultSeed).Load(ctx)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !reflect.DeepEqual(got, cached) {
			t.Errorf("Load() got = %v, want cached %v", got, cached)
		}
	})

	t.Run("corruptCache", func(t *testing.T) {
		store := kvstore.NewMemory()
		_ = store.Set(ctx, StorageKey, []byte("{not json"))

		got, err := NewGenerator(store, DefaultSeed).Load(ctx)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !reflect.DeepEqual(got, Generate(DefaultSeed)) {
			t.Errorf("Load() did not regenerate")
		}
	})

	t.Run("reset", func(t *testing.T) {
		store := kvstore.NewMemory()
		g := NewGenerator(store, DefaultSeed)
		_, _ = g.Load(ctx)

		if err := g.Reset(ctx); err != nil {
			t.Fatalf("Reset() error = %v", err)
		}
		if _, ok, _ := store.Get(ctx, StorageKey); ok {
			t.Errorf("Reset() left the entry behind")
		}
	})

	t.Run("failingStore", func(t *testing.T) {
		got, err := NewGenerator(failingStore{}, DefaultSeed).Load(ctx)
		if err == nil {
			t.Errorf("Load() expected an error")
		}
		if !reflect.DeepEqual(got, Generate(DefaultSeed)) {
			t.Errorf("Load() should still return the generated demo")
		}
	})

	t.Run("concurrentGenerators", func(t *testing.T) {
		store := kvstore.NewMemory()
		results := make([]Demo, 8)

		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				// different seeds, the first writer wins for everybody
				results[i], _ = NewGenerator(store, uint64(i+1)).Load(ctx)
			}(i)
		}
		wg.Wait()

		for i := range results {
			if !reflect.DeepEqual(results[i], results[0]) {
				t.Fatalf("generator %d saw %v, generator 0 saw %v", i, results[i], results[0])
			}
		}
	})
}

func TestDemoPair(t *testing.T) {
	d := Generate(DefaultSeed)
	p := d.Pair(3)

	if !reflect.DeepEqual(p.V1.Labels(), []string{"00:00", "01:00", "02:00"}) {
		t.Errorf("Pair() labels = %v", p.V1.Labels())
	}
	if p.V2.Values()[2] != float64(d.V2[2]) {
		t.Errorf("Pair() value = %v, want %v", p.V2.Values()[2], d.V2[2])
	}
	if d.Pair(99).Len() != 24 {
		t.Errorf("Pair(99) should stop at 24 hours")
	}
}

func TestDaily(t *testing.T) {
	labels := []string{"Apr 07", "Apr 08", "Apr 09"}
	a := Daily(labels)
	b := Daily(labels)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Daily() not deterministic")
	}

	for i, v := range a.V1.Values() {
		if v < 9 || v > 37 {
			t.Errorf("v1[%d] = %v outside the possible range", i, v)
		}
		if v != float64(int(v)) {
			t.Errorf("v1[%d] = %v not rounded", i, v)
		}
	}
	for i, v := range a.V2.Values() {
		if v < 5 || v > 25 {
			t.Errorf("v2[%d] = %v outside the possible range", i, v)
		}
	}

	// the same label at the same position gives the same value in a longer window
	longer := Daily(append(labels, "Apr 10"))
	if longer.V1.Values()[1] != a.V1.Values()[1] {
		t.Errorf("Daily() depends on window length")
	}
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (failingStore) PutIfAbsent(ctx context.Context, key string, value []byte) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Delete(ctx context.Context, key string) error {
	return errors.New("disk on fire")
}
