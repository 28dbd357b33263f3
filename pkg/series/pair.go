package series

// Pair holds the per-model series, V1 and V2, over the same buckets
type Pair struct {
	V1 Series `json:"v1" yaml:"v1"`
	V2 Series `json:"v2" yaml:"v2"`
}

// PairFromValues builds a pair sharing one label list
func PairFromValues(labels []string, v1, v2 []float64) Pair {
	return Pair{V1: FromValues(labels, v1), V2: FromValues(labels, v2)}
}

// Labels is the union of both sides in first seen order
func (p Pair) Labels() []string {
	return Merge(p.V1, p.V2).Labels()
}

func (p Pair) Align(labels []string) Pair {
	return Pair{V1: Align(p.V1, labels), V2: Align(p.V2, labels)}
}

// Add sums two pairs model by model
func (p Pair) Add(o Pair) Pair {
	return Pair{V1: Merge(p.V1, o.V1), V2: Merge(p.V2, o.V2)}
}

// Totals is V1+V2 per label
func (p Pair) Totals() Series {
	return Align(Merge(p.V1, p.V2), p.Labels())
}

func (p Pair) Len() int {
	return len(p.Labels())
}

func (p Pair) Empty() bool {
	return len(p.V1) == 0 && len(p.V2) == 0
}
