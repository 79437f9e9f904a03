package domain

import "time"

// Transaction is an immutable transfer record between two accounts.
// FromAccount and ToAccount may be equal; self-transfers become self-edges
// in the transaction graph.
type Transaction struct {
	ID          string
	FromAccount string
	ToAccount   string
	Amount      float64
	Timestamp   time.Time
	Metadata    map[string]any
}

// FeatureSet is a flat mapping from feature name to scalar value.
type FeatureSet map[string]float64

// Clone returns an independent copy of the feature set.
func (f FeatureSet) Clone() FeatureSet {
	if f == nil {
		return nil
	}
	out := make(FeatureSet, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
