package pairs

import "github.com/parley-ml/parley/internal/corpus"

// Dataset is the flat, ordered collection of TrainingPairs extracted from a
// corpus: record order first, intra-record pair order second. No
// deduplication, filtering, or shuffling is applied.
type Dataset struct {
	pairs []TrainingPair
}

// Build materializes the full dataset by extracting pairs from each record
// in turn. Deterministic: the same records always produce the same dataset.
func Build(records []corpus.Record, marker string) Dataset {
	var all []TrainingPair
	for _, rec := range records {
		all = append(all, ExtractPairs(rec, marker)...)
	}
	return Dataset{pairs: all}
}

func (d Dataset) Len() int {
	return len(d.pairs)
}

// Pairs returns the pairs in generation order.
func (d Dataset) Pairs() []TrainingPair {
	return d.pairs
}

// Contexts returns the context column, aligned with Targets.
func (d Dataset) Contexts() []string {
	out := make([]string, len(d.pairs))
	for i, p := range d.pairs {
		out[i] = p.Context
	}
	return out
}

// Targets returns the target column, aligned with Contexts.
func (d Dataset) Targets() []string {
	out := make([]string, len(d.pairs))
	for i, p := range d.pairs {
		out[i] = p.Target
	}
	return out
}
