// Package pairs turns dialogue records into adjacent-utterance training pairs.
package pairs

import (
	"strings"

	"github.com/parley-ml/parley/internal/corpus"
)

// TrainingPair is one supervised example: target is the utterance that
// followed context in the source record.
type TrainingPair struct {
	Context string
	Target  string
}

// SplitUtterances splits a record on every occurrence of the marker and
// trims each segment. The final segment is discarded: records end with a
// trailing marker, so the fragment after the last one carries no utterance.
// A record with no marker (including a blank line) yields no utterances.
func SplitUtterances(rec corpus.Record, marker string) []string {
	segments := strings.Split(string(rec), marker)
	segments = segments[:len(segments)-1]

	utterances := make([]string, len(segments))
	for i, seg := range segments {
		utterances[i] = strings.TrimSpace(seg)
	}
	return utterances
}

// ExtractPairs emits one TrainingPair per adjacent utterance pair within a
// single record, in index order. k utterances yield max(k-1, 0) pairs;
// pairs never span records. Malformed records degrade to zero pairs, they
// are never an error.
func ExtractPairs(rec corpus.Record, marker string) []TrainingPair {
	utterances := SplitUtterances(rec, marker)
	if len(utterances) < 2 {
		return nil
	}

	result := make([]TrainingPair, 0, len(utterances)-1)
	for i := 0; i < len(utterances)-1; i++ {
		result = append(result, TrainingPair{
			Context: utterances[i],
			Target:  utterances[i+1],
		})
	}
	return result
}
