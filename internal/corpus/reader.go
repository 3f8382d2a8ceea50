// Package corpus reads marker-delimited dialogue corpora from disk.
package corpus

import (
	"bufio"
	"fmt"
	"os"
)

// Record is one raw line of the corpus: a full multi-turn dialogue with
// utterances separated by a marker token. Content is preserved as read.
type Record string

// ReadFile reads a newline-delimited corpus into ordered Records.
// Blank lines are kept; they are valid records that yield no pairs.
// The read is one-shot: any I/O failure is returned to the caller, there
// is no retry.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB line buffer
	for scanner.Scan() {
		records = append(records, Record(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan corpus: %w", err)
	}

	return records, nil
}
