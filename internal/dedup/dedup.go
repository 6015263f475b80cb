// Package dedup finds repeated keys in catalog and trader documents and
// removes every occurrence after the first.
package dedup

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/marketeer/internal/models"
)

// DuplicateIndices scans keys in order and returns the index of every
// occurrence of a key that was already seen. The first occurrence of each
// key is never reported. Blank keys are skipped entirely.
func DuplicateIndices(keys []string) []int {
	seen := make(map[string]int, len(keys))
	var dups []int
	for i, k := range keys {
		if strings.TrimSpace(k) == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			dups = append(dups, i)
			continue
		}
		seen[k] = i
	}
	return dups
}

// Scan reports the duplicates of doc, tagged with path and doc's kind.
func Scan(path string, doc models.Document) []models.DuplicateRecord {
	keys := doc.Keys()
	idx := DuplicateIndices(keys)
	out := make([]models.DuplicateRecord, len(idx))
	for i, at := range idx {
		out[i] = models.DuplicateRecord{Index: at, Key: keys[at], Path: path, Kind: doc.Kind()}
	}
	return out
}

// descending returns a sorted, de-duplicated copy of indices, highest
// first, so each removal leaves the remaining pending indices valid.
func descending(indices []int) []int {
	out := slices.Clone(indices)
	slices.Sort(out)
	out = slices.Compact(out)
	slices.Reverse(out)
	return out
}

// RemoveIndices returns seq without the elements at indices. seq is not
// modified. Indices out of range are an error.
func RemoveIndices[T any](seq []T, indices []int) ([]T, error) {
	out := slices.Clone(seq)
	for _, i := range descending(indices) {
		if i < 0 || i >= len(out) {
			return nil, fmt.Errorf("dedup: index %d out of range [0,%d)", i, len(out))
		}
		out = slices.Delete(out, i, i+1)
	}
	return out, nil
}

// RemoveFrom deletes the entries at indices from doc, highest index first.
func RemoveFrom(doc models.Document, indices []int) (int, error) {
	removed := 0
	for _, i := range descending(indices) {
		if err := doc.RemoveAt(i); err != nil {
			return removed, fmt.Errorf("dedup: %w", err)
		}
		removed++
	}
	return removed, nil
}

// Indices extracts the positions from a set of duplicate records.
func Indices(recs []models.DuplicateRecord) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.Index
	}
	return out
}
