package store

import (
	"errors"

	"github.com/featherdb/feather/distance"
	"github.com/featherdb/feather/internal/queue"
)

// ErrInvalidK is returned when k is negative.
var ErrInvalidK = errors.New("k must not be negative")

// Query performs a brute-force k-nearest-neighbor search: every entry is
// scored by squared L2 distance to q and the k smallest are returned in
// ascending distance order. Entries with equal distance rank by earlier
// insertion position, so identical inputs always produce identical output.
//
// k == 0 and an empty store both yield an empty result. If k exceeds the
// number of entries, all entries are returned sorted; callers must observe
// the returned length rather than assume it equals k.
//
// Cost is O(entries × dimension) per query.
func (s *Store) Query(q []float32, k int) ([]SearchResult, error) {
	if k < 0 {
		return nil, ErrInvalidK
	}
	if len(q) != s.dimension {
		return nil, &ErrDimensionMismatch{Expected: s.dimension, Actual: len(q)}
	}
	if k == 0 || len(s.ids) == 0 {
		return nil, nil
	}

	actualK := k
	if actualK > len(s.ids) {
		actualK = len(s.ids)
	}

	topCandidates := queue.NewMax(actualK)

	for i := range s.ids {
		d := distance.SquaredL2(q, s.data[i*s.dimension:(i+1)*s.dimension])

		if topCandidates.Len() < actualK {
			topCandidates.PushItem(queue.CandidateItem{ID: s.ids[i], Position: uint32(i), Distance: d})
			continue
		}

		// Entries are scanned in insertion order, so a candidate that
		// ties the current worst never replaces it: the earlier entry
		// wins the tie.
		worst, _ := topCandidates.TopItem()
		if d < worst.Distance {
			topCandidates.PopItem()
			topCandidates.PushItem(queue.CandidateItem{ID: s.ids[i], Position: uint32(i), Distance: d})
		}
	}

	// Drain worst-first and fill from the back. Tied candidates pop
	// later-position-first, which lands earlier positions first in the
	// result.
	results := make([]SearchResult, topCandidates.Len())
	for i := topCandidates.Len() - 1; i >= 0; i-- {
		item, _ := topCandidates.PopItem()
		results[i] = SearchResult{ID: item.ID, Distance: item.Distance}
	}
	return results, nil
}
