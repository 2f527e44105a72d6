package feather

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Stats is a point-in-time summary of an open index.
type Stats struct {
	// Path is the file path the index persists to.
	Path string

	// Dimension is the fixed vector dimensionality.
	Dimension int

	// EntryCount is the number of stored entries, duplicates included.
	EntryCount int

	// UniqueIDs is the number of distinct ids. Duplicate ids are
	// permitted by the index; this only observes them.
	UniqueIDs uint64
}

// Stats computes a summary of the index. It scans all ids, so cost is
// O(entries).
func (db *DB) Stats() (Stats, error) {
	if db.closed {
		return Stats{}, ErrClosed
	}

	ids := roaring64.New()
	for i := 0; i < db.store.Len(); i++ {
		ids.Add(db.store.ID(i))
	}

	return Stats{
		Path:       db.path,
		Dimension:  db.store.Dimension(),
		EntryCount: db.store.Len(),
		UniqueIDs:  ids.GetCardinality(),
	}, nil
}
