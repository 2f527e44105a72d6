// Package feather provides a minimal persistent vector index: fixed-dimension
// float32 vectors keyed by a uint64 id, exact brute-force nearest-neighbor
// search, and durability to a single binary file.
//
// # Quick Start
//
//	ctx := context.Background()
//	db, err := feather.Open("demo.feather", feather.WithDimension(128))
//	if err != nil {
//	    panic(err)
//	}
//	defer db.Close()
//
//	_ = db.Add(ctx, 1, vec)
//
//	results, err := db.Search(ctx, query, 5)
//	for _, r := range results {
//	    fmt.Printf("ID: %d  dist: %.4f\n", r.ID, r.Distance)
//	}
//
//	_ = db.Save(ctx) // durability is explicit; Close never saves
//
// # Durability contract
//
// Add mutates memory only. Save rewrites the whole file atomically (temp
// file + rename). Close releases memory without saving, so entries added
// after the last Save are lost. This is deliberate: the caller controls
// when writes become durable.
//
// # Concurrency
//
// A DB has no internal locking. One writer at a time; Add and Save must not
// run concurrently with each other or with Search on the same handle.
// Concurrent Search calls on a quiescent handle are safe. Two handles open
// on the same path are not coordinated; the last Save wins.
//
// # Distances
//
// Search returns squared L2 distances. Squaring never changes the ranking;
// callers that need true Euclidean distance must take the square root.
//
// Beyond the core index, the module ships compressed snapshots (see
// Snapshot and Restore) and object-storage mirroring (see Push and Pull).
package feather
