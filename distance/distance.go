// Package distance provides the distance kernel used for ranking.
package distance

// SquaredL2 calculates the squared L2 (Euclidean) distance between two
// vectors. Assumes vectors are the same length (caller's responsibility).
//
// The result is NOT square-rooted: squared distance changes magnitude but
// never changes the ranking, and callers that need the true Euclidean
// distance must take the square root themselves.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
