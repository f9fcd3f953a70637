package exam

import "math/rand"

// fisherYates permutes items in place: walk from the last index down to 1,
// swapping the current element with a uniformly random one at index [0, i].
// Unbiased, unlike sort-by-random-key approaches.
func fisherYates[T any](rng *rand.Rand, items []T) {
	for i := len(items) - 1; i >= 1; i-- {
		j := rng.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
