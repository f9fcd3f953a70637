package exam

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestFisherYates_Permutation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 2, 5, 50, 500} {
		in := make([]string, n)
		for i := range in {
			in[i] = fmt.Sprintf("q%d", i)
		}
		out := make([]string, n)
		copy(out, in)
		fisherYates(rng, out)

		if len(out) != n {
			t.Fatalf("n=%d: length changed to %d", n, len(out))
		}
		seen := map[string]int{}
		for _, s := range out {
			seen[s]++
		}
		for _, s := range in {
			seen[s]--
		}
		for s, c := range seen {
			if c != 0 {
				t.Fatalf("n=%d: multiset mismatch at %q", n, s)
			}
		}
	}
}

func TestFisherYates_DeterministicForSeed(t *testing.T) {
	a := []int{1, 2, 3, 4, 5, 6, 7, 8}
	b := []int{1, 2, 3, 4, 5, 6, 7, 8}
	fisherYates(rand.New(rand.NewSource(42)), a)
	fisherYates(rand.New(rand.NewSource(42)), b)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different permutations at %d: %v vs %v", i, a, b)
		}
	}
}

// Every permutation of three elements should show up over a few hundred
// shuffles; a biased walk (e.g. swapping with [0, n) instead of [0, i])
// skews this distribution badly.
func TestFisherYates_AllPermutationsReachable(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	seen := map[string]bool{}
	for i := 0; i < 300; i++ {
		p := []byte{'a', 'b', 'c'}
		fisherYates(rng, p)
		seen[string(p)] = true
	}
	if len(seen) != 6 {
		t.Fatalf("saw %d of 6 permutations: %v", len(seen), seen)
	}
}
