package optimize

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/newthinker/rewind/internal/core"
)

// GridSize returns the full cartesian product size of the domains. An empty
// domain set is size zero; an empty domain for any key is also zero.
func GridSize(domains map[string][]any) int {
	if len(domains) == 0 {
		return 0
	}
	size := 1
	for _, values := range domains {
		size *= len(values)
		if size == 0 {
			return 0
		}
	}
	return size
}

// enumerate expands the cartesian product in deterministic order: keys
// sorted, last key varying fastest.
func enumerate(domains map[string][]any) []map[string]any {
	keys := sortedKeys(domains)
	if len(keys) == 0 {
		return nil
	}

	combos := make([]map[string]any, 0, GridSize(domains))
	idx := make([]int, len(keys))
	for {
		combo := make(map[string]any, len(keys))
		for i, k := range keys {
			combo[k] = domains[k][idx[i]]
		}
		combos = append(combos, combo)

		// odometer increment from the last key
		i := len(keys) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(domains[keys[i]]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return combos
		}
	}
}

// sample draws n independent combinations with replacement from a seeded
// source, so the same seed reproduces the same sweep.
func sample(domains map[string][]any, n int, seed int64) []map[string]any {
	keys := sortedKeys(domains)
	rng := rand.New(rand.NewSource(seed))

	combos := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		combo := make(map[string]any, len(keys))
		for _, k := range keys {
			values := domains[k]
			combo[k] = values[rng.Intn(len(values))]
		}
		combos = append(combos, combo)
	}
	return combos
}

func sortedKeys(domains map[string][]any) []string {
	keys := make([]string, 0, len(domains))
	for k := range domains {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func checkDomains(domains map[string][]any) error {
	if len(domains) == 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("sweep has no parameter domains"))
	}
	for key, values := range domains {
		if len(values) == 0 {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("domain for %q is empty", key))
		}
	}
	return nil
}
