package sync

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/vaultdrive/vaultdrive/internal/utils"
)

// relativeDepth is the number of ancestors of path that are themselves in the
// set. A path whose parent is outside the set sits at depth 0 even if it is
// nested deep in the vault, so disjoint subtrees batch together.
func relativeDepth(path string, set mapset.Set[string]) int {
	depth := 0
	for p := utils.ParentPath(path); p != ""; p = utils.ParentPath(p) {
		if set.Contains(p) {
			depth++
		}
	}
	return depth
}

// batchByDepth groups paths into batches by set-relative depth, shallowest
// first. Paths within a batch are sorted for deterministic ordering.
func batchByDepth(paths []string) [][]string {
	if len(paths) == 0 {
		return nil
	}
	set := mapset.NewThreadUnsafeSet(paths...)
	byDepth := make(map[int][]string)
	maxDepth := 0
	for _, p := range set.ToSlice() {
		d := relativeDepth(p, set)
		byDepth[d] = append(byDepth[d], p)
		if d > maxDepth {
			maxDepth = d
		}
	}

	batches := make([][]string, 0, maxDepth+1)
	for d := 0; d <= maxDepth; d++ {
		batch := byDepth[d]
		if len(batch) == 0 {
			continue
		}
		sort.Strings(batch)
		batches = append(batches, batch)
	}
	return batches
}

// BatchForCreate orders paths for remote creation: every batch only depends
// on paths in earlier batches, so parents always exist before their children.
func BatchForCreate(paths []string) [][]string {
	return batchByDepth(paths)
}

// BatchForDelete orders paths for remote deletion, children before parents.
func BatchForDelete(paths []string) [][]string {
	batches := batchByDepth(paths)
	for i, j := 0, len(batches)-1; i < j; i, j = i+1, j-1 {
		batches[i], batches[j] = batches[j], batches[i]
	}
	return batches
}
