package stats

import (
	"fmt"
	"sort"

	"github.com/DimaK415/rex/resource"
)

// defaultSiteChunk is the assumed site-axis chunk width when the backend
// exposes no chunk layout, so that large requests still partition for
// parallel execution.
const defaultSiteChunk = 100

// partitionSites cuts the requested site gids into contiguous,
// chunk-aligned groups, each covering chunksPerWorker site chunks. Chunk
// alignment keeps workers from re-reading partial chunks. When the backend
// exposes no chunk layout the groups fall back to a fixed width of
// defaultSiteChunk sites per chunk.
func partitionSites(props resource.DatasetProperties, sites resource.Selector,
	chunksPerWorker int) ([][]int, error) {

	gids, err := sites.Indices(props.Shape[1])
	if err != nil {
		return nil, fmt.Errorf("site selector: %w", err)
	}
	if len(gids) == 0 {
		return nil, fmt.Errorf("%w: empty site selection", resource.ErrSelector)
	}

	sorted := make([]int, len(gids))
	copy(sorted, gids)
	sort.Ints(sorted)

	chunkCols := props.Chunks[1]
	if chunkCols <= 0 {
		chunkCols = defaultSiteChunk
	}
	width := chunkCols * chunksPerWorker
	if width <= 0 {
		return [][]int{sorted}, nil
	}

	var parts [][]int
	var cur []int
	block := -1
	for _, gid := range sorted {
		b := gid / width
		if b != block && cur != nil {
			parts = append(parts, cur)
			cur = nil
		}
		block = b
		cur = append(cur, gid)
	}
	if cur != nil {
		parts = append(parts, cur)
	}
	return parts, nil
}
