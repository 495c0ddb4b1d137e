package stats

import (
	"errors"
	"testing"

	"github.com/DimaK415/rex/resource"
)

func TestPartitionSitesChunkAligned(t *testing.T) {
	props := resource.DatasetProperties{
		Shape:  [2]int{100, 100},
		Chunks: [2]int{100, 10},
	}
	parts, err := partitionSites(props, resource.All(), 2)
	if err != nil {
		t.Fatalf("partitionSites failed: %v", err)
	}
	if len(parts) != 5 {
		t.Fatalf("expected 5 partitions, got %d", len(parts))
	}
	for i, p := range parts {
		if len(p) != 20 {
			t.Fatalf("partition %d: expected 20 gids, got %d", i, len(p))
		}
		if p[0] != i*20 || p[len(p)-1] != i*20+19 {
			t.Errorf("partition %d spans [%d, %d], expected [%d, %d]",
				i, p[0], p[len(p)-1], i*20, i*20+19)
		}
	}
}

func TestPartitionSitesSubset(t *testing.T) {
	props := resource.DatasetProperties{
		Shape:  [2]int{100, 100},
		Chunks: [2]int{100, 10},
	}
	parts, err := partitionSites(props, resource.Span(15, 45), 2)
	if err != nil {
		t.Fatalf("partitionSites failed: %v", err)
	}
	// Blocks of width 20: [15..19], [20..39], [40..44].
	if len(parts) != 3 {
		t.Fatalf("expected 3 partitions, got %v", parts)
	}
	if len(parts[0]) != 5 || len(parts[1]) != 20 || len(parts[2]) != 5 {
		t.Errorf("unexpected partition sizes: %d, %d, %d",
			len(parts[0]), len(parts[1]), len(parts[2]))
	}
}

func TestPartitionSitesSortsGids(t *testing.T) {
	props := resource.DatasetProperties{
		Shape:  [2]int{100, 100},
		Chunks: [2]int{100, 50},
	}
	parts, err := partitionSites(props, resource.Pick(42, 7, 19), 1)
	if err != nil {
		t.Fatalf("partitionSites failed: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("expected 1 partition, got %d", len(parts))
	}
	want := []int{7, 19, 42}
	for i, gid := range parts[0] {
		if gid != want[i] {
			t.Fatalf("expected sorted gids %v, got %v", want, parts[0])
		}
	}
}

func TestPartitionSitesNoChunksSmallRequest(t *testing.T) {
	props := resource.DatasetProperties{Shape: [2]int{100, 30}}
	parts, err := partitionSites(props, resource.All(), 5)
	if err != nil {
		t.Fatalf("partitionSites failed: %v", err)
	}
	if len(parts) != 1 || len(parts[0]) != 30 {
		t.Errorf("expected a single full partition, got %v", parts)
	}
}

func TestPartitionSitesNoChunksDefaultWidth(t *testing.T) {
	// Without a chunk layout, large requests still split at the default
	// width so they can run in parallel.
	props := resource.DatasetProperties{Shape: [2]int{8760, 1200}}
	parts, err := partitionSites(props, resource.All(), 5)
	if err != nil {
		t.Fatalf("partitionSites failed: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("expected 3 partitions of width 500, got %d", len(parts))
	}
	if len(parts[0]) != 500 || len(parts[1]) != 500 || len(parts[2]) != 200 {
		t.Errorf("unexpected partition sizes: %d, %d, %d",
			len(parts[0]), len(parts[1]), len(parts[2]))
	}
	if parts[1][0] != 500 || parts[2][0] != 1000 {
		t.Errorf("partitions not aligned to width 500: %d, %d",
			parts[1][0], parts[2][0])
	}
}

func TestPartitionSitesOutOfRange(t *testing.T) {
	props := resource.DatasetProperties{Shape: [2]int{100, 30}}
	_, err := partitionSites(props, resource.Pick(0, 99), 5)
	if !errors.Is(err, resource.ErrSelector) {
		t.Errorf("expected ErrSelector, got %v", err)
	}
}
