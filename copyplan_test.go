package swapscratch

import "testing"

func TestBuildPlan_uniformSectorsS1(t *testing.T) {
	primary, secondary := ScenarioS1Sectors()

	windows := BuildPlan(primary, secondary, ScenarioS1ScratchSize, 32*1024)
	if len(windows) != 8 {
		t.Fatalf("expected 8 windows, got %d", len(windows))
	}

	for i, w := range windows {
		if w.Size != 4*1024 {
			t.Fatalf("window %d: expected size 4KiB, got %d", i, w.Size)
		}
		if w.Idx != IDX0+i {
			t.Fatalf("window %d: expected idx %d, got %d", i, IDX0+i, w.Idx)
		}
	}

	// Tail-first: the first window built covers the last sector (idx 7),
	// the last window built covers the first sector (idx 0).
	if windows[0].LastSector != 7 || windows[0].FirstSector != 7 {
		t.Fatalf("expected first window to cover sector 7 alone, got [%d,%d]", windows[0].FirstSector, windows[0].LastSector)
	}
	if windows[len(windows)-1].FirstSector != 0 || windows[len(windows)-1].LastSector != 0 {
		t.Fatalf("expected last window to cover sector 0 alone, got [%d,%d]", windows[len(windows)-1].FirstSector, windows[len(windows)-1].LastSector)
	}
}

func TestFindSwapCount_uniformSectorsS1(t *testing.T) {
	primary, secondary := ScenarioS1Sectors()

	count := FindSwapCount(primary, secondary, ScenarioS1ScratchSize, 32*1024)
	if count != 8 {
		t.Fatalf("expected swap_count 8, got %d", count)
	}
}

func TestBuildPlan_heterogeneousSectorsS2(t *testing.T) {
	primary, secondary := ScenarioS2Sectors()

	// boot_copy_sz fills each window greedily from the tail using only
	// primary sector sizes, stopping only when the next sector would
	// overflow scratch; it does not stop early at a compatibility-window
	// boundary just because one exists there. For this geometry the last
	// sector (16K) fills the first window exactly, and the remaining three
	// sectors (8K+4K+4K=16K) happen to fill the second window exactly too,
	// for 2 windows rather than a naive per-compatibility-window count of 3.
	windows := BuildPlan(primary, secondary, ScenarioS2ScratchSize, 32*1024)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}

	expectedSizes := []uint32{16 * 1024, 16 * 1024}
	expectedFirst := []int{3, 0}
	expectedLast := []int{3, 2}
	for i, w := range windows {
		if w.Size != expectedSizes[i] {
			t.Fatalf("window %d: expected size %d, got %d", i, expectedSizes[i], w.Size)
		}
		if w.FirstSector != expectedFirst[i] || w.LastSector != expectedLast[i] {
			t.Fatalf("window %d: expected sectors [%d,%d], got [%d,%d]", i, expectedFirst[i], expectedLast[i], w.FirstSector, w.LastSector)
		}
	}
}

func TestFindLastSectorIdx_fullSlotReachesFinalSector(t *testing.T) {
	primary, secondary := ScenarioS1Sectors()

	idx := findLastSectorIdx(primary, secondary, 32*1024)
	if idx != 7 {
		t.Fatalf("expected find_last_sector_idx(32KiB) = 7, got %d", idx)
	}
}
