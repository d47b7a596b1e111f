package swapscratch

// Window is one scratch-sized copy window, numbered tail-first: Idx is the
// 1-based window index used in the journal (matches BootStatus.Idx), and
// FirstSector/LastSector are inclusive primary-slot sector indices.
type Window struct {
	Idx         int
	FirstSector int
	LastSector  int
	Size        uint32
}

// findLastSectorIdx walks both sector lists forward, growing whichever
// side's running total is behind (either below the other side's total or
// below copySize), until both totals reach copySize and agree. It returns
// the last primary sector index included.
//
// Ground truth: find_last_sector_idx in swap_scratch.c. BuildPlan and
// FindSwapCount call it with the swap's copy size; when that size reaches
// into the last sector of both slots, this walks to that last sector. The
// dual-accumulation shape
// is kept verbatim because it is what the original does, and because a
// future caller computing a partial resume size depends on it behaving the
// same way for any copySize the compatibility check has already approved.
func findLastSectorIdx(primary, secondary []Sector, copySize uint32) int {
	var primarySize, secondarySize uint32
	lastPrimary, lastSecondary := 0, 0

	for {
		if primarySize < copySize || primarySize < secondarySize {
			primarySize += primary[lastPrimary].Size
			lastPrimary++
		}
		if secondarySize < copySize || secondarySize < primarySize {
			secondarySize += secondary[lastSecondary].Size
			lastSecondary++
		}
		if primarySize >= copySize && secondarySize >= copySize && primarySize == secondarySize {
			break
		}
	}

	return lastPrimary - 1
}

// bootCopySz walks the primary sector list backward from lastSectorIdx,
// accumulating sector sizes while they fit in scratchSize, and returns the
// accumulated size along with the first sector index included.
//
// Only the primary slot's sector sizes are consulted: the compatibility
// analyzer (Analyzer.Check) already guarantees that any byte range aligned
// to primary sector boundaries is safe to apply verbatim to the secondary
// slot at the same offset, so the secondary geometry plays no further part
// once compatibility has been established.
//
// Ground truth: boot_copy_sz in swap_scratch.c.
func bootCopySz(primary []Sector, lastSectorIdx int, scratchSize uint32) (sz uint32, firstSectorIdx int) {
	i := lastSectorIdx
	for i >= 0 {
		newSz := sz + primary[i].Size
		if newSz > scratchSize {
			break
		}
		sz = newSz
		i--
	}
	return sz, i + 1
}

// BuildPlan implements C4: it produces the tail-first ordered list of copy
// windows a swap of copySize bytes requires, given the primary slot's
// sector geometry and the scratch area's size.
//
// Ground truth: swap_run's outer loop in swap_scratch.c, which repeatedly
// calls boot_copy_sz starting from find_last_sector_idx's result and walks
// backward until no sectors remain.
func BuildPlan(primary, secondary []Sector, scratchSize, copySize uint32) []Window {
	lastSectorIdx := findLastSectorIdx(primary, secondary, copySize)

	var windows []Window
	idx := IDX0
	for lastSectorIdx >= 0 {
		sz, firstSectorIdx := bootCopySz(primary, lastSectorIdx, scratchSize)
		windows = append(windows, Window{
			Idx:         idx,
			FirstSector: firstSectorIdx,
			LastSector:  lastSectorIdx,
			Size:        sz,
		})
		lastSectorIdx = firstSectorIdx - 1
		idx++
	}

	return windows
}

// FindSwapCount returns the number of copy windows a swap of copySize bytes
// requires, without building the full plan (C4's find_swap_count, used by
// callers that only need to size the status area ahead of time).
func FindSwapCount(primary, secondary []Sector, scratchSize, copySize uint32) int {
	lastSectorIdx := findLastSectorIdx(primary, secondary, copySize)

	count := 0
	for lastSectorIdx >= 0 {
		_, firstSectorIdx := bootCopySz(primary, lastSectorIdx, scratchSize)
		lastSectorIdx = firstSectorIdx - 1
		count++
	}

	return count
}
