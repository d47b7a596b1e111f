package swapscratch

// BootStatus is the in-RAM record `bs` from spec.md §3: the recovered (or
// freshly-initialized) progress of a swap.
type BootStatus struct {
	Idx      int // window currently being swapped; Idx-IDX0 windows are done
	State    int // State0, State1 or State2
	SwapSize uint32
}

// freshBootStatus is the steady-state value: no swap in progress.
func freshBootStatus() BootStatus {
	return BootStatus{Idx: IDX0, State: State0}
}

// decisionRow is one row of the fixed 4-row status-source decision table
// (spec.md §4.4). Rows are evaluated top-to-bottom; the first match wins.
type decisionRow struct {
	primaryMagic func(MagicState) bool
	scratchMagic func(MagicState) bool
	primaryDone  func(byte) bool
	source       Source
}

func anyMagic(MagicState) bool              { return true }
func anyFlag(byte) bool                     { return true }
func isMagic(m MagicState) func(MagicState) bool  { return func(x MagicState) bool { return x == m } }
func notMagic(m MagicState) func(MagicState) bool { return func(x MagicState) bool { return x != m } }
func isFlag(f byte) func(byte) bool               { return func(x byte) bool { return x == f } }

var decisionTable = []decisionRow{
	// 1: primary GOOD, scratch not GOOD, copy-done SET -> no swap in progress
	{isMagic(MagicGood), notMagic(MagicGood), isFlag(FlagSet), SourceNone},
	// 2: primary GOOD, scratch not GOOD, copy-done UNSET -> mid-swap, primary trailer
	{isMagic(MagicGood), notMagic(MagicGood), isFlag(FlagUnset), SourcePrimary},
	// 3: scratch GOOD (any primary state, any copy-done) -> mid-window using scratch
	{anyMagic, isMagic(MagicGood), anyFlag, SourceScratch},
	// 4: primary UNSET, copy-done UNSET (any scratch) -> never-swapped or mid-revert
	{isMagic(MagicUnset), anyMagic, isFlag(FlagUnset), SourcePrimary},
}

// SelectSource implements C5's status source selector: it evaluates the
// fixed decision table against the primary and scratch trailers and, for a
// SCRATCH match, downgrades to NONE if the scratch trailer belongs to a
// different image than currentImageIndex (multi-image refinement).
func SelectSource(primary, scratch TrailerFields, currentImageIndex uint8) Source {
	for _, row := range decisionTable {
		if row.primaryMagic(primary.Magic) && row.scratchMagic(scratch.Magic) && row.primaryDone(primary.CopyDone) {
			if row.source == SourceScratch && scratch.ImageIndex != currentImageIndex {
				return SourceNone
			}
			return row.source
		}
	}
	return SourceNone
}

// ParseStatusCells implements C5's status-entry parser: it reads the
// status area one write-unit cell at a time, left to right, and reports
// whether any cell was written, the index of the first erased cell found
// after a run of written cells, and whether a second written cell was
// found after that point (an inconsistent, corrupt sequence).
func ParseStatusCells(status []byte, writeUnit uint32, erasedByte byte) (found bool, foundIdx int, invalid bool) {
	assertf(writeUnit > 0, "swapscratch: write unit must be positive")
	numCells := int(uint32(len(status)) / writeUnit)

	foundIdxSet := false

	for i := 0; i < numCells; i++ {
		cell := status[i*int(writeUnit) : (i+1)*int(writeUnit)]
		written := !isErasedCell(cell, erasedByte)

		if written {
			if foundIdxSet {
				invalid = true
			}
			found = true
		} else if found && !foundIdxSet {
			foundIdx = i
			foundIdxSet = true
		}
	}

	if found && !foundIdxSet {
		// Every cell was written with no trailing erased cell: treat the
		// whole area as consumed.
		foundIdx = numCells
	}

	return found, foundIdx, invalid
}

func isErasedCell(cell []byte, erasedByte byte) bool {
	for _, b := range cell {
		if b != erasedByte {
			return false
		}
	}
	return true
}

// RecoverBootStatus combines ParseStatusCells with the (idx, state)
// derivation from spec.md §4.4: bs.idx = found_idx/N_substates + IDX0,
// bs.state = found_idx%N_substates + State0 (both bases are 1, so the
// 0-based cell offset splits cleanly into a 1-based window index and
// sub-state).
//
// When validatePrimary is false, an invalid (corrupt) sequence is fatal
// (an INCONSISTENT_STATUS assertion panic). When true, the error is swallowed and
// statusFailures is incremented instead, since validation of the primary
// image will itself catch a truly bad slot (spec.md §4.4, §7).
func RecoverBootStatus(status []byte, writeUnit uint32, erasedByte byte, validatePrimary bool, statusFailures *int) BootStatus {
	found, foundIdx, invalid := ParseStatusCells(status, writeUnit, erasedByte)

	if invalid {
		if !validatePrimary {
			assertf(false, "swapscratch: inconsistent status sequence")
		}
		if statusFailures != nil {
			*statusFailures++
		}
	}

	if !found {
		return freshBootStatus()
	}

	return BootStatus{
		Idx:   foundIdx/NSubstates + IDX0,
		State: foundIdx%NSubstates + State0,
	}
}
