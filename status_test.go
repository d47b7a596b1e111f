package swapscratch

import "testing"

func TestSelectSource_noSwapInProgress(t *testing.T) {
	primary := TrailerFields{Magic: MagicGood, CopyDone: FlagSet}
	scratch := TrailerFields{Magic: MagicUnset}

	if got := SelectSource(primary, scratch, 0); got != SourceNone {
		t.Fatalf("expected SourceNone, got %v", got)
	}
}

func TestSelectSource_midSwapStatusInPrimary(t *testing.T) {
	primary := TrailerFields{Magic: MagicGood, CopyDone: FlagUnset}
	scratch := TrailerFields{Magic: MagicUnset}

	if got := SelectSource(primary, scratch, 0); got != SourcePrimary {
		t.Fatalf("expected SourcePrimary, got %v", got)
	}
}

func TestSelectSource_midSwapStatusInScratch(t *testing.T) {
	primary := TrailerFields{Magic: MagicUnset, CopyDone: FlagUnset}
	scratch := TrailerFields{Magic: MagicGood, ImageIndex: 0}

	if got := SelectSource(primary, scratch, 0); got != SourceScratch {
		t.Fatalf("expected SourceScratch, got %v", got)
	}
}

func TestSelectSource_neverSwapped(t *testing.T) {
	primary := TrailerFields{Magic: MagicUnset, CopyDone: FlagUnset}
	scratch := TrailerFields{Magic: MagicUnset}

	if got := SelectSource(primary, scratch, 0); got != SourcePrimary {
		t.Fatalf("expected SourcePrimary, got %v", got)
	}
}

// TestSelectSource_multiImageDowngrade is scenario S5: a scratch trailer
// belonging to a different image's in-progress swap must not be mistaken
// for the image currently being examined.
func TestSelectSource_multiImageDowngrade(t *testing.T) {
	primary := TrailerFields{Magic: MagicUnset, CopyDone: FlagUnset}
	scratch := TrailerFields{Magic: MagicGood, ImageIndex: 1}

	if got := SelectSource(primary, scratch, 0); got != SourceNone {
		t.Fatalf("expected SourceNone (scratch belongs to a different image), got %v", got)
	}
	if got := SelectSource(primary, scratch, 1); got != SourceScratch {
		t.Fatalf("expected SourceScratch when examining the owning image, got %v", got)
	}
}

func TestParseStatusCells_noneWritten(t *testing.T) {
	status := make([]byte, NSubstates*4)
	for i := range status {
		status[i] = 0xff
	}

	found, _, invalid := ParseStatusCells(status, 4, 0xff)
	if found || invalid {
		t.Fatalf("expected found=false, invalid=false; got found=%v invalid=%v", found, invalid)
	}
}

func TestParseStatusCells_someWrittenTrailingErased(t *testing.T) {
	status := make([]byte, NSubstates*2*4) // two windows' worth of cells
	for i := range status {
		status[i] = 0xff
	}
	// Mark the first two cells written (window 1's STATE_0 and STATE_1).
	status[0] = 0x01
	status[4] = 0x01

	found, foundIdx, invalid := ParseStatusCells(status, 4, 0xff)
	if !found || invalid {
		t.Fatalf("expected found=true, invalid=false; got found=%v invalid=%v", found, invalid)
	}
	if foundIdx != 2 {
		t.Fatalf("expected foundIdx 2, got %d", foundIdx)
	}
}

func TestParseStatusCells_allWrittenNoTrailingErased(t *testing.T) {
	status := make([]byte, NSubstates*4)
	for i := range status {
		status[i] = 0x01
	}

	found, foundIdx, invalid := ParseStatusCells(status, 4, 0xff)
	if !found || invalid {
		t.Fatalf("expected found=true, invalid=false; got found=%v invalid=%v", found, invalid)
	}
	if foundIdx != NSubstates {
		t.Fatalf("expected foundIdx %d, got %d", NSubstates, foundIdx)
	}
}

// TestParseStatusCells_inconsistentSequence is scenario S6: two written
// cells separated by an erased cell.
func TestParseStatusCells_inconsistentSequence(t *testing.T) {
	status := make([]byte, NSubstates*4)
	for i := range status {
		status[i] = 0xff
	}
	status[0] = 0x01 // cell 0 written
	// cell 1 left erased
	status[8] = 0x01 // cell 2 written, after the erased gap: inconsistent

	_, _, invalid := ParseStatusCells(status, 4, 0xff)
	if !invalid {
		t.Fatalf("expected invalid=true for a written cell after the erased gap")
	}
}

func TestRecoverBootStatus_freshWhenNoneWritten(t *testing.T) {
	status := make([]byte, NSubstates*4)
	for i := range status {
		status[i] = 0xff
	}

	bs := RecoverBootStatus(status, 4, 0xff, true, nil)
	if bs.Idx != IDX0 || bs.State != State0 {
		t.Fatalf("expected fresh (IDX0, State0), got (%d, %d)", bs.Idx, bs.State)
	}
}

func TestRecoverBootStatus_midWindowDerivesIdxAndState(t *testing.T) {
	// Two windows' worth of cells; window 1 (idx=IDX0) fully done, window 2
	// (idx=IDX0+1) has its STATE_0 cell written.
	status := make([]byte, NSubstates*2*4)
	for i := range status {
		status[i] = 0xff
	}
	status[0] = 0x01
	status[4] = 0x01
	status[8] = 0x01
	status[12] = 0x01 // window 2's STATE_0 cell (global cell index 3)

	bs := RecoverBootStatus(status, 4, 0xff, true, nil)
	if bs.Idx != IDX0+1 {
		t.Fatalf("expected idx %d, got %d", IDX0+1, bs.Idx)
	}
	if bs.State != State1 {
		t.Fatalf("expected State1, got %d", bs.State)
	}
}

func TestRecoverBootStatus_invalidWithValidationEnabledIncrementsCounter(t *testing.T) {
	status := make([]byte, NSubstates*4)
	for i := range status {
		status[i] = 0xff
	}
	status[0] = 0x01
	status[8] = 0x01

	var failures int
	bs := RecoverBootStatus(status, 4, 0xff, true, &failures)
	if failures != 1 {
		t.Fatalf("expected statusFailures incremented to 1, got %d", failures)
	}
	// Despite the inconsistency, a BootStatus is still produced from
	// whatever was found.
	if bs.Idx != IDX0 {
		t.Fatalf("expected idx %d, got %d", IDX0, bs.Idx)
	}
}

func TestRecoverBootStatus_invalidWithValidationDisabledAborts(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected a panic when validation is disabled and status is inconsistent")
		}
	}()

	status := make([]byte, NSubstates*4)
	for i := range status {
		status[i] = 0xff
	}
	status[0] = 0x01
	status[8] = 0x01

	RecoverBootStatus(status, 4, 0xff, false, nil)
}
