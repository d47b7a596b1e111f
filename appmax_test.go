package swapscratch

import "testing"

func TestAppMaxSize_uniformSectorsS1(t *testing.T) {
	primary, secondary := ScenarioS1Sectors()
	geo := testGeometry(false)

	// A handful of windows is enough to size the trailer for this query;
	// the exact count only affects the status-area size, which is a small
	// fraction of a 4KiB sector.
	maxSize, err := AppMaxSize(ScenarioS1ScratchSize, primary, secondary, geo, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trailerSize := geo.TrailerSize(8)
	if maxSize >= 32*1024 {
		t.Fatalf("expected maxSize to be reduced below the full slot size, got %d", maxSize)
	}
	if maxSize != 32*1024-trailerSize {
		t.Fatalf("expected maxSize %d (no scratch padding needed for uniform sectors), got %d", 32*1024-trailerSize, maxSize)
	}
}

func TestAppMaxSize_rejectsIncompatibleGeometry(t *testing.T) {
	primary := UniformSectors(8, 4*1024)
	secondary := UniformSectors(7, 4*1024)
	geo := testGeometry(false)

	if _, err := AppMaxSize(ScenarioS1ScratchSize, primary, secondary, geo, 8); err == nil {
		t.Fatalf("expected an error for incompatible slot geometry")
	}
}

func TestFirstTrailerSector_spansMultipleSectorsWhenNeeded(t *testing.T) {
	sectors := UniformSectors(8, 4*1024)

	// A trailer larger than one sector must pull in the sector before it.
	idx, endOff := FirstTrailerSector(sectors, 5*1024)
	if idx != 6 {
		t.Fatalf("expected first trailer sector 6, got %d", idx)
	}
	if endOff != 28*1024 {
		t.Fatalf("expected end offset 28KiB, got %d", endOff)
	}
}

func TestAppMaxSizeAdjustToTrailer_noPaddingWhenScratchTrailerFits(t *testing.T) {
	sectors := UniformSectors(8, 4*1024)
	trailerSize := uint32(512)
	scratchTrailerSize := uint32(256)

	usable, padding := AppMaxSizeAdjustToTrailer(32*1024, trailerSize, sectors, sectors, scratchTrailerSize)
	if padding != 0 {
		t.Fatalf("expected no padding, got %d", padding)
	}
	if usable != 32*1024-trailerSize {
		t.Fatalf("expected usable %d, got %d", 32*1024-trailerSize, usable)
	}
}
