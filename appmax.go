package swapscratch

// AppMaxSize implements C8: the largest image size that leaves room for
// both slots' trailers and any scratch padding, for a slot geometry
// already known (or being checked) to be scratch-compatible.
//
// This reuses Analyzer.Check's usableSize output as the "aligned slot
// size" input to AppMaxSizeAdjustToTrailer, rather than a second walk that
// skips the scratch-oversize rejection: build tooling always calls this
// with the real deployed scratch size, so the rejection the spec's C3 walk
// performs is exactly the validation this query wants too.
func AppMaxSize(scratchSize uint32, primarySectors, secondarySectors []Sector, geo TrailerGeometry, numWindows int) (uint32, error) {
	usableSize, err := NewAnalyzer(scratchSize).Check(primarySectors, secondarySectors)
	if err != nil {
		return 0, err
	}

	trailerSize := geo.TrailerSize(numWindows)
	scratchTrailerSize := geo.ScratchTrailerSize()

	maxSize, _ := AppMaxSizeAdjustToTrailer(usableSize, trailerSize, primarySectors, secondarySectors, scratchTrailerSize)
	return maxSize, nil
}
