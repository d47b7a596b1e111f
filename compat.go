package swapscratch

// defaultMaxSectors is the platform-configured cap on sectors per slot
// that the compatibility walk enforces. Real MCUs configure this from
// their flash map; 128 is a representative external-flash sector count.
const defaultMaxSectors = 128

// Analyzer implements C3, the slot-compatibility analyzer: it decides
// whether two slot sector layouts can be swapped through a scratch area
// of a given size, and computes the usable (aligned) slot size.
type Analyzer struct {
	ScratchSize uint32
	MaxSectors  int
}

// NewAnalyzer returns an Analyzer configured for the given scratch size
// with the default sector-count cap.
func NewAnalyzer(scratchSize uint32) *Analyzer {
	return &Analyzer{ScratchSize: scratchSize, MaxSectors: defaultMaxSectors}
}

// Check walks both sector lists in lockstep, maintaining running sums and
// a which-side-is-smaller witness, and returns the usable (aligned) slot
// size if the layouts are compatible, or ErrIncompatibleSlots otherwise.
//
// The walk: when the running sums are equal, advance both indices. When
// one side's sum is smaller, advance only that side; if the other side had
// already advanced alone within the current window without the sums
// re-converging, the layouts are incompatible (neither side tiles the
// other). Whenever the sums converge, that is a window boundary, and the
// window just closed must fit in scratch.
func (a *Analyzer) Check(primary, secondary []Sector) (usableSize uint32, err error) {
	if len(primary) == 0 || len(secondary) == 0 {
		return 0, ErrIncompatibleSlots
	}
	if len(primary) > a.MaxSectors || len(secondary) > a.MaxSectors {
		return 0, ErrIncompatibleSlots
	}

	var i, j int
	var sz0, sz1 uint32 // running sums within the current window
	// witness tracks which side advanced without the other catching up:
	// 0 = neither, 1 = primary advanced alone, -1 = secondary advanced alone.
	witness := 0

	for i < len(primary) || j < len(secondary) {
		switch {
		case sz0 == sz1:
			if i >= len(primary) || j >= len(secondary) {
				// One list ran out while the other still has sectors left
				// to place in this (empty) window: the totals can never
				// converge again.
				return 0, ErrIncompatibleSlots
			}
			sz0 += primary[i].Size
			i++
			sz1 += secondary[j].Size
			j++
		case sz0 < sz1:
			if witness == -1 {
				return 0, ErrIncompatibleSlots
			}
			if i >= len(primary) {
				return 0, ErrIncompatibleSlots
			}
			sz0 += primary[i].Size
			i++
			witness = 1
		default: // sz0 > sz1
			if witness == 1 {
				return 0, ErrIncompatibleSlots
			}
			if j >= len(secondary) {
				return 0, ErrIncompatibleSlots
			}
			sz1 += secondary[j].Size
			j++
			witness = -1
		}

		if sz0 == sz1 {
			// Window boundary: the window just closed must fit in scratch.
			if sz0 > a.ScratchSize {
				return 0, ErrIncompatibleSlots
			}
			usableSize += sz0
			sz0, sz1 = 0, 0
			witness = 0
		}
	}

	if sz0 != 0 || sz1 != 0 {
		return 0, ErrIncompatibleSlots
	}

	return usableSize, nil
}
