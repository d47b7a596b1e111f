package swapscratch

// Location is a physical read location for image-header lookups, broader
// than Slot because a header may transiently live in scratch mid-swap.
type Location int

const (
	LocationPrimary Location = iota
	LocationSecondary
	LocationScratch
)

func (l Location) String() string {
	switch l {
	case LocationPrimary:
		return "primary"
	case LocationSecondary:
		return "secondary"
	default:
		return "scratch"
	}
}

func slotLocation(s Slot) Location {
	if s == SlotPrimary {
		return LocationPrimary
	}
	return LocationSecondary
}

// HeaderLocation implements C7: given the slot whose header is wanted and
// the current (possibly in-progress) boot status, it returns where that
// header physically lives right now.
//
// Only the last-processed window (the lowest-address one, containing both
// slots' vector tables) ever displaces a header from its nominal slot,
// since tail-first processing leaves every other window's header-bearing
// sector untouched until that final step.
func HeaderLocation(slot Slot, bs BootStatus, primarySectors, secondarySectors []Sector, scratchSize, copySize uint32) Location {
	if bs.Idx == IDX0 && bs.State == State0 {
		return slotLocation(slot)
	}

	numWindows := FindSwapCount(primarySectors, secondarySectors, scratchSize, copySize)
	k := bs.Idx - IDX0

	if k >= numWindows {
		return slotLocation(slot.Other())
	}

	if k == numWindows-1 {
		switch slot {
		case SlotSecondary:
			if bs.State >= State1 {
				return LocationScratch
			}
		case SlotPrimary:
			if bs.State >= State2 {
				return LocationSecondary
			}
		}
	}

	return slotLocation(slot)
}
