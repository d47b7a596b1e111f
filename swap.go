package swapscratch

// SwapTypeNone marks a swap-info cell that carries no pending revert/test
// request, matching the original source's BOOT_SWAP_TYPE_NONE.
const SwapTypeNone uint8 = 0

// Engine implements C6, the swap state machine: it drives the three-state
// journaled exchange between secondary, scratch and primary, one copy
// window at a time, tail-first.
type Engine struct {
	Primary, Secondary, Scratch FlashArea
	Geo                         TrailerGeometry
	ErasedByte                  byte

	// Progress, when set, is called after each window completes.
	Progress func(windowIdx, totalWindows int)

	statusFailures int
}

// StatusFailures returns the engine's inconsistent-status counter. No code
// in this package increments it, so it always returns 0; tolerated
// inconsistent status sequences are counted through RecoverBootStatus's
// own statusFailures argument instead.
func (e *Engine) StatusFailures() int {
	return e.statusFailures
}

// Run drives the swap to completion starting from bs (as recovered by
// RecoverBootStatus), copying copySize bytes total across primarySectors'
// and secondarySectors' geometry through e.Scratch. swapType and
// imageIndex are the values to record in the swap-info cell for windows
// that must initialize it from scratch. On success it returns the final
// BootStatus: State0, with Idx one past the last window (IDX0 plus the
// number of windows).
//
// Per §7's failure semantics, every flash-area call is fatal via
// assertion at the point of failure; Run recovers that panic at its own
// boundary and re-wraps it as a normal error return, the same shape the
// teacher's exported tree-walking entry points use.
func (e *Engine) Run(primarySectors, secondarySectors []Sector, bs BootStatus, swapType, imageIndex uint8, copySize uint32) (final BootStatus, err error) {
	defer recoverToError(&err)

	scratchSize := e.Scratch.Size()
	windows := BuildPlan(primarySectors, secondarySectors, scratchSize, copySize)
	trailerSize := e.Geo.TrailerSize(len(windows))
	firstTrailerPrimary, _ := FirstTrailerSector(primarySectors, trailerSize)

	for _, w := range windows {
		if w.Idx < bs.Idx {
			continue
		}
		bs = e.swapWindow(w, bs, primarySectors, secondarySectors, trailerSize, len(windows), firstTrailerPrimary, swapType, imageIndex, bs.SwapSize)
		if e.Progress != nil {
			e.Progress(w.Idx, len(windows))
		}
	}

	return bs, nil
}

// swapWindow drives window w through whichever of its three sub-states
// remain, starting at bs.State, per spec.md §4.5.
func (e *Engine) swapWindow(w Window, bs BootStatus, primarySectors, secondarySectors []Sector, trailerSize uint32, numWindows int, firstTrailerPrimary int, swapType, imageIndex uint8, swapSize uint32) BootStatus {
	wu := e.Geo.WriteUnit
	imgOff := primarySectors[w.FirstSector].Offset

	primaryOff := newTrailerOffsets(e.Geo, e.Primary.Size()-trailerSize, numWindows)
	scratchOff := newScratchTrailerOffsets(e.Geo, e.Scratch.Size())

	// scratchStatusOff is the start of scratch's own trailer (its status
	// area comes first in address order): the payload copied into scratch
	// can never run past it.
	scratchStatusOff := scratchOff.statusOff

	copySz := w.Size
	if imgOff+w.Size > primarySectors[firstTrailerPrimary].Offset {
		copySz = e.Primary.Size() - imgOff - trailerSize
		if copySz > scratchStatusOff {
			copySz = scratchStatusOff
		}
	}
	useScratch := w.Idx == IDX0 && copySz != w.Size

	if bs.State == State0 {
		eraseRange(e.Scratch, 0, e.Scratch.Size(), false)

		if w.Idx == IDX0 {
			swapStatusInit(e.Scratch, wu, scratchOff.imageOkOff, 0, scratchOff.swapInfoOff, scratchOff.swapSizeOff, false, swapType, imageIndex, swapSize)
			writeGoodMagic(e.Scratch, scratchOff.magicOff)

			if !useScratch {
				scrambleTrailerSectors(e.Primary, primarySectors, trailerSize)
				swapStatusInit(e.Primary, wu, primaryOff.imageOkOff, primaryOff.copyDoneOff, primaryOff.swapInfoOff, primaryOff.swapSizeOff, true, swapType, imageIndex, swapSize)
				eraseRange(e.Scratch, 0, e.Scratch.Size(), false)
			}
		}

		copyRange(e.Scratch, 0, e.Secondary, imgOff, copySz)

		e.writeCell(w, bs, State0, useScratch, primaryOff.statusOff, scratchOff.statusOff, wu)
		bs.State = State1
	}

	if bs.State == State1 {
		eraseSz := w.Size

		if w.Idx == IDX0 {
			scrambleTrailerSectors(e.Secondary, secondarySectors, trailerSize)

			if useScratch {
				trailerSectorSecondary, _ := FirstTrailerSector(secondarySectors, trailerSize)
				eraseSz = secondarySectors[trailerSectorSecondary].Offset - imgOff
			}
		}

		if eraseSz > 0 {
			eraseRange(e.Secondary, imgOff, eraseSz, false)
		}

		copyRange(e.Secondary, imgOff, e.Primary, imgOff, copySz)

		e.writeCell(w, bs, State1, useScratch, primaryOff.statusOff, scratchOff.statusOff, wu)
		bs.State = State2
	}

	if bs.State == State2 {
		eraseSz := w.Size

		if useScratch {
			scrambleTrailerSectors(e.Primary, primarySectors, trailerSize)
			eraseSz = primarySectors[firstTrailerPrimary].Offset - imgOff
		}

		if eraseSz > 0 {
			eraseRange(e.Primary, imgOff, eraseSz, false)
		}

		copyRange(e.Primary, imgOff, e.Scratch, 0, copySz)

		if useScratch {
			persistentCells := (NSubstates - 1) * wu
			copyRange(e.Primary, imgOff+copySz, e.Scratch, scratchOff.statusOff, persistentCells)

			scratchFields := ReadScratchTrailer(e.Scratch, e.Geo, e.ErasedByte)
			if scratchFields.ImageOk == FlagSet {
				mustFlash(e.Primary.Write(primaryOff.imageOkOff, pad([]byte{FlagSet}, wu)))
			}
			if scratchFields.SwapType != SwapTypeNone {
				si := packSwapInfo(scratchFields.SwapType, scratchFields.ImageIndex)
				mustFlash(e.Primary.Write(primaryOff.swapInfoOff, pad(si.pack(), wu)))
			}
			mustFlash(e.Primary.Write(primaryOff.swapSizeOff, encodeSize(swapSize, wu)))
			if e.Geo.HasEncKeys {
				mustFlash(e.Primary.Write(primaryOff.encKeysOff, scratchFields.EncKeys[0]))
				mustFlash(e.Primary.Write(primaryOff.encKeysOff+wu, scratchFields.EncKeys[1]))
			}
			writeGoodMagic(e.Primary, primaryOff.magicOff)
		}

		e.writeCell(w, bs, State2, useScratch, primaryOff.statusOff, scratchOff.statusOff, wu)

		eraseScratch := useScratch
		bs.Idx++
		bs.State = State0

		if eraseScratch {
			eraseRange(e.Scratch, 0, e.Scratch.Size(), true)
		}
	}

	return bs
}

// writeCell journals completion of sub-state `state` for window w. The
// very first window's journal lives in scratch for as long as use_scratch
// holds (cells are local, since scratch only ever tracks one window);
// every other write lands in the primary trailer's full status area at
// its global (idx, state) position.
func (e *Engine) writeCell(w Window, bs BootStatus, state int, useScratch bool, primaryStatusOff, scratchStatusOff uint32, wu uint32) {
	local := state - State0

	if w.Idx == IDX0 && useScratch {
		writeStatusCell(e.Scratch, scratchStatusOff, wu, local)
		return
	}

	global := (w.Idx-IDX0)*NSubstates + local
	writeStatusCell(e.Primary, primaryStatusOff, wu, global)
}

// scrambleTrailerSectors erases a slot's trailer-bearing sectors, from the
// first such sector through the end of the slot, so a prior trailer's
// magic cannot be mistaken for valid while the rest of the window is
// being rewritten.
func scrambleTrailerSectors(fa FlashArea, sectors []Sector, trailerSize uint32) {
	firstIdx, _ := FirstTrailerSector(sectors, trailerSize)
	off := sectors[firstIdx].Offset
	eraseRange(fa, off, fa.Size()-off, false)
}

