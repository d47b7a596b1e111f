package swapscratch

import (
	"github.com/dsoprea/go-logging"
)

// TrailerFields are the decoded contents of one trailer, read in one shot
// by ReadTrailer. Status is left as raw bytes; callers needing (idx,state)
// go through ParseStatusCells.
type TrailerFields struct {
	Magic      MagicState
	ImageOk    byte
	CopyDone   byte
	SwapType   uint8
	ImageIndex uint8
	SwapSize   uint32
	EncKeys    [2][]byte // nil when the geometry carries no encryption keys
	Status     []byte
}

// trailerOffsets locates every field of a trailer of the given geometry,
// anchored at base (the trailer's first byte: area.Size()-trailerSize).
type trailerOffsets struct {
	geo            TrailerGeometry
	base           uint32
	numWindows     int
	imageOkOff     uint32
	copyDoneOff    uint32
	swapInfoOff    uint32
	swapSizeOff    uint32
	encKeysOff     uint32
	statusOff      uint32
	magicOff       uint32
}

// newTrailerOffsets lays out the fields in the order spec.md gives "from
// the slot's end": magic last (the final MagicSize bytes of the area),
// then walking backward image-ok, copy-done, swap-info, swap-size, the
// optional encryption keys, and finally the status area, which therefore
// sits first in ascending-address order, immediately after the payload.
func newTrailerOffsets(geo TrailerGeometry, base uint32, numWindows int) trailerOffsets {
	wu := geo.WriteUnit
	off := base
	t := trailerOffsets{geo: geo, base: base, numWindows: numWindows}

	t.statusOff = off
	off += geo.StatusAreaSize(numWindows)
	if geo.HasEncKeys {
		t.encKeysOff = off
		off += 2 * wu
	}
	t.swapSizeOff = off
	off += wu
	t.swapInfoOff = off
	off += wu
	t.copyDoneOff = off
	off += wu
	t.imageOkOff = off
	off += wu
	t.magicOff = off

	return t
}

// ReadTrailer decodes every field of the trailer described by geo living
// at the tail of fa, covering numWindows copy windows.
func ReadTrailer(fa FlashArea, geo TrailerGeometry, numWindows int, erasedByte byte) TrailerFields {
	trailerSize := geo.TrailerSize(numWindows)
	base := fa.Size() - trailerSize
	t := newTrailerOffsets(geo, base, numWindows)

	magicBuf := readAt(fa, t.magicOff, MagicSize)

	var tf TrailerFields
	tf.Magic = classifyMagic(magicBuf, erasedByte)
	tf.ImageOk = readAt(fa, t.imageOkOff, 1)[0]
	tf.CopyDone = readAt(fa, t.copyDoneOff, 1)[0]

	si := unpackSwapInfo(readAt(fa, t.swapInfoOff, 1))
	tf.SwapType = si.swapType()
	tf.ImageIndex = si.imageIndex()

	swapSizeBuf := readAt(fa, t.swapSizeOff, geo.WriteUnit)
	tf.SwapSize = decodeSize(swapSizeBuf)

	if geo.HasEncKeys {
		tf.EncKeys[0] = readAt(fa, t.encKeysOff, geo.WriteUnit)
		tf.EncKeys[1] = readAt(fa, t.encKeysOff+geo.WriteUnit, geo.WriteUnit)
	}

	tf.Status = readAt(fa, t.statusOff, geo.StatusAreaSize(numWindows))

	return tf
}

// scratchTrailerOffsets locates every field of the compressed scratch
// trailer, which omits copy-done and carries only one window's worth of
// status cells.
type scratchTrailerOffsets struct {
	imageOkOff  uint32
	swapInfoOff uint32
	swapSizeOff uint32
	encKeysOff  uint32
	statusOff   uint32
	magicOff    uint32
}

// newScratchTrailerOffsets mirrors newTrailerOffsets's field order (status
// area first, magic last) for the compressed scratch trailer, which omits
// copy-done.
func newScratchTrailerOffsets(geo TrailerGeometry, scratchSize uint32) scratchTrailerOffsets {
	wu := geo.WriteUnit
	off := scratchSize - geo.ScratchTrailerSize()
	var t scratchTrailerOffsets

	t.statusOff = off
	off += NSubstates * wu
	if geo.HasEncKeys {
		t.encKeysOff = off
		off += 2 * wu
	}
	t.swapSizeOff = off
	off += wu
	t.swapInfoOff = off
	off += wu
	t.imageOkOff = off
	off += wu
	t.magicOff = off

	return t
}

// ReadScratchTrailer decodes the compressed scratch trailer (no copy-done,
// a single window's worth of status cells).
func ReadScratchTrailer(fa FlashArea, geo TrailerGeometry, erasedByte byte) TrailerFields {
	t := newScratchTrailerOffsets(geo, fa.Size())
	wu := geo.WriteUnit

	var tf TrailerFields
	tf.Magic = classifyMagic(readAt(fa, t.magicOff, MagicSize), erasedByte)
	tf.ImageOk = readAt(fa, t.imageOkOff, 1)[0]
	tf.CopyDone = FlagUnset // scratch never carries a copy-done cell

	si := unpackSwapInfo(readAt(fa, t.swapInfoOff, 1))
	tf.SwapType = si.swapType()
	tf.ImageIndex = si.imageIndex()

	tf.SwapSize = decodeSize(readAt(fa, t.swapSizeOff, wu))

	if geo.HasEncKeys {
		tf.EncKeys[0] = readAt(fa, t.encKeysOff, wu)
		tf.EncKeys[1] = readAt(fa, t.encKeysOff+wu, wu)
	}

	tf.Status = readAt(fa, t.statusOff, NSubstates*wu)

	return tf
}

// swapStatusInit writes a freshly-erased trailer's image-ok, copy-done
// (primary only), swap-info and swap-size fields (not magic, status or
// encryption keys) so that a subsequent journal write lands on an
// area whose other fields are already durable, matching swap_status_init
// in the original source: it is always called before the first status
// cell of a swap, never mid-swap. The scratch trailer has no copy-done
// field; the primary trailer does, and it is written as unset here and
// never set by this engine.
func swapStatusInit(fa FlashArea, wu uint32, imageOkOff, copyDoneOff, swapInfoOff, swapSizeOff uint32, includeCopyDone bool, swapType uint8, imageIndex uint8, swapSize uint32) {
	mustFlash(fa.Write(imageOkOff, pad(fieldUnset(), wu)))

	if includeCopyDone {
		mustFlash(fa.Write(copyDoneOff, pad(fieldUnset(), wu)))
	}

	si := packSwapInfo(swapType, imageIndex)
	mustFlash(fa.Write(swapInfoOff, pad(si.pack(), wu)))

	mustFlash(fa.Write(swapSizeOff, encodeSize(swapSize, wu)))
}

// writeStatusCell writes the journal marker for one status cell: every byte
// set to a fixed non-erased sentinel, so ParseStatusCells's erased-byte scan
// sees it as written regardless of the platform's erased-byte value.
func writeStatusCell(fa FlashArea, statusBase uint32, wu uint32, localCellIdx int) {
	cell := make([]byte, wu)
	for i := range cell {
		cell[i] = 0x01
	}
	mustFlash(fa.Write(statusBase+uint32(localCellIdx)*wu, cell))
}

func fieldUnset() []byte { return []byte{FlagUnset} }

func pad(b []byte, wu uint32) []byte {
	out := make([]byte, wu)
	copy(out, b)
	for i := len(b); i < int(wu); i++ {
		out[i] = FlagUnset
	}
	return out
}

func decodeSize(buf []byte) uint32 {
	var v uint32
	for i := 0; i < len(buf) && i < 4; i++ {
		v |= uint32(buf[i]) << (8 * uint(i))
	}
	return v
}

func encodeSize(v uint32, wu uint32) []byte {
	out := make([]byte, wu)
	for i := 0; i < 4 && uint32(i) < wu; i++ {
		out[i] = byte(v >> (8 * uint(i)))
	}
	return out
}

// writeGoodMagic writes the GOOD magic into a trailer (primary or
// scratch) at magicOff. Per invariant "Lifecycles", the magic is written
// only after every other trailer field is durable, so this has no other
// side effects.
func writeGoodMagic(fa FlashArea, magicOff uint32) {
	b, err := restructPackMagic(BootMagicGood)
	log.PanicIf(err)
	mustFlash(fa.Write(magicOff, b))
}
