package swapscratch

import (
	"encoding/binary"

	"github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

// defaultEncoding is the byte order used throughout the trailer, matching
// the teacher's package-level convention of naming the binary.ByteOrder
// used by every restruct/binary call "defaultEncoding".
var defaultEncoding binary.ByteOrder = binary.LittleEndian

// MagicSize is the fixed size, in bytes, of a trailer's magic field.
const MagicSize = 16

// trailerMagic is the 16-byte sentinel at the tail of a trailer. It is
// unpacked/packed with restruct the same way the teacher unpacks
// BootSectorHeader: a small, fixed-size, tag-free struct handed straight to
// the byte buffer.
type trailerMagic struct {
	Bytes [MagicSize]byte
}

// MagicState classifies a trailerMagic against the three sentinels the
// engine distinguishes.
type MagicState int

const (
	MagicUnset MagicState = iota
	MagicBad
	MagicGood
)

func (m MagicState) String() string {
	switch m {
	case MagicGood:
		return "GOOD"
	case MagicBad:
		return "BAD"
	default:
		return "UNSET"
	}
}

// BootMagicGood, BootMagicUnset and BootMagicBad are the three canonical
// 16-byte magic values a trailer's magic field may hold. BootMagicUnset is
// all-erased-bits; callers using an erased value other than 0xff must
// compare with IsErased rather than this constant.
var (
	BootMagicGood = trailerMagic{Bytes: [MagicSize]byte{
		0x77, 0xc2, 0x95, 0xf3, 0x60, 0xd2, 0xef, 0x7f,
		0x35, 0x52, 0x50, 0x0f, 0x2c, 0xb6, 0x79, 0x80,
	}}
	BootMagicUnset = trailerMagic{Bytes: [MagicSize]byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	}}
	BootMagicBad = trailerMagic{Bytes: [MagicSize]byte{
		0x2d, 0xe1, 0x5d, 0x29, 0x41, 0x0b, 0x8d, 0x77,
		0x67, 0x9c, 0x11, 0x0f, 0x1f, 0x8a, 0x1e, 0x96,
	}}
)

func classifyMagic(buf []byte, erasedByte byte) MagicState {
	var m trailerMagic
	log.PanicIf(restruct.Unpack(buf, defaultEncoding, &m))

	if m == BootMagicGood {
		return MagicGood
	}
	if m == BootMagicBad {
		return MagicBad
	}

	allErased := true
	for _, b := range buf {
		if b != erasedByte {
			allErased = false
			break
		}
	}
	if allErased {
		return MagicUnset
	}
	return MagicBad
}

// Flag values for the single-write-unit image-ok and copy-done cells.
const (
	FlagUnset byte = 0xff
	FlagSet   byte = 0x01
	FlagBad   byte = 0x02
)

// swapInfo is the single-byte swap-info field, decomposed the way
// swap_scratch.c does: low nibble is the swap type, high nibble is the
// image index (for multi-image layouts sharing one scratch area).
type swapInfo struct {
	Raw uint8
}

func packSwapInfo(swapType, imageIndex uint8) swapInfo {
	return swapInfo{Raw: (imageIndex << 4) | (swapType & 0x0f)}
}

func (s swapInfo) swapType() uint8   { return s.Raw & 0x0f }
func (s swapInfo) imageIndex() uint8 { return s.Raw >> 4 }

func unpackSwapInfo(buf []byte) swapInfo {
	var si swapInfo
	log.PanicIf(restruct.Unpack(buf[:1], defaultEncoding, &si))
	return si
}

func (s swapInfo) pack() []byte {
	b, err := restruct.Pack(defaultEncoding, &s)
	log.PanicIf(err)
	return b
}

// restructPackMagic encodes a trailerMagic through restruct, mirroring the
// teacher's use of restruct for every other fixed-size on-disk structure.
func restructPackMagic(m trailerMagic) ([]byte, error) {
	return restruct.Pack(defaultEncoding, &m)
}

// TrailerGeometry describes the fixed byte layout of one slot's trailer
// given a write unit and whether encryption keys are carried. It is the
// implementation of C2, the trailer layout calculator.
type TrailerGeometry struct {
	WriteUnit  uint32
	HasEncKeys bool
}

// FixedSize returns the size of the trailer's fixed-field region: magic,
// image-ok, copy-done, swap-info, swap-size, and (optionally) the two
// encryption-key cells. It excludes the status area, whose size depends on
// the number of copy windows.
func (g TrailerGeometry) FixedSize() uint32 {
	assertf(g.WriteUnit > 0, "swapscratch: write unit must be positive")
	size := uint32(MagicSize) + 4*g.WriteUnit
	if g.HasEncKeys {
		size += 2 * g.WriteUnit
	}
	return size
}

// StatusAreaSize returns the size of the status area for a trailer
// covering numWindows copy windows.
func (g TrailerGeometry) StatusAreaSize(numWindows int) uint32 {
	return uint32(numWindows) * NSubstates * g.WriteUnit
}

// TrailerSize returns the full trailer size (§6 boot_trailer_sz).
func (g TrailerGeometry) TrailerSize(numWindows int) uint32 {
	return g.FixedSize() + g.StatusAreaSize(numWindows)
}

// ScratchTrailerSize returns the size of the compressed trailer image held
// in scratch (§6 boot_scratch_trailer_sz). The scratch trailer never needs
// copy-done (a swap using scratch is, by definition, in progress) and only
// ever needs status cells for the one window it can hold at a time.
func (g TrailerGeometry) ScratchTrailerSize() uint32 {
	size := uint32(MagicSize) + 3*g.WriteUnit // image-ok, swap-info, swap-size
	if g.HasEncKeys {
		size += 2 * g.WriteUnit
	}
	size += NSubstates * g.WriteUnit
	return size
}

// BootStatusOff returns the byte offset of the status area's first cell
// within the trailer (§6 boot_status_off). The status area is the first
// field in address order — the fixed fields and magic all sit above it,
// closer to the slot's end — so this is always 0.
func (g TrailerGeometry) BootStatusOff(numWindows int) uint32 {
	return 0
}

// Sector is one (offset, size) entry of a slot's sector list.
type Sector struct {
	Offset uint32
	Size   uint32
}

// FirstTrailerSector walks a slot's sector list from the end, accumulating
// sector sizes until the running total is at least trailerSize, and
// returns the earliest such sector's index along with the absolute offset
// at which that sector ends (C2's first_trailer_sector /
// first_trailer_sector_end_off).
func FirstTrailerSector(sectors []Sector, trailerSize uint32) (idx int, endOff uint32) {
	assertf(len(sectors) > 0, "swapscratch: slot has no sectors")

	var acc uint32
	for i := len(sectors) - 1; i >= 0; i-- {
		acc += sectors[i].Size
		if acc >= trailerSize {
			return i, sectors[i].Offset + sectors[i].Size
		}
	}
	// trailerSize exceeds the whole slot; the first sector is the best we
	// can do, matching first_trailer_sector's loop terminating at index 0.
	return 0, sectors[0].Offset + sectors[0].Size
}

// AppMaxSizeAdjustToTrailer computes the largest image size that leaves
// room for both slots' trailers and any scratch padding (C2's
// app_max_size_adjust_to_trailer).
//
// The larger of the two slots' first-trailer-sector end offsets is the
// "common boundary": the compatibility rule (C3) requires the larger
// sector layout's sectors to tile the smaller one's, so only the larger
// end-offset can be common to both. The trailer prefix occupying that
// common first-trailer-sector has size T_in_first = common_end -
// (slotSize - trailerSize). If the scratch trailer doesn't fit in that
// prefix, image/trailer padding is inserted so the final copy window can
// hold both the last payload bytes and a valid scratch trailer at once.
func AppMaxSizeAdjustToTrailer(slotSize, trailerSize uint32, primarySectors, secondarySectors []Sector, scratchTrailerSize uint32) (usableSize, padding uint32) {
	_, primaryEnd := FirstTrailerSector(primarySectors, trailerSize)
	_, secondaryEnd := FirstTrailerSector(secondarySectors, trailerSize)

	commonEnd := primaryEnd
	if secondaryEnd > commonEnd {
		commonEnd = secondaryEnd
	}

	trailerStart := slotSize - trailerSize
	assertf(commonEnd >= trailerStart, "swapscratch: trailer sector ends before trailer start")
	tInFirst := commonEnd - trailerStart

	if scratchTrailerSize > tInFirst {
		padding = scratchTrailerSize - tInFirst
	}

	return slotSize - trailerSize - padding, padding
}
