package swapscratch

import "github.com/dsoprea/go-logging"

// UniformSectors builds count sectors of identical size, starting at
// offset 0, the uniform-geometry case used by scenario S1.
func UniformSectors(count int, size uint32) []Sector {
	sectors := make([]Sector, count)
	var off uint32
	for i := 0; i < count; i++ {
		sectors[i] = Sector{Offset: off, Size: size}
		off += size
	}
	return sectors
}

// SectorsFromSizes builds a sector list from explicit sizes, the
// heterogeneous-geometry case used by scenario S2.
func SectorsFromSizes(sizes []uint32) []Sector {
	sectors := make([]Sector, len(sizes))
	var off uint32
	for i, sz := range sizes {
		sectors[i] = Sector{Offset: off, Size: sz}
		off += sz
	}
	return sectors
}

// ScenarioS1Sectors returns spec.md S1's geometry: uniform 4 KiB sectors,
// 32 KiB primary and secondary slots, 8 sectors each.
func ScenarioS1Sectors() (primary, secondary []Sector) {
	return UniformSectors(8, 4*1024), UniformSectors(8, 4*1024)
}

// ScenarioS1ScratchSize is S1's scratch area size.
const ScenarioS1ScratchSize = 4 * 1024

// ScenarioS2Sectors returns spec.md S2's geometry: heterogeneous sector
// sizes that still tile at common boundaries (8K, 16K, 32K).
func ScenarioS2Sectors() (primary, secondary []Sector) {
	primary = SectorsFromSizes([]uint32{4 * 1024, 4 * 1024, 8 * 1024, 16 * 1024})
	secondary = SectorsFromSizes([]uint32{8 * 1024, 8 * 1024, 16 * 1024})
	return primary, secondary
}

// ScenarioS2ScratchSize is S2's scratch area size.
const ScenarioS2ScratchSize = 16 * 1024

// testGeometry is the write-unit/magic-size/substate-count combination
// spec.md's end-to-end scenarios are stated against.
func testGeometry(hasEncKeys bool) TrailerGeometry {
	return TrailerGeometry{WriteUnit: 4, HasEncKeys: hasEncKeys}
}

// seedTrailer writes a full primary-shaped trailer (magic, image-ok,
// copy-done, swap-info, swap-size, and an all-erased status area) into fa,
// so a test can start a scenario from an arbitrary recorded boot state
// instead of replaying an entire swap to reach it.
func seedTrailer(fa *MemFlash, geo TrailerGeometry, numWindows int, magic MagicState, copyDone, imageOk byte, swapType, imageIndex uint8, swapSize uint32) {
	trailerSize := geo.TrailerSize(numWindows)
	base := fa.Size() - trailerSize
	off := newTrailerOffsets(geo, base, numWindows)

	mustFlash(fa.Write(off.imageOkOff, pad([]byte{imageOk}, geo.WriteUnit)))
	mustFlash(fa.Write(off.copyDoneOff, pad([]byte{copyDone}, geo.WriteUnit)))

	si := packSwapInfo(swapType, imageIndex)
	mustFlash(fa.Write(off.swapInfoOff, pad(si.pack(), geo.WriteUnit)))
	mustFlash(fa.Write(off.swapSizeOff, encodeSize(swapSize, geo.WriteUnit)))

	if magic != MagicUnset {
		m := BootMagicGood
		if magic == MagicBad {
			m = BootMagicBad
		}
		b, err := restructPackMagic(m)
		log.PanicIf(err)
		mustFlash(fa.Write(off.magicOff, b))
	}
}
