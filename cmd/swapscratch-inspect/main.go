package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/dsoprea/go-logging"
	"github.com/jessevdk/go-flags"

	"github.com/mcuswap/go-swapscratch"
)

type rootParameters struct {
	PrimaryFile    string `short:"p" long:"primary-file" description:"File holding a dump of the primary slot's trailer region" required:"true"`
	ScratchFile    string `short:"c" long:"scratch-file" description:"File holding a dump of the scratch area" required:"true"`
	WriteUnit      uint32 `short:"w" long:"write-unit" description:"Flash write-unit size, in bytes" default:"1"`
	NumWindows     int    `short:"n" long:"num-windows" description:"Number of copy windows the primary trailer's status area covers" default:"1"`
	HasEncKeys     bool   `short:"e" long:"enc-keys" description:"The dumped trailers reserve two encryption-key cells"`
	ErasedByte     byte   `short:"E" long:"erased-byte" description:"The flash's erased-state byte value" default:"255"`
	CurrentImage   uint8  `short:"i" long:"image-index" description:"Image index being examined, for multi-image scratch ownership" default:"0"`
}

var rootArguments = new(rootParameters)

func main() {
	defer func() {
		if state := recover(); state != nil {
			err := log.Wrap(state.(error))
			log.PrintError(err)
			os.Exit(-1)
		}
	}()

	p := flags.NewParser(rootArguments, flags.Default)

	_, err := p.Parse()
	if err != nil {
		os.Exit(1)
	}

	geo := swapscratch.TrailerGeometry{
		WriteUnit:  rootArguments.WriteUnit,
		HasEncKeys: rootArguments.HasEncKeys,
	}

	primaryFA := newFileFlash(rootArguments.PrimaryFile, rootArguments.WriteUnit)
	scratchFA := newFileFlash(rootArguments.ScratchFile, rootArguments.WriteUnit)

	primaryFields := swapscratch.ReadTrailer(primaryFA, geo, rootArguments.NumWindows, rootArguments.ErasedByte)
	scratchFields := swapscratch.ReadScratchTrailer(scratchFA, geo, rootArguments.ErasedByte)

	source := swapscratch.SelectSource(primaryFields, scratchFields, rootArguments.CurrentImage)

	fmt.Printf("source: %s\n", source)

	if source == swapscratch.SourceNone {
		fmt.Println("no swap in progress")
		return
	}

	status := primaryFields.Status
	if source == swapscratch.SourceScratch {
		status = scratchFields.Status
	}

	var statusFailures int
	bs := swapscratch.RecoverBootStatus(status, rootArguments.WriteUnit, rootArguments.ErasedByte, true, &statusFailures)

	fmt.Printf("idx: %d\n", bs.Idx)
	fmt.Printf("state: %d\n", bs.State)
	fmt.Printf("swap_type: %d\n", primaryFields.SwapType)
	fmt.Printf("swap_size: %d\n", primaryFields.SwapSize)
	if statusFailures > 0 {
		fmt.Printf("status_failures: %d\n", statusFailures)
	}
}

// fileFlash is a read-only FlashArea backed by a plain file, enough to
// drive ReadTrailer/ReadScratchTrailer/SelectSource/RecoverBootStatus
// against a dumped flash image. Write and Erase are unreachable from this
// tool's read-only inspection path and simply refuse to do anything.
type fileFlash struct {
	data []byte
	wu   uint32
}

func newFileFlash(path string, wu uint32) *fileFlash {
	data, err := ioutil.ReadFile(path)
	log.PanicIf(err)
	return &fileFlash{data: data, wu: wu}
}

func (f *fileFlash) Read(off uint32, buf []byte) error {
	if uint64(off)+uint64(len(buf)) > uint64(len(f.data)) {
		return fmt.Errorf("swapscratch-inspect: read out of range")
	}
	copy(buf, f.data[off:uint32(len(buf))+off])
	return nil
}

func (f *fileFlash) Write(off uint32, buf []byte) error {
	return fmt.Errorf("swapscratch-inspect: read-only flash area")
}

func (f *fileFlash) Erase(off, length uint32, backward bool) error {
	return fmt.Errorf("swapscratch-inspect: read-only flash area")
}

func (f *fileFlash) Size() uint32 { return uint32(len(f.data)) }

func (f *fileFlash) IsErased(buf []byte) bool {
	for _, b := range buf {
		if b != 0xff {
			return false
		}
	}
	return true
}

func (f *fileFlash) WriteUnit() uint32 { return f.wu }
