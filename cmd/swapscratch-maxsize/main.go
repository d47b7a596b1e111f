package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/dsoprea/go-logging"
	humanize "github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"

	"github.com/mcuswap/go-swapscratch"
)

type rootParameters struct {
	PrimarySectors   string `short:"p" long:"primary-sectors" description:"Comma-separated primary slot sector sizes, in bytes" required:"true"`
	SecondarySectors string `short:"s" long:"secondary-sectors" description:"Comma-separated secondary slot sector sizes, in bytes" required:"true"`
	ScratchSize      uint32 `short:"c" long:"scratch-size" description:"Scratch area size, in bytes" required:"true"`
	WriteUnit        uint32 `short:"w" long:"write-unit" description:"Flash write-unit size, in bytes" default:"1"`
	NumWindows       int    `short:"n" long:"num-windows" description:"Number of copy windows to size the status area for" default:"1"`
	HasEncKeys       bool   `short:"e" long:"enc-keys" description:"Reserve trailer space for two encryption-key cells"`
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

	primary := parseSectors(rootArguments.PrimarySectors)
	secondary := parseSectors(rootArguments.SecondarySectors)

	geo := swapscratch.TrailerGeometry{
		WriteUnit:  rootArguments.WriteUnit,
		HasEncKeys: rootArguments.HasEncKeys,
	}

	maxSize, err := swapscratch.AppMaxSize(rootArguments.ScratchSize, primary, secondary, geo, rootArguments.NumWindows)
	log.PanicIf(err)

	os.Stdout.WriteString("app_max_size: " + humanize.Bytes(uint64(maxSize)) + " (" + strconv.Itoa(int(maxSize)) + " bytes)\n")
}

// parseSectors turns "4096,4096,8192" into a sector list with offsets
// assigned by accumulating the sizes in order, the same layout
// swapscratch.UniformSectors/SectorsFromSizes build for tests.
func parseSectors(raw string) []swapscratch.Sector {
	parts := strings.Split(raw, ",")
	sectors := make([]swapscratch.Sector, 0, len(parts))

	var off uint32
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		size, err := strconv.ParseUint(part, 10, 32)
		log.PanicIf(err)

		sectors = append(sectors, swapscratch.Sector{Offset: off, Size: uint32(size)})
		off += uint32(size)
	}

	return sectors
}
