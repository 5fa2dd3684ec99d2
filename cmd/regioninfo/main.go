package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/freeeve/blockcensus/internal/logx"
	"github.com/freeeve/blockcensus/internal/region"
)

func main() {
	quiet := flag.Bool("q", false, "Silence warnings")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: regioninfo [options] <r.x.z.mca>...")
		fmt.Fprintln(os.Stderr, "Lists the chunks stored in each region file.")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := logx.NewLogger(os.Stderr, logx.Level(*quiet, 0))
	exit := 0
	for _, path := range flag.Args() {
		if err := describe(os.Stdout, path); err != nil {
			logger.Error().Err(err).Str("file", path).Msg("read region")
			exit = 1
		}
	}
	os.Exit(exit)
}

// describe prints one line per stored chunk. Chunks that fail to read or
// decode are listed with their error and do not stop the listing.
func describe(out io.Writer, path string) error {
	f, err := region.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(out, "%s: %d chunks\n", path, f.Count())
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "X\tZ\tMODIFIED\tSTATUS\tDATA VERSION\tY RANGE")
	for z := 0; z < region.Width; z++ {
		for x := 0; x < region.Width; x++ {
			if !f.Present(x, z) {
				continue
			}
			modified := time.Unix(int64(f.Timestamp(x, z)), 0).UTC().Format(time.RFC3339)
			c, err := readChunk(f, x, z)
			if err != nil {
				fmt.Fprintf(w, "%d\t%d\t%s\terror: %v\t\t\n", x, z, modified, err)
				continue
			}
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%d\t%v\n", x, z, modified, c.Status(), c.DataVersion(), c.YRange())
		}
	}
	return w.Flush()
}

func readChunk(f *region.File, x, z int) (*region.Chunk, error) {
	data, err := f.ReadChunk(x, z)
	if err != nil {
		return nil, err
	}
	return region.Decode(data)
}
