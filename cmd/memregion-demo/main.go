// Package main provides a small command-line driver for internal/memregion:
// a scripted allocate/free/collect scenario, plus optional watch and serve
// modes layered on top of it. None of this touches the allocator or
// collector's algorithms; it is ambient tooling around the programmatic
// surface described by the core package.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	semver "github.com/Masterminds/semver/v3"

	"github.com/go-memregion/memregion/internal/memregion"
)

// dumpFormatVersion stamps Allocator.Dump's text format. The format itself
// is not a stable interface; this lets a consumer script detect a format
// change instead of silently misparsing it.
const dumpFormatVersion = "1.1.0"

func main() {
	var (
		showVersion  = flag.Bool("version", false, "print the dump-format version and exit")
		watchDir     = flag.String("watch", "", "re-run the demo scenario whenever a file in this directory is written or created")
		serveAddr    = flag.String("serve", "", "serve /dump and /stats over HTTP/3 at this address (host:port)")
		capacity     = flag.Uint64("capacity", 640_000, "region capacity in bytes")
		chunkListCap = flag.Int("chunklist", 1024, "chunk registry capacity")
	)

	flag.Parse()

	if *showVersion {
		printVersion()

		return
	}

	if *watchDir != "" {
		if err := runWatch(*watchDir, uintptr(*capacity), *chunkListCap); err != nil {
			fmt.Fprintln(os.Stderr, "watch:", err)
			os.Exit(1)
		}

		return
	}

	if *serveAddr != "" {
		if err := runServe(*serveAddr, uintptr(*capacity), *chunkListCap); err != nil {
			fmt.Fprintln(os.Stderr, "serve:", err)
			os.Exit(1)
		}

		return
	}

	if err := runScenario(os.Stdout, uintptr(*capacity), *chunkListCap); err != nil {
		fmt.Fprintln(os.Stderr, "scenario:", err)
		os.Exit(1)
	}
}

func printVersion() {
	v, err := semver.NewVersion(dumpFormatVersion)
	if err != nil {
		// dumpFormatVersion is a constant we control; a parse failure here
		// is a build-time mistake, not a runtime condition to recover from.
		panic(err)
	}

	fmt.Printf("memregion dump format v%s\n", v.String())
}

// runScenario builds an allocator and collector, walks a small alloc/free/
// collect sequence exercising the region's partition invariant and the
// collector's conservative root scan, and dumps both registries.
func runScenario(w io.Writer, capacityBytes uintptr, chunkListCap int) error {
	a, err := memregion.New(
		memregion.WithRegionCapacity(capacityBytes),
		memregion.WithChunkListCapacity(chunkListCap),
	)
	if err != nil {
		return err
	}

	defer a.Close()

	c := memregion.NewCollector(a)
	c.InitRoot()

	ptrs := make([]uintptr, 0, 10)

	for i := 1; i <= 10; i++ {
		ptr, ok := a.Allocate(uintptr(i))
		if !ok {
			break
		}

		ptrs = append(ptrs, ptr)
	}

	for i := 0; i < len(ptrs); i += 2 {
		a.Free(ptrs[i])
	}

	stats := c.Collect()

	fmt.Fprintf(w, "collected: chunks=%d bytes=%d collections=%d\n",
		stats.ChunksReclaimed, stats.BytesReclaimed, stats.Collections)

	a.Dump(w, memregion.SelectorAllocated)
	a.Dump(w, memregion.SelectorFree)

	return nil
}
