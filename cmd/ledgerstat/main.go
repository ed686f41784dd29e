// Package main prints summary statistics for a trade ledger CSV: record
// counts per side, gross and net SOL volume, and the net pressure of the
// trailing decision window.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/OnchainAlpha/solanatrading/internal/batch"
	"github.com/OnchainAlpha/solanatrading/internal/domain"
	"github.com/OnchainAlpha/solanatrading/internal/storage/file"
)

func main() {
	windowSize := flag.Int("window", batch.DefaultWindowSize, "Trailing window size for net pressure")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <ledger.csv>\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.New(os.Stderr, "[ledgerstat] ", 0)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ledger := file.NewTradeLedger(flag.Arg(0))
	records, err := ledger.ReadAll()
	if err != nil {
		logger.Fatalf("read ledger: %v", err)
	}
	if len(records) == 0 {
		fmt.Println("ledger is empty")
		return
	}

	var buys, sells int
	var buyVolume, sellVolume float64
	for _, rec := range records {
		if rec.Side == domain.SideSell {
			sells++
			sellVolume += rec.SolAmount
		} else {
			buys++
			buyVolume += rec.SolAmount
		}
	}

	fmt.Printf("records:      %d (%d buys, %d sells)\n", len(records), buys, sells)
	fmt.Printf("first trade:  %s\n", records[0].Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("last trade:   %s\n", records[len(records)-1].Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("buy volume:   %.6f SOL\n", buyVolume)
	fmt.Printf("sell volume:  %.6f SOL\n", sellVolume)
	fmt.Printf("net volume:   %+.6f SOL\n", buyVolume-sellVolume)

	if len(records) >= *windowSize {
		tail := records[len(records)-*windowSize:]
		fmt.Printf("tail net:     %+.6f SOL over last %d trades\n", batch.NetVolume(tail), *windowSize)
	}
}
