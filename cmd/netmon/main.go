package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/bimawa/netmonrs/internal/collector"
	"github.com/bimawa/netmonrs/internal/monitor"
	"github.com/bimawa/netmonrs/internal/ui"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s <process-name>\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Watch the network connections of a named process.")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	target := flag.Arg(0)

	if err := collector.CheckLsof(); err != nil {
		log.Fatal(err)
	}

	sampler := collector.NewLsofSampler(3 * time.Second)
	dashboard := ui.NewDashboard(target, sampler, monitor.DefaultHistoryCapacity)

	if err := dashboard.Run(); err != nil {
		log.Fatal(err)
	}
}
