// Command nachos runs the kernel simulator's built-in demo scenarios
// and prints a summary, wiring flags, logging, and a top-level run loop
// together.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/gonzaloamadio/nachos/internal/demo"
)

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	results, err := demo.RunAll()
	failed := false
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = fmt.Sprintf("FAILED: %v", r.Err)
			failed = true
		}
		fmt.Printf("[%s] %-20s %s\n", r.RunID, r.Name, status)
		if *verbose {
			fmt.Print(r.Log)
		}
	}
	if err != nil || failed {
		os.Exit(1)
	}
}
