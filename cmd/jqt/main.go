// Command jqt is a jq-compatible command-line JSON query processor
// (spec §6), tuned for NDJSON throughput: a parallel, order-preserving
// line pipeline with a fast-path dispatcher sits in front of the general
// filter evaluator, which every invocation falls back to (package
// flateval, package eval).
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
)

func main() {
	// We handle a broken stdout pipe ourselves (see output writer error
	// handling in run.go) rather than dying to the default SIGPIPE
	// action, grounded on cmd/pj/main.go's signal.Ignore(SIGPIPE).
	signal.Ignore(syscall.SIGPIPE)

	defer func() {
		if e := recover(); e != nil {
			fmt.Fprintf(os.Stderr, "jqt: internal error: %v\n%s", e, debug.Stack())
			os.Exit(exitInternal)
		}
	}()

	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		if ue, ok := err.(*usageError); ok {
			fmt.Fprintln(os.Stderr, ue.Error())
		} else {
			fmt.Fprintln(os.Stderr, "jqt:", err)
		}
		os.Exit(exitUsage)
	}

	os.Exit(run(cfg))
}
