// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/streamres/internal/config"
	"github.com/ManuGH/streamres/internal/persistence/sqlite"
)

func runStoreCLI(args []string) int {
	return runStore(args, os.Stdout, os.Stderr)
}

func runStore(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printStoreUsage(stderr)
		return 0
	}
	switch args[0] {
	case "verify":
		return runStoreVerify(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printStoreUsage(stderr)
		return 2
	}
}

func printStoreUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  streamres store verify [--path formats.sqlite]")
}

// runStoreVerify runs a full integrity check on the sqlite format store.
func runStoreVerify(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("streamres store verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var path string
	fs.StringVar(&path, "path", "", "path to the format store database")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path = strings.TrimSpace(path)
	if path == "" {
		dataDir := strings.TrimSpace(os.Getenv(config.EnvPrefix + "DATA_DIR"))
		if dataDir == "" {
			dataDir = config.Defaults().DataDir
		}
		path = filepath.Join(dataDir, "formats.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	problems, err := sqlite.VerifyFile(ctx, path)
	if err != nil {
		fmt.Fprintf(stderr, "Verification failed for %s: %v\n", path, err)
		return 1
	}
	if len(problems) > 0 {
		fmt.Fprintf(stderr, "%s is damaged:\n", path)
		for _, p := range problems {
			fmt.Fprintf(stderr, "  %s\n", p)
		}
		return 1
	}
	fmt.Fprintf(stdout, "%s: ok\n", path)
	return 0
}
