// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ManuGH/streamres/internal/config"
	"github.com/ManuGH/streamres/internal/daemon"
	xlog "github.com/ManuGH/streamres/internal/log"
	platformnet "github.com/ManuGH/streamres/internal/platform/net"
	"github.com/ManuGH/streamres/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		case "store":
			os.Exit(runStoreCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// safe defaults until the config is loaded
	xlog.Configure(xlog.Config{Level: "info", Service: "streamres", Version: version.Version})
	logger := xlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	if path == "" {
		path = resolveDefaultConfigPath()
	}

	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xlog.FieldEvent, "config.load_failed").
			Str(xlog.FieldPath, path).
			Msg("failed to load configuration")
	}

	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Service: "streamres", Version: cfg.Version})
	logger = xlog.WithComponent("daemon")
	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str(xlog.FieldEvent, "config.loaded").
		Str(xlog.FieldSource, source).
		Str(xlog.FieldPath, path).
		Msg("configuration loaded")

	// API quality changes persist next to the data, even without -config.
	holderPath := path
	if holderPath == "" {
		holderPath = filepath.Join(cfg.DataDir, "config.yaml")
	}
	holder := config.NewHolder(cfg, config.NewLoader(holderPath, version.Version), holderPath)

	app, err := daemon.Build(ctx, cfg, holder)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xlog.FieldEvent, "startup.build_failed").
			Msg("failed to assemble daemon")
	}

	logger.Info().
		Str(xlog.FieldEvent, "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("addr", cfg.API.ListenAddr).
		Str(xlog.FieldTier, cfg.Quality).
		Str(xlog.FieldBaseURL, platformnet.SanitizeURL(cfg.Catalog.BaseURL)).
		Msg("starting streamres")

	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str(xlog.FieldEvent, "daemon.failed").
			Msg("daemon failed")
	}
	logger.Info().Str(xlog.FieldEvent, "daemon.exit").Msg("server exiting")
}

// resolveDefaultConfigPath picks $STREAMRES_DATA_DIR/config.yaml when it exists.
func resolveDefaultConfigPath() string {
	dataDir := strings.TrimSpace(os.Getenv(config.EnvPrefix + "DATA_DIR"))
	if dataDir == "" {
		dataDir = config.Defaults().DataDir
	}
	p := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}
