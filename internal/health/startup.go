// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ManuGH/streamres/internal/config"
	"github.com/ManuGH/streamres/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment before any component opens
// its storage.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")

	if err := ensureWritableDir(logger, "data", cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}
	if cfg.Cache.Backend == "disk" {
		if err := ensureWritableDir(logger, "range cache", cfg.Cache.Dir); err != nil {
			return fmt.Errorf("range cache directory check failed: %w", err)
		}
	}
	if cfg.Download.ExportDir != "" {
		if err := ensureWritableDir(logger, "export", cfg.Download.ExportDir); err != nil {
			return fmt.Errorf("export directory check failed: %w", err)
		}
	}

	if err := checkListenAddr(cfg.API.ListenAddr); err != nil {
		return err
	}

	if cfg.Store.Backend == "memory" {
		logger.Warn().
			Str(log.FieldEvent, "startup.volatile_store").
			Msg("format metadata store is in-memory; cached lengths are lost on restart")
	}
	tmp := filepath.Clean(os.TempDir())
	data := filepath.Clean(cfg.DataDir)
	if data == tmp || strings.HasPrefix(data, tmp+string(filepath.Separator)) {
		logger.Warn().
			Str(log.FieldEvent, "startup.temp_data_dir").
			Str(log.FieldPath, cfg.DataDir).
			Msg("data directory is under temp; cached ranges may be lost on reboot")
	}

	logger.Info().Str(log.FieldEvent, "startup.checks_passed").Msg("startup checks passed")
	return nil
}

// ensureWritableDir creates path if needed and probes it with a temp file.
func ensureWritableDir(logger zerolog.Logger, label, path string) error {
	if path == "" {
		return fmt.Errorf("%s directory is not set", label)
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	probe, err := os.CreateTemp(path, ".write_test-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %s: %w", path, err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	logger.Debug().Str(log.FieldPath, path).Msgf("%s directory is writable", label)
	return nil
}

func checkListenAddr(addr string) error {
	if addr == "" {
		return nil
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}
	return nil
}
