// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/stakewell/stakewell/kv"
	"github.com/stakewell/stakewell/log"
)

func fatal(args ...any) {
	var w *os.File
	if isatty.IsTerminal(os.Stderr.Fd()) {
		w = os.Stderr
	} else {
		w = os.Stdout
	}
	fmt.Fprint(w, "Fatal: ")
	fmt.Fprintln(w, args...)
	os.Exit(1)
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".stakewell")
	}
	return ""
}

// verbosityToLevel maps the cli verbosity scale onto slog levels.
func verbosityToLevel(verbosity int) slog.Level {
	switch verbosity {
	case 0:
		return log.LevelCrit
	case 1:
		return log.LevelError
	case 2:
		return log.LevelWarn
	case 3:
		return log.LevelInfo
	case 4:
		return log.LevelDebug
	default:
		return log.LevelTrace
	}
}

func initLogger(ctx *cli.Context) {
	var level slog.LevelVar
	level.Set(verbosityToLevel(ctx.Int(verbosityFlag.Name)))

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(os.Stderr, &level)
	} else {
		useColor := isatty.IsTerminal(os.Stderr.Fd())
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, &level, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
}

func openDB(ctx *cli.Context) (*kv.LevelDB, error) {
	if ctx.Bool(memFlag.Name) {
		return kv.NewMem()
	}
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return nil, fmt.Errorf("data dir not resolvable, set --%s", dataDirFlag.Name)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, err
	}
	return kv.New(filepath.Join(dataDir, "main.db"), kv.Options{
		CacheSize:              128,
		OpenFilesCacheCapacity: 512,
	})
}

func handleExitSignal() chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
	}()
	return done
}
