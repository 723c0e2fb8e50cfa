// Copyright 2025 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"sigs.k8s.io/release-utils/version"

	"github.com/youginil/beluga/internal/cache"
	"github.com/youginil/beluga/internal/catalog"
	"github.com/youginil/beluga/internal/config"
	"github.com/youginil/beluga/internal/registry"
	"github.com/youginil/beluga/internal/stardict"
)

const (
	// ExitCodeSuccess is successful error code.
	ExitCodeSuccess int = iota

	// ExitCodeFlagParseError is the exit code for a flag parsing error.
	ExitCodeFlagParseError

	// ExitCodeUnknownError is the exit code for an unknown error.
	ExitCodeUnknownError
)

// ErrBeluga is a parent error for all command errors.
var ErrBeluga = errors.New("beluga")

// ErrFlagParse is a flag parsing error.
var ErrFlagParse = fmt.Errorf("%w: parsing flags", ErrBeluga)

var copyrightNames = []string{
	"2025 Ian Lewis",
}

func newBelugaApp() *cli.App {
	return &cli.App{
		Name:  filepath.Base(os.Args[0]),
		Usage: "Serve and manage StarDict dictionaries.",
		Description: strings.Join([]string{
			"Dictionary server for StarDict packages.",
			"Settings are read from BELUGA_* environment variables and",
			"overridden by flags.",
		}, "\n"),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dict-dir",
				Usage:   "load dictionaries from `DIR`",
				Aliases: []string{"d"},
			},
			&cli.StringFlag{
				Name:  "catalog",
				Usage: "keep dictionary settings in `FILE`",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log at `LEVEL` (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log in `FORMAT` (text, json)",
			},

			// Special flags are shown at the end.
			&cli.BoolFlag{
				Name:               "version",
				Usage:              "print version information and exit",
				Aliases:            []string{"V"},
				DisableDefaultText: true,
			},
		},
		Copyright:       strings.Join(copyrightNames, "\n"),
		HideHelpCommand: true,
		OnUsageError: func(_ *cli.Context, err error, _ bool) error {
			return fmt.Errorf("%w: %w", ErrFlagParse, err)
		},
		Action: func(c *cli.Context) error {
			if c.Bool("version") {
				return printVersion(c)
			}
			return cli.ShowAppHelp(c)
		},
		Commands: []*cli.Command{
			serveCommand,
			listCommand,
			reloadCommand,
			enableCommand,
			disableCommand,
			queryCommand,
		},
	}
}

func printVersion(c *cli.Context) error {
	info := version.GetVersionInfo()
	_, err := fmt.Fprintf(c.App.Writer, "%s %s\n%s", c.App.Name, info.GitVersion, info.String())
	if err != nil {
		return fmt.Errorf("%w: printing version: %w", ErrBeluga, err)
	}
	return nil
}

// loadConfig reads the environment and applies the global flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBeluga, err)
	}
	if c.IsSet("dict-dir") {
		cfg.DictDir = c.String("dict-dir")
	}
	if c.IsSet("catalog") {
		cfg.CatalogPath = c.String("catalog")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	l, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat, w)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBeluga, err)
	}
	return l, nil
}

// workspace is the catalog and registry shared by the commands.
type workspace struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	cache   *cache.Shared
	reg     *registry.Registry
}

func openWorkspace(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*workspace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBeluga, err)
	}
	store, err := catalog.OpenStore(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBeluga, err)
	}
	cat, err := catalog.Open(ctx, store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%w: %w", ErrBeluga, err)
	}
	shared := cache.New(cfg.CacheBytes())
	reg := registry.New(&registry.Options{
		Engine:  stardict.NewEngine(nil),
		Cache:   shared,
		Catalog: cat,
		Logger:  logger,
	})
	return &workspace{cfg: cfg, catalog: cat, cache: shared, reg: reg}, nil
}

// refresh applies the cache size and dictionary directory returned by load,
// then reloads the dictionaries. Other settings need a restart.
func (w *workspace) refresh(ctx context.Context, load func() (*config.Config, error), logger *slog.Logger) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrBeluga, err)
	}

	if cfg.CacheSizeMB != w.cfg.CacheSizeMB {
		logger.Info("Resizing cache", "from_mb", w.cfg.CacheSizeMB, "to_mb", cfg.CacheSizeMB)
	}
	w.cache.Resize(cfg.CacheBytes())
	w.cfg.CacheSizeMB = cfg.CacheSizeMB
	w.cfg.DictDir = cfg.DictDir

	if err := w.reg.Reload(ctx, w.cfg.DictDir); err != nil {
		return fmt.Errorf("%w: %w", ErrBeluga, err)
	}
	return nil
}

func (w *workspace) Close() error {
	return errors.Join(w.reg.Close(), w.catalog.Close())
}
