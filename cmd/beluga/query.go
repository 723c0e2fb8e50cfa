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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/k3a/html2text"
	"github.com/urfave/cli/v2"

	"github.com/youginil/beluga/internal/cache"
	"github.com/youginil/beluga/internal/config"
	"github.com/youginil/beluga/internal/engine"
	"github.com/youginil/beluga/internal/registry"
	"github.com/youginil/beluga/internal/stardict"
)

var queryCommand = &cli.Command{
	Name:      "query",
	Usage:     "look up a term",
	UsageText: "query NAME TERM\n   query --all [--data-dir DIR]... TERM",
	Description: "Look up TERM in the dictionary NAME. With --all, every\n" +
		"dictionary in the dictionary directory and the StarDict data\n" +
		"directories is searched.",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "all",
			Usage: "search every dictionary",
		},
		&cli.StringSliceFlag{
			Name:  "data-dir",
			Usage: "with --all, also search dictionaries in `DIR`",
			Value: cli.NewStringSlice(config.StardictDirs()...),
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "with --all, print at most `N` entries per dictionary",
			Value: 10,
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if c.Bool("all") {
			if c.NArg() != 1 {
				return fmt.Errorf("%w: expected a term", ErrFlagParse)
			}
			dirs := append([]string{cfg.DictDir}, c.StringSlice("data-dir")...)
			return queryAll(c, cfg, dirs, c.Args().First())
		}
		if c.NArg() != 2 {
			return fmt.Errorf("%w: expected a dictionary name and a term", ErrFlagParse)
		}
		return queryOne(c, cfg, c.Args().Get(0), c.Args().Get(1))
	},
}

// queryOne loads the dictionaries without touching the catalog and looks
// up term in the one named name.
func queryOne(c *cli.Context, cfg *config.Config, name, term string) error {
	logger, err := newLogger(cfg, c.App.ErrWriter)
	if err != nil {
		return err
	}
	reg := registry.New(&registry.Options{
		Engine: stardict.NewEngine(nil),
		Cache:  cache.New(cfg.CacheBytes()),
		Logger: logger,
	})
	defer reg.Close()

	if err := reg.Reload(c.Context, cfg.DictDir); err != nil {
		return fmt.Errorf("%w: %w", ErrBeluga, err)
	}

	var dict *registry.Dictionary
	for _, d := range reg.Dictionaries() {
		if d.Name() == name {
			dict = d
			break
		}
	}
	if dict == nil {
		return fmt.Errorf("%w: no dictionary named %q", ErrBeluga, name)
	}

	content, err := dict.Search(c.Context, term, engine.SearchOptions{})
	if errors.Is(err, engine.ErrNotFound) {
		return fmt.Errorf("%w: %q not found in %q", ErrBeluga, term, name)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeluga, err)
	}
	return printText(c.App.Writer, content)
}

// queryAll searches every dictionary found in dirs.
func queryAll(c *cli.Context, cfg *config.Config, dirs []string, term string) error {
	shared := cache.New(cfg.CacheBytes())

	var start uint64
	var failed bool
	for _, dir := range dirs {
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		dicts, errs := stardict.OpenAll(dir, nil)
		for _, err := range errs {
			fmt.Fprintln(c.App.ErrWriter, err)
			failed = true
		}

		for _, d := range dicts {
			r := cache.Range{Start: start, End: start + d.Slots()}
			start = r.End

			entries, err := d.Entries(c.Context, shared.Scope(r), term, c.Int("limit"))
			if err != nil {
				fmt.Fprintln(c.App.ErrWriter, err)
				failed = true
			}
			if len(entries) > 0 {
				fmt.Fprintln(c.App.Writer, d.Bookname())
				fmt.Fprintln(c.App.Writer)
				for _, e := range entries {
					if err := printText(c.App.Writer, e.HTML()); err != nil {
						_ = d.Close()
						return err
					}
				}
				fmt.Fprintln(c.App.Writer)
			}
			_ = d.Close()
		}
	}

	if failed {
		return fmt.Errorf("%w: some dictionaries could not be searched", ErrBeluga)
	}
	return nil
}

func printText(w io.Writer, html string) error {
	text := html2text.HTML2TextWithOptions(html, html2text.WithUnixLineBreaks())
	if _, err := fmt.Fprintln(w, strings.TrimSpace(text)); err != nil {
		return fmt.Errorf("%w: %w", ErrBeluga, err)
	}
	return nil
}
