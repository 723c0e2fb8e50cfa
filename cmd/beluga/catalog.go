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

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/youginil/beluga/internal/catalog"
)

var listCommand = &cli.Command{
	Name:      "list",
	Usage:     "list dictionaries in the catalog",
	UsageText: "list",
	Action: func(c *cli.Context) error {
		ws, err := commandWorkspace(c)
		if err != nil {
			return err
		}
		defer ws.Close()

		printCatalog(c.App.Writer, ws.catalog.Entries())
		return nil
	},
}

var reloadCommand = &cli.Command{
	Name:      "reload",
	Usage:     "rescan the dictionary directory and update the catalog",
	UsageText: "reload",
	Action: func(c *cli.Context) error {
		ws, err := commandWorkspace(c)
		if err != nil {
			return err
		}
		defer ws.Close()

		if err := ws.reg.Reload(c.Context, ws.cfg.DictDir); err != nil {
			return fmt.Errorf("%w: %w", ErrBeluga, err)
		}

		tbl := table.New("ID", "Name", "Slots").WithWriter(c.App.Writer)
		for _, d := range ws.reg.Dictionaries() {
			tbl.AddRow(d.ID(), d.Name(), d.Range().String())
		}
		tbl.Print()
		return nil
	},
}

var enableCommand = &cli.Command{
	Name:      "enable",
	Usage:     "make a dictionary available",
	UsageText: "enable NAME",
	Action: func(c *cli.Context) error {
		return setAvailable(c, true)
	},
}

var disableCommand = &cli.Command{
	Name:      "disable",
	Usage:     "hide a dictionary",
	UsageText: "disable NAME",
	Action: func(c *cli.Context) error {
		return setAvailable(c, false)
	},
}

// commandWorkspace opens the workspace for a command that logs to the
// error writer.
func commandWorkspace(c *cli.Context) (*workspace, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, c.App.ErrWriter)
	if err != nil {
		return nil, err
	}
	return openWorkspace(c.Context, cfg, logger)
}

func setAvailable(c *cli.Context, available bool) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%w: expected one dictionary name", ErrFlagParse)
	}
	name := c.Args().First()

	ws, err := commandWorkspace(c)
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ws.catalog.SetAvailable(c.Context, name, available); err != nil {
		if errors.Is(err, catalog.ErrUnknown) {
			return fmt.Errorf("%w: no dictionary named %q", ErrBeluga, name)
		}
		return fmt.Errorf("%w: %w", ErrBeluga, err)
	}
	printCatalog(c.App.Writer, ws.catalog.Entries())
	return nil
}

func printCatalog(w io.Writer, entries []catalog.Entry) {
	tbl := table.New("ID", "Name", "Available").WithWriter(w)
	for _, e := range entries {
		tbl.AddRow(e.ID, e.Name, e.Available)
	}
	tbl.Print()
}
