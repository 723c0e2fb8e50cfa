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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/youginil/beluga/internal/config"
	"github.com/youginil/beluga/internal/server"
)

var serveCommand = &cli.Command{
	Name:      "serve",
	Usage:     "serve dictionary content over HTTP",
	UsageText: "serve [--addr ADDR] [--resource-dir DIR]",
	Description: "Load the dictionaries and serve them until interrupted.\n" +
		"Dictionaries are reloaded on SIGHUP.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Usage: "listen on `ADDR`, trying the following ports if taken",
		},
		&cli.StringFlag{
			Name:  "resource-dir",
			Usage: "read entry.js from `DIR`",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if c.IsSet("addr") {
			cfg.Addr = c.String("addr")
		}
		if c.IsSet("resource-dir") {
			cfg.ResourceDir = c.String("resource-dir")
		}
		logger, err := newLogger(cfg, c.App.ErrWriter)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		ws, err := openWorkspace(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := ws.Close(); err != nil {
				logger.Warn("Failed to close", "error", err)
			}
		}()

		if err := ws.reg.Reload(ctx, cfg.DictDir); err != nil {
			return fmt.Errorf("%w: %w", ErrBeluga, err)
		}
		go watchReload(ctx, ws, func() (*config.Config, error) { return loadConfig(c) }, logger)

		srv := server.New(&server.Options{
			Registry: ws.reg,
			Catalog:  ws.catalog,
			Config:   cfg.Server(),
			Logger:   logger,
		})
		if err := srv.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrBeluga, err)
		}
		return nil
	},
}

// watchReload refreshes the workspace on every reload signal until ctx is
// done.
func watchReload(ctx context.Context, ws *workspace, load func() (*config.Config, error), logger *slog.Logger) {
	if len(reloadSignals) == 0 {
		return
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, reloadSignals...)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ch:
			logger.Info("Reloading dictionaries", "signal", sig.String())
			if err := ws.refresh(ctx, load, logger); err != nil {
				logger.Error("Failed to reload dictionaries", "error", err)
			}
		}
	}
}
