/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/musyoka101/sliver-tui/pkg/lifecycle"
	"github.com/musyoka101/sliver-tui/pkg/version"
)

var (
	errFailedToLoadConfig = fmt.Errorf("failed to load config")
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/sliver-graph/config.yaml", "Path to sliver-graph config file")
	headless := flag.Bool("headless", false, "Run without the terminal UI")
	once := flag.Bool("once", false, "Fetch once, print the topology and exit")
	theme := flag.String("theme", "", "Override the configured render theme")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersion())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	if *theme != "" {
		cfg.Render.Theme = *theme
	}

	interactive := !*headless && !*once

	logCfg := loggingConfig(cfg.Logging, interactive)

	if err := lifecycle.InitializeLogger(logCfg); err != nil {
		return err
	}

	graphLogger, err := lifecycle.CreateComponentLogger(ctx, "sliver-graph", logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		_ = lifecycle.ShutdownLogger()
	}()

	switch {
	case *once:
		return runOnce(ctx, cfg, graphLogger, os.Stdout)
	case *headless:
		return runHeadless(ctx, cfg, graphLogger)
	default:
		return runTUI(ctx, cfg, graphLogger)
	}
}
