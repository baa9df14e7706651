// Command konarae runs the announcement crawl and analysis pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/config"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (optional, env vars apply either way)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	app, err := server.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	return app.Run(ctx)
}
