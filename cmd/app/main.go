package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/marketeer/internal"
	"github.com/starford/marketeer/internal/session"
	pkgconfig "github.com/starford/marketeer/pkg/config"
)

// loadConfig reads the config file (a missing file keeps the defaults)
// and applies the project flags over it.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if v := cmd.String("project"); v != "" {
		cfg.Project.File = v
	}
	if v := cmd.String("market"); v != "" {
		cfg.Project.MarketFolder = v
	}
	if v := cmd.String("traders"); v != "" {
		cfg.Project.TradersFolder = v
	}
	if v := cmd.String("types"); v != "" {
		cfg.Project.TypesFolder = v
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogger(internal.NewLogger(cmd.Root().ErrWriter, cfg.App.LogLevel, true)),
	}

	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}

	return nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "marketeer",
		Usage: "Edit trader market catalogs, trader files and type lists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Path to the project file",
				Sources: cli.EnvVars("MARKETEER_PROJECT_FILE"),
			},
			&cli.StringFlag{Name: "market", Usage: "Market folder, overrides the project file"},
			&cli.StringFlag{Name: "traders", Usage: "Traders folder, overrides the project file"},
			&cli.StringFlag{Name: "types", Usage: "Types folder, overrides the project file"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: serveMCP,
			},
			duplicatesCommand(),
			typesCommand(),
			catalogCommand(),
			traderCommand(),
			projectCommand(),
			searchCommand(),
		},
	}
}

func main() {
	cmd := newApp()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		if session.IsNoFolder(err) {
			slog.Info("set the folders in a project file or with --market, --traders and --types")
		}
		os.Exit(1)
	}
}
