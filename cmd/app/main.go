package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/arnvald/zettel/internal"
	pkgconfig "github.com/arnvald/zettel/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func runNew(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: zettel new <path>")
	}

	return internal.RunNew(ctx, path, cmd.String("title"), cmd.Bool("edit"),
		internal.WithConfig(cfg))
}

func runEdit(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	return internal.RunEdit(ctx, cmd.Args().Slice(), cmd.StringSlice("heading"),
		cmd.Bool("delete"), internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "zettel",
		Usage:  "Plain-text zettel vault with typed attributes, full-text search, and a link graph",
		Action: runServe,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API server and file watcher",
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Start the MCP server on stdin/stdout",
				Action: runMCP,
			},
			{
				Name:      "new",
				Usage:     "Create a zettel, seeding it from a ztemplate.yaml beside it",
				ArgsUsage: "<path>",
				Action:    runNew,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "title",
						Usage: "Title for the new zettel",
					},
					&cli.BoolFlag{
						Name:  "edit",
						Usage: "Open the new zettel in $EDITOR before saving",
					},
				},
			},
			{
				Name:      "edit",
				Usage:     "Open zettels in one $EDITOR buffer and write back the result",
				ArgsUsage: "[path ...]",
				Action:    runEdit,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "heading",
						Usage: "Limit the edit to the named sections (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "delete",
						Usage: "Delete the files of zettels removed from the buffer",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
