package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/quire/internal"
	pkgconfig "github.com/starford/quire/pkg/config"
)

// loadConfig reads the config file. Server commands require it; client
// commands fall back to defaults when it is missing.
func loadConfig(cmd *cli.Command, required bool) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	load := pkgconfig.LoadOptional[internal.Config]
	if required {
		load = pkgconfig.Load[internal.Config]
	}
	if err := load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "quire",
		Usage:  "Hierarchical notes server and terminal client",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug output from client commands",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the notes HTTP server",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the vault to MCP clients over stdio",
				Action: serveMCP,
			},
			{
				Name:   "tui",
				Usage:  "Open the terminal notes editor",
				Action: runTUI,
			},
			{
				Name:   "tree",
				Usage:  "Print the folder tree",
				Action: printTree,
			},
			{
				Name:      "cat",
				Usage:     "Print a note body",
				ArgsUsage: "PATH",
				Action:    catNote,
			},
			{
				Name:      "new",
				Usage:     "Create a note",
				ArgsUsage: "PATH",
				Flags:     []cli.Flag{bodyFlag},
				Action:    newNote,
			},
			{
				Name:      "save",
				Usage:     "Replace a note body",
				ArgsUsage: "PATH",
				Flags:     []cli.Flag{bodyFlag},
				Action:    saveNote,
			},
			{
				Name:      "rename",
				Usage:     "Rename a note within its folder",
				ArgsUsage: "PATH NEW_NAME",
				Action:    renameNote,
			},
			{
				Name:      "mv",
				Usage:     "Move a note into a folder (\"\" for the top level)",
				ArgsUsage: "PATH FOLDER",
				Action:    moveNote,
			},
			{
				Name:      "rm",
				Usage:     "Delete a note",
				ArgsUsage: "PATH",
				Action:    deleteNote,
			},
			{
				Name:   "usage",
				Usage:  "Show storage usage",
				Action: showUsage,
			},
			{
				Name:  "register",
				Usage: "Create the signed-in user's profile",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "first", Usage: "First name", Required: true},
					&cli.StringFlag{Name: "last", Usage: "Last name", Required: true},
				},
				Action: register,
			},
			{
				Name:   "whoami",
				Usage:  "Show the signed-in profile",
				Action: whoami,
			},
			{
				Name:  "token",
				Usage: "Mint a development JWT for jwt auth mode",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Value: "local", Usage: "Token subject (user id)"},
					&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime, 0 for none"},
					&cli.StringFlag{Name: "secret", Usage: "Signing secret (defaults to auth.secret)"},
				},
				Action: mintToken,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
