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

	"github.com/urfave/cli/v3"

	"github.com/starford/quire/internal"
	"github.com/starford/quire/internal/auth"
	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/logging"
	"github.com/starford/quire/internal/notepath"
	"github.com/starford/quire/internal/sidebar"
	"github.com/starford/quire/internal/tree"
	"github.com/starford/quire/internal/tui"
)

var stdout io.Writer = os.Stdout

var bodyFlag = &cli.StringFlag{
	Name:    "file",
	Aliases: []string{"f"},
	Usage:   "Read the body from `FILE` (\"-\" for stdin); .json files are sent as documents",
}

var errSignedOut = errors.New("no token configured: set client.token, client.token_file or QUIRE_TOKEN")

func logLevel(cmd *cli.Command) slog.Level {
	if cmd.Bool("verbose") {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// openClient loads the config and connects a session. It fails early when
// no token is available so commands do not silently do nothing.
func openClient(ctx context.Context, cmd *cli.Command) (*internal.Client, error) {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return nil, err
	}
	logger := logging.Stderr(logging.FormatText, logLevel(cmd))
	c, err := internal.OpenClient(ctx, internal.WithConfig(cfg), internal.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if c.Token(ctx) == "" {
		_ = c.Close()
		return nil, errSignedOut
	}
	return c, nil
}

// withStructure opens a client and loads the folder tree before running fn.
func withStructure(ctx context.Context, cmd *cli.Command, fn func(*internal.Client) error) error {
	c, err := openClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.Session.Sidebar.Refresh(ctx); err != nil {
		return err
	}
	return fn(c)
}

func args(cmd *cli.Command, names ...string) ([]string, error) {
	if cmd.Args().Len() != len(names) {
		return nil, fmt.Errorf("usage: %s %s", cmd.Name, strings.Join(names, " "))
	}
	return cmd.Args().Slice(), nil
}

func readBody(cmd *cli.Command) (content.Content, bool, error) {
	name := cmd.String("file")
	if name == "" {
		return content.Content{}, false, nil
	}
	var data []byte
	var err error
	if name == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return content.Content{}, false, err
	}
	if strings.EqualFold(filepath.Ext(name), ".json") {
		c, err := content.Document(data)
		return c, true, err
	}
	c, err := content.FromWire(data, "")
	return c, true, err
}

func printTree(ctx context.Context, cmd *cli.Command) error {
	return withStructure(ctx, cmd, func(c *internal.Client) error {
		all := func(string) bool { return true }
		for _, row := range tree.Rows(c.Session.Store.Tree(), all) {
			name := row.Name
			if row.Folder {
				name += "/"
			}
			fmt.Fprintf(stdout, "%s%s\n", strings.Repeat("  ", row.Depth), name)
		}
		return nil
	})
}

func catNote(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "PATH")
	if err != nil {
		return err
	}
	c, err := openClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	body, err := c.API.Content(ctx, a[0], c.Token(ctx))
	if err != nil {
		return err
	}
	data, _ := body.Wire()
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}

func newNote(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "PATH")
	if err != nil {
		return err
	}
	body, ok, err := readBody(cmd)
	if err != nil {
		return err
	}
	if !ok {
		body = content.HTML(sidebar.InitialContent)
	}
	return withStructure(ctx, cmd, func(c *internal.Client) error {
		if err := c.Session.Store.Create(ctx, a[0], body, c.Token(ctx)); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "created %s\n", a[0])
		return nil
	})
}

func saveNote(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "PATH")
	if err != nil {
		return err
	}
	body, ok, err := readBody(cmd)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("save needs --file")
	}
	c, err := openClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Session.Store.Save(ctx, a[0], body, c.Token(ctx))
}

func renameNote(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "PATH", "NEW_NAME")
	if err != nil {
		return err
	}
	return withStructure(ctx, cmd, func(c *internal.Client) error {
		sb := c.Session.Sidebar
		sb.BeginRename(a[0])
		sb.SetRenameDraft(a[1])
		if err := sb.SubmitRename(ctx); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "renamed %s -> %s\n", a[0], notepath.Join(notepath.Parent(a[0]), strings.TrimSpace(a[1])))
		return nil
	})
}

func moveNote(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "PATH", "FOLDER")
	if err != nil {
		return err
	}
	return withStructure(ctx, cmd, func(c *internal.Client) error {
		if err := c.Session.Sidebar.Move(ctx, a[0], a[1]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "moved %s -> %s\n", a[0], notepath.MoveTarget(a[0], a[1]))
		return nil
	})
}

func deleteNote(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "PATH")
	if err != nil {
		return err
	}
	return withStructure(ctx, cmd, func(c *internal.Client) error {
		return c.Session.Sidebar.Delete(ctx, a[0])
	})
}

func showUsage(ctx context.Context, cmd *cli.Command) error {
	c, err := openClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	n, err := c.Session.Store.UsedBytes(ctx, c.Token(ctx))
	if err != nil {
		return err
	}
	line := sidebar.FormatBytes(n)
	if p, err := c.Session.Profile(ctx); err == nil && p.MaxStorage != nil {
		line += " of " + sidebar.FormatBytes(*p.MaxStorage)
	}
	_, err = fmt.Fprintf(stdout, "%s (%d bytes)\n", line, n)
	return err
}

func whoami(ctx context.Context, cmd *cli.Command) error {
	c, err := openClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	p, err := c.Session.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, p.String())
	if claims, err := auth.Inspect(c.Token(ctx)); err == nil && !claims.Expiry.IsZero() {
		fmt.Fprintf(stdout, "token expires %s\n", claims.Expiry.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func register(ctx context.Context, cmd *cli.Command) error {
	c, err := openClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	p, err := c.Session.CreateProfile(ctx, cmd.String("first"), cmd.String("last"))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "registered %s\n", p.DisplayName())
	return nil
}

func mintToken(_ context.Context, cmd *cli.Command) error {
	secret := cmd.String("secret")
	if secret == "" {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		secret = cfg.Auth.Secret
	}
	if secret == "" {
		return errors.New("no signing secret: pass --secret or set auth.secret")
	}
	tok, err := auth.Mint(secret, cmd.String("subject"), cmd.Duration("ttl"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, tok)
	return err
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	level := logLevel(cmd)
	if level > slog.LevelInfo {
		level = slog.LevelInfo
	}
	logger, closer, err := logging.File(cfg.Client.LogFile, level)
	if err != nil {
		return err
	}
	defer closer.Close()

	c, err := internal.OpenClient(ctx, internal.WithConfig(cfg), internal.WithLogger(logger))
	if err != nil {
		return err
	}
	defer c.Close()
	return tui.Run(ctx, c.Session, logger)
}
