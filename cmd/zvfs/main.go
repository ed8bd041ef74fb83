// Copyright 2026 The zvfs Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command zvfs creates and manipulates zvfs container images.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/C-rispy/zvfs"
)

// exitUsage is the status for malformed invocations; failed operations
// exit with 1.
const exitUsage = 2

type config struct {
	stdout io.Writer
	logger *slog.Logger
	strict bool
}

type action func(c *cli.Context, cfg *config, path string, args []string) error

func usageError(c *cli.Context, err error, _ bool) error {
	return cli.Exit(err.Error(), exitUsage)
}

func (cfg *config) command(name string, aliases []string, usage, argsUsage string, flags []cli.Flag, fn action) *cli.Command {
	nargs := len(strings.Fields(argsUsage))
	return &cli.Command{
		Name:         name,
		Aliases:      aliases,
		Usage:        usage,
		ArgsUsage:    strings.TrimSpace("CONTAINER " + argsUsage),
		Flags:        flags,
		OnUsageError: usageError,
		Action: func(c *cli.Context) error {
			if c.NArg() != nargs+1 {
				return cli.Exit(fmt.Sprintf("%s takes %s", name, strings.TrimSpace("CONTAINER "+argsUsage)), exitUsage)
			}
			return fn(c, cfg, c.Args().First(), c.Args().Tail())
		},
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	cfg := &config{stdout: stdout}
	return &cli.App{
		Name:      "zvfs",
		Usage:     "Manage single-file zvfs containers",
		UsageText: "zvfs [global options] COMMAND CONTAINER [ARG]",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Enable debug logging"},
			&cli.BoolFlag{Name: "strict", Usage: "Reject containers with an unexpected superblock"},
		},
		Before: func(c *cli.Context) error {
			level := slog.LevelWarn
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			cfg.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
			cfg.strict = c.Bool("strict")
			return nil
		},
		Commands: []*cli.Command{
			cfg.command("create", []string{"mkfs"}, "Create an empty container", "", nil, runCreate),
			cfg.command("info", []string{"gifs"}, "Print entry counts and file size", "", nil, runInfo),
			cfg.command("list", []string{"lsfs", "ls"}, "List active entries", "", []cli.Flag{
				&cli.BoolFlag{Name: "sum", Usage: "Print a content fingerprint for each entry"},
			}, runList),
			cfg.command("read", []string{"catfs", "cat"}, "Print an entry's contents as text", "NAME", nil, runRead),
			cfg.command("add", []string{"addfs"}, "Add a file under its base name", "FILE", nil, runAdd),
			cfg.command("extract", []string{"getfs", "get"}, "Write an entry's contents to a file", "NAME", []cli.Flag{
				&cli.StringFlag{Name: "dir", Aliases: []string{"C"}, Value: ".", Usage: "Directory to write into", TakesFile: true},
			}, runExtract),
			cfg.command("remove", []string{"rmfs", "rm"}, "Tombstone an entry", "NAME", nil, runRemove),
			cfg.command("defragment", []string{"dfrgfs", "defrag"}, "Drop tombstones and repack the data region", "", nil, runDefragment),
			cfg.command("verify", []string{"fsck"}, "Check the container's structure", "", nil, runVerify),
		},
		Action: func(c *cli.Context) error {
			if !c.Args().Present() {
				_ = cli.ShowAppHelp(c)
				return cli.Exit("missing command", exitUsage)
			}
			return cli.Exit(fmt.Sprintf("unknown command %q", c.Args().First()), exitUsage)
		},
		OnUsageError: usageError,
		// errors are reported by run, which also picks the exit status
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	err := newApp(stdout, stderr).Run(append([]string{"zvfs"}, args...))
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "zvfs: %s\n", err)
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func (cfg *config) options(readOnly bool) []zvfs.Option {
	opts := []zvfs.Option{zvfs.WithLogger(cfg.logger)}
	if cfg.strict {
		opts = append(opts, zvfs.WithStrict())
	}
	if readOnly {
		opts = append(opts, zvfs.WithReadOnly())
	}
	return opts
}

// withContainer opens the container for the duration of fn.
func withContainer(cfg *config, path string, readOnly bool, fn func(c *zvfs.Container) error) (err error) {
	c, err := zvfs.Open(path, cfg.options(readOnly)...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := c.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(c)
}

func runCreate(_ *cli.Context, cfg *config, path string, _ []string) error {
	if err := zvfs.Create(path, cfg.options(false)...); err != nil {
		return err
	}
	fmt.Fprintf(cfg.stdout, "Created %s\n", path)
	return nil
}

func runInfo(_ *cli.Context, cfg *config, path string, _ []string) error {
	return withContainer(cfg, path, true, func(c *zvfs.Container) error {
		s, err := c.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintf(cfg.stdout, "File name: %s\n", path)
		fmt.Fprintf(cfg.stdout, "Number of files: %d\n", s.Active)
		fmt.Fprintf(cfg.stdout, "Free entries: %d\n", s.Empty)
		fmt.Fprintf(cfg.stdout, "Deleted files: %d\n", s.Deleted)
		fmt.Fprintf(cfg.stdout, "Total size of the file: %d\n", s.Size)
		return nil
	})
}

func runList(ctx *cli.Context, cfg *config, path string, _ []string) error {
	withSum := ctx.Bool("sum")
	return withContainer(cfg, path, true, func(c *zvfs.Container) error {
		it := c.List()
		for e, ok := it.Next(); ok; e, ok = it.Next() {
			line := fmt.Sprintf("File: %s, Size: %d, Created: %s", e.Name, e.DataLength, e.CreatedAt.Format(time.ANSIC))
			if withSum {
				sum, err := c.Checksum(e)
				if err != nil {
					return err
				}
				line += fmt.Sprintf(", Sum: %016x", sum)
			}
			fmt.Fprintln(cfg.stdout, line)
		}
		return it.Err()
	})
}

func runRead(_ *cli.Context, cfg *config, path string, args []string) error {
	return withContainer(cfg, path, true, func(c *zvfs.Container) error {
		data, err := c.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cfg.stdout, strings.ToValidUTF8(string(data), "�"))
		return nil
	})
}

func runAdd(_ *cli.Context, cfg *config, path string, args []string) error {
	return withContainer(cfg, path, false, func(c *zvfs.Container) error {
		e, err := c.AddFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cfg.stdout, "Added %s (%d bytes)\n", e.Name, e.DataLength)
		return nil
	})
}

func runExtract(ctx *cli.Context, cfg *config, path string, args []string) error {
	dir := ctx.String("dir")
	return withContainer(cfg, path, true, func(c *zvfs.Container) error {
		e, err := c.Find(args[0])
		if err != nil {
			return err
		}
		// entry names are untrusted; only the last element is used
		base := filepath.Base(e.Name)
		if base == "." || base == ".." || base == string(filepath.Separator) {
			return fmt.Errorf("refusing to extract entry named %q", e.Name)
		}
		data, err := c.Extract(e)
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, base)
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", dst, err)
		}
		fmt.Fprintf(cfg.stdout, "Extracted %s to %s\n", e.Name, dst)
		return nil
	})
}

func runRemove(_ *cli.Context, cfg *config, path string, args []string) error {
	return withContainer(cfg, path, false, func(c *zvfs.Container) error {
		e, err := c.Remove(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cfg.stdout, "Removed %s\n", e.Name)
		return nil
	})
}

func runDefragment(_ *cli.Context, cfg *config, path string, _ []string) error {
	return withContainer(cfg, path, false, func(c *zvfs.Container) error {
		res, err := c.Defragment()
		if err != nil {
			return err
		}
		fmt.Fprintf(cfg.stdout, "Files removed: %d\n", res.Removed)
		fmt.Fprintf(cfg.stdout, "Bytes freed: %d\n", res.FreedBytes)
		return nil
	})
}

func runVerify(_ *cli.Context, cfg *config, path string, _ []string) error {
	return withContainer(cfg, path, true, func(c *zvfs.Container) error {
		r, err := c.Verify()
		if r != nil {
			for _, p := range r.Problems {
				fmt.Fprintln(cfg.stdout, p)
			}
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cfg.stdout, "OK")
		return nil
	})
}
