// Package cli wires configuration, the HCL interpreter and the console
// pipeline into the interactive and batch entry points.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/flowave-io/hclsh/internal/config"
	"github.com/flowave-io/hclsh/internal/console"
	"github.com/flowave-io/hclsh/internal/interp"
	"github.com/flowave-io/hclsh/internal/monitor"
	"github.com/flowave-io/hclsh/internal/proc"
	"github.com/flowave-io/hclsh/pkg/log"
)

// NewConsole builds the pipeline over a fresh interpreter.
func NewConsole(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) *console.Console {
	in := interp.New(ctx, cfg.InterpOptions(stdout))
	return console.New(in, in.Language(), proc.New(cfg.Shell), cfg.ConsoleOptions(stdout, stderr))
}

// RunConsole starts the interactive shell and returns when the user leaves
// or the session crashed more often than cfg.Retries allows.
func RunConsole(ctx context.Context, cfg *config.Config, version string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := NewConsole(ctx, cfg, os.Stdout, os.Stderr)

	var entries []string
	plog, err := console.OpenPersistentLog(cfg.HistFile)
	if err != nil {
		log.Warn("history disabled", "err", err)
	} else {
		defer plog.Close()
		c.SetPreviousSession(plog.Previous())
		entries = plog.Entries(cfg.HistSize)
	}

	reader, err := NewReader(c.Completer(), entries, cfg.HistSize)
	if err != nil {
		return err
	}
	defer reader.Close()
	c.SetLineReader(reader)

	reload := make(chan struct{}, 1)
	if cfg.Load != "" {
		if err := c.ReplayFile(cfg.Load, true); err != nil {
			log.Warn("bootstrap failed", "file", cfg.Load, "err", err)
		}
		if cfg.Watch {
			if err := monitor.WatchFile(ctx, cfg.Load, reload); err != nil {
				log.Warn("not watching bootstrap file", "err", err)
			}
		}
	}

	fmt.Fprintf(os.Stdout, "hclsh %s\nType %s for help, Ctrl-D to exit.\n", version, cfg.Triggers.Help)

	sess := &Session{
		Console:   c,
		Reader:    reader,
		Log:       plog,
		Bootstrap: cfg.Load,
		Reload:    reload,
		Out:       os.Stdout,
		Host:      remoteHost(),
	}
	sup := &Supervisor{Retries: cfg.Retries, Stderr: os.Stderr}
	return sup.Run(func() error {
		c.Reset()
		return sess.Run(ctx)
	})
}

// RunFile replays path without a terminal and stops at the first failing
// statement.
func RunFile(ctx context.Context, cfg *config.Config, path string, stdout, stderr io.Writer) error {
	c := NewConsole(ctx, cfg, stdout, stderr)
	if cfg.Load != "" && cfg.Load != path {
		if err := c.ReplayFile(cfg.Load, true); err != nil {
			return fmt.Errorf("bootstrap %s: %w", cfg.Load, err)
		}
	}
	if err := c.ReplayFile(path, false); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
