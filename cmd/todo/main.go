package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/hiroki-koketsu/go-todo/internal/client"
	"github.com/hiroki-koketsu/go-todo/internal/config"
	"github.com/hiroki-koketsu/go-todo/internal/tui"
)

func main() {
	// Root flags (apply to every subcommand)
	local := flag.Bool("local", false, "keep todos on this machine only, without the server")
	filter := flag.String("filter", "all", "which todos ls and index arguments see: all, active, completed")
	flag.Usage = printHelp
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printHelp()
		os.Exit(2)
	}

	f, err := client.ParseFilter(*filter)
	if err != nil {
		tui.Fail(os.Stderr, err.Error())
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		tui.Fail(os.Stderr, "config: "+err.Error())
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := &runner{
		cfg:     cfg,
		local:   *local,
		filter:  f,
		logger:  logger,
		session: client.NewSession(cfg.DataDir),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	if !r.local {
		r.api = client.NewAPIClient(cfg.ServerURL, nil)
	}

	code := r.run(ctx, args)
	stop()
	os.Exit(code)
}

func printHelp() {
	fmt.Fprint(os.Stderr, `todo - a small todo list client

Usage:
  todo [-local] [-filter all|active|completed] <subcommand> [args]

Subcommands:
  login <user> <password>     Start a session
  logout                      End the session
  ls                          List todos
  add <text...>               Add a todo
  done <n>                    Toggle todo n (1-based, within the filter)
  rm <n>                      Delete todo n
  edit <n> <text...>          Replace the text of todo n
  priority <n> <p>            Set priority of todo n to low, medium or high
  ui                          Open the interactive list

Examples:
  todo login user password
  todo add "Buy milk"
  todo -filter active ls
  todo priority 2 high
`)
}
