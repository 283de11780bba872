package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hiroki-koketsu/go-todo/internal/client"
	"github.com/hiroki-koketsu/go-todo/internal/config"
	"github.com/hiroki-koketsu/go-todo/internal/model"
	"github.com/hiroki-koketsu/go-todo/internal/tui"
)

type runner struct {
	cfg     *config.ClientConfig
	local   bool
	filter  client.Filter
	logger  *slog.Logger
	session *client.Session
	api     *client.APIClient
	stdout  io.Writer
	stderr  io.Writer
}

// run dispatches a subcommand and returns an exit code (0 ok, 1 error, 2 usage).
func (r *runner) run(ctx context.Context, args []string) int {
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		printHelp()
		return 0
	case "login":
		if len(a) != 2 {
			return r.usage("todo login <user> <password>")
		}
		return r.login(ctx, a[0], a[1])
	case "logout":
		return r.logout(ctx)
	case "ls":
		return r.list(ctx)
	case "add":
		if len(a) == 0 {
			return r.usage("todo add <text...>")
		}
		return r.add(ctx, strings.Join(a, " "))
	case "done":
		if len(a) != 1 {
			return r.usage("todo done <n>")
		}
		return r.withItem(ctx, a[0], "toggled", func(c *client.Controller, id string) error {
			return c.Toggle(ctx, id)
		})
	case "rm":
		if len(a) != 1 {
			return r.usage("todo rm <n>")
		}
		return r.withItem(ctx, a[0], "deleted", func(c *client.Controller, id string) error {
			return c.Remove(ctx, id)
		})
	case "edit":
		if len(a) < 2 {
			return r.usage("todo edit <n> <text...>")
		}
		text := strings.Join(a[1:], " ")
		if strings.TrimSpace(text) == "" {
			return r.usage("todo edit <n> <text...>")
		}
		return r.withItem(ctx, a[0], "updated", func(c *client.Controller, id string) error {
			c.BeginEdit(id)
			return c.CommitEdit(ctx, text)
		})
	case "priority":
		if len(a) != 2 {
			return r.usage(priorityUsage())
		}
		p, err := model.ParsePriority(a[1])
		if err != nil {
			return r.usage(priorityUsage())
		}
		return r.withItem(ctx, a[0], "priority set to "+string(p), func(c *client.Controller, id string) error {
			return c.SetPriority(ctx, id, p)
		})
	case "ui":
		c, code := r.open(ctx)
		if c == nil {
			return code
		}
		if err := tui.Run(ctx, c); err != nil {
			return r.fail("ui", err)
		}
		return 0
	}

	tui.Fail(r.stderr, "unknown subcommand: "+cmd)
	printHelp()
	return 2
}

func (r *runner) login(ctx context.Context, username, password string) int {
	if r.local {
		if !r.cfg.Auth.Match(username, password) {
			tui.Fail(r.stderr, "Invalid credentials")
			return 1
		}
	} else if err := r.api.Login(ctx, username, password); err != nil {
		return r.fail("login", err)
	}

	if err := r.session.Start(username); err != nil {
		return r.fail("login", err)
	}
	tui.OK(r.stdout, "logged in as "+username)
	return 0
}

func (r *runner) logout(ctx context.Context) int {
	if !r.local {
		if err := r.api.Logout(ctx); err != nil {
			r.logger.Warn("server logout failed", slog.Any("error", err))
		}
	}
	if err := r.session.End(); err != nil {
		return r.fail("logout", err)
	}
	tui.OK(r.stdout, "logged out")
	return 0
}

func (r *runner) list(ctx context.Context) int {
	c, code := r.open(ctx)
	if c == nil {
		return code
	}

	stats := c.Stats()
	lines := []string{
		tui.Header(stats.Total, stats.Completed, stats.Remaining),
		tui.ProgressBar(stats.Completed, stats.Total, 28),
		"",
	}
	visible := c.Visible()
	if len(visible) == 0 {
		lines = append(lines, "(no todos)")
	}
	for i, item := range visible {
		lines = append(lines, fmt.Sprintf("%2d. %s", i+1, tui.ItemLine(item)))
	}
	fmt.Fprintln(r.stdout, tui.Panel(lines))
	return 0
}

func (r *runner) add(ctx context.Context, text string) int {
	c, code := r.open(ctx)
	if c == nil {
		return code
	}
	item, err := c.Add(ctx, text)
	if err != nil {
		return r.fail("add", err)
	}
	if item == nil {
		tui.Fail(r.stderr, "add: empty text")
		return 2
	}
	tui.OK(r.stdout, "added")
	return 0
}

// withItem resolves a 1-based index within the filtered list and applies fn.
func (r *runner) withItem(ctx context.Context, arg, done string, fn func(*client.Controller, string) error) int {
	n, err := strconv.Atoi(arg)
	if err != nil {
		tui.Fail(r.stderr, "not a number: "+arg)
		return 2
	}

	c, code := r.open(ctx)
	if c == nil {
		return code
	}
	visible := c.Visible()
	if n < 1 || n > len(visible) {
		tui.Fail(r.stderr, fmt.Sprintf("no todo #%d (have %d)", n, len(visible)))
		return 1
	}

	if err := fn(c, visible[n-1].ID); err != nil {
		return r.fail(done, err)
	}
	tui.OK(r.stdout, done)
	return 0
}

func (r *runner) open(ctx context.Context) (*client.Controller, int) {
	opts := client.Options{
		Session:  r.session,
		Snapshot: client.NewSnapshot(r.cfg.DataDir, r.logger),
		Logger:   r.logger,
	}
	if !r.local {
		opts.Remote = r.api
	}

	c, err := client.Open(ctx, opts)
	if err != nil {
		if errors.Is(err, client.ErrUnauthenticated) {
			tui.Fail(r.stderr, "not logged in, run: todo login <user> <password>")
			return nil, 1
		}
		return nil, r.fail("open", err)
	}
	c.SetFilter(r.filter)
	return c, 0
}

func priorityUsage() string {
	names := make([]string, len(model.Priorities))
	for i, p := range model.Priorities {
		names[i] = string(p)
	}
	return "todo priority <n> <" + strings.Join(names, "|") + ">"
}

func (r *runner) usage(s string) int {
	tui.Fail(r.stderr, "usage: "+s)
	return 2
}

func (r *runner) fail(op string, err error) int {
	tui.Fail(r.stderr, op+": "+err.Error())
	return 1
}
