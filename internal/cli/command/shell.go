package command

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/storefront-go/internal/app"
	"github.com/yndnr/storefront-go/internal/cli/config"
	"github.com/yndnr/storefront-go/internal/cli/repl"
	"github.com/yndnr/storefront-go/internal/core/domain"
	"github.com/yndnr/storefront-go/internal/infra/buildinfo"
	"github.com/yndnr/storefront-go/internal/infra/confloader"
	"github.com/yndnr/storefront-go/internal/telemetry/logger"
)

func shellCommand(rt *Runtime) *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "interactive shell; the session and cache persist between commands",
		Action: func(c *cli.Context) error {
			rt.mu.Lock()
			if rt.shell {
				rt.mu.Unlock()
				return domain.ErrInvalidArgument.WithDetails("already in the shell")
			}
			rt.shell = true
			rt.mu.Unlock()
			defer func() {
				rt.mu.Lock()
				rt.shell = false
				rt.mu.Unlock()
			}()

			a, err := rt.App(c.Context)
			if err != nil {
				return err
			}

			ctx, stop := a.Shutdown().Listen(c.Context)
			defer stop()

			stopWatch := rt.watchConfig(a)
			defer stopWatch()

			r := repl.New(repl.Config{
				Input:  rt.Stdin,
				Output: rt.Stdout,
				Prompt: func() string {
					return shellPrompt(a.Config.Shell.Prompt, a.Session.State())
				},
				Exec: func(ctx context.Context, args []string) error {
					return Friendly(NewApp(rt).RunContext(ctx, append([]string{Name}, args...)))
				},
				Commands:    CommandPaths(NewApp(rt)),
				HistoryFile: historyFile(a.Config, rt.ConfigPath()),
				Logger:      a.Logger.Slog(),
			})

			fmt.Fprintf(rt.Stdout, "%s %s. Type help for commands, exit to leave.\n", Name, buildinfo.Get().Version)
			return r.Run(ctx)
		},
	}
}

func shellPrompt(base string, state domain.SessionState) string {
	if base == "" {
		base = "storefront> "
	}
	if state == domain.SessionAnonymous {
		return base
	}
	return "[" + state.String() + "] " + base
}

func historyFile(cfg *config.Config, configPath string) string {
	if cfg.Shell.HistoryFile != "" {
		return cfg.Shell.HistoryFile
	}
	return filepath.Join(filepath.Dir(configPath), "history")
}

// watchConfig reapplies log_level whenever the config file changes. The
// returned func stops watching.
func (rt *Runtime) watchConfig(a *app.App) func() {
	path := rt.ConfigPath()
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(a.Logger.Slog()))
	if err != nil {
		a.Logger.Warn("config watcher unavailable", "error", err)
		return func() {}
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		a.Logger.Debug("config file not watched", "path", path, "error", err)
		return func() {}
	}

	w.OnChange(func(string) {
		rt.mu.Lock()
		overrides := rt.overrides
		rt.mu.Unlock()

		cfg, err := config.Load(path, overrides)
		if err != nil {
			a.Logger.Warn("config reload failed", "path", path, "error", err)
			return
		}
		if cfg.LogLevel != logger.GetLevel() {
			logger.SetLevel(cfg.LogLevel)
			a.Logger.Info("log level changed", "level", cfg.LogLevel)
		}
	})
	w.StartAsync()
	return func() { _ = w.Stop() }
}

// CommandPaths lists every command path of root, such as "orders pay", for
// shell completion.
func CommandPaths(root *cli.App) []string {
	var out []string
	var walk func(prefix string, cmds []*cli.Command)
	walk = func(prefix string, cmds []*cli.Command) {
		for _, cmd := range cmds {
			if cmd.Hidden || cmd.Name == "help" {
				continue
			}
			path := strings.TrimSpace(prefix + " " + cmd.Name)
			out = append(out, path)
			walk(path, cmd.Subcommands)
		}
	}
	walk("", root.Commands)
	return out
}
