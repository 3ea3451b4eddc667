package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/storefront-go/internal/app"
	"github.com/yndnr/storefront-go/internal/cli/config"
	"github.com/yndnr/storefront-go/internal/cli/output"
	"github.com/yndnr/storefront-go/internal/core/domain"
	"github.com/yndnr/storefront-go/internal/infra/buildinfo"
)

// Name is the binary name.
const Name = "storefront-cli"

// Runtime holds what commands share: standard streams, the configuration
// and the lazily built application.
type Runtime struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// AppOptions are passed to app.New.
	AppOptions []app.Option

	mu         sync.Mutex
	configPath string
	overrides  map[string]any
	cfg        *config.Config
	app        *app.App
	stdin      *bufio.Reader
	shell      bool
}

// NewRuntime returns a Runtime on the process's standard streams.
func NewRuntime() *Runtime {
	return &Runtime{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// ConfigPath returns the configuration file in use.
func (rt *Runtime) ConfigPath() string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.configPath == "" {
		return config.DefaultConfigPath()
	}
	return rt.configPath
}

// Config loads the configuration on first use.
func (rt *Runtime) Config() (*config.Config, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.configLocked()
}

func (rt *Runtime) configLocked() (*config.Config, error) {
	if rt.cfg != nil {
		return rt.cfg, nil
	}
	cfg, err := config.Load(rt.configPath, rt.overrides)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	rt.cfg = cfg
	return cfg, nil
}

// App builds the application on first use and returns it afterwards.
func (rt *Runtime) App(ctx context.Context) (*app.App, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.app != nil {
		return rt.app, nil
	}
	cfg, err := rt.configLocked()
	if err != nil {
		return nil, err
	}
	opts := append([]app.Option{app.WithLogOutput(rt.Stderr)}, rt.AppOptions...)
	a, err := app.New(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	rt.app = a
	return a, nil
}

// Close shuts the application down if it was built.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	a := rt.app
	rt.app = nil
	rt.mu.Unlock()
	if a == nil {
		return nil
	}
	return a.Close()
}

// configure records the global flags. Only the first invocation counts:
// inside the shell the configuration is already loaded.
func (rt *Runtime) configure(c *cli.Context) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.cfg != nil {
		return
	}
	rt.configPath = c.String("config")
	rt.overrides = flagOverrides(c)
}

// flagOverrides maps the global flags that were set to config keys.
func flagOverrides(c *cli.Context) map[string]any {
	keys := map[string]string{
		"output":      "output",
		"log-level":   "log_level",
		"core-url":    "core.base_url",
		"catalog-url": "catalog.base_url",
		"storage":     "storage.engine",
		"data-dir":    "storage.dir",
		"passphrase":  "storage.passphrase",
	}
	out := make(map[string]any)
	for flag, key := range keys {
		if c.IsSet(flag) {
			out[key] = c.String(flag)
		}
	}
	return out
}

// NewApp builds the command tree bound to rt.
func NewApp(rt *Runtime) *cli.App {
	return &cli.App{
		Name:                 Name,
		Usage:                "storefront client: session, catalog, cart and orders",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Reader:               rt.Stdin,
		Writer:               rt.Stdout,
		ErrWriter:            rt.Stderr,
		Before: func(c *cli.Context) error {
			rt.configure(c)
			return nil
		},
		// Errors are printed by the caller; never exit from inside a command.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			loginCommand(rt),
			loginGoogleCommand(rt),
			registerCommand(rt),
			logoutCommand(rt),
			whoamiCommand(rt),
			deactivateCommand(rt),
			resendEmailCommand(rt),
			servicesCommand(rt),
			cartCommand(rt),
			ordersCommand(rt),
			configCommand(rt),
			systemCommand(rt),
			shellCommand(rt),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file path",
			EnvVars: []string{"STOREFRONT_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "show more columns in table output",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
		&cli.StringFlag{
			Name:  "core-url",
			Usage: "base URL of the auth, cart and order backend",
		},
		&cli.StringFlag{
			Name:  "catalog-url",
			Usage: "base URL of the catalog backend",
		},
		&cli.StringFlag{
			Name:  "storage",
			Usage: "token storage engine: badger or memory",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "token storage directory",
		},
		&cli.StringFlag{
			Name:  "passphrase",
			Usage: "encrypt the stored token with this passphrase",
		},
	}
}

// format resolves the output format: the flag wins over the configuration.
func (rt *Runtime) format(c *cli.Context) (output.Format, error) {
	if c.IsSet("output") {
		return output.ParseFormat(c.String("output"))
	}
	cfg, err := rt.Config()
	if err != nil {
		return "", err
	}
	return output.ParseFormat(cfg.Output)
}

// show prints data in the selected format. Table output prints view instead
// when it is set; view is an output.Tabular or an *output.Table.
func (rt *Runtime) show(c *cli.Context, data, view any) error {
	format, err := rt.format(c)
	if err != nil {
		return err
	}
	if format == output.FormatTable && view != nil {
		data = view
	}
	return output.NewFormatter(format, c.Bool("wide")).Format(rt.Stdout, data)
}

// done reports a completed action: a plain line for tables, an object for
// json and yaml.
func (rt *Runtime) done(c *cli.Context, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	f, err := rt.format(c)
	if err != nil {
		return err
	}
	if f == output.FormatTable {
		_, err := fmt.Fprintln(rt.Stdout, msg)
		return err
	}
	return output.NewFormatter(f, false).Format(rt.Stdout, map[string]string{"message": msg})
}

// prompt writes label to stderr and reads one line from stdin. The shell
// owns stdin, so prompting there is refused.
func (rt *Runtime) prompt(label, flag string) (string, error) {
	rt.mu.Lock()
	if rt.shell {
		rt.mu.Unlock()
		return "", domain.ErrInvalidArgument.WithDetails("--" + flag + " is required in the shell")
	}
	if rt.stdin == nil {
		rt.stdin = bufio.NewReader(rt.Stdin)
	}
	in := rt.stdin
	rt.mu.Unlock()

	fmt.Fprint(rt.Stderr, label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", flag, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// argOrFlag returns the first positional argument, falling back to the flag.
func argOrFlag(c *cli.Context, flag, what string) (string, error) {
	v := c.Args().First()
	if v == "" && flag != "" {
		v = c.String(flag)
	}
	if v = strings.TrimSpace(v); v == "" {
		return "", domain.ErrInvalidArgument.WithDetails(what + " is required")
	}
	return v, nil
}

// Friendly wraps err so it prints as the backend's message when there is
// one. errors.Is and errors.As still see the original.
func Friendly(err error) error {
	if err == nil {
		return nil
	}
	return friendlyError{err}
}

type friendlyError struct{ err error }

func (e friendlyError) Unwrap() error { return e.err }

func (e friendlyError) Error() string {
	var de *domain.DomainError
	if errors.As(e.err, &de) {
		if de.Details != "" {
			return de.Details
		}
		return de.Message
	}
	return e.err.Error()
}
