package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/storefront-go/internal/cli/config"
	"github.com/yndnr/storefront-go/internal/cli/output"
)

func configCommand(rt *Runtime) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "show and change the CLI configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "show the effective configuration",
				Action: func(c *cli.Context) error {
					cfg, err := rt.Config()
					if err != nil {
						return err
					}
					return rt.show(c, flatten(cfg), nil)
				},
			},
			{
				Name:      "get",
				Usage:     "print one setting",
				ArgsUsage: "KEY",
				Action: func(c *cli.Context) error {
					key, err := argOrFlag(c, "", "key")
					if err != nil {
						return err
					}
					cfg, err := rt.Config()
					if err != nil {
						return err
					}
					v, ok := cfg.Get(key)
					if !ok {
						return fmt.Errorf("%w: %s", config.ErrUnknownKey, key)
					}
					_, err = fmt.Fprintln(rt.Stdout, v)
					return err
				},
			},
			{
				Name:      "set",
				Usage:     "change a setting in the config file",
				ArgsUsage: "KEY VALUE",
				BashComplete: func(c *cli.Context) {
					for _, k := range config.Keys() {
						fmt.Fprintln(c.App.Writer, k)
					}
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("usage: config set KEY VALUE")
					}
					key, value := c.Args().Get(0), c.Args().Get(1)

					path := rt.ConfigPath()
					stored, err := config.Load(path, nil)
					if err != nil {
						return err
					}
					if err := stored.Set(key, value); err != nil {
						return err
					}
					if err := config.Save(stored, path); err != nil {
						return err
					}

					// Keep the running configuration in step.
					if cfg, err := rt.Config(); err == nil {
						_ = cfg.Set(key, value)
					}
					return rt.done(c, "%s = %s (saved to %s)", key, value, path)
				},
			},
			{
				Name:  "keys",
				Usage: "list settable keys",
				Action: func(c *cli.Context) error {
					t := output.NewTable("KEY")
					for _, k := range config.Keys() {
						t.AddRow(k)
					}
					return rt.show(c, config.Keys(), t)
				},
			},
			{
				Name:  "path",
				Usage: "print the config file path",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintln(rt.Stdout, rt.ConfigPath())
					return err
				},
			},
		},
	}
}

// flatten returns every setting keyed by its dotted name.
func flatten(cfg *config.Config) map[string]any {
	out := make(map[string]any)
	for _, k := range config.Keys() {
		if v, ok := cfg.Get(k); ok {
			out[k] = v
		}
	}
	return out
}
