package command

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/storefront-go/internal/cli/output"
	"github.com/yndnr/storefront-go/internal/infra/buildinfo"
)

func systemCommand(rt *Runtime) *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "client build and runtime information",
		Subcommands: []*cli.Command{
			{
				Name:  "version",
				Usage: "show build information",
				Action: func(c *cli.Context) error {
					return rt.show(c, buildinfo.Get(), nil)
				},
			},
			{
				Name:  "metrics",
				Usage: "show client metrics gathered in this process",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prefix", Value: "storefront_", Usage: "only metrics whose name starts with this"},
					&cli.BoolFlag{Name: "raw", Usage: "print the Prometheus text format"},
				},
				Action: func(c *cli.Context) error {
					a, err := rt.App(c.Context)
					if err != nil {
						return err
					}
					if c.Bool("raw") {
						return a.Metrics.WriteText(rt.Stdout)
					}
					samples, err := a.Metrics.Samples(c.String("prefix"))
					if err != nil {
						return err
					}
					t := output.NewTable("NAME", "LABELS", "VALUE")
					for _, s := range samples {
						t.AddRow(s.Name, dash(s.Labels), strconv.FormatFloat(s.Value, 'g', -1, 64))
					}
					return rt.show(c, samples, t)
				},
			},
		},
	}
}
