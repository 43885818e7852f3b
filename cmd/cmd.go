package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/paperandsoap/networking-ovn/cmd/nb"
	"github.com/paperandsoap/networking-ovn/ver"
)

func main() {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Println(ver.Version())
	}

	app := &cli.App{
		Name:  "ovn-mech",
		Usage: "inspect the northbound state managed by the mechanism driver",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "config",
				Usage:    "config files",
				Required: true,
			},
		},

		Commands: []*cli.Command{
			nb.Command(),
		},

		Version: "v",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
