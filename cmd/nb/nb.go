package nb

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/paperandsoap/networking-ovn/cmd/run"
)

// Command .
func Command() *cli.Command {
	return &cli.Command{
		Name:  "nb",
		Usage: "inspect managed northbound state",
		Subcommands: []*cli.Command{
			{
				Name:   "switches",
				Usage:  "list logical switches",
				Action: run.Run(listSwitches),
			},
			{
				Name:      "acls",
				Usage:     "list the ACLs correlated to one port",
				ArgsUsage: "<switch> <port-id>",
				Action:    run.Run(listACLs),
			},
		},
	}
}

func listSwitches(c *cli.Context, rt run.Runtime) error {
	switches, err := rt.NB.ListLogicalSwitches(c.Context)
	if err != nil {
		return err
	}
	for _, ls := range switches {
		fmt.Printf("%s\t%d ports\t%d acls\n", ls.Name, len(ls.Ports), len(ls.ACLs))
	}
	return nil
}

func listACLs(c *cli.Context, rt run.Runtime) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: nb acls <switch> <port-id>", 1)
	}
	acls, err := rt.NB.ACLsForPort(c.Context, c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}
	for _, a := range acls {
		fmt.Printf("%s\t%d\t%s\t%s\n", a.Direction, a.Priority, a.Action, a.Match)
	}
	return nil
}
