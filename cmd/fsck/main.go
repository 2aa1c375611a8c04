// Command fsck checks a OUFS image against the invariants it must satisfy
// between operations and reports any violations found, optionally as CSV.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ou-cs3113/oufs/blockdev"
	"github.com/ou-cs3113/oufs/diag"
	"github.com/ou-cs3113/oufs/envconfig"
)

func main() {
	app := &cli.App{
		Name:  "fsck",
		Usage: "check a OUFS image for consistency",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "csv", Usage: "report violations as CSV"},
		},
		Action: func(c *cli.Context) error {
			cfg := envconfig.Load()

			dev, err := blockdev.Open(cfg.DiskName)
			if err != nil {
				return err
			}
			defer dev.Close()

			violations, err := diag.Check(dev)
			if err != nil {
				return err
			}

			if c.Bool("csv") {
				if err := diag.WriteCSV(violations, os.Stdout); err != nil {
					return err
				}
			} else {
				for _, v := range violations {
					fmt.Printf("invariant %s: %s: %s\n", v.Invariant, v.Target, v.Detail)
				}
			}

			if len(violations) > 0 {
				os.Exit(1)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fsck: %s\n", err)
		os.Exit(1)
	}
}
