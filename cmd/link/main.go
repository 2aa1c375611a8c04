// Command link gives an existing file a second name. Unimplemented in the
// source this was grounded on (zlink.c calls a function that was never
// written); this version fully implements it.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ou-cs3113/oufs"
	"github.com/ou-cs3113/oufs/blockdev"
	"github.com/ou-cs3113/oufs/envconfig"
	ouferrors "github.com/ou-cs3113/oufs/errors"
)

func main() {
	app := &cli.App{
		Name:      "link",
		Usage:     "create a new name for an existing file",
		ArgsUsage: "src dst",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return ouferrors.ErrInvalidMode.WithMessage("usage: link src dst")
			}
			cfg := envconfig.Load()

			dev, err := blockdev.Open(cfg.DiskName)
			if err != nil {
				return err
			}
			defer dev.Close()

			fs := oufs.Open(dev, cfg.WorkingDirectory)
			return fs.Link(c.Args().Get(0), c.Args().Get(1))
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "link: %s\n", err)
		os.Exit(1)
	}
}
