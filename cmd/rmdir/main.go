// Command rmdir removes an empty directory within a OUFS image.
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
		Name:      "rmdir",
		Usage:     "remove an empty directory",
		ArgsUsage: "path",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return ouferrors.ErrInvalidMode.WithMessage("usage: rmdir path")
			}
			cfg := envconfig.Load()

			dev, err := blockdev.Open(cfg.DiskName)
			if err != nil {
				return err
			}
			defer dev.Close()

			fs := oufs.Open(dev, cfg.WorkingDirectory)
			return fs.Rmdir(c.Args().First())
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "rmdir: %s\n", err)
		os.Exit(1)
	}
}
