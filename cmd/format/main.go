// Command format lays out a fresh, empty OUFS filesystem on the disk image
// named by ZDISK, creating it if it does not already exist.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ou-cs3113/oufs"
	"github.com/ou-cs3113/oufs/blockdev"
	"github.com/ou-cs3113/oufs/envconfig"
)

func main() {
	app := &cli.App{
		Name:  "format",
		Usage: "create or wipe a OUFS virtual disk image",
		Action: func(*cli.Context) error {
			cfg := envconfig.Load()

			dev, err := blockdev.Create(cfg.DiskName)
			if err != nil {
				return err
			}
			defer dev.Close()

			return oufs.Format(dev)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "format: %s\n", err)
		os.Exit(1)
	}
}
