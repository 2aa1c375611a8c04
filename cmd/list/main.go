// Command list prints the contents of a directory, or the name of a single
// file, within a OUFS image.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ou-cs3113/oufs"
	"github.com/ou-cs3113/oufs/blockdev"
	"github.com/ou-cs3113/oufs/envconfig"
	"github.com/ou-cs3113/oufs/layout"
)

func main() {
	app := &cli.App{
		Name:      "list",
		Usage:     "list a directory or file",
		ArgsUsage: "[path]",
		Action: func(c *cli.Context) error {
			cfg := envconfig.Load()
			path := c.Args().First()

			dev, err := blockdev.Open(cfg.DiskName)
			if err != nil {
				return err
			}
			defer dev.Close()

			fs := oufs.Open(dev, cfg.WorkingDirectory)
			entries, err := fs.List(path)
			if err != nil {
				return err
			}
			for _, e := range entries {
				name := e.Name
				if e.Type == layout.TypeDirectory {
					name += "/"
				}
				fmt.Println(name)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "list: %s\n", err)
		os.Exit(1)
	}
}
