// Command create opens filename for writing (creating or truncating it) and
// copies standard input into it until EOF or the file's fixed capacity is
// reached. Grounded on zcreate.c, with the source's missing buffer
// allocation and unused return-code check fixed.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ou-cs3113/oufs"
	"github.com/ou-cs3113/oufs/blockdev"
	"github.com/ou-cs3113/oufs/envconfig"
	ouferrors "github.com/ou-cs3113/oufs/errors"
)

func main() {
	app := &cli.App{
		Name:      "create",
		Usage:     "copy standard input into a new or existing file",
		ArgsUsage: "filename",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return ouferrors.ErrInvalidMode.WithMessage("usage: create filename")
			}
			cfg := envconfig.Load()

			dev, err := blockdev.Open(cfg.DiskName)
			if err != nil {
				return err
			}
			defer dev.Close()

			fs := oufs.Open(dev, cfg.WorkingDirectory)
			handle, err := fs.Open(c.Args().First(), oufs.ModeWrite)
			if err != nil {
				return err
			}
			defer handle.Close()

			buf, err := io.ReadAll(os.Stdin)
			if err != nil {
				return ouferrors.ErrIO.WrapError(err)
			}

			_, err = handle.Write(buf)
			return err
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "create: %s\n", err)
		os.Exit(1)
	}
}
