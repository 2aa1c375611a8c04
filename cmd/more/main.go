// Command more opens filename for reading and copies its entire contents to
// standard output. Grounded on zmore.c, with the source's unallocated read
// buffer fixed.
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
		Name:      "more",
		Usage:     "print a file's contents",
		ArgsUsage: "filename",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return ouferrors.ErrInvalidMode.WithMessage("usage: more filename")
			}
			cfg := envconfig.Load()

			dev, err := blockdev.Open(cfg.DiskName)
			if err != nil {
				return err
			}
			defer dev.Close()

			fs := oufs.Open(dev, cfg.WorkingDirectory)
			handle, err := fs.Open(c.Args().First(), oufs.ModeRead)
			if err != nil {
				return err
			}
			defer handle.Close()

			buf := make([]byte, 4096)
			for {
				n, err := handle.Read(buf)
				if n > 0 {
					if _, werr := os.Stdout.Write(buf[:n]); werr != nil {
						return ouferrors.ErrIO.WrapError(werr)
					}
				}
				if err != nil {
					return err
				}
				if n == 0 {
					return nil
				}
			}
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "more: %s\n", err)
		os.Exit(1)
	}
}
