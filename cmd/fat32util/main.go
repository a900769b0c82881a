// Command fat32util is a small demo CLI for creating and poking at FAT32
// disk images on the host filesystem: format, ls, cat, mkdir, pack-fixture.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/embedfs/fat32/blockdev"
	"github.com/embedfs/fat32/fat32"
	"github.com/embedfs/fat32/utilities/compression"
)

// defaultBlockSize is the sector size assumed for image files created or
// opened by this tool. Real devices report their own; a plain .img file
// has none, so we pick the universal FAT default.
const defaultBlockSize = 512

func main() {
	app := &cli.App{
		Name:  "fat32util",
		Usage: "create and inspect FAT32 disk image files",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "create a new formatted image",
				ArgsUsage: "IMAGE_PATH SIZE_BYTES",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "label", Usage: "volume label to stamp into the boot sector"},
				},
				Action: formatImage,
			},
			{
				Name:      "ls",
				Usage:     "list a directory",
				ArgsUsage: "IMAGE_PATH [PATH]",
				Action:    listDir,
			},
			{
				Name:      "cat",
				Usage:     "print a file's contents to stdout",
				ArgsUsage: "IMAGE_PATH PATH",
				Action:    catFile,
			},
			{
				Name:      "mkdir",
				Usage:     "create a directory",
				ArgsUsage: "IMAGE_PATH PATH",
				Action:    makeDir,
			},
			{
				Name:      "pack-fixture",
				Usage:     "gzip+RLE8-compress a raw disk image for use as an embedded test fixture",
				ArgsUsage: "IMAGE_PATH OUTPUT_PATH",
				Action:    packFixture,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func formatImage(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: fat32util format IMAGE_PATH SIZE_BYTES", 1)
	}
	imagePath := c.Args().Get(0)
	sizeBytes, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid size: %s", err), 1)
	}

	totalBlocks := uint(sizeBytes / defaultBlockSize)
	device, err := blockdev.CreateFileDevice(imagePath, defaultBlockSize, totalBlocks)
	if err != nil {
		return err
	}
	defer device.Close()

	label := c.String("label")
	return fat32.Format(device, fat32.FormatOptions{VolumeLabel: label})
}

func mountImage(imagePath string) (*blockdev.FileDevice, *fat32.Layout, error) {
	device, err := blockdev.OpenFileDevice(imagePath, defaultBlockSize)
	if err != nil {
		return nil, nil, err
	}
	layout, err := fat32.Mount(device, fat32.MountOptions{})
	if err != nil {
		device.Close()
		return nil, nil, err
	}
	return device, layout, nil
}

func listDir(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: fat32util ls IMAGE_PATH [PATH]", 1)
	}
	device, layout, err := mountImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer device.Close()

	path := "/"
	if c.NArg() > 1 {
		path = c.Args().Get(1)
	}

	var dir *fat32.Directory
	if path == "/" {
		dir = fat32.OpenDirectory(layout, layout.RootCluster)
	} else {
		entry, _, err := fat32.Resolve(layout, path)
		if err != nil {
			return err
		}
		if !entry.SFN.IsDirectory() {
			return fmt.Errorf("%s is not a directory", path)
		}
		dir = fat32.OpenDirectory(layout, entry.SFN.FirstCluster())
	}

	entries, err := dir.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		marker := ""
		if e.SFN.IsDirectory() {
			marker = "/"
		}
		fmt.Printf("%s%s\t%d\n", e.Name, marker, e.SFN.FileSize)
	}
	return nil
}

func catFile(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: fat32util cat IMAGE_PATH PATH", 1)
	}
	device, layout, err := mountImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer device.Close()

	f, err := fat32.Open(layout, c.Args().Get(1), fat32.ModeRead)
	if err != nil {
		return err
	}

	buf := make([]byte, 4096)
	for {
		n, err := f.Read(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		if _, werr := os.Stdout.Write(buf[:n]); werr != nil {
			return werr
		}
	}
	return nil
}

func makeDir(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: fat32util mkdir IMAGE_PATH PATH", 1)
	}
	device, layout, err := mountImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer device.Close()

	return fat32.Mkdir(layout, c.Args().Get(1))
}

func packFixture(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: fat32util pack-fixture IMAGE_PATH OUTPUT_PATH", 1)
	}

	input, err := os.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer input.Close()

	output, err := os.Create(c.Args().Get(1))
	if err != nil {
		return err
	}
	defer output.Close()

	compressedSize, err := compression.CompressImage(input, output)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d compressed bytes to %s\n", compressedSize, c.Args().Get(1))
	return nil
}
