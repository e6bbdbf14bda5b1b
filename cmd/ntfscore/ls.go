package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/arcfs/ntfscore/fs"
)

var (
	lsCommand = app.Command(
		"ls", "List a directory's children.")

	lsCommandFileArg = lsCommand.Arg(
		"file", "The image file to inspect",
	).Required().File()

	lsCommandPathArg = lsCommand.Arg(
		"path", "The path to list or an mft-id.",
	).Default("5").String()

	lsCommandMFTOffset = lsCommand.Flag(
		"mft_offset", "The byte offset of the $MFT within the file.",
	).Default("0").Int64()
)

func doLS() {
	volume, err := openVolume(*lsCommandFileArg, *lsCommandMFTOffset)
	fatalIfError(err, "Can not open volume")

	dir, err := resolvePath(volume, *lsCommandPathArg)
	fatalIfError(err, "Can not open path")

	entries, err := fs.ListDirectory(dir, volume.Resolver())
	fatalIfError(err, "Can not list directory")

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"MFT Id", "FullPath", "Size", "Mtime", "IsDir", "Filename",
	})
	table.SetCaption(true, fmt.Sprintf(
		"Directory listing for %v", *lsCommandPathArg))
	defer table.Render()

	for _, entry := range entries {
		if entry.FileName == nil {
			continue
		}

		isDir := false
		if child, err := volume.GetMFTEntryByIndex(entry.MFTReference); err == nil {
			isDir = child.IsDirectory(volume.Resolver())
		}

		table.Append([]string{
			fmt.Sprintf("%v", entry.MFTReference),
			volume.GetFullPath(entry.MFTReference),
			fmt.Sprintf("%v", entry.FileName.ActualSize),
			fmt.Sprintf("%v", entry.FileName.FileModified),
			fmt.Sprintf("%v", isDir),
			entry.FileName.Name,
		})
	}
}

func init() {
	commandHandlers = append(commandHandlers, func(command string) bool {
		switch command {
		case lsCommand.FullCommand():
			doLS()
		default:
			return false
		}
		return true
	})
}
