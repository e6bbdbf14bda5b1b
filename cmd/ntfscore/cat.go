package main

import (
	"io"
	"os"

	"github.com/arcfs/ntfscore/fs"
)

var (
	catCommand = app.Command(
		"cat", "Dump a file's $DATA stream to stdout.")

	catCommandFileArg = catCommand.Arg(
		"file", "The image file to inspect",
	).Required().File()

	catCommandPathArg = catCommand.Arg(
		"path", "The path to extract, or an mft-id.",
	).Default("/").String()

	catCommandStream = catCommand.Flag(
		"stream", "The named data stream to read (empty for unnamed $DATA).",
	).Default("").String()

	catCommandImageOffset = catCommand.Flag(
		"image_offset", "The byte offset of the $MFT within the file.",
	).Int64()

	catCommandOutputFile = catCommand.Flag(
		"out", "Write to this file instead of stdout",
	).OpenFile(os.O_RDWR|os.O_CREATE|os.O_TRUNC, os.FileMode(0666))
)

func doCAT() {
	volume, err := openVolume(*catCommandFileArg, *catCommandImageOffset)
	fatalIfError(err, "Can not open volume")

	entry, err := resolvePath(volume, *catCommandPathArg)
	fatalIfError(err, "Can not open path")

	attr, err := entry.GetAttribute(volume.Resolver(), fs.AttrData, 0, *catCommandStream)
	fatalIfError(err, "Can not open stream")

	data, err := attr.Data(volume.Resolver().ClusterSize(), *catCommandFileArg)
	fatalIfError(err, "Can not open stream")

	var fd io.WriteCloser = os.Stdout
	if *catCommandOutputFile != nil {
		fd = *catCommandOutputFile
		defer fd.Close()
	}

	buf := make([]byte, 1024*1024)
	offset := int64(0)
	for {
		n, err := data.ReadAt(buf, offset)
		if n > 0 {
			fd.Write(buf[:n])
			offset += int64(n)
		}
		if err != nil {
			return
		}
	}
}

func init() {
	commandHandlers = append(commandHandlers, func(command string) bool {
		switch command {
		case catCommand.FullCommand():
			doCAT()
		default:
			return false
		}
		return true
	})
}
