package main

import (
	"os"
	"strconv"
	"strings"

	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/arcfs/ntfscore/fs"
)

// openVolume bootstraps a Facade over an image file whose $MFT starts at
// the given byte offset, assuming the common NTFS defaults (4096-byte clusters,
// 1024-byte MFT records). A real deployment would derive these from the
// boot sector; this package scopes boot-sector parsing out, so the CLI
// plays the role of whatever upstream component normally supplies them.
func openVolume(image *os.File, offset int64) (*fs.Facade, error) {
	handle := fs.NewStaticIOHandle(4096, 1024, offset)
	return fs.Open(handle, image, fs.GetDefaultOptions())
}

// parseMFTRef parses an MFT reference in "index", "index-sequence" or
// "index-sequence-attrid" notation (e.g. "43-128-0"), matching the
// mft-id shorthand every subcommand accepts for its positional path
// argument.
func parseMFTRef(value string) (id uint64, ok bool) {
	parts := strings.Split(value, "-")
	for _, part := range parts {
		if _, err := strconv.Atoi(part); err != nil {
			return 0, false
		}
	}
	switch len(parts) {
	case 1, 2, 3:
		n, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// resolvePath opens the given path or MFT reference against the volume
// root, the way every subcommand's positional path argument resolves.
func resolvePath(volume *fs.Facade, value string) (*fs.MFTEntry, error) {
	if id, ok := parseMFTRef(value); ok {
		return volume.GetMFTEntryByIndex(id)
	}
	return volume.Open(value)
}

func fatalIfError(err error, context string) {
	kingpin.FatalIfError(err, context)
}
