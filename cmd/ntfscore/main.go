package main

import (
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

type commandHandler func(command string) bool

var (
	app = kingpin.New("ntfscore",
		"A tool for inspecting NTFS volumes.")

	verboseFlag = app.Flag(
		"verbose", "Print extra diagnostic detail.").Bool()

	commandHandlers []commandHandler
)

func main() {
	app.HelpFlag.Short('h')
	app.UsageTemplate(kingpin.CompactUsageTemplate)
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	for _, handler := range commandHandlers {
		if handler(command) {
			break
		}
	}
}
