package fs

import (
	"fmt"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

var (
	debug       = false
	lznt1Debug  = false
	ntfsDebug   *bool
)

// Debug renders arg with go-spew for interactive debugging sessions.
func Debug(arg interface{}) {
	spew.Dump(arg)
}

// Debugger is implemented by types that know how to render themselves for
// diagnostics; DebugString indents nested output by prefixing every line.
type Debugger interface {
	DebugString() string
}

func debugStringIndent(arg interface{}, indent string) string {
	debugger, ok := arg.(Debugger)
	if !debug || !ok {
		return ""
	}
	lines := strings.Split(debugger.DebugString(), "\n")
	for idx, line := range lines {
		lines[idx] = indent + line
	}
	return strings.Join(lines, "\n")
}

func printf(format string, args ...interface{}) {
	if debug {
		fmt.Printf(format, args...)
	}
}

func lznt1Printf(format string, args ...interface{}) {
	if lznt1Debug {
		fmt.Printf(format, args...)
	}
}

// debugPrint is gated by the NTFS_DEBUG environment variable rather than
// the package-level debug flag, keeping "library debug build" separate
// from "operator turned on tracing at runtime".
func debugPrint(format string, args ...interface{}) {
	if ntfsDebug == nil {
		value := false
		for _, x := range os.Environ() {
			if strings.HasPrefix(x, "NTFS_DEBUG=") {
				value = true
				break
			}
		}
		ntfsDebug = &value
	}

	if *ntfsDebug {
		fmt.Printf(format, args...)
	}
}
