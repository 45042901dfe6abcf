// Package logging wires the standard library's log package to a rotating
// file when one is configured, following the same natefinch/lumberjack
// pattern the rest of the example pack uses for long-running daemons.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the default logger's flags and, if path is non-empty,
// redirects its output through a size-based rotating file writer. It
// returns the writer in use so callers can close it on shutdown: the
// *lumberjack.Logger (which has a Close method) when path is set, or
// os.Stderr otherwise.
func Setup(path string, maxSizeMB int) io.Writer {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if path == "" {
		log.SetOutput(os.Stderr)
		return os.Stderr
	}

	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	}
	log.SetOutput(w)
	return w
}
