// Package log provides a simple way of logging with different levels.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
)

var (
	DebugPrefix string = "[DEBUG]   "
	InfoPrefix  string = "[INFO]    "
	WarnPrefix  string = "[WARNING] "
	ErrPrefix   string = "[ERROR]   "
)

var (
	DebugLog *log.Logger = log.New(DebugWriter, DebugPrefix, 0)
	InfoLog  *log.Logger = log.New(InfoWriter, InfoPrefix, 0)
	WarnLog  *log.Logger = log.New(WarnWriter, WarnPrefix, 0)
	ErrLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.Lshortfile)
)

var loglevel string = "info"

// Init sets the log level: "debug", "info", "warn" or "err".
// Levels below the selected one are silenced
func Init(lvl string) {
	switch lvl {
	case "err", "warn", "info", "debug":
		loglevel = lvl
	default:
		fmt.Fprintf(os.Stderr, "pkg/log: unknown loglevel %s, using info\n", lvl)
		loglevel = "info"
	}
	switch loglevel {
	case "err":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	}
	DebugLog = log.New(DebugWriter, DebugPrefix, 0)
	InfoLog = log.New(InfoWriter, InfoPrefix, 0)
	WarnLog = log.New(WarnWriter, WarnPrefix, 0)
	ErrLog = log.New(ErrWriter, ErrPrefix, log.Lshortfile)
}

/* PRINT */

func Debug(v ...interface{}) {
	DebugLog.Output(2, fmt.Sprintln(v...))
}

func Info(v ...interface{}) {
	InfoLog.Output(2, fmt.Sprintln(v...))
}

func Warn(v ...interface{}) {
	WarnLog.Output(2, fmt.Sprintln(v...))
}

func Error(v ...interface{}) {
	ErrLog.Output(2, fmt.Sprintln(v...))
}

// Fatal writes error log and exits with code 1
func Fatal(v ...interface{}) {
	ErrLog.Output(2, fmt.Sprintln(v...))
	os.Exit(1)
}

/* PRINT FORMAT */

func Debugf(format string, v ...interface{}) {
	DebugLog.Output(2, fmt.Sprintf(format, v...))
}

func Infof(format string, v ...interface{}) {
	InfoLog.Output(2, fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...interface{}) {
	WarnLog.Output(2, fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...interface{}) {
	ErrLog.Output(2, fmt.Sprintf(format, v...))
}

func Fatalf(format string, v ...interface{}) {
	ErrLog.Output(2, fmt.Sprintf(format, v...))
	os.Exit(1)
}
