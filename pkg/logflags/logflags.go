package logflags

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var minidump = false
var dumpview = false
var addrspace = false

var logOut io.WriteCloser

// Components lists the values accepted by --log-output.
var Components = []string{"minidump", "dumpview", "addrspace"}

func makeLogger(level logrus.Level, fields Fields) Logger {
	if lf := loggerFactory; lf != nil {
		return lf(level, fields, logOut)
	}
	logger := logrus.New().WithFields(logrus.Fields(fields))
	logger.Logger.Formatter = textFormatterInstance
	if logOut != nil {
		logger.Logger.Out = logOut
	}
	logger.Logger.Level = level
	return &logrusLogger{logger}
}

func makeFlaggableLogger(flag bool, fields Fields) Logger {
	if !flag {
		return makeLogger(logrus.ErrorLevel, fields)
	}
	return makeLogger(logrus.DebugLevel, fields)
}

// Minidump returns true if the minidump container reader should log.
func Minidump() bool {
	return minidump
}

// MinidumpLogger returns a logger for the minidump container reader.
func MinidumpLogger() Logger {
	return makeFlaggableLogger(minidump, Fields{"layer": "minidump"})
}

// Dumpview returns true if address space construction should be logged.
func Dumpview() bool {
	return dumpview
}

// DumpviewLogger returns a logger for address space construction.
func DumpviewLogger() Logger {
	return makeFlaggableLogger(dumpview, Fields{"layer": "dumpview"})
}

// Addrspace returns true if segment registration should be logged.
func Addrspace() bool {
	return addrspace
}

// AddrspaceLogger returns a logger for segment registration.
func AddrspaceLogger() Logger {
	return makeFlaggableLogger(addrspace, Fields{"layer": "addrspace"})
}

// WriteError writes an error message to the log, if logging is enabled.
func WriteError(msg string) {
	if logOut != nil {
		fmt.Fprintln(logOut, msg)
	} else {
		fmt.Fprintln(os.Stderr, msg)
	}
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets the logging flags based on the contents of logstr.
// If logDest is not empty logs will be redirected to the file descriptor or
// file path specified by logDest.
func Setup(logFlag bool, logstr, logDest string) error {
	if logDest != "" {
		n, err := strconv.Atoi(logDest)
		if err == nil {
			logOut = os.NewFile(uintptr(n), "dumpview-logs")
		} else {
			fh, err := os.Create(logDest)
			if err != nil {
				return fmt.Errorf("could not create log file: %v", err)
			}
			logOut = fh
		}
	}
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(io.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logOut != nil {
		log.SetOutput(logOut)
	}
	if logstr == "" {
		logstr = "dumpview"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch strings.TrimSpace(logcmd) {
		case "minidump":
			minidump = true
		case "dumpview":
			dumpview = true
		case "addrspace":
			addrspace = true
		default:
			return fmt.Errorf("unknown log output %q, valid values are %s", logcmd, strings.Join(Components, ", "))
		}
	}
	return nil
}

// Close closes the logger output.
func Close() {
	if logOut != nil {
		logOut.Close()
	}
}

// reset clears all logging flags and the output.
func reset() {
	minidump, dumpview, addrspace = false, false, false
	logOut = nil
}

// textFormatter is a simplified version of logrus.TextFormatter that
// doesn't make logs unreadable when they are output to a text file or to a
// terminal that doesn't support colors.
type textFormatter struct {
}

func (f *textFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	fmt.Fprintf(b, "%s %s ", entry.Time.Format("2006-01-02T15:04:05Z07:00"), entry.Level)

	if layer, ok := entry.Data["layer"]; ok {
		fmt.Fprintf(b, "%v ", layer)
	}
	for k, v := range entry.Data {
		if k == "layer" {
			continue
		}
		fmt.Fprintf(b, "%s=%v ", k, v)
	}
	b.WriteString(strings.TrimSuffix(entry.Message, "\n"))
	b.WriteByte('\n')
	return b.Bytes(), nil
}

var textFormatterInstance = &textFormatter{}
