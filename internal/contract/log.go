package contract

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Color variables for level tags.
var (
	infoColor  = color.New(color.FgCyan)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	fatalColor = color.New(color.FgRed, color.Bold)
)

var (
	logMu  sync.Mutex
	logOut io.Writer = os.Stderr
	exitFn           = os.Exit
)

// SetLogOutput redirects log lines, returning the previous writer.
func SetLogOutput(w io.Writer) io.Writer {
	logMu.Lock()
	defer logMu.Unlock()
	prev := logOut
	logOut = w
	return prev
}

func logLine(tag *color.Color, level, msg string, err error) {
	logMu.Lock()
	defer logMu.Unlock()
	if err != nil {
		_, _ = fmt.Fprintf(logOut, "%s %s: %v\n", tag.Sprint(level), msg, err)
		return
	}
	_, _ = fmt.Fprintf(logOut, "%s %s\n", tag.Sprint(level), msg)
}

// LogInfo logs an informational message.
func LogInfo(msg string) {
	logLine(infoColor, "Info", msg, nil)
}

// LogInfof logs a formatted informational message.
func LogInfof(format string, args ...any) {
	logLine(infoColor, "Info", fmt.Sprintf(format, args...), nil)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	logLine(warnColor, "Warn", msg, err)
}

// LogError logs an error that does not stop the program.
func LogError(msg string, err error) {
	logLine(errorColor, "Error", msg, err)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	logLine(fatalColor, "Fatal", msg, err)
	exitFn(1)
}
