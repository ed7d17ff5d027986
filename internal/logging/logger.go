package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorWhite  = "\033[97m"
)

// Log levels
const (
	LevelCrit   = iota // 0 - Critical errors (fatal, app should stop)
	LevelError         // 1 - Errors (non-fatal but important)
	LevelWarn          // 2 - Warnings
	LevelNotice        // 3 - Startup, shutdown, cty.dat reloads
	LevelInfo          // 4 - General info
	LevelDebug         // 5 - Per-request details
)

type levelSpec struct {
	abbrev string
	name   string
	color  string
}

var levels = [...]levelSpec{
	LevelCrit:   {"CRT", "crit", colorRed},
	LevelError:  {"ERR", "error", colorRed},
	LevelWarn:   {"WRN", "warn", colorYellow},
	LevelNotice: {"NOT", "notice", colorCyan},
	LevelInfo:   {"INF", "info", colorWhite},
	LevelDebug:  {"DBG", "debug", colorGray},
}

var (
	// Logger is the console logger. Formatting is done here, not by log.
	Logger = log.New(os.Stdout, "", 0)
	// Level controls verbosity. NOTICE keeps request noise out of production logs.
	Level      = LevelNotice
	UseColors  = true
	TimeFormat = "Jan 02 15:04:05.000"

	fileMu     sync.Mutex
	fileLogger *log.Logger
	fileCloser io.Closer
)

// SetLevel sets the logger verbosity level.
func SetLevel(l int) {
	Level = l
}

// ParseLevel accepts a level name ("debug", "warn", ...) or its number.
func ParseLevel(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < LevelCrit || n > LevelDebug {
			return 0, fmt.Errorf("log level %d out of range %d-%d", n, LevelCrit, LevelDebug)
		}
		return n, nil
	}
	for l, lv := range levels {
		if lv.name == s || strings.ToLower(lv.abbrev) == s {
			return l, nil
		}
	}
	if s == "warning" {
		return LevelWarn, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// SetOutput sets the console output destination.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// DisableColors disables color output on the console.
func DisableColors() {
	UseColors = false
}

// SetFile mirrors every log line, without colors, into a size-rotated file.
// An empty path turns the mirror off.
func SetFile(path string) {
	fileMu.Lock()
	defer fileMu.Unlock()

	if fileCloser != nil {
		fileCloser.Close()
		fileCloser = nil
		fileLogger = nil
	}
	if path == "" {
		return
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	fileLogger = log.New(lj, "", 0)
	fileCloser = lj
}

func logf(level int, format string, v ...interface{}) {
	if Level < level {
		return
	}
	lv := levels[level]
	timestamp := time.Now().Format(TimeFormat)
	msg := fmt.Sprintf(format, v...)

	if UseColors {
		Logger.Printf("%s %s%s%s %s", timestamp, lv.color, lv.abbrev, colorReset, msg)
	} else {
		Logger.Printf("%s %s %s", timestamp, lv.abbrev, msg)
	}

	fileMu.Lock()
	if fileLogger != nil {
		fileLogger.Printf("%s %s %s", timestamp, lv.abbrev, msg)
	}
	fileMu.Unlock()
}

// Crit logs critical errors (application should stop)
func Crit(format string, v ...interface{}) { logf(LevelCrit, format, v...) }

// Error logs errors that do not stop the application
func Error(format string, v ...interface{}) { logf(LevelError, format, v...) }

// Warn logs warning-level messages
func Warn(format string, v ...interface{}) { logf(LevelWarn, format, v...) }

// Notice logs important informational messages
func Notice(format string, v ...interface{}) { logf(LevelNotice, format, v...) }

// Info logs general informational messages
func Info(format string, v ...interface{}) { logf(LevelInfo, format, v...) }

// Debug logs very verbose diagnostic messages
func Debug(format string, v ...interface{}) { logf(LevelDebug, format, v...) }
