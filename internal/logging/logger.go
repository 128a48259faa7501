// Package logging is the scope/message/context-map logger every
// subsystem writes through. Grounded on teacher pkg/logger/logger.go;
// no repo in the pack pulls zerolog/zap/logrus, so the hand-rolled
// scope logger is the grounded choice rather than an unseen dependency.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger writes tab-separated, append-only log lines carrying a scope,
// a caller location, and an optional JSON context map.
type Logger struct {
	Level   Level
	Writer  io.Writer
	Service string
}

var global *Logger

// Init opens logPath for append and installs it as the global logger.
// Falls back to stdout if the file or its directory can't be created,
// so a broken log path never blocks the turn loop.
func Init(logPath string, level Level, serviceName string) error {
	logDir := filepath.Dir(logPath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log directory %s: %v\n", logDir, err)
			global = &Logger{Level: level, Writer: os.Stdout, Service: serviceName}
			return nil
		}
	}

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
		global = &Logger{Level: level, Writer: os.Stdout, Service: serviceName}
		return nil
	}

	global = &Logger{Level: level, Writer: file, Service: serviceName}
	return nil
}

func (l *Logger) log(level Level, scope, msg string, ctx map[string]any) {
	if level < l.Level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	_, file, line, ok := runtime.Caller(3)
	caller := "unknown:0"
	if ok {
		if root, err := os.Getwd(); err == nil {
			if rel, err := filepath.Rel(root, file); err == nil {
				caller = fmt.Sprintf("%s:%d", rel, line)
			} else {
				caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
			}
		} else {
			caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
		}
	}

	if l.Service != "" {
		if ctx == nil {
			ctx = make(map[string]any)
		}
		ctx["service"] = l.Service
	}

	jsonCtx := ""
	if len(ctx) > 0 {
		data, _ := json.Marshal(ctx)
		jsonCtx = string(data)
	}

	line2 := fmt.Sprintf("[%s]\t[%s]\t[%s]\t[%s]\t%s", timestamp, level.String(), scope, caller, msg)
	if jsonCtx != "" {
		line2 += "\t" + jsonCtx
	}
	line2 += "\n"

	fmt.Fprint(l.Writer, line2)
}

func Global() *Logger { return global }

func InfoCtx(scope, msg string, args ...map[string]any)  { dispatch(Info, scope, msg, args) }
func ErrorCtx(scope, msg string, args ...map[string]any) { dispatch(Error, scope, msg, args) }
func DebugCtx(scope, msg string, args ...map[string]any) { dispatch(Debug, scope, msg, args) }
func WarnCtx(scope, msg string, args ...map[string]any)  { dispatch(Warn, scope, msg, args) }

func dispatch(level Level, scope, msg string, args []map[string]any) {
	if global == nil {
		return
	}
	global.log(level, scope, msg, firstCtx(args))
}

func firstCtx(args []map[string]any) map[string]any {
	if len(args) > 0 {
		return args[0]
	}
	return nil
}
