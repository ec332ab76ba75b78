// Copyright 2024 The kod Authors
// This file is part of the kod library.
//
// The kod library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The kod library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the kod library. If not, see <http://www.gnu.org/licenses/>.

// Package log is a minimal leveled logger, colorized when writing to a
// terminal. It mirrors the call convention of the node's ambient logger:
// log.Info("message", "key", value, "key2", value2).
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level is a log verbosity level.
type Level int

const (
	LvlError Level = iota
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

var levelNames = map[Level]string{
	LvlError: "ERROR",
	LvlWarn:  "WARN",
	LvlInfo:  "INFO",
	LvlDebug: "DEBUG",
	LvlTrace: "TRACE",
}

var levelColors = map[Level]*color.Color{
	LvlError: color.New(color.FgRed, color.Bold),
	LvlWarn:  color.New(color.FgYellow),
	LvlInfo:  color.New(color.FgGreen),
	LvlDebug: color.New(color.FgCyan),
	LvlTrace: color.New(color.FgWhite),
}

// Logger writes leveled, key/value log lines to an io.Writer.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	lvl      Level
	colorize bool
}

// Root is the process-wide default logger, writing to stderr.
var Root = NewLogger(colorable.NewColorableStderr(), LvlInfo)

// NewLogger constructs a Logger writing to out at the given minimum level.
// Colorization is enabled when out is an *os.File attached to a terminal,
// and always when out is any other writer (such as a colorable wrapper).
func NewLogger(out io.Writer, lvl Level) *Logger {
	colorize := false
	if f, ok := out.(*os.File); ok {
		colorize = isatty.IsTerminal(f.Fd())
	} else {
		// colorable.NewColorableStderr()/Stdout() wrap a terminal file descriptor
		// on Windows; on POSIX they are the raw *os.File itself, caught above.
		colorize = true
	}
	return &Logger{out: out, lvl: lvl, colorize: colorize}
}

// SetLevel adjusts the minimum level the logger emits.
func (l *Logger) SetLevel(lvl Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lvl = lvl
}

func (l *Logger) log(lvl Level, msg string, ctx ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl > l.lvl {
		return
	}
	ts := time.Now().Format("2006-01-02T15:04:05.000")
	name := levelNames[lvl]
	if l.colorize {
		name = levelColors[lvl].Sprint(name)
	}
	fmt.Fprintf(l.out, "%s [%s] %s%s\n", ts, name, msg, formatCtx(ctx))
}

func formatCtx(ctx []interface{}) string {
	if len(ctx) == 0 {
		return ""
	}
	s := ""
	for i := 0; i+1 < len(ctx); i += 2 {
		s += fmt.Sprintf(" %v=%v", ctx[i], ctx[i+1])
	}
	if len(ctx)%2 == 1 {
		s += fmt.Sprintf(" %v=<missing>", ctx[len(ctx)-1])
	}
	return s
}

func (l *Logger) Error(msg string, ctx ...interface{}) { l.log(LvlError, msg, ctx...) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.log(LvlWarn, msg, ctx...) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.log(LvlInfo, msg, ctx...) }
func (l *Logger) Debug(msg string, ctx ...interface{}) { l.log(LvlDebug, msg, ctx...) }
func (l *Logger) Trace(msg string, ctx ...interface{}) { l.log(LvlTrace, msg, ctx...) }

// Package-level convenience functions delegate to Root.
func Error(msg string, ctx ...interface{}) { Root.Error(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { Root.Warn(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { Root.Info(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { Root.Debug(msg, ctx...) }
func Trace(msg string, ctx ...interface{}) { Root.Trace(msg, ctx...) }

// SetLevel adjusts the root logger's minimum level.
func SetLevel(lvl Level) { Root.SetLevel(lvl) }
