// Package logging contains the structured loggers the solvers and tools write through. Loggers
// are zap sugared loggers whose core fans entries out to a list of appenders.
package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// NewLogger returns a logger writing Info and above to stdout in UTC.
func NewLogger(name string) Logger {
	return newLogger(name, INFO, true, NewStdoutAppender())
}

// NewDebugLogger returns a logger writing Debug and above to stdout in UTC.
func NewDebugLogger(name string) Logger {
	return newLogger(name, DEBUG, true, NewStdoutAppender())
}

// NewBlankLogger returns a Debug logger with no appenders.
func NewBlankLogger(name string) Logger {
	return newLogger(name, DEBUG, true)
}

// NewTestLogger returns a Debug logger writing to tb in local time.
func NewTestLogger(tb testing.TB) Logger {
	l, _ := NewObservedTestLogger(tb)
	return l
}

// NewObservedTestLogger is NewTestLogger that also keeps every entry in memory.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	return newLogger("", DEBUG, false, NewTestAppender(tb), core), logs
}

// testAppender writes through tb.Log so output is attributed to the running test, even when tests
// run in parallel.
type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that writes each entry to tb.
func NewTestAppender(tb testing.TB) Appender {
	return testAppender{tb}
}

func (a testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	a.tb.Helper()
	line, err := formatEntry(entry, fields)
	a.tb.Log(line)
	return err
}

func (a testAppender) Sync() error {
	return nil
}
