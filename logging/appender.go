package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormatStr is the timestamp layout of console and test output.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender receives every entry a logger writes. It is the write half of zapcore.Core, so an
// observer core can be added as an appender directly.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	Sync() error
}

// ConsoleAppender writes one tab separated line per entry.
type ConsoleAppender struct {
	io.Writer
}

// NewStdoutAppender returns an appender writing to stdout.
func NewStdoutAppender() ConsoleAppender {
	return ConsoleAppender{os.Stdout}
}

// NewWriterAppender returns an appender writing to w.
func NewWriterAppender(w io.Writer) ConsoleAppender {
	return ConsoleAppender{w}
}

func (appender ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	line, err := formatEntry(entry, fields)
	fmt.Fprintln(appender.Writer, line)
	return err
}

// Sync is a no-op.
func (appender ConsoleAppender) Sync() error {
	return nil
}

// ZapcoreFieldsToJSON encodes fields, in order, as a single JSON object.
func ZapcoreFieldsToJSON(fields []zapcore.Field) (string, error) {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := enc.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return "", err
	}
	defer buf.Free()
	return buf.String(), nil
}

// formatEntry renders time, level, logger name, caller, message and fields. On a field encoding
// error the line is still returned without the fields.
func formatEntry(entry zapcore.Entry, fields []zapcore.Field) (string, error) {
	parts := []string{entry.Time.Format(DefaultTimeFormatStr), entry.Level.CapitalString()}
	if entry.LoggerName != "" {
		parts = append(parts, entry.LoggerName)
	}
	if entry.Caller.Defined {
		parts = append(parts, entry.Caller.TrimmedPath())
	}
	parts = append(parts, entry.Message)
	if len(fields) == 0 {
		return strings.Join(parts, "\t"), nil
	}
	encoded, err := ZapcoreFieldsToJSON(fields)
	if err != nil {
		return strings.Join(parts, "\t"), err
	}
	return strings.Join(append(parts, encoded), "\t"), nil
}

type appenderSet struct {
	mu   sync.Mutex
	list []Appender
}

func (s *appenderSet) add(a Appender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, a)
}

func (s *appenderSet) snapshot() []Appender {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Appender(nil), s.list...)
}

// appenderCore is the zapcore.Core behind every Logger. It filters by level and fans entries out
// to the appenders.
type appenderCore struct {
	level     zap.AtomicLevel
	inUTC     bool
	appenders *appenderSet
	fields    []zapcore.Field
}

var _ zapcore.Core = (*appenderCore)(nil)

func (c *appenderCore) Enabled(level zapcore.Level) bool {
	return c.level.Enabled(level)
}

func (c *appenderCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *appenderCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *appenderCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if c.inUTC {
		entry.Time = entry.Time.UTC()
	}
	if len(c.fields) > 0 {
		fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	}
	var errs error
	for _, a := range c.appenders.snapshot() {
		errs = multierr.Append(errs, a.Write(entry, fields))
	}
	return errs
}

func (c *appenderCore) Sync() error {
	var errs error
	for _, a := range c.appenders.snapshot() {
		errs = multierr.Append(errs, a.Sync())
	}
	return errs
}
