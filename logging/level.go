package logging

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

// Level is the verbosity a logger writes at. INFO is the zero value.
type Level int

// Levels in increasing severity.
const (
	DEBUG Level = iota - 1
	INFO
	WARN
	ERROR
)

var zapLevels = map[Level]zapcore.Level{
	DEBUG: zapcore.DebugLevel,
	INFO:  zapcore.InfoLevel,
	WARN:  zapcore.WarnLevel,
	ERROR: zapcore.ErrorLevel,
}

func (level Level) String() string {
	return level.AsZap().CapitalString()
}

// AsZap converts the Level to a zapcore.Level. Unknown levels map to error.
func (level Level) AsZap() zapcore.Level {
	if z, ok := zapLevels[level]; ok {
		return z
	}
	return zapcore.ErrorLevel
}

func levelFromZap(z zapcore.Level) Level {
	switch {
	case z <= zapcore.DebugLevel:
		return DEBUG
	case z == zapcore.InfoLevel:
		return INFO
	case z == zapcore.WarnLevel:
		return WARN
	default:
		return ERROR
	}
}

// LevelFromString parses debug, info, warn (or warning) and error, ignoring case.
func LevelFromString(inp string) (Level, error) {
	s := strings.ToLower(inp)
	if s == "warning" {
		s = "warn"
	}
	var z zapcore.Level
	if err := z.UnmarshalText([]byte(s)); err != nil || z > zapcore.ErrorLevel {
		return DEBUG, errors.Errorf("unknown log level: %q", inp)
	}
	return levelFromZap(z), nil
}
