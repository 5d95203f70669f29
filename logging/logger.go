package logging

import (
	"go.uber.org/zap"
)

// Logger is what solvers, rigs and the CLI log through. Every logger carries its own level and
// its own list of appenders; subloggers start from a copy of both.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})

	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})

	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})

	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	Sync() error

	SetLevel(level Level)
	GetLevel() Level
	Sublogger(subname string) Logger
	AddAppender(appender Appender)
	AsZap() *zap.SugaredLogger
}

type logger struct {
	*zap.SugaredLogger
	name string
	core *appenderCore
}

func newLogger(name string, level Level, inUTC bool, appenders ...Appender) *logger {
	core := &appenderCore{
		level:     zap.NewAtomicLevelAt(level.AsZap()),
		inUTC:     inUTC,
		appenders: &appenderSet{list: appenders},
	}
	return wrapCore(name, core)
}

func wrapCore(name string, core *appenderCore) *logger {
	base := zap.New(core, zap.AddCaller()).Named(name)
	return &logger{SugaredLogger: base.Sugar(), name: name, core: core}
}

func (l *logger) SetLevel(level Level) {
	l.core.level.SetLevel(level.AsZap())
}

func (l *logger) GetLevel() Level {
	return levelFromZap(l.core.level.Level())
}

func (l *logger) AddAppender(appender Appender) {
	l.core.appenders.add(appender)
}

// Sublogger returns a logger named "<name>.<subname>" that starts at this logger's level and
// writes to the appenders this logger has now.
func (l *logger) Sublogger(subname string) Logger {
	core := &appenderCore{
		level:     zap.NewAtomicLevelAt(l.core.level.Level()),
		inUTC:     l.core.inUTC,
		appenders: &appenderSet{list: l.core.appenders.snapshot()},
		fields:    l.core.fields,
	}
	name := subname
	if l.name != "" {
		name = l.name + "." + subname
	}
	return wrapCore(name, core)
}

func (l *logger) AsZap() *zap.SugaredLogger {
	return l.SugaredLogger
}

func (l *logger) Sync() error {
	return l.core.Sync()
}
