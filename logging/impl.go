package logging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type impl struct {
	name  string
	level AtomicLevel
	inUTC bool

	appenders []Appender
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
	}
}

func (imp *impl) Sync() error {
	var errs error
	for _, appender := range imp.appenders {
		errs = multierr.Append(errs, appender.Sync())
	}
	return errs
}

func (imp *impl) Debug(args ...interface{}) { imp.log(false, DEBUG, fmt.Sprint(args...)) }
func (imp *impl) Info(args ...interface{})  { imp.log(false, INFO, fmt.Sprint(args...)) }
func (imp *impl) Warn(args ...interface{})  { imp.log(false, WARN, fmt.Sprint(args...)) }
func (imp *impl) Error(args ...interface{}) { imp.log(false, ERROR, fmt.Sprint(args...)) }

func (imp *impl) Fatal(args ...interface{}) {
	imp.log(false, ERROR, fmt.Sprint(args...))
	os.Exit(1)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.log(false, DEBUG, msg, keysAndValues...)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.log(false, INFO, msg, keysAndValues...)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.log(false, WARN, msg, keysAndValues...)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.log(false, ERROR, msg, keysAndValues...)
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.log(IsDebugMode(ctx), DEBUG, msg, keysAndValues...)
}

func (imp *impl) CInfow(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.log(IsDebugMode(ctx), INFO, msg, keysAndValues...)
}

func (imp *impl) CWarnw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.log(IsDebugMode(ctx), WARN, msg, keysAndValues...)
}

func (imp *impl) CErrorw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.log(IsDebugMode(ctx), ERROR, msg, keysAndValues...)
}

// log must be called directly by the exported methods for the caller to be right.
func (imp *impl) log(force bool, level Level, msg string, keysAndValues ...interface{}) {
	if level < imp.level.Get() && !force {
		return
	}
	imp.write(imp.entry(level, msg), fields(keysAndValues))
}

func (imp *impl) entry(level Level, msg string) zapcore.Entry {
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: imp.name,
		Message:    msg,
		Caller:     getCaller(),
	}
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	return entry
}

func (imp *impl) write(entry zapcore.Entry, fields []zapcore.Field) {
	for _, appender := range imp.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// fields turns alternating keys and values into zap fields. A key without a value gets an error
// as its value so that it is not silently lost.
func fields(keysAndValues []interface{}) []zapcore.Field {
	if len(keysAndValues) == 0 {
		return nil
	}
	out := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		var key string
		if stringer, ok := keysAndValues[i].(fmt.Stringer); ok {
			key = stringer.String()
		} else {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		if i+1 < len(keysAndValues) {
			out = append(out, zap.Any(key, keysAndValues[i+1]))
		} else {
			out = append(out, zap.Any(key, errors.New("unpaired log key")))
		}
	}
	return out
}

// getCaller returns where the exported logging method was called from, e.g.
// "logging/impl_test.go:36".
func getCaller() zapcore.EntryCaller {
	// getCaller, entry, log, the exported method
	const skipToLogCaller = 4
	var caller zapcore.EntryCaller
	var ok bool
	caller.PC, caller.File, caller.Line, ok = runtime.Caller(skipToLogCaller)
	if !ok {
		return caller
	}
	caller.Defined = true
	if fn := runtime.FuncForPC(caller.PC); fn != nil {
		caller.Function = fn.Name()
	}
	return caller
}
