// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package log is a small leveled-logging facade modeled on the
// kratos-style Logger/Helper split: a Logger only knows how to write one
// already-formatted key/value record, and every ergonomic method (Info,
// Warnf, With, ...) lives on Helper instead.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is a log severity, ordered so Level comparisons are meaningful.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger writes one already-leveled record, given as alternating key/value
// pairs, exactly like the reference kratos Logger contract.
type Logger interface {
	Log(level Level, keyvals ...interface{}) error
}

// stdLogger is the default Logger: a mutex-guarded writer emitting
// "ts=... level=... key=value ..." lines.
type stdLogger struct {
	mu  sync.Mutex
	out io.Writer
}

// NewStdLogger wraps w as a Logger.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{out: w}
}

func (l *stdLogger) Log(level Level, keyvals ...interface{}) error {
	if len(keyvals) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	buf := make([]byte, 0, 64)
	buf = append(buf, "ts="...)
	buf = append(buf, time.Now().Format(time.RFC3339)...)
	buf = append(buf, " level="...)
	buf = append(buf, level.String()...)
	for i := 0; i < len(keyvals); i += 2 {
		buf = append(buf, ' ')
		buf = append(buf, fmt.Sprint(keyvals[i])...)
		buf = append(buf, '=')
		if i+1 < len(keyvals) {
			buf = append(buf, fmt.Sprint(keyvals[i+1])...)
		}
	}
	buf = append(buf, '\n')
	_, err := l.out.Write(buf)
	return err
}

// FilterOption configures a filtering Logger wrapper.
type FilterOption func(*filter)

// FilterLevel drops any record below level.
func FilterLevel(level Level) FilterOption {
	return func(f *filter) { f.level = level }
}

type filter struct {
	logger Logger
	level  Level
}

// NewFilter wraps logger so only records at or above the configured
// minimum level (LevelDebug, the zero value, if unset) are forwarded.
func NewFilter(logger Logger, opts ...FilterOption) Logger {
	f := &filter{logger: logger, level: LevelDebug}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filter) Log(level Level, keyvals ...interface{}) error {
	if level < f.level {
		return nil
	}
	return f.logger.Log(level, keyvals...)
}

// Helper adds leveled, printf-style convenience methods over a Logger,
// mirroring the reference kratos Helper.
type Helper struct {
	logger Logger
	prefix []interface{}
}

// NewHelper wraps logger as a Helper. A nil logger is replaced by a
// Logger writing to os.Stderr, so callers never need a nil check.
func NewHelper(logger Logger) *Helper {
	if logger == nil {
		logger = NewStdLogger(os.Stderr)
	}
	return &Helper{logger: logger}
}

// With returns a Helper that prepends keyvals to every subsequent record.
func (h *Helper) With(keyvals ...interface{}) *Helper {
	next := make([]interface{}, 0, len(h.prefix)+len(keyvals))
	next = append(next, h.prefix...)
	next = append(next, keyvals...)
	return &Helper{logger: h.logger, prefix: next}
}

func (h *Helper) log(level Level, msg string, keyvals ...interface{}) {
	all := make([]interface{}, 0, len(h.prefix)+len(keyvals)+2)
	all = append(all, h.prefix...)
	all = append(all, "msg", msg)
	all = append(all, keyvals...)
	_ = h.logger.Log(level, all...)
}

func (h *Helper) Debugf(format string, args ...interface{}) { h.log(LevelDebug, fmt.Sprintf(format, args...)) }
func (h *Helper) Infof(format string, args ...interface{})  { h.log(LevelInfo, fmt.Sprintf(format, args...)) }
func (h *Helper) Warnf(format string, args ...interface{})  { h.log(LevelWarn, fmt.Sprintf(format, args...)) }
func (h *Helper) Errorf(format string, args ...interface{}) { h.log(LevelError, fmt.Sprintf(format, args...)) }

func (h *Helper) Debug(args ...interface{}) { h.log(LevelDebug, fmt.Sprint(args...)) }
func (h *Helper) Info(args ...interface{})  { h.log(LevelInfo, fmt.Sprint(args...)) }
func (h *Helper) Warn(args ...interface{})  { h.log(LevelWarn, fmt.Sprint(args...)) }
func (h *Helper) Error(args ...interface{}) { h.log(LevelError, fmt.Sprint(args...)) }
