package common

import (
	"fmt"
	"log"
	"sync/atomic"
)

const (
	confLoggerLevel = "cosim.log.level"
)

// Log messages are reported through a single process-wide callback.
// The callback may be rebound at any time; every log site loads its
// own copy before invoking it.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityTrace
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "Error"
	case SeverityWarning:
		return "Warning"
	case SeverityInfo:
		return "Info"
	case SeverityTrace:
		return "Trace"
	}

	return fmt.Sprintf("Severity(%v)", int(s))
}

type LogCallback func(severity Severity, message string)

type logCallbackHolder struct {
	fn LogCallback
}

var logCallback atomic.Value

func init() {
	logCallback.Store(logCallbackHolder{func(severity Severity, message string) {
		log.Printf("[%v] %v", severity, message)
	}})
}

func SetLogCallback(fn LogCallback) {
	logCallback.Store(logCallbackHolder{fn})
}

func LogError(format string, vals ...interface{}) {
	emit(SeverityError, format, vals...)
}

func LogWarning(format string, vals ...interface{}) {
	emit(SeverityWarning, format, vals...)
}

func LogInfo(format string, vals ...interface{}) {
	emit(SeverityInfo, format, vals...)
}

func LogTrace(format string, vals ...interface{}) {
	emit(SeverityTrace, format, vals...)
}

func emit(severity Severity, format string, vals ...interface{}) {
	cb := logCallback.Load().(logCallbackHolder).fn
	if cb != nil {
		cb(severity, fmt.Sprintf(format, vals...))
	}
}

type Logger interface {
	Trace(string, ...interface{})
	Info(string, ...interface{})
	Error(string, ...interface{})
}

type LoggerLevel int

const (
	Error LoggerLevel = iota
	Info
	Trace
)

// A leveled view over the process-wide callback, for long running
// loops (port mapper, step loop) that want a fixed verbosity.
type standardLogger struct {
	level LoggerLevel
}

func NewStandardLogger(c Config) Logger {
	return &standardLogger{LoggerLevel(c.OptionalInt(confLoggerLevel, int(Trace)))}
}

func (s *standardLogger) Trace(format string, vals ...interface{}) {
	if s.level >= Trace {
		LogTrace(format, vals...)
	}
}

func (s *standardLogger) Info(format string, vals ...interface{}) {
	if s.level >= Info {
		LogInfo(format, vals...)
	}
}

func (s *standardLogger) Error(format string, vals ...interface{}) {
	if s.level >= Error {
		LogError(format, vals...)
	}
}
