// Package logger defines the structured logging surface of the engine.
package logger

// Fields carries structured context for a log line.
type Fields = map[string]any

type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
}

// NoopLogger drops everything. It is the default so the engine stays
// silent unless a logger is injected.
type NoopLogger struct{}

func (NoopLogger) Debug(string, Fields) {}
func (NoopLogger) Info(string, Fields)  {}
func (NoopLogger) Warn(string, Fields)  {}
func (NoopLogger) Error(string, Fields) {}
