// Package logging provides structured logging using bolt.
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/felixgeelhaar/bolt/v3"
)

// current holds the process logger. Nil until first use or Configure.
var current atomic.Pointer[bolt.Logger]

// Config configures the logger.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn or error.
	Level string

	// Format is json or console.
	Format string

	// Output defaults to stderr so stdout stays clean for command output.
	Output io.Writer
}

// DefaultConfig logs info and above to stderr in console format.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: os.Stderr,
	}
}

var levels = map[string]bolt.Level{
	"trace": bolt.TRACE,
	"debug": bolt.DEBUG,
	"info":  bolt.INFO,
	"warn":  bolt.WARN,
	"error": bolt.ERROR,
}

// parseLevel maps a level name to bolt.Level, falling back to info.
func parseLevel(s string) bolt.Level {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl
	}
	return bolt.INFO
}

// New builds a logger from config without touching the process logger.
func New(config Config) *bolt.Logger {
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	var handler bolt.Handler
	if config.Format == "json" {
		handler = bolt.NewJSONHandler(output)
	} else {
		handler = bolt.NewConsoleHandler(output)
	}
	return bolt.New(handler).SetLevel(parseLevel(config.Level))
}

// Configure replaces the process logger.
func Configure(config Config) {
	current.Store(New(config))
}

// Get returns the process logger, creating a default one on first use.
func Get() *bolt.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	current.CompareAndSwap(nil, New(DefaultConfig()))
	return current.Load()
}

// LogEvent lets Fields be applied to a bolt.Event in a chain.
type LogEvent struct {
	event *bolt.Event
}

// NewEvent wraps a bolt.Event.
func NewEvent(e *bolt.Event) *LogEvent {
	return &LogEvent{event: e}
}

// Add applies a field and returns the wrapper for chaining.
func (l *LogEvent) Add(f Field) *LogEvent {
	l.event = f(l.event)
	return l
}

// Msg sends the event with a message.
func (l *LogEvent) Msg(msg string) {
	l.event.Msg(msg)
}

// Send sends the event without a message.
func (l *LogEvent) Send() {
	l.event.Send()
}

// Debug starts a debug event on the process logger.
func Debug() *LogEvent { return NewEvent(Get().Debug()) }

// Info starts an info event on the process logger.
func Info() *LogEvent { return NewEvent(Get().Info()) }

// Warn starts a warn event on the process logger.
func Warn() *LogEvent { return NewEvent(Get().Warn()) }

// Error starts an error event on the process logger.
func Error() *LogEvent { return NewEvent(Get().Error()) }
