// Package testutil holds helpers shared by the tests of several packages.
package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/trezcool/masomo-learn/core"
)

// Entry is one message recorded by Logger.
type Entry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records messages instead of reporting them.
type Logger struct {
	mu      sync.Mutex
	entries []Entry
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// Entries returns the messages logged at `level`, or all of them if `level` is empty.
func (l *Logger) Entries(level string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []Entry
	for _, ent := range l.entries {
		if level == "" || ent.Level == level {
			entries = append(entries, ent)
		}
	}
	return entries
}

func (l *Logger) String() string {
	var sb strings.Builder
	for _, ent := range l.Entries("") {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", ent.Level, ent.Msg))
	}
	return sb.String()
}
