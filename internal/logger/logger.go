// Package logger provides leveled logging to stdout and a rotated log file.
// Subscribers receive a copy of every emitted entry, which backs the live
// log stream in serve mode.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel is the severity of a log message.
type LogLevel string

const (
	Debug LogLevel = "DEBUG"
	Info  LogLevel = "INFO"
	Warn  LogLevel = "WARN"
	Error LogLevel = "ERROR"
)

var priorities = map[LogLevel]int{Debug: 0, Info: 1, Warn: 2, Error: 3}

var minLevel = Info

// SetLevel sets the minimum emitted level. Accepts "debug", "info", "warn"
// or "error"; anything else means info.
func SetLevel(level string) {
	switch level {
	case "debug":
		minLevel = Debug
	case "warn":
		minLevel = Warn
	case "error":
		minLevel = Error
	default:
		minLevel = Info
	}
}

// LogEntry is one emitted message, shaped for JSON streaming.
type LogEntry struct {
	Timestamp string   `json:"timestamp"`
	Level     LogLevel `json:"level"`
	Message   string   `json:"message"`
}

var (
	mu          sync.Mutex
	subscribers []chan LogEntry
)

func init() {
	log.SetOutput(os.Stdout)
	log.SetFlags(0) // timestamps are emitted by Log itself
}

// Init routes output to stdout plus a rotated file under logDir. One-shot
// CLI runs may skip this and log to stdout only.
func Init(logDir string) {
	if err := os.MkdirAll(logDir, 0700); err != nil {
		log.Printf("Failed to create log directory: %v", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "dupearr.log"),
		MaxSize:    50, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}))
}

// Subscribe returns a buffered channel receiving every entry at or above the
// configured level.
func Subscribe() chan LogEntry {
	mu.Lock()
	defer mu.Unlock()
	ch := make(chan LogEntry, 100)
	subscribers = append(subscribers, ch)
	return ch
}

// Unsubscribe removes and closes a subscriber channel. Unknown channels are
// ignored.
func Unsubscribe(ch chan LogEntry) {
	mu.Lock()
	defer mu.Unlock()
	for i, sub := range subscribers {
		if sub == ch {
			subscribers = append(subscribers[:i], subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Log emits a formatted message at the given level. Entries are dropped for
// subscribers whose buffer is full; logging never blocks on a slow reader.
func Log(level LogLevel, format string, v ...interface{}) {
	if priorities[level] < priorities[minLevel] {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level,
		Message:   fmt.Sprintf(format, v...),
	}
	log.Printf("%s [%s] %s", entry.Timestamp, level, entry.Message)

	mu.Lock()
	for _, ch := range subscribers {
		select {
		case ch <- entry:
		default:
		}
	}
	mu.Unlock()
}

func Debugf(format string, v ...interface{}) { Log(Debug, format, v...) }
func Infof(format string, v ...interface{})  { Log(Info, format, v...) }
func Warnf(format string, v ...interface{})  { Log(Warn, format, v...) }
func Errorf(format string, v ...interface{}) { Log(Error, format, v...) }
