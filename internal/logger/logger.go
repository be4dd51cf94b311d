package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	warnPrefix  = color.New(color.FgYellow).SprintFunc()
	errorPrefix = color.New(color.FgRed, color.Bold).SprintFunc()
	debugPrefix = color.New(color.Faint).SprintFunc()
)

// Logger handles leveled logging with optional file output
type Logger struct {
	Verbose   bool
	writer    io.Writer
	errWriter io.Writer
	mu        sync.Mutex
	fileLog   *os.File
	hasBar    bool
}

// New creates a new Logger instance
func New(verbose bool) *Logger {
	return &Logger{
		Verbose:   verbose,
		writer:    os.Stdout,
		errWriter: os.Stderr,
	}
}

// NewWithWriter creates a Logger that sends every level, errors included, to w.
func NewWithWriter(w io.Writer, verbose bool) *Logger {
	return &Logger{
		Verbose:   verbose,
		writer:    w,
		errWriter: w,
	}
}

// Discard returns a Logger that drops console output.
func Discard() *Logger {
	return NewWithWriter(io.Discard, false)
}

// SetFileLog enables logging to a file
func (l *Logger) SetFileLog(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if l.fileLog != nil {
		l.fileLog.Close()
	}
	l.fileLog = f
	return nil
}

// OpenLogDir creates dir if needed and logs to a file named after today's date.
// It returns the path of the log file.
func (l *Logger) OpenLogDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(dir, "mp3tag-"+time.Now().Format("2006-01-02")+".log")
	if err := l.SetFileLog(path); err != nil {
		return "", err
	}
	return path, nil
}

// SetProgressBar indicates that a progress bar is active
func (l *Logger) SetProgressBar(active bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hasBar = active
}

// Close closes the log file if open
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLog != nil {
		err := l.fileLog.Close()
		l.fileLog = nil
		return err
	}
	return nil
}

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.log("INFO", format, args...)
}

// Debug logs detailed messages only in verbose mode
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.Verbose {
		l.log("DEBUG", format, args...)
	} else {
		// Always log debug to file even in non-verbose mode
		l.logToFile("DEBUG", format, args...)
	}
}

// Error logs error messages to stderr
func (l *Logger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.errWriter, "%s %s\n", errorPrefix("[ERROR]"), msg)
	l.writeFile("ERROR", msg)
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log("WARN", format, args...)
}

// log handles the actual logging
func (l *Logger) log(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	// Write to stdout (unless we have a progress bar and not verbose)
	if l.Verbose || !l.hasBar {
		switch level {
		case "INFO":
			fmt.Fprintln(l.writer, msg)
		case "WARN":
			fmt.Fprintf(l.writer, "%s %s\n", warnPrefix("[WARN]"), msg)
		default:
			fmt.Fprintf(l.writer, "%s %s\n", debugPrefix("["+level+"]"), msg)
		}
	}

	l.writeFile(level, msg)
}

// logToFile writes only to file
func (l *Logger) logToFile(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLog != nil {
		l.writeFile(level, fmt.Sprintf(format, args...))
	}
}

// writeFile must be called with l.mu held.
func (l *Logger) writeFile(level, msg string) {
	if l.fileLog == nil {
		return
	}
	fmt.Fprintf(l.fileLog, "%s [%s] %s\n", time.Now().Format(time.RFC3339), level, msg)
}
