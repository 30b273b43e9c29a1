// logger/logger.go
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// ANSI color codes for console output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var levelTags = map[LogLevel]string{
	DEBUG: "[DEBUG] ",
	INFO:  "[INFO]  ",
	WARN:  "[WARN]  ",
	ERROR: "[ERROR] ",
}

var levelColors = map[LogLevel]string{
	DEBUG: colorGray,
	INFO:  colorReset,
	WARN:  colorYellow,
	ERROR: colorRed,
}

type Logger struct {
	console  map[LogLevel]*log.Logger // colored, console output
	plain    map[LogLevel]*log.Logger // uncolored, file output
	file     *os.File
	minLevel LogLevel
}

var (
	defaultLogger *Logger
	once          sync.Once
	mu            sync.Mutex
)

// ensureInitialized creates a console-only logger if Init was never called
func ensureInitialized() {
	once.Do(func() {
		if defaultLogger == nil {
			defaultLogger = newLogger(os.Stdout, nil, DEBUG)
		}
	})
}

func newLogger(console io.Writer, file *os.File, minLevel LogLevel) *Logger {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	l := &Logger{
		console:  make(map[LogLevel]*log.Logger),
		plain:    make(map[LogLevel]*log.Logger),
		file:     file,
		minLevel: minLevel,
	}
	for level, tag := range levelTags {
		if console != nil {
			l.console[level] = log.New(console, levelColors[level]+tag+colorReset, flags)
		}
		if file != nil {
			l.plain[level] = log.New(file, tag, flags)
		}
	}
	return l
}

// Init initializes the logger with optional file and console output.
// If filename is empty, logs only to console.
// If console is false, logs only to file.
func Init(filename string, console bool) error {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.file != nil {
		defaultLogger.file.Close()
	}

	var file *os.File
	if filename != "" {
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
	}

	var consoleOut io.Writer
	if console {
		consoleOut = os.Stdout
	}

	if file == nil && consoleOut == nil {
		return fmt.Errorf("no output destination specified")
	}

	defaultLogger = newLogger(consoleOut, file, DEBUG)
	return nil
}

// SetLevel sets the minimum log level. Messages below it are dropped.
func SetLevel(level LogLevel) {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.minLevel = level
}

// Close closes the log file if one is open
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.file != nil {
		defaultLogger.file.Close()
		defaultLogger.file = nil
		defaultLogger.plain = make(map[LogLevel]*log.Logger)
	}
}

func (l *Logger) output(level LogLevel, msg string) {
	if level < l.minLevel {
		return
	}
	if lg, ok := l.console[level]; ok {
		lg.Output(4, msg)
	}
	if lg, ok := l.plain[level]; ok {
		lg.Output(4, msg)
	}
}

// Debug logs a debug message
func Debug(v ...interface{}) {
	ensureInitialized()
	defaultLogger.output(DEBUG, fmt.Sprint(v...))
}

// Debugf logs a formatted debug message
func Debugf(format string, v ...interface{}) {
	ensureInitialized()
	defaultLogger.output(DEBUG, fmt.Sprintf(format, v...))
}

// Info logs an info message
func Info(v ...interface{}) {
	ensureInitialized()
	defaultLogger.output(INFO, fmt.Sprint(v...))
}

// Infof logs a formatted info message
func Infof(format string, v ...interface{}) {
	ensureInitialized()
	defaultLogger.output(INFO, fmt.Sprintf(format, v...))
}

// Warn logs a warning message
func Warn(v ...interface{}) {
	ensureInitialized()
	defaultLogger.output(WARN, fmt.Sprint(v...))
}

// Warnf logs a formatted warning message
func Warnf(format string, v ...interface{}) {
	ensureInitialized()
	defaultLogger.output(WARN, fmt.Sprintf(format, v...))
}

// Error logs an error message
func Error(v ...interface{}) {
	ensureInitialized()
	defaultLogger.output(ERROR, fmt.Sprint(v...))
}

// Errorf logs a formatted error message
func Errorf(format string, v ...interface{}) {
	ensureInitialized()
	defaultLogger.output(ERROR, fmt.Sprintf(format, v...))
}

// Fatal logs an error message and exits the program
func Fatal(v ...interface{}) {
	ensureInitialized()
	defaultLogger.output(ERROR, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf logs a formatted error message and exits the program
func Fatalf(format string, v ...interface{}) {
	ensureInitialized()
	defaultLogger.output(ERROR, fmt.Sprintf(format, v...))
	os.Exit(1)
}
