package logger

import "sync"

// Backend is a single log sink. Keyvals are alternating keys and values.
type Backend interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Logger fans every call out to all configured backends.
type Logger struct {
	backends []Backend
}

var (
	mu        sync.RWMutex
	singleton *Logger
)

func backends() []Backend {
	mu.RLock()
	defer mu.RUnlock()
	if singleton == nil {
		return nil
	}
	return singleton.backends
}

// Init installs the global logger. Calls made before Init are dropped.
func Init(instances ...Backend) {
	mu.Lock()
	defer mu.Unlock()
	singleton = &Logger{
		backends: instances,
	}
}

// Log writes a message without a level to all backends.
func Log(message string, keyvals ...any) {
	for _, b := range backends() {
		b.Log(message, keyvals...)
	}
}

func Info(message string, keyvals ...any) {
	for _, b := range backends() {
		b.Info(message, keyvals...)
	}
}

func Warn(message string, keyvals ...any) {
	for _, b := range backends() {
		b.Warn(message, keyvals...)
	}
}

func Error(message string, keyvals ...any) {
	for _, b := range backends() {
		b.Error(message, keyvals...)
	}
}

func Debug(message string, keyvals ...any) {
	for _, b := range backends() {
		b.Debug(message, keyvals...)
	}
}

// Fatal writes a message at FATAL level. Backends are expected to terminate
// the process.
func Fatal(message string, keyvals ...any) {
	for _, b := range backends() {
		b.Fatal(message, keyvals...)
	}
}
