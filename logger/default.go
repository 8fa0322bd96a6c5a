package logger

import "sync/atomic"

var defLogger atomic.Pointer[Logger]

func init() {
	l := NewSlog(InfoLevel, false)
	defLogger.Store(&l)
}

func def() Logger {
	return *defLogger.Load()
}

func Debug(msg string, keysAndValues ...any) {
	def().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	def().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	def().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	def().Error(msg, keysAndValues...)
}

func Fatal(msg string, keysAndValues ...any) {
	def().Fatal(msg, keysAndValues...)
}

func SetLevel(level Level) {
	def().SetLevel(level)
}

// GetLogger returns the package default logger.
func GetLogger() Logger {
	return def()
}

// SetLogger replaces the package default logger. A nil logger is ignored.
func SetLogger(l Logger) {
	if l == nil {
		return
	}
	defLogger.Store(&l)
}

func With(keyValues ...any) Logger {
	return def().With(keyValues...)
}
