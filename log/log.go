// Package log provides structured, leveled logging for boldaric.
// Call sites pass a context followed by alternating key/value pairs:
//
//	log.Info(ctx, "Searching collection", "collection", name, "topK", k)
//
// Error accepts an error either as the last odd argument or under an
// explicit "error" key.
package log

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// SetLevel changes the global log level. Accepts "debug", "info",
// "warn" and "error"; anything else leaves the level at info.
func SetLevel(level string) {
	switch level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Debug logs a message at debug level.
func Debug(_ context.Context, msg string, kv ...interface{}) {
	logger.WithFields(fields(kv)).Debug(msg)
}

// Info logs a message at info level.
func Info(_ context.Context, msg string, kv ...interface{}) {
	logger.WithFields(fields(kv)).Info(msg)
}

// Warn logs a message at warn level.
func Warn(_ context.Context, msg string, kv ...interface{}) {
	logger.WithFields(fields(kv)).Warn(msg)
}

// Error logs a message at error level.
func Error(_ context.Context, msg string, kv ...interface{}) {
	logger.WithFields(fields(kv)).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	i := 0
	for i < len(kv) {
		// A bare error is allowed anywhere in the argument list.
		if err, ok := kv[i].(error); ok {
			f["error"] = err
			i++
			continue
		}
		key, ok := kv[i].(string)
		if !ok || i+1 >= len(kv) {
			f["args"] = kv[i:]
			break
		}
		f[key] = kv[i+1]
		i += 2
	}
	return f
}
