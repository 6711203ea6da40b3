// Package log is a thin leveled logging facade over logrus, in the spirit of
// the calling convention used across the server packages:
//
//	log.Info(ctx, "message", "key", value, err)
//
// The leading context argument is optional and currently only tolerated;
// keyword arguments are pairs, and a trailing error becomes the "error" field.
package log

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLevel sets the minimum level from its string name. Unknown names keep
// the current level.
func SetLevel(level string) {
	if l, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(l)
	}
}

// SetLogFile attaches a file sink, truncating it when requested. The console
// keeps receiving output as well.
func SetLogFile(path string, truncate bool) error {
	flags := os.O_CREATE | os.O_WRONLY
	if truncate {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file %q: %w", path, err)
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, f))
	return nil
}

func Debug(args ...interface{}) { logArgs(logrus.DebugLevel, args) }
func Info(args ...interface{})  { logArgs(logrus.InfoLevel, args) }
func Warn(args ...interface{})  { logArgs(logrus.WarnLevel, args) }
func Error(args ...interface{}) { logArgs(logrus.ErrorLevel, args) }

// Fatal logs and exits nonzero. Reserved for startup failures.
func Fatal(args ...interface{}) {
	msg, fields := parseArgs(args)
	logger.WithFields(fields).Fatal(msg)
}

func logArgs(level logrus.Level, args []interface{}) {
	if !logger.IsLevelEnabled(level) {
		return
	}
	msg, fields := parseArgs(args)
	logger.WithFields(fields).Log(level, msg)
}

func parseArgs(args []interface{}) (string, logrus.Fields) {
	if len(args) > 0 {
		if _, ok := args[0].(context.Context); ok {
			args = args[1:]
		}
	}
	msg := ""
	if len(args) > 0 {
		msg = fmt.Sprint(args[0])
		args = args[1:]
	}
	fields := logrus.Fields{}
	for len(args) > 0 {
		if err, ok := args[0].(error); ok {
			fields["error"] = err
			args = args[1:]
			continue
		}
		if len(args) == 1 {
			fields["misc"] = args[0]
			break
		}
		fields[fmt.Sprint(args[0])] = args[1]
		args = args[2:]
	}
	return msg, fields
}
