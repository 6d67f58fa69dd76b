package goathena

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

type contextKey string

// QueryIDKey is the context key of a query execution id. Values stored
// under this key are attached to log entries emitted with WithContext.
const QueryIDKey contextKey = "LOG_QUERY_ID"

// WorkGroupKey is the context key of a workgroup name.
const WorkGroupKey contextKey = "LOG_WORK_GROUP"

// Logger is the goathena logger interface which abstracts away the
// underlying logging mechanism.
type Logger interface {
	logrus.Ext1FieldLogger
	SetLogLevel(level string) error
	GetLogLevel() string
	WithContext(ctx context.Context) *logrus.Entry
	SetOutput(output io.Writer)
}

var logger = CreateDefaultLogger()

type defaultLogger struct {
	inner *logrus.Logger
}

// CreateDefaultLogger returns a new Logger instance with default config.
// It does not modify the package-level logger.
func CreateDefaultLogger() Logger {
	rl := logrus.New()
	rl.SetLevel(logrus.WarnLevel)
	return &defaultLogger{inner: rl}
}

// SetLogger replaces the package-level logger.
func SetLogger(l Logger) {
	logger = l
}

// GetLogger returns the package-level logger.
func GetLogger() Logger {
	return logger
}

func (l *defaultLogger) SetLogLevel(level string) error {
	actual, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.inner.SetLevel(actual)
	return nil
}

func (l *defaultLogger) GetLogLevel() string {
	return l.inner.GetLevel().String()
}

// WithContext copies the known context keys into log fields so that a
// query id recorded on the context shows up on every entry.
func (l *defaultLogger) WithContext(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{}
	for _, key := range []contextKey{QueryIDKey, WorkGroupKey} {
		if v := ctx.Value(key); v != nil {
			fields[string(key)] = v
		}
	}
	return l.inner.WithFields(fields)
}

func (l *defaultLogger) SetOutput(output io.Writer) {
	l.inner.SetOutput(output)
}

func (l *defaultLogger) WithField(key string, value interface{}) *logrus.Entry {
	return l.inner.WithField(key, value)
}

func (l *defaultLogger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.inner.WithFields(fields)
}

func (l *defaultLogger) WithError(err error) *logrus.Entry {
	return l.inner.WithError(err)
}

func (l *defaultLogger) Tracef(format string, args ...interface{}) {
	l.inner.Tracef(format, args...)
}

func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	l.inner.Debugf(format, args...)
}

func (l *defaultLogger) Infof(format string, args ...interface{}) {
	l.inner.Infof(format, args...)
}

func (l *defaultLogger) Printf(format string, args ...interface{}) {
	l.inner.Printf(format, args...)
}

func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	l.inner.Warnf(format, args...)
}

func (l *defaultLogger) Warningf(format string, args ...interface{}) {
	l.inner.Warningf(format, args...)
}

func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	l.inner.Errorf(format, args...)
}

func (l *defaultLogger) Fatalf(format string, args ...interface{}) {
	l.inner.Fatalf(format, args...)
}

func (l *defaultLogger) Panicf(format string, args ...interface{}) {
	l.inner.Panicf(format, args...)
}

func (l *defaultLogger) Trace(args ...interface{}) { l.inner.Trace(args...) }

func (l *defaultLogger) Debug(args ...interface{}) { l.inner.Debug(args...) }

func (l *defaultLogger) Info(args ...interface{}) { l.inner.Info(args...) }

func (l *defaultLogger) Print(args ...interface{}) { l.inner.Print(args...) }

func (l *defaultLogger) Warn(args ...interface{}) { l.inner.Warn(args...) }

func (l *defaultLogger) Warning(args ...interface{}) { l.inner.Warning(args...) }

func (l *defaultLogger) Error(args ...interface{}) { l.inner.Error(args...) }

func (l *defaultLogger) Fatal(args ...interface{}) { l.inner.Fatal(args...) }

func (l *defaultLogger) Panic(args ...interface{}) { l.inner.Panic(args...) }

func (l *defaultLogger) Traceln(args ...interface{}) { l.inner.Traceln(args...) }

func (l *defaultLogger) Debugln(args ...interface{}) { l.inner.Debugln(args...) }

func (l *defaultLogger) Infoln(args ...interface{}) { l.inner.Infoln(args...) }

func (l *defaultLogger) Println(args ...interface{}) { l.inner.Println(args...) }

func (l *defaultLogger) Warnln(args ...interface{}) { l.inner.Warnln(args...) }

func (l *defaultLogger) Warningln(args ...interface{}) { l.inner.Warningln(args...) }

func (l *defaultLogger) Errorln(args ...interface{}) { l.inner.Errorln(args...) }

func (l *defaultLogger) Fatalln(args ...interface{}) { l.inner.Fatalln(args...) }

func (l *defaultLogger) Panicln(args ...interface{}) { l.inner.Panicln(args...) }
