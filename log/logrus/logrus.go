// Package logrus adapts a *logrus.Entry to oncecache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/oncecache"
)

type LogrusLogger struct{ E *logrus.Entry }

var _ oncecache.Logger = LogrusLogger{}

// New tags every line with component=oncecache.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "oncecache")}
}

func (l LogrusLogger) Debug(msg string, f oncecache.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f oncecache.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f oncecache.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f oncecache.Fields) { l.with(f).Error(msg) }

func (l LogrusLogger) with(f oncecache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	return l.E.WithFields(logrus.Fields(f))
}
