// Package logger builds the process-wide logrus logger and its gin and GORM bridges.
package logger

import (
	"context"
	"errors"
	"time"

	"fad-monitoring-backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// New creates a logrus logger. Release mode defaults to JSON output.
func New(cfg config.LogConfig, production bool) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	format := cfg.Format
	if format == "" && production {
		format = "json"
	}
	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return log
}

// GinMiddleware logs one structured line per request
func GinMiddleware(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"status":   c.Writer.Status(),
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"ip":       c.ClientIP(),
			"duration": time.Since(start).String(),
		}
		if userID, ok := c.Get("userID"); ok {
			fields["user_id"] = userID
		}
		entry := log.WithFields(fields)

		switch status := c.Writer.Status(); {
		case len(c.Errors) > 0:
			entry.WithError(c.Errors.Last()).Error("request failed")
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// gormLogger adapts logrus to the gorm logger interface
type gormLogger struct {
	log           logrus.FieldLogger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger returns a GORM logger writing through logrus
func NewGormLogger(log logrus.FieldLogger, production bool) gormlogger.Interface {
	level := gormlogger.Warn
	if production {
		level = gormlogger.Error
	}
	return &gormLogger{log: log.WithField("component", "gorm"), level: level, slowThreshold: 200 * time.Millisecond}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Infof(msg, args...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Warnf(msg, args...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Errorf(msg, args...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.WithFields(logrus.Fields{"elapsed": elapsed.String(), "rows": rows, "sql": sql}).WithError(err).Error("query failed")
	case elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.WithFields(logrus.Fields{"elapsed": elapsed.String(), "rows": rows, "sql": sql}).Warn("slow query")
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.WithFields(logrus.Fields{"elapsed": elapsed.String(), "rows": rows, "sql": sql}).Debug("query")
	}
}
