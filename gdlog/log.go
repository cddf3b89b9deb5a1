// Package gdlog provides the shared structured logger used across gasdb,
// plus field constructors for the identifiers gasdb logs over and over:
// collection names, blob IDs, and the master-index key.
package gdlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global logger instance used by every gasdb package.
var Logger *zap.Logger

func init() {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.CallerKey = "caller"
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	Logger, err = config.Build(zap.AddCallerSkip(1))
	if err != nil {
		Logger = zap.NewNop()
	}
}

// Debug logs a debug message.
func Debug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, fields...)
}

// Error logs an error message.
func Error(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
}

// Configure rebuilds the global logger for the given level and mode.
// level is one of debug, info, warn, error (case-insensitive); unknown
// values fall back to info rather than failing CLI startup over a typo'd
// flag.
func Configure(development bool, level string) error {
	var config zap.Config
	if development {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	Logger = built
	return nil
}

// Collection builds the zap field every log line about a specific
// collection carries, so call sites don't each pick their own key name.
func Collection(name string) zap.Field {
	return zap.String("collection", name)
}

// BlobID builds the zap field for an object-store blob reference.
func BlobID(id string) zap.Field {
	return zap.String("blobId", id)
}

// MasterIndexKey builds the zap field for the property-store key a
// MasterIndex is bound to.
func MasterIndexKey(key string) zap.Field {
	return zap.String("masterIndexKey", key)
}
