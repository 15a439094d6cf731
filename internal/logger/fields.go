package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldResumeID = "resume_id"
	FieldJobID    = "job_id"
	FieldStatus   = "status"
	FieldSeq      = "seq"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to logger, falling back to a no-op logger when
// logger is nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// ResumeFields describes a document record; empty values are left out.
func ResumeFields(id, status string) []zap.Field {
	return StringFields(
		StringField{Key: FieldResumeID, Value: id},
		StringField{Key: FieldStatus, Value: status},
	)
}
