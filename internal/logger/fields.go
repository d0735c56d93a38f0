package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// ServiceName is attached to every entry produced by New.
	ServiceName = "scholarship-finder"

	FieldService   = "service"
	FieldComponent = "component"
	FieldProvider  = "ai_provider"
	FieldModel     = "ai_model"
)

// StringField is a string-valued structured field. Blank keys or values are skipped.
type StringField struct {
	Key   string
	Value string
}

func (f StringField) zap() (zap.Field, bool) {
	key := strings.TrimSpace(f.Key)
	value := strings.TrimSpace(f.Value)
	if key == "" || value == "" {
		return zap.Skip(), false
	}
	return zap.String(key, value), true
}

// AIFields describes the generation backend behind a component.
func AIFields(provider, model string) []StringField {
	return []StringField{
		{Key: FieldProvider, Value: provider},
		{Key: FieldModel, Value: model},
	}
}

// WithComponent names the pipeline stage (matcher, leads, notify, http) on the
// logger and attaches extra fields. A nil logger becomes a no-op logger.
func WithComponent(logger *zap.Logger, component string, extra ...StringField) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	all := append([]StringField{{Key: FieldComponent, Value: component}}, extra...)
	fields := make([]zap.Field, 0, len(all))
	for _, f := range all {
		if field, ok := f.zap(); ok {
			fields = append(fields, field)
		}
	}

	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
