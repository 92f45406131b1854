package monitoring

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/samvit-hq/guardrail/internal/config"
	"github.com/samvit-hq/guardrail/pkg/constants"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

type zapLogger struct {
	*zap.Logger
}

// NewZapLogger builds the production logger.Logger on top of zap. Fields are
// sanitized before encoding and every line carries the trace and request IDs
// found in the context.
func NewZapLogger(cfg *config.LogConfig) (logger.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	outputPath := cfg.OutputPath
	if outputPath == "" {
		outputPath = "stdout"
	}
	sink, _, err := zap.Open(outputPath)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, sink, level)

	return &zapLogger{zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)}, nil
}

func (l *zapLogger) Debug(ctx context.Context, msg string, fields ...logger.Field) {
	l.Logger.Debug(msg, l.convertFields(ctx, fields)...)
}

func (l *zapLogger) Info(ctx context.Context, msg string, fields ...logger.Field) {
	l.Logger.Info(msg, l.convertFields(ctx, fields)...)
}

func (l *zapLogger) Warn(ctx context.Context, msg string, fields ...logger.Field) {
	l.Logger.Warn(msg, l.convertFields(ctx, fields)...)
}

func (l *zapLogger) Error(ctx context.Context, msg string, err error, fields ...logger.Field) {
	zapFields := l.convertFields(ctx, fields)
	if err != nil {
		zapFields = append(zapFields, zap.Error(err))
	}
	l.Logger.Error(msg, zapFields...)
}

func (l *zapLogger) Fatal(ctx context.Context, msg string, err error, fields ...logger.Field) {
	zapFields := l.convertFields(ctx, fields)
	if err != nil {
		zapFields = append(zapFields, zap.Error(err))
	}
	l.Logger.Fatal(msg, zapFields...)
}

func (l *zapLogger) WithFields(fields ...logger.Field) logger.Logger {
	return &zapLogger{l.Logger.With(convertPlain(fields)...)}
}

func (l *zapLogger) WithComponent(component string) logger.Logger {
	return &zapLogger{l.Logger.With(zap.String("component", component))}
}

// convertFields renders Fields as zap fields, masking sensitive values and
// attaching correlation IDs from the context.
func (l *zapLogger) convertFields(ctx context.Context, fields []logger.Field) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields)+3)

	if ctx != nil {
		if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
			zapFields = append(zapFields,
				zap.String("trace_id", span.SpanContext().TraceID().String()),
				zap.String("span_id", span.SpanContext().SpanID().String()),
			)
		}
		if requestID, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok && requestID != "" {
			zapFields = append(zapFields, zap.String("request_id", requestID))
		}
	}

	return append(zapFields, convertPlain(fields)...)
}

func convertPlain(fields []logger.Field) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		zapFields = append(zapFields, zap.Any(f.Key, logger.Sanitize(f.Key, f.Value)))
	}
	return zapFields
}
