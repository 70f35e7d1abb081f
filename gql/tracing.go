package gql

import (
	"context"

	"github.com/ichaly/fluentgql/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/ichaly/fluentgql/gql"

// 使用全局 TracerProvider，测试中可替换
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentation).Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// step 输出查询链每一步的调试日志
func step(name string, d *descriptor) {
	log.Debug().Str("step", name).Str("type", d.typeName).Msg("resolve")
}
