package otelhelper

import (
	"errors"

	"github.com/dukex/subflow/pkg/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks span as failed. A nil err is ignored.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(
		attrs...,
	))
}

// SetResult records the outcome of a coordinator call on span.
func SetResult(span trace.Span, result models.ExecutionResult) {
	span.SetAttributes(
		attribute.String(ResultStatusKey, string(result.Status)),
		attribute.String(SessionRefKey, result.SessionRef),
		attribute.String(JobRefKey, result.JobRef),
		attribute.Int64("subflow.elapsed_ms", result.ElapsedMs),
	)

	if !result.Success {
		SetError(span, errors.New(result.ErrorMessage))

		return
	}

	span.SetStatus(codes.Ok, "")
}
