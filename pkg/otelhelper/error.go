package otelhelper

import (
	"errors"

	"github.com/dukex/flowforge/pkg/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorCategoryKey records which lifecycle error category a failed span belongs to.
const ErrorCategoryKey = "flowforge.error.category"

var categories = []struct {
	err  error
	name string
}{
	{models.ErrNotFound, "not_found"},
	{models.ErrForbidden, "forbidden"},
	{models.ErrValidation, "validation"},
	{models.ErrConflict, "conflict"},
}

// ErrorCategory names the domain category err wraps, or "internal" for infrastructure failures.
func ErrorCategory(err error) string {
	for _, c := range categories {
		if errors.Is(err, c.err) {
			return c.name
		}
	}

	return "internal"
}

// SetError marks span as failed. Expected domain failures (not found, conflicts, ...) keep the
// span status unset so they do not show up as server errors.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	category := ErrorCategory(err)

	span.RecordError(err)
	span.SetAttributes(attribute.String(ErrorCategoryKey, category))

	if category == "internal" {
		span.SetStatus(codes.Error, err.Error())
	}

	span.AddEvent("error_occurred", trace.WithAttributes(attrs...))
}
