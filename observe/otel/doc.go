// Package otel provides an OpenTelemetry observer plugin for the scope library.
// It records span events (created, cancelled, joined, task started/finished)
// on the span carried by the scope's context, and records task errors and
// panics on that span.
package otel
