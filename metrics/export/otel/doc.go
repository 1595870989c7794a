// Package otel provides OpenTelemetry metric exporter bindings for goIAM
// counters and the token-latency histogram.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter family
// (goiam.login, goiam.code, goiam.user.change and so on) with an attribute
// naming the member, and exports the token latency histogram as a
// "<name>.bucket" gauge keyed by "le" plus a "<name>.count" gauge. A single
// callback reads [goIAM.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
