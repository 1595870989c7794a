// Package prometheus provides a Prometheus collector for goIAM engine metrics.
//
// [NewCollector] accepts a [goIAM.Engine] and reads its snapshot on every
// scrape. Counter names are prefixed goiam_*_total; the single histogram is
// goiam_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers choose the registry.
//   - Mutate engine state.
package prometheus
