package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	goIAM "github.com/MrEthical07/goIAM"
	"github.com/MrEthical07/goIAM/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goIAM.MetricsSnapshot
}

// Option customizes an exporter.
type Option func(*options)

type options struct {
	attrs []attribute.KeyValue
}

// WithAttributes adds attrs to every observation, e.g. the deployment
// environment or instance name.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(o *options) { o.attrs = append(o.attrs, attrs...) }
}

// member is one engine counter observed under a family instrument.
type member struct {
	id   goIAM.MetricID
	opts metric.ObserveOption
}

type family struct {
	instrument metric.Int64ObservableCounter
	members    []member
}

type latency struct {
	id      goIAM.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	le      [8]metric.ObserveOption
	base    metric.ObserveOption
}

// OTelExporter publishes engine metrics as observable instruments. Related
// counters share one instrument told apart by an attribute (login outcome,
// code event, user operation); the token latency histogram becomes a
// cumulative bucket gauge keyed by "le".
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	families     []*family
	latencies    []latency
}

func NewOTelExporter(meter metric.Meter, engine *goIAM.Engine, opts ...Option) (*OTelExporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, engine, opts...)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource, opts ...Option) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	exporter := &OTelExporter{source: source}
	var observables []metric.Observable

	byName := map[string]*family{}
	for _, def := range internaldefs.CounterDefs {
		f, ok := byName[def.Family]
		if !ok {
			help := def.FamilyHelp
			if help == "" {
				help = def.Help
			}
			ins, err := meter.Int64ObservableCounter(def.Family,
				metric.WithDescription(help),
				metric.WithUnit("{event}"),
			)
			if err != nil {
				return nil, fmt.Errorf("create observable counter %s: %w", def.Family, err)
			}
			f = &family{instrument: ins}
			byName[def.Family] = f
			exporter.families = append(exporter.families, f)
			observables = append(observables, ins)
		}
		attrs := append([]attribute.KeyValue(nil), o.attrs...)
		if def.Attr != "" {
			attrs = append(attrs, attribute.String(def.Attr, def.Value))
		}
		f.members = append(f.members, member{
			id:   def.ID,
			opts: metric.WithAttributeSet(attribute.NewSet(attrs...)),
		})
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.OTelName+".bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound in seconds."))
		if err != nil {
			return nil, fmt.Errorf("create bucket gauge %s: %w", def.OTelName, err)
		}
		count, err := meter.Int64ObservableGauge(def.OTelName+".count",
			metric.WithDescription(def.Help+" Total samples."))
		if err != nil {
			return nil, fmt.Errorf("create count gauge %s: %w", def.OTelName, err)
		}

		l := latency{
			id:      def.ID,
			buckets: buckets,
			count:   count,
			base:    metric.WithAttributeSet(attribute.NewSet(o.attrs...)),
		}
		for i := range l.le {
			bound := "+Inf"
			if i < len(internaldefs.HistogramUpperBounds) {
				bound = strconv.FormatFloat(internaldefs.HistogramUpperBounds[i], 'f', -1, 64)
			}
			attrs := append(append([]attribute.KeyValue(nil), o.attrs...), attribute.String("le", bound))
			l.le[i] = metric.WithAttributeSet(attribute.NewSet(attrs...))
		}
		exporter.latencies = append(exporter.latencies, l)
		observables = append(observables, buckets, count)
	}

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	exporter.registration = registration
	return exporter, nil
}

// observe reads one snapshot per collection cycle.
func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, f := range e.families {
		for _, m := range f.members {
			observer.ObserveInt64(f.instrument, int64(snapshot.Counters[m.id]), m.opts)
		}
	}
	for _, l := range e.latencies {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[l.id]))
		for i := range cumulative {
			observer.ObserveInt64(l.buckets, int64(cumulative[i]), l.le[i])
		}
		observer.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]), l.base)
	}
	return nil
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
