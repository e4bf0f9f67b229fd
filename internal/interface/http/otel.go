package httpservice

import (
	"context"
	"runtime/metrics"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	metricExport "go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	traceExport "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

var runtimeGauges = map[string]string{
	"/sched/goroutines:goroutines": "crowdsaled_goroutines",
	"/gc/heap/live:bytes":          "crowdsaled_heap_live_bytes",
	"/memory/classes/total:bytes":  "crowdsaled_memory_total_bytes",
}

func initOtelSDK(ctx context.Context, otelCollectorUrl string) (func(context.Context) error, error) {
	otelCollectorUrl = strings.TrimSuffix(otelCollectorUrl, "/")
	endpoint := strings.TrimPrefix(otelCollectorUrl, "http://")

	traceExp, err := traceExport.New(
		ctx,
		traceExport.WithEndpoint(endpoint),
		traceExport.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("crowdsaled"),
	)
	tp := trace.NewTracerProvider(
		trace.WithBatcher(traceExp),
		trace.WithResource(res),
	)

	metricExp, err := metricExport.New(
		ctx,
		metricExport.WithEndpoint(endpoint),
		metricExport.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(
		metricExp,
		sdkmetric.WithInterval(5*time.Second),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	if err := registerRuntimeGauges(otel.Meter("crowdsaled.runtime")); err != nil {
		log.WithError(err).Warn("failed to register runtime metrics")
	}

	shutdown := func(ctx context.Context) error {
		err1 := tp.Shutdown(ctx)
		err2 := mp.Shutdown(ctx)
		if err1 != nil {
			return err1
		}
		return err2
	}

	log.Info("otel sdk initialized")

	return shutdown, nil
}

// registerRuntimeGauges publishes a few runtime/metrics samples as gauges,
// read at every collection.
func registerRuntimeGauges(m metric.Meter) error {
	gauges := make(map[string]metric.Int64ObservableGauge)
	observables := make([]metric.Observable, 0, len(runtimeGauges))
	samples := make([]metrics.Sample, 0, len(runtimeGauges))
	for name, metricName := range runtimeGauges {
		g, err := m.Int64ObservableGauge(
			metricName, metric.WithDescription("runtime metric for "+name),
		)
		if err != nil {
			return err
		}
		gauges[name] = g
		observables = append(observables, g)
		samples = append(samples, metrics.Sample{Name: name})
	}

	_, err := m.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		metrics.Read(samples)
		for _, sample := range samples {
			if sample.Value.Kind() != metrics.KindUint64 {
				continue
			}
			obs.ObserveInt64(gauges[sample.Name], int64(sample.Value.Uint64()))
		}
		return nil
	}, observables...)
	return err
}
