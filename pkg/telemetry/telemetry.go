// Package telemetry wires OpenTelemetry metrics for the authorization server
// and exposes them in the Prometheus text format.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MeterName scopes every instrument created by this module.
const MeterName = "github.com/aussiebroadwan/mcpauth"

// Config controls the exporter.
type Config struct {
	Enabled               bool
	IncludeRuntimeMetrics bool
}

// Provider owns the meter provider and the /metrics handler.
type Provider struct {
	meterProvider metric.MeterProvider
	handler       http.Handler
	shutdown      func(context.Context) error
}

// New builds a Prometheus backed provider, or a no-op one when disabled.
func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{
			meterProvider: noop.NewMeterProvider(),
			shutdown:      func(context.Context) error { return nil },
		}, nil
	}

	reg := prometheus.NewRegistry()
	if cfg.IncludeRuntimeMetrics {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return &Provider{
		meterProvider: mp,
		handler:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		shutdown:      mp.Shutdown,
	}, nil
}

// MeterProvider returns the provider instruments should be created from.
func (p *Provider) MeterProvider() metric.MeterProvider { return p.meterProvider }

// Handler serves the Prometheus exposition. It is nil when metrics are
// disabled.
func (p *Provider) Handler() http.Handler { return p.handler }

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error { return p.shutdown(ctx) }
