package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the counters recorded by the services. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	clientsRegistered    metric.Int64Counter
	codesIssued          metric.Int64Counter
	authorizationsDenied metric.Int64Counter
	tokensIssued         metric.Int64Counter
	exchangeFailures     metric.Int64Counter
	guardRejections      metric.Int64Counter
	recordsPurged        metric.Int64Counter
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(MeterName)
	m := &Metrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.clientsRegistered, "mcpauth.clients.registered", "Clients created by dynamic registration", "{client}"},
		{&m.codesIssued, "mcpauth.codes.issued", "Authorization codes issued after consent", "{code}"},
		{&m.authorizationsDenied, "mcpauth.authorizations.denied", "Authorization requests denied at consent", "{request}"},
		{&m.tokensIssued, "mcpauth.tokens.issued", "Access tokens minted by code redemption", "{token}"},
		{&m.exchangeFailures, "mcpauth.token.exchange.failures", "Rejected token endpoint requests by error code", "{request}"},
		{&m.guardRejections, "mcpauth.guard.rejections", "Requests rejected by the bearer guard", "{request}"},
		{&m.recordsPurged, "mcpauth.housekeeping.purged", "Records removed by housekeeping", "{record}"},
	}

	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

func (m *Metrics) ClientRegistered(ctx context.Context) {
	if m == nil {
		return
	}
	m.clientsRegistered.Add(ctx, 1)
}

func (m *Metrics) CodeIssued(ctx context.Context, clientID string) {
	if m == nil {
		return
	}
	m.codesIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("client_id", clientID)))
}

func (m *Metrics) AuthorizationDenied(ctx context.Context, clientID string) {
	if m == nil {
		return
	}
	m.authorizationsDenied.Add(ctx, 1, metric.WithAttributes(attribute.String("client_id", clientID)))
}

func (m *Metrics) TokenIssued(ctx context.Context, clientID string) {
	if m == nil {
		return
	}
	m.tokensIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("client_id", clientID)))
}

// ExchangeFailed records a rejected redemption with its OAuth error code.
func (m *Metrics) ExchangeFailed(ctx context.Context, errorCode string) {
	if m == nil {
		return
	}
	m.exchangeFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("error", errorCode)))
}

// GuardRejected records a request turned away by the bearer guard.
func (m *Metrics) GuardRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.guardRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// Purged records n records of kind removed by housekeeping.
func (m *Metrics) Purged(ctx context.Context, kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsPurged.Add(ctx, n, metric.WithAttributes(attribute.String("kind", kind)))
}
