package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ServiceMetrics holds the domain-level instruments: generation volume,
// token spend, quota denials, and webhook traffic.
type ServiceMetrics struct {
	generationTotal   metric.Int64Counter
	generationTokens  metric.Int64Counter
	quotaDeniedTotal  metric.Int64Counter
	webhookEventTotal metric.Int64Counter
}

// NewServiceMetrics registers the service instruments on a meter
func NewServiceMetrics(meter metric.Meter) (*ServiceMetrics, error) {
	sm := &ServiceMetrics{}
	var err error

	sm.generationTotal, err = meter.Int64Counter(
		"threatalytics_generation_total",
		metric.WithDescription("Total number of completed generations"),
		metric.WithUnit("{generations}"),
	)
	if err != nil {
		return nil, err
	}

	sm.generationTokens, err = meter.Int64Counter(
		"threatalytics_generation_tokens_total",
		metric.WithDescription("Total tokens consumed by generations"),
		metric.WithUnit("{tokens}"),
	)
	if err != nil {
		return nil, err
	}

	sm.quotaDeniedTotal, err = meter.Int64Counter(
		"threatalytics_quota_denied_total",
		metric.WithDescription("Requests rejected because the monthly quota was exhausted"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, err
	}

	sm.webhookEventTotal, err = meter.Int64Counter(
		"threatalytics_webhook_events_total",
		metric.WithDescription("Billing webhook events received, by type and outcome"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// RecordGeneration counts one completed generation and its token spend
func (sm *ServiceMetrics) RecordGeneration(ctx context.Context, capability, model string, promptTokens, completionTokens int) {
	attrs := metric.WithAttributes(
		attribute.String("capability", capability),
		attribute.String("model", model),
	)
	sm.generationTotal.Add(ctx, 1, attrs)
	sm.generationTokens.Add(ctx, int64(promptTokens+completionTokens), attrs)
}

// RecordQuotaDenied counts a quota rejection
func (sm *ServiceMetrics) RecordQuotaDenied(ctx context.Context, planID string) {
	sm.quotaDeniedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("plan", planID),
	))
}

// RecordWebhookEvent counts one processed webhook event
func (sm *ServiceMetrics) RecordWebhookEvent(ctx context.Context, eventType, outcome string) {
	sm.webhookEventTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("outcome", outcome),
	))
}
