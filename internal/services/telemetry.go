package services

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/storefront/api/internal/services"

func defaultTracer(tracer trace.Tracer) trace.Tracer {
	if tracer != nil {
		return tracer
	}
	return otel.Tracer(instrumentationName)
}

func defaultMeter(meter metric.Meter) metric.Meter {
	if meter != nil {
		return meter
	}
	return otel.Meter(instrumentationName)
}

type orderMetrics struct {
	created     metric.Int64Counter
	rejected    metric.Int64Counter
	transitions metric.Int64Counter
	conflicts   metric.Int64Counter
	revenue     metric.Int64Counter
}

func newOrderMetrics(meter metric.Meter) (orderMetrics, error) {
	var (
		m   orderMetrics
		err error
	)
	if m.created, err = meter.Int64Counter("orders.created", metric.WithDescription("Orders persisted")); err != nil {
		return m, err
	}
	if m.rejected, err = meter.Int64Counter("orders.rejected", metric.WithDescription("Checkout attempts rejected, by reason")); err != nil {
		return m, err
	}
	if m.transitions, err = meter.Int64Counter("orders.transitions", metric.WithDescription("Applied lifecycle transitions")); err != nil {
		return m, err
	}
	if m.conflicts, err = meter.Int64Counter("orders.version_conflicts", metric.WithDescription("Conditional order writes that lost a race")); err != nil {
		return m, err
	}
	if m.revenue, err = meter.Int64Counter("orders.gross_amount", metric.WithDescription("Order totals at creation"), metric.WithUnit("{cent}")); err != nil {
		return m, err
	}
	return m, nil
}

type inventoryMetrics struct {
	reserved metric.Int64Counter
	released metric.Int64Counter
	failures metric.Int64Counter
}

func newInventoryMetrics(meter metric.Meter) (inventoryMetrics, error) {
	var (
		m   inventoryMetrics
		err error
	)
	if m.reserved, err = meter.Int64Counter("inventory.units_reserved"); err != nil {
		return m, err
	}
	if m.released, err = meter.Int64Counter("inventory.units_released"); err != nil {
		return m, err
	}
	if m.failures, err = meter.Int64Counter("inventory.reserve_failures"); err != nil {
		return m, err
	}
	return m, nil
}
