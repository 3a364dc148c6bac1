// Package observability provides a metrics extension for Apothecary that
// records shop event counts via a MetricFactory.
package observability

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/apothecary"
	"github.com/xraph/apothecary/cart"
	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/ledger"
	"github.com/xraph/apothecary/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnCartCreated        = (*MetricsExtension)(nil)
	_ plugin.OnLineItemSet        = (*MetricsExtension)(nil)
	_ plugin.OnCartCheckedOut     = (*MetricsExtension)(nil)
	_ plugin.OnCheckoutFailed     = (*MetricsExtension)(nil)
	_ plugin.OnAdjustmentRecorded = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records shop-wide event metrics.
// Register it as an Apothecary plugin to track sales automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Cart metrics
	CartCreated     Counter
	LineItemSet     Counter
	LineItemRemoved Counter

	// Checkout metrics
	CheckoutCompleted Counter
	CheckoutRejected  Counter
	CheckoutFailed    Counter
	PotionsSold       Counter
	GoldReceived      Counter
	CheckoutSize      Histogram
	CheckoutLatency   Histogram

	// Ledger metrics
	AdjustmentRecorded Counter
	AdjustmentGold     Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		CartCreated:     factory.Counter("apothecary.cart.created"),
		LineItemSet:     factory.Counter("apothecary.cart.line_item.set"),
		LineItemRemoved: factory.Counter("apothecary.cart.line_item.removed"),

		CheckoutCompleted: factory.Counter("apothecary.checkout.completed"),
		CheckoutRejected:  factory.Counter("apothecary.checkout.rejected"),
		CheckoutFailed:    factory.Counter("apothecary.checkout.failed"),
		PotionsSold:       factory.Counter("apothecary.checkout.potions"),
		GoldReceived:      factory.Counter("apothecary.checkout.gold"),
		CheckoutSize:      factory.Histogram("apothecary.checkout.size"),
		CheckoutLatency:   factory.Histogram("apothecary.checkout.latency_ms"),

		AdjustmentRecorded: factory.Counter("apothecary.adjustment.recorded"),
		AdjustmentGold:     factory.Histogram("apothecary.adjustment.gold"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Cart hooks
// ──────────────────────────────────────────────────

// OnCartCreated implements plugin.OnCartCreated.
func (m *MetricsExtension) OnCartCreated(_ context.Context, _ *cart.Cart) error {
	m.CartCreated.Inc()
	return nil
}

// OnLineItemSet implements plugin.OnLineItemSet.
func (m *MetricsExtension) OnLineItemSet(_ context.Context, _ id.CartID, li cart.LineItem) error {
	if li.Quantity == 0 {
		m.LineItemRemoved.Inc()
		return nil
	}
	m.LineItemSet.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Checkout hooks
// ──────────────────────────────────────────────────

// OnCartCheckedOut implements plugin.OnCartCheckedOut.
func (m *MetricsExtension) OnCartCheckedOut(_ context.Context, r *ledger.Receipt, elapsed time.Duration) error {
	m.CheckoutCompleted.Inc()
	m.PotionsSold.Add(float64(r.TotalPotionsBought))
	m.GoldReceived.Add(float64(r.TotalGoldPaid))
	m.CheckoutSize.Observe(float64(r.TotalPotionsBought))
	m.CheckoutLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnCheckoutFailed implements plugin.OnCheckoutFailed. Storage failures
// count as failed; every other kind is a rejected request.
func (m *MetricsExtension) OnCheckoutFailed(_ context.Context, _ id.CartID, err error) error {
	if errors.Is(err, apothecary.ErrStorageFailure) {
		m.CheckoutFailed.Inc()
		return nil
	}
	m.CheckoutRejected.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnAdjustmentRecorded implements plugin.OnAdjustmentRecorded.
func (m *MetricsExtension) OnAdjustmentRecorded(_ context.Context, adj ledger.Adjustment, _ *ledger.AdjustmentResult) error {
	m.AdjustmentRecorded.Inc()
	m.AdjustmentGold.Observe(float64(adj.Gold))
	return nil
}
