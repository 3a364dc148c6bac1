// Package audithook bridges Apothecary shop events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any audit store. Callers inject a Recorder at wiring time; LogRecorder
// writes events to a slog.Logger.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xraph/apothecary"
	"github.com/xraph/apothecary/cart"
	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/ledger"
	"github.com/xraph/apothecary/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnCartCreated        = (*Extension)(nil)
	_ plugin.OnLineItemSet        = (*Extension)(nil)
	_ plugin.OnCartCheckedOut     = (*Extension)(nil)
	_ plugin.OnCheckoutFailed     = (*Extension)(nil)
	_ plugin.OnAdjustmentRecorded = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single audited shop event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges shop events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// LogRecorder returns a Recorder that writes each event to logger at a
// level derived from its severity.
func LogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, event *AuditEvent) error {
		level := slog.LevelInfo
		switch event.Severity {
		case SeverityWarning:
			level = slog.LevelWarn
		case SeverityError, SeverityCritical:
			level = slog.LevelError
		}

		keys := make([]string, 0, len(event.Metadata))
		for k := range event.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		attrs := []any{
			"action", event.Action,
			"resource", event.Resource,
			"resource_id", event.ResourceID,
			"outcome", event.Outcome,
		}
		for _, k := range keys {
			attrs = append(attrs, k, event.Metadata[k])
		}
		logger.Log(ctx, level, "audit", attrs...)
		return nil
	})
}

// ──────────────────────────────────────────────────
// Cart hooks
// ──────────────────────────────────────────────────

// OnCartCreated implements plugin.OnCartCreated.
func (e *Extension) OnCartCreated(ctx context.Context, c *cart.Cart) error {
	return e.record(ctx, ActionCartCreated, SeverityInfo, OutcomeSuccess,
		ResourceCart, c.ID.String(), CategoryCart, nil,
		"customer", c.Customer,
	)
}

// OnLineItemSet implements plugin.OnLineItemSet.
func (e *Extension) OnLineItemSet(ctx context.Context, cartID id.CartID, li cart.LineItem) error {
	action := ActionLineItemSet
	if li.Quantity == 0 {
		action = ActionLineItemRemoved
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceCart, cartID.String(), CategoryCart, nil,
		"sku", li.SKU,
		"quantity", li.Quantity,
	)
}

// ──────────────────────────────────────────────────
// Checkout hooks
// ──────────────────────────────────────────────────

// OnCartCheckedOut implements plugin.OnCartCheckedOut.
func (e *Extension) OnCartCheckedOut(ctx context.Context, r *ledger.Receipt, elapsed time.Duration) error {
	return e.record(ctx, ActionCheckoutCompleted, SeverityInfo, OutcomeSuccess,
		ResourceCart, r.CartID.String(), CategorySales, nil,
		"transaction_id", r.TransactionID.String(),
		"potions", r.TotalPotionsBought,
		"gold", int64(r.TotalGoldPaid),
		"day", string(r.Day),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnCheckoutFailed implements plugin.OnCheckoutFailed. Storage failures
// are errors; rejected requests are warnings.
func (e *Extension) OnCheckoutFailed(ctx context.Context, cartID id.CartID, err error) error {
	severity := SeverityWarning
	if errors.Is(err, apothecary.ErrStorageFailure) {
		severity = SeverityError
	}
	return e.record(ctx, ActionCheckoutFailed, severity, OutcomeFailure,
		ResourceCart, cartID.String(), CategorySales, err,
		"kind", string(apothecary.KindOf(err)),
	)
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnAdjustmentRecorded implements plugin.OnAdjustmentRecorded.
func (e *Extension) OnAdjustmentRecorded(ctx context.Context, adj ledger.Adjustment, res *ledger.AdjustmentResult) error {
	return e.record(ctx, ActionAdjustmentRecorded, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, res.GlobalTransactionID.String(), CategoryInventory, nil,
		"description", adj.Description,
		"gold", int64(adj.Gold),
		"items", len(adj.Items),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
