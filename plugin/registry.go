package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/apothecary/cart"
	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/ledger"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onCartCreated        []OnCartCreated
	onLineItemSet        []OnLineItemSet
	onCartCheckedOut     []OnCartCheckedOut
	onCheckoutFailed     []OnCheckoutFailed
	onAdjustmentRecorded []OnAdjustmentRecorded
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call hook timeout. Non-positive values restore
// DefaultTimeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d <= 0 {
		d = DefaultTimeout
	}
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnCartCreated); ok {
		r.onCartCreated = append(r.onCartCreated, v)
	}
	if v, ok := p.(OnLineItemSet); ok {
		r.onLineItemSet = append(r.onLineItemSet, v)
	}
	if v, ok := p.(OnCartCheckedOut); ok {
		r.onCartCheckedOut = append(r.onCartCheckedOut, v)
	}
	if v, ok := p.(OnCheckoutFailed); ok {
		r.onCheckoutFailed = append(r.onCheckoutFailed, v)
	}
	if v, ok := p.(OnAdjustmentRecorded); ok {
		r.onAdjustmentRecorded = append(r.onAdjustmentRecorded, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	typ  reflect.Type
	name string
}{
	{reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit"},
	{reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown"},
	{reflect.TypeOf((*OnCartCreated)(nil)).Elem(), "OnCartCreated"},
	{reflect.TypeOf((*OnLineItemSet)(nil)).Elem(), "OnLineItemSet"},
	{reflect.TypeOf((*OnCartCheckedOut)(nil)).Elem(), "OnCartCheckedOut"},
	{reflect.TypeOf((*OnCheckoutFailed)(nil)).Elem(), "OnCheckoutFailed"},
	{reflect.TypeOf((*OnAdjustmentRecorded)(nil)).Elem(), "OnAdjustmentRecorded"},
}

func implementedInterfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit runs call for every hook in list, logging failures.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, list []T, call func(T) error) {
	for _, p := range list {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return call(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, shop interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	emit(ctx, r, "OnInit", plugins, func(p OnInit) error {
		return p.OnInit(ctx, shop)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	emit(ctx, r, "OnShutdown", plugins, func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitCartCreated emits a cart created event.
func (r *Registry) EmitCartCreated(ctx context.Context, c *cart.Cart) {
	r.mu.RLock()
	plugins := r.onCartCreated
	r.mu.RUnlock()

	emit(ctx, r, "OnCartCreated", plugins, func(p OnCartCreated) error {
		return p.OnCartCreated(ctx, c)
	})
}

// EmitLineItemSet emits a line item event.
func (r *Registry) EmitLineItemSet(ctx context.Context, cartID id.CartID, li cart.LineItem) {
	r.mu.RLock()
	plugins := r.onLineItemSet
	r.mu.RUnlock()

	emit(ctx, r, "OnLineItemSet", plugins, func(p OnLineItemSet) error {
		return p.OnLineItemSet(ctx, cartID, li)
	})
}

// EmitCartCheckedOut emits a checkout committed event.
func (r *Registry) EmitCartCheckedOut(ctx context.Context, receipt *ledger.Receipt, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onCartCheckedOut
	r.mu.RUnlock()

	emit(ctx, r, "OnCartCheckedOut", plugins, func(p OnCartCheckedOut) error {
		return p.OnCartCheckedOut(ctx, receipt, elapsed)
	})
}

// EmitCheckoutFailed emits a checkout rolled back event.
func (r *Registry) EmitCheckoutFailed(ctx context.Context, cartID id.CartID, cause error) {
	r.mu.RLock()
	plugins := r.onCheckoutFailed
	r.mu.RUnlock()

	emit(ctx, r, "OnCheckoutFailed", plugins, func(p OnCheckoutFailed) error {
		return p.OnCheckoutFailed(ctx, cartID, cause)
	})
}

// EmitAdjustmentRecorded emits an adjustment committed event.
func (r *Registry) EmitAdjustmentRecorded(ctx context.Context, adj ledger.Adjustment, res *ledger.AdjustmentResult) {
	r.mu.RLock()
	plugins := r.onAdjustmentRecorded
	r.mu.RUnlock()

	emit(ctx, r, "OnAdjustmentRecorded", plugins, func(p OnAdjustmentRecorded) error {
		return p.OnAdjustmentRecorded(ctx, adj, res)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block a request.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
