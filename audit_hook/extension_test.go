package audithook_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/xraph/apothecary"
	audithook "github.com/xraph/apothecary/audit_hook"
	"github.com/xraph/apothecary/item"
	"github.com/xraph/apothecary/ledger"
	"github.com/xraph/apothecary/store/memory"
	"github.com/xraph/apothecary/types"
)

type captured struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (c *captured) Record(_ context.Context, e *audithook.AuditEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *captured) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Action)
	}
	return out
}

func runShop(t *testing.T, ext *audithook.Extension) {
	t.Helper()
	ctx := context.Background()
	shop := apothecary.New(memory.New(),
		apothecary.WithClock(types.FixedClock(types.Sunday)),
		apothecary.WithPlugin(ext),
	)
	if err := shop.UpsertItem(ctx, &item.Item{
		SKU:        "TEAL",
		PotionType: item.PotionType{0, 50, 50, 0},
		PriceByDay: map[types.DayOfWeek]types.Gold{types.Sunday: 10},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := shop.Adjust(ctx, ledger.Adjustment{Description: "restock", Items: map[string]int64{"TEAL": 1}}); err != nil {
		t.Fatal(err)
	}
	c, _ := shop.CreateCart(ctx, "Bob")
	_ = shop.SetLineItem(ctx, c.ID, "TEAL", 2)
	_, _ = shop.Checkout(ctx, c.ID, "gold")
	_ = shop.SetLineItem(ctx, c.ID, "TEAL", 0)
	_ = shop.SetLineItem(ctx, c.ID, "TEAL", 1)
	if _, err := shop.Checkout(ctx, c.ID, "gold"); err != nil {
		t.Fatal(err)
	}
}

func TestExtensionRecordsShopEvents(t *testing.T) {
	rec := &captured{}
	runShop(t, audithook.New(rec))

	want := []string{
		audithook.ActionAdjustmentRecorded,
		audithook.ActionCartCreated,
		audithook.ActionLineItemSet,
		audithook.ActionCheckoutFailed,
		audithook.ActionLineItemRemoved,
		audithook.ActionLineItemSet,
		audithook.ActionCheckoutCompleted,
	}
	got := rec.actions()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("actions = %v, want %v", got, want)
	}

	failed := rec.events[3]
	if failed.Outcome != audithook.OutcomeFailure || failed.Severity != audithook.SeverityWarning {
		t.Errorf("failed event: %+v", failed)
	}
	if failed.Metadata["kind"] != string(apothecary.KindInsufficientStock) || failed.Reason == "" {
		t.Errorf("failed metadata: %+v", failed.Metadata)
	}

	done := rec.events[6]
	if done.Metadata["gold"] != int64(10) || done.Metadata["potions"] != int64(1) {
		t.Errorf("checkout metadata: %+v", done.Metadata)
	}
}

func TestEnabledAndDisabledActions(t *testing.T) {
	tests := []struct {
		name string
		opt  audithook.Option
		want int
	}{
		{"enabled only", audithook.WithEnabledActions(audithook.ActionCheckoutCompleted), 1},
		{"disabled", audithook.WithDisabledActions(audithook.ActionLineItemSet, audithook.ActionLineItemRemoved), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &captured{}
			runShop(t, audithook.New(rec, tt.opt))
			if got := len(rec.actions()); got != tt.want {
				t.Errorf("recorded %d events (%v), want %d", got, rec.actions(), tt.want)
			}
		})
	}
}

func TestRecorderErrorsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	failing := audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	})
	runShop(t, audithook.New(failing, audithook.WithLogger(logger)))

	if !strings.Contains(buf.String(), "backend down") {
		t.Errorf("log output missing recorder error: %s", buf.String())
	}
}

func TestLogRecorder(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rec := audithook.LogRecorder(logger)

	err := rec.Record(context.Background(), &audithook.AuditEvent{
		Action:   audithook.ActionCheckoutFailed,
		Severity: audithook.SeverityError,
		Outcome:  audithook.OutcomeFailure,
		Metadata: map[string]any{"kind": "storage_failure"},
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"level=ERROR", "action=checkout.failed", "kind=storage_failure"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
