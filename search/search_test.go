package search_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/xraph/apothecary/search"
)

func TestParseCursor(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"10", 10, false},
		{"-5", 0, true},
		{"abc", 0, true},
		{"5.5", 0, true},
	}

	for _, tt := range tests {
		got, err := search.ParseCursor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCursor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCursor(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	q := search.Query{}
	offset, err := q.Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if offset != 0 || q.Sort != search.SortTimestamp || q.Order != search.OrderDesc {
		t.Errorf("defaults: offset %d, %+v", offset, q)
	}

	for _, bad := range []search.Query{
		{Sort: "price"},
		{Order: "sideways"},
		{Cursor: "x"},
	} {
		if _, err := bad.Normalize(); err == nil {
			t.Errorf("expected error for %+v", bad)
		}
	}

	q = search.Query{Sort: "ITEM_SKU", Order: "ASC", Cursor: "5"}
	offset, err = q.Normalize()
	if err != nil || offset != 5 || q.Sort != search.SortItemSKU || q.Order != search.OrderAsc {
		t.Errorf("case-insensitive parse failed: %d %+v %v", offset, q, err)
	}
}

func rows(n int) []search.LineItem {
	out := make([]search.LineItem, n)
	for i := range out {
		out[i] = search.LineItem{SKU: fmt.Sprintf("SKU_%d", i)}
	}
	return out
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		name     string
		offset   int
		fetched  int
		wantLen  int
		wantPrev string
		wantNext string
	}{
		{"first of many", 0, 6, 5, "", "5"},
		{"middle", 5, 6, 5, "0", "10"},
		{"last", 10, 2, 2, "5", ""},
		{"exactly full", 0, 5, 5, "", ""},
		{"empty", 0, 0, 0, "", ""},
		{"offset below page", 3, 1, 1, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := search.NewPage(tt.offset, rows(tt.fetched))
			if len(p.Results) != tt.wantLen {
				t.Errorf("results: got %d, want %d", len(p.Results), tt.wantLen)
			}
			if p.Previous != tt.wantPrev || p.Next != tt.wantNext {
				t.Errorf("cursors: got (%q, %q), want (%q, %q)", p.Previous, p.Next, tt.wantPrev, tt.wantNext)
			}
			if p.Results == nil {
				t.Error("results should never be nil")
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	if got := search.EscapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("got %q", got)
	}
}

func TestMatches(t *testing.T) {
	row := search.LineItem{Customer: "Alice Smith", SKU: "RED_POTION"}
	tests := []struct {
		q    search.Query
		want bool
	}{
		{search.Query{}, true},
		{search.Query{Customer: "alice"}, true},
		{search.Query{Customer: "ALICE", SKU: "red"}, true},
		{search.Query{SKU: "blue"}, false},
		{search.Query{Customer: "%"}, false},
	}
	for _, tt := range tests {
		if got := tt.q.Matches(row); got != tt.want {
			t.Errorf("%+v.Matches = %v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestLess(t *testing.T) {
	now := time.Now()
	a := search.LineItem{Customer: "A", SKU: "Z", LineItemTotal: 10, Timestamp: now}
	b := search.LineItem{Customer: "B", SKU: "Y", LineItemTotal: 5, Timestamp: now.Add(time.Second)}

	tests := []struct {
		col   search.SortColumn
		order search.SortOrder
		want  bool
	}{
		{search.SortCustomerName, search.OrderAsc, true},
		{search.SortCustomerName, search.OrderDesc, false},
		{search.SortItemSKU, search.OrderAsc, false},
		{search.SortLineItemTotal, search.OrderDesc, true},
		{search.SortTimestamp, search.OrderDesc, false},
	}
	for _, tt := range tests {
		q := search.Query{Sort: tt.col, Order: tt.order}
		if got := q.Less(a, b); got != tt.want {
			t.Errorf("%s %s: got %v, want %v", tt.col, tt.order, got, tt.want)
		}
	}

	if (search.Query{Sort: search.SortCustomerName, Order: search.OrderAsc}).Less(a, a) {
		t.Error("ties must not be less")
	}
}
