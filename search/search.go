// Package search describes queries over historical line items and the
// offset cursor used to page through them.
package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/types"
)

// PageSize is the number of rows in one page. Stores are asked for one
// extra row to learn whether a next page exists.
const PageSize = 5

// SortColumn is an allow-listed ordering key.
type SortColumn string

const (
	SortCustomerName  SortColumn = "customer_name"
	SortItemSKU       SortColumn = "item_sku"
	SortLineItemTotal SortColumn = "line_item_total"
	SortTimestamp     SortColumn = "timestamp"
)

// SortOrder is asc or desc.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseSortColumn validates s against the allow-list. Empty means timestamp.
func ParseSortColumn(s string) (SortColumn, error) {
	switch c := SortColumn(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return SortTimestamp, nil
	case SortCustomerName, SortItemSKU, SortLineItemTotal, SortTimestamp:
		return c, nil
	default:
		return "", fmt.Errorf("search: unknown sort column %q", s)
	}
}

// ParseSortOrder validates s. Empty means desc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return OrderDesc, nil
	case OrderAsc, OrderDesc:
		return o, nil
	default:
		return "", fmt.Errorf("search: unknown sort order %q", s)
	}
}

// Query filters and orders line items. Customer and SKU are
// case-insensitive substring filters; empty means no restriction.
type Query struct {
	Customer string     `json:"customer_name,omitempty"`
	SKU      string     `json:"potion_sku,omitempty"`
	Cursor   string     `json:"search_page,omitempty"`
	Sort     SortColumn `json:"sort_col,omitempty"`
	Order    SortOrder  `json:"sort_order,omitempty"`
}

// Normalize validates the sort fields, applies defaults and returns the
// decoded offset.
func (q *Query) Normalize() (int, error) {
	col, err := ParseSortColumn(string(q.Sort))
	if err != nil {
		return 0, err
	}
	order, err := ParseSortOrder(string(q.Order))
	if err != nil {
		return 0, err
	}
	offset, err := ParseCursor(q.Cursor)
	if err != nil {
		return 0, err
	}
	q.Sort, q.Order = col, order
	return offset, nil
}

// ParseCursor decodes an opaque cursor. "" is the first page.
func ParseCursor(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("search: invalid cursor %q", s)
	}
	return n, nil
}

// LineItem is one historical purchase row.
type LineItem struct {
	LineItemID    id.EntryID       `json:"line_item_id"`
	TransactionID id.TransactionID `json:"transaction_id"`
	CartID        id.CartID        `json:"cart_id"`
	SKU           string           `json:"item_sku"`
	Customer      string           `json:"customer_name"`
	// Quantity is the number of units the entry moved out of stock.
	Quantity int64 `json:"quantity"`
	// LineItemTotal is the gold the settling checkout recorded.
	LineItemTotal types.Gold `json:"line_item_total"`
	Timestamp     time.Time  `json:"timestamp"`
}

// Page is one window of results plus neighbouring cursors ("" when absent).
type Page struct {
	Previous string     `json:"previous"`
	Next     string     `json:"next"`
	Results  []LineItem `json:"results"`
}

// NewPage trims rows fetched with limit PageSize+1 at offset and computes
// the cursors.
func NewPage(offset int, rows []LineItem) *Page {
	p := &Page{Results: rows}
	if len(rows) > PageSize {
		p.Results = rows[:PageSize]
		p.Next = strconv.Itoa(offset + PageSize)
	}
	if p.Results == nil {
		p.Results = []LineItem{}
	}
	if prev := offset - PageSize; prev >= 0 {
		p.Previous = strconv.Itoa(prev)
	}
	return p
}

// EscapeLike escapes LIKE metacharacters with a backslash so a filter is
// always a literal substring.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Matches reports whether row passes the query's filters. In-memory stores
// use it; SQL stores express the same test with LIKE.
func (q Query) Matches(row LineItem) bool {
	return containsFold(row.Customer, q.Customer) && containsFold(row.SKU, q.SKU)
}

func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Less orders a before b under the query's sort column and order. It
// returns false for ties so callers can apply their own stable key.
func (q Query) Less(a, b LineItem) bool {
	c := compare(q.Sort, a, b)
	if q.Order == OrderAsc {
		return c < 0
	}
	return c > 0
}

func compare(col SortColumn, a, b LineItem) int {
	switch col {
	case SortCustomerName:
		return strings.Compare(a.Customer, b.Customer)
	case SortItemSKU:
		return strings.Compare(a.SKU, b.SKU)
	case SortLineItemTotal:
		return cmpInt(int64(a.LineItemTotal), int64(b.LineItemTotal))
	default:
		return a.Timestamp.Compare(b.Timestamp)
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
