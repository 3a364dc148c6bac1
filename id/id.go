// Package id defines TypeID-based identity types for all Apothecary entities.
//
// Every entity in Apothecary uses a single ID struct with a prefix that identifies
// the entity type. IDs are K-sortable (UUIDv7-based), globally unique,
// and URL-safe in the format "prefix_suffix".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all Apothecary entity types.
const (
	PrefixCart              Prefix = "cart" // Customer cart
	PrefixGlobalTransaction Prefix = "gtx"  // Gold-bearing ledger transaction
	PrefixItemTransaction   Prefix = "itx"  // Inventory ledger transaction
	PrefixGoldEntry         Prefix = "gent" // Gold delta
	PrefixItemEntry         Prefix = "ient" // Item quantity delta
)

// ID is the primary identifier type for all Apothecary entities.
// It wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "cart_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Type aliases
// ──────────────────────────────────────────────────

// CartID is a type-safe identifier for carts (prefix: "cart").
type CartID = ID

// TransactionID identifies a ledger transaction of either kind ("gtx" or "itx").
type TransactionID = ID

// EntryID identifies a ledger entry of either kind ("gent" or "ient").
type EntryID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewCartID generates a new unique cart ID.
func NewCartID() ID { return New(PrefixCart) }

// NewGlobalTransactionID generates a new unique global transaction ID.
func NewGlobalTransactionID() ID { return New(PrefixGlobalTransaction) }

// NewItemTransactionID generates a new unique item transaction ID.
func NewItemTransactionID() ID { return New(PrefixItemTransaction) }

// NewGoldEntryID generates a new unique gold entry ID.
func NewGoldEntryID() ID { return New(PrefixGoldEntry) }

// NewItemEntryID generates a new unique item entry ID.
func NewItemEntryID() ID { return New(PrefixItemEntry) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParseCartID parses a string and validates the "cart" prefix.
func ParseCartID(s string) (ID, error) { return ParseWithPrefix(s, PrefixCart) }

// ParseTransactionID parses a string and validates it is a "gtx" or "itx" ID.
func ParseTransactionID(s string) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	switch parsed.Prefix() {
	case PrefixGlobalTransaction, PrefixItemTransaction:
		return parsed, nil
	default:
		return Nil, fmt.Errorf("id: expected transaction prefix, got %q", parsed.Prefix())
	}
}

// ParseEntryID parses a string and validates it is a "gent" or "ient" ID.
func ParseEntryID(s string) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	switch parsed.Prefix() {
	case PrefixGoldEntry, PrefixItemEntry:
		return parsed, nil
	default:
		return Nil, fmt.Errorf("id: expected entry prefix, got %q", parsed.Prefix())
	}
}

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional foreign key columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
