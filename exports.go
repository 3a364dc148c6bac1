package apothecary

import (
	"github.com/xraph/apothecary/ledger"
	"github.com/xraph/apothecary/types"
)

// Re-export common types for convenience so users don't have to import the
// types and ledger packages.

// Gold is re-exported from types package.
type Gold = types.Gold

// DayOfWeek is re-exported from types package.
type DayOfWeek = types.DayOfWeek

// Clock is re-exported from types package.
type Clock = types.Clock

// Entity is re-exported from types package.
type Entity = types.Entity

// Receipt is re-exported from ledger package.
type Receipt = ledger.Receipt

// Adjustment is re-exported from ledger package.
type Adjustment = ledger.Adjustment

// Re-export clock constructors
var (
	SystemClock = types.SystemClock
	FixedClock  = types.FixedClock
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
