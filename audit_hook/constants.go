package audithook

// Action constants for audit events.
const (
	// Cart actions
	ActionCartCreated     = "cart.created"
	ActionLineItemSet     = "cart.line_item.set"
	ActionLineItemRemoved = "cart.line_item.removed"

	// Checkout actions
	ActionCheckoutCompleted = "checkout.completed"
	ActionCheckoutFailed    = "checkout.failed"

	// Ledger actions
	ActionAdjustmentRecorded = "adjustment.recorded"
)

// Resource constants for audit events.
const (
	ResourceCart        = "cart"
	ResourceTransaction = "transaction"
)

// Category constants for audit events.
const (
	CategoryCart      = "cart"
	CategorySales     = "sales"
	CategoryInventory = "inventory"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
