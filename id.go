package apothecary

import "github.com/xraph/apothecary/id"

// ID is the primary identifier type for all Apothecary entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
