package sqlite

import (
	"database/sql/driver"
	"strings"

	msqlite "modernc.org/sqlite"
)

// foldFunc is the SQL name of the Unicode lower-casing scalar. SQLite's
// built-in LIKE and lower() fold ASCII only.
const foldFunc = "apothecary_fold"

func init() {
	msqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, fold)
}

func fold(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}
