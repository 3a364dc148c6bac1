package mongo_test

import (
	"context"
	"testing"

	"github.com/xraph/grove/migrate"

	"github.com/xraph/apothecary/store/mongo"
)

// sqlExecutor stands in for a non-mongo executor.
type sqlExecutor struct{ migrate.Executor }

func TestMigrationsGroup(t *testing.T) {
	ms := mongo.Migrations.Migrations()
	if len(ms) != 1 || ms[0].Name != "create_apothecary_indexes" {
		t.Fatalf("unexpected migrations: %+v", ms)
	}
	if ms[0].Down == nil {
		t.Fatal("down migration missing")
	}

	// Index creation goes through the mongo executor's driver.
	if err := ms[0].Up(context.Background(), sqlExecutor{}); err == nil {
		t.Fatal("expected an error for a non-mongo executor")
	}
}
