package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove/drivers/mongodriver/mongomigrate"
	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Apothecary store.
var Migrations = migrate.NewGroup("apothecary")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_apothecary_indexes",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				me, ok := exec.(*mongomigrate.Executor)
				if !ok {
					return fmt.Errorf("apothecary/mongo: unexpected executor %T", exec)
				}
				for col, models := range migrationIndexes() {
					if _, err := me.DB().Collection(col).Indexes().CreateMany(ctx, models); err != nil {
						return fmt.Errorf("apothecary/mongo: migrate %s indexes: %w", col, err)
					}
				}
				return nil
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				me, ok := exec.(*mongomigrate.Executor)
				if !ok {
					return fmt.Errorf("apothecary/mongo: unexpected executor %T", exec)
				}
				for col := range migrationIndexes() {
					if err := me.DB().Collection(col).Indexes().DropAll(ctx); err != nil {
						return fmt.Errorf("apothecary/mongo: drop %s indexes: %w", col, err)
					}
				}
				return nil
			},
		},
	)
}

// migrationIndexes returns the index definitions for all apothecary collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCarts: {
			{Keys: bson.D{{Key: "customer", Value: 1}}},
			{Keys: bson.D{{Key: "transaction_id", Value: 1}}},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "cart_id", Value: 1}}},
			{Keys: bson.D{{Key: "parent_id", Value: 1}}},
		},
		colGoldEntries: {
			{Keys: bson.D{{Key: "transaction_id", Value: 1}}},
		},
		colItemEntries: {
			{Keys: bson.D{{Key: "sku", Value: 1}}},
			{Keys: bson.D{{Key: "transaction_id", Value: 1}}},
		},
	}
}
