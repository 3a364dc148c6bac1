package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Apothecary store.
var Migrations = migrate.NewGroup("apothecary")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_apothecary_items",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS apothecary_items (
    sku        TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    red        INT NOT NULL DEFAULT 0,
    green      INT NOT NULL DEFAULT 0,
    blue       INT NOT NULL DEFAULT 0,
    dark       INT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS apothecary_item_prices (
    sku   TEXT NOT NULL REFERENCES apothecary_items (sku),
    day   TEXT NOT NULL,
    price BIGINT NOT NULL CHECK (price >= 0),
    PRIMARY KEY (sku, day)
);

CREATE TABLE IF NOT EXISTS apothecary_item_sales (
    sku  TEXT NOT NULL REFERENCES apothecary_items (sku),
    day  TEXT NOT NULL,
    sold BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (sku, day)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS apothecary_item_sales;
DROP TABLE IF EXISTS apothecary_item_prices;
DROP TABLE IF EXISTS apothecary_items;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_apothecary_transactions",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS apothecary_transactions (
    seq         BIGINT GENERATED ALWAYS AS IDENTITY,
    id          TEXT PRIMARY KEY,
    kind        TEXT NOT NULL CHECK (kind IN ('global', 'item')),
    description TEXT NOT NULL DEFAULT '',
    parent_id   TEXT REFERENCES apothecary_transactions (id),
    cart_id     TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_apothecary_transactions_seq ON apothecary_transactions (seq);
CREATE INDEX IF NOT EXISTS idx_apothecary_transactions_cart ON apothecary_transactions (cart_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS apothecary_transactions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_apothecary_carts",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS apothecary_carts (
    id             TEXT PRIMARY KEY,
    customer       TEXT NOT NULL,
    payment        TEXT,
    transaction_id TEXT REFERENCES apothecary_transactions (id),
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_apothecary_carts_customer ON apothecary_carts (customer);

CREATE TABLE IF NOT EXISTS apothecary_cart_items (
    cart_id  TEXT NOT NULL REFERENCES apothecary_carts (id),
    sku      TEXT NOT NULL,
    quantity BIGINT NOT NULL CHECK (quantity > 0),
    position BIGINT NOT NULL,
    PRIMARY KEY (cart_id, sku)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS apothecary_cart_items;
DROP TABLE IF EXISTS apothecary_carts;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_apothecary_entries",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS apothecary_gold_entries (
    seq            BIGINT GENERATED ALWAYS AS IDENTITY,
    id             TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL REFERENCES apothecary_transactions (id),
    delta          BIGINT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_apothecary_gold_entries_tx ON apothecary_gold_entries (transaction_id);

CREATE TABLE IF NOT EXISTS apothecary_item_entries (
    seq            BIGINT GENERATED ALWAYS AS IDENTITY,
    id             TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL REFERENCES apothecary_transactions (id),
    sku            TEXT NOT NULL,
    delta          BIGINT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_apothecary_item_entries_seq ON apothecary_item_entries (seq);
CREATE INDEX IF NOT EXISTS idx_apothecary_item_entries_sku ON apothecary_item_entries (sku);
CREATE INDEX IF NOT EXISTS idx_apothecary_item_entries_tx ON apothecary_item_entries (transaction_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS apothecary_item_entries;
DROP TABLE IF EXISTS apothecary_gold_entries;
`)
				return err
			},
		},
	)
}
