package database

import "database/sql"

// schema contains the SQL statements to set up the database.
// These run on startup to ensure tables exist.
// Movements are append-only: there is no UPDATE or DELETE path anywhere in
// the codebase, corrections are issued as new opposite movements.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL,
    password TEXT NOT NULL,
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    is_staff BOOLEAN NOT NULL DEFAULT FALSE,
    last_login TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ranks (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS customers (
    user_id BIGINT PRIMARY KEY REFERENCES users(id),
    rank_id BIGINT NOT NULL REFERENCES ranks(id) DEFAULT 2,
    personal_id TEXT NOT NULL,
    phone TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
    account_number BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    name TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS movements (
    id BIGSERIAL PRIMARY KEY,
    account_number BIGINT NOT NULL REFERENCES accounts(account_number),
    correlation_id UUID NOT NULL,
    amount NUMERIC(10,2) NOT NULL,
    memo TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ranks_value ON ranks(value);
CREATE INDEX IF NOT EXISTS idx_customers_personal_id ON customers(personal_id);
CREATE INDEX IF NOT EXISTS idx_customers_phone ON customers(phone);
CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id);
CREATE INDEX IF NOT EXISTS idx_movements_account_number ON movements(account_number);
CREATE INDEX IF NOT EXISTS idx_movements_correlation_id ON movements(correlation_id);
CREATE INDEX IF NOT EXISTS idx_movements_created_at ON movements(created_at);

INSERT INTO ranks (id, name, value) VALUES
    (1, 'Blue', 10),
    (2, 'Silver', 20),
    (3, 'Gold', 30)
ON CONFLICT (id) DO NOTHING;
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
