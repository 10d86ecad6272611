package storage

import "database/sql"

// migrateV001 creates the initial schema: one row per tracked domain and one
// row per (domain, period, period key) bucket. Every statement uses IF NOT
// EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS domains (
			domain      TEXT PRIMARY KEY,
			favicon_url TEXT,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS buckets (
			domain     TEXT NOT NULL REFERENCES domains(domain) ON DELETE CASCADE,
			period     TEXT NOT NULL CHECK (period IN ('daily', 'weekly', 'monthly')),
			period_key TEXT NOT NULL,
			ms         INTEGER NOT NULL DEFAULT 0 CHECK (ms >= 0),
			PRIMARY KEY (domain, period, period_key)
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_buckets_period_key ON buckets(period, period_key)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
