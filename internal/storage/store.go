package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/runnerr0/sitetime/internal/period"
)

// Store is the per-domain key-value store that accounting writes into and
// the display reads from. There are no transactions across calls: a
// read-modify-write of one record is two independent operations.
type Store interface {
	// Get returns the record for domain. A domain that was never stored
	// yields a fresh zero-valued record, not an error.
	Get(ctx context.Context, domain string) (*DomainRecord, error)
	// Set replaces the stored record for record.Domain.
	Set(ctx context.Context, record *DomainRecord) error
	// All returns every record sorted by domain.
	All(ctx context.Context) ([]DomainRecord, error)
	Delete(ctx context.Context, domain string) error
	PurgeAll(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	getDomain    *sql.Stmt
	getBuckets   *sql.Stmt
	upsertDomain *sql.Stmt
	deleteDomain *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getDomain, err = s.db.Prepare(`SELECT domain, favicon_url FROM domains WHERE domain = ?`)
	if err != nil {
		return err
	}

	s.getBuckets, err = s.db.Prepare(`
		SELECT period, period_key, ms FROM buckets WHERE domain = ?
	`)
	if err != nil {
		return err
	}

	s.upsertDomain, err = s.db.Prepare(`
		INSERT INTO domains (domain, favicon_url) VALUES (?, ?)
		ON CONFLICT(domain) DO UPDATE SET
			favicon_url = excluded.favicon_url,
			updated_at  = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}

	s.deleteDomain, err = s.db.Prepare(`DELETE FROM domains WHERE domain = ?`)
	if err != nil {
		return err
	}

	return nil
}

// Get retrieves a single domain record.
func (s *SQLiteStore) Get(ctx context.Context, domain string) (*DomainRecord, error) {
	rec := NewDomainRecord(domain)

	var favicon sql.NullString
	err := s.getDomain.QueryRowContext(ctx, domain).Scan(&rec.Domain, &favicon)
	if err != nil {
		if err == sql.ErrNoRows {
			return rec, nil
		}
		return nil, fmt.Errorf("get domain: %w", err)
	}
	if favicon.Valid {
		rec.FaviconURL = favicon.String
	}

	rows, err := s.getBuckets.QueryContext(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("get buckets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p, key string
		var ms int64
		if err := rows.Scan(&p, &key, &ms); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		rec.Buckets(period.Period(p))[key] = ms
	}

	return rec, rows.Err()
}

// Set upserts the domain row and every bucket of record in one transaction.
func (s *SQLiteStore) Set(ctx context.Context, record *DomainRecord) error {
	if record == nil || record.Domain == "" {
		return fmt.Errorf("set: record has no domain")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var favicon sql.NullString
	if record.FaviconURL != "" {
		favicon = sql.NullString{String: record.FaviconURL, Valid: true}
	}
	if _, err := tx.StmtContext(ctx, s.upsertDomain).ExecContext(ctx, record.Domain, favicon); err != nil {
		return fmt.Errorf("upsert domain: %w", err)
	}

	const upsertBucket = `
		INSERT INTO buckets (domain, period, period_key, ms) VALUES (?, ?, ?, ?)
		ON CONFLICT(domain, period, period_key) DO UPDATE SET ms = excluded.ms
	`
	for _, p := range period.All() {
		for key, ms := range record.Buckets(p) {
			if _, err := tx.ExecContext(ctx, upsertBucket, record.Domain, string(p), key, ms); err != nil {
				return fmt.Errorf("upsert %s bucket %s: %w", p, key, err)
			}
		}
	}

	return tx.Commit()
}

// All returns every stored record sorted by domain.
func (s *SQLiteStore) All(ctx context.Context) ([]DomainRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT domain, favicon_url FROM domains ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("query domains: %w", err)
	}

	byDomain := map[string]*DomainRecord{}
	var order []string
	for rows.Next() {
		var domain string
		var favicon sql.NullString
		if err := rows.Scan(&domain, &favicon); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		rec := NewDomainRecord(domain)
		if favicon.Valid {
			rec.FaviconURL = favicon.String
		}
		byDomain[domain] = rec
		order = append(order, domain)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	bucketRows, err := s.db.QueryContext(ctx, `SELECT domain, period, period_key, ms FROM buckets`)
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}
	defer bucketRows.Close()

	for bucketRows.Next() {
		var domain, p, key string
		var ms int64
		if err := bucketRows.Scan(&domain, &p, &key, &ms); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		if rec, ok := byDomain[domain]; ok {
			rec.Buckets(period.Period(p))[key] = ms
		}
	}
	if err := bucketRows.Err(); err != nil {
		return nil, err
	}

	sort.Strings(order)
	records := make([]DomainRecord, 0, len(order))
	for _, d := range order {
		records = append(records, *byDomain[d])
	}
	return records, nil
}

// Delete removes a domain and its buckets.
func (s *SQLiteStore) Delete(ctx context.Context, domain string) error {
	// The schema cascades too, but only on connections with foreign keys on.
	if _, err := s.db.ExecContext(ctx, "DELETE FROM buckets WHERE domain = ?", domain); err != nil {
		return fmt.Errorf("delete buckets: %w", err)
	}

	res, err := s.deleteDomain.ExecContext(ctx, domain)
	if err != nil {
		return fmt.Errorf("delete domain: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("domain %s: %w", domain, ErrNotFound)
	}

	return nil
}

// PurgeAll deletes every record.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	stmts := []string{
		"DELETE FROM buckets",
		"DELETE FROM domains",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	return nil
}

// DatabaseSize reports page_count * page_size, which also works for
// in-memory databases.
func (s *SQLiteStore) DatabaseSize(ctx context.Context) int64 {
	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// SchemaVersion reports the applied migration version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	return NewMigrationRunner(s.db).Version(ctx)
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.getDomain, s.getBuckets, s.upsertDomain, s.deleteDomain,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
