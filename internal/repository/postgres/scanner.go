package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ScannerRegistry implements classifier.Registry against PostgreSQL. Rows
// are keyed by IP; RecordScanner upserts so concurrent writers for the same
// IP only ever bump the counter.
type ScannerRegistry struct{ db *sql.DB }

// NewScannerRegistry creates a Postgres-backed known-scanner registry.
func NewScannerRegistry(db *sql.DB) *ScannerRegistry { return &ScannerRegistry{db: db} }

func (r *ScannerRegistry) IsActiveScanner(ctx context.Context, ip string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM known_scanning_ips WHERE ip_address = $1 AND is_active = true)`,
		ip,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("scanner lookup: %w", err)
	}
	return exists, nil
}

func (r *ScannerRegistry) RecordScanner(ctx context.Context, ip, provider string, seenAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO known_scanning_ips
			(ip_address, provider, first_seen, last_seen, scan_count, is_active)
		VALUES ($1, $2, $3, $3, 1, true)
		ON CONFLICT (ip_address) DO UPDATE
		SET scan_count = known_scanning_ips.scan_count + 1,
		    last_seen = $3,
		    is_active = true
	`, ip, provider, seenAt)
	if err != nil {
		return fmt.Errorf("record scanner: %w", err)
	}
	return nil
}
