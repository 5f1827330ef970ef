// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// VerifyMode selects the SQLite integrity pragma.
type VerifyMode string

const (
	VerifyQuick VerifyMode = "quick" // PRAGMA quick_check
	VerifyFull  VerifyMode = "full"  // PRAGMA integrity_check
)

// ParseVerifyMode accepts "quick" or "full".
func ParseVerifyMode(s string) (VerifyMode, error) {
	switch m := VerifyMode(strings.ToLower(strings.TrimSpace(s))); m {
	case VerifyQuick, VerifyFull:
		return m, nil
	}
	return "", fmt.Errorf("unknown verify mode %q (want quick or full)", s)
}

// VerifyIntegrity opens the database read-only and reports structural
// corruption and an unexpected schema version. No issues yields nil.
func VerifyIntegrity(ctx context.Context, path string, mode VerifyMode) ([]string, error) {
	pragma := "PRAGMA quick_check"
	if mode == VerifyFull {
		pragma = "PRAGMA integrity_check"
	}

	db, err := sql.Open("sqlite", dsn(path, 2*time.Second, true))
	if err != nil {
		return nil, fmt.Errorf("open %s for verification: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, pragma)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", strings.ToLower(pragma), err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return nil, fmt.Errorf("scan integrity row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("integrity check aborted: %w", err)
	}

	var issues []string
	switch {
	case len(results) == 0:
		issues = append(issues, "integrity check returned no rows")
	case len(results) == 1 && strings.EqualFold(results[0], "ok"):
	default:
		// Corrupt pages can make the schema unreadable, so stop here.
		return results, nil
	}

	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		issues = append(issues, fmt.Sprintf("schema version %d, want %d", version, schemaVersion))
	}
	if len(issues) == 0 {
		return nil, nil
	}
	return issues, nil
}
