package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
)

// VerifyIntegrity runs a structural check on the database at path.
// Mode "quick" runs PRAGMA quick_check, anything else PRAGMA
// integrity_check. A healthy database returns (nil, nil); corruption
// returns the diagnostic rows. The error is reserved for failures of
// the check itself.
func VerifyIntegrity(path, mode string) ([]string, error) {
	// Read-only open so verification never takes a write lock.
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro&_busy_timeout=2000", path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open for verification: %w", err)
	}
	defer db.Close()

	pragma := "PRAGMA integrity_check;"
	if mode == "quick" {
		pragma = "PRAGMA quick_check;"
	}

	rows, err := db.Query(pragma)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", strings.TrimSuffix(pragma, ";"), err)
	}
	defer rows.Close()

	var findings []string
	for rows.Next() {
		var row string
		if err := rows.Scan(&row); err != nil {
			return nil, fmt.Errorf("sqlite: scan check result: %w", err)
		}
		findings = append(findings, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read check results: %w", err)
	}

	// The check reports a single "ok" row when the file is sound.
	if len(findings) == 1 && strings.EqualFold(findings[0], "ok") {
		return nil, nil
	}
	if len(findings) == 0 {
		return []string{"integrity check returned no rows"}, nil
	}
	return findings, nil
}
