package sqlite

import (
	"errors"
	"fmt"
	"strings"
)

// ErrQueryNotAllowed is returned for statements outside the read-only
// allow-list.
var ErrQueryNotAllowed = errors.New("only SELECT and PRAGMA statements are allowed")

// Query runs a read-only statement against the database and returns the
// column names and rows. Only a single SELECT or PRAGMA statement is
// accepted; anything after a statement separator is rejected.
func (b *Backend) Query(query string) ([]string, [][]any, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(trimmed, "SELECT") && !strings.HasPrefix(trimmed, "PRAGMA") {
		return nil, nil, ErrQueryNotAllowed
	}
	// A trailing semicolon is fine; a semicolon with anything after it would
	// smuggle a second statement past the prefix check.
	if rest := strings.TrimSuffix(strings.TrimSpace(query), ";"); strings.ContainsRune(rest, ';') {
		return nil, nil, ErrQueryNotAllowed
	}

	db, err := b.conn()
	if err != nil {
		return nil, nil, err
	}
	rows, err := db.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var result [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		// Normalize []byte cells to strings for JSON output.
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result = append(result, values)
	}
	return columns, result, rows.Err()
}
