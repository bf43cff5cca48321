package postgres

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/uptrace/bun"

	"examplanner/internal/store"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies the embedded schema files in name order. Statements are
// idempotent, so running it at every startup is safe.
func Migrate(ctx context.Context, db bun.IDB) error {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		// One statement per exec: the pgx driver's extended protocol does not
		// take multi-statement strings.
		for _, stmt := range splitStatements(string(b)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("%w: migration %s: %v", store.ErrUnavailable, name, err)
			}
		}
	}
	return nil
}

// splitStatements cuts a migration file on every semicolon. It does not parse
// SQL: a semicolon inside a string literal, a dollar-quoted body, or a
// CREATE FUNCTION breaks the split. Migrations that need one must move to a
// statement-aware splitter first.
func splitStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
