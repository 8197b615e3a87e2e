package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var embedded embed.FS

// step is one schema change, numbered by the prefix of its file name
// ("002_target_index.sql" is version 2).
type step struct {
	version int
	file    string
	stmts   string
}

// readSteps collects *.sql files from fsys ordered by version. Versions must
// be positive and unique.
func readSteps(fsys fs.FS) ([]step, error) {
	names, err := fs.Glob(fsys, "sql/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	steps := make([]step, 0, len(names))
	byVersion := make(map[int]string, len(names))
	for _, name := range names {
		base := path.Base(name)
		prefix, _, ok := strings.Cut(base, "_")
		v, err := strconv.Atoi(prefix)
		if !ok || err != nil || v <= 0 {
			return nil, fmt.Errorf("migration %s: name must start with a positive version and an underscore", base)
		}
		if other, dup := byVersion[v]; dup {
			return nil, fmt.Errorf("migration %s: version %d already used by %s", base, v, other)
		}
		byVersion[v] = base

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", base, err)
		}
		steps = append(steps, step{version: v, file: base, stmts: string(body)})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

// migrate brings the database up to the newest embedded version and returns
// it. The applied version lives in PRAGMA user_version; each step commits on
// its own so a failure keeps the steps before it.
func migrate(ctx context.Context, db *sql.DB) (int, error) {
	return migrateFS(ctx, db, embedded)
}

func migrateFS(ctx context.Context, db *sql.DB, fsys fs.FS) (int, error) {
	steps, err := readSteps(fsys)
	if err != nil {
		return 0, err
	}
	var current int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&current); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	for _, s := range steps {
		if s.version <= current {
			continue
		}
		if err := applyStep(ctx, db, s); err != nil {
			return current, err
		}
		current = s.version
	}
	return current, nil
}

func applyStep(ctx context.Context, db *sql.DB, s step) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %s: begin: %w", s.file, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.stmts); err != nil {
		return fmt.Errorf("migration %s: %w", s.file, err)
	}
	// PRAGMA takes no bound parameters; the version is an int.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", s.version)); err != nil {
		return fmt.Errorf("migration %s: set user_version: %w", s.file, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %s: commit: %w", s.file, err)
	}
	return nil
}
