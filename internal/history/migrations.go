package history

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"
)

// Schema files are named NNNN_description.sql. The numeric prefix is stored
// in PRAGMA user_version once the file has been applied.
//
//go:embed migrations/*.sql
var schemaFiles embed.FS

type schemaStep struct {
	version int
	name    string
}

func schemaSteps() ([]schemaStep, error) {
	names, err := fs.Glob(schemaFiles, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list schema files: %w", err)
	}
	steps := make([]schemaStep, 0, len(names))
	for _, name := range names {
		prefix, _, _ := strings.Cut(strings.TrimPrefix(name, "migrations/"), "_")
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("schema file %s: bad version prefix", name)
		}
		steps = append(steps, schemaStep{version: version, name: name})
	}
	slices.SortFunc(steps, func(a, b schemaStep) int { return a.version - b.version })
	return steps, nil
}

// migrate brings the database up to the newest embedded schema version.
// Every pending step runs in one transaction.
func (s *Store) migrate(ctx context.Context) error {
	steps, err := schemaSteps()
	if err != nil {
		return err
	}
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	pending := slices.DeleteFunc(steps, func(step schemaStep) bool { return step.version <= current })
	if len(pending) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema upgrade: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, step := range pending {
		body, err := schemaFiles.ReadFile(step.name)
		if err != nil {
			return fmt.Errorf("read %s: %w", step.name, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply schema version %d: %w", step.version, err)
		}
		current = step.version
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", current)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema upgrade: %w", err)
	}
	return nil
}
