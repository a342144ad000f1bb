package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no run matches an identifier.
var ErrNotFound = errors.New("run not found")

// ErrAmbiguous is returned when a short identifier matches several runs.
var ErrAmbiguous = errors.New("run id prefix is ambiguous")

// Run is one batch invocation.
type Run struct {
	ID           string
	Folder       string
	Mode         string
	StartedAt    time.Time
	FinishedAt   time.Time
	Total        int
	Succeeded    int
	Skipped      int
	Failed       int
	ErrorMessage string
}

// Finished reports whether the run reached its report.
func (r Run) Finished() bool { return !r.FinishedAt.IsZero() }

// Item is the recorded outcome of one video in a run.
type Item struct {
	RunID      string
	Position   int
	FileName   string
	Outcome    string
	Reason     string
	ErrorKind  string
	OutputPath string
	Chapters   int
	RecordedAt time.Time
}

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps the pragmas in force for every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// BeginRun inserts the run row. An empty ID is filled in.
func (s *Store) BeginRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, folder, mode, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Folder, run.Mode, formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// AddItem records one item outcome.
func (s *Store) AddItem(ctx context.Context, item Item) error {
	if item.RecordedAt.IsZero() {
		item.RecordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_items (run_id, position, file_name, outcome, reason, error_kind, output_path, chapters, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.RunID, item.Position, item.FileName, item.Outcome,
		nullableString(item.Reason), nullableString(item.ErrorKind), nullableString(item.OutputPath),
		item.Chapters, formatTime(item.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run item: %w", err)
	}
	return nil
}

// FinishRun stores the counters and completion time of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, succeeded = ?, skipped = ?, failed = ?, error_message = ?
         WHERE id = ?`,
		formatTime(run.FinishedAt), run.Total, run.Succeeded, run.Skipped, run.Failed,
		nullableString(run.ErrorMessage), run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

const runColumns = "id, folder, mode, started_at, finished_at, total, succeeded, skipped, failed, error_message"

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a run by full identifier or unique prefix.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Run{}, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id = ? DESC LIMIT 2`,
		id, escapeLike(id)+"%", id,
	)
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch {
	case len(matches) == 0:
		return Run{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	case matches[0].ID == id || len(matches) == 1:
		return matches[0], nil
	default:
		return Run{}, fmt.Errorf("%s: %w", id, ErrAmbiguous)
	}
}

// Items returns the recorded items of a run in report order.
func (s *Store) Items(ctx context.Context, runID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, position, file_name, outcome, reason, error_kind, output_path, chapters, recorded_at
         FROM run_items WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list run items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item       Item
			reason     sql.NullString
			kind       sql.NullString
			output     sql.NullString
			recordedAt string
		)
		if err := rows.Scan(&item.RunID, &item.Position, &item.FileName, &item.Outcome,
			&reason, &kind, &output, &item.Chapters, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan run item: %w", err)
		}
		item.Reason = reason.String
		item.ErrorKind = kind.String
		item.OutputPath = output.String
		item.RecordedAt = parseTime(recordedAt)
		items = append(items, item)
	}
	return items, rows.Err()
}

// Prune deletes runs that started before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
		errMsg     sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.Folder, &run.Mode, &startedAt, &finishedAt,
		&run.Total, &run.Succeeded, &run.Skipped, &run.Failed, &errMsg); err != nil {
		return Run{}, err
	}
	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTime(finishedAt.String)
	}
	run.ErrorMessage = errMsg.String
	return run, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string { return likeEscaper.Replace(value) }
