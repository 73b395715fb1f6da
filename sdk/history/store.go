// Package history keeps a local record of the tasks submitted from this
// machine, so that a task id does not have to be copied around by hand.
//
// The store runs on sqlite by default and on PostgreSQL when a shared history
// is wanted:
//
//	store, err := history.Open(ctx, common.HistoryDriverSQLite, common.DefaultHistoryPath())
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/rnative/rnative-client/sdk/common"
)

// ErrNotFound is returned when no recorded task matches
var ErrNotFound = errors.New("no task recorded")

// Entry is one submitted task as seen from this client
type Entry struct {
	TaskID        string
	BaseURL       string
	FileNames     []string
	Analyzer      string
	ConsensusMode string
	Status        string
	Message       string
	SubmittedAt   time.Time
	UpdatedAt     time.Time
}

// Store is the task history backed by a SQL database
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the history database and makes sure its schema exists.
// For sqlite the parent directory of dsn is created when missing.
func Open(ctx context.Context, driver string, dsn string) (*Store, error) {
	switch driver {
	case common.HistoryDriverSQLite:
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("unable to create history directory: %w", err)
			}
		}
	case common.HistoryDriverPQ:
	default:
		return nil, fmt.Errorf("unknown history driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open history database: %w", err)
	}
	if driver == common.HistoryDriverSQLite {
		// sqlite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	store, err := NewStore(ctx, db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// NewStore wraps an open database and creates the schema.
func NewStore(ctx context.Context, db *sql.DB, driver string) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("unable to reach history database: %w", err)
	}
	if err := CreateSchema(ctx, db); err != nil {
		return nil, err
	}

	return &Store{db: db, driver: driver}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind turns '?' placeholders into the '$n' form PostgreSQL expects.
func (s *Store) rebind(query string) string {
	if s.driver != common.HistoryDriverPQ {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Record saves a newly submitted task. Recording the same task id again
// replaces the earlier entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	names, err := json.Marshal(e.FileNames)
	if err != nil {
		return fmt.Errorf("unable to encode file names: %w", err)
	}
	if e.SubmittedAt.IsZero() {
		e.SubmittedAt = time.Now()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.SubmittedAt
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO task (task_id, base_url, file_names, analyzer, consensus_mode, status, message, submitted_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (task_id) DO UPDATE SET
			base_url = excluded.base_url,
			file_names = excluded.file_names,
			analyzer = excluded.analyzer,
			consensus_mode = excluded.consensus_mode,
			status = excluded.status,
			message = excluded.message,
			submitted_at = excluded.submitted_at,
			updated_at = excluded.updated_at`),
		e.TaskID, e.BaseURL, string(names), e.Analyzer, e.ConsensusMode, e.Status, e.Message,
		e.SubmittedAt.UnixMilli(), e.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("unable to record task %s: %w", e.TaskID, err)
	}

	logrus.Debugf("Recorded task %s in history.", e.TaskID)
	return nil
}

// UpdateStatus stores the last status observed for a task. It returns
// ErrNotFound when the task was not submitted from this history.
func (s *Store) UpdateStatus(ctx context.Context, taskID string, status string, message string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE task SET status = ?, message = ?, updated_at = ? WHERE task_id = ?`),
		status, message, at.UnixMilli(), taskID)
	if err != nil {
		return fmt.Errorf("unable to update task %s: %w", taskID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to update task %s: %w", taskID, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

const selectColumns = `task_id, base_url, file_names, analyzer, consensus_mode, status, message, submitted_at, updated_at`

// Latest returns the most recently submitted task.
func (s *Store) Latest(ctx context.Context) (*Entry, error) {
	entries, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}

	return &entries[0], nil
}

// Get returns the entry of one task.
func (s *Store) Get(ctx context.Context, taskID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+selectColumns+` FROM task WHERE task_id = ?`), taskID)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return e, nil
}

// List returns up to limit tasks, newest first. A limit of zero or less
// returns every task.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + selectColumns + ` FROM task ORDER BY submitted_at DESC, task_id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("unable to list tasks: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to list tasks: %w", err)
	}

	return entries, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e         Entry
		names     string
		submitted int64
		updated   int64
	)
	err := row.Scan(&e.TaskID, &e.BaseURL, &names, &e.Analyzer, &e.ConsensusMode, &e.Status, &e.Message, &submitted, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read task: %w", err)
	}

	if err := json.Unmarshal([]byte(names), &e.FileNames); err != nil {
		return nil, fmt.Errorf("unable to decode file names of task %s: %w", e.TaskID, err)
	}
	e.SubmittedAt = time.UnixMilli(submitted)
	e.UpdatedAt = time.UnixMilli(updated)

	return &e, nil
}
