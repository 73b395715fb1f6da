package history

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates the tables used by the history store. Safe to call
// multiple times.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Times are stored as unix milliseconds so that both drivers read them back
// the same way.
const schema = `
CREATE TABLE IF NOT EXISTS task (
    task_id TEXT PRIMARY KEY,
    base_url TEXT NOT NULL,
    file_names TEXT NOT NULL,
    analyzer TEXT NOT NULL,
    consensus_mode TEXT NOT NULL,
    status TEXT NOT NULL,
    message TEXT NOT NULL DEFAULT '',
    submitted_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_task_submitted_at ON task(submitted_at);
`
