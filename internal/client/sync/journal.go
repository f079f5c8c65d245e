package sync

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"database/sql"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS dispatch_journal (
    path TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    size INTEGER NOT NULL,
    modified_at TEXT NOT NULL, -- RFC3339
    completed_at TEXT NOT NULL -- RFC3339
);

CREATE INDEX IF NOT EXISTS idx_journal_completed_at ON dispatch_journal(completed_at);
`

// JournalEntry records the last successful remote operation for a path.
// The journal is observational: dispatch and reconciliation decisions never
// consult it, it exists for status reporting and post-mortems.
type JournalEntry struct {
	Path        string    `db:"path"`
	Kind        string    `db:"kind"`
	Size        int64     `db:"size"`
	ModifiedAt  time.Time `db:"-"`
	CompletedAt time.Time `db:"-"`

	ModifiedAtRaw  string `db:"modified_at"`
	CompletedAtRaw string `db:"completed_at"`
}

// Journal persists dispatch outcomes in a SQLite database under the
// client's metadata directory.
type Journal struct {
	db     *sqlx.DB
	dbPath string
}

func NewJournal(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal db %s: %w", dbPath, err)
	}

	// SQLite best practice for WAL mode
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}

	return &Journal{db: db, dbPath: dbPath}, nil
}

func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record upserts the entry for a path.
func (j *Journal) Record(entry *JournalEntry) error {
	if entry == nil {
		return errors.New("cannot record nil entry")
	}

	entry.ModifiedAtRaw = entry.ModifiedAt.UTC().Format(time.RFC3339Nano)
	entry.CompletedAtRaw = entry.CompletedAt.UTC().Format(time.RFC3339Nano)

	_, err := j.db.NamedExec(`
		INSERT OR REPLACE INTO dispatch_journal (path, kind, size, modified_at, completed_at)
		VALUES (:path, :kind, :size, :modified_at, :completed_at)`, entry)
	if err != nil {
		return fmt.Errorf("record journal entry %s: %w", entry.Path, err)
	}
	return nil
}

// Get returns the entry for a path, or nil when the path is unknown.
func (j *Journal) Get(path string) (*JournalEntry, error) {
	var entry JournalEntry
	err := j.db.Get(&entry, "SELECT * FROM dispatch_journal WHERE path = ?", path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query journal entry %s: %w", path, err)
	}

	if entry.ModifiedAt, err = time.Parse(time.RFC3339Nano, entry.ModifiedAtRaw); err != nil {
		return nil, fmt.Errorf("parse stored timestamp for %s: %w", path, err)
	}
	if entry.CompletedAt, err = time.Parse(time.RFC3339Nano, entry.CompletedAtRaw); err != nil {
		return nil, fmt.Errorf("parse stored timestamp for %s: %w", path, err)
	}
	return &entry, nil
}

// Delete removes the entry for a path. Deleting an unknown path is a no-op.
func (j *Journal) Delete(path string) error {
	if _, err := j.db.Exec("DELETE FROM dispatch_journal WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete journal entry %s: %w", path, err)
	}
	return nil
}

// Count returns the number of journaled paths.
func (j *Journal) Count() (int, error) {
	var count int
	if err := j.db.Get(&count, "SELECT COUNT(*) FROM dispatch_journal"); err != nil {
		return 0, fmt.Errorf("count journal entries: %w", err)
	}
	return count, nil
}
