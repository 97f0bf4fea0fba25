package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/jwebster45206/world-engine/pkg/world"
)

// SQLiteIndex keeps a queryable copy of the audit trail. Writes are queued
// and committed in batches by a single writer goroutine; Record never blocks
// the request that produced the entry.
type SQLiteIndex struct {
	db     *sql.DB
	logger *slog.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64
}

type req struct {
	entry world.AuditEntry
	// sync, when set, asks the writer to commit and then close it.
	sync chan struct{}
}

const (
	queueSize     = 4096
	commitEvery   = 256
	commitMaxWait = time.Second
)

// OpenSQLite opens (creating if needed) the audit database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteIndex, error) {
	if path == "" {
		return nil, errors.New("empty audit db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:     db,
		logger: logger,
		ch:     make(chan req, queueSize),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS audit_entries (
			id TEXT PRIMARY KEY,
			record_id TEXT NOT NULL,
			record_type TEXT NOT NULL,
			record_name TEXT NOT NULL,
			action TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			actor_name TEXT NOT NULL,
			at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_record ON audit_entries(record_id, id);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_entries(actor_id, id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("failed to initialise audit schema: %w", err)
		}
	}
	return nil
}

// Record queues entry. When the queue is full the entry is dropped and
// counted; the JSONL log remains the complete record.
func (s *SQLiteIndex) Record(ctx context.Context, entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{entry: entry}:
	default:
		if n := s.dropped.Add(1); n == 1 || n%1000 == 0 {
			s.logger.Warn("Audit index queue full, dropping entries", "dropped", n)
		}
	}
	return nil
}

// Dropped returns how many entries were discarded because the queue was full.
func (s *SQLiteIndex) Dropped() int64 {
	return s.dropped.Load()
}

// Sync waits until every entry queued before the call is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{sync: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// History returns the committed entries for recordID, oldest first.
func (s *SQLiteIndex) History(ctx context.Context, recordID string) ([]world.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, record_id, record_type, record_name, action, actor_id, actor_name, at
		 FROM audit_entries WHERE record_id = ? ORDER BY id`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit history: %w", err)
	}
	defer rows.Close()

	entries := []world.AuditEntry{}
	for rows.Next() {
		var (
			e      world.AuditEntry
			id, at string
			action string
		)
		if err := rows.Scan(&id, &e.RecordID, &e.RecordType, &e.RecordName, &action, &e.ActorID, &e.ActorName, &at); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if e.ID, err = ulid.Parse(id); err != nil {
			return nil, fmt.Errorf("corrupt audit id %q: %w", id, err)
		}
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("corrupt audit time %q: %w", at, err)
		}
		e.Action = world.AuditAction(action)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insert, err := s.db.Prepare(`INSERT OR REPLACE INTO audit_entries
		(id, record_id, record_type, record_name, action, actor_id, actor_name, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		s.logger.Error("Failed to prepare audit insert", "error", err)
	} else {
		defer insert.Close()
	}

	var (
		tx         *sql.Tx
		opCount    int
		lastCommit = time.Now()
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.logger.Error("Failed to begin audit transaction", "error", err)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.logger.Error("Failed to commit audit entries", "error", err, "entries", opCount)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.sync != nil {
			commit()
			close(r.sync)
			continue
		}
		if insert == nil {
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		e := r.entry
		if _, err := tx.Stmt(insert).Exec(
			e.ID.String(),
			e.RecordID,
			e.RecordType,
			e.RecordName,
			string(e.Action),
			e.ActorID,
			e.ActorName,
			e.At.UTC().Format(time.RFC3339Nano),
		); err != nil {
			s.logger.Error("Failed to index audit entry", "id", e.ID, "error", err)
			continue
		}
		opCount++

		// Commit when the batch is large, stale, or the queue has drained.
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}
