package notify

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"tutorlink/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS notifications (
	user_id    TEXT NOT NULL,
	id         TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0,
	position   INTEGER NOT NULL,
	PRIMARY KEY (user_id, id)
);

CREATE TABLE IF NOT EXISTS unread_counts (
	user_id TEXT PRIMARY KEY,
	count   INTEGER NOT NULL
);
`

// writeOperation is one queued cache write.
type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// Store is the durable per-user notification cache. All writes funnel
// through a single goroutine, which is what sqlite wants, and every save is
// a whole-value replacement of the user's rows: last writer wins.
type Store struct {
	db      *sql.DB
	writeCh chan writeOperation
	done    chan struct{}
	wg      sync.WaitGroup
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// OpenStore opens (and if needed creates) the cache database at path.
func OpenStore(path string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open notification cache: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	s := &Store{
		db:      db,
		writeCh: make(chan writeOperation, 100),
		done:    make(chan struct{}),
		logger:  logger.With().Str("component", "notify-store").Logger(),
	}

	s.wg.Add(1)
	go s.writeLoop()
	return s, nil
}

func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeCh:
			op.result <- op.operation(s.db)
		case <-s.done:
			return
		}
	}
}

func (s *Store) executeWrite(operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	s.mu.RUnlock()

	result := make(chan error, 1)
	select {
	case s.writeCh <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-time.After(10 * time.Second):
		return ErrWriteTimeout
	case <-s.done:
		return ErrStoreClosed
	}
}

// Save replaces the user's cached notifications and unread count in one
// transaction.
func (s *Store) Save(userID string, notifications []types.Notification, unread int) error {
	return s.executeWrite(func(db *sql.DB) error {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin cache write: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.Exec("DELETE FROM notifications WHERE user_id = ?", userID); err != nil {
			return fmt.Errorf("failed to clear cached notifications: %w", err)
		}

		stmt, err := tx.Prepare(`INSERT INTO notifications
			(user_id, id, title, content, type, created_at, read, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare cache insert: %w", err)
		}
		defer stmt.Close()

		for i, n := range notifications {
			read := 0
			if n.Read {
				read = 1
			}
			if _, err := stmt.Exec(userID, n.ID, n.Title, n.Content, n.Type, n.CreatedAt, read, i); err != nil {
				return fmt.Errorf("failed to cache notification %s: %w", n.ID, err)
			}
		}

		if _, err := tx.Exec(`INSERT INTO unread_counts (user_id, count) VALUES (?, ?)
			ON CONFLICT(user_id) DO UPDATE SET count = excluded.count`, userID, unread); err != nil {
			return fmt.Errorf("failed to cache unread count: %w", err)
		}

		return tx.Commit()
	})
}

// Load returns the user's cached notifications in saved order plus the
// cached unread count. A user with no cache yields an empty list and zero.
func (s *Store) Load(userID string) ([]types.Notification, int, error) {
	rows, err := s.db.Query(`SELECT id, title, content, type, created_at, read
		FROM notifications WHERE user_id = ? ORDER BY position`, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load cached notifications: %w", err)
	}
	defer rows.Close()

	var notifications []types.Notification
	for rows.Next() {
		var n types.Notification
		var read int
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.Type, &n.CreatedAt, &read); err != nil {
			return nil, 0, fmt.Errorf("failed to scan cached notification: %w", err)
		}
		n.UserID = userID
		n.Read = read != 0
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read cached notifications: %w", err)
	}

	var unread int
	err = s.db.QueryRow("SELECT count FROM unread_counts WHERE user_id = ?", userID).Scan(&unread)
	if err != nil && err != sql.ErrNoRows {
		return nil, 0, fmt.Errorf("failed to load unread count: %w", err)
	}

	return notifications, unread, nil
}

// Close stops the writer and closes the database. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
	return s.db.Close()
}
