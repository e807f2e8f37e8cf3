// Package history provides the SQLite-backed message log of a conversation.
// The log is append-only: rows are inserted one per turn and only ever
// removed all together by Clear.
package history

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/glebarez/go-sqlite"
	"golang.org/x/text/cases"

	"github.com/comigor/meditranslate-go/internal/errs"
	"github.com/comigor/meditranslate-go/internal/logger"
)

const schema = `CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    role TEXT,
    original_text TEXT,
    translated_text TEXT,
    audio_path TEXT,
    timestamp DATETIME DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
);`

const selectColumns = `SELECT id, role, original_text, translated_text, audio_path, timestamp FROM messages`

// Store is the message log. It is safe for concurrent use; cross-process
// writers are arbitrated by SQLite's file locking and busy timeout.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the SQLite file at path. Call Init before use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errs.Storage("open", path, err)
	}
	// One connection per process: SQLite serializes writers anyway and this
	// keeps in-process writers from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return &Store{db: db, path: path}, nil
}

// Init ensures the messages table exists. Safe to call on every start.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errs.Storage("init", s.path, err)
	}
	logger.L.Info("sqlite message log initialized", "path", s.path)
	return nil
}

// Append inserts one turn. The id and timestamp are assigned by the database.
// An empty audioPath is stored as NULL.
func (s *Store) Append(ctx context.Context, role Role, original, translated, audioPath string) (Message, error) {
	msg := Message{
		Role:           role,
		OriginalText:   original,
		TranslatedText: translated,
		AudioPath:      audioPath,
	}
	audio := sql.NullString{String: audioPath, Valid: audioPath != ""}

	var ts sqlTime
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO messages (role, original_text, translated_text, audio_path) VALUES (?,?,?,?) RETURNING id, timestamp;`,
		string(role), original, translated, audio,
	).Scan(&msg.ID, &ts)
	if err != nil {
		logger.FromContext(ctx).Error("failed to store message", "error", err)
		return Message{}, errs.Storage("append", s.path, err)
	}
	msg.Timestamp = ts.Time
	return msg, nil
}

// All returns every turn in timestamp order, oldest first.
func (s *Store) All(ctx context.Context) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY timestamp ASC, id ASC;`)
	if err != nil {
		return nil, errs.Storage("scan", s.path, err)
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var (
			m          Message
			role       sql.NullString
			original   sql.NullString
			translated sql.NullString
			audio      sql.NullString
			ts         sqlTime
		)
		if err := rows.Scan(&m.ID, &role, &original, &translated, &audio, &ts); err != nil {
			return nil, errs.Storage("scan", s.path, err)
		}
		m.Role = Role(role.String)
		m.OriginalText = original.String
		m.TranslatedText = translated.String
		m.AudioPath = audio.String
		m.Timestamp = ts.Time
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage("scan", s.path, err)
	}
	return out, nil
}

// Search returns the turns whose original or translated text contains query,
// ignoring case (full Unicode case folding). Order matches All. An empty query
// matches every turn.
func (s *Store) Search(ctx context.Context, query string) ([]Message, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return all, nil
	}

	fold := cases.Fold()
	needle := fold.String(query)
	out := make([]Message, 0)
	for _, m := range all {
		if strings.Contains(fold.String(m.OriginalText), needle) ||
			strings.Contains(fold.String(m.TranslatedText), needle) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Clear deletes every turn. Referenced audio files are left on disk.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages;`); err != nil {
		return errs.Storage("clear", s.path, err)
	}
	logger.FromContext(ctx).Info("message log cleared")
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
