package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatrelay/pkg/chat"
)

// SQLStore persists conversation messages in a message_store table, one
// JSON-encoded role/content object per row. Supported drivers are "sqlite3"
// (embedded file database) and "postgres".
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

var schemaSQLite = []string{
	`CREATE TABLE IF NOT EXISTS message_store (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_message_store_session_id ON message_store(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_message_store_created_at ON message_store(created_at)`,
}

var schemaPostgres = []string{
	`CREATE TABLE IF NOT EXISTS message_store (
		id SERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_message_store_session_id ON message_store(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_message_store_created_at ON message_store(created_at)`,
}

// NewSQLStore opens the database and creates the schema if needed.
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(chat.ErrStorageUnavailable, "open %s store: %v", driver, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(chat.ErrStorageUnavailable, "ping %s store: %v", driver, err)
	}
	s := &SQLStore{db: db, driver: driver}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) init() error {
	schema := schemaSQLite
	if s.driver == "postgres" {
		schema = schemaPostgres
		if err := s.migrateLegacyJSONB(); err != nil {
			return err
		}
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrapf(chat.ErrStorageUnavailable, "init schema: %v", err)
		}
	}
	return nil
}

// migrateLegacyJSONB drops a message_store table whose message column is
// JSONB. That encoding predates the structured TEXT one; the two are
// incompatible on disk, so the legacy table is recreated rather than
// branched on.
func (s *SQLStore) migrateLegacyJSONB() error {
	var colType string
	err := s.db.Get(&colType,
		`SELECT data_type FROM information_schema.columns
		 WHERE table_name = 'message_store' AND column_name = 'message'`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(chat.ErrStorageUnavailable, "inspect message_store schema: %v", err)
	}
	if colType != "jsonb" {
		return nil
	}
	log.Warn().Msg("found message_store with legacy jsonb column, dropping for recreation")
	if _, err := s.db.Exec(`DROP TABLE IF EXISTS message_store`); err != nil {
		return errors.Wrapf(chat.ErrStorageUnavailable, "drop legacy message_store: %v", err)
	}
	return nil
}

func (s *SQLStore) Messages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	query := s.db.Rebind(`SELECT message FROM message_store WHERE session_id = ? ORDER BY id`)
	rows, err := s.db.QueryxContext(ctx, query, sessionID)
	if err != nil {
		return nil, errors.Wrapf(chat.ErrStorageUnavailable, "query messages: %v", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []chat.Message
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrapf(chat.ErrStorageUnavailable, "scan message row: %v", err)
		}
		msg, err := decodeMessage(raw)
		if err != nil {
			return nil, errors.Wrapf(chat.ErrCorruptSession, "session %q: %v", sessionID, err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(chat.ErrStorageUnavailable, "iterate message rows: %v", err)
	}
	return out, nil
}

func (s *SQLStore) Append(ctx context.Context, sessionID string, msg chat.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "encode message")
	}
	query := s.db.Rebind(`INSERT INTO message_store (session_id, message, created_at) VALUES (?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, sessionID, string(payload), time.Now()); err != nil {
		return errors.Wrapf(chat.ErrStorageUnavailable, "insert message: %v", err)
	}
	return nil
}

func (s *SQLStore) ListSessions(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		`SELECT session_id FROM message_store
		 GROUP BY session_id
		 HAVING COUNT(*) > 1
		 ORDER BY session_id DESC`)
	if err != nil {
		return nil, errors.Wrapf(chat.ErrStorageUnavailable, "list sessions: %v", err)
	}
	return ids, nil
}

func (s *SQLStore) DeleteSession(ctx context.Context, sessionID string) error {
	query := s.db.Rebind(`DELETE FROM message_store WHERE session_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, sessionID); err != nil {
		return errors.Wrapf(chat.ErrStorageUnavailable, "delete session rows: %v", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// decodeMessage parses one stored row into a message, rejecting rows whose
// role is not one of the three known roles.
func decodeMessage(raw string) (chat.Message, error) {
	var m chat.Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return chat.Message{}, errors.Wrap(err, "decode message json")
	}
	if !m.Role.Valid() {
		return chat.Message{}, errors.Errorf("unknown role %q", m.Role)
	}
	return m, nil
}

var _ chat.MessageStore = (*SQLStore)(nil)
