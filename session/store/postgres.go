package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/sweetpotato0/mcpx-agents/message"
)

// DefaultPostgresTable is the table used when none is configured.
const DefaultPostgresTable = "conversation_items"

// PostgresStore keeps conversation items as JSONB rows ordered by sequence.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	DSN   string
	Table string
}

// NewPostgresStore opens the database, pings it and creates the table.
func NewPostgresStore(ctx context.Context, config *PostgresConfig) (*PostgresStore, error) {
	if config == nil || config.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	store, err := NewPostgresStoreWithDB(ctx, db, config.Table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithDB uses an existing handle and ensures the table exists.
func NewPostgresStoreWithDB(ctx context.Context, db *sql.DB, table string) (*PostgresStore, error) {
	if table == "" {
		table = DefaultPostgresTable
	}
	if err := validateIdentifier(table); err != nil {
		return nil, err
	}

	store := &PostgresStore{db: db, table: table}
	if err := store.createTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) createTable(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		seq BIGSERIAL PRIMARY KEY,
		conversation_id VARCHAR(255) NOT NULL,
		role VARCHAR(32) NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_conversation ON %[1]s(conversation_id, seq);
	`, s.table)

	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Load returns the conversation in insertion order.
func (s *PostgresStore) Load(ctx context.Context, conversationID string) ([]*message.Message, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE conversation_id = $1 ORDER BY seq ASC`, s.table)

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	defer rows.Close()

	var msgs []*message.Message
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan conversation item: %w", err)
		}
		msg, err := message.Unmarshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode conversation item: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation items: %w", err)
	}
	return msgs, nil
}

// Append inserts all items in a single transaction.
func (s *PostgresStore) Append(ctx context.Context, conversationID string, msgs ...*message.Message) error {
	if err := validateID(conversationID); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := fmt.Sprintf(`INSERT INTO %s (conversation_id, role, payload) VALUES ($1, $2, $3)`, s.table)
	for _, msg := range msgs {
		payload, err := message.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal conversation item: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, conversationID, string(msg.Role), string(payload)); err != nil {
			return fmt.Errorf("failed to insert conversation item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation items: %w", err)
	}
	return nil
}

// Clear deletes all items of the conversation.
func (s *PostgresStore) Clear(ctx context.Context, conversationID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE conversation_id = $1`, s.table)
	if _, err := s.db.ExecContext(ctx, query, conversationID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
