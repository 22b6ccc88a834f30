package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handbridge/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

var rawMessageColumns = []string{
	"session_alias", "session_group", "direction", "sequence", "ts",
	"protocol", "properties", "parent_event_id", "body",
}

const (
	sqlInsertEvent = `
        INSERT INTO events (id, parent_id, name, type, status, start_ts, end_ts, body)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
    `
	sqlAttachMessage = `
        INSERT INTO event_messages (event_id, session_alias, direction, sequence)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT DO NOTHING;
    `
	sqlMessagesByEvent = `
        SELECT session_alias, session_group, direction, sequence, ts, protocol, properties, parent_event_id, body
        FROM raw_messages
        WHERE parent_event_id = $1
        ORDER BY sequence ASC;
    `
)

// Store is the PostgreSQL message and event sink.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

func (s *Store) rollback(ctx context.Context, tx pgx.Tx) {
	// Rollback after a successful commit reports ErrTxClosed, which is expected.
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		s.log.Error("Failed to rollback transaction", zap.Error(err))
	}
}

// SendBatch copies a batch of raw messages in one transaction.
func (s *Store) SendBatch(ctx context.Context, batch []*schemas.RawMessage) error {
	if len(batch) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(batch))
	for _, m := range batch {
		props, err := encodeProperties(m.Properties)
		if err != nil {
			return err
		}
		rows = append(rows, []interface{}{
			m.ID.SessionAlias, m.ID.SessionGroup, string(m.ID.Direction), m.ID.Sequence,
			m.Timestamp.UTC(),
			m.Protocol, props, nullable(m.ParentEventID), m.Body,
		})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"raw_messages"}, rawMessageColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy raw messages: %w", err)
	}
	if int(copyCount) != len(rows) {
		return fmt.Errorf("mismatch in copied messages count: expected %d, got %d", len(rows), copyCount)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// StoreEvent inserts the event and links its attached messages.
func (s *Store) StoreEvent(ctx context.Context, event *schemas.Event) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	body := event.Body
	if len(body) == 0 {
		body = []byte("[]")
	}
	if _, err := tx.Exec(ctx, sqlInsertEvent,
		event.ID, nullable(event.ParentID), event.Name, event.Type, string(event.Status),
		event.StartTimestamp.UTC(), event.EndTimestamp.UTC(), body,
	); err != nil {
		return fmt.Errorf("failed to insert event %s: %w", event.ID, err)
	}

	if err := s.attachMessages(ctx, tx, event); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) attachMessages(ctx context.Context, tx pgx.Tx, event *schemas.Event) error {
	if len(event.AttachedMessageIDs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, id := range event.AttachedMessageIDs {
		batch.Queue(sqlAttachMessage, event.ID, id.SessionAlias, string(id.Direction), id.Sequence)
	}

	br := tx.SendBatch(ctx, batch)
	if br == nil {
		return fmt.Errorf("failed to send batch: batch results is nil")
	}
	defer func() {
		_ = br.Close()
	}()

	for i, id := range event.AttachedMessageIDs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to attach message %s (index %d): %w", id, i, err)
		}
	}
	return nil
}

// MessagesByEvent returns the raw messages whose parent is eventID, in
// sequence order.
func (s *Store) MessagesByEvent(ctx context.Context, eventID string) ([]*schemas.RawMessage, error) {
	rows, err := s.pool.Query(ctx, sqlMessagesByEvent, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var out []*schemas.RawMessage
	for rows.Next() {
		var (
			m         schemas.RawMessage
			direction string
			props     []byte
			parent    *string
			ts        time.Time
		)
		if err := rows.Scan(
			&m.ID.SessionAlias, &m.ID.SessionGroup, &direction, &m.ID.Sequence, &ts,
			&m.Protocol, &props, &parent, &m.Body,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.ID.Direction = schemas.Direction(direction)
		m.Timestamp = ts.UTC()
		if parent != nil {
			m.ParentEventID = *parent
		}
		if len(props) > 0 && string(props) != "{}" && string(props) != "null" {
			if err := json.Unmarshal(props, &m.Properties); err != nil {
				return nil, fmt.Errorf("failed to decode properties of message %s: %w", m.ID, err)
			}
		}
		out = append(out, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}

// Close is a no-op; the pool belongs to whoever created it.
func (s *Store) Close() error { return nil }

func encodeProperties(props map[string]string) ([]byte, error) {
	if len(props) == 0 {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message properties: %w", err)
	}
	return data, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ schemas.Sink = (*Store)(nil)
