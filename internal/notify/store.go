package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Store is the in-app inbox: each emitted message becomes one notifications row.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type row struct {
	ID           string `db:"id"`
	RecipientID  string `db:"recipient_id"`
	Kind         string `db:"kind"`
	Title        string `db:"title"`
	Body         string `db:"body"`
	MetadataJSON string `db:"metadata_json"`
	IsRead       bool   `db:"is_read"`
	CreatedAt    int64  `db:"created_at"`
}

func (s *Store) Emit(ctx context.Context, m Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	meta, err := json.Marshal(m.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if m.Metadata == nil {
		meta = []byte("{}")
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, kind, title, body, metadata_json, is_read, created_at)
		VALUES (:id, :recipient_id, :kind, :title, :body, :metadata_json, :is_read, :created_at)`,
		row{
			ID:           m.ID,
			RecipientID:  m.RecipientID,
			Kind:         m.Kind,
			Title:        m.Title,
			Body:         m.Body,
			MetadataJSON: string(meta),
			IsRead:       m.IsRead,
			CreatedAt:    m.CreatedAt.UnixMilli(),
		})
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListForRecipient returns a page of notifications, newest first, and the total count.
func (s *Store) ListForRecipient(ctx context.Context, recipientID string, limit, offset int) ([]Message, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := s.db.GetContext(ctx, &total, s.db.Rebind(
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ?`), recipientID); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	var rows []row
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, recipient_id, kind, title, body, metadata_json, is_read, created_at
		FROM notifications
		WHERE recipient_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`), recipientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get notifications: %w", err)
	}

	out := make([]Message, 0, len(rows))
	for _, r := range rows {
		m := Message{
			ID:          r.ID,
			RecipientID: r.RecipientID,
			Kind:        r.Kind,
			Title:       r.Title,
			Body:        r.Body,
			IsRead:      r.IsRead,
			CreatedAt:   time.UnixMilli(r.CreatedAt).UTC(),
		}
		_ = json.Unmarshal([]byte(r.MetadataJSON), &m.Metadata)
		out = append(out, m)
	}
	return out, total, nil
}

// MarkRead flags one of the recipient's notifications as read. It reports
// false when no such notification exists.
func (s *Store) MarkRead(ctx context.Context, recipientID, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE notifications SET is_read = ? WHERE id = ? AND recipient_id = ?`), true, id, recipientID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
