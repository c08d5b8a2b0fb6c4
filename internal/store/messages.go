package store

import (
	"context"
	"fmt"
	"time"
)

// Message is a free-form reviewer note.
type Message struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text"`
}

func (s *Store) CreateMessage(ctx context.Context, text string) (Message, error) {
	created := s.timestamp()
	res, err := s.db.ExecContext(ctx, `INSERT INTO messages (created_at, text) VALUES (?, ?)`, created, text)
	if err != nil {
		return Message{}, fmt.Errorf("inserting message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Message{}, err
	}
	return Message{ID: id, CreatedAt: parseTime(created), Text: text}, nil
}

// ListMessages returns all messages oldest first.
func (s *Store) ListMessages(ctx context.Context) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, text FROM messages ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		var created string
		if err := rows.Scan(&m.ID, &created, &m.Text); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.CreatedAt = parseTime(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) DeleteMessage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return expectRow(res, "message", id)
}
