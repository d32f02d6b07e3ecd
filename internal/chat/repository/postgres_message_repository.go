package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"social_chat_sync/internal/chat/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const messagesSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	sender_id   TEXT NOT NULL,
	receiver_id TEXT NULL,
	group_id    TEXT NULL,
	content     TEXT NOT NULL DEFAULT '',
	is_read     BOOLEAN NOT NULL DEFAULT false,
	image_url   TEXT NULL,
	reactions   JSONB NOT NULL DEFAULT '{}'::jsonb,
	CHECK ((receiver_id IS NULL) <> (group_id IS NULL))
);
CREATE INDEX IF NOT EXISTS messages_group_created_idx ON messages (group_id, created_at);
CREATE INDEX IF NOT EXISTS messages_pair_created_idx ON messages (sender_id, receiver_id, created_at);
`

const messageColumns = `id, created_at, sender_id, receiver_id, group_id, content, is_read, image_url, reactions`

type postgresMessageRepository struct {
	db *pgxpool.Pool
}

// NewPostgresMessageRepository create a MessageRepository on the relational backend
func NewPostgresMessageRepository(db *pgxpool.Pool) MessageRepository {
	return &postgresMessageRepository{db: db}
}

// Migrate creates the messages table when missing
func (r *postgresMessageRepository) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, messagesSchema)
	return err
}

func (r *postgresMessageRepository) CreateMessage(ctx context.Context, msg domain.NewMessage) (domain.Message, error) {
	var receiver, group, image *string
	if msg.Key.IsGroup {
		group = &msg.Key.ID
	} else {
		receiver = &msg.Key.ID
	}
	if msg.MediaRef != "" {
		image = &msg.MediaRef
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO messages (sender_id, receiver_id, group_id, content, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+messageColumns,
		msg.SenderID, receiver, group, msg.Content, image,
	)
	return scanMessage(row)
}

func (r *postgresMessageRepository) UpdateMessage(ctx context.Context, id string, patch domain.MessagePatch) error {
	if patch.IsRead == nil && patch.Reactions == nil {
		return nil
	}

	var reactions []byte
	if patch.Reactions != nil {
		b, err := json.Marshal(map[string][]string(patch.Reactions))
		if err != nil {
			return fmt.Errorf("marshal reactions: %w", err)
		}
		reactions = b
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_read   = COALESCE($2, is_read),
		    reactions = COALESCE($3::jsonb, reactions)
		WHERE id = $1`,
		id, patch.IsRead, nullableJSON(reactions),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *postgresMessageRepository) DeleteMessage(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM messages WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListMessages either direction for peers, by group_id for groups
func (r *postgresMessageRepository) ListMessages(ctx context.Context, key domain.ConversationKey, actorID string) ([]domain.Message, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if key.IsGroup {
		rows, err = r.db.Query(ctx, `
			SELECT `+messageColumns+` FROM messages
			WHERE group_id = $1
			ORDER BY created_at ASC, id ASC`, key.ID)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT `+messageColumns+` FROM messages
			WHERE group_id IS NULL
			  AND ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
			ORDER BY created_at ASC, id ASC`, actorID, key.ID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *postgresMessageRepository) MarkRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, "UPDATE messages SET is_read = true WHERE id = ANY($1)", ids)
	return err
}

func scanMessage(row pgx.Row) (domain.Message, error) {
	var (
		rec       domain.WireRecord
		createdAt time.Time
		reactions []byte
	)
	err := row.Scan(&rec.ID, &createdAt, &rec.SenderID, &rec.ReceiverID, &rec.GroupID,
		&rec.Content, &rec.IsRead, &rec.ImageURL, &reactions)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Message{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}

	if len(reactions) > 0 {
		if err := json.Unmarshal(reactions, &rec.Reactions); err != nil {
			return domain.Message{}, fmt.Errorf("message %s reactions: %w", rec.ID, err)
		}
	}
	rec.CreatedAt = createdAt.UTC().Format(time.RFC3339Nano)
	return rec.ToMessage()
}

func nullableJSON(b []byte) *string {
	if b == nil {
		return nil
	}
	s := string(b)
	return &s
}
