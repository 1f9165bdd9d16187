package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/datingapp/internal/domain/model"
	"github.com/ivankudzin/datingapp/internal/pkg/paging"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	// ErrNoRowsAffected is returned when a mutation that must touch a row
	// touched none.
	ErrNoRowsAffected = errors.New("no rows affected")
)

const messageColumns = `
	m.id,
	m.sender_id,
	m.recipient_id,
	m.content,
	m.message_sent,
	m.is_read,
	m.date_read,
	m.sender_deleted,
	m.recipient_deleted`

// Placeholders $1 (user id) and $2 (container) are shared by count and list.
const mailboxWhere = `
WHERE
	(
		$2::text = 'Inbox'
		AND m.recipient_id = $1
		AND m.recipient_deleted = FALSE
	)
	OR (
		$2::text = 'Outbox'
		AND m.sender_id = $1
		AND m.sender_deleted = FALSE
	)
	OR (
		$2::text = 'Unread'
		AND m.recipient_id = $1
		AND m.recipient_deleted = FALSE
		AND m.is_read = FALSE
	)`

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) FindByID(ctx context.Context, messageID int64) (model.Message, error) {
	if r.pool == nil {
		return model.Message{}, fmt.Errorf("postgres pool is nil")
	}
	if messageID <= 0 {
		return model.Message{}, ErrMessageNotFound
	}

	msg, err := scanMessage(r.pool.QueryRow(ctx, `
SELECT`+messageColumns+`
FROM messages m
WHERE m.id = $1
`, messageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Message{}, ErrMessageNotFound
		}
		return model.Message{}, fmt.Errorf("find message by id: %w", err)
	}

	return msg, nil
}

// ListThread returns the conversation between userID and otherID as userID
// sees it, newest first.
func (r *MessageRepo) ListThread(ctx context.Context, userID, otherID int64) ([]model.Message, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+messageColumns+`
FROM messages m
WHERE
	(m.recipient_id = $1 AND m.recipient_deleted = FALSE AND m.sender_id = $2)
	OR (m.sender_id = $1 AND m.sender_deleted = FALSE AND m.recipient_id = $2)
ORDER BY m.message_sent DESC, m.id DESC
`, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func (r *MessageRepo) QueryMailbox(q model.MailboxQuery) paging.Sequence[model.Message] {
	return &mailboxSequence{pool: r.pool, query: q}
}

func (r *MessageRepo) Create(ctx context.Context, msg model.Message) (model.Message, error) {
	if r.pool == nil {
		return model.Message{}, fmt.Errorf("postgres pool is nil")
	}
	if msg.SenderID <= 0 || msg.RecipientID <= 0 {
		return model.Message{}, fmt.Errorf("invalid message payload")
	}
	if msg.MessageSent.IsZero() {
		msg.MessageSent = time.Now().UTC()
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO messages (
	sender_id,
	recipient_id,
	content,
	message_sent,
	is_read,
	sender_deleted,
	recipient_deleted
) VALUES ($1, $2, $3, $4, FALSE, FALSE, FALSE)
RETURNING id
`, msg.SenderID, msg.RecipientID, msg.Content, msg.MessageSent.UTC()).Scan(&msg.ID)
	if err != nil {
		return model.Message{}, fmt.Errorf("create message: %w", err)
	}

	return msg, nil
}

func (r *MessageRepo) MarkSenderDeleted(ctx context.Context, messageID int64) error {
	return r.execOne(ctx, "mark sender deleted", `
UPDATE messages
SET sender_deleted = TRUE
WHERE id = $1
`, messageID)
}

func (r *MessageRepo) MarkRecipientDeleted(ctx context.Context, messageID int64) error {
	return r.execOne(ctx, "mark recipient deleted", `
UPDATE messages
SET recipient_deleted = TRUE
WHERE id = $1
`, messageID)
}

// MarkRead flips is_read and keeps the first date_read. The stored date_read
// is returned.
func (r *MessageRepo) MarkRead(ctx context.Context, messageID int64, at time.Time) (time.Time, error) {
	if r.pool == nil {
		return time.Time{}, fmt.Errorf("postgres pool is nil")
	}

	var dateRead time.Time
	err := r.pool.QueryRow(ctx, `
UPDATE messages
SET is_read = TRUE, date_read = COALESCE(date_read, $2)
WHERE id = $1
RETURNING date_read
`, messageID, at.UTC()).Scan(&dateRead)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrNoRowsAffected
		}
		return time.Time{}, fmt.Errorf("mark message read: %w", err)
	}

	return dateRead, nil
}

// RemoveIfFullyDeleted deletes the row only when both parties deleted it.
func (r *MessageRepo) RemoveIfFullyDeleted(ctx context.Context, messageID int64) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM messages
WHERE id = $1 AND sender_deleted = TRUE AND recipient_deleted = TRUE
`, messageID)
	if err != nil {
		return false, fmt.Errorf("remove fully deleted message: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *MessageRepo) PurgeFullyDeleted(ctx context.Context, limit int) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 500
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM messages
WHERE id IN (
	SELECT id
	FROM messages
	WHERE sender_deleted = TRUE AND recipient_deleted = TRUE
	ORDER BY id
	LIMIT $1
)
`, limit)
	if err != nil {
		return 0, fmt.Errorf("purge fully deleted messages: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *MessageRepo) execOne(ctx context.Context, op, query string, messageID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, query, messageID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoRowsAffected)
	}

	return nil
}

type mailboxSequence struct {
	pool  *pgxpool.Pool
	query model.MailboxQuery
}

func (s *mailboxSequence) Count(ctx context.Context) (int, error) {
	if s.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	if err := s.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM messages m`+mailboxWhere,
		s.query.UserID, string(s.query.Container),
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count mailbox: %w", err)
	}

	return count, nil
}

func (s *mailboxSequence) Slice(ctx context.Context, offset, limit int) ([]model.Message, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := s.pool.Query(ctx, `
SELECT`+messageColumns+`
FROM messages m`+mailboxWhere+`
ORDER BY m.message_sent DESC, m.id DESC
LIMIT $3 OFFSET $4
`, s.query.UserID, string(s.query.Container), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list mailbox: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]model.Message, error) {
	items := make([]model.Message, 0, 16)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, msg)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate messages: %w", rows.Err())
	}

	return items, nil
}

func scanMessage(row pgx.Row) (model.Message, error) {
	var msg model.Message
	if err := row.Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.RecipientID,
		&msg.Content,
		&msg.MessageSent,
		&msg.IsRead,
		&msg.DateRead,
		&msg.SenderDeleted,
		&msg.RecipientDeleted,
	); err != nil {
		return model.Message{}, err
	}

	return msg, nil
}
