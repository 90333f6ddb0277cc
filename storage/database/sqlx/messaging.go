package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campusdesk/core/messaging"
)

const messageColumns = `id, course_id, sender_id, recipient_id, is_broadcast, category, content, expires_at, created_at`

type messageRow struct {
	ID          string      `db:"id"`
	CourseID    string      `db:"course_id"`
	SenderID    string      `db:"sender_id"`
	RecipientID null.String `db:"recipient_id"`
	IsBroadcast bool        `db:"is_broadcast"`
	Category    string      `db:"category"`
	Content     string      `db:"content"`
	ExpiresAt   time.Time   `db:"expires_at"`
	CreatedAt   time.Time   `db:"created_at"`
}

type messageRepository struct {
	db *sqlx.DB
}

var _ messaging.Repository = (*messageRepository)(nil)

func NewMessageRepository(db *sqlx.DB) messaging.Repository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) boil(msg messaging.Message) messageRow {
	return messageRow{
		ID:          msg.ID,
		CourseID:    msg.CourseID,
		SenderID:    msg.SenderID,
		RecipientID: nullString(msg.RecipientID),
		IsBroadcast: msg.IsBroadcast,
		Category:    msg.Category,
		Content:     msg.Content,
		ExpiresAt:   msg.ExpiresAt.UTC(),
		CreatedAt:   msg.CreatedAt.UTC(),
	}
}

func (repo *messageRepository) unboil(row messageRow) messaging.Message {
	return messaging.Message{
		ID:          row.ID,
		CourseID:    row.CourseID,
		SenderID:    row.SenderID,
		RecipientID: row.RecipientID.String,
		IsBroadcast: row.IsBroadcast,
		Category:    row.Category,
		Content:     row.Content,
		ExpiresAt:   row.ExpiresAt.UTC(),
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

func (repo *messageRepository) CreateMessage(ctx context.Context, msg messaging.Message) (messaging.Message, error) {
	msg.ID = uuid.New().String()
	row := repo.boil(msg)
	q := `INSERT INTO message (` + messageColumns + `) VALUES (:id, :course_id, :sender_id, :recipient_id,
		:is_broadcast, :category, :content, :expires_at, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return messaging.Message{}, errors.Wrap(err, "inserting message")
	}
	return repo.unboil(row), nil
}

func (repo *messageRepository) QueryMessages(ctx context.Context, filter messaging.QueryFilter) ([]messaging.Message, error) {
	w := &where{}
	if filter.CourseID != "" {
		w.add("course_id = ?", filter.CourseID)
	}
	if !filter.Now.IsZero() {
		w.add("expires_at > ?", filter.Now.UTC())
	}
	if filter.RecipientID != "" {
		w.add("(is_broadcast OR recipient_id = ?)", filter.RecipientID)
	}

	q, args, err := w.build(repo.db, `SELECT `+messageColumns+` FROM message`+w.String()+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	var rows []messageRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	msgs := make([]messaging.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, repo.unboil(r))
	}
	return msgs, nil
}

func (repo *messageRepository) DeleteExpiredMessages(ctx context.Context, now time.Time) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM message WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired messages")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "deleting expired messages")
}
