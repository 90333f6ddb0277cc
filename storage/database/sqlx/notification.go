package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campusdesk/core/notification"
)

const notificationColumns = `id, recipient_id, kind, title, message, link, is_read, created_at, read_at`

type notificationRow struct {
	ID          string    `db:"id"`
	RecipientID string    `db:"recipient_id"`
	Kind        string    `db:"kind"`
	Title       string    `db:"title"`
	Message     string    `db:"message"`
	Link        string    `db:"link"`
	IsRead      bool      `db:"is_read"`
	CreatedAt   time.Time `db:"created_at"`
	ReadAt      null.Time `db:"read_at"`
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) boil(n notification.Notification) notificationRow {
	return notificationRow{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Kind:        string(n.Kind),
		Title:       n.Title,
		Message:     n.Message,
		Link:        n.Link,
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt.UTC(),
		ReadAt:      null.NewTime(n.ReadAt.UTC(), !n.ReadAt.IsZero()),
	}
}

func (repo *notificationRepository) unboil(row notificationRow) notification.Notification {
	return notification.Notification{
		ID:          row.ID,
		RecipientID: row.RecipientID,
		Kind:        notification.Kind(row.Kind),
		Title:       row.Title,
		Message:     row.Message,
		Link:        row.Link,
		IsRead:      row.IsRead,
		CreatedAt:   row.CreatedAt.UTC(),
		ReadAt:      row.ReadAt.Time.UTC(),
	}
}

// CreateNotifications inserts the whole batch in a single statement.
func (repo *notificationRepository) CreateNotifications(ctx context.Context, notifs ...notification.Notification) ([]notification.Notification, error) {
	if len(notifs) == 0 {
		return []notification.Notification{}, nil
	}
	rows := make([]notificationRow, 0, len(notifs))
	for _, n := range notifs {
		n.ID = uuid.New().String()
		rows = append(rows, repo.boil(n))
	}
	q := `INSERT INTO notification (` + notificationColumns + `) VALUES (:id, :recipient_id, :kind, :title,
		:message, :link, :is_read, :created_at, :read_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, rows); err != nil {
		return nil, errors.Wrap(err, "inserting notifications")
	}

	created := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		created = append(created, repo.unboil(r))
	}
	return created, nil
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, recipientID string, filter notification.QueryFilter) ([]notification.Notification, error) {
	w := &where{}
	w.add("recipient_id = ?", recipientID)
	if filter.Unread {
		w.add("NOT is_read")
	}
	query := `SELECT ` + notificationColumns + ` FROM notification` + w.String() + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		w.args = append(w.args, filter.Limit)
	}

	q, args, err := w.build(repo.db, query)
	if err != nil {
		return nil, err
	}
	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifs = append(notifs, repo.unboil(r))
	}
	return notifs, nil
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notification.Notification{}, notification.ErrNotFound
	}
	var row notificationRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+notificationColumns+` FROM notification WHERE id = $1`, id); err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "finding notification")
	}
	return repo.unboil(row), nil
}

func (repo *notificationRepository) UpdateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	row := repo.boil(n)
	res, err := repo.db.NamedExecContext(ctx, `UPDATE notification SET is_read = :is_read, read_at = :read_at WHERE id = :id`, row)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "updating notification")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return notification.Notification{}, notification.ErrNotFound
	}
	return repo.unboil(row), nil
}

func (repo *notificationRepository) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE notification SET is_read = TRUE, read_at = $2 WHERE recipient_id = $1 AND NOT is_read`,
		recipientID, at.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "marking notifications read")
}
