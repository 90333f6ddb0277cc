package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/complaint"
)

const complaintColumns = `id, title, description, category, priority, status, submitted_by, assigned_to,
	resolution_text, resolved_by, resolved_at, created_at, updated_at`

type (
	complaintRow struct {
		ID             string      `db:"id"`
		Title          string      `db:"title"`
		Description    string      `db:"description"`
		Category       string      `db:"category"`
		Priority       string      `db:"priority"`
		Status         string      `db:"status"`
		SubmittedBy    string      `db:"submitted_by"`
		AssignedTo     null.String `db:"assigned_to"`
		ResolutionText null.String `db:"resolution_text"`
		ResolvedBy     null.String `db:"resolved_by"`
		ResolvedAt     null.Time   `db:"resolved_at"`
		CreatedAt      time.Time   `db:"created_at"`
		UpdatedAt      time.Time   `db:"updated_at"`
	}

	commentRow struct {
		ID          int64     `db:"id"`
		ComplaintID string    `db:"complaint_id"`
		AuthorID    string    `db:"author_id"`
		AuthorName  string    `db:"author_name"`
		Text        string    `db:"text"`
		CreatedAt   time.Time `db:"created_at"`
	}
)

type complaintRepository struct {
	db *sqlx.DB
}

var _ complaint.Repository = (*complaintRepository)(nil)

func NewComplaintRepository(db *sqlx.DB) complaint.Repository {
	return &complaintRepository{db: db}
}

func (repo *complaintRepository) boil(c complaint.Complaint) complaintRow {
	row := complaintRow{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Category:    string(c.Category),
		Priority:    string(c.Priority),
		Status:      string(c.Status),
		SubmittedBy: c.SubmittedBy,
		AssignedTo:  nullString(c.AssignedTo),
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}
	if res := c.Resolution; res != nil {
		row.ResolutionText = null.StringFrom(res.Text)
		row.ResolvedBy = nullString(res.ResolvedBy)
		row.ResolvedAt = null.TimeFrom(res.ResolvedAt.UTC())
	}
	return row
}

func (repo *complaintRepository) unboil(row complaintRow) complaint.Complaint {
	c := complaint.Complaint{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Category:    core.Category(row.Category),
		Priority:    complaint.Priority(row.Priority),
		Status:      complaint.Status(row.Status),
		SubmittedBy: row.SubmittedBy,
		AssignedTo:  row.AssignedTo.String,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
	if row.ResolvedAt.Valid {
		c.Resolution = &complaint.Resolution{
			Text:       row.ResolutionText.String,
			ResolvedBy: row.ResolvedBy.String,
			ResolvedAt: row.ResolvedAt.Time.UTC(),
		}
	}
	return c
}

func (repo *complaintRepository) CreateComplaint(ctx context.Context, c complaint.Complaint) (complaint.Complaint, error) {
	c.ID = uuid.New().String()
	row := repo.boil(c)
	q := `INSERT INTO complaint (` + complaintColumns + `) VALUES (:id, :title, :description, :category, :priority,
		:status, :submitted_by, :assigned_to, :resolution_text, :resolved_by, :resolved_at, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return complaint.Complaint{}, errors.Wrap(err, "inserting complaint")
	}
	c = repo.unboil(row)
	c.Comments = []complaint.Comment{}
	return c, nil
}

func (repo *complaintRepository) GetComplaint(ctx context.Context, id string) (complaint.Complaint, error) {
	if _, err := uuid.Parse(id); err != nil {
		return complaint.Complaint{}, complaint.ErrNotFound
	}
	var row complaintRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+complaintColumns+` FROM complaint WHERE id = $1`, id); err != nil {
		return complaint.Complaint{}, trapNoRowsErr(err, complaint.ErrNotFound, "finding complaint")
	}

	var rows []commentRow
	q := `SELECT id, complaint_id, author_id, author_name, text, created_at FROM complaint_comment
		WHERE complaint_id = $1 ORDER BY id`
	if err := repo.db.SelectContext(ctx, &rows, q, id); err != nil {
		return complaint.Complaint{}, errors.Wrap(err, "querying comments")
	}

	c := repo.unboil(row)
	c.Comments = make([]complaint.Comment, 0, len(rows))
	for _, r := range rows {
		c.Comments = append(c.Comments, complaint.Comment{
			AuthorID:   r.AuthorID,
			AuthorName: r.AuthorName,
			Text:       r.Text,
			CreatedAt:  r.CreatedAt.UTC(),
		})
	}
	return c, nil
}

func (repo *complaintRepository) QueryComplaints(ctx context.Context, filter complaint.RepoFilter) ([]complaint.Complaint, int, error) {
	w := &where{}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	if filter.Priority != "" {
		w.add("priority = ?", string(filter.Priority))
	}
	if filter.SubmittedBy != "" {
		w.add("submitted_by = ?", filter.SubmittedBy)
	}
	if filter.Categories != nil {
		if len(filter.Categories) == 0 {
			return []complaint.Complaint{}, 0, nil
		}
		w.add("category IN (?)", core.NewCategorySet(filter.Categories...).Strings())
	}

	q, args, err := w.build(repo.db, `SELECT COUNT(*) FROM complaint`+w.String())
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := repo.db.GetContext(ctx, &total, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting complaints")
	}

	page := filter.Pagination
	page.Clean()
	w.args = append(w.args, page.Limit, page.Offset())
	q, args, err = w.build(repo.db,
		`SELECT `+complaintColumns+` FROM complaint`+w.String()+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`)
	if err != nil {
		return nil, 0, err
	}
	var rows []complaintRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying complaints")
	}
	items := make([]complaint.Complaint, 0, len(rows))
	for _, r := range rows {
		items = append(items, repo.unboil(r))
	}
	return items, total, nil
}

func (repo *complaintRepository) UpdateComplaint(ctx context.Context, c complaint.Complaint) (complaint.Complaint, error) {
	row := repo.boil(c)
	q := `UPDATE complaint SET title = :title, description = :description, priority = :priority, status = :status,
		assigned_to = :assigned_to, resolution_text = :resolution_text, resolved_by = :resolved_by,
		resolved_at = :resolved_at, updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return complaint.Complaint{}, errors.Wrap(err, "updating complaint")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return complaint.Complaint{}, complaint.ErrNotFound
	}
	return repo.unboil(row), nil
}

func (repo *complaintRepository) DeleteComplaint(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM complaint WHERE id = $1`, id)
	return errors.Wrap(err, "deleting complaint")
}

func (repo *complaintRepository) AddComment(ctx context.Context, complaintID string, cmt complaint.Comment) (complaint.Comment, error) {
	q := `INSERT INTO complaint_comment (complaint_id, author_id, author_name, text, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := repo.db.ExecContext(ctx, q, complaintID, cmt.AuthorID, cmt.AuthorName, cmt.Text, cmt.CreatedAt.UTC()); err != nil {
		return complaint.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return cmt, nil
}
