package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/campusdesk/core/request"
)

const requestColumns = `id, course_id, student_id, category, urgency, details, status,
	auto_resolved, auto_response, created_at, updated_at`

type requestRow struct {
	ID           string    `db:"id"`
	CourseID     string    `db:"course_id"`
	StudentID    string    `db:"student_id"`
	Category     string    `db:"category"`
	Urgency      string    `db:"urgency"`
	Details      string    `db:"details"`
	Status       string    `db:"status"`
	AutoResolved bool      `db:"auto_resolved"`
	AutoResponse string    `db:"auto_response"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type requestRepository struct {
	db *sqlx.DB
}

var _ request.Repository = (*requestRepository)(nil)

func NewRequestRepository(db *sqlx.DB) request.Repository {
	return &requestRepository{db: db}
}

func (repo *requestRepository) boil(req request.Request) requestRow {
	return requestRow{
		ID:           req.ID,
		CourseID:     req.CourseID,
		StudentID:    req.StudentID,
		Category:     req.Category,
		Urgency:      string(req.Urgency),
		Details:      req.Details,
		Status:       string(req.Status),
		AutoResolved: req.AutoResolved,
		AutoResponse: req.AutoResponse,
		CreatedAt:    req.CreatedAt.UTC(),
		UpdatedAt:    req.UpdatedAt.UTC(),
	}
}

func (repo *requestRepository) unboil(row requestRow) request.Request {
	return request.Request{
		ID:           row.ID,
		CourseID:     row.CourseID,
		StudentID:    row.StudentID,
		Category:     row.Category,
		Urgency:      request.Urgency(row.Urgency),
		Details:      row.Details,
		Status:       request.Status(row.Status),
		AutoResolved: row.AutoResolved,
		AutoResponse: row.AutoResponse,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func (repo *requestRepository) CreateRequest(ctx context.Context, req request.Request) (request.Request, error) {
	req.ID = uuid.New().String()
	row := repo.boil(req)
	q := `INSERT INTO request (` + requestColumns + `) VALUES (:id, :course_id, :student_id, :category, :urgency,
		:details, :status, :auto_resolved, :auto_response, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return request.Request{}, errors.Wrap(err, "inserting request")
	}
	return repo.unboil(row), nil
}

func (repo *requestRepository) GetRequest(ctx context.Context, id string) (request.Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return request.Request{}, request.ErrNotFound
	}
	var row requestRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+requestColumns+` FROM request WHERE id = $1`, id); err != nil {
		return request.Request{}, trapNoRowsErr(err, request.ErrNotFound, "finding request")
	}
	return repo.unboil(row), nil
}

func (repo *requestRepository) QueryRequests(ctx context.Context, filter request.QueryFilter) ([]request.Request, error) {
	w := &where{}
	if filter.CourseID != "" {
		w.add("course_id = ?", filter.CourseID)
	}
	if filter.StudentID != "" {
		w.add("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}

	q, args, err := w.build(repo.db, `SELECT `+requestColumns+` FROM request`+w.String()+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	var rows []requestRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying requests")
	}
	reqs := make([]request.Request, 0, len(rows))
	for _, r := range rows {
		reqs = append(reqs, repo.unboil(r))
	}
	return reqs, nil
}

func (repo *requestRepository) UpdateRequest(ctx context.Context, req request.Request) (request.Request, error) {
	row := repo.boil(req)
	q := `UPDATE request SET status = :status, urgency = :urgency, details = :details, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return request.Request{}, errors.Wrap(err, "updating request")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return request.Request{}, request.ErrNotFound
	}
	return repo.unboil(row), nil
}
