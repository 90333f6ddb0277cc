package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/campusdesk/core/course"
)

const courseColumns = `id, code, title, faculty, department, lecturer_id, semester, session,
	start_date, end_date, status, created_at`

type courseRow struct {
	ID         string    `db:"id"`
	Code       string    `db:"code"`
	Title      string    `db:"title"`
	Faculty    string    `db:"faculty"`
	Department string    `db:"department"`
	LecturerID string    `db:"lecturer_id"`
	Semester   string    `db:"semester"`
	Session    string    `db:"session"`
	StartDate  time.Time `db:"start_date"`
	EndDate    time.Time `db:"end_date"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) boil(crs course.Course) courseRow {
	return courseRow{
		ID:         crs.ID,
		Code:       crs.Code,
		Title:      crs.Title,
		Faculty:    crs.Faculty,
		Department: crs.Department,
		LecturerID: crs.LecturerID,
		Semester:   crs.Semester,
		Session:    crs.Session,
		StartDate:  crs.StartDate.UTC(),
		EndDate:    crs.EndDate.UTC(),
		Status:     string(crs.Status),
		CreatedAt:  crs.CreatedAt.UTC(),
	}
}

func (repo *courseRepository) unboil(row courseRow) course.Course {
	return course.Course{
		ID:         row.ID,
		Code:       row.Code,
		Title:      row.Title,
		Faculty:    row.Faculty,
		Department: row.Department,
		LecturerID: row.LecturerID,
		Semester:   row.Semester,
		Session:    row.Session,
		StartDate:  row.StartDate.UTC(),
		EndDate:    row.EndDate.UTC(),
		Status:     course.Status(row.Status),
		CreatedAt:  row.CreatedAt.UTC(),
	}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	row := repo.boil(crs)
	q := `INSERT INTO course (` + courseColumns + `) VALUES (:id, :code, :title, :faculty, :department,
		:lecturer_id, :semester, :session, :start_date, :end_date, :status, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return repo.unboil(row), nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+courseColumns+` FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return repo.unboil(row), nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	w := &where{}
	if filter.LecturerID != "" {
		w.add("lecturer_id = ?", filter.LecturerID)
	}
	if filter.StudentID != "" {
		w.add("id IN (SELECT course_id FROM enrollment WHERE student_id = ?)", filter.StudentID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}

	q, args, err := w.build(repo.db, `SELECT `+courseColumns+` FROM course`+w.String()+` ORDER BY code`)
	if err != nil {
		return nil, err
	}
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, repo.unboil(r))
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	row := repo.boil(crs)
	q := `UPDATE course SET title = :title, faculty = :faculty, department = :department, semester = :semester,
		session = :session, start_date = :start_date, end_date = :end_date, status = :status WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.unboil(row), nil
}

// Enroll relies on the (course_id, student_id) primary key to keep a single row per pair.
func (repo *courseRepository) Enroll(ctx context.Context, courseID string, studentIDs []string, at time.Time) (int, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var n int64
	for _, sid := range studentIDs {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO enrollment (course_id, student_id, enrolled_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			courseID, sid, at.UTC())
		if err != nil {
			return 0, errors.Wrap(err, "inserting enrollment")
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, errors.Wrap(err, "inserting enrollment")
		}
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing enrollments")
	}
	return int(n), nil
}

func (repo *courseRepository) RemoveEnrollment(ctx context.Context, courseID, studentID string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM enrollment WHERE course_id = $1 AND student_id = $2`, courseID, studentID)
	return errors.Wrap(err, "deleting enrollment")
}

func (repo *courseRepository) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	if len(validUUIDs([]string{courseID, studentID})) < 2 {
		return false, nil
	}
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM enrollment WHERE course_id = $1 AND student_id = $2)`, courseID, studentID)
	return exists, errors.Wrap(err, "checking enrollment")
}

func (repo *courseRepository) EnrolledStudentIDs(ctx context.Context, courseID string) ([]string, error) {
	ids := make([]string, 0)
	err := repo.db.SelectContext(ctx, &ids,
		`SELECT student_id FROM enrollment WHERE course_id = $1 ORDER BY enrolled_at`, courseID)
	return ids, errors.Wrap(err, "listing enrollments")
}
