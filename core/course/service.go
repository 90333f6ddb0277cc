package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/user"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("course not found")
	ErrCodeExists = errors.New("a course with this code already exists")
	ErrNotOwner   = core.NewPermissionError("you are not the lecturer of this course")
	ErrNotStaff   = core.NewPermissionError("only staff can manage courses")
)

type (
	Repository interface {
		// CreateCourse returns ErrCodeExists when the code is taken.
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		// Enroll inserts the missing (course, student) pairs and returns how many were inserted.
		Enroll(ctx context.Context, courseID string, studentIDs []string, at time.Time) (int, error)
		RemoveEnrollment(ctx context.Context, courseID, studentID string) error
		IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
		EnrolledStudentIDs(ctx context.Context, courseID string) ([]string, error)
	}

	// Students is what the registry needs from the User store.
	Students interface {
		GetStudentsByStudentIDs(ctx context.Context, studentIDs ...string) ([]user.User, error)
		GetByIDs(ctx context.Context, ids ...string) ([]user.User, error)
	}

	Service interface {
		Create(ctx context.Context, lecturer user.User, nc NewCourse) (Course, error)
		Get(ctx context.Context, id string) (Course, error)
		// GetOwned returns the course if lecturer owns it, ErrNotOwner otherwise.
		GetOwned(ctx context.Context, lecturer user.User, id string) (Course, error)
		Enroll(ctx context.Context, lecturer user.User, courseID string, identifiers []string) (EnrollResult, error)
		RemoveEnrollment(ctx context.Context, lecturer user.User, courseID, identifier string) error
		Complete(ctx context.Context, lecturer user.User, courseID string) (Course, error)
		ListOwned(ctx context.Context, lecturer user.User) ([]Course, error)
		ListEnrolled(ctx context.Context, student user.User) ([]Course, error)
		ListEnrollments(ctx context.Context, lecturer user.User, courseID string) ([]user.User, error)
		IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
		EnrolledStudentIDs(ctx context.Context, courseID string) ([]string, error)
	}

	service struct {
		repo     Repository
		students Students
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, students Students, validate *validator.Validate) Service {
	return &service{repo: repo, students: students, validate: validate}
}

func (svc *service) Create(ctx context.Context, lecturer user.User, nc NewCourse) (Course, error) {
	if !lecturer.IsStaff() {
		return Course{}, ErrNotStaff
	}
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}

	crs := Course{
		Code:       nc.Code,
		Title:      nc.Title,
		Faculty:    nc.Faculty,
		Department: nc.Department,
		LecturerID: lecturer.ID,
		Semester:   nc.Semester,
		Session:    nc.Session,
		StartDate:  nc.StartDate,
		EndDate:    nc.EndDate,
		Status:     StatusActive,
		CreatedAt:  core.Now(),
	}
	crs, err := svc.repo.CreateCourse(ctx, crs)
	if err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return Course{}, core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
		}
		return Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (svc *service) Get(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) GetOwned(ctx context.Context, lecturer user.User, id string) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if !crs.IsOwnedBy(lecturer.ID) {
		return Course{}, ErrNotOwner
	}
	return crs, nil
}

func (svc *service) Enroll(ctx context.Context, lecturer user.User, courseID string, identifiers []string) (EnrollResult, error) {
	res := EnrollResult{Unknown: []string{}}
	crs, err := svc.GetOwned(ctx, lecturer, courseID)
	if err != nil {
		return res, err
	}

	students, err := svc.students.GetStudentsByStudentIDs(ctx, identifiers...)
	if err != nil {
		return res, errors.Wrap(err, "getting students")
	}
	known := make(map[string]struct{}, len(students))
	ids := make([]string, 0, len(students))
	for _, s := range students {
		if !s.IsStudent() {
			continue
		}
		known[s.StudentID] = struct{}{}
		ids = append(ids, s.ID)
	}
	for _, ident := range identifiers {
		if _, ok := known[core.CleanUpper(ident)]; !ok {
			res.Unknown = append(res.Unknown, ident)
		}
	}
	if len(ids) == 0 {
		return res, nil
	}

	n, err := svc.repo.Enroll(ctx, crs.ID, ids, core.Now())
	if err != nil {
		return res, errors.Wrap(err, "enrolling students")
	}
	res.Enrolled = n
	return res, nil
}

func (svc *service) RemoveEnrollment(ctx context.Context, lecturer user.User, courseID, identifier string) error {
	crs, err := svc.GetOwned(ctx, lecturer, courseID)
	if err != nil {
		return err
	}
	students, err := svc.students.GetStudentsByStudentIDs(ctx, identifier)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	for _, s := range students {
		if err := svc.repo.RemoveEnrollment(ctx, crs.ID, s.ID); err != nil {
			return errors.Wrap(err, "removing enrollment")
		}
	}
	return nil
}

// Complete marks the course completed; completing a completed course is a no-op.
func (svc *service) Complete(ctx context.Context, lecturer user.User, courseID string) (Course, error) {
	crs, err := svc.GetOwned(ctx, lecturer, courseID)
	if err != nil {
		return Course{}, err
	}
	if crs.Status == StatusCompleted {
		return crs, nil
	}
	crs.Status = StatusCompleted
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) ListOwned(ctx context.Context, lecturer user.User) ([]Course, error) {
	if !lecturer.IsStaff() {
		return nil, ErrNotStaff
	}
	return svc.repo.QueryCourses(ctx, QueryFilter{LecturerID: lecturer.ID})
}

func (svc *service) ListEnrolled(ctx context.Context, student user.User) ([]Course, error) {
	if !student.IsStudent() {
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryCourses(ctx, QueryFilter{StudentID: student.ID})
}

func (svc *service) ListEnrollments(ctx context.Context, lecturer user.User, courseID string) ([]user.User, error) {
	crs, err := svc.GetOwned(ctx, lecturer, courseID)
	if err != nil {
		return nil, err
	}
	ids, err := svc.repo.EnrolledStudentIDs(ctx, crs.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing enrollments")
	}
	students, err := svc.students.GetByIDs(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "getting students")
	}
	if students == nil {
		students = []user.User{}
	}
	return students, nil
}

func (svc *service) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	return svc.repo.IsEnrolled(ctx, courseID, studentID)
}

func (svc *service) EnrolledStudentIDs(ctx context.Context, courseID string) ([]string, error) {
	return svc.repo.EnrolledStudentIDs(ctx, courseID)
}
