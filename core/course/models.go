package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campusdesk/core"
)

type Status string

// Statuses
const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type Course struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Title      string    `json:"title"`
	Faculty    string    `json:"faculty,omitempty"`
	Department string    `json:"department,omitempty"`
	LecturerID string    `json:"lecturerId"`
	Semester   string    `json:"semester,omitempty"`
	Session    string    `json:"session,omitempty"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"` // UTC
}

func (c *Course) IsOwnedBy(lecturerID string) bool {
	return lecturerID != "" && c.LecturerID == lecturerID
}

func (c *Course) IsActive() bool { return c.Status == StatusActive }

type Enrollment struct {
	CourseID   string    `json:"courseId"`
	StudentID  string    `json:"studentId"`
	EnrolledAt time.Time `json:"enrolledAt"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Code       string    `json:"code" validate:"required,max=20,alphanum"`
	Title      string    `json:"title" validate:"required"`
	Faculty    string    `json:"faculty"`
	Department string    `json:"department"`
	Semester   string    `json:"semester"`
	Session    string    `json:"session"`
	StartDate  time.Time `json:"startDate" validate:"required"`
	EndDate    time.Time `json:"endDate" validate:"required,gtfield=StartDate"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Code = core.CleanUpper(nc.Code)
	nc.Title = core.CleanString(nc.Title)
	nc.Faculty = core.CleanString(nc.Faculty)
	nc.Department = core.CleanString(nc.Department)
	nc.Semester = core.CleanString(nc.Semester)
	nc.Session = core.CleanString(nc.Session)
	nc.StartDate = nc.StartDate.UTC()
	nc.EndDate = nc.EndDate.UTC()
	return validate.Struct(nc)
}

// Enroll is the body of an enrollment request. Identifiers are student ids (matric numbers).
type Enroll struct {
	StudentIDs []string `json:"studentIds" validate:"required,min=1,dive,required"`
}

func (e Enroll) Validate(validate *validator.Validate) error { return validate.Struct(e) }

type EnrollResult struct {
	Enrolled int      `json:"enrolled"`
	Unknown  []string `json:"unknown"`
}

type QueryFilter struct {
	LecturerID string
	// StudentID restricts to the courses the student (User id) is enrolled in.
	StudentID string
	Status    Status
}
