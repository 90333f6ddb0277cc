package request

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/course"
	"github.com/trezcool/campusdesk/core/notification"
	"github.com/trezcool/campusdesk/core/user"
)

type (
	Urgency string
	Status  string
)

// Urgencies
const (
	UrgencyNormal Urgency = "normal"
	UrgencyUrgent Urgency = "urgent"
)

// Statuses
const (
	StatusPending       Status = "pending"
	StatusResponded     Status = "responded"
	StatusDeferred      Status = "deferred"
	StatusApprovedVisit Status = "approved_visit"
	StatusClosed        Status = "closed"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("request not found")
	ErrNotEnrolled    = core.NewPermissionError("you are not enrolled in this course")
	ErrNotStudent     = core.NewPermissionError("only students can submit requests")
	ErrAlreadyHandled = errors.New("only pending requests can change status")

	statusLabels = map[Status]string{
		StatusPending:       "Pending",
		StatusResponded:     "Responded",
		StatusDeferred:      "Deferred",
		StatusApprovedVisit: "Office visit approved",
		StatusClosed:        "Closed",
	}
)

// AutoResponses are the fixed answers to routine request categories.
// Requests in one of these categories are resolved on submission.
var AutoResponses = map[string]string{
	"general_inquiries": "Thank you for reaching out. Please check the course outline and the announcements " +
		"posted on this course first; most general questions are answered there. " +
		"If your question is still unanswered, raise it during the next lecture or office hours.",
	"office_hours": "Office hours hold weekly as published in the course outline. " +
		"No appointment is needed during office hours; for any other time, submit an office visit request.",
	"course_materials": "All course materials (slides, notes and reading lists) are shared through the course " +
		"announcements. Check the latest broadcast messages of this course for the links.",
	"exam_schedule": "Examination dates are set by the examinations office and published on the faculty " +
		"notice board. Any change is announced to all enrolled students.",
	"grading_policy": "The grading policy (continuous assessment and examination weights) is described in the " +
		"course outline shared at the start of the semester.",
}

// NormalizeCategory trims & lower-cases a request category and replaces spaces with underscores.
func NormalizeCategory(cat string) string {
	return strings.Join(strings.Fields(strings.ToLower(cat)), "_")
}

// AutoResponse returns the fixed answer of a routine category.
func AutoResponse(cat string) (string, bool) {
	resp, ok := AutoResponses[NormalizeCategory(cat)]
	return resp, ok
}

func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

type (
	Request struct {
		ID           string    `json:"id"`
		CourseID     string    `json:"courseId"`
		StudentID    string    `json:"studentId"`
		Category     string    `json:"category"`
		Urgency      Urgency   `json:"urgency"`
		Details      string    `json:"details"`
		Status       Status    `json:"status"`
		AutoResolved bool      `json:"autoResolved"`
		AutoResponse string    `json:"autoResponse,omitempty"`
		CreatedAt    time.Time `json:"createdAt"` // UTC
		UpdatedAt    time.Time `json:"updatedAt"` // UTC
	}

	NewRequest struct {
		CourseID string  `json:"courseId" validate:"required"`
		Category string  `json:"category" validate:"required,max=50"`
		Urgency  Urgency `json:"urgency" validate:"omitempty,oneof=normal urgent"`
		Details  string  `json:"details" validate:"required,max=5000"`
	}

	UpdateStatus struct {
		Status Status `json:"status" validate:"required,oneof=responded deferred approved_visit closed"`
	}

	QueryFilter struct {
		CourseID  string
		StudentID string
		Status    Status
	}

	Repository interface {
		CreateRequest(ctx context.Context, req Request) (Request, error)
		GetRequest(ctx context.Context, id string) (Request, error)
		// QueryRequests returns the matching requests, newest first.
		QueryRequests(ctx context.Context, filter QueryFilter) ([]Request, error)
		UpdateRequest(ctx context.Context, req Request) (Request, error)
	}

	Service interface {
		Submit(ctx context.Context, student user.User, data NewRequest) (Request, error)
		ListMine(ctx context.Context, student user.User) ([]Request, error)
		Queue(ctx context.Context, lecturer user.User, courseID string) ([]Request, error)
		AdvanceStatus(ctx context.Context, lecturer user.User, id string, data UpdateStatus) (Request, error)
	}

	service struct {
		repo     Repository
		courses  course.Service
		notifier notification.Notifier
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courses course.Service, notifier notification.Notifier, validate *validator.Validate) Service {
	return &service{repo: repo, courses: courses, notifier: notifier, validate: validate}
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.Category = NormalizeCategory(nr.Category)
	nr.Details = core.CleanString(nr.Details)
	nr.Urgency = Urgency(core.CleanString(string(nr.Urgency), true /* lower */))
	if nr.Urgency == "" {
		nr.Urgency = UrgencyNormal
	}
	return validate.Struct(nr)
}

func (svc *service) Submit(ctx context.Context, student user.User, data NewRequest) (Request, error) {
	if !student.IsStudent() {
		return Request{}, ErrNotStudent
	}
	if err := data.Validate(svc.validate); err != nil {
		return Request{}, err
	}
	crs, err := svc.courses.Get(ctx, data.CourseID)
	if err != nil {
		return Request{}, err
	}
	enrolled, err := svc.courses.IsEnrolled(ctx, crs.ID, student.ID)
	if err != nil {
		return Request{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return Request{}, ErrNotEnrolled
	}

	now := core.Now()
	req := Request{
		CourseID:  crs.ID,
		StudentID: student.ID,
		Category:  data.Category,
		Urgency:   data.Urgency,
		Details:   data.Details,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if resp, ok := AutoResponse(data.Category); ok {
		req.AutoResolved = true
		req.AutoResponse = resp
	}

	req, err = svc.repo.CreateRequest(ctx, req)
	return req, errors.Wrap(err, "creating request")
}

func (svc *service) ListMine(ctx context.Context, student user.User) ([]Request, error) {
	reqs, err := svc.repo.QueryRequests(ctx, QueryFilter{StudentID: student.ID})
	if err != nil {
		return nil, errors.Wrap(err, "querying requests")
	}
	if reqs == nil {
		reqs = []Request{}
	}
	return reqs, nil
}

// Queue returns the pending requests of a course: urgent first, then oldest first.
func (svc *service) Queue(ctx context.Context, lecturer user.User, courseID string) ([]Request, error) {
	crs, err := svc.courses.GetOwned(ctx, lecturer, courseID)
	if err != nil {
		return nil, err
	}
	reqs, err := svc.repo.QueryRequests(ctx, QueryFilter{CourseID: crs.ID, Status: StatusPending})
	if err != nil {
		return nil, errors.Wrap(err, "querying requests")
	}
	SortQueue(reqs)
	if reqs == nil {
		reqs = []Request{}
	}
	return reqs, nil
}

// SortQueue sorts requests urgent first, then by creation time ascending.
func SortQueue(reqs []Request) {
	sort.SliceStable(reqs, func(i, j int) bool {
		ui, uj := reqs[i].Urgency == UrgencyUrgent, reqs[j].Urgency == UrgencyUrgent
		if ui != uj {
			return ui
		}
		return reqs[i].CreatedAt.Before(reqs[j].CreatedAt)
	})
}

func (svc *service) AdvanceStatus(ctx context.Context, lecturer user.User, id string, data UpdateStatus) (Request, error) {
	if err := svc.validate.Struct(data); err != nil {
		return Request{}, err
	}
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	crs, err := svc.courses.GetOwned(ctx, lecturer, req.CourseID)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, core.NewValidationError(ErrAlreadyHandled, core.FieldError{Field: "status", Error: ErrAlreadyHandled.Error()})
	}

	req.Status = data.Status
	req.UpdatedAt = core.Now()
	if req, err = svc.repo.UpdateRequest(ctx, req); err != nil {
		return Request{}, errors.Wrap(err, "updating request")
	}

	msg := fmt.Sprintf("Your %s request is now: %s.", strings.ReplaceAll(req.Category, "_", " "), req.Status.Label())
	if req.AutoResponse != "" {
		msg += " " + req.AutoResponse
	}
	svc.notifier.Notify(ctx, req.StudentID, notification.Notice{
		Kind:    notification.KindRequestStatus,
		Title:   fmt.Sprintf("Request update (%s)", crs.Code),
		Message: msg,
		Link:    "/requests/mine",
	})
	return req, nil
}
