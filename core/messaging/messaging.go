package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/course"
	"github.com/trezcool/campusdesk/core/notification"
	"github.com/trezcool/campusdesk/core/user"
)

const defaultCategory = "announcement"

var (
	// errors
	ErrStudentNotFound = core.NewNotFoundError("student not found")
	ErrNotEnrolled     = core.NewPermissionError("student is not enrolled in this course")
	ErrCannotView      = core.NewPermissionError("you are not allowed to view this course's messages")
	ErrCourseEnded     = errors.New("the course has ended, messages would already be expired")
)

type (
	Message struct {
		ID          string    `json:"id"`
		CourseID    string    `json:"courseId"`
		SenderID    string    `json:"senderId"`
		RecipientID string    `json:"recipientId,omitempty"`
		IsBroadcast bool      `json:"isBroadcast"`
		Category    string    `json:"category"`
		Content     string    `json:"content"`
		ExpiresAt   time.Time `json:"expiresAt"` // UTC
		CreatedAt   time.Time `json:"createdAt"` // UTC
	}

	NewBroadcast struct {
		CourseID string `json:"courseId" validate:"required"`
		Content  string `json:"content" validate:"required,max=5000"`
		Category string `json:"category" validate:"omitempty,max=50"`
	}

	NewPrivate struct {
		CourseID  string `json:"courseId" validate:"required"`
		StudentID string `json:"studentId" validate:"required"`
		Content   string `json:"content" validate:"required,max=5000"`
		Category  string `json:"category" validate:"omitempty,max=50"`
	}

	// QueryFilter selects the non expired messages of a course at `Now`.
	// When RecipientID is set, only broadcasts and messages addressed to it are kept.
	QueryFilter struct {
		CourseID    string
		RecipientID string
		Now         time.Time
	}

	Repository interface {
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		// QueryMessages returns the matching messages, newest first.
		QueryMessages(ctx context.Context, filter QueryFilter) ([]Message, error)
		// DeleteExpiredMessages removes the messages expired at `now` and returns how many were removed.
		DeleteExpiredMessages(ctx context.Context, now time.Time) (int, error)
	}

	// Students is what the messaging engine needs from the User store.
	Students interface {
		GetStudentsByStudentIDs(ctx context.Context, studentIDs ...string) ([]user.User, error)
	}

	Service interface {
		Broadcast(ctx context.Context, lecturer user.User, data NewBroadcast) (Message, error)
		SendPrivate(ctx context.Context, lecturer user.User, data NewPrivate) (Message, error)
		List(ctx context.Context, usr user.User, courseID string) ([]Message, error)
		PurgeExpired(ctx context.Context) (int, error)
	}

	service struct {
		repo     Repository
		courses  course.Service
		students Students
		notifier notification.Notifier
		validate *validator.Validate
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	courses course.Service,
	students Students,
	notifier notification.Notifier,
	validate *validator.Validate,
	logger core.Logger,
) Service {
	return &service{
		repo:     repo,
		courses:  courses,
		students: students,
		notifier: notifier,
		validate: validate,
		logger:   logger,
	}
}

func cleanCategory(cat string) string {
	if cat = core.CleanString(cat, true /* lower */); cat == "" {
		return defaultCategory
	}
	return cat
}

// newMessage builds a Message expiring at the course end date.
func newMessage(crs course.Course, sender user.User, content, category string) (Message, error) {
	now := core.Now()
	if !crs.EndDate.After(now) {
		return Message{}, core.NewValidationError(ErrCourseEnded, core.FieldError{Field: "courseId", Error: ErrCourseEnded.Error()})
	}
	return Message{
		CourseID:  crs.ID,
		SenderID:  sender.ID,
		Category:  cleanCategory(category),
		Content:   core.CleanString(content),
		ExpiresAt: crs.EndDate.UTC(),
		CreatedAt: now,
	}, nil
}

func (svc *service) Broadcast(ctx context.Context, lecturer user.User, data NewBroadcast) (Message, error) {
	if err := svc.validate.Struct(data); err != nil {
		return Message{}, err
	}
	crs, err := svc.courses.GetOwned(ctx, lecturer, data.CourseID)
	if err != nil {
		return Message{}, err
	}

	msg, err := newMessage(crs, lecturer, data.Content, data.Category)
	if err != nil {
		return Message{}, err
	}
	msg.IsBroadcast = true
	if msg, err = svc.repo.CreateMessage(ctx, msg); err != nil {
		return Message{}, errors.Wrap(err, "creating message")
	}

	// snapshot of the enrolled students at broadcast time
	recipients, err := svc.courses.EnrolledStudentIDs(ctx, crs.ID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("listing %s students for broadcast %s", crs.Code, msg.ID), err, lecturer)
		return msg, nil
	}
	svc.notifier.NotifyMany(ctx, recipients, notification.Notice{
		Kind:    notification.KindCourseBroadcast,
		Title:   fmt.Sprintf("New announcement in %s", crs.Code),
		Message: msg.Content,
		Link:    "/messaging/course/" + crs.ID,
	})
	return msg, nil
}

func (svc *service) SendPrivate(ctx context.Context, lecturer user.User, data NewPrivate) (Message, error) {
	if err := svc.validate.Struct(data); err != nil {
		return Message{}, err
	}
	crs, err := svc.courses.GetOwned(ctx, lecturer, data.CourseID)
	if err != nil {
		return Message{}, err
	}

	students, err := svc.students.GetStudentsByStudentIDs(ctx, data.StudentID)
	if err != nil {
		return Message{}, errors.Wrap(err, "getting student")
	}
	if len(students) == 0 || !students[0].IsStudent() {
		return Message{}, ErrStudentNotFound
	}
	student := students[0]

	enrolled, err := svc.courses.IsEnrolled(ctx, crs.ID, student.ID)
	if err != nil {
		return Message{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return Message{}, ErrNotEnrolled
	}

	msg, err := newMessage(crs, lecturer, data.Content, data.Category)
	if err != nil {
		return Message{}, err
	}
	msg.RecipientID = student.ID
	if msg, err = svc.repo.CreateMessage(ctx, msg); err != nil {
		return Message{}, errors.Wrap(err, "creating message")
	}

	svc.notifier.Notify(ctx, student.ID, notification.Notice{
		Kind:    notification.KindCourseMessage,
		Title:   fmt.Sprintf("New message from %s (%s)", lecturer.Name, crs.Code),
		Message: msg.Content,
		Link:    "/messaging/course/" + crs.ID,
	})
	return msg, nil
}

// List returns the visible, non expired messages of a course, newest first:
// all of them for the owning lecturer, broadcasts & own private messages for an enrolled student.
func (svc *service) List(ctx context.Context, usr user.User, courseID string) ([]Message, error) {
	crs, err := svc.courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}

	filter := QueryFilter{CourseID: crs.ID, Now: core.Now()}
	switch {
	case crs.IsOwnedBy(usr.ID):
	case usr.IsStudent():
		enrolled, err := svc.courses.IsEnrolled(ctx, crs.ID, usr.ID)
		if err != nil {
			return nil, errors.Wrap(err, "checking enrollment")
		}
		if !enrolled {
			return nil, ErrCannotView
		}
		filter.RecipientID = usr.ID
	default:
		return nil, ErrCannotView
	}

	msgs, err := svc.repo.QueryMessages(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs, nil
}

func (svc *service) PurgeExpired(ctx context.Context) (int, error) {
	return svc.repo.DeleteExpiredMessages(ctx, core.Now())
}
