package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/campusdesk/core"
)

type Kind string

// Kinds
const (
	KindComplaintSubmitted Kind = "complaint_submitted"
	KindComplaintStatus    Kind = "complaint_status"
	KindComplaintComment   Kind = "complaint_comment"
	KindCourseBroadcast    Kind = "course_broadcast"
	KindCourseMessage      Kind = "course_message"
	KindRequestStatus      Kind = "request_status"
)

var ErrNotFound = core.NewNotFoundError("notification not found")

type (
	Notification struct {
		ID          string    `json:"id"`
		RecipientID string    `json:"recipientId"`
		Kind        Kind      `json:"kind"`
		Title       string    `json:"title"`
		Message     string    `json:"message"`
		Link        string    `json:"link,omitempty"`
		IsRead      bool      `json:"isRead"`
		CreatedAt   time.Time `json:"createdAt"` // UTC
		ReadAt      time.Time `json:"readAt"`    // UTC
	}

	// Notice is the content of a notification, before it is addressed.
	Notice struct {
		Kind    Kind
		Title   string
		Message string
		Link    string
	}

	QueryFilter struct {
		Unread bool `query:"unread"`
		Limit  int  `query:"limit"`
	}

	Repository interface {
		CreateNotifications(ctx context.Context, notifs ...Notification) ([]Notification, error)
		QueryNotifications(ctx context.Context, recipientID string, filter QueryFilter) ([]Notification, error)
		GetNotification(ctx context.Context, id string) (Notification, error)
		UpdateNotification(ctx context.Context, notif Notification) (Notification, error)
		// MarkAllRead marks every unread notification of the recipient as read and returns how many were updated.
		MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error)
	}

	// Publisher pushes created notifications to live subscribers.
	Publisher interface {
		Publish(ctx context.Context, notif Notification) error
	}

	// Notifier is the fan-out collaborator of the domain services.
	// Delivery is best-effort: failures are logged and never returned.
	Notifier interface {
		Notify(ctx context.Context, recipientID string, n Notice)
		NotifyMany(ctx context.Context, recipientIDs []string, n Notice)
	}

	Service interface {
		Notifier
		List(ctx context.Context, recipientID string, filter QueryFilter) ([]Notification, error)
		MarkRead(ctx context.Context, recipientID, id string) (Notification, error)
		MarkAllRead(ctx context.Context, recipientID string) (int, error)
	}

	service struct {
		repo   Repository
		pub    Publisher // optional
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

// NewService returns the notification Service. pub may be nil.
func NewService(repo Repository, pub Publisher, logger core.Logger) Service {
	return &service{repo: repo, pub: pub, logger: logger}
}

func (svc *service) Notify(ctx context.Context, recipientID string, n Notice) {
	svc.NotifyMany(ctx, []string{recipientID}, n)
}

// NotifyMany writes one notification per distinct recipient in a single batch.
func (svc *service) NotifyMany(ctx context.Context, recipientIDs []string, n Notice) {
	seen := make(map[string]struct{}, len(recipientIDs))
	now := core.Now()
	batch := make([]Notification, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		batch = append(batch, Notification{
			RecipientID: id,
			Kind:        n.Kind,
			Title:       n.Title,
			Message:     n.Message,
			Link:        n.Link,
			CreatedAt:   now,
		})
	}
	if len(batch) == 0 {
		return
	}

	created, err := svc.repo.CreateNotifications(ctx, batch...)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("creating %d %s notifications", len(batch), n.Kind), err)
		return
	}
	if svc.pub == nil {
		return
	}
	for _, notif := range created {
		if err := svc.pub.Publish(ctx, notif); err != nil {
			svc.logger.Warn(fmt.Sprintf("publishing notification %s", notif.ID), err)
		}
	}
}

func (svc *service) List(ctx context.Context, recipientID string, filter QueryFilter) ([]Notification, error) {
	if filter.Limit < 1 {
		filter.Limit = core.DefaultPageLimit
	} else if filter.Limit > core.MaxPageLimit {
		filter.Limit = core.MaxPageLimit
	}
	return svc.repo.QueryNotifications(ctx, recipientID, filter)
}

func (svc *service) MarkRead(ctx context.Context, recipientID, id string) (Notification, error) {
	notif, err := svc.repo.GetNotification(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if notif.RecipientID != recipientID {
		return Notification{}, ErrNotFound
	}
	if notif.IsRead {
		return notif, nil
	}
	notif.IsRead = true
	notif.ReadAt = core.Now()
	return svc.repo.UpdateNotification(ctx, notif)
}

func (svc *service) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	return svc.repo.MarkAllRead(ctx, recipientID, core.Now())
}
