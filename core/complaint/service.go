package complaint

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/access"
	"github.com/trezcool/campusdesk/core/admin"
	"github.com/trezcool/campusdesk/core/notification"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("complaint not found")
	ErrNotSubmitter  = core.NewPermissionError("you can only access your own complaints")
	ErrAdminSubmit   = core.NewPermissionError("admins cannot submit complaints")
	ErrCannotAssign  = core.NewPermissionError("only admins can assign complaints")
	ErrUnknownAdmin  = errors.New("assigned admin does not exist")
	ErrInvalidFilter = errors.New("invalid filter value")
)

type (
	Repository interface {
		CreateComplaint(ctx context.Context, c Complaint) (Complaint, error)
		// GetComplaint returns the complaint with its comments, oldest first.
		GetComplaint(ctx context.Context, id string) (Complaint, error)
		// QueryComplaints returns a page of matching complaints (newest first, without comments) and the total count.
		QueryComplaints(ctx context.Context, filter RepoFilter) ([]Complaint, int, error)
		UpdateComplaint(ctx context.Context, c Complaint) (Complaint, error)
		DeleteComplaint(ctx context.Context, id string) error
		AddComment(ctx context.Context, complaintID string, cmt Comment) (Comment, error)
	}

	// Admins is what the triage engine needs from the Admin store.
	Admins interface {
		GetByID(ctx context.Context, id string) (admin.Admin, error)
		ListWatchers(ctx context.Context, cat core.Category) ([]admin.Admin, error)
	}

	Service interface {
		Submit(ctx context.Context, p access.Principal, data NewComplaint) (Complaint, error)
		List(ctx context.Context, p access.Principal, filter QueryFilter) (Page, error)
		Get(ctx context.Context, p access.Principal, id string) (Complaint, error)
		Update(ctx context.Context, p access.Principal, id string, data UpdateComplaint) (Complaint, error)
		Delete(ctx context.Context, p access.Principal, id string) error
		AddComment(ctx context.Context, p access.Principal, id string, data NewComment) (Complaint, error)
	}

	service struct {
		repo     Repository
		admins   Admins
		notifier notification.Notifier
		validate *validator.Validate
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	admins Admins,
	notifier notification.Notifier,
	validate *validator.Validate,
	logger core.Logger,
) Service {
	return &service{
		repo:     repo,
		admins:   admins,
		notifier: notifier,
		validate: validate,
		logger:   logger,
	}
}

// authorize checks that p may see & act on c: Users on their own complaints, Admins within their visible categories.
func authorize(p access.Principal, c Complaint) error {
	switch p := p.(type) {
	case access.UserPrincipal:
		if c.SubmittedBy != p.User.ID {
			return ErrNotSubmitter
		}
	case access.AdminPrincipal:
		if !p.Admin.CanSeeCategory(c.Category) {
			return access.ErrCategoryNotVisible
		}
	default:
		return core.ErrPermissionDenied
	}
	return nil
}

func (svc *service) get(ctx context.Context, p access.Principal, id string) (Complaint, error) {
	c, err := svc.repo.GetComplaint(ctx, id)
	if err != nil {
		return Complaint{}, err
	}
	if err := authorize(p, c); err != nil {
		return Complaint{}, err
	}
	return c, nil
}

func (svc *service) Submit(ctx context.Context, p access.Principal, data NewComplaint) (Complaint, error) {
	usr, ok := access.AsUser(p)
	if !ok {
		return Complaint{}, ErrAdminSubmit
	}
	if err := data.Validate(svc.validate); err != nil {
		return Complaint{}, err
	}

	now := core.Now()
	c, err := svc.repo.CreateComplaint(ctx, Complaint{
		Title:       data.Title,
		Description: data.Description,
		Category:    data.Category,
		Priority:    data.Priority,
		Status:      StatusPending,
		SubmittedBy: usr.ID,
		Comments:    []Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Complaint{}, errors.Wrap(err, "creating complaint")
	}

	watchers, err := svc.admins.ListWatchers(ctx, c.Category)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("listing %s complaint watchers", c.Category), err, p)
		return c, nil
	}
	ids := make([]string, 0, len(watchers))
	for _, adm := range watchers {
		ids = append(ids, adm.ID)
	}
	svc.notifier.NotifyMany(ctx, ids, notification.Notice{
		Kind:    notification.KindComplaintSubmitted,
		Title:   fmt.Sprintf("New %s complaint (%s priority)", humanize(string(c.Category)), c.Priority),
		Message: c.Title,
		Link:    "/complaints/" + c.ID,
	})
	return c, nil
}

func (svc *service) List(ctx context.Context, p access.Principal, filter QueryFilter) (Page, error) {
	filter.Clean()
	if filter.Category != "" && !filter.Category.IsValid() {
		return Page{}, core.NewValidationError(ErrInvalidFilter, core.FieldError{Field: "category", Error: "invalid category"})
	}

	rf := RepoFilter{
		Status:     filter.Status,
		Priority:   filter.Priority,
		Pagination: core.Pagination{Page: filter.Page, Limit: filter.Limit},
	}
	rf.Pagination.Clean()

	switch p := p.(type) {
	case access.UserPrincipal:
		rf.SubmittedBy = p.User.ID
		if filter.Category != "" {
			rf.Categories = []core.Category{filter.Category}
		}
	case access.AdminPrincipal:
		cats, err := access.CategoryFilter(p, filter.Category)
		if err != nil {
			return Page{}, err
		}
		rf.Categories = cats
	default:
		return Page{}, core.ErrPermissionDenied
	}

	items, total, err := svc.repo.QueryComplaints(ctx, rf)
	if err != nil {
		return Page{}, errors.Wrap(err, "querying complaints")
	}
	if items == nil {
		items = []Complaint{}
	}
	return Page{Items: items, Total: total, Page: rf.Page, Limit: rf.Limit}, nil
}

func (svc *service) Get(ctx context.Context, p access.Principal, id string) (Complaint, error) {
	return svc.get(ctx, p, id)
}

// Update applies the changes in data. Any status may be set from any other;
// a transition to resolved records the resolution.
func (svc *service) Update(ctx context.Context, p access.Principal, id string, data UpdateComplaint) (Complaint, error) {
	if err := data.Validate(svc.validate); err != nil {
		return Complaint{}, err
	}
	c, err := svc.get(ctx, p, id)
	if err != nil {
		return Complaint{}, err
	}

	if data.AssignedTo != "" && data.AssignedTo != c.AssignedTo {
		if _, ok := access.AsAdmin(p); !ok {
			return Complaint{}, ErrCannotAssign
		}
		if _, err := svc.admins.GetByID(ctx, data.AssignedTo); err != nil {
			if core.IsNotFound(err) {
				return Complaint{}, core.NewValidationError(ErrUnknownAdmin,
					core.FieldError{Field: "assignedTo", Error: ErrUnknownAdmin.Error()})
			}
			return Complaint{}, errors.Wrap(err, "getting assignee")
		}
		c.AssignedTo = data.AssignedTo
	}
	if data.Priority != "" {
		c.Priority = data.Priority
	}

	now := core.Now()
	statusChanged := data.Status != "" && data.Status != c.Status
	if statusChanged {
		c.Status = data.Status
		if c.Status == StatusResolved {
			c.Resolution = &Resolution{Text: data.Resolution, ResolvedBy: p.ID(), ResolvedAt: now}
		}
	} else if data.Resolution != "" && c.Status == StatusResolved && c.Resolution != nil {
		c.Resolution.Text = data.Resolution
	}
	c.UpdatedAt = now

	comments := c.Comments
	if c, err = svc.repo.UpdateComplaint(ctx, c); err != nil {
		return Complaint{}, errors.Wrap(err, "updating complaint")
	}
	c.Comments = comments

	if statusChanged && c.Status != StatusPending && c.SubmittedBy != p.ID() {
		svc.notifier.Notify(ctx, c.SubmittedBy, notification.Notice{
			Kind:    notification.KindComplaintStatus,
			Title:   fmt.Sprintf("Your complaint is now %s", humanize(string(c.Status))),
			Message: c.Title,
			Link:    "/complaints/" + c.ID,
		})
	}
	return c, nil
}

func (svc *service) Delete(ctx context.Context, p access.Principal, id string) error {
	if _, err := svc.get(ctx, p, id); err != nil {
		return err
	}
	return svc.repo.DeleteComplaint(ctx, id)
}

// AddComment appends a comment; the submitter is notified of comments by others.
func (svc *service) AddComment(ctx context.Context, p access.Principal, id string, data NewComment) (Complaint, error) {
	if err := data.Validate(svc.validate); err != nil {
		return Complaint{}, err
	}
	c, err := svc.get(ctx, p, id)
	if err != nil {
		return Complaint{}, err
	}

	cmt, err := svc.repo.AddComment(ctx, c.ID, Comment{
		AuthorID:   p.ID(),
		AuthorName: p.Name(),
		Text:       data.Text,
		CreatedAt:  core.Now(),
	})
	if err != nil {
		return Complaint{}, errors.Wrap(err, "adding comment")
	}
	c.Comments = append(c.Comments, cmt)

	if c.SubmittedBy != p.ID() {
		svc.notifier.Notify(ctx, c.SubmittedBy, notification.Notice{
			Kind:    notification.KindComplaintComment,
			Title:   fmt.Sprintf("%s commented on your complaint", p.Name()),
			Message: cmt.Text,
			Link:    "/complaints/" + c.ID,
		})
	}
	return c, nil
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
