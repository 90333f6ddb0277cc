package complaint

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campusdesk/core"
)

type (
	Priority string
	Status   string
)

// Priorities
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Statuses
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

type (
	Complaint struct {
		ID          string        `json:"id"`
		Title       string        `json:"title"`
		Description string        `json:"description"`
		Category    core.Category `json:"category"`
		Priority    Priority      `json:"priority"`
		Status      Status        `json:"status"`
		SubmittedBy string        `json:"submittedBy"`
		AssignedTo  string        `json:"assignedTo,omitempty"`
		Resolution  *Resolution   `json:"resolution,omitempty"`
		Comments    []Comment     `json:"comments"`
		CreatedAt   time.Time     `json:"createdAt"` // UTC
		UpdatedAt   time.Time     `json:"updatedAt"` // UTC
	}

	Resolution struct {
		Text       string    `json:"text"`
		ResolvedBy string    `json:"resolvedBy"`
		ResolvedAt time.Time `json:"resolvedAt"` // UTC
	}

	Comment struct {
		AuthorID   string    `json:"authorId"`
		AuthorName string    `json:"authorName"`
		Text       string    `json:"text"`
		CreatedAt  time.Time `json:"createdAt"` // UTC
	}
)

// NewComplaint contains information needed to submit a Complaint.
type NewComplaint struct {
	Title       string        `json:"title" validate:"required,max=200"`
	Description string        `json:"description" validate:"required,max=10000"`
	Category    core.Category `json:"category" validate:"required,category"`
	Priority    Priority      `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

func (nc *NewComplaint) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.Category(core.CleanString(string(nc.Category), true /* lower */))
	nc.Priority = Priority(core.CleanString(string(nc.Priority), true /* lower */))
	if nc.Priority == "" {
		nc.Priority = PriorityMedium
	}
	return validate.Struct(nc)
}

// UpdateComplaint defines what may be changed on a Complaint. Empty fields are left unchanged.
type UpdateComplaint struct {
	Status     Status   `json:"status" validate:"omitempty,oneof=pending in_progress resolved closed"`
	Priority   Priority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AssignedTo string   `json:"assignedTo"`
	Resolution string   `json:"resolution" validate:"max=10000"`
}

func (uc *UpdateComplaint) Validate(validate *validator.Validate) error {
	uc.Status = Status(core.CleanString(string(uc.Status), true /* lower */))
	uc.Priority = Priority(core.CleanString(string(uc.Priority), true /* lower */))
	uc.AssignedTo = core.CleanString(uc.AssignedTo)
	uc.Resolution = core.CleanString(uc.Resolution)
	return validate.Struct(uc)
}

type NewComment struct {
	Text string `json:"text" validate:"required,max=5000"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Text = core.CleanString(nc.Text)
	return validate.Struct(nc)
}

// QueryFilter holds the list filters a caller may send.
type QueryFilter struct {
	Status   Status        `query:"status"`
	Category core.Category `query:"category"`
	Priority Priority      `query:"priority"`
	Page     int           `query:"page"`
	Limit    int           `query:"limit"`
}

func (qf *QueryFilter) Clean() {
	qf.Status = Status(core.CleanString(string(qf.Status), true /* lower */))
	qf.Category = core.Category(core.CleanString(string(qf.Category), true /* lower */))
	qf.Priority = Priority(core.CleanString(string(qf.Priority), true /* lower */))
}

// RepoFilter is what the repository filters on. A nil Categories means any category.
type RepoFilter struct {
	Status      Status
	Categories  []core.Category
	Priority    Priority
	SubmittedBy string
	core.Pagination
}

type Page struct {
	Items []Complaint `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}
