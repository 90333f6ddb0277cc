package complaint

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/access"
	"github.com/trezcool/campusdesk/core/admin"
	"github.com/trezcool/campusdesk/core/user"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	return validate
}

func Test_authorize(t *testing.T) {
	c := Complaint{ID: "c1", Category: core.CategoryNetwork, SubmittedBy: "u1"}

	tests := []struct {
		name    string
		p       access.Principal
		wantErr error
	}{
		{name: "submitter", p: access.UserPrincipal{User: user.User{ID: "u1"}}},
		{name: "other user", p: access.UserPrincipal{User: user.User{ID: "u2"}}, wantErr: ErrNotSubmitter},
		{name: "super admin", p: access.AdminPrincipal{Admin: admin.Admin{ID: "a0", Level: admin.LevelSuperAdmin}}},
		{name: "admin seeing the category", p: access.AdminPrincipal{Admin: admin.Admin{
			ID: "a1", Level: admin.LevelSubAdmin, Permissions: admin.Permissions{VisibleCategories: []core.Category{core.CategoryNetwork}},
		}}},
		{name: "admin not seeing the category", p: access.AdminPrincipal{Admin: admin.Admin{
			ID: "a2", Level: admin.LevelAdmin, Permissions: admin.Permissions{VisibleCategories: []core.Category{core.CategoryAcademic}},
		}}, wantErr: access.ErrCategoryNotVisible},
		{name: "no principal", wantErr: core.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, authorize(tt.p, c))
		})
	}
}

func TestNewComplaint_Validate(t *testing.T) {
	validate := newValidator()

	nc := NewComplaint{Title: "  Wifi down ", Description: "No network in hall B", Category: " Network"}
	if assert.NoError(t, nc.Validate(validate)) {
		assert.Equal(t, "Wifi down", nc.Title)
		assert.Equal(t, core.CategoryNetwork, nc.Category)
		assert.Equal(t, PriorityMedium, nc.Priority)
	}

	nc = NewComplaint{Title: "t", Description: "d", Category: "cafeteria", Priority: "asap"}
	err := nc.Validate(validate)
	if assert.Error(t, err) {
		errs := err.(validator.ValidationErrors)
		assert.Len(t, errs, 2)
	}

	uc := UpdateComplaint{Status: "In_Progress", AssignedTo: " a1 "}
	if assert.NoError(t, uc.Validate(validate)) {
		assert.Equal(t, StatusInProgress, uc.Status)
		assert.Equal(t, "a1", uc.AssignedTo)
	}
	uc = UpdateComplaint{Status: "done"}
	assert.Error(t, uc.Validate(validate))

	assert.Error(t, (&NewComment{Text: "   "}).Validate(validate))
}

func TestQueryFilter_Clean(t *testing.T) {
	qf := QueryFilter{Status: " Pending", Category: "ACADEMIC ", Priority: "High"}
	qf.Clean()
	assert.Equal(t, QueryFilter{Status: StatusPending, Category: core.CategoryAcademic, Priority: PriorityHigh}, qf)
}
