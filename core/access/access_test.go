package access

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/admin"
	"github.com/trezcool/campusdesk/core/user"
)

type fakeUsers map[string]user.User

func (f fakeUsers) GetByID(_ context.Context, id string) (user.User, error) {
	if usr, ok := f[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

type fakeAdmins map[string]admin.Admin

func (f fakeAdmins) GetByID(_ context.Context, id string) (admin.Admin, error) {
	if id == "broken" {
		return admin.Admin{}, errors.New("connection refused")
	}
	if adm, ok := f[id]; ok {
		return adm, nil
	}
	return admin.Admin{}, admin.ErrNotFound
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(
		fakeUsers{
			"u1": {ID: "u1", Role: user.RoleStudent, IsActive: true},
			"u2": {ID: "u2", Role: user.RoleStaff},
		},
		fakeAdmins{
			"a1": {ID: "a1", Level: admin.LevelSubAdmin, IsActive: true, IsFirstLogin: true},
		},
	)

	tests := []struct {
		name     string
		subject  string
		wantKind Kind
		wantRole Role
		wantErr  error
	}{
		{name: "empty subject", wantErr: ErrAuthenticationFailed},
		{name: "unknown subject", subject: "nope", wantErr: ErrAuthenticationFailed},
		{name: "user", subject: "u1", wantKind: KindUser, wantRole: RoleStudent},
		{name: "deactivated user", subject: "u2", wantErr: ErrAccountDeactivated},
		{name: "admin", subject: "a1", wantKind: KindAdmin, wantRole: RoleSubAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := r.Resolve(context.Background(), tt.subject)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, tt.subject, p.ID())
				assert.Equal(t, tt.wantKind, p.Kind())
				assert.Equal(t, tt.wantRole, p.Role())
			}
		})
	}

	_, err := r.Resolve(context.Background(), "broken")
	assert.EqualError(t, err, "finding admin by ID: connection refused")
}

func TestCategoryFilter(t *testing.T) {
	student := UserPrincipal{User: user.User{ID: "u1", Role: user.RoleStudent}}
	super := AdminPrincipal{Admin: admin.Admin{ID: "a0", Level: admin.LevelSuperAdmin}}
	seeAll := AdminPrincipal{Admin: admin.Admin{ID: "a1", Level: admin.LevelAdmin, Permissions: admin.Permissions{CanSeeAllComplaints: true}}}
	ict := AdminPrincipal{Admin: admin.Admin{ID: "a2", Level: admin.LevelSubAdmin, Permissions: admin.Permissions{
		VisibleCategories: []core.Category{core.CategoryPassword, core.CategoryNetwork},
	}}}
	none := AdminPrincipal{Admin: admin.Admin{ID: "a3", Level: admin.LevelSubAdmin}}

	tests := []struct {
		name      string
		p         Principal
		requested core.Category
		want      []core.Category
		wantErr   error
	}{
		{name: "user: no filter", p: student},
		{name: "user: requested", p: student, requested: core.CategoryOther, want: []core.Category{core.CategoryOther}},
		{name: "super admin: no filter", p: super},
		{name: "see all: requested", p: seeAll, requested: core.CategoryAcademic, want: []core.Category{core.CategoryAcademic}},
		{name: "restricted: visible set", p: ict, want: []core.Category{core.CategoryNetwork, core.CategoryPassword}},
		{name: "restricted: requested visible", p: ict, requested: core.CategoryNetwork, want: []core.Category{core.CategoryNetwork}},
		{name: "restricted: requested not visible", p: ict, requested: core.CategoryAcademic, wantErr: ErrCategoryNotVisible},
		{name: "restricted: nothing visible", p: none, want: []core.Category{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CategoryFilter(tt.p, tt.requested)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, CanSeeCategory(student, core.CategoryFinancial))
	assert.True(t, CanSeeCategory(ict, core.CategoryPassword))
	assert.False(t, CanSeeCategory(ict, core.CategoryFinancial))
}

func TestRoles(t *testing.T) {
	staff := UserPrincipal{User: user.User{ID: "u1", Role: user.RoleStaff, IsFirstLogin: true}}
	adm := AdminPrincipal{Admin: admin.Admin{ID: "a1", Level: admin.LevelAdmin}}

	assert.True(t, HasAnyRole(staff))
	assert.True(t, HasAnyRole(staff, UserRoles...))
	assert.False(t, HasAnyRole(staff, AdminRoles...))
	assert.False(t, HasAnyRole(nil))
	assert.Equal(t, core.ErrPermissionDenied, RequireRoles(adm, RoleSuperAdmin))
	assert.NoError(t, RequireRoles(adm, RoleSuperAdmin, RoleAdmin))

	assert.True(t, MustChangePassword(staff))
	assert.False(t, MustChangePassword(adm))
	assert.False(t, MustChangePassword(nil))

	usr, ok := AsUser(staff)
	assert.True(t, ok)
	assert.Equal(t, "u1", usr.ID)
	_, ok = AsAdmin(staff)
	assert.False(t, ok)
}
