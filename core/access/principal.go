package access

import (
	"github.com/trezcool/campusdesk/core/admin"
	"github.com/trezcool/campusdesk/core/user"
)

type Role string

// Roles
const (
	RoleStudent    = Role(user.RoleStudent)
	RoleStaff      = Role(user.RoleStaff)
	RoleSuperAdmin = Role(admin.LevelSuperAdmin)
	RoleAdmin      = Role(admin.LevelAdmin)
	RoleSubAdmin   = Role(admin.LevelSubAdmin)
)

var (
	UserRoles  = []Role{RoleStudent, RoleStaff}
	AdminRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleSubAdmin}
)

type Kind string

// Kinds
const (
	KindUser  Kind = "user"
	KindAdmin Kind = "admin"
)

// Principal is the authenticated identity of a request: either a UserPrincipal or an AdminPrincipal.
type Principal interface {
	ID() string
	Name() string
	Kind() Kind
	Role() Role
	IsFirstLogin() bool
	IsActive() bool

	principal()
}

type UserPrincipal struct {
	User user.User
}

type AdminPrincipal struct {
	Admin admin.Admin
}

var (
	_ Principal = UserPrincipal{}
	_ Principal = AdminPrincipal{}
)

func (p UserPrincipal) ID() string         { return p.User.ID }
func (p UserPrincipal) Name() string       { return p.User.Name }
func (p UserPrincipal) Kind() Kind         { return KindUser }
func (p UserPrincipal) Role() Role         { return Role(p.User.Role) }
func (p UserPrincipal) IsFirstLogin() bool { return p.User.IsFirstLogin }
func (p UserPrincipal) IsActive() bool     { return p.User.IsActive }
func (UserPrincipal) principal()           {}

func (p AdminPrincipal) ID() string         { return p.Admin.ID }
func (p AdminPrincipal) Name() string       { return p.Admin.Name }
func (p AdminPrincipal) Kind() Kind         { return KindAdmin }
func (p AdminPrincipal) Role() Role         { return Role(p.Admin.Level) }
func (p AdminPrincipal) IsFirstLogin() bool { return p.Admin.IsFirstLogin }
func (p AdminPrincipal) IsActive() bool     { return p.Admin.IsActive }
func (AdminPrincipal) principal()           {}

// AsUser returns the User behind p, if any.
func AsUser(p Principal) (user.User, bool) {
	if up, ok := p.(UserPrincipal); ok {
		return up.User, true
	}
	return user.User{}, false
}

// AsAdmin returns the Admin behind p, if any.
func AsAdmin(p Principal) (admin.Admin, bool) {
	if ap, ok := p.(AdminPrincipal); ok {
		return ap.Admin, true
	}
	return admin.Admin{}, false
}
