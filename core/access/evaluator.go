package access

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/admin"
	"github.com/trezcool/campusdesk/core/user"
)

var (
	// errors
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccountDeactivated   = errors.New("account deactivated")

	ErrPasswordChangeRequired = core.NewPermissionError("password change required")
	ErrCategoryNotVisible     = core.NewPermissionError("you are not allowed to see this category")
)

type (
	// UserFinder & AdminFinder are the lookups the Resolver needs from the identity stores.
	UserFinder interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}
	AdminFinder interface {
		GetByID(ctx context.Context, id string) (admin.Admin, error)
	}

	// Resolver turns a token subject into a Principal.
	Resolver struct {
		users  UserFinder
		admins AdminFinder
	}
)

func NewResolver(users UserFinder, admins AdminFinder) *Resolver {
	return &Resolver{users: users, admins: admins}
}

// Resolve looks the subject up in the User store first, then in the Admin store.
// ErrAuthenticationFailed is returned when neither resolves, ErrAccountDeactivated when the account is not active.
func (r *Resolver) Resolve(ctx context.Context, subjectID string) (Principal, error) {
	if subjectID == "" {
		return nil, ErrAuthenticationFailed
	}

	var p Principal
	if usr, err := r.users.GetByID(ctx, subjectID); err == nil {
		p = UserPrincipal{User: usr}
	} else if !core.IsNotFound(err) {
		return nil, errors.Wrap(err, "finding user by ID")
	} else if adm, err := r.admins.GetByID(ctx, subjectID); err == nil {
		p = AdminPrincipal{Admin: adm}
	} else if !core.IsNotFound(err) {
		return nil, errors.Wrap(err, "finding admin by ID")
	} else {
		return nil, ErrAuthenticationFailed
	}

	if !p.IsActive() {
		return nil, ErrAccountDeactivated
	}
	return p, nil
}

// CategoryFilter computes the complaint categories visible to an Admin principal.
// A nil filter means "no restriction". An explicit requested category outside of the Admin's
// visible set is rejected with ErrCategoryNotVisible; Users get no filter (they are scoped by ownership).
func CategoryFilter(p Principal, requested core.Category) ([]core.Category, error) {
	adm, ok := AsAdmin(p)
	if !ok || adm.SeesAllCategories() {
		if requested != "" {
			return []core.Category{requested}, nil
		}
		return nil, nil
	}

	visible := core.NewCategorySet(adm.Permissions.VisibleCategories...)
	if requested != "" {
		if !visible.Has(requested) {
			return nil, ErrCategoryNotVisible
		}
		return []core.Category{requested}, nil
	}
	return visible.Slice(), nil
}

// CanSeeCategory reports whether p may see complaints of category c.
// Users are not category gated.
func CanSeeCategory(p Principal, c core.Category) bool {
	if adm, ok := AsAdmin(p); ok {
		return adm.CanSeeCategory(c)
	}
	return true
}

// HasAnyRole reports whether p has one of roles (any role when empty).
func HasAnyRole(p Principal, roles ...Role) bool {
	if p == nil {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	pr := p.Role()
	for _, r := range roles {
		if r == pr {
			return true
		}
	}
	return false
}

// RequireRoles returns core.ErrPermissionDenied unless p has one of roles.
func RequireRoles(p Principal, roles ...Role) error {
	if !HasAnyRole(p, roles...) {
		return core.ErrPermissionDenied
	}
	return nil
}

// MustChangePassword reports whether p is restricted to the password change operation.
func MustChangePassword(p Principal) bool {
	return p != nil && p.IsFirstLogin()
}
