package admin

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("admin not found")
	ErrUsernameExists = errors.New("an admin with this username already exists")
	ErrEmailExists    = errors.New("an admin with this email already exists")

	ErrCannotManage = core.NewPermissionError("not enough rights to manage this admin")
	ErrCannotGrant  = core.NewPermissionError("not enough rights to grant these permissions")
	ErrSelfAction   = core.NewPermissionError("you cannot delete or deactivate your own account")

	tempPasswordLen = 12
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists if another Admin (not in excludedIDs) holds the value.
		CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error
		CreateAdmin(ctx context.Context, adm Admin) (Admin, error)
		GetAdmin(ctx context.Context, filter GetFilter) (Admin, error)
		QueryAdmins(ctx context.Context, filter QueryFilter) ([]Admin, error)
		UpdateAdmin(ctx context.Context, adm Admin) (Admin, error)
		DeleteAdmin(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, actor Admin, na NewAdmin) (Admin, error)
		CreateSuperAdmin(ctx context.Context, email, name, pwd string) (Admin, error)
		// Seed creates the SeedAccounts that do not exist yet, with temporary passwords.
		Seed(ctx context.Context) ([]Seeded, error)
		Query(ctx context.Context, actor Admin, filter QueryFilter) ([]Admin, error)
		Get(ctx context.Context, actor Admin, id string) (Admin, error)
		GetByID(ctx context.Context, id string) (Admin, error)
		// GetByLogin finds an Admin by username or email.
		GetByLogin(ctx context.Context, login string) (Admin, error)
		// ListWatchers returns the active Admins that can see complaints of the given category.
		ListWatchers(ctx context.Context, cat core.Category) ([]Admin, error)
		SetPermissions(ctx context.Context, actor Admin, id string, perms Permissions) (Admin, error)
		SetActive(ctx context.Context, actor Admin, id string, active bool) (Admin, error)
		Delete(ctx context.Context, actor Admin, id string) error
		ChangePassword(ctx context.Context, adm Admin, data user.ChangePassword) (Admin, error)
		SetLastLogin(ctx context.Context, adm Admin) (Admin, error)
		ResetPassword(ctx context.Context, login, pwd string) error
	}

	Seeded struct {
		Admin    Admin
		Password string
	}

	service struct {
		repo     Repository
		mailSvc  core.EmailService
		conf     *core.Config
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, validate *validator.Validate) Service {
	return &service{
		repo:     repo,
		mailSvc:  mailSvc,
		conf:     conf,
		validate: validate,
	}
}

func (svc *service) checkUniqueness(ctx context.Context, uname, email string, exclIDs ...string) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, exclIDs...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// canManage enforces the hierarchy: only the super admin or an Admin with canManageAdmins may manage Admins,
// and a non super admin may only manage Admins of a lower level.
func canManage(actor, target Admin) error {
	if actor.IsSuperAdmin() {
		return nil
	}
	if !actor.Permissions.CanManageAdmins || target.Level.Rank() >= actor.Level.Rank() {
		return ErrCannotManage
	}
	return nil
}

// canGrant checks that a non super admin only grants permissions it holds itself.
func canGrant(actor Admin, perms Permissions) error {
	if actor.IsSuperAdmin() {
		return nil
	}
	if perms.CanSeeAllComplaints && !actor.Permissions.CanSeeAllComplaints {
		return ErrCannotGrant
	}
	if perms.CanManageAdmins && !actor.Permissions.CanManageAdmins {
		return ErrCannotGrant
	}
	for _, c := range perms.VisibleCategories {
		if !actor.CanSeeCategory(c) {
			return ErrCannotGrant
		}
	}
	return nil
}

func (svc *service) Create(ctx context.Context, actor Admin, na NewAdmin) (Admin, error) {
	if !actor.CanManageAdmins() {
		return Admin{}, ErrCannotManage
	}
	if err := na.Validate(svc.validate); err != nil {
		return Admin{}, err
	}
	if err := canManage(actor, Admin{Level: na.Level}); err != nil {
		return Admin{}, err
	}
	if err := canGrant(actor, na.Permissions); err != nil {
		return Admin{}, err
	}
	if err := svc.checkUniqueness(ctx, na.Username, na.Email); err != nil {
		return Admin{}, err
	}

	pwd := na.Password
	if pwd != "" {
		if tag, ok := core.CheckPasswordPolicy(pwd, na.Username, na.Name, na.Email); !ok {
			return Admin{}, core.NewFieldError("password", core.PasswordPolicyText(tag))
		}
	}

	adm := Admin{
		Username:    na.Username,
		Email:       na.Email,
		Name:        na.Name,
		Level:       na.Level,
		Permissions: na.Permissions,
		CreatedBy:   actor.ID,
	}
	adm, pwd, err := svc.create(ctx, adm, pwd)
	if err != nil {
		return Admin{}, err
	}
	if adm.Email != "" {
		go svc.sendWelcomeMail(adm, pwd)
	}
	return adm, nil
}

func (svc *service) create(ctx context.Context, adm Admin, pwd string) (Admin, string, error) {
	if pwd == "" {
		var err error
		if pwd, err = core.RandomPassword(tempPasswordLen); err != nil {
			return Admin{}, "", errors.Wrap(err, "generating temporary password")
		}
	}
	now := core.Now()
	adm.IsActive = true
	adm.IsFirstLogin = true
	adm.CreatedAt = now
	adm.UpdatedAt = now
	if err := adm.SetPassword(pwd); err != nil {
		return Admin{}, "", errors.Wrap(err, "setting password")
	}
	adm, err := svc.repo.CreateAdmin(ctx, adm)
	if err != nil {
		return Admin{}, "", errors.Wrap(err, "creating admin")
	}
	return adm, pwd, nil
}

func (svc *service) CreateSuperAdmin(ctx context.Context, email, name, pwd string) (Admin, error) {
	email = core.CleanString(email, true /* lower */)
	if err := svc.validate.Var(email, "required,email"); err != nil {
		return Admin{}, core.NewFieldError("email", "a valid email is required")
	}
	if tag, ok := core.CheckPasswordPolicy(pwd, email, name); !ok {
		return Admin{}, core.NewFieldError("password", core.PasswordPolicyText(tag))
	}
	if err := svc.checkUniqueness(ctx, "", email); err != nil {
		return Admin{}, err
	}

	name = core.CleanString(name)
	if name == "" {
		name = "Super Admin"
	}
	adm := Admin{
		Email:       email,
		Name:        name,
		Level:       LevelSuperAdmin,
		Permissions: Permissions{CanSeeAllComplaints: true, CanManageAdmins: true, VisibleCategories: []core.Category{}},
	}
	adm, _, err := svc.create(ctx, adm, pwd)
	if err != nil {
		return Admin{}, err
	}
	// the password was chosen on the command line
	adm.IsFirstLogin = false
	return svc.repo.UpdateAdmin(ctx, adm)
}

func (svc *service) Seed(ctx context.Context) ([]Seeded, error) {
	var seeded []Seeded
	for _, acc := range SeedAccounts {
		uname := NormalizeUsername(acc.Username)
		if _, err := svc.repo.GetAdmin(ctx, GetFilter{Username: uname}); err == nil {
			continue
		} else if !core.IsNotFound(err) {
			return seeded, errors.Wrapf(err, "getting admin %s", uname)
		}

		perms := acc.Permissions
		perms.Clean()
		adm, pwd, err := svc.create(ctx, Admin{Username: uname, Name: acc.Name, Level: acc.Level, Permissions: perms}, "")
		if err != nil {
			return seeded, errors.Wrapf(err, "seeding admin %s", uname)
		}
		seeded = append(seeded, Seeded{Admin: adm, Password: pwd})
	}
	return seeded, nil
}

func (svc *service) Query(ctx context.Context, actor Admin, filter QueryFilter) ([]Admin, error) {
	if !actor.CanManageAdmins() {
		return nil, ErrCannotManage
	}
	filter.Clean()
	return svc.repo.QueryAdmins(ctx, filter)
}

func (svc *service) Get(ctx context.Context, actor Admin, id string) (Admin, error) {
	if !actor.CanManageAdmins() && actor.ID != id {
		return Admin{}, ErrCannotManage
	}
	return svc.GetByID(ctx, id)
}

func (svc *service) GetByID(ctx context.Context, id string) (Admin, error) {
	return svc.repo.GetAdmin(ctx, GetFilter{ID: id})
}

func (svc *service) GetByLogin(ctx context.Context, login string) (Admin, error) {
	login = core.CleanString(login, true /* lower */)
	if login == "" {
		return Admin{}, ErrNotFound
	}
	return svc.repo.GetAdmin(ctx, GetFilter{Login: NormalizeUsername(login)})
}

func (svc *service) ListWatchers(ctx context.Context, cat core.Category) ([]Admin, error) {
	active := true
	admins, err := svc.repo.QueryAdmins(ctx, QueryFilter{IsActive: &active})
	if err != nil {
		return nil, errors.Wrap(err, "querying admins")
	}
	watchers := make([]Admin, 0, len(admins))
	for _, adm := range admins {
		if adm.CanSeeCategory(cat) {
			watchers = append(watchers, adm)
		}
	}
	return watchers, nil
}

func (svc *service) SetPermissions(ctx context.Context, actor Admin, id string, perms Permissions) (Admin, error) {
	if err := svc.validate.Struct(perms); err != nil {
		return Admin{}, err
	}
	target, err := svc.GetByID(ctx, id)
	if err != nil {
		return Admin{}, err
	}
	if target.IsSuperAdmin() {
		return Admin{}, ErrCannotManage
	}
	if err := canManage(actor, target); err != nil {
		return Admin{}, err
	}
	perms.Clean()
	if err := canGrant(actor, perms); err != nil {
		return Admin{}, err
	}

	target.Permissions = perms
	target.UpdatedAt = core.Now()
	return svc.repo.UpdateAdmin(ctx, target)
}

func (svc *service) SetActive(ctx context.Context, actor Admin, id string, active bool) (Admin, error) {
	if actor.ID == id && !active {
		return Admin{}, ErrSelfAction
	}
	target, err := svc.GetByID(ctx, id)
	if err != nil {
		return Admin{}, err
	}
	if err := canManage(actor, target); err != nil {
		return Admin{}, err
	}
	if target.IsActive == active {
		return target, nil
	}
	target.IsActive = active
	target.UpdatedAt = core.Now()
	return svc.repo.UpdateAdmin(ctx, target)
}

func (svc *service) Delete(ctx context.Context, actor Admin, id string) error {
	if actor.ID == id {
		return ErrSelfAction
	}
	if !actor.IsSuperAdmin() {
		return ErrCannotManage
	}
	if _, err := svc.GetByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteAdmin(ctx, id)
}

func (svc *service) ChangePassword(ctx context.Context, adm Admin, data user.ChangePassword) (Admin, error) {
	if err := data.Validate(svc.validate); err != nil {
		return Admin{}, err
	}
	if _, ok := core.CheckPasswordPolicy(data.NewPassword, adm.Username, adm.Name, adm.Email); !ok {
		return Admin{}, core.NewFieldError("newPassword", core.PasswordPolicyText(core.PwdAttrSimTag))
	}
	if err := adm.CheckPassword(data.CurrentPassword); err != nil {
		return Admin{}, core.NewValidationError(user.ErrInvalidCredential,
			core.FieldError{Field: "currentPassword", Error: user.ErrInvalidCredential.Error()})
	}

	if err := adm.SetPassword(data.NewPassword); err != nil {
		return Admin{}, errors.Wrap(err, "setting password")
	}
	adm.IsFirstLogin = false
	adm.UpdatedAt = core.Now()
	return svc.repo.UpdateAdmin(ctx, adm)
}

func (svc *service) SetLastLogin(ctx context.Context, adm Admin) (Admin, error) {
	adm.LastLogin = core.Now()
	return svc.repo.UpdateAdmin(ctx, adm)
}

// ResetPassword sets a new password and forces a change on next login.
func (svc *service) ResetPassword(ctx context.Context, login, pwd string) error {
	adm, err := svc.GetByLogin(ctx, login)
	if err != nil {
		return err
	}
	if tag, ok := core.CheckPasswordPolicy(pwd); !ok {
		return core.NewFieldError("password", core.PasswordPolicyText(tag))
	}
	if err := adm.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	adm.IsFirstLogin = !adm.IsSuperAdmin()
	adm.UpdatedAt = core.Now()
	_, err = svc.repo.UpdateAdmin(ctx, adm)
	return errors.Wrap(err, "updating admin")
}

func (svc *service) sendWelcomeMail(adm Admin, pwd string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: adm.Name, Address: adm.Email}},
		Subject:      fmt.Sprintf("Your %s admin account", svc.conf.AppName),
		TemplateName: "welcome",
		TemplateData: welcomeData{Name: adm.Name, Login: adm.Login(), Password: pwd},
	})
}

type welcomeData struct {
	Name     string
	Login    string
	Password string
}
