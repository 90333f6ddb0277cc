package user

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/campusdesk/core"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("user not found")
	ErrEmailExists       = errors.New("a user with this email already exists")
	ErrStudentIDExists   = errors.New("a user with this student id already exists")
	ErrStaffIDExists     = errors.New("a user with this staff id already exists")
	ErrInvalidCredential = errors.New("invalid current password")
	ErrInvalidResetLink  = errors.New("the password reset link was invalid, possibly because it has already been used")

	tempPasswordLen = 12
)

type (
	Repository interface {
		// CheckUniqueness returns one of ErrEmailExists, ErrStudentIDExists or ErrStaffIDExists
		// if another User (not in excludedIDs) already holds the value.
		CheckUniqueness(ctx context.Context, email, studentID, staffID string, excludedIDs ...string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Email, User.StudentID or User.StaffID.
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		GetUsersByIDs(ctx context.Context, ids ...string) ([]User, error)
		GetStudentsByStudentIDs(ctx context.Context, studentIDs ...string) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		Create(ctx context.Context, nu NewUser) (User, error)
		CreateMany(ctx context.Context, nus []NewUser) BulkResult
		Query(ctx context.Context, filter QueryFilter) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByIDs(ctx context.Context, ids ...string) ([]User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		// GetByLogin finds a User by email, student id or staff id.
		GetByLogin(ctx context.Context, login string) (User, error)
		GetStudentsByStudentIDs(ctx context.Context, studentIDs ...string) ([]User, error)
		ChangePassword(ctx context.Context, usr User, data ChangePassword) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		SetActive(ctx context.Context, id string, active bool) (User, error)
		Delete(ctx context.Context, ids ...string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
	}

	service struct {
		repo     Repository
		mailSvc  core.EmailService
		conf     *core.Config
		validate *validator.Validate
		tokens   tokenGenerator
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, validate *validator.Validate) Service {
	return newService(repo, mailSvc, conf, validate)
}

func newService(repo Repository, mailSvc core.EmailService, conf *core.Config, validate *validator.Validate) *service {
	return &service{
		repo:     repo,
		mailSvc:  mailSvc,
		conf:     conf,
		validate: validate,
		tokens:   tokenGenerator{secretKey: conf.SecretKey, timeout: conf.PasswordResetTimeoutDelta},
	}
}

func (svc *service) checkUniqueness(ctx context.Context, email, studentID, staffID string, exclIDs ...string) error {
	if err := svc.repo.CheckUniqueness(ctx, email, studentID, staffID, exclIDs...); err != nil {
		var field string
		switch err {
		case ErrEmailExists:
			field = "email"
		case ErrStudentIDExists:
			field = "studentId"
		case ErrStaffIDExists:
			field = "staffId"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	usr, pwd, err := svc.create(ctx, nu)
	if err != nil {
		return User{}, err
	}
	go svc.sendWelcomeMail(usr, pwd)
	return usr, nil
}

func (svc *service) create(ctx context.Context, nu NewUser) (User, string, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, "", err
	}
	if err := svc.checkUniqueness(ctx, nu.Email, nu.StudentID, nu.StaffID); err != nil {
		return User{}, "", err
	}

	pwd := nu.Password
	if pwd == "" {
		var err error
		if pwd, err = core.RandomPassword(tempPasswordLen); err != nil {
			return User{}, "", errors.Wrap(err, "generating temporary password")
		}
	}

	now := core.Now()
	usr := User{
		Name:         nu.Name,
		Email:        nu.Email,
		Role:         nu.Role,
		StudentID:    nu.StudentID,
		StaffID:      nu.StaffID,
		Department:   nu.Department,
		Year:         nu.Year,
		IsFirstLogin: true,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, "", errors.Wrap(err, "setting password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, "", errors.Wrap(err, "creating user")
	}
	return usr, pwd, nil
}

// CreateMany onboards every valid NewUser; failures are reported per index and do not stop the batch.
func (svc *service) CreateMany(ctx context.Context, nus []NewUser) BulkResult {
	res := BulkResult{Created: []User{}, Failed: []BulkFailure{}}
	for i, nu := range nus {
		usr, pwd, err := svc.create(ctx, nu)
		if err != nil {
			res.Failed = append(res.Failed, BulkFailure{Index: i, Email: nu.Email, Error: bulkErrorMessage(err)})
			continue
		}
		res.Created = append(res.Created, usr)
		go svc.sendWelcomeMail(usr, pwd)
	}
	return res
}

func bulkErrorMessage(err error) interface{} {
	switch e := errors.Cause(err).(type) {
	case *core.ValidationError:
		if len(e.Fields) > 0 {
			flds := make(map[string]string, len(e.Fields))
			for _, f := range e.Fields {
				flds[f.Field] = f.Error
			}
			return flds
		}
		return e.Error()
	case validator.ValidationErrors:
		flds := make(map[string]string, len(e))
		for _, f := range e {
			flds[f.Field()] = f.Tag()
		}
		return flds
	}
	return "could not create user"
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]User, error) {
	filter.Clean()
	return svc.repo.QueryUsers(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByIDs(ctx context.Context, ids ...string) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return svc.repo.GetUsersByIDs(ctx, ids...)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetByLogin(ctx context.Context, login string) (User, error) {
	login = core.CleanString(login)
	if login == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{Login: login})
}

func (svc *service) GetStudentsByStudentIDs(ctx context.Context, studentIDs ...string) ([]User, error) {
	ids := make([]string, 0, len(studentIDs))
	for _, id := range studentIDs {
		if id = core.CleanUpper(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return svc.repo.GetStudentsByStudentIDs(ctx, ids...)
}

func (svc *service) ChangePassword(ctx context.Context, usr User, data ChangePassword) (User, error) {
	if err := data.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if _, ok := core.CheckPasswordPolicy(data.NewPassword, usr.Name, usr.Email, usr.StudentID, usr.StaffID); !ok {
		return User{}, core.NewFieldError("newPassword", core.PasswordPolicyText(core.PwdAttrSimTag))
	}
	if err := usr.CheckPassword(data.CurrentPassword); err != nil {
		return User{}, core.NewValidationError(ErrInvalidCredential,
			core.FieldError{Field: "currentPassword", Error: ErrInvalidCredential.Error()})
	}

	if err := usr.SetPassword(data.NewPassword); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.IsFirstLogin = false
	usr.UpdatedAt = core.Now()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = core.Now()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetActive(ctx context.Context, id string, active bool) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if usr.IsActive == active {
		return usr, nil
	}
	usr.IsActive = active
	usr.UpdatedAt = core.Now()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	if err := data.Validate(svc.validate); err != nil {
		return err
	}
	invalidLinkErr := core.NewValidationError(ErrInvalidResetLink)

	id, err := decodeUID(data.UID)
	if err != nil {
		return invalidLinkErr
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return invalidLinkErr
		}
		return errors.Wrap(err, "getting user")
	}
	if err := svc.tokens.verifyToken(usr, data.Token); err != nil {
		return invalidLinkErr
	}

	if err := usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.IsFirstLogin = false
	usr.UpdatedAt = core.Now()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}

func (svc *service) sendPasswordResetMail(usr User) {
	token, err := svc.tokens.makeToken(usr)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("Password reset on %s", svc.conf.AppName),
		TemplateName: "password_reset",
		TemplateData: passwordResetData{Name: usr.Name, UID: EncodeUID(usr), Token: token},
	})
}

func (svc *service) sendWelcomeMail(usr User, pwd string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("Welcome to %s", svc.conf.AppName),
		TemplateName: "welcome",
		TemplateData: welcomeData{Name: usr.Name, Login: usr.Identifier(), Password: pwd},
	})
}

type (
	passwordResetData struct {
		Name  string
		UID   string
		Token string
	}

	welcomeData struct {
		Name     string
		Login    string
		Password string
	}
)
