package user

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campusdesk/core"
)

type Role string

// Roles
const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
)

var Roles = []Role{RoleStudent, RoleStaff}

func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleStaff
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	StudentID    string    `json:"studentId,omitempty"`
	StaffID      string    `json:"staffId,omitempty"`
	Department   string    `json:"department,omitempty"`
	Year         int       `json:"year,omitempty"`
	PasswordHash []byte    `json:"-"`
	IsFirstLogin bool      `json:"isFirstLogin"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
	LastLogin    time.Time `json:"lastLogin"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := core.HashPassword(pwd)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return core.CheckPassword(u.PasswordHash, pwd)
}

func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsStaff() bool   { return u.Role == RoleStaff }

// Identifier returns the institutional id of the user (matric for students), falling back to the email.
func (u *User) Identifier() string {
	switch {
	case u.StudentID != "":
		return u.StudentID
	case u.StaffID != "":
		return u.StaffID
	}
	return u.Email
}

// NewUser contains information needed to onboard a new User.
// A temporary password is generated when Password is empty.
type NewUser struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Role       Role   `json:"role" validate:"required,userrole"`
	StudentID  string `json:"studentId" validate:"omitempty,alphanum"`
	StaffID    string `json:"staffId" validate:"omitempty,alphanum"`
	Department string `json:"department"`
	Year       int    `json:"year" validate:"omitempty,min=1,max=10"`
	Password   string `json:"password"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = Role(core.CleanString(string(nu.Role), true /* lower */))
	nu.StudentID = core.CleanUpper(nu.StudentID)
	nu.StaffID = core.CleanUpper(nu.StaffID)
	nu.Department = core.CleanString(nu.Department)
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Clean()
	return validate.Struct(nu)
}

// ChangePassword is used by a logged in User (or Admin) to replace their password.
type ChangePassword struct {
	CurrentPassword    string `json:"currentPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required,nefield=CurrentPassword"`
	NewPasswordConfirm string `json:"newPasswordConfirm" validate:"required,eqfield=NewPassword"`
}

func (cp ChangePassword) Validate(validate *validator.Validate) error { return validate.Struct(cp) }

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search   string `query:"search"`
	Role     Role   `query:"role"`
	IsActive *bool  `query:"isActive"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = Role(core.CleanString(string(qf.Role), true /* lower */))
}

// GetFilter selects a single User; the first non-empty field wins.
type GetFilter struct {
	ID        string
	Email     string
	StudentID string
	StaffID   string
	// Login matches one of Email, StudentID or StaffID
	Login string
}

// BulkResult reports the outcome of a bulk onboarding.
type BulkResult struct {
	Created []User        `json:"created"`
	Failed  []BulkFailure `json:"failed"`
}

type BulkFailure struct {
	Index int         `json:"index"`
	Email string      `json:"email"`
	Error interface{} `json:"error"`
}
