package admin

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campusdesk/core"
)

type Level string

// Levels
const (
	LevelSuperAdmin Level = "super_admin"
	LevelAdmin      Level = "admin"
	LevelSubAdmin   Level = "sub_admin"
)

var (
	Levels = []Level{LevelSuperAdmin, LevelAdmin, LevelSubAdmin}

	levelRanks = map[Level]int{
		LevelSuperAdmin: 30,
		LevelAdmin:      20,
		LevelSubAdmin:   10,
	}

	legacyUsernameRegex = regexp.MustCompile(`^huissepf0*(\d+)$`)
)

func (l Level) IsValid() bool {
	_, ok := levelRanks[l]
	return ok
}

func (l Level) Rank() int { return levelRanks[l] }

// NormalizeUsername lower-cases & trims a username; legacy `huissepfN` usernames get a zero-padded 3 digits suffix.
func NormalizeUsername(uname string) string {
	uname = core.CleanString(uname, true /* lower */)
	if m := legacyUsernameRegex.FindStringSubmatch(uname); m != nil {
		var n int
		_, _ = fmt.Sscanf(m[1], "%d", &n)
		return fmt.Sprintf("huissepf%03d", n)
	}
	return uname
}

type Permissions struct {
	CanSeeAllComplaints bool            `json:"canSeeAllComplaints"`
	VisibleCategories   []core.Category `json:"visibleCategories" validate:"omitempty,categories"`
	CanManageAdmins     bool            `json:"canManageAdmins"`
}

// Clean de-duplicates and sorts VisibleCategories.
func (p *Permissions) Clean() {
	p.VisibleCategories = core.NewCategorySet(p.VisibleCategories...).Slice()
}

type Admin struct {
	ID           string      `json:"id"`
	Username     string      `json:"username,omitempty"`
	Email        string      `json:"email,omitempty"`
	Name         string      `json:"name"`
	PasswordHash []byte      `json:"-"`
	Level        Level       `json:"adminLevel"`
	Permissions  Permissions `json:"permissions"`
	IsFirstLogin bool        `json:"isFirstLogin"`
	IsActive     bool        `json:"isActive"`
	CreatedBy    string      `json:"createdBy,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"` // UTC
	UpdatedAt    time.Time   `json:"updatedAt"` // UTC
	LastLogin    time.Time   `json:"lastLogin"` // UTC
}

func (a *Admin) SetPassword(pwd string) error {
	hash, err := core.HashPassword(pwd)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Admin) CheckPassword(pwd string) error {
	return core.CheckPassword(a.PasswordHash, pwd)
}

func (a *Admin) IsSuperAdmin() bool { return a.Level == LevelSuperAdmin }

func (a *Admin) CanManageAdmins() bool {
	return a.IsSuperAdmin() || a.Permissions.CanManageAdmins
}

// SeesAllCategories reports whether the Admin has no category restriction.
func (a *Admin) SeesAllCategories() bool {
	return a.IsSuperAdmin() || a.Permissions.CanSeeAllComplaints
}

func (a *Admin) CanSeeCategory(c core.Category) bool {
	if a.SeesAllCategories() {
		return true
	}
	return core.NewCategorySet(a.Permissions.VisibleCategories...).Has(c)
}

// Login is the identifier the Admin signs in with: the email for the super admin, the username otherwise.
func (a *Admin) Login() string {
	if a.Username != "" {
		return a.Username
	}
	return a.Email
}

// NewAdmin contains information needed to create a new (non super) Admin.
type NewAdmin struct {
	Username    string      `json:"username" validate:"required,min=3,alphanum_"`
	Email       string      `json:"email" validate:"omitempty,email"`
	Name        string      `json:"name" validate:"required"`
	Level       Level       `json:"adminLevel" validate:"omitempty,oneof=admin sub_admin"`
	Permissions Permissions `json:"permissions"`
	Password    string      `json:"password"`
}

func (na *NewAdmin) Validate(validate *validator.Validate) error {
	na.Username = NormalizeUsername(na.Username)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Name = core.CleanString(na.Name)
	if na.Level == "" {
		na.Level = LevelSubAdmin
	}
	na.Permissions.Clean()
	return validate.Struct(na)
}

type SetStatus struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

func (ss SetStatus) Validate(validate *validator.Validate) error { return validate.Struct(ss) }

type QueryFilter struct {
	Search   string `query:"search"`
	Level    Level  `query:"adminLevel"`
	IsActive *bool  `query:"isActive"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Level = Level(core.CleanString(string(qf.Level), true /* lower */))
}

// GetFilter selects a single Admin; the first non-empty field wins.
type GetFilter struct {
	ID       string
	Username string
	Email    string
	// Login matches one of Username (normalized) or Email
	Login string
}
