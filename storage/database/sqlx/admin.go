package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/admin"
)

const adminColumns = `id, username, email, name, password_hash, admin_level, can_see_all_complaints,
	visible_categories, can_manage_admins, is_first_login, is_active, created_by, created_at, updated_at, last_login`

type adminRow struct {
	ID                  string         `db:"id"`
	Username            null.String    `db:"username"`
	Email               null.String    `db:"email"`
	Name                string         `db:"name"`
	PasswordHash        []byte         `db:"password_hash"`
	AdminLevel          string         `db:"admin_level"`
	CanSeeAllComplaints bool           `db:"can_see_all_complaints"`
	VisibleCategories   pq.StringArray `db:"visible_categories"`
	CanManageAdmins     bool           `db:"can_manage_admins"`
	IsFirstLogin        bool           `db:"is_first_login"`
	IsActive            bool           `db:"is_active"`
	CreatedBy           null.String    `db:"created_by"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
	LastLogin           null.Time      `db:"last_login"`
}

type adminRepository struct {
	db *sqlx.DB
}

var _ admin.Repository = (*adminRepository)(nil)

func NewAdminRepository(db *sqlx.DB) admin.Repository {
	return &adminRepository{db: db}
}

func (repo *adminRepository) boil(adm admin.Admin) adminRow {
	cats := core.NewCategorySet(adm.Permissions.VisibleCategories...).Strings()
	return adminRow{
		ID:                  adm.ID,
		Username:            nullString(adm.Username),
		Email:               nullString(adm.Email),
		Name:                adm.Name,
		PasswordHash:        adm.PasswordHash,
		AdminLevel:          string(adm.Level),
		CanSeeAllComplaints: adm.Permissions.CanSeeAllComplaints,
		VisibleCategories:   pq.StringArray(cats),
		CanManageAdmins:     adm.Permissions.CanManageAdmins,
		IsFirstLogin:        adm.IsFirstLogin,
		IsActive:            adm.IsActive,
		CreatedBy:           nullString(adm.CreatedBy),
		CreatedAt:           adm.CreatedAt.UTC(),
		UpdatedAt:           adm.UpdatedAt.UTC(),
		LastLogin:           null.NewTime(adm.LastLogin.UTC(), !adm.LastLogin.IsZero()),
	}
}

func (repo *adminRepository) unboil(row adminRow) admin.Admin {
	return admin.Admin{
		ID:           row.ID,
		Username:     row.Username.String,
		Email:        row.Email.String,
		Name:         row.Name,
		PasswordHash: row.PasswordHash,
		Level:        admin.Level(row.AdminLevel),
		Permissions: admin.Permissions{
			CanSeeAllComplaints: row.CanSeeAllComplaints,
			VisibleCategories:   core.ParseCategories(row.VisibleCategories),
			CanManageAdmins:     row.CanManageAdmins,
		},
		IsFirstLogin: row.IsFirstLogin,
		IsActive:     row.IsActive,
		CreatedBy:    row.CreatedBy.String,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

func (repo *adminRepository) trapUniqueErr(err error, msg string) error {
	if constraint, ok := uniqueConstraint(err); ok {
		if strings.Contains(constraint, "username") {
			return admin.ErrUsernameExists
		}
		return admin.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo *adminRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error {
	checks := []struct {
		column string
		value  string
		err    error
	}{
		{column: "username", value: username, err: admin.ErrUsernameExists},
		{column: "email", value: email, err: admin.ErrEmailExists},
	}
	for _, chk := range checks {
		if chk.value == "" {
			continue
		}
		w := &where{}
		w.add(chk.column+" = ?", chk.value)
		if ids := validUUIDs(excludedIDs); len(ids) > 0 {
			w.add("id NOT IN (?)", ids)
		}
		q, args, err := w.build(repo.db, `SELECT EXISTS (SELECT 1 FROM admin`+w.String()+`)`)
		if err != nil {
			return err
		}
		var exists bool
		if err := repo.db.GetContext(ctx, &exists, q, args...); err != nil {
			return errors.Wrap(err, "checking admin uniqueness")
		}
		if exists {
			return chk.err
		}
	}
	return nil
}

func (repo *adminRepository) CreateAdmin(ctx context.Context, adm admin.Admin) (admin.Admin, error) {
	adm.ID = uuid.New().String()
	row := repo.boil(adm)
	q := `INSERT INTO admin (` + adminColumns + `) VALUES (:id, :username, :email, :name, :password_hash,
		:admin_level, :can_see_all_complaints, :visible_categories, :can_manage_admins, :is_first_login,
		:is_active, :created_by, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return admin.Admin{}, repo.trapUniqueErr(err, "inserting admin")
	}
	return repo.unboil(row), nil
}

func (repo *adminRepository) GetAdmin(ctx context.Context, filter admin.GetFilter) (admin.Admin, error) {
	w := &where{}
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return admin.Admin{}, admin.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Username != "":
		w.add("username = ?", filter.Username)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case filter.Login != "":
		w.add("(username = ? OR email = ?)", filter.Login, filter.Login)
	default:
		return admin.Admin{}, admin.ErrNotFound
	}

	q, args, err := w.build(repo.db, `SELECT `+adminColumns+` FROM admin`+w.String()+` LIMIT 1`)
	if err != nil {
		return admin.Admin{}, err
	}
	var row adminRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		return admin.Admin{}, trapNoRowsErr(err, admin.ErrNotFound, "finding admin")
	}
	return repo.unboil(row), nil
}

func (repo *adminRepository) QueryAdmins(ctx context.Context, filter admin.QueryFilter) ([]admin.Admin, error) {
	w := &where{}
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		w.add("(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)", val, val, val)
	}
	if filter.Level != "" {
		w.add("admin_level = ?", string(filter.Level))
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}

	q, args, err := w.build(repo.db, `SELECT `+adminColumns+` FROM admin`+w.String()+` ORDER BY COALESCE(username, email)`)
	if err != nil {
		return nil, err
	}
	var rows []adminRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying admins")
	}
	admins := make([]admin.Admin, 0, len(rows))
	for _, r := range rows {
		admins = append(admins, repo.unboil(r))
	}
	return admins, nil
}

func (repo *adminRepository) UpdateAdmin(ctx context.Context, adm admin.Admin) (admin.Admin, error) {
	row := repo.boil(adm)
	q := `UPDATE admin SET username = :username, email = :email, name = :name, password_hash = :password_hash,
		admin_level = :admin_level, can_see_all_complaints = :can_see_all_complaints,
		visible_categories = :visible_categories, can_manage_admins = :can_manage_admins,
		is_first_login = :is_first_login, is_active = :is_active, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return admin.Admin{}, repo.trapUniqueErr(err, "updating admin")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return admin.Admin{}, admin.ErrNotFound
	}
	return repo.unboil(row), nil
}

func (repo *adminRepository) DeleteAdmin(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM admin WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting admin")
	}
	return nil
}
