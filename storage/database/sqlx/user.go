package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campusdesk/core/user"
)

const userColumns = `id, name, email, role, student_id, staff_id, department, year, password_hash,
	is_first_login, is_active, created_at, updated_at, last_login`

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Email        string      `db:"email"`
	Role         string      `db:"role"`
	StudentID    null.String `db:"student_id"`
	StaffID      null.String `db:"staff_id"`
	Department   string      `db:"department"`
	Year         int         `db:"year"`
	PasswordHash []byte      `db:"password_hash"`
	IsFirstLogin bool        `db:"is_first_login"`
	IsActive     bool        `db:"is_active"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) boil(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         string(usr.Role),
		StudentID:    nullString(usr.StudentID),
		StaffID:      nullString(usr.StaffID),
		Department:   usr.Department,
		Year:         usr.Year,
		PasswordHash: usr.PasswordHash,
		IsFirstLogin: usr.IsFirstLogin,
		IsActive:     usr.IsActive,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo *userRepository) unboil(row userRow) user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		Role:         user.Role(row.Role),
		StudentID:    row.StudentID.String,
		StaffID:      row.StaffID.String,
		Department:   row.Department,
		Year:         row.Year,
		PasswordHash: row.PasswordHash,
		IsFirstLogin: row.IsFirstLogin,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

func (repo *userRepository) unboilSlice(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, repo.unboil(r))
	}
	return users
}

func (repo *userRepository) selectUsers(ctx context.Context, w *where, suffix string) ([]user.User, error) {
	q, args, err := w.build(repo.db, `SELECT `+userColumns+` FROM "user"`+w.String()+suffix)
	if err != nil {
		return nil, err
	}
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.unboilSlice(rows), nil
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, email, studentID, staffID string, excludedIDs ...string) error {
	checks := []struct {
		column string
		value  string
		err    error
	}{
		{column: "email", value: email, err: user.ErrEmailExists},
		{column: "student_id", value: studentID, err: user.ErrStudentIDExists},
		{column: "staff_id", value: staffID, err: user.ErrStaffIDExists},
	}
	for _, chk := range checks {
		if chk.value == "" {
			continue
		}
		w := &where{}
		w.add(chk.column+" = ?", chk.value)
		if len(excludedIDs) > 0 {
			w.add("id NOT IN (?)", excludedIDs)
		}
		q, args, err := w.build(repo.db, `SELECT EXISTS (SELECT 1 FROM "user"`+w.String()+`)`)
		if err != nil {
			return err
		}
		var exists bool
		if err := repo.db.GetContext(ctx, &exists, q, args...); err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if exists {
			return chk.err
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.boil(usr)
	q := `INSERT INTO "user" (` + userColumns + `) VALUES (:id, :name, :email, :role, :student_id, :staff_id,
		:department, :year, :password_hash, :is_first_login, :is_active, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return user.User{}, repo.trapUniqueErr(err, "inserting user")
	}
	return repo.unboil(row), nil
}

func (repo *userRepository) trapUniqueErr(err error, msg string) error {
	if constraint, ok := uniqueConstraint(err); ok {
		switch {
		case strings.Contains(constraint, "student_id"):
			return user.ErrStudentIDExists
		case strings.Contains(constraint, "staff_id"):
			return user.ErrStaffIDExists
		default:
			return user.ErrEmailExists
		}
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	w := &where{}
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case filter.StudentID != "":
		w.add("student_id = ?", filter.StudentID)
	case filter.StaffID != "":
		w.add("staff_id = ?", filter.StaffID)
	case filter.Login != "":
		w.add("(email = ? OR student_id = ? OR staff_id = ?)",
			strings.ToLower(filter.Login), strings.ToUpper(filter.Login), strings.ToUpper(filter.Login))
	default:
		return user.User{}, user.ErrNotFound
	}

	q, args, err := w.build(repo.db, `SELECT `+userColumns+` FROM "user"`+w.String()+` LIMIT 1`)
	if err != nil {
		return user.User{}, err
	}
	var row userRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.unboil(row), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	w := &where{}
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		w.add("(name ILIKE ? OR email ILIKE ? OR student_id ILIKE ? OR staff_id ILIKE ?)", val, val, val, val)
	}
	if filter.Role != "" {
		w.add("role = ?", string(filter.Role))
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}
	return repo.selectUsers(ctx, w, " ORDER BY name")
}

func (repo *userRepository) GetUsersByIDs(ctx context.Context, ids ...string) ([]user.User, error) {
	valid := validUUIDs(ids)
	if len(valid) == 0 {
		return []user.User{}, nil
	}
	w := &where{}
	w.add("id IN (?)", valid)
	return repo.selectUsers(ctx, w, " ORDER BY name")
}

func (repo *userRepository) GetStudentsByStudentIDs(ctx context.Context, studentIDs ...string) ([]user.User, error) {
	if len(studentIDs) == 0 {
		return []user.User{}, nil
	}
	w := &where{}
	w.add("role = ?", string(user.RoleStudent))
	w.add("student_id IN (?)", studentIDs)
	return repo.selectUsers(ctx, w, " ORDER BY name")
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := repo.boil(usr)
	q := `UPDATE "user" SET name = :name, email = :email, role = :role, student_id = :student_id,
		staff_id = :staff_id, department = :department, year = :year, password_hash = :password_hash,
		is_first_login = :is_first_login, is_active = :is_active, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return user.User{}, repo.trapUniqueErr(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.unboil(row), nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
