package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/campusdesk/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// query returns a copy of the users sorted by name.
func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users
}

func (repo *userRepository) CheckUniqueness(_ context.Context, email, studentID, staffID string, excludedIDs ...string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if isExcluded(usr.ID, excludedIDs) {
			continue
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
		if studentID != "" && usr.StudentID == studentID {
			return user.ErrStudentIDExists
		}
		if staffID != "" && usr.StaffID == staffID {
			return user.ErrStaffIDExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = newID()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}

	match := func(usr *user.User) bool {
		switch {
		case filter.Email != "":
			return usr.Email == filter.Email
		case filter.StudentID != "":
			return usr.StudentID == filter.StudentID
		case filter.StaffID != "":
			return usr.StaffID == filter.StaffID
		case filter.Login != "":
			l := strings.ToLower(filter.Login)
			u := strings.ToUpper(filter.Login)
			return usr.Email == l || usr.StudentID == u || usr.StaffID == u
		}
		return false
	}
	for _, usr := range repo.db.users {
		if match(usr) {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := repo.query()
	if filter.IsEmpty() {
		return users, nil
	}

	search := strings.ToLower(filter.Search)
	res := make([]user.User, 0, len(users))
	for _, usr := range users {
		if search != "" &&
			!strings.Contains(strings.ToLower(usr.Name), search) &&
			!strings.Contains(usr.Email, search) &&
			!strings.Contains(strings.ToLower(usr.StudentID), search) &&
			!strings.Contains(strings.ToLower(usr.StaffID), search) {
			continue
		}
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
			continue
		}
		res = append(res, usr)
	}
	return res, nil
}

func (repo *userRepository) GetUsersByIDs(_ context.Context, ids ...string) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(ids))
	for _, usr := range repo.query() {
		if isExcluded(usr.ID, ids) {
			users = append(users, usr)
		}
	}
	return users, nil
}

func (repo *userRepository) GetStudentsByStudentIDs(_ context.Context, studentIDs ...string) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(studentIDs))
	for _, usr := range repo.query() {
		if usr.Role == user.RoleStudent && usr.StudentID != "" && isExcluded(usr.StudentID, studentIDs) {
			users = append(users, usr)
		}
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.users, id)
		for key := range repo.db.enrollments {
			if key.studentID == id {
				delete(repo.db.enrollments, key)
			}
		}
	}
	return nil
}

// isExcluded reports whether id is in ids.
func isExcluded(id string, ids []string) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
