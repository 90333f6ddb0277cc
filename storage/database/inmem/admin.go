package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/campusdesk/core/admin"
)

type adminRepository struct {
	db *DB
}

var _ admin.Repository = (*adminRepository)(nil)

func NewAdminRepository(db *DB) admin.Repository {
	return &adminRepository{db: db}
}

func (repo *adminRepository) CheckUniqueness(_ context.Context, username, email string, excludedIDs ...string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, adm := range repo.db.admins {
		if isExcluded(adm.ID, excludedIDs) {
			continue
		}
		if username != "" && adm.Username == username {
			return admin.ErrUsernameExists
		}
		if email != "" && adm.Email == email {
			return admin.ErrEmailExists
		}
	}
	return nil
}

func (repo *adminRepository) CreateAdmin(_ context.Context, adm admin.Admin) (admin.Admin, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	adm.ID = newID()
	repo.db.admins[adm.ID] = &adm
	return adm, nil
}

func (repo *adminRepository) GetAdmin(_ context.Context, filter admin.GetFilter) (admin.Admin, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if adm, ok := repo.db.admins[filter.ID]; ok {
			return *adm, nil
		}
		return admin.Admin{}, admin.ErrNotFound
	}

	for _, adm := range repo.db.admins {
		switch {
		case filter.Username != "" && adm.Username == filter.Username,
			filter.Email != "" && adm.Email == filter.Email,
			filter.Login != "" && (adm.Username == filter.Login || adm.Email == filter.Login):
			return *adm, nil
		}
	}
	return admin.Admin{}, admin.ErrNotFound
}

func (repo *adminRepository) QueryAdmins(_ context.Context, filter admin.QueryFilter) ([]admin.Admin, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	admins := make([]admin.Admin, 0, len(repo.db.admins))
	for _, adm := range repo.db.admins {
		if search != "" &&
			!strings.Contains(strings.ToLower(adm.Name), search) &&
			!strings.Contains(adm.Username, search) &&
			!strings.Contains(adm.Email, search) {
			continue
		}
		if filter.Level != "" && adm.Level != filter.Level {
			continue
		}
		if filter.IsActive != nil && adm.IsActive != *filter.IsActive {
			continue
		}
		admins = append(admins, *adm)
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].Login() < admins[j].Login() })
	return admins, nil
}

func (repo *adminRepository) UpdateAdmin(_ context.Context, adm admin.Admin) (admin.Admin, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.admins[adm.ID]; !ok {
		return admin.Admin{}, admin.ErrNotFound
	}
	repo.db.admins[adm.ID] = &adm
	return adm, nil
}

func (repo *adminRepository) DeleteAdmin(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.admins, id)
	for _, adm := range repo.db.admins {
		if adm.CreatedBy == id {
			adm.CreatedBy = ""
		}
	}
	for _, c := range repo.db.complaints {
		if c.AssignedTo == id {
			c.AssignedTo = ""
		}
	}
	return nil
}
