package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/complaint"
)

type complaintRepository struct {
	db *DB
}

var _ complaint.Repository = (*complaintRepository)(nil)

func NewComplaintRepository(db *DB) complaint.Repository {
	return &complaintRepository{db: db}
}

// store saves c without its comments, which live in their own table.
func (repo *complaintRepository) store(c complaint.Complaint) {
	c.Comments = nil
	if c.Resolution != nil {
		res := *c.Resolution
		c.Resolution = &res
	}
	repo.db.complaints[c.ID] = &c
}

func (repo *complaintRepository) load(id string, withComments bool) (complaint.Complaint, bool) {
	stored, ok := repo.db.complaints[id]
	if !ok {
		return complaint.Complaint{}, false
	}
	c := *stored
	if c.Resolution != nil {
		res := *c.Resolution
		c.Resolution = &res
	}
	if withComments {
		c.Comments = append([]complaint.Comment{}, repo.db.comments[id]...)
	}
	return c, true
}

func (repo *complaintRepository) CreateComplaint(_ context.Context, c complaint.Complaint) (complaint.Complaint, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c.ID = newID()
	repo.store(c)
	c.Comments = []complaint.Comment{}
	return c, nil
}

func (repo *complaintRepository) GetComplaint(_ context.Context, id string) (complaint.Complaint, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	c, ok := repo.load(id, true)
	if !ok {
		return complaint.Complaint{}, complaint.ErrNotFound
	}
	return c, nil
}

func (repo *complaintRepository) QueryComplaints(_ context.Context, filter complaint.RepoFilter) ([]complaint.Complaint, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var cats core.CategorySet
	if filter.Categories != nil {
		cats = core.NewCategorySet(filter.Categories...)
	}

	matches := make([]complaint.Complaint, 0)
	for id, stored := range repo.db.complaints {
		if filter.Status != "" && stored.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && stored.Priority != filter.Priority {
			continue
		}
		if filter.SubmittedBy != "" && stored.SubmittedBy != filter.SubmittedBy {
			continue
		}
		if filter.Categories != nil && !cats.Has(stored.Category) {
			continue
		}
		c, _ := repo.load(id, false)
		matches = append(matches, c)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })

	total := len(matches)
	page := filter.Pagination
	page.Clean()
	start := page.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return matches[start:end], total, nil
}

func (repo *complaintRepository) UpdateComplaint(_ context.Context, c complaint.Complaint) (complaint.Complaint, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.complaints[c.ID]; !ok {
		return complaint.Complaint{}, complaint.ErrNotFound
	}
	repo.store(c)
	c.Comments = nil
	return c, nil
}

func (repo *complaintRepository) DeleteComplaint(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.complaints, id)
	delete(repo.db.comments, id)
	return nil
}

func (repo *complaintRepository) AddComment(_ context.Context, complaintID string, cmt complaint.Comment) (complaint.Comment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.complaints[complaintID]; !ok {
		return complaint.Comment{}, complaint.ErrNotFound
	}
	repo.db.comments[complaintID] = append(repo.db.comments[complaintID], cmt)
	return cmt, nil
}
