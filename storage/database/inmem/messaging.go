package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/campusdesk/core/messaging"
)

type messageRepository struct {
	db *DB
}

var _ messaging.Repository = (*messageRepository)(nil)

func NewMessageRepository(db *DB) messaging.Repository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateMessage(_ context.Context, msg messaging.Message) (messaging.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	msg.ID = newID()
	repo.db.messages[msg.ID] = &msg
	return msg, nil
}

func (repo *messageRepository) QueryMessages(_ context.Context, filter messaging.QueryFilter) ([]messaging.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	msgs := make([]messaging.Message, 0)
	for _, msg := range repo.db.messages {
		if filter.CourseID != "" && msg.CourseID != filter.CourseID {
			continue
		}
		if !filter.Now.IsZero() && !msg.ExpiresAt.After(filter.Now) {
			continue
		}
		if filter.RecipientID != "" && !msg.IsBroadcast && msg.RecipientID != filter.RecipientID {
			continue
		}
		msgs = append(msgs, *msg)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.After(msgs[j].CreatedAt) })
	return msgs, nil
}

func (repo *messageRepository) DeleteExpiredMessages(_ context.Context, now time.Time) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := 0
	for id, msg := range repo.db.messages {
		if !msg.ExpiresAt.After(now) {
			delete(repo.db.messages, id)
			n++
		}
	}
	return n, nil
}
