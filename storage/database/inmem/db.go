package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/campusdesk/core/admin"
	"github.com/trezcool/campusdesk/core/complaint"
	"github.com/trezcool/campusdesk/core/course"
	"github.com/trezcool/campusdesk/core/messaging"
	"github.com/trezcool/campusdesk/core/notification"
	"github.com/trezcool/campusdesk/core/request"
	"github.com/trezcool/campusdesk/core/user"
)

type (
	// DB is an in-memory database used by tests. Every table shares the same lock.
	DB struct {
		mutex sync.RWMutex

		users         map[string]*user.User
		admins        map[string]*admin.Admin
		courses       map[string]*course.Course
		enrollments   map[enrollmentKey]course.Enrollment // unique (course, student) pairs
		messages      map[string]*messaging.Message
		requests      map[string]*request.Request
		complaints    map[string]*complaint.Complaint
		comments      map[string][]complaint.Comment // {complaintID: comments}
		notifications map[string]*notification.Notification
	}

	enrollmentKey struct {
		courseID  string
		studentID string
	}
)

func Open() *DB {
	return &DB{
		users:         make(map[string]*user.User),
		admins:        make(map[string]*admin.Admin),
		courses:       make(map[string]*course.Course),
		enrollments:   make(map[enrollmentKey]course.Enrollment),
		messages:      make(map[string]*messaging.Message),
		requests:      make(map[string]*request.Request),
		complaints:    make(map[string]*complaint.Complaint),
		comments:      make(map[string][]complaint.Comment),
		notifications: make(map[string]*notification.Notification),
	}
}

func newID() string { return uuid.New().String() }
