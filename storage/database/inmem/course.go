package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/campusdesk/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, c := range repo.db.courses {
		if c.Code == crs.Code {
			return course.Course{}, course.ErrCodeExists
		}
	}
	crs.ID = newID()
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.db.courses {
		if filter.LecturerID != "" && crs.LecturerID != filter.LecturerID {
			continue
		}
		if filter.Status != "" && crs.Status != filter.Status {
			continue
		}
		if filter.StudentID != "" {
			if _, ok := repo.db.enrollments[enrollmentKey{courseID: crs.ID, studentID: filter.StudentID}]; !ok {
				continue
			}
		}
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) Enroll(_ context.Context, courseID string, studentIDs []string, at time.Time) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[courseID]; !ok {
		return 0, course.ErrNotFound
	}
	n := 0
	for _, sid := range studentIDs {
		key := enrollmentKey{courseID: courseID, studentID: sid}
		if _, ok := repo.db.enrollments[key]; ok {
			continue
		}
		repo.db.enrollments[key] = course.Enrollment{CourseID: courseID, StudentID: sid, EnrolledAt: at}
		n++
	}
	return n, nil
}

func (repo *courseRepository) RemoveEnrollment(_ context.Context, courseID, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.enrollments, enrollmentKey{courseID: courseID, studentID: studentID})
	return nil
}

func (repo *courseRepository) IsEnrolled(_ context.Context, courseID, studentID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	_, ok := repo.db.enrollments[enrollmentKey{courseID: courseID, studentID: studentID}]
	return ok, nil
}

func (repo *courseRepository) EnrolledStudentIDs(_ context.Context, courseID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]course.Enrollment, 0)
	for key, e := range repo.db.enrollments {
		if key.courseID == courseID {
			enrollments = append(enrollments, e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].EnrolledAt.Before(enrollments[j].EnrolledAt) })

	ids := make([]string, len(enrollments))
	for i, e := range enrollments {
		ids[i] = e.StudentID
	}
	return ids, nil
}
