package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/access"
	"github.com/trezcool/campusdesk/core/course"
	"github.com/trezcool/campusdesk/core/user"
)

// getContextUser returns the User principal of the request; Admins are denied.
func getContextUser(ctx echo.Context) (user.User, error) {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, ok := access.AsUser(p)
	if !ok {
		return user.User{}, core.ErrPermissionDenied
	}
	return usr, nil
}

func (s *Server) registerCourseAPI(g *echo.Group) {
	staff := rolesMiddleware(access.RoleStaff)

	g.POST("", s.courseCreate, staff)
	g.GET("/mine", s.courseListOwned, staff)
	g.GET("/enrolled", s.courseListEnrolled, rolesMiddleware(access.RoleStudent))

	dg := g.Group("/:id", staff)
	dg.GET("/enrollments", s.courseListEnrollments)
	dg.POST("/enroll", s.courseEnroll)
	dg.DELETE("/enroll/:studentId", s.courseRemoveEnrollment)
	dg.PATCH("/complete", s.courseComplete)
}

// Handlers

func (s *Server) courseCreate(ctx echo.Context) error {
	lecturer, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	data := new(course.NewCourse)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	crs, err := s.CourseSvc.Create(ctx.Request().Context(), lecturer, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (s *Server) courseListOwned(ctx echo.Context) error {
	lecturer, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	courses, err := s.CourseSvc.ListOwned(ctx.Request().Context(), lecturer)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, nonNil(courses))
}

func (s *Server) courseListEnrolled(ctx echo.Context) error {
	student, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	courses, err := s.CourseSvc.ListEnrolled(ctx.Request().Context(), student)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, nonNil(courses))
}

func (s *Server) courseListEnrollments(ctx echo.Context) error {
	lecturer, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	students, err := s.CourseSvc.ListEnrollments(ctx.Request().Context(), lecturer, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (s *Server) courseEnroll(ctx echo.Context) error {
	lecturer, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	data := new(course.Enroll)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	res, err := s.CourseSvc.Enroll(ctx.Request().Context(), lecturer, ctx.Param("id"), data.StudentIDs)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (s *Server) courseRemoveEnrollment(ctx echo.Context) error {
	lecturer, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := s.CourseSvc.RemoveEnrollment(ctx.Request().Context(), lecturer, ctx.Param("id"), ctx.Param("studentId")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) courseComplete(ctx echo.Context) error {
	lecturer, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	crs, err := s.CourseSvc.Complete(ctx.Request().Context(), lecturer, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func nonNil(courses []course.Course) []course.Course {
	if courses == nil {
		return []course.Course{}
	}
	return courses
}
