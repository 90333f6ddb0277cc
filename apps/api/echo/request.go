package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/campusdesk/core/access"
	"github.com/trezcool/campusdesk/core/request"
)

func (s *Server) registerRequestAPI(g *echo.Group) {
	student := rolesMiddleware(access.RoleStudent)
	staff := rolesMiddleware(access.RoleStaff)

	g.POST("", s.requestSubmit, student)
	g.GET("/mine", s.requestListMine, student)
	g.GET("/queue/:courseId", s.requestQueue, staff)
	g.PATCH("/:id/status", s.requestAdvanceStatus, staff)
}

// Handlers

func (s *Server) requestSubmit(ctx echo.Context) error {
	student, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	data := new(request.NewRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	req, err := s.RequestSvc.Submit(ctx.Request().Context(), student, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (s *Server) requestListMine(ctx echo.Context) error {
	student, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reqs, err := s.RequestSvc.ListMine(ctx.Request().Context(), student)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (s *Server) requestQueue(ctx echo.Context) error {
	lecturer, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reqs, err := s.RequestSvc.Queue(ctx.Request().Context(), lecturer, ctx.Param("courseId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (s *Server) requestAdvanceStatus(ctx echo.Context) error {
	lecturer, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	data := new(request.UpdateStatus)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	req, err := s.RequestSvc.AdvanceStatus(ctx.Request().Context(), lecturer, ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, req)
}
