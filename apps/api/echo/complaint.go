package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/campusdesk/core/complaint"
)

func (s *Server) registerComplaintAPI(g *echo.Group) {
	g.POST("", s.complaintSubmit)
	g.GET("", s.complaintQuery)

	g.GET("/:id", s.complaintRetrieve)
	g.PUT("/:id", s.complaintUpdate)
	g.DELETE("/:id", s.complaintDestroy)
	g.POST("/:id/comments", s.complaintComment)
}

// Handlers

func (s *Server) complaintSubmit(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	data := new(complaint.NewComplaint)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	c, err := s.ComplaintSvc.Submit(ctx.Request().Context(), p, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (s *Server) complaintQuery(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	filter := new(complaint.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return err
	}

	page, err := s.ComplaintSvc.List(ctx.Request().Context(), p, *filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, page)
}

func (s *Server) complaintRetrieve(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	c, err := s.ComplaintSvc.Get(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (s *Server) complaintUpdate(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	data := new(complaint.UpdateComplaint)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	c, err := s.ComplaintSvc.Update(ctx.Request().Context(), p, ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (s *Server) complaintDestroy(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	if err := s.ComplaintSvc.Delete(ctx.Request().Context(), p, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) complaintComment(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	data := new(complaint.NewComment)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	c, err := s.ComplaintSvc.AddComment(ctx.Request().Context(), p, ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}
