package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/campusdesk/core/access"
	"github.com/trezcool/campusdesk/core/messaging"
)

func (s *Server) registerMessagingAPI(g *echo.Group) {
	staff := rolesMiddleware(access.RoleStaff)

	g.POST("/broadcast", s.messageBroadcast, staff)
	g.POST("/private", s.messageSendPrivate, staff)
	g.GET("/course/:courseId", s.messageList, rolesMiddleware(access.UserRoles...))
}

// Handlers

func (s *Server) messageBroadcast(ctx echo.Context) error {
	lecturer, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	data := new(messaging.NewBroadcast)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	msg, err := s.MessagingSvc.Broadcast(ctx.Request().Context(), lecturer, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (s *Server) messageSendPrivate(ctx echo.Context) error {
	lecturer, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	data := new(messaging.NewPrivate)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	msg, err := s.MessagingSvc.SendPrivate(ctx.Request().Context(), lecturer, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (s *Server) messageList(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	msgs, err := s.MessagingSvc.List(ctx.Request().Context(), usr, ctx.Param("courseId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, msgs)
}
