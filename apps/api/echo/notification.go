package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campusdesk/core/notification"
)

type markedResponse struct {
	Updated int `json:"updated"`
}

func (s *Server) registerNotificationAPI(g *echo.Group) {
	g.GET("", s.notificationQuery)
	g.PATCH("/read-all", s.notificationMarkAllRead)
	g.PATCH("/:id/read", s.notificationMarkRead)
	if s.Subscriber != nil {
		g.GET("/stream", s.notificationStream)
	}
}

// Handlers

func (s *Server) notificationQuery(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	filter := new(notification.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return err
	}

	notifs, err := s.NotificationSvc.List(ctx.Request().Context(), p.ID(), *filter)
	if err != nil {
		return err
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (s *Server) notificationMarkRead(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	notif, err := s.NotificationSvc.MarkRead(ctx.Request().Context(), p.ID(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, notif)
}

func (s *Server) notificationMarkAllRead(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	n, err := s.NotificationSvc.MarkAllRead(ctx.Request().Context(), p.ID())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, markedResponse{Updated: n})
}

// notificationStream pushes the principal's new notifications as server-sent events until the client leaves.
func (s *Server) notificationStream(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	notifs, err := s.Subscriber.Subscribe(rctx, p.ID())
	if err != nil {
		return errors.Wrap(err, "subscribing to notifications")
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	for {
		select {
		case <-rctx.Done():
			return nil
		case notif, ok := <-notifs:
			if !ok {
				return nil
			}
			data, err := json.Marshal(notif)
			if err != nil {
				s.Logger.Warn("encoding notification", err, p)
				continue
			}
			if _, err := fmt.Fprintf(res, "id: %s\nevent: %s\ndata: %s\n\n", notif.ID, notif.Kind, data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
