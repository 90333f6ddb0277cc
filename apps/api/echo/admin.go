package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/access"
	"github.com/trezcool/campusdesk/core/admin"
	"github.com/trezcool/campusdesk/core/user"
)

type bulkUsersRequest struct {
	Users []user.NewUser `json:"users"`
}

func getContextAdmin(ctx echo.Context) (admin.Admin, error) {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return admin.Admin{}, err
	}
	adm, ok := access.AsAdmin(p)
	if !ok {
		return admin.Admin{}, core.ErrPermissionDenied
	}
	return adm, nil
}

// registerAdminAPI expects g to be restricted to Admin principals.
func (s *Server) registerAdminAPI(g *echo.Group) {
	ag := g.Group("/admins")
	ag.POST("", s.adminCreate)
	ag.GET("", s.adminQuery)
	ag.GET("/:id", s.adminRetrieve)
	ag.PUT("/:id/permissions", s.adminSetPermissions)
	ag.PATCH("/:id/status", s.adminSetStatus)
	ag.DELETE("/:id", s.adminDestroy, rolesMiddleware(access.RoleSuperAdmin))

	managers := rolesMiddleware(access.RoleSuperAdmin, access.RoleAdmin)
	ug := g.Group("/users")
	ug.POST("", s.userCreate)
	ug.POST("/bulk", s.userCreateMany)
	ug.GET("", s.userQuery)
	ug.PATCH("/:id/status", s.userSetStatus, managers)
	ug.DELETE("/:id", s.userDestroy, managers)
}

// Admins

func (s *Server) adminCreate(ctx echo.Context) error {
	actor, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	data := new(admin.NewAdmin)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	adm, err := s.AdminSvc.Create(ctx.Request().Context(), actor, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, adm)
}

func (s *Server) adminQuery(ctx echo.Context) error {
	actor, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	filter := new(admin.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return err
	}

	admins, err := s.AdminSvc.Query(ctx.Request().Context(), actor, *filter)
	if err != nil {
		return err
	}
	if admins == nil {
		admins = []admin.Admin{}
	}
	return ctx.JSON(http.StatusOK, admins)
}

func (s *Server) adminRetrieve(ctx echo.Context) error {
	actor, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	adm, err := s.AdminSvc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, adm)
}

func (s *Server) adminSetPermissions(ctx echo.Context) error {
	actor, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	data := new(admin.Permissions)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	adm, err := s.AdminSvc.SetPermissions(ctx.Request().Context(), actor, ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, adm)
}

func (s *Server) adminSetStatus(ctx echo.Context) error {
	actor, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	data := new(admin.SetStatus)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	adm, err := s.AdminSvc.SetActive(ctx.Request().Context(), actor, ctx.Param("id"), *data.IsActive)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, adm)
}

func (s *Server) adminDestroy(ctx echo.Context) error {
	actor, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	if err := s.AdminSvc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Users

func (s *Server) userCreate(ctx echo.Context) error {
	data := new(user.NewUser)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	usr, err := s.UserSvc.Create(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (s *Server) userCreateMany(ctx echo.Context) error {
	data := new(bulkUsersRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if len(data.Users) == 0 {
		return core.NewFieldError("users", "at least one user is required")
	}
	return ctx.JSON(http.StatusOK, s.UserSvc.CreateMany(ctx.Request().Context(), data.Users))
}

func (s *Server) userQuery(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return err
	}
	users, err := s.UserSvc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return err
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (s *Server) userSetStatus(ctx echo.Context) error {
	data := new(admin.SetStatus)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}
	usr, err := s.UserSvc.SetActive(ctx.Request().Context(), ctx.Param("id"), *data.IsActive)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *Server) userDestroy(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	id := ctx.Param("id")
	if _, err := s.UserSvc.GetByID(rctx, id); err != nil {
		return err
	}
	if err := s.UserSvc.Delete(rctx, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
