package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/access"
	"github.com/trezcool/campusdesk/core/user"
)

type (
	loginRequest struct {
		Identifier string `json:"identifier" validate:"required"`
		Password   string `json:"password" validate:"required"`
	}

	loginResponse struct {
		Token              string      `json:"token"`
		Kind               access.Kind `json:"kind"`
		MustChangePassword bool        `json:"mustChangePassword"`
	}

	tokenResponse struct {
		Token string `json:"token"`
	}

	passwordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	messageResponse struct {
		Message string `json:"message"`
	}
)

func (s *Server) registerAuthAPI(g *echo.Group, auth []echo.MiddlewareFunc) {
	// un-authed endpoints
	g.POST("/login", s.login)
	g.POST("/password-reset", s.requestPasswordReset)
	g.POST("/password-reset-confirm", s.confirmPasswordReset)

	// authed endpoints, reachable before the first password change
	ag := g.Group("", auth...)
	ag.POST("/change-password", s.changePassword)
	ag.GET("/me", s.me)
	ag.POST("/token-refresh", s.refreshToken, firstLoginGate)
}

// authenticate looks the identifier up in the User store first, then in the Admin store.
func (s *Server) authenticate(ctx context.Context, identifier, pwd string) (access.Principal, error) {
	var p access.Principal
	if usr, err := s.UserSvc.GetByLogin(ctx, identifier); err == nil {
		if err := usr.CheckPassword(pwd); err != nil {
			return nil, errAuthenticationFailed
		}
		p = access.UserPrincipal{User: usr}
	} else if !core.IsNotFound(err) {
		return nil, errors.Wrap(err, "getting user")
	} else if adm, err := s.AdminSvc.GetByLogin(ctx, identifier); err == nil {
		if err := adm.CheckPassword(pwd); err != nil {
			return nil, errAuthenticationFailed
		}
		p = access.AdminPrincipal{Admin: adm}
	} else if !core.IsNotFound(err) {
		return nil, errors.Wrap(err, "getting admin")
	} else {
		return nil, errAuthenticationFailed
	}

	if !p.IsActive() {
		return nil, errAccountDeactivated
	}
	return p, nil
}

func (s *Server) login(ctx echo.Context) error {
	data := new(loginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	data.Identifier = core.CleanString(data.Identifier)
	if err := s.Validate.Struct(data); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	p, err := s.authenticate(rctx, data.Identifier, data.Password)
	if err != nil {
		return err
	}

	switch p := p.(type) {
	case access.UserPrincipal:
		if _, err := s.UserSvc.SetLastLogin(rctx, p.User); err != nil {
			s.Logger.Warn("setting user last login", err, p)
		}
	case access.AdminPrincipal:
		if _, err := s.AdminSvc.SetLastLogin(rctx, p.Admin); err != nil {
			s.Logger.Warn("setting admin last login", err, p)
		}
	}

	token, err := GenerateToken(s.Conf, GetPrincipalClaims(s.Conf, p))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, loginResponse{
		Token:              token,
		Kind:               p.Kind(),
		MustChangePassword: access.MustChangePassword(p),
	})
}

func (s *Server) changePassword(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	data := new(user.ChangePassword)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	switch p := p.(type) {
	case access.UserPrincipal:
		usr, err := s.UserSvc.ChangePassword(rctx, p.User, *data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, usr)
	case access.AdminPrincipal:
		adm, err := s.AdminSvc.ChangePassword(rctx, p.Admin, *data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, adm)
	}
	return core.ErrPermissionDenied
}

func (s *Server) me(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	if usr, ok := access.AsUser(p); ok {
		return ctx.JSON(http.StatusOK, usr)
	}
	adm, _ := access.AsAdmin(p)
	return ctx.JSON(http.StatusOK, adm)
}

func (s *Server) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, s.Conf)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tokenResponse{Token: token})
}

// requestPasswordReset always answers OK so that registered emails cannot be probed.
func (s *Server) requestPasswordReset(ctx echo.Context) error {
	data := new(passwordResetRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := s.Validate.Struct(data); err != nil {
		return err
	}

	if err := s.UserSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil && !core.IsNotFound(err) {
		return err
	}
	return ctx.JSON(http.StatusOK, messageResponse{
		Message: "if an active account uses this email, a password reset link has been sent to it",
	})
}

func (s *Server) confirmPasswordReset(ctx echo.Context) error {
	data := new(user.ResetUserPassword)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := s.UserSvc.ResetPassword(ctx.Request().Context(), *data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "your password has been reset"})
}
