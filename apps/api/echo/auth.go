package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/access"
)

const (
	contextTokenKey     = "userToken"
	contextPrincipalKey = "principal"
	tokenAudience       = "CampusDesk"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64       `json:"oriat,omitempty"`
	Kind         access.Kind `json:"kind"`
	Role         access.Role `json:"role"`
	Name         string      `json:"name,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// GetPrincipalClaims returns the claims of a token issued to p.
// origIat is the issue time of the first token of a refresh chain.
func GetPrincipalClaims(conf *core.Config, p access.Principal, origIat ...int64) *Claims {
	now := core.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   p.ID(),
			Audience:  tokenAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Kind:         p.Kind(),
		Role:         p.Role(),
		Name:         p.Name(),
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextPrincipal(ctx echo.Context) (access.Principal, error) {
	if p, ok := ctx.Get(contextPrincipalKey).(access.Principal); ok {
		return p, nil
	}
	return nil, errUnauthorized
}

// principalMiddleware resolves the token subject into a Principal: a User first, then an Admin.
// Every request re-reads the account so deactivations apply immediately.
func principalMiddleware(resolver *access.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			p, err := resolver.Resolve(ctx.Request().Context(), claims.Subject)
			if err != nil {
				switch errors.Cause(err) {
				case access.ErrAuthenticationFailed:
					return errUnauthorized
				case access.ErrAccountDeactivated:
					return errAccountDeactivated
				}
				return errors.Wrap(err, "resolving principal")
			}
			ctx.Set(contextPrincipalKey, p)
			return next(ctx)
		}
	}
}

// firstLoginGate rejects principals that must change their password first.
// It is left out of the routes a first-login principal may still call.
func firstLoginGate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := getContextPrincipal(ctx)
		if err != nil {
			return err
		}
		if access.MustChangePassword(p) {
			return access.ErrPasswordChangeRequired
		}
		return next(ctx)
	}
}

// rolesMiddleware only lets through principals having one of roles.
func rolesMiddleware(roles ...access.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextPrincipal(ctx)
			if err != nil {
				return err
			}
			if err := access.RequireRoles(p, roles...); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

func refreshToken(ctx echo.Context, conf *core.Config) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context principal")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if core.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(conf, GetPrincipalClaims(conf, p, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
