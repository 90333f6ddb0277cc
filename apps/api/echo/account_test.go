package echoapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/access"
	"github.com/trezcool/campusdesk/core/admin"
	"github.com/trezcool/campusdesk/core/user"
	emailsvc "github.com/trezcool/campusdesk/services/email"
)

func Test_server_login(t *testing.T) {
	app := setup(t)
	student := app.createUser(t, "Ada Student", "ada@campus.test", user.RoleStudent, "CSC/001")
	app.createUser(t, "New Comer", "new@campus.test", user.RoleStudent, "CSC/002", firstLogin)
	app.createUser(t, "Gone Student", "gone@campus.test", user.RoleStudent, "CSC/003", inactive)
	app.createAdmin(t, "huissepf003", admin.LevelSubAdmin, admin.Permissions{
		VisibleCategories: []core.Category{core.CategoryNetwork, core.CategoryPassword},
	})

	body := func(ident, pwd string) []byte {
		return marchallObj(t, loginRequest{Identifier: ident, Password: pwd})
	}
	invalidCreds := marchallObj(t, httpErr{Error: "invalid credentials"})

	tests := []httpTest{
		{name: "missing fields", body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"identifier": "this field is required", "password": "this field is required"})},
		{name: "unknown identifier", body: body("nobody@campus.test", testPassword), wantCode: http.StatusUnauthorized, wantData: invalidCreds},
		{name: "wrong password", body: body("ada@campus.test", "wrong"), wantCode: http.StatusUnauthorized, wantData: invalidCreds},
		{name: "deactivated", body: body("gone@campus.test", testPassword), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "user by email", body: body(" ADA@campus.test ", testPassword), wantCode: http.StatusOK,
			extra: loginResponse{Kind: access.KindUser}},
		{name: "user by student id", body: body("csc/001", testPassword), wantCode: http.StatusOK,
			extra: loginResponse{Kind: access.KindUser}},
		{name: "first login", body: body("new@campus.test", testPassword), wantCode: http.StatusOK,
			extra: loginResponse{Kind: access.KindUser, MustChangePassword: true}},
		{name: "legacy admin username", body: body("HUISSEPF3", testPassword), wantCode: http.StatusOK,
			extra: loginResponse{Kind: access.KindAdmin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/auth/login", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if want, ok := tt.extra.(loginResponse); ok {
				var got loginResponse
				decode(t, rec, &got)
				assert.NotEmpty(t, got.Token)
				assert.Equal(t, want.Kind, got.Kind)
				assert.Equal(t, want.MustChangePassword, got.MustChangePassword)
			}
		})
	}

	t.Run("last login is recorded", func(t *testing.T) {
		usr, err := app.userSvc.GetByID(context.Background(), student.ID)
		require.NoError(t, err)
		assert.False(t, usr.LastLogin.IsZero())
	})
}

func Test_server_firstLoginGate(t *testing.T) {
	app := setup(t)
	staff := app.createUser(t, "Lecturer", "lect@campus.test", user.RoleStaff, "STF01", firstLogin)
	token := userToken(t, app.conf, staff)

	tests := []httpTest{
		{name: "no token", method: http.MethodGet, path: "/courses/mine", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "gated", method: http.MethodGet, path: "/courses/mine", token: token, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "password change required"})},
		{name: "gated refresh", method: http.MethodPost, path: "/auth/token-refresh", token: token, wantCode: http.StatusForbidden},
		{name: "me allowed", method: http.MethodGet, path: "/auth/me", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, staff)},
		{name: "change password: mismatch", method: http.MethodPost, path: "/auth/change-password", token: token,
			body: marchallObj(t, user.ChangePassword{CurrentPassword: testPassword, NewPassword: "N3w!Secret99", NewPasswordConfirm: "other"}),
			wantCode: http.StatusBadRequest},
		{name: "change password: wrong current", method: http.MethodPost, path: "/auth/change-password", token: token,
			body:     marchallObj(t, user.ChangePassword{CurrentPassword: "nope", NewPassword: "N3w!Secret99", NewPasswordConfirm: "N3w!Secret99"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"currentPassword": user.ErrInvalidCredential.Error()})},
		{name: "change password: weak", method: http.MethodPost, path: "/auth/change-password", token: token,
			body:     marchallObj(t, user.ChangePassword{CurrentPassword: testPassword, NewPassword: "12345678", NewPasswordConfirm: "12345678"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"newPassword": "password cannot be entirely numeric"})},
		{name: "change password", method: http.MethodPost, path: "/auth/change-password", token: token,
			body:     marchallObj(t, user.ChangePassword{CurrentPassword: testPassword, NewPassword: "N3w!Secret99", NewPasswordConfirm: "N3w!Secret99"}),
			wantCode: http.StatusOK},
		{name: "no longer gated", method: http.MethodGet, path: "/courses/mine", token: token, wantCode: http.StatusOK, wantData: []byte("[]")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	usr, err := app.userSvc.GetByID(context.Background(), staff.ID)
	require.NoError(t, err)
	assert.False(t, usr.IsFirstLogin)
	assert.NoError(t, usr.CheckPassword("N3w!Secret99"))
}

func Test_server_principalResolution(t *testing.T) {
	app := setup(t)
	student := app.createUser(t, "Ada Student", "ada@campus.test", user.RoleStudent, "CSC001")
	token := userToken(t, app.conf, student)

	_, err := app.userSvc.SetActive(context.Background(), student.ID, false)
	require.NoError(t, err)

	unknown := userToken(t, app.conf, user.User{ID: "2b0d7c9e-8a07-4a3e-9f0e-3f5d4c2b1a00", Name: "ghost"})
	tests := []httpTest{
		{name: "deactivated after issue", token: token, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "unknown subject", token: unknown, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "authentication required"})},
		{name: "garbage token", token: "not.a.jwt", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/auth/me"
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func Test_server_refreshToken(t *testing.T) {
	app := setup(t)
	student := app.createUser(t, "Ada Student", "ada@campus.test", user.RoleStudent, "CSC001")
	p := access.UserPrincipal{User: student}

	fresh := getToken(t, app.conf, p)

	// issued long ago, but refreshed recently enough to still be valid
	stale, err := GenerateToken(app.conf, GetPrincipalClaims(app.conf, p, core.Now().Add(-5*time.Hour).Unix()))
	require.NoError(t, err)

	tests := []httpTest{
		{name: "within refresh window", token: fresh, wantCode: http.StatusOK},
		{name: "refresh expired", token: stale, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/auth/token-refresh"
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt)
			checkCodeAndData(t, tt, rec)
			if tt.wantCode == http.StatusOK {
				var got tokenResponse
				decode(t, rec, &got)
				assert.NotEmpty(t, got.Token)
			}
		})
	}
}

func Test_server_passwordReset(t *testing.T) {
	app := setup(t)
	student := app.createUser(t, "Ada Student", "ada@campus.test", user.RoleStudent, "CSC001")
	okMsg := marchallObj(t, messageResponse{Message: "if an active account uses this email, a password reset link has been sent to it"})

	tests := []httpTest{
		{name: "invalid email", body: marchallObj(t, passwordResetRequest{Email: "nope"}), wantCode: http.StatusBadRequest},
		{name: "unknown email", body: marchallObj(t, passwordResetRequest{Email: "who@campus.test"}), wantCode: http.StatusOK, wantData: okMsg, extra: 0},
		{name: "known email", body: marchallObj(t, passwordResetRequest{Email: "ADA@campus.test"}), wantCode: http.StatusOK, wantData: okMsg, extra: 1},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/auth/password-reset"
		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ResetSentMessages()
			checkCodeAndData(t, tt, app.do(tt))
			if n, ok := tt.extra.(int); ok {
				assert.Len(t, emailsvc.GetSentMessages(), n)
			}
		})
	}

	token, err := user.MakeResetToken(app.conf, student)
	require.NoError(t, err)
	confirm := func(uid, token, pwd string) []byte {
		return marchallObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: pwd, PasswordConfirm: pwd})
	}
	invalidLink := marchallObj(t, httpErr{Error: user.ErrInvalidResetLink.Error()})

	confirmTests := []httpTest{
		{name: "invalid uid", body: confirm("lol", token, "N3w!Secret99"), wantCode: http.StatusBadRequest, wantData: invalidLink},
		{name: "invalid token", body: confirm(user.EncodeUID(student), "a-b-c", "N3w!Secret99"), wantCode: http.StatusBadRequest, wantData: invalidLink},
		{name: "valid", body: confirm(user.EncodeUID(student), token, "N3w!Secret99"), wantCode: http.StatusOK,
			wantData: marchallObj(t, messageResponse{Message: "your password has been reset"})},
	}
	for _, tt := range confirmTests {
		tt.method = http.MethodPost
		tt.path = "/auth/password-reset-confirm"
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	usr, err := app.userSvc.GetByID(context.Background(), student.ID)
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("N3w!Secret99"))
}
