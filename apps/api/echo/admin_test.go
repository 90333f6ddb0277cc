package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/admin"
	"github.com/trezcool/campusdesk/core/user"
	emailsvc "github.com/trezcool/campusdesk/services/email"
)

func Test_server_adminHierarchy(t *testing.T) {
	app := setup(t)
	root := app.createAdmin(t, "root", admin.LevelSuperAdmin, admin.Permissions{})
	manager := app.createAdmin(t, "manager", admin.LevelAdmin, admin.Permissions{
		CanManageAdmins:   true,
		VisibleCategories: []core.Category{core.CategoryNetwork, core.CategoryPassword},
	})
	peer := app.createAdmin(t, "peer", admin.LevelAdmin, admin.Permissions{})
	ict := app.createAdmin(t, "huissepf003", admin.LevelSubAdmin, admin.Permissions{
		VisibleCategories: []core.Category{core.CategoryNetwork},
	})
	student := app.createUser(t, "Ada", "ada@campus.test", user.RoleStudent, "CSC001")

	rootToken := adminToken(t, app.conf, root)
	managerToken := adminToken(t, app.conf, manager)
	ictToken := adminToken(t, app.conf, ict)
	cannotManage := marchallObj(t, httpErr{Error: admin.ErrCannotManage.Error()})
	cannotGrant := marchallObj(t, httpErr{Error: admin.ErrCannotGrant.Error()})

	newAdmin := func(uname string, level admin.Level, perms admin.Permissions) []byte {
		return marchallObj(t, admin.NewAdmin{Username: uname, Name: "Desk " + uname, Level: level, Permissions: perms})
	}

	tests := []httpTest{
		{name: "users are not admins", method: http.MethodGet, path: "/admin/admins", token: userToken(t, app.conf, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "sub admin cannot create", method: http.MethodPost, path: "/admin/admins", token: ictToken,
			body: newAdmin("nope", admin.LevelSubAdmin, admin.Permissions{}), wantCode: http.StatusForbidden, wantData: cannotManage},
		{name: "sub admin cannot list", method: http.MethodGet, path: "/admin/admins", token: ictToken, wantCode: http.StatusForbidden},
		{name: "sub admin sees self", method: http.MethodGet, path: "/admin/admins/" + ict.ID, token: ictToken, wantCode: http.StatusOK, wantData: marchallObj(t, ict)},
		{name: "manager cannot create a peer", method: http.MethodPost, path: "/admin/admins", token: managerToken,
			body: newAdmin("peer2", admin.LevelAdmin, admin.Permissions{}), wantCode: http.StatusForbidden, wantData: cannotManage},
		{name: "manager cannot grant what it lacks", method: http.MethodPost, path: "/admin/admins", token: managerToken,
			body: newAdmin("helper", admin.LevelSubAdmin, admin.Permissions{CanSeeAllComplaints: true}), wantCode: http.StatusForbidden, wantData: cannotGrant},
		{name: "manager cannot grant invisible categories", method: http.MethodPost, path: "/admin/admins", token: managerToken,
			body:     newAdmin("helper", admin.LevelSubAdmin, admin.Permissions{VisibleCategories: []core.Category{core.CategoryAcademic}}),
			wantCode: http.StatusForbidden, wantData: cannotGrant},
		{name: "invalid username", method: http.MethodPost, path: "/admin/admins", token: managerToken,
			body: newAdmin("a b!", admin.LevelSubAdmin, admin.Permissions{}), wantCode: http.StatusBadRequest},
		{name: "manager creates a sub admin", method: http.MethodPost, path: "/admin/admins", token: managerToken,
			body: newAdmin("Helper", "", admin.Permissions{VisibleCategories: []core.Category{core.CategoryPassword}}), wantCode: http.StatusCreated},
		{name: "username taken", method: http.MethodPost, path: "/admin/admins", token: rootToken,
			body: newAdmin("HUISSEPF3", admin.LevelSubAdmin, admin.Permissions{}), wantCode: http.StatusBadRequest},
		{name: "manager updates sub admin", method: http.MethodPut, path: "/admin/admins/" + ict.ID + "/permissions", token: managerToken,
			body: marchallObj(t, admin.Permissions{VisibleCategories: []core.Category{core.CategoryPassword, core.CategoryNetwork}}), wantCode: http.StatusOK},
		{name: "manager cannot update peer", method: http.MethodPut, path: "/admin/admins/" + peer.ID + "/permissions", token: managerToken,
			body: marchallObj(t, admin.Permissions{}), wantCode: http.StatusForbidden, wantData: cannotManage},
		{name: "nobody deactivates themselves", method: http.MethodPatch, path: "/admin/admins/" + manager.ID + "/status", token: managerToken,
			body: []byte(`{"isActive": false}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: admin.ErrSelfAction.Error()})},
		{name: "status is required", method: http.MethodPatch, path: "/admin/admins/" + ict.ID + "/status", token: managerToken,
			body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "manager deactivates sub admin", method: http.MethodPatch, path: "/admin/admins/" + ict.ID + "/status", token: managerToken,
			body: []byte(`{"isActive": false}`), wantCode: http.StatusOK},
		{name: "deactivated admin is locked out", method: http.MethodGet, path: "/admin/admins/" + ict.ID, token: ictToken, wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "only super admin deletes", method: http.MethodDelete, path: "/admin/admins/" + ict.ID, token: managerToken, wantCode: http.StatusForbidden},
		{name: "super admin cannot delete self", method: http.MethodDelete, path: "/admin/admins/" + root.ID, token: rootToken, wantCode: http.StatusForbidden},
		{name: "super admin deletes", method: http.MethodDelete, path: "/admin/admins/" + ict.ID, token: rootToken, wantCode: http.StatusNoContent},
		{name: "deleted", method: http.MethodGet, path: "/admin/admins/" + ict.ID, token: rootToken, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	ctx := context.Background()
	helper, err := app.adminRepo.GetAdmin(ctx, admin.GetFilter{Username: "helper"})
	require.NoError(t, err)
	assert.Equal(t, admin.LevelSubAdmin, helper.Level)
	assert.Equal(t, manager.ID, helper.CreatedBy)
	assert.True(t, helper.IsFirstLogin)
	assert.Equal(t, []core.Category{core.CategoryPassword}, helper.Permissions.VisibleCategories)
}

func Test_server_adminUsers(t *testing.T) {
	app := setup(t)
	root := app.createAdmin(t, "root", admin.LevelSuperAdmin, admin.Permissions{})
	ict := app.createAdmin(t, "huissepf003", admin.LevelSubAdmin, admin.Permissions{})
	existing := app.createUser(t, "Ada", "ada@campus.test", user.RoleStudent, "CSC001")

	rootToken := adminToken(t, app.conf, root)
	ictToken := adminToken(t, app.conf, ict)

	emailsvc.ResetSentMessages()
	var created user.User
	tests := []httpTest{
		{name: "onboard: invalid role", method: http.MethodPost, path: "/admin/users", token: ictToken,
			body:     marchallObj(t, user.NewUser{Name: "Bob", Email: "bob@campus.test", Role: "janitor"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"role": "invalid role"})},
		{name: "onboard: email taken", method: http.MethodPost, path: "/admin/users", token: ictToken,
			body:     marchallObj(t, user.NewUser{Name: "Ada Again", Email: "ADA@campus.test", Role: user.RoleStudent, StudentID: "CSC009"}),
			wantCode: http.StatusBadRequest},
		{name: "onboard", method: http.MethodPost, path: "/admin/users", token: ictToken,
			body:     marchallObj(t, user.NewUser{Name: "Bob", Email: "bob@campus.test", Role: user.RoleStudent, StudentID: "csc002"}),
			wantCode: http.StatusCreated, extra: &created},
		{name: "bulk: empty", method: http.MethodPost, path: "/admin/users/bulk", token: ictToken, body: []byte(`{"users": []}`),
			wantCode: http.StatusBadRequest},
		{name: "sub admin cannot deactivate", method: http.MethodPatch, path: "/admin/users/" + existing.ID + "/status", token: ictToken,
			body: []byte(`{"isActive": false}`), wantCode: http.StatusForbidden},
		{name: "deactivate", method: http.MethodPatch, path: "/admin/users/" + existing.ID + "/status", token: rootToken,
			body: []byte(`{"isActive": false}`), wantCode: http.StatusOK},
		{name: "delete unknown", method: http.MethodDelete, path: "/admin/users/6f0b7f1e-2b8e-4a53-9a61-0c1c0b6f7a11", token: rootToken,
			wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt)
			checkCodeAndData(t, tt, rec)
			if usr, ok := tt.extra.(*user.User); ok {
				decode(t, rec, usr)
			}
		})
	}

	assert.Equal(t, "CSC002", created.StudentID)
	assert.True(t, created.IsFirstLogin)
	assert.Len(t, emailsvc.GetSentMessages(), 1) // welcome mail with the temporary password

	bulk := httpTest{method: http.MethodPost, path: "/admin/users/bulk", token: ictToken, wantCode: http.StatusOK,
		body: marchallObj(t, bulkUsersRequest{Users: []user.NewUser{
			{Name: "Cat", Email: "cat@campus.test", Role: user.RoleStudent, StudentID: "CSC003"},
			{Name: "Dup", Email: "bob@campus.test", Role: user.RoleStudent},
			{Name: "Dan", Email: "dan@campus.test", Role: user.RoleStaff, StaffID: "STF09"},
		}})}
	rec := app.do(bulk)
	checkCodeAndData(t, bulk, rec)
	var res user.BulkResult
	decode(t, rec, &res)
	assert.Len(t, res.Created, 2)
	if assert.Len(t, res.Failed, 1) {
		assert.Equal(t, 1, res.Failed[0].Index)
	}

	list := httpTest{method: http.MethodGet, path: "/admin/users?role=staff", token: ictToken, wantCode: http.StatusOK}
	rec = app.do(list)
	checkCodeAndData(t, list, rec)
	var staff []user.User
	decode(t, rec, &staff)
	if assert.Len(t, staff, 1) {
		assert.Equal(t, "STF09", staff[0].StaffID)
	}

	del := httpTest{method: http.MethodDelete, path: "/admin/users/" + created.ID, token: rootToken, wantCode: http.StatusNoContent}
	checkCodeAndData(t, del, app.do(del))
	_, err := app.userSvc.GetByID(context.Background(), created.ID)
	assert.True(t, core.IsNotFound(err))
}

func Test_server_metrics(t *testing.T) {
	app := setup(t)

	for _, tt := range []httpTest{
		{name: "home", path: "/", wantCode: http.StatusOK},
		{name: "unknown", path: "/nope", wantCode: http.StatusNotFound},
	} {
		req, rec := newRequest(http.MethodGet, tt.path)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, tt.wantCode, rec.Code, tt.name)
	}

	req, rec := newRequest(http.MethodGet, "/metrics")
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `campusdesk_http_requests_total{code="200",method="GET",route="/"} 1`)
	assert.Contains(t, rec.Body.String(), `code="404"`)
}
