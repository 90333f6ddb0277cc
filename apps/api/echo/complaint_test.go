package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/access"
	"github.com/trezcool/campusdesk/core/admin"
	"github.com/trezcool/campusdesk/core/complaint"
	"github.com/trezcool/campusdesk/core/notification"
	"github.com/trezcool/campusdesk/core/user"
)

func complaintIDs(t *testing.T, page complaint.Page) []string {
	ids := make([]string, 0, len(page.Items))
	for _, c := range page.Items {
		ids = append(ids, c.ID)
	}
	return ids
}

func Test_server_complaints(t *testing.T) {
	app := setup(t)
	ada := app.createUser(t, "Ada", "ada@campus.test", user.RoleStudent, "CSC001")
	bob := app.createUser(t, "Bob", "bob@campus.test", user.RoleStudent, "CSC002")
	root := app.createAdmin(t, "root", admin.LevelSuperAdmin, admin.Permissions{})
	ict := app.createAdmin(t, "huissepf003", admin.LevelSubAdmin, admin.Permissions{
		VisibleCategories: []core.Category{core.CategoryNetwork, core.CategoryPassword},
	})
	academic := app.createAdmin(t, "huissepf001", admin.LevelAdmin, admin.Permissions{
		VisibleCategories: []core.Category{core.CategoryAcademic},
	})

	adaToken := userToken(t, app.conf, ada)
	ictToken := adminToken(t, app.conf, ict)

	submitted := make(map[core.Category]complaint.Complaint)
	submitTests := []httpTest{
		{name: "admin cannot submit", token: ictToken,
			body: marchallObj(t, complaint.NewComplaint{Title: "x", Description: "y", Category: core.CategoryNetwork}), wantCode: http.StatusForbidden},
		{name: "invalid category", token: adaToken,
			body:     marchallObj(t, complaint.NewComplaint{Title: "x", Description: "y", Category: "cafeteria"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"category": "invalid category"})},
		{name: "network", token: adaToken,
			body: marchallObj(t, complaint.NewComplaint{Title: "No wifi", Description: "Hall B has no wifi", Category: "Network"}), wantCode: http.StatusCreated},
		{name: "academic", token: adaToken,
			body:     marchallObj(t, complaint.NewComplaint{Title: "Missing grade", Description: "CSC101 grade missing", Category: core.CategoryAcademic, Priority: complaint.PriorityHigh}),
			wantCode: http.StatusCreated},
		{name: "password", token: userToken(t, app.conf, bob),
			body: marchallObj(t, complaint.NewComplaint{Title: "Locked out", Description: "portal", Category: core.CategoryPassword}), wantCode: http.StatusCreated},
	}
	for _, tt := range submitTests {
		tt.method = http.MethodPost
		tt.path = "/complaints"
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt)
			checkCodeAndData(t, tt, rec)
			if rec.Code == http.StatusCreated {
				var c complaint.Complaint
				decode(t, rec, &c)
				assert.Equal(t, complaint.StatusPending, c.Status)
				submitted[c.Category] = c
			}
		})
	}
	require.Len(t, submitted, 3)
	network, academicC, password := submitted[core.CategoryNetwork], submitted[core.CategoryAcademic], submitted[core.CategoryPassword]
	assert.Equal(t, complaint.PriorityMedium, network.Priority)

	// watchers are notified of the categories they can see
	ctx := context.Background()
	countNotifs := func(id string) int {
		notifs, err := app.notifRepo.QueryNotifications(ctx, id, notification.QueryFilter{})
		require.NoError(t, err)
		return len(notifs)
	}
	assert.Equal(t, 3, countNotifs(root.ID))
	assert.Equal(t, 2, countNotifs(ict.ID))
	assert.Equal(t, 1, countNotifs(academic.ID))

	listTests := []httpTest{
		{name: "ict sees network & password", token: ictToken, path: "/complaints", extra: []string{network.ID, password.ID}},
		{name: "ict filters network", token: ictToken, path: "/complaints?category=network", extra: []string{network.ID}},
		{name: "ict asks for academic", token: ictToken, path: "/complaints?category=academic", wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: access.ErrCategoryNotVisible.Error()})},
		{name: "super admin sees all", token: adminToken(t, app.conf, root), path: "/complaints", extra: []string{network.ID, academicC.ID, password.ID}},
		{name: "super admin filters priority", token: adminToken(t, app.conf, root), path: "/complaints?priority=high", extra: []string{academicC.ID}},
		{name: "student sees own", token: adaToken, path: "/complaints", extra: []string{network.ID, academicC.ID}},
		{name: "paginated", token: adaToken, path: "/complaints?limit=1&page=2", extra: []string{network.ID}},
		{name: "page out of range", token: adminToken(t, app.conf, root), path: "/complaints?page=922337203685477581&limit=20", extra: []string{}},
		{name: "bad filter", token: adaToken, path: "/complaints?category=lol", wantCode: http.StatusBadRequest},
	}
	for _, tt := range listTests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt)
			checkCodeAndData(t, tt, rec)
			if want, ok := tt.extra.([]string); ok {
				var page complaint.Page
				decode(t, rec, &page)
				assert.ElementsMatch(t, want, complaintIDs(t, page))
			}
		})
	}

	detailTests := []httpTest{
		{name: "ict cannot read academic", method: http.MethodGet, path: "/complaints/" + academicC.ID, token: ictToken, wantCode: http.StatusForbidden},
		{name: "other student cannot read", method: http.MethodGet, path: "/complaints/" + network.ID, token: userToken(t, app.conf, bob),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: complaint.ErrNotSubmitter.Error()})},
		{name: "unknown", method: http.MethodGet, path: "/complaints/6f0b7f1e-2b8e-4a53-9a61-0c1c0b6f7a11", token: ictToken, wantCode: http.StatusNotFound},
		{name: "student cannot assign", method: http.MethodPut, path: "/complaints/" + network.ID, token: adaToken,
			body: marchallObj(t, complaint.UpdateComplaint{AssignedTo: ict.ID}), wantCode: http.StatusForbidden},
		{name: "assign unknown admin", method: http.MethodPut, path: "/complaints/" + network.ID, token: ictToken,
			body: marchallObj(t, complaint.UpdateComplaint{AssignedTo: "nobody"}), wantCode: http.StatusBadRequest},
		{name: "take it", method: http.MethodPut, path: "/complaints/" + network.ID, token: ictToken,
			body: marchallObj(t, complaint.UpdateComplaint{Status: complaint.StatusInProgress, AssignedTo: ict.ID}), wantCode: http.StatusOK},
		{name: "comment", method: http.MethodPost, path: "/complaints/" + network.ID + "/comments", token: ictToken,
			body: marchallObj(t, complaint.NewComment{Text: "Router replaced"}), wantCode: http.StatusCreated},
		{name: "empty comment", method: http.MethodPost, path: "/complaints/" + network.ID + "/comments", token: adaToken,
			body: marchallObj(t, complaint.NewComment{}), wantCode: http.StatusBadRequest},
		{name: "resolve", method: http.MethodPut, path: "/complaints/" + network.ID, token: ictToken,
			body: marchallObj(t, complaint.UpdateComplaint{Status: complaint.StatusResolved, Resolution: "Fixed"}), wantCode: http.StatusOK},
		{name: "ict cannot delete academic", method: http.MethodDelete, path: "/complaints/" + academicC.ID, token: ictToken, wantCode: http.StatusForbidden},
		{name: "submitter deletes", method: http.MethodDelete, path: "/complaints/" + academicC.ID, token: adaToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range detailTests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	tt := httpTest{method: http.MethodGet, path: "/complaints/" + network.ID, token: adaToken, wantCode: http.StatusOK}
	rec := app.do(tt)
	checkCodeAndData(t, tt, rec)
	var got complaint.Complaint
	decode(t, rec, &got)
	assert.Equal(t, complaint.StatusResolved, got.Status)
	assert.Equal(t, ict.ID, got.AssignedTo)
	if assert.NotNil(t, got.Resolution) {
		assert.Equal(t, "Fixed", got.Resolution.Text)
		assert.Equal(t, ict.ID, got.Resolution.ResolvedBy)
	}
	if assert.Len(t, got.Comments, 1) {
		assert.Equal(t, "Router replaced", got.Comments[0].Text)
		assert.Equal(t, ict.Name, got.Comments[0].AuthorName)
	}

	// status changes x2 + comment
	notifs, err := app.notifRepo.QueryNotifications(ctx, ada.ID, notification.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, notifs, 3)
}
