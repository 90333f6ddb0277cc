package echoapi

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/notification"
	"github.com/trezcool/campusdesk/core/request"
	"github.com/trezcool/campusdesk/core/user"
)

func Test_server_requestSubmit(t *testing.T) {
	app := setup(t)
	lecturer := app.createUser(t, "Lecturer", "lect@campus.test", user.RoleStaff, "STF01")
	ada := app.createUser(t, "Ada", "ada@campus.test", user.RoleStudent, "CSC001")
	eve := app.createUser(t, "Eve", "eve@campus.test", user.RoleStudent, "CSC003")
	crs := app.createCourse(t, lecturer, "CSC101", core.Now().Add(30*24*time.Hour))
	app.enroll(t, crs, ada)

	adaToken := userToken(t, app.conf, ada)
	body := func(cat, urgency string) []byte {
		return marchallObj(t, request.NewRequest{CourseID: crs.ID, Category: cat, Urgency: request.Urgency(urgency), Details: "please help"})
	}

	tests := []httpTest{
		{name: "staff cannot submit", token: userToken(t, app.conf, lecturer), body: body("office_visit", ""), wantCode: http.StatusForbidden},
		{name: "not enrolled", token: userToken(t, app.conf, eve), body: body("office_visit", ""), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: request.ErrNotEnrolled.Error()})},
		{name: "invalid urgency", token: adaToken, body: body("office_visit", "asap"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"urgency": "invalid value"})},
		{name: "routed to lecturer", token: adaToken, body: body("Office Visit", "urgent"), wantCode: http.StatusCreated,
			extra: request.Request{Category: "office_visit", Urgency: request.UrgencyUrgent, Status: request.StatusPending}},
		{name: "auto resolved", token: adaToken, body: body(" Office hours ", ""), wantCode: http.StatusCreated,
			extra: request.Request{Category: "office_hours", Urgency: request.UrgencyNormal, Status: request.StatusPending,
				AutoResolved: true, AutoResponse: request.AutoResponses["office_hours"]}},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/requests"
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt)
			checkCodeAndData(t, tt, rec)
			if want, ok := tt.extra.(request.Request); ok {
				var got request.Request
				decode(t, rec, &got)
				assert.NotEmpty(t, got.ID)
				assert.Equal(t, ada.ID, got.StudentID)
				assert.Equal(t, want.Category, got.Category)
				assert.Equal(t, want.Urgency, got.Urgency)
				assert.Equal(t, want.Status, got.Status)
				assert.Equal(t, want.AutoResolved, got.AutoResolved)
				assert.Equal(t, want.AutoResponse, got.AutoResponse)
			}
		})
	}

	tt := httpTest{method: http.MethodGet, path: "/requests/mine", token: adaToken, wantCode: http.StatusOK}
	rec := app.do(tt)
	checkCodeAndData(t, tt, rec)
	var mine []request.Request
	decode(t, rec, &mine)
	assert.Len(t, mine, 2)
}

func Test_server_requestQueue(t *testing.T) {
	app := setup(t)
	lecturer := app.createUser(t, "Lecturer", "lect@campus.test", user.RoleStaff, "STF01")
	other := app.createUser(t, "Other Lecturer", "other@campus.test", user.RoleStaff, "STF02")
	ada := app.createUser(t, "Ada", "ada@campus.test", user.RoleStudent, "CSC001")
	crs := app.createCourse(t, lecturer, "CSC101", core.Now().Add(30*24*time.Hour))

	ctx := context.Background()
	base := core.Now().Add(-time.Hour)
	newReq := func(urgency request.Urgency, status request.Status, age time.Duration) request.Request {
		req, err := app.requestRepo.CreateRequest(ctx, request.Request{
			CourseID:  crs.ID,
			StudentID: ada.ID,
			Category:  "office_visit",
			Urgency:   urgency,
			Details:   "details",
			Status:    status,
			CreatedAt: base.Add(age),
			UpdatedAt: base.Add(age),
		})
		require.NoError(t, err)
		return req
	}
	normalOld := newReq(request.UrgencyNormal, request.StatusPending, 0)
	urgentNew := newReq(request.UrgencyUrgent, request.StatusPending, 20*time.Minute)
	normalNew := newReq(request.UrgencyNormal, request.StatusPending, 10*time.Minute)
	urgentOld := newReq(request.UrgencyUrgent, request.StatusPending, 5*time.Minute)
	newReq(request.UrgencyUrgent, request.StatusClosed, time.Minute)

	lectToken := userToken(t, app.conf, lecturer)
	tests := []httpTest{
		{name: "not the owner", path: "/requests/queue/" + crs.ID, token: userToken(t, app.conf, other), wantCode: http.StatusForbidden},
		{name: "students have no queue", path: "/requests/queue/" + crs.ID, token: userToken(t, app.conf, ada), wantCode: http.StatusForbidden},
		{name: "urgent first, oldest first", path: "/requests/queue/" + crs.ID, token: lectToken, wantCode: http.StatusOK,
			extra: []string{urgentOld.ID, urgentNew.ID, normalOld.ID, normalNew.ID}},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt)
			checkCodeAndData(t, tt, rec)
			if want, ok := tt.extra.([]string); ok {
				var reqs []request.Request
				decode(t, rec, &reqs)
				got := make([]string, 0, len(reqs))
				for _, r := range reqs {
					got = append(got, r.ID)
				}
				assert.Equal(t, want, got)
			}
		})
	}

	autoReq, err := app.requestRepo.CreateRequest(ctx, request.Request{
		CourseID:     crs.ID,
		StudentID:    ada.ID,
		Category:     "office_hours",
		Urgency:      request.UrgencyNormal,
		Details:      "when?",
		Status:       request.StatusPending,
		AutoResolved: true,
		AutoResponse: request.AutoResponses["office_hours"],
		CreatedAt:    base,
		UpdatedAt:    base,
	})
	require.NoError(t, err)

	urgentPath := "/requests/" + urgentOld.ID + "/status"
	statusTests := []httpTest{
		{name: "not the owner", path: urgentPath, token: userToken(t, app.conf, other),
			body: marchallObj(t, request.UpdateStatus{Status: request.StatusResponded}), wantCode: http.StatusForbidden},
		{name: "invalid status", path: urgentPath, token: lectToken,
			body: marchallObj(t, request.UpdateStatus{Status: request.StatusPending}), wantCode: http.StatusBadRequest},
		{name: "deferred", path: urgentPath, token: lectToken,
			body: marchallObj(t, request.UpdateStatus{Status: request.StatusDeferred}), wantCode: http.StatusOK},
		{name: "already handled", path: urgentPath, token: lectToken,
			body: marchallObj(t, request.UpdateStatus{Status: request.StatusClosed}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": request.ErrAlreadyHandled.Error()})},
		{name: "auto resolved request", path: "/requests/" + autoReq.ID + "/status", token: lectToken,
			body: marchallObj(t, request.UpdateStatus{Status: request.StatusResponded}), wantCode: http.StatusOK},
	}
	for _, tt := range statusTests {
		tt.method = http.MethodPatch
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	got, err := app.requestRepo.GetRequest(ctx, urgentOld.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusDeferred, got.Status)

	notifs, err := app.notifRepo.QueryNotifications(ctx, ada.ID, notification.QueryFilter{})
	require.NoError(t, err)
	if assert.Len(t, notifs, 2) {
		var deferred, responded string
		for _, n := range notifs {
			assert.Equal(t, notification.KindRequestStatus, n.Kind)
			switch {
			case strings.Contains(n.Message, "Deferred"):
				deferred = n.Message
			case strings.Contains(n.Message, "Responded"):
				responded = n.Message
			}
		}
		assert.NotEmpty(t, deferred)
		assert.NotContains(t, deferred, request.AutoResponses["office_hours"])
		assert.Contains(t, responded, "office hours request is now: Responded.")
		assert.Contains(t, responded, request.AutoResponses["office_hours"])
	}
}
