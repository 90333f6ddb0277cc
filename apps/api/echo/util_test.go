package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/access"
	"github.com/trezcool/campusdesk/core/admin"
	"github.com/trezcool/campusdesk/core/complaint"
	"github.com/trezcool/campusdesk/core/course"
	"github.com/trezcool/campusdesk/core/messaging"
	"github.com/trezcool/campusdesk/core/notification"
	"github.com/trezcool/campusdesk/core/request"
	"github.com/trezcool/campusdesk/core/user"
	emailsvc "github.com/trezcool/campusdesk/services/email"
	logsvc "github.com/trezcool/campusdesk/services/logger"
	inmemdb "github.com/trezcool/campusdesk/storage/database/inmem"
)

const testPassword = "Str0ng!Passw0rd"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

type testApp struct {
	conf   *core.Config
	server *Server

	userRepo    user.Repository
	adminRepo   admin.Repository
	courseRepo  course.Repository
	messageRepo messaging.Repository
	requestRepo request.Repository
	notifRepo   notification.Repository

	userSvc   user.Service
	courseSvc course.Service
}

func setup(t *testing.T) *testApp {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	db := inmemdb.Open()
	app := &testApp{
		conf:        conf,
		userRepo:    inmemdb.NewUserRepository(db),
		adminRepo:   inmemdb.NewAdminRepository(db),
		courseRepo:  inmemdb.NewCourseRepository(db),
		messageRepo: inmemdb.NewMessageRepository(db),
		requestRepo: inmemdb.NewRequestRepository(db),
		notifRepo:   inmemdb.NewNotificationRepository(db),
	}

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	emailsvc.ResetSentMessages()

	notifSvc := notification.NewService(app.notifRepo, nil, logger)
	app.userSvc = user.NewServiceMock(app.userRepo, mailSvc, conf, validate)
	adminSvc := admin.NewService(app.adminRepo, mailSvc, conf, validate)
	app.courseSvc = course.NewService(app.courseRepo, app.userSvc, validate)

	app.server = NewServer(ServerDeps{
		Conf:            conf,
		Logger:          logger,
		Validate:        validate,
		Translator:      translator,
		UserSvc:         app.userSvc,
		AdminSvc:        adminSvc,
		CourseSvc:       app.courseSvc,
		MessagingSvc:    messaging.NewService(app.messageRepo, app.courseSvc, app.userSvc, notifSvc, validate, logger),
		RequestSvc:      request.NewService(app.requestRepo, app.courseSvc, notifSvc, validate),
		ComplaintSvc:    complaint.NewService(inmemdb.NewComplaintRepository(db), adminSvc, notifSvc, validate, logger),
		NotificationSvc: notifSvc,
		Resolver:        access.NewResolver(app.userSvc, adminSvc),
	})
	t.Cleanup(func() { _ = app.server.Close() })
	return app
}

type userOpt func(*user.User)

func firstLogin(u *user.User) { u.IsFirstLogin = true }
func inactive(u *user.User)   { u.IsActive = false }

func (app *testApp) createUser(t *testing.T, name, email string, role user.Role, ident string, opts ...userOpt) user.User {
	now := core.Now()
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if role == user.RoleStudent {
		usr.StudentID = ident
	} else {
		usr.StaffID = ident
	}
	for _, opt := range opts {
		opt(&usr)
	}
	require.NoError(t, usr.SetPassword(testPassword))
	usr, err := app.userRepo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func (app *testApp) createAdmin(t *testing.T, uname string, level admin.Level, perms admin.Permissions) admin.Admin {
	now := core.Now()
	perms.Clean()
	adm := admin.Admin{
		Username:    uname,
		Name:        uname,
		Level:       level,
		Permissions: perms,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if level == admin.LevelSuperAdmin {
		adm.Username = ""
		adm.Email = uname + "@campus.test"
	}
	require.NoError(t, adm.SetPassword(testPassword))
	adm, err := app.adminRepo.CreateAdmin(context.Background(), adm)
	require.NoError(t, err)
	return adm
}

func (app *testApp) createCourse(t *testing.T, lecturer user.User, code string, endDate time.Time) course.Course {
	now := core.Now()
	crs, err := app.courseRepo.CreateCourse(context.Background(), course.Course{
		Code:       code,
		Title:      "Course " + code,
		LecturerID: lecturer.ID,
		StartDate:  now.Add(-24 * time.Hour),
		EndDate:    endDate,
		Status:     course.StatusActive,
		CreatedAt:  now,
	})
	require.NoError(t, err)
	return crs
}

func (app *testApp) enroll(t *testing.T, crs course.Course, students ...user.User) {
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	_, err := app.courseRepo.Enroll(context.Background(), crs.ID, ids, core.Now())
	require.NoError(t, err)
}

func getToken(t *testing.T, conf *core.Config, p access.Principal) string {
	token, err := GenerateToken(conf, GetPrincipalClaims(conf, p))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func userToken(t *testing.T, conf *core.Config, usr user.User) string {
	return getToken(t, conf, access.UserPrincipal{User: usr})
}

func adminToken(t *testing.T, conf *core.Config, adm admin.Admin) string {
	return getToken(t, conf, access.AdminPrincipal{Admin: adm})
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (app *testApp) do(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.server.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if len(objs) == 0 {
		return []byte("[]")
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
