package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unismart/internal/advisor"
	"unismart/internal/attendance"
	"unismart/internal/auth"
	"unismart/internal/catalog"
	"unismart/internal/classroom"
	"unismart/internal/httpapi"
	"unismart/internal/identity"
	"unismart/internal/logger"
	"unismart/internal/metrics"
	"unismart/internal/queue"
	"unismart/internal/report"
	"unismart/internal/schedule"
	"unismart/internal/store"
)

// 2024-01-01 is a Monday; sc1 (Dr. Khaled, 09:00) is live at 10:30.
var monday1030 = time.Date(2024, time.January, 1, 10, 30, 0, 0, time.UTC)

type testServer struct {
	router *gin.Engine
	queue  *queue.InMemory
}

func newTestServer(t *testing.T, opts ...func(*httpapi.Deps)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kv := store.NewMemoryKV()
	log := logger.Discard()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	users := identity.NewService(identity.NewKVRepository(kv))
	subjects := catalog.New(nil)
	sched := schedule.NewService(schedule.NewMemoryRepository(schedule.Seed()), subjects, users,
		schedule.NewResolver(time.UTC, 0, schedule.WindowFixed))
	sched.NowFunc = func() time.Time { return monday1030 }

	q := queue.NewInMemory(16)
	records := attendance.NewMemoryRepository()
	require.NoError(t, attendance.SeedIfEmpty(context.Background(), records, attendance.SeedHistory("4", "sc1", monday1030)))
	codes := attendance.NewCodes(kv, time.Minute, nil)
	codes.NowFunc = func() time.Time { return monday1030 }
	att := attendance.NewService(attendance.Deps{
		Repo: records, Schedule: sched, Users: users, Subjects: subjects,
		Codes: codes, Queue: q, Metrics: m, Log: log,
	})
	att.NowFunc = func() time.Time { return monday1030 }

	adv, err := advisor.New(context.Background(), advisor.Config{AdviceModel: "flash", RosterModel: "pro"})
	require.NoError(t, err)

	deps := httpapi.Deps{
		Log:        log,
		Metrics:    m,
		Gatherer:   reg,
		Tokens:     auth.NewTokens("unismart", "test-secret", time.Hour, 24*time.Hour),
		Sessions:   identity.NewSessions(kv),
		Users:      users,
		Catalog:    subjects,
		Schedule:   sched,
		Monitor:    schedule.NewMonitor(sched, nil, m, log, time.Minute),
		Attendance: att,
		Reports:    report.NewService(users, att, sched, subjects),
		Classroom:  classroom.NewService(subjects, classroom.Seed()),
		Advisor:    adv,
		Checks: []httpapi.HealthCheck{
			{Name: "kv", Check: func(context.Context) bool { return true }},
		},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &testServer{router: httpapi.NewRouter(deps), queue: q}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type session struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	User         identity.Profile `json:"user"`
	Tabs         []struct {
		ID string `json:"id"`
	} `json:"tabs"`
}

func (s *testServer) login(t *testing.T, identifier string) session {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"identifier": identifier, "password": "123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","kv":true}`, w.Body.String())

	s.login(t, "KR")
	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `unismart_logins_total{result="ok"} 1`)
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"identifier": "KR", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "بيانات الدخول غير صحيحة")

	sess := s.login(t, "khaled@unismart.edu")
	assert.Equal(t, "2", sess.User.ID)
	assert.Equal(t, "دكتور المادة", sess.User.RoleLabel)
	assert.Len(t, sess.Tabs, 5)
	assert.NotContains(t, s.do(t, http.MethodGet, "/v1/me", sess.AccessToken, nil).Body.String(), "password")

	w = s.do(t, http.MethodGet, "/v1/me", sess.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		User    identity.Profile `json:"user"`
		Initial string           `json:"initial"`
	}
	decode(t, w, &me)
	assert.Equal(t, "khaled_dr", me.User.Username)
	assert.Equal(t, "د", me.Initial)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/me", "", nil).Code)
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t)
	sess := s.login(t, "omar_student")

	w := s.do(t, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": sess.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	var refreshed session
	decode(t, w, &refreshed)
	assert.NotEmpty(t, refreshed.AccessToken)

	assert.Equal(t, http.StatusUnauthorized,
		s.do(t, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": sess.AccessToken}).Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/v1/auth/logout", sess.AccessToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/me", sess.AccessToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		s.do(t, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": sess.RefreshToken}).Code)
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{"name": "ليلى", "identifier": "layla", "password": "pw"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sess session
	decode(t, w, &sess)
	assert.Equal(t, "layla@unismart.edu", sess.User.Email)

	me := s.do(t, http.MethodGet, "/v1/me", sess.AccessToken, nil)
	assert.Equal(t, http.StatusOK, me.Code)

	w = s.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{"name": "x", "identifier": "OMAR@unismart.edu", "password": "pw"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{"name": "x", "identifier": "boss", "password": "pw", "role": "ADMIN"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	student := s.login(t, "omar_student")
	doctor := s.login(t, "khaled_dr")

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/v1/admin/users", student.AccessToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/v1/admin/instructors", doctor.AccessToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/v1/reports", student.AccessToken, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/reports", doctor.AccessToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/v1/advice", doctor.AccessToken, nil).Code)
}

func TestAdminUsers(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "KR")

	w := s.do(t, http.MethodPost, "/v1/admin/users", admin.AccessToken, gin.H{"name": "نور", "email": "nour@unismart.edu", "username": "nour"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created identity.Profile
	decode(t, w, &created)
	assert.Equal(t, identity.RoleStudent, created.Role)

	w = s.do(t, http.MethodGet, "/v1/admin/users?role=student", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Users  []identity.Profile `json:"users"`
		Counts identity.Counts    `json:"counts"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Users, 2)
	assert.Equal(t, 5, list.Counts.Total)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/v1/admin/users?role=dean", admin.AccessToken, nil).Code)

	// new accounts get the default password
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"identifier": "nour", "password": "123"}).Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/v1/admin/users/"+created.ID, admin.AccessToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/v1/admin/users/"+created.ID, admin.AccessToken, nil).Code)

	w = s.do(t, http.MethodPost, "/v1/admin/users/import", admin.AccessToken, gin.H{"records": []gin.H{
		{"name": "Ali", "email": "ali@unismart.edu", "username": "ali", "password": "p", "role": "TA"},
		{"name": "Dup", "email": "sara@unismart.edu", "username": "sara2", "password": "p", "role": "TA"},
	}})
	require.Equal(t, http.StatusOK, w.Code)
	var imported struct {
		Added   []identity.Profile `json:"added"`
		Skipped []string           `json:"skipped"`
	}
	decode(t, w, &imported)
	assert.Len(t, imported.Added, 1)
	assert.Equal(t, []string{"sara2"}, imported.Skipped)

	// the advisor is disabled, so free text imports nothing
	w = s.do(t, http.MethodPost, "/v1/admin/users/import", admin.AccessToken, gin.H{"text": "Mona, student"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"added":[],"skipped":[]}`, w.Body.String())
}

func TestAdminSchedule(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "KR")

	w := s.do(t, http.MethodPost, "/v1/admin/schedule", admin.AccessToken, gin.H{
		"subjectId": "s2", "instructorId": "3", "type": "Section", "day": "Monday",
		"startTime": "10:00", "endTime": "11:00", "sectionNumber": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var item struct {
		ID        string `json:"id"`
		Room      string `json:"room"`
		StartTime string `json:"startTime"`
	}
	decode(t, w, &item)
	assert.Equal(t, schedule.DefaultRoom, item.Room)
	assert.Equal(t, "10:00", item.StartTime)

	w = s.do(t, http.MethodPost, "/v1/admin/schedule", admin.AccessToken, gin.H{
		"subjectId": "s2", "instructorId": "4", "type": "Section", "day": "Monday",
		"startTime": "10:00", "endTime": "11:00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/v1/schedule", admin.AccessToken, nil)
	var list struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	decode(t, w, &list)
	require.Len(t, list.Items, 4)
	assert.Equal(t, item.ID, list.Items[0].ID)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/v1/admin/schedule/"+item.ID, admin.AccessToken, nil).Code)

	w = s.do(t, http.MethodGet, "/v1/admin/instructors", admin.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sara_ta")
}

func TestAttendanceFlow(t *testing.T) {
	s := newTestServer(t)
	doctor := s.login(t, "khaled_dr")
	ta := s.login(t, "sara_ta")
	student := s.login(t, "omar_student")

	w := s.do(t, http.MethodGet, "/v1/attendance/active", ta.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
		Gate attendance.Decision `json:"gate"`
	}
	decode(t, w, &view)
	assert.Equal(t, "sc1", view.Session.ID)
	assert.False(t, view.Gate.Allowed)

	w = s.do(t, http.MethodGet, "/v1/attendance/sessions/sc1/code", ta.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "عذراً م. سارة محمود، هذا السكشن من مسؤولية د. خالد العمري")

	w = s.do(t, http.MethodGet, "/v1/attendance/sessions/sc1/code", doctor.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var issued struct {
		Code attendance.Code `json:"code"`
	}
	decode(t, w, &issued)

	png := s.do(t, http.MethodGet, "/v1/attendance/sessions/sc1/code?format=png", doctor.AccessToken, nil)
	assert.Equal(t, http.StatusOK, png.Code)
	assert.Equal(t, "image/png", png.Header().Get("Content-Type"))

	w = s.do(t, http.MethodPost, "/v1/attendance/scan", doctor.AccessToken, gin.H{})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/v1/attendance/scan", student.AccessToken, gin.H{"code": issued.Code.Token})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first attendance.ScanResult
	decode(t, w, &first)

	w = s.do(t, http.MethodPost, "/v1/attendance/scan", student.AccessToken, gin.H{"code": issued.Code.Token})
	require.Equal(t, http.StatusOK, w.Code)
	var second attendance.ScanResult
	decode(t, w, &second)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Record.ID, second.Record.ID)

	w = s.do(t, http.MethodPost, "/v1/attendance/scan", student.AccessToken, gin.H{"code": "sc2.bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordsReportsAndAdvice(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "KR")
	student := s.login(t, "omar_student")

	w := s.do(t, http.MethodGet, "/v1/admin/attendance/records?filter=barred", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records report.RecordsView
	decode(t, w, &records)
	require.Len(t, records.Students, 1)
	assert.Equal(t, 28, records.Students[0].Rate)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/v1/admin/attendance/records?filter=late", admin.AccessToken, nil).Code)

	w = s.do(t, http.MethodGet, "/v1/reports", admin.AccessToken, nil)
	var ov report.Overview
	decode(t, w, &ov)
	require.Len(t, ov.Subjects, 3)
	assert.Equal(t, 72, ov.Subjects[0].Rate)

	w = s.do(t, http.MethodGet, "/v1/advice", student.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var advice struct {
		AbsenceRate int    `json:"absenceRate"`
		IsBarred    bool   `json:"isBarred"`
		Advice      string `json:"advice"`
	}
	decode(t, w, &advice)
	assert.Equal(t, 28, advice.AbsenceRate)
	assert.True(t, advice.IsBarred)
	assert.Equal(t, advisor.FallbackAdvice, advice.Advice)
}

func TestClassroomAndSubjects(t *testing.T) {
	s := newTestServer(t)
	ta := s.login(t, "sara_ta")
	student := s.login(t, "omar_student")

	w := s.do(t, http.MethodPost, "/v1/classroom/meetings", student.AccessToken, gin.H{"title": "x", "subjectId": "s1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/v1/classroom/meetings", ta.AccessToken, gin.H{"title": "", "subjectId": "s1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/v1/classroom/meetings", ta.AccessToken, gin.H{"title": "مراجعة", "subjectId": "s1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/v1/classroom/meetings", student.AccessToken, nil)
	var meetings struct {
		Meetings []classroom.Meeting `json:"meetings"`
	}
	decode(t, w, &meetings)
	assert.Len(t, meetings.Meetings, 3)

	w = s.do(t, http.MethodGet, "/v1/subjects", student.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CS405")

	w = s.do(t, http.MethodGet, "/v1/schedule/active", student.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeletedUserLosesAccess(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "KR")

	w := s.do(t, http.MethodPost, "/v1/admin/users", admin.AccessToken, gin.H{"name": "نور", "email": "nour@unismart.edu", "username": "nour"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created identity.Profile
	decode(t, w, &created)

	nour := s.login(t, "nour")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/me", nour.AccessToken, nil).Code)

	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/v1/admin/users/"+created.ID, admin.AccessToken, nil).Code)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/me", nour.AccessToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		s.do(t, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": nour.RefreshToken}).Code)

	// the admin's own session is untouched
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/me", admin.AccessToken, nil).Code)
}

func TestScanWithoutBody(t *testing.T) {
	s := newTestServer(t)
	student := s.login(t, "omar_student")

	w := s.do(t, http.MethodPost, "/v1/attendance/scan", student.AccessToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res attendance.ScanResult
	decode(t, w, &res)
	assert.Equal(t, "sc1", res.Record.ScheduleID)
	assert.Equal(t, attendance.ScanSuccess, res.Message)

	w = s.do(t, http.MethodPost, "/v1/attendance/scan", student.AccessToken, "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionOverride(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t)
		student := s.login(t, "omar_student")

		w := s.do(t, http.MethodPost, "/v1/attendance/scan", student.AccessToken, gin.H{"session_id": "sc2"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), httpapi.ErrOverrideDisabled.Error())

		w = s.do(t, http.MethodGet, "/v1/attendance/active?session_id=sc2", student.AccessToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		s := newTestServer(t, func(d *httpapi.Deps) { d.AllowOverride = true })
		student := s.login(t, "omar_student")

		w := s.do(t, http.MethodPost, "/v1/attendance/scan", student.AccessToken, gin.H{"session_id": "sc2"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var res attendance.ScanResult
		decode(t, w, &res)
		assert.Equal(t, "sc2", res.Record.ScheduleID)

		w = s.do(t, http.MethodPost, "/v1/attendance/scan", student.AccessToken, gin.H{"session_id": "missing"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}
