package attendance_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unismart/internal/attendance"
	"unismart/internal/catalog"
	"unismart/internal/identity"
	"unismart/internal/logger"
	"unismart/internal/metrics"
	"unismart/internal/queue"
	"unismart/internal/schedule"
	"unismart/internal/store"
)

// 2024-01-01 is a Monday; sc1 runs 09:00-11:00 with instructor 2.
var monday1030 = time.Date(2024, time.January, 1, 10, 30, 0, 0, time.UTC)

type fixture struct {
	svc   *attendance.Service
	repo  *attendance.MemoryRepository
	codes *attendance.Codes
	queue *queue.InMemory
	sched *schedule.Service
	users map[string]identity.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	kv := store.NewMemoryKV()
	roster := identity.NewService(identity.NewKVRepository(kv))
	subjects := catalog.New(nil)
	sched := schedule.NewService(schedule.NewMemoryRepository(schedule.Seed()), subjects, roster,
		schedule.NewResolver(time.UTC, 0, schedule.WindowFixed))
	now := monday1030
	sched.NowFunc = func() time.Time { return now }

	repo := attendance.NewMemoryRepository()
	codes := attendance.NewCodes(kv, time.Minute, nil)
	codes.NowFunc = func() time.Time { return now }
	q := queue.NewInMemory(16)

	svc := attendance.NewService(attendance.Deps{
		Repo:     repo,
		Schedule: sched,
		Users:    roster,
		Subjects: subjects,
		Codes:    codes,
		Queue:    q,
		Metrics:  metrics.NewMock(),
		Log:      logger.Discard(),
	})
	svc.NowFunc = func() time.Time { return now }

	users := map[string]identity.User{}
	for _, u := range identity.SeedUsers() {
		users[u.Username] = u
	}
	return &fixture{svc: svc, repo: repo, codes: codes, queue: q, sched: sched, users: users}
}

func TestGate(t *testing.T) {
	item := schedule.Seed()[1] // instructor 3
	users := identity.SeedUsers()

	admin := attendance.Gate(users[0], item, "م. سارة محمود")
	assert.True(t, admin.Allowed)
	assert.True(t, admin.Supervisor)

	owner := attendance.Gate(users[2], item, "م. سارة محمود")
	assert.True(t, owner.Allowed)
	assert.False(t, owner.Supervisor)

	other := attendance.Gate(users[1], item, "م. سارة محمود")
	assert.False(t, other.Allowed)
	assert.Equal(t, "عذراً د. خالد العمري، هذا السكشن من مسؤولية م. سارة محمود", other.Message)

	student := attendance.Gate(users[3], item, "م. سارة محمود")
	assert.False(t, student.Allowed)
}

func TestActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.ActiveSession(ctx, f.users["sara_ta"], "")
	require.NoError(t, err)
	require.NotNil(t, view.Session)
	assert.Equal(t, "sc1", view.Session.ID)
	assert.Equal(t, "CS301", view.Subject.Code)
	assert.Equal(t, "د. خالد العمري", view.Instructor.Name)
	require.NotNil(t, view.Gate)
	assert.False(t, view.Gate.Allowed)

	view, err = f.svc.ActiveSession(ctx, f.users["omar_student"], "sc2")
	require.NoError(t, err)
	assert.Equal(t, "sc2", view.Session.ID)
	assert.Nil(t, view.Gate)

	view, err = f.svc.ActiveSession(ctx, f.users["KR"], "missing")
	require.NoError(t, err)
	assert.Nil(t, view.Session)
}

func TestCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, d, err := f.svc.Code(ctx, f.users["khaled_dr"], "sc1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, "sc1", attendance.SessionOf(code.Token))
	assert.Equal(t, monday1030.Add(time.Minute), code.ExpiresAt)

	again, _, err := f.svc.Code(ctx, f.users["KR"], "sc1")
	require.NoError(t, err)
	assert.Equal(t, code.Token, again.Token, "code is reused until it expires")

	_, d, err = f.svc.Code(ctx, f.users["sara_ta"], "sc1")
	assert.ErrorIs(t, err, attendance.ErrForbidden)
	assert.Contains(t, d.Message, "د. خالد العمري")

	_, _, err = f.svc.Code(ctx, f.users["KR"], "nope")
	assert.True(t, attendance.IsNotFound(err))
}

func TestScan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.users["omar_student"]

	res, err := f.svc.Scan(ctx, student, "", "")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, attendance.Present, res.Record.Status)
	assert.Equal(t, attendance.Pending, res.Record.Verification)
	assert.Equal(t, "sc1", res.Record.ScheduleID)
	assert.Equal(t, attendance.ScanSuccess, res.Message)

	again, err := f.svc.Scan(ctx, student, "", "")
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, res.Record.ID, again.Record.ID)

	msgs, err := f.queue.Consume(ctx)
	require.NoError(t, err)
	msg := <-msgs
	assert.Equal(t, queue.TypeAttendanceScan, msg.Type)
	var evt attendance.ScanEvent
	require.NoError(t, msg.Decode(&evt))
	assert.Equal(t, res.Record.ID, evt.RecordID)
}

func TestScanDedupWindowExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.users["omar_student"]

	first, err := f.svc.Scan(ctx, student, "", "")
	require.NoError(t, err)

	f.svc.NowFunc = func() time.Time { return monday1030.Add(6 * time.Minute) }
	second, err := f.svc.Scan(ctx, student, "", "")
	require.NoError(t, err)
	assert.False(t, second.Duplicate)
	assert.NotEqual(t, first.Record.ID, second.Record.ID)
}

func TestScanRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Scan(ctx, f.users["sara_ta"], "", "")
	assert.ErrorIs(t, err, attendance.ErrStudentsOnly)

	_, err = f.svc.Scan(ctx, f.users["omar_student"], "sc2.abc", "")
	assert.ErrorIs(t, err, attendance.ErrCodeMismatch)

	_, err = f.svc.Scan(ctx, f.users["omar_student"], "sc1.stale", "")
	assert.ErrorIs(t, err, attendance.ErrCodeExpired)

	f.sched.NowFunc = func() time.Time { return monday1030.Add(time.Hour) }
	_, err = f.svc.Scan(ctx, f.users["omar_student"], "", "")
	assert.ErrorIs(t, err, attendance.ErrNoActiveSession)
}

func TestScanWithIssuedCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, _, err := f.svc.Code(ctx, f.users["khaled_dr"], "sc1")
	require.NoError(t, err)

	res, err := f.svc.Scan(ctx, f.users["omar_student"], code.Token, "")
	require.NoError(t, err)
	assert.Equal(t, "sc1", res.Record.ScheduleID)

	f.codes.NowFunc = func() time.Time { return monday1030.Add(2 * time.Minute) }
	assert.ErrorIs(t, f.codes.Check(ctx, "sc1", code.Token), attendance.ErrCodeExpired)
}

func TestRenderPNG(t *testing.T) {
	png, err := attendance.RenderPNG("sc1.token")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
