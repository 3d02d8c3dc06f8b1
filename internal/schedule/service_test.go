package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unismart/internal/catalog"
	"unismart/internal/identity"
	"unismart/internal/schedule"
	"unismart/internal/store"
)

func newService(t *testing.T) *schedule.Service {
	t.Helper()
	users := identity.NewService(identity.NewKVRepository(store.NewMemoryKV()))
	return schedule.NewService(
		schedule.NewMemoryRepository(schedule.Seed()),
		catalog.New(nil),
		users,
		schedule.NewResolver(time.UTC, 0, schedule.WindowFixed),
	)
}

func TestServiceAdd(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	it, err := svc.Add(ctx, schedule.NewItem{
		SubjectID: "s3", InstructorID: "3", Type: "GD", Day: "thursday",
		StartTime: "08:00", EndTime: "09:30",
	})
	require.NoError(t, err)
	assert.Contains(t, it.ID, "sc-")
	assert.Equal(t, schedule.Thursday, it.Day)
	assert.Equal(t, schedule.DefaultRoom, it.Room)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, it.ID, items[0].ID)
}

func TestServiceAddRejects(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	base := schedule.NewItem{SubjectID: "s1", InstructorID: "2", Type: "Lecture", Day: "Friday", StartTime: "10:00", EndTime: "12:00"}

	tests := []struct {
		name    string
		mutate  func(*schedule.NewItem)
		wantErr error
	}{
		{name: "unknown subject", mutate: func(n *schedule.NewItem) { n.SubjectID = "s9" }, wantErr: schedule.ErrUnknownSubject},
		{name: "student instructor", mutate: func(n *schedule.NewItem) { n.InstructorID = "4" }, wantErr: schedule.ErrInvalidInstructor},
		{name: "admin instructor", mutate: func(n *schedule.NewItem) { n.InstructorID = "1" }, wantErr: schedule.ErrInvalidInstructor},
		{name: "missing instructor", mutate: func(n *schedule.NewItem) { n.InstructorID = "99" }, wantErr: schedule.ErrInvalidInstructor},
		{name: "end before start", mutate: func(n *schedule.NewItem) { n.EndTime = "09:00" }, wantErr: schedule.ErrInvalidRange},
		{name: "bad clock", mutate: func(n *schedule.NewItem) { n.StartTime = "10am" }, wantErr: schedule.ErrInvalidClock},
		{name: "bad day", mutate: func(n *schedule.NewItem) { n.Day = "Someday" }, wantErr: schedule.ErrInvalidWeekday},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := svc.Add(ctx, in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := svc.Add(ctx, schedule.NewItem{SubjectID: "s1"})
	assert.Error(t, err)
}

func TestServiceDeleteAndActive(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	svc.NowFunc = func() time.Time { return at(1, "10:30") }

	it, ok, err := svc.Active(ctx, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sc1", it.ID)

	require.NoError(t, svc.Delete(ctx, "sc1"))
	assert.ErrorIs(t, svc.Delete(ctx, "sc1"), schedule.ErrNotFound)

	_, ok, err = svc.Active(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}
