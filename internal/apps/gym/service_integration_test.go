//go:build integration

package gym

import (
	"context"
	"testing"
	"time"

	"github.com/marshallshelly/pebble-apps/internal/apperr"
	"github.com/marshallshelly/pebble-apps/internal/apps/crud"
	"github.com/marshallshelly/pebble-apps/internal/logging"
	"github.com/marshallshelly/pebble-apps/internal/testdb"
	"github.com/marshallshelly/pebble-apps/pkg/builder"
	"github.com/marshallshelly/pebble-apps/pkg/dates"
	"github.com/marshallshelly/pebble-apps/pkg/optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow = time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
	today    = dates.Of(fixedNow)
)

type fixture struct {
	svc *Service
	db  *builder.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := builder.New(testdb.StartWithModels(t, Models()...))
	return &fixture{
		svc: NewService(db, logging.Discard(), func() time.Time { return fixedNow }),
		db:  db,
	}
}

func (f *fixture) member(t *testing.T, first, email string) *Member {
	t.Helper()
	m, err := f.svc.CreateMember(context.Background(), &CreateMemberInput{FirstName: first, LastName: "Doe", Email: email})
	require.NoError(t, err)
	return m
}

func (f *fixture) class(t *testing.T, capacity int) *Class {
	t.Helper()
	c, err := f.svc.CreateClass(context.Background(), &CreateClassInput{Name: "Flow", Instructor: "Kim", Category: "yoga", Capacity: capacity})
	require.NoError(t, err)
	return c
}

// schedule inserts directly so tests can place schedules in the past.
func (f *fixture) schedule(t *testing.T, classID int64, day dates.Date) *ClassSchedule {
	t.Helper()
	s, err := builder.Insert[ClassSchedule](f.db).Values(ClassSchedule{
		ClassID: classID, ScheduleDate: day, StartTime: "07:00", EndTime: "08:00",
	}).One(context.Background())
	require.NoError(t, err)
	return s
}

func (f *fixture) bookedCount(t *testing.T, scheduleID int64) int {
	t.Helper()
	s, err := crud.Get[ClassSchedule](context.Background(), f.db, entitySchedule, scheduleID)
	require.NoError(t, err)
	return s.BookedCount
}

func TestGym_CreateMemberDefaults(t *testing.T) {
	f := newFixture(t)

	m := f.member(t, "Ann", "  Ann@Example.COM ")
	assert.Equal(t, "ann@example.com", m.Email)
	assert.Equal(t, "basic", m.MembershipType)
	assert.True(t, m.IsActive)
	assert.Equal(t, today, m.JoinDate)

	_, err := f.svc.CreateMember(context.Background(), &CreateMemberInput{FirstName: "A", LastName: "B", Email: "ANN@example.com"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestGym_MemberSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.member(t, "Ann", "ann@example.com")
	f.member(t, "Joanna", "jo@example.com")
	inactive := f.member(t, "Annabel", "bel@example.com")
	_, err := f.svc.UpdateMember(ctx, &UpdateMemberInput{ID: inactive.ID, IsActive: optional.Some(false)})
	require.NoError(t, err)
	f.member(t, "Bob", "bob@example.com")

	got, err := f.svc.GetMembers(ctx, &MemberFilter{IsActive: ptr(true), Search: ptr("ann")})
	require.NoError(t, err)
	var names []string
	for _, m := range got {
		names = append(names, m.FirstName)
	}
	assert.Equal(t, []string{"Ann", "Joanna"}, names)

	all, err := f.svc.GetMembers(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestGym_BookingLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	m := f.member(t, "Ann", "ann@example.com")
	c := f.class(t, 1)
	s := f.schedule(t, c.ID, today.AddDays(2))

	b, err := f.svc.CreateBooking(ctx, &CreateBookingInput{MemberID: m.ID, ScheduleID: s.ID})
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, b.Status)
	assert.Equal(t, 1, f.bookedCount(t, s.ID))

	_, err = f.svc.CreateBooking(ctx, &CreateBookingInput{MemberID: m.ID, ScheduleID: s.ID})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "duplicate active booking")

	other := f.member(t, "Bob", "bob@example.com")
	_, err = f.svc.CreateBooking(ctx, &CreateBookingInput{MemberID: other.ID, ScheduleID: s.ID})
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Class is full", err.Error())
	assert.Equal(t, 1, f.bookedCount(t, s.ID), "failed booking leaves the counter alone")

	cancelled, err := f.svc.CancelBooking(ctx, &crud.ByID{ID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 0, f.bookedCount(t, s.ID))

	_, err = f.svc.CancelBooking(ctx, &crud.ByID{ID: b.ID})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = f.svc.MarkAttendance(ctx, &AttendanceInput{BookingID: b.ID, Status: StatusAttended})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "attendance on a cancelled booking")

	rebooked, err := f.svc.CreateBooking(ctx, &CreateBookingInput{MemberID: other.ID, ScheduleID: s.ID})
	require.NoError(t, err)
	attended, err := f.svc.MarkAttendance(ctx, &AttendanceInput{BookingID: rebooked.ID, Status: StatusAttended})
	require.NoError(t, err)
	assert.NotNil(t, attended.AttendedAt)
	noShow, err := f.svc.MarkAttendance(ctx, &AttendanceInput{BookingID: rebooked.ID, Status: StatusNoShow})
	require.NoError(t, err)
	assert.Nil(t, noShow.AttendedAt)
	assert.Equal(t, 1, f.bookedCount(t, s.ID), "attendance keeps the spot")

	res, err := f.svc.DeleteBooking(ctx, &crud.ByID{ID: 9999})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestGym_BookingRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	m := f.member(t, "Ann", "ann@example.com")
	c := f.class(t, 5)
	past := f.schedule(t, c.ID, today.AddDays(-1))

	_, err := f.svc.CreateBooking(ctx, &CreateBookingInput{MemberID: m.ID, ScheduleID: past.ID})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "past schedule")

	_, err = f.svc.CreateBooking(ctx, &CreateBookingInput{MemberID: 404, ScheduleID: past.ID})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "404")

	_, err = f.svc.CreateClassSchedule(ctx, &CreateClassScheduleInput{ClassID: c.ID, ScheduleDate: today.AddDays(-3), StartTime: "07:00", EndTime: "08:00"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = f.svc.CreateClassSchedule(ctx, &CreateClassScheduleInput{ClassID: c.ID, ScheduleDate: today, StartTime: "09:00", EndTime: "08:00"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.svc.DeleteClassSchedule(ctx, &crud.ByID{ID: past.ID})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestGym_CapacityCannotDropBelowBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	c := f.class(t, 3)
	s := f.schedule(t, c.ID, today.AddDays(1))
	for _, email := range []string{"a@example.com", "b@example.com"} {
		m := f.member(t, "M", email)
		_, err := f.svc.CreateBooking(ctx, &CreateBookingInput{MemberID: m.ID, ScheduleID: s.ID})
		require.NoError(t, err)
	}

	_, err := f.svc.UpdateClass(ctx, &UpdateClassInput{ID: c.ID, Capacity: optional.Some(1)})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	updated, err := f.svc.UpdateClass(ctx, &UpdateClassInput{ID: c.ID, Capacity: optional.Some(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Capacity)

	calendar, err := f.svc.GetClassCalendar(ctx, &CalendarFilter{ClassID: &c.ID})
	require.NoError(t, err)
	require.Len(t, calendar, 1)
	assert.Equal(t, "Flow", calendar[0].ClassName)
	assert.Equal(t, 0, calendar[0].SpotsLeft)
}

func TestGym_DeleteMemberCancelsFutureBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	m := f.member(t, "Ann", "ann@example.com")
	c := f.class(t, 10)
	future := f.schedule(t, c.ID, today.AddDays(3))
	past := f.schedule(t, c.ID, today.AddDays(-3))

	upcoming, err := f.svc.CreateBooking(ctx, &CreateBookingInput{MemberID: m.ID, ScheduleID: future.ID})
	require.NoError(t, err)
	history, err := builder.Insert[Booking](f.db).Values(Booking{
		MemberID: m.ID, ScheduleID: past.ID, Status: StatusAttended, AttendedAt: &fixedNow,
	}).One(ctx)
	require.NoError(t, err)
	_, err = builder.Update[ClassSchedule](f.db).Set("booked_count", 1).Where(builder.Eq("id", past.ID)).Exec(ctx)
	require.NoError(t, err)

	res, err := f.svc.DeleteMember(ctx, &crud.ByID{ID: m.ID})
	require.NoError(t, err)
	assert.True(t, res.Success)

	member, err := f.svc.GetMemberByID(ctx, &crud.ByID{ID: m.ID})
	require.NoError(t, err)
	assert.False(t, member.IsActive)

	got, err := f.svc.GetBookingByID(ctx, &crud.ByID{ID: upcoming.ID})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.NotNil(t, got.CancelledAt)
	assert.Equal(t, 0, f.bookedCount(t, future.ID))

	kept, err := f.svc.GetBookingByID(ctx, &crud.ByID{ID: history.ID})
	require.NoError(t, err)
	assert.Equal(t, StatusAttended, kept.Status)
	assert.Equal(t, 1, f.bookedCount(t, past.ID), "past schedules are untouched")

	_, err = f.svc.DeleteMember(ctx, &crud.ByID{ID: 999})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.CreateBooking(ctx, &CreateBookingInput{MemberID: m.ID, ScheduleID: future.ID})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "inactive member")
}

func TestGym_DeleteClassCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	c := f.class(t, 4)
	s := f.schedule(t, c.ID, today)

	res, err := f.svc.DeleteClass(ctx, &crud.ByID{ID: c.ID})
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, err = f.svc.GetClassScheduleByID(ctx, &crud.ByID{ID: s.ID})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	res, err = f.svc.DeleteClass(ctx, &crud.ByID{ID: c.ID})
	require.NoError(t, err)
	assert.False(t, res.Success)
}
