package gym

import (
	"context"
	"log/slog"

	"github.com/marshallshelly/pebble-apps/internal/apperr"
	"github.com/marshallshelly/pebble-apps/internal/apps/crud"
	"github.com/marshallshelly/pebble-apps/internal/sanitize"
	"github.com/marshallshelly/pebble-apps/pkg/builder"
	"github.com/marshallshelly/pebble-apps/pkg/dates"
	"github.com/marshallshelly/pebble-apps/pkg/listquery"
	"github.com/marshallshelly/pebble-apps/pkg/optional"
)

const (
	entityMember   = "Member"
	entityClass    = "Class"
	entitySchedule = "Class schedule"
	entityBooking  = "Booking"

	duplicateEmail   = "a member with this email already exists"
	duplicateBooking = "member already has an active booking for this class"
)

// Service implements the gym procedures.
type Service struct {
	db     *builder.DB
	logger *slog.Logger
	clock  crud.Clock
}

// NewService creates the gym service. clock may be nil.
func NewService(db *builder.DB, logger *slog.Logger, clock crud.Clock) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger.With(slog.String("app", "gym")), clock: clock}
}

// Members

// CreateMemberInput is the input of createMember.
type CreateMemberInput struct {
	FirstName        string      `json:"first_name" binding:"required,max=100"`
	LastName         string      `json:"last_name" binding:"required,max=100"`
	Email            string      `json:"email" binding:"required,email,max=320"`
	Phone            *string     `json:"phone" binding:"omitempty,max=30"`
	MembershipType   *string     `json:"membership_type" binding:"omitempty,oneof=basic premium vip"`
	IsActive         *bool       `json:"is_active"`
	JoinDate         *dates.Date `json:"join_date"`
	EmergencyContact *string     `json:"emergency_contact" binding:"omitempty,max=200"`
}

// UpdateMemberInput is the patch of updateMember.
type UpdateMemberInput struct {
	ID               int64                      `json:"id" binding:"required,min=1"`
	FirstName        optional.Field[string]     `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName         optional.Field[string]     `json:"last_name" binding:"omitempty,min=1,max=100"`
	Email            optional.Field[string]     `json:"email" binding:"omitempty,email,max=320"`
	Phone            optional.Field[*string]    `json:"phone" binding:"omitempty,max=30"`
	MembershipType   optional.Field[string]     `json:"membership_type" binding:"omitempty,oneof=basic premium vip"`
	IsActive         optional.Field[bool]       `json:"is_active"`
	JoinDate         optional.Field[dates.Date] `json:"join_date"`
	EmergencyContact optional.Field[*string]    `json:"emergency_contact" binding:"omitempty,max=200"`
}

// CreateMember registers a member. The email is stored lowercased.
func (s *Service) CreateMember(ctx context.Context, in *CreateMemberInput) (*Member, error) {
	m := Member{
		FirstName:        sanitize.Text(in.FirstName),
		LastName:         sanitize.Text(in.LastName),
		Email:            crud.Lower(in.Email),
		Phone:            sanitize.Ptr(in.Phone),
		MembershipType:   "basic",
		IsActive:         true,
		JoinDate:         s.clock.Today(),
		EmergencyContact: sanitize.Ptr(in.EmergencyContact),
	}
	if in.MembershipType != nil {
		m.MembershipType = *in.MembershipType
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
	if in.JoinDate != nil {
		m.JoinDate = *in.JoinDate
	}

	member, err := builder.Insert[Member](s.db).Values(m).One(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, duplicateEmail)
	}
	s.logger.Debug("Created member", slog.Int64("id", member.ID))
	return member, nil
}

// GetMembers lists members.
func (s *Service) GetMembers(ctx context.Context, f *MemberFilter) ([]Member, error) {
	return listquery.Apply(builder.Select[Member](s.db), memberList, f).All(ctx)
}

// GetMemberByID returns one member.
func (s *Service) GetMemberByID(ctx context.Context, in *crud.ByID) (*Member, error) {
	return crud.Get[Member](ctx, s.db, entityMember, in.ID)
}

// UpdateMember changes the fields present in the patch.
func (s *Service) UpdateMember(ctx context.Context, in *UpdateMemberInput) (*Member, error) {
	u := builder.Update[Member](s.db).
		SetIf(in.FirstName.Present(), "first_name", sanitize.Text(in.FirstName.Get())).
		SetIf(in.LastName.Present(), "last_name", sanitize.Text(in.LastName.Get())).
		SetIf(in.Email.Present(), "email", crud.Lower(in.Email.Get())).
		SetIf(in.Phone.Present(), "phone", sanitize.Ptr(in.Phone.Get())).
		SetIf(in.MembershipType.Present(), "membership_type", in.MembershipType.Get()).
		SetIf(in.IsActive.Present(), "is_active", in.IsActive.Get()).
		SetIf(in.JoinDate.Present(), "join_date", in.JoinDate.Get()).
		SetIf(in.EmergencyContact.Present(), "emergency_contact", sanitize.Ptr(in.EmergencyContact.Get()))
	return crud.Update(ctx, s.db, u, entityMember, in.ID, duplicateEmail)
}

// DeleteMember deactivates a member. Bookings on schedules from today onwards
// are cancelled and release their spot; past bookings are kept as history.
func (s *Service) DeleteMember(ctx context.Context, in *crud.ByID) (crud.DeleteResult, error) {
	today := s.clock.Today()
	var cancelled int
	err := s.db.WithTx(ctx, func(tx *builder.Tx) error {
		if _, err := crud.Lock[Member](ctx, tx, entityMember, in.ID); err != nil {
			return err
		}
		if _, err := builder.Update[Member](tx).
			Set("is_active", false).
			SetExpr("updated_at", crud.TouchUpdatedAt).
			Where(builder.Eq("id", in.ID)).
			Exec(ctx); err != nil {
			return err
		}

		bookings, err := builder.Update[Booking](tx).
			Set("status", StatusCancelled).
			SetExpr("cancelled_at", "now()").
			Where(
				builder.Eq("member_id", in.ID),
				builder.Eq("status", StatusBooked),
				builder.Expr("schedule_id IN (SELECT id FROM class_schedules WHERE schedule_date >= ?)", today),
			).
			ExecReturning(ctx)
		if err != nil {
			return err
		}
		cancelled = len(bookings)
		return releaseSpots(ctx, tx, bookings)
	})
	if err != nil {
		return crud.DeleteResult{}, err
	}
	s.logger.Info("Deactivated member", slog.Int64("id", in.ID), slog.Int("cancelled_bookings", cancelled))
	return crud.DeleteResult{Success: true}, nil
}

// takeSpot increments the schedule's counter unless the class is already full.
func takeSpot(q builder.Querier, scheduleID int64) *builder.UpdateQuery[ClassSchedule] {
	return builder.Update[ClassSchedule](q).
		SetExpr("booked_count", "booked_count + 1").
		SetExpr("updated_at", crud.TouchUpdatedAt).
		Where(
			builder.Eq("id", scheduleID),
			builder.Expr("booked_count < (SELECT capacity FROM classes WHERE classes.id = class_schedules.class_id)"),
		)
}

// releaseSpots decrements the counter of each booking's schedule once per booking.
func releaseSpots(ctx context.Context, q builder.Querier, bookings []Booking) error {
	perSchedule := make(map[int64]int)
	for _, b := range bookings {
		perSchedule[b.ScheduleID]++
	}
	for scheduleID, n := range perSchedule {
		if _, err := builder.Update[ClassSchedule](q).
			SetExpr("booked_count", "GREATEST(booked_count - ?, 0)", n).
			SetExpr("updated_at", crud.TouchUpdatedAt).
			Where(builder.Eq("id", scheduleID)).
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Classes

// CreateClassInput is the input of createClass.
type CreateClassInput struct {
	Name            string  `json:"name" binding:"required,max=200"`
	Description     *string `json:"description" binding:"omitempty,max=5000"`
	Instructor      string  `json:"instructor" binding:"required,max=200"`
	Category        string  `json:"category" binding:"required,oneof=yoga pilates spin hiit strength boxing dance swim"`
	Capacity        int     `json:"capacity" binding:"required,min=1,max=500"`
	DurationMinutes *int    `json:"duration_minutes" binding:"omitempty,min=5,max=480"`
	IsActive        *bool   `json:"is_active"`
}

// UpdateClassInput is the patch of updateClass.
type UpdateClassInput struct {
	ID              int64                   `json:"id" binding:"required,min=1"`
	Name            optional.Field[string]  `json:"name" binding:"omitempty,min=1,max=200"`
	Description     optional.Field[*string] `json:"description" binding:"omitempty,max=5000"`
	Instructor      optional.Field[string]  `json:"instructor" binding:"omitempty,min=1,max=200"`
	Category        optional.Field[string]  `json:"category" binding:"omitempty,oneof=yoga pilates spin hiit strength boxing dance swim"`
	Capacity        optional.Field[int]     `json:"capacity" binding:"omitempty,min=1,max=500"`
	DurationMinutes optional.Field[int]     `json:"duration_minutes" binding:"omitempty,min=5,max=480"`
	IsActive        optional.Field[bool]    `json:"is_active"`
}

// CreateClass adds a class.
func (s *Service) CreateClass(ctx context.Context, in *CreateClassInput) (*Class, error) {
	c := Class{
		Name:            sanitize.Text(in.Name),
		Description:     sanitize.Ptr(in.Description),
		Instructor:      sanitize.Text(in.Instructor),
		Category:        in.Category,
		Capacity:        in.Capacity,
		DurationMinutes: 60,
		IsActive:        true,
	}
	if in.DurationMinutes != nil {
		c.DurationMinutes = *in.DurationMinutes
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	class, err := builder.Insert[Class](s.db).Values(c).One(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, "")
	}
	return class, nil
}

// GetClasses lists classes. An absent filter lists the active ones.
func (s *Service) GetClasses(ctx context.Context, f *ClassFilter) ([]Class, error) {
	return listquery.Apply(builder.Select[Class](s.db), classList, f).All(ctx)
}

// GetClassByID returns one class.
func (s *Service) GetClassByID(ctx context.Context, in *crud.ByID) (*Class, error) {
	return crud.Get[Class](ctx, s.db, entityClass, in.ID)
}

// UpdateClass changes the fields present in the patch. Capacity may not drop
// below the bookings already held on any of the class's schedules.
func (s *Service) UpdateClass(ctx context.Context, in *UpdateClassInput) (*Class, error) {
	var class *Class
	err := s.db.WithTx(ctx, func(tx *builder.Tx) error {
		if _, err := crud.Lock[Class](ctx, tx, entityClass, in.ID); err != nil {
			return err
		}
		if capacity, ok := in.Capacity.Value(); ok {
			overbooked, err := builder.Select[ClassSchedule](tx).
				Where(builder.Eq("class_id", in.ID), builder.Gt("booked_count", capacity)).
				Exists(ctx)
			if err != nil {
				return err
			}
			if overbooked {
				return apperr.Conflict("capacity %d is below the bookings already held on a schedule", capacity)
			}
		}

		u := builder.Update[Class](tx).
			SetIf(in.Name.Present(), "name", sanitize.Text(in.Name.Get())).
			SetIf(in.Description.Present(), "description", sanitize.Ptr(in.Description.Get())).
			SetIf(in.Instructor.Present(), "instructor", sanitize.Text(in.Instructor.Get())).
			SetIf(in.Category.Present(), "category", in.Category.Get()).
			SetIf(in.Capacity.Present(), "capacity", in.Capacity.Get()).
			SetIf(in.DurationMinutes.Present(), "duration_minutes", in.DurationMinutes.Get()).
			SetIf(in.IsActive.Present(), "is_active", in.IsActive.Get())
		var err error
		class, err = crud.Update(ctx, tx, u, entityClass, in.ID, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return class, nil
}

// DeleteClass removes a class with its schedules and their bookings.
func (s *Service) DeleteClass(ctx context.Context, in *crud.ByID) (crud.DeleteResult, error) {
	return crud.Delete[Class](ctx, s.db, entityClass, in.ID, crud.MissingIsFalse)
}

// Schedules

// CreateClassScheduleInput is the input of createClassSchedule.
type CreateClassScheduleInput struct {
	ClassID      int64      `json:"class_id" binding:"required,min=1"`
	ScheduleDate dates.Date `json:"schedule_date" binding:"required"`
	StartTime    string     `json:"start_time" binding:"required,clock"`
	EndTime      string     `json:"end_time" binding:"required,clock"`
	Room         *string    `json:"room" binding:"omitempty,max=100"`
}

// UpdateClassScheduleInput is the patch of updateClassSchedule.
type UpdateClassScheduleInput struct {
	ID           int64                      `json:"id" binding:"required,min=1"`
	ClassID      optional.Field[int64]      `json:"class_id" binding:"omitempty,min=1"`
	ScheduleDate optional.Field[dates.Date] `json:"schedule_date"`
	StartTime    optional.Field[string]     `json:"start_time" binding:"omitempty,clock"`
	EndTime      optional.Field[string]     `json:"end_time" binding:"omitempty,clock"`
	Room         optional.Field[*string]    `json:"room" binding:"omitempty,max=100"`
}

func checkTimes(start, end string) error {
	if end <= start {
		return apperr.Validation("end_time must be after start_time")
	}
	return nil
}

func (s *Service) checkNotPast(date dates.Date) error {
	if date.Before(s.clock.Today()) {
		return apperr.Conflict("cannot schedule or change a class in the past (%s)", date)
	}
	return nil
}

// CreateClassSchedule schedules an existing class on today or a later date.
func (s *Service) CreateClassSchedule(ctx context.Context, in *CreateClassScheduleInput) (*ClassSchedule, error) {
	if err := checkTimes(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	if err := crud.MustExist[Class](ctx, s.db, entityClass, in.ClassID); err != nil {
		return nil, err
	}
	if err := s.checkNotPast(in.ScheduleDate); err != nil {
		return nil, err
	}
	schedule, err := builder.Insert[ClassSchedule](s.db).Values(ClassSchedule{
		ClassID:      in.ClassID,
		ScheduleDate: in.ScheduleDate,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		Room:         sanitize.Ptr(in.Room),
	}).One(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, "")
	}
	return schedule, nil
}

// GetClassSchedules lists schedules by date and start time.
func (s *Service) GetClassSchedules(ctx context.Context, f *ClassScheduleFilter) ([]ClassSchedule, error) {
	return listquery.Apply(builder.Select[ClassSchedule](s.db), scheduleList, f).All(ctx)
}

// GetClassScheduleByID returns one schedule.
func (s *Service) GetClassScheduleByID(ctx context.Context, in *crud.ByID) (*ClassSchedule, error) {
	return crud.Get[ClassSchedule](ctx, s.db, entitySchedule, in.ID)
}

// UpdateClassSchedule changes a schedule that has not happened yet. Moving it
// to another class requires that class to fit the bookings already held.
func (s *Service) UpdateClassSchedule(ctx context.Context, in *UpdateClassScheduleInput) (*ClassSchedule, error) {
	var schedule *ClassSchedule
	err := s.db.WithTx(ctx, func(tx *builder.Tx) error {
		current, err := crud.Lock[ClassSchedule](ctx, tx, entitySchedule, in.ID)
		if err != nil {
			return err
		}
		if err := s.checkNotPast(current.ScheduleDate); err != nil {
			return err
		}
		if date, ok := in.ScheduleDate.Value(); ok {
			if err := s.checkNotPast(date); err != nil {
				return err
			}
		}
		if classID, ok := in.ClassID.Value(); ok {
			class, err := crud.Get[Class](ctx, tx, entityClass, classID)
			if err != nil {
				return err
			}
			if current.BookedCount > class.Capacity {
				return apperr.Conflict("class %d has room for %d, schedule holds %d bookings", classID, class.Capacity, current.BookedCount)
			}
		}
		if err := checkTimes(in.StartTime.Or(current.StartTime), in.EndTime.Or(current.EndTime)); err != nil {
			return err
		}

		u := builder.Update[ClassSchedule](tx).
			SetIf(in.ClassID.Present(), "class_id", in.ClassID.Get()).
			SetIf(in.ScheduleDate.Present(), "schedule_date", in.ScheduleDate.Get()).
			SetIf(in.StartTime.Present(), "start_time", in.StartTime.Get()).
			SetIf(in.EndTime.Present(), "end_time", in.EndTime.Get()).
			SetIf(in.Room.Present(), "room", sanitize.Ptr(in.Room.Get()))
		schedule, err = crud.Update(ctx, tx, u, entitySchedule, in.ID, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

// DeleteClassSchedule removes a schedule that has not happened yet, with its bookings.
func (s *Service) DeleteClassSchedule(ctx context.Context, in *crud.ByID) (crud.DeleteResult, error) {
	var res crud.DeleteResult
	err := s.db.WithTx(ctx, func(tx *builder.Tx) error {
		current, err := crud.Lock[ClassSchedule](ctx, tx, entitySchedule, in.ID)
		if err != nil {
			return err
		}
		if err := s.checkNotPast(current.ScheduleDate); err != nil {
			return err
		}
		res, err = crud.Delete[ClassSchedule](ctx, tx, entitySchedule, in.ID, crud.MissingFails)
		return err
	})
	return res, err
}

// GetClassCalendar returns one flat row per schedule with its class and the spots left.
func (s *Service) GetClassCalendar(ctx context.Context, f *CalendarFilter) ([]CalendarEntry, error) {
	return listquery.Apply(selectCalendar(s.db), calendarList, f).All(ctx)
}

// Bookings

// CreateBookingInput is the input of createBooking.
type CreateBookingInput struct {
	MemberID   int64   `json:"member_id" binding:"required,min=1"`
	ScheduleID int64   `json:"schedule_id" binding:"required,min=1"`
	Notes      *string `json:"notes" binding:"omitempty,max=1000"`
}

// UpdateBookingInput is the patch of updateBooking. Status changes go through
// cancelBooking and markAttendance.
type UpdateBookingInput struct {
	ID    int64                   `json:"id" binding:"required,min=1"`
	Notes optional.Field[*string] `json:"notes" binding:"omitempty,max=1000"`
}

// AttendanceInput is the input of markAttendance.
type AttendanceInput struct {
	BookingID int64  `json:"booking_id" binding:"required,min=1"`
	Status    string `json:"status" binding:"required,oneof=attended no_show"`
}

// CreateBooking books a spot for an active member on a schedule that has not
// happened yet. The spot is taken with one bounded UPDATE so concurrent
// bookings cannot overfill the class.
func (s *Service) CreateBooking(ctx context.Context, in *CreateBookingInput) (*Booking, error) {
	var booking *Booking
	err := s.db.WithTx(ctx, func(tx *builder.Tx) error {
		member, err := crud.Get[Member](ctx, tx, entityMember, in.MemberID)
		if err != nil {
			return err
		}
		if !member.IsActive {
			return apperr.Conflict("member %d is not active", in.MemberID)
		}
		schedule, err := crud.Get[ClassSchedule](ctx, tx, entitySchedule, in.ScheduleID)
		if err != nil {
			return err
		}
		if schedule.ScheduleDate.Before(s.clock.Today()) {
			return apperr.Conflict("cannot book a class in the past (%s)", schedule.ScheduleDate)
		}

		duplicate, err := builder.Select[Booking](tx).
			Where(
				builder.Eq("member_id", in.MemberID),
				builder.Eq("schedule_id", in.ScheduleID),
				builder.Eq("status", StatusBooked),
			).
			Exists(ctx)
		if err != nil {
			return err
		}
		if duplicate {
			return apperr.Conflict(duplicateBooking)
		}

		taken, err := takeSpot(tx, in.ScheduleID).Exec(ctx)
		if err != nil {
			return err
		}
		if taken == 0 {
			return apperr.Conflict("Class is full")
		}

		booking, err = builder.Insert[Booking](tx).Values(Booking{
			MemberID:   in.MemberID,
			ScheduleID: in.ScheduleID,
			Status:     StatusBooked,
			Notes:      sanitize.Ptr(in.Notes),
		}).One(ctx)
		if err != nil {
			return apperr.FromStore(err, duplicateBooking)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Created booking",
		slog.Int64("id", booking.ID),
		slog.Int64("member_id", in.MemberID),
		slog.Int64("schedule_id", in.ScheduleID))
	return booking, nil
}

// GetBookings lists bookings, most recent first.
func (s *Service) GetBookings(ctx context.Context, f *BookingFilter) ([]Booking, error) {
	return listquery.Apply(builder.Select[Booking](s.db), bookingList, f).All(ctx)
}

// GetBookingByID returns one booking.
func (s *Service) GetBookingByID(ctx context.Context, in *crud.ByID) (*Booking, error) {
	return crud.Get[Booking](ctx, s.db, entityBooking, in.ID)
}

// UpdateBooking changes the booking notes.
func (s *Service) UpdateBooking(ctx context.Context, in *UpdateBookingInput) (*Booking, error) {
	u := builder.Update[Booking](s.db).
		SetIf(in.Notes.Present(), "notes", sanitize.Ptr(in.Notes.Get()))
	return crud.Patch(ctx, s.db, u, entityBooking, in.ID, "")
}

// CancelBooking cancels a booked booking and releases its spot.
func (s *Service) CancelBooking(ctx context.Context, in *crud.ByID) (*Booking, error) {
	var booking *Booking
	err := s.db.WithTx(ctx, func(tx *builder.Tx) error {
		current, err := crud.Lock[Booking](ctx, tx, entityBooking, in.ID)
		if err != nil {
			return err
		}
		if current.Status != StatusBooked {
			return apperr.Conflict("booking %d is %s and cannot be cancelled", in.ID, current.Status)
		}
		booking, err = builder.Update[Booking](tx).
			Set("status", StatusCancelled).
			SetExpr("cancelled_at", "now()").
			Where(builder.Eq("id", in.ID)).
			One(ctx)
		if err != nil {
			return err
		}
		return releaseSpots(ctx, tx, []Booking{*booking})
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// MarkAttendance records whether the member showed up. Both outcomes keep the spot.
func (s *Service) MarkAttendance(ctx context.Context, in *AttendanceInput) (*Booking, error) {
	var booking *Booking
	err := s.db.WithTx(ctx, func(tx *builder.Tx) error {
		current, err := crud.Lock[Booking](ctx, tx, entityBooking, in.BookingID)
		if err != nil {
			return err
		}
		if current.Status == StatusCancelled {
			return apperr.Conflict("booking %d is cancelled", in.BookingID)
		}
		u := builder.Update[Booking](tx).Set("status", in.Status)
		if in.Status == StatusAttended {
			u.SetExpr("attended_at", "now()")
		} else {
			u.Set("attended_at", nil)
		}
		booking, err = u.Where(builder.Eq("id", in.BookingID)).One(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// DeleteBooking removes a booking. A booking that still held a spot releases it.
func (s *Service) DeleteBooking(ctx context.Context, in *crud.ByID) (crud.DeleteResult, error) {
	var res crud.DeleteResult
	err := s.db.WithTx(ctx, func(tx *builder.Tx) error {
		deleted, err := builder.Delete[Booking](tx).
			Where(builder.Eq("id", in.ID)).
			ExecReturning(ctx)
		if err != nil {
			return err
		}
		if len(deleted) == 0 {
			return nil
		}
		res.Success = true
		var held []Booking
		for _, b := range deleted {
			if b.Status == StatusBooked {
				held = append(held, b)
			}
		}
		return releaseSpots(ctx, tx, held)
	})
	if err != nil {
		return crud.DeleteResult{}, err
	}
	return res, nil
}
