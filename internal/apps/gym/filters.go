package gym

import (
	"github.com/marshallshelly/pebble-apps/pkg/builder"
	"github.com/marshallshelly/pebble-apps/pkg/dates"
	"github.com/marshallshelly/pebble-apps/pkg/listquery"
)

// MemberFilter filters getMembers. An absent filter lists every member.
type MemberFilter struct {
	IsActive       *bool   `json:"is_active"`
	MembershipType *string `json:"membership_type" binding:"omitempty,oneof=basic premium vip"`
	Search         *string `json:"search"`
	listquery.Page
}

var memberList = listquery.Definition[MemberFilter]{
	Predicates: []listquery.Predicate[MemberFilter]{
		listquery.Equals("is_active", func(f *MemberFilter) *bool { return f.IsActive }),
		listquery.Equals("membership_type", func(f *MemberFilter) *string { return f.MembershipType }),
		listquery.Search(func(f *MemberFilter) *string { return f.Search }, "first_name", "last_name", "email"),
	},
	Limit: listquery.Limit{Default: 50, Max: 200},
}

// ClassFilter filters getClasses. An absent filter lists active classes.
type ClassFilter struct {
	IsActive   *bool   `json:"is_active"`
	Category   *string `json:"category" binding:"omitempty,oneof=yoga pilates spin hiit strength boxing dance swim"`
	Instructor *string `json:"instructor"`
	Search     *string `json:"search"`
}

var classList = listquery.Definition[ClassFilter]{
	Predicates: []listquery.Predicate[ClassFilter]{
		listquery.Equals("is_active", func(f *ClassFilter) *bool { return f.IsActive }),
		listquery.Equals("category", func(f *ClassFilter) *string { return f.Category }),
		listquery.Equals("instructor", func(f *ClassFilter) *string { return f.Instructor }),
		listquery.Search(func(f *ClassFilter) *string { return f.Search }, "name", "instructor", "description"),
	},
	Default: []builder.Condition{builder.Eq("is_active", true)},
}

// ClassScheduleFilter filters getClassSchedules.
type ClassScheduleFilter struct {
	ClassID  *int64      `json:"class_id"`
	DateFrom *dates.Date `json:"date_from"`
	DateTo   *dates.Date `json:"date_to"`
	Category *string     `json:"category" binding:"omitempty,oneof=yoga pilates spin hiit strength boxing dance swim"`
	listquery.Page
}

var scheduleList = listquery.Definition[ClassScheduleFilter]{
	Predicates: []listquery.Predicate[ClassScheduleFilter]{
		listquery.Equals("class_id", func(f *ClassScheduleFilter) *int64 { return f.ClassID }),
		listquery.OnOrAfter("schedule_date", func(f *ClassScheduleFilter) *dates.Date { return f.DateFrom }),
		listquery.OnOrBefore("schedule_date", func(f *ClassScheduleFilter) *dates.Date { return f.DateTo }),
		listquery.When(func(f *ClassScheduleFilter) *string { return f.Category }, func(category string) builder.Condition {
			return builder.Exists("SELECT 1 FROM classes c WHERE c.id = class_schedules.class_id AND c.category = ?", category)
		}),
	},
	Order: []builder.OrderBy{
		{Column: "schedule_date", Direction: builder.Asc},
		{Column: "start_time", Direction: builder.Asc},
		{Column: "id", Direction: builder.Asc},
	},
	Limit: listquery.Limit{Default: 100, Max: 500},
}

// CalendarFilter is the input of getClassCalendar.
type CalendarFilter struct {
	DateFrom *dates.Date `json:"date_from"`
	DateTo   *dates.Date `json:"date_to"`
	Category *string     `json:"category" binding:"omitempty,oneof=yoga pilates spin hiit strength boxing dance swim"`
	ClassID  *int64      `json:"class_id"`
}

var calendarList = listquery.Definition[CalendarFilter]{
	Predicates: []listquery.Predicate[CalendarFilter]{
		listquery.OnOrAfter("s.schedule_date", func(f *CalendarFilter) *dates.Date { return f.DateFrom }),
		listquery.OnOrBefore("s.schedule_date", func(f *CalendarFilter) *dates.Date { return f.DateTo }),
		listquery.Equals("c.category", func(f *CalendarFilter) *string { return f.Category }),
		listquery.Equals("s.class_id", func(f *CalendarFilter) *int64 { return f.ClassID }),
	},
	Order: []builder.OrderBy{
		{Column: "s.schedule_date", Direction: builder.Asc},
		{Column: "s.start_time", Direction: builder.Asc},
		{Column: "s.id", Direction: builder.Asc},
	},
}

func selectCalendar(q builder.Querier) *builder.SelectQuery[CalendarEntry] {
	return builder.Select[CalendarEntry](q).
		From("class_schedules s").
		InnerJoin("classes c", "c.id = s.class_id").
		Columns(
			"s.id AS schedule_id",
			"s.class_id",
			"c.name AS class_name",
			"c.instructor",
			"c.category",
			"s.schedule_date",
			"s.start_time",
			"s.end_time",
			"s.room",
			"c.capacity",
			"s.booked_count",
			"GREATEST(c.capacity - s.booked_count, 0) AS spots_left",
		)
}

// BookingFilter filters getBookings. The date range applies to the day the
// booking was made.
type BookingFilter struct {
	MemberID   *int64      `json:"member_id"`
	ScheduleID *int64      `json:"schedule_id"`
	Status     *string     `json:"status" binding:"omitempty,oneof=booked attended cancelled no_show"`
	DateFrom   *dates.Date `json:"date_from"`
	DateTo     *dates.Date `json:"date_to"`
	listquery.Page
}

var bookingList = listquery.Definition[BookingFilter]{
	Predicates: []listquery.Predicate[BookingFilter]{
		listquery.Equals("member_id", func(f *BookingFilter) *int64 { return f.MemberID }),
		listquery.Equals("schedule_id", func(f *BookingFilter) *int64 { return f.ScheduleID }),
		listquery.Equals("status", func(f *BookingFilter) *string { return f.Status }),
		listquery.OnOrAfter("booking_date::date", func(f *BookingFilter) *dates.Date { return f.DateFrom }),
		listquery.OnOrBefore("booking_date::date", func(f *BookingFilter) *dates.Date { return f.DateTo }),
	},
	Order: []builder.OrderBy{
		{Column: "booking_date", Direction: builder.Desc},
		{Column: "id", Direction: builder.Desc},
	},
	Limit: listquery.Limit{Default: 50, Max: 200},
}
