// Package gym manages members, classes, their weekly schedule and bookings.
//
// class_schedules.booked_count caches the number of bookings holding a spot.
// Every path that adds or releases a spot changes it with one bounded UPDATE
// inside the same transaction as the booking change.
package gym

import (
	"time"

	"github.com/marshallshelly/pebble-apps/pkg/dates"
	"github.com/marshallshelly/pebble-apps/pkg/schema"
)

// Booking statuses.
const (
	StatusBooked    = "booked"
	StatusAttended  = "attended"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// Member is a gym member. Deleting a member deactivates it.
type Member struct {
	ID               int64      `json:"id" po:"id,primaryKey,bigserial"`
	FirstName        string     `json:"first_name" po:"first_name,text,notNull"`
	LastName         string     `json:"last_name" po:"last_name,text,notNull"`
	Email            string     `json:"email" po:"email,varchar(320),notNull,unique"`
	Phone            *string    `json:"phone" po:"phone,text"`
	MembershipType   string     `json:"membership_type" po:"membership_type,text,notNull,default('basic'),enum(basic|premium|vip)"`
	IsActive         bool       `json:"is_active" po:"is_active,boolean,notNull,default(true),index"`
	JoinDate         dates.Date `json:"join_date" po:"join_date,date,notNull,default(CURRENT_DATE)"`
	EmergencyContact *string    `json:"emergency_contact" po:"emergency_contact,text"`
	CreatedAt        time.Time  `json:"created_at" po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt        time.Time  `json:"updated_at" po:"updated_at,timestamptz,notNull,default(now())"`
}

func (Member) TableName() string { return "members" }

// Class is a kind of session, e.g. morning yoga with a given instructor.
type Class struct {
	ID              int64     `json:"id" po:"id,primaryKey,bigserial"`
	Name            string    `json:"name" po:"name,text,notNull"`
	Description     *string   `json:"description" po:"description,text"`
	Instructor      string    `json:"instructor" po:"instructor,text,notNull"`
	Category        string    `json:"category" po:"category,text,notNull,enum(yoga|pilates|spin|hiit|strength|boxing|dance|swim),index"`
	Capacity        int       `json:"capacity" po:"capacity,integer,notNull,check(capacity BETWEEN 1 AND 500)"`
	DurationMinutes int       `json:"duration_minutes" po:"duration_minutes,integer,notNull,default(60),check(duration_minutes BETWEEN 5 AND 480)"`
	IsActive        bool      `json:"is_active" po:"is_active,boolean,notNull,default(true)"`
	CreatedAt       time.Time `json:"created_at" po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt       time.Time `json:"updated_at" po:"updated_at,timestamptz,notNull,default(now())"`
}

func (Class) TableName() string { return "classes" }

// ClassSchedule is one dated occurrence of a class.
type ClassSchedule struct {
	ID           int64      `json:"id" po:"id,primaryKey,bigserial"`
	ClassID      int64      `json:"class_id" po:"class_id,bigint,notNull,index,fk:classes(id),onDelete:cascade"`
	ScheduleDate dates.Date `json:"schedule_date" po:"schedule_date,date,notNull,index"`
	StartTime    string     `json:"start_time" po:"start_time,varchar(5),notNull"`
	EndTime      string     `json:"end_time" po:"end_time,varchar(5),notNull,check(end_time > start_time)"`
	Room         *string    `json:"room" po:"room,text"`
	BookedCount  int        `json:"booked_count" po:"booked_count,integer,notNull,default(0),check(booked_count >= 0)"`
	CreatedAt    time.Time  `json:"created_at" po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt    time.Time  `json:"updated_at" po:"updated_at,timestamptz,notNull,default(now())"`
}

func (ClassSchedule) TableName() string { return "class_schedules" }

// Booking reserves a member's spot on a schedule.
type Booking struct {
	ID          int64      `json:"id" po:"id,primaryKey,bigserial"`
	MemberID    int64      `json:"member_id" po:"member_id,bigint,notNull,index,fk:members(id),onDelete:cascade"`
	ScheduleID  int64      `json:"schedule_id" po:"schedule_id,bigint,notNull,index,fk:class_schedules(id),onDelete:cascade"`
	Status      string     `json:"status" po:"status,text,notNull,default('booked'),enum(booked|attended|cancelled|no_show)"`
	BookingDate time.Time  `json:"booking_date" po:"booking_date,timestamptz,notNull,default(now())"`
	AttendedAt  *time.Time `json:"attended_at" po:"attended_at,timestamptz"`
	CancelledAt *time.Time `json:"cancelled_at" po:"cancelled_at,timestamptz"`
	Notes       *string    `json:"notes" po:"notes,text"`
	CreatedAt   time.Time  `json:"created_at" po:"created_at,timestamptz,notNull,default(now())"`
}

func (Booking) TableName() string { return "bookings" }

// TableIndexes allows one active booking per member and schedule.
func (Booking) TableIndexes() []schema.IndexMetadata {
	return []schema.IndexMetadata{{
		Name:    "uq_bookings_active_member_schedule",
		Columns: []string{"member_id", "schedule_id"},
		Unique:  true,
		Where:   "status = 'booked'",
	}}
}

// CalendarEntry is one schedule joined with its class.
type CalendarEntry struct {
	ScheduleID   int64      `json:"schedule_id" po:"schedule_id,bigint"`
	ClassID      int64      `json:"class_id" po:"class_id,bigint"`
	ClassName    string     `json:"class_name" po:"class_name,text"`
	Instructor   string     `json:"instructor" po:"instructor,text"`
	Category     string     `json:"category" po:"category,text"`
	ScheduleDate dates.Date `json:"schedule_date" po:"schedule_date,date"`
	StartTime    string     `json:"start_time" po:"start_time,text"`
	EndTime      string     `json:"end_time" po:"end_time,text"`
	Room         *string    `json:"room" po:"room,text"`
	Capacity     int        `json:"capacity" po:"capacity,integer"`
	BookedCount  int        `json:"booked_count" po:"booked_count,integer"`
	SpotsLeft    int        `json:"spots_left" po:"spots_left,integer"`
}

// Models returns the persisted models of the app.
func Models() []any {
	return []any{Member{}, Class{}, ClassSchedule{}, Booking{}}
}
