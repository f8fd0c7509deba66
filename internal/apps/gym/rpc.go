package gym

import "github.com/marshallshelly/pebble-apps/internal/rpc"

// Register exposes the gym procedures on srv.
func (s *Service) Register(srv *rpc.Server) {
	rpc.Register(srv, "gym.createMember", s.CreateMember)
	rpc.Register(srv, "gym.getMembers", s.GetMembers)
	rpc.Register(srv, "gym.getMemberById", s.GetMemberByID)
	rpc.Register(srv, "gym.updateMember", s.UpdateMember)
	rpc.Register(srv, "gym.deleteMember", s.DeleteMember)

	rpc.Register(srv, "gym.createClass", s.CreateClass)
	rpc.Register(srv, "gym.getClasses", s.GetClasses)
	rpc.Register(srv, "gym.getClassById", s.GetClassByID)
	rpc.Register(srv, "gym.updateClass", s.UpdateClass)
	rpc.Register(srv, "gym.deleteClass", s.DeleteClass)

	rpc.Register(srv, "gym.createClassSchedule", s.CreateClassSchedule)
	rpc.Register(srv, "gym.getClassSchedules", s.GetClassSchedules)
	rpc.Register(srv, "gym.getClassScheduleById", s.GetClassScheduleByID)
	rpc.Register(srv, "gym.updateClassSchedule", s.UpdateClassSchedule)
	rpc.Register(srv, "gym.deleteClassSchedule", s.DeleteClassSchedule)
	rpc.Register(srv, "gym.getClassCalendar", s.GetClassCalendar)

	rpc.Register(srv, "gym.createBooking", s.CreateBooking)
	rpc.Register(srv, "gym.getBookings", s.GetBookings)
	rpc.Register(srv, "gym.getBookingById", s.GetBookingByID)
	rpc.Register(srv, "gym.updateBooking", s.UpdateBooking)
	rpc.Register(srv, "gym.cancelBooking", s.CancelBooking)
	rpc.Register(srv, "gym.markAttendance", s.MarkAttendance)
	rpc.Register(srv, "gym.deleteBooking", s.DeleteBooking)
}
