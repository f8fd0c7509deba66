package garage

import "github.com/marshallshelly/pebble-apps/internal/rpc"

// Register exposes the garage procedures on srv.
func (s *Service) Register(srv *rpc.Server) {
	rpc.Register(srv, "garage.createCar", s.CreateCar)
	rpc.Register(srv, "garage.getCars", s.GetCars)
	rpc.Register(srv, "garage.getCarById", s.GetCarByID)
	rpc.Register(srv, "garage.updateCar", s.UpdateCar)
	rpc.Register(srv, "garage.deleteCar", s.DeleteCar)

	rpc.Register(srv, "garage.createMaintenanceRecord", s.CreateMaintenanceRecord)
	rpc.Register(srv, "garage.getMaintenanceRecords", s.GetMaintenanceRecords)
	rpc.Register(srv, "garage.getMaintenanceRecordById", s.GetMaintenanceRecordByID)
	rpc.Register(srv, "garage.updateMaintenanceRecord", s.UpdateMaintenanceRecord)
	rpc.Register(srv, "garage.deleteMaintenanceRecord", s.DeleteMaintenanceRecord)

	rpc.Register(srv, "garage.getUpcomingServices", s.GetUpcomingServices)
}
