package garage

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
	entityCar    = "Car"
	entityRecord = "Maintenance record"

	duplicateVIN = "a car with this VIN already exists"
)

// Service implements the garage procedures.
type Service struct {
	db     *builder.DB
	logger *slog.Logger
	clock  crud.Clock
}

// NewService creates the garage service. clock may be nil.
func NewService(db *builder.DB, logger *slog.Logger, clock crud.Clock) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger.With(slog.String("app", "garage")), clock: clock}
}

// CreateCarInput is the input of createCar.
type CreateCarInput struct {
	Make           string  `json:"make" binding:"required,max=100"`
	Model          string  `json:"model" binding:"required,max=100"`
	Year           int     `json:"year" binding:"required,min=1886,max=2100"`
	VIN            *string `json:"vin" binding:"omitempty,min=1,max=17"`
	LicensePlate   *string `json:"license_plate" binding:"omitempty,max=20"`
	Color          *string `json:"color" binding:"omitempty,max=50"`
	CurrentMileage int     `json:"current_mileage" binding:"min=0"`
	Notes          *string `json:"notes" binding:"omitempty,max=5000"`
}

// UpdateCarInput is the patch of updateCar.
type UpdateCarInput struct {
	ID             int64                   `json:"id" binding:"required,min=1"`
	Make           optional.Field[string]  `json:"make" binding:"omitempty,min=1,max=100"`
	Model          optional.Field[string]  `json:"model" binding:"omitempty,min=1,max=100"`
	Year           optional.Field[int]     `json:"year" binding:"omitempty,min=1886,max=2100"`
	VIN            optional.Field[*string] `json:"vin" binding:"omitempty,min=1,max=17"`
	LicensePlate   optional.Field[*string] `json:"license_plate" binding:"omitempty,max=20"`
	Color          optional.Field[*string] `json:"color" binding:"omitempty,max=50"`
	CurrentMileage optional.Field[int]     `json:"current_mileage" binding:"omitempty,min=0"`
	Notes          optional.Field[*string] `json:"notes" binding:"omitempty,max=5000"`
}

// CreateCar adds a car.
func (s *Service) CreateCar(ctx context.Context, in *CreateCarInput) (*Car, error) {
	car, err := builder.Insert[Car](s.db).Values(Car{
		Make:           sanitize.Text(in.Make),
		Model:          sanitize.Text(in.Model),
		Year:           in.Year,
		VIN:            sanitize.Ptr(in.VIN),
		LicensePlate:   sanitize.Ptr(in.LicensePlate),
		Color:          sanitize.Ptr(in.Color),
		CurrentMileage: in.CurrentMileage,
		Notes:          sanitize.Ptr(in.Notes),
	}).One(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, duplicateVIN)
	}
	s.logger.Debug("Created car", slog.Int64("id", car.ID))
	return car, nil
}

// GetCars lists cars.
func (s *Service) GetCars(ctx context.Context, f *CarFilter) ([]Car, error) {
	return listquery.Apply(builder.Select[Car](s.db), carList, f).All(ctx)
}

// GetCarByID returns one car.
func (s *Service) GetCarByID(ctx context.Context, in *crud.ByID) (*Car, error) {
	return crud.Get[Car](ctx, s.db, entityCar, in.ID)
}

// UpdateCar changes the fields present in the patch.
func (s *Service) UpdateCar(ctx context.Context, in *UpdateCarInput) (*Car, error) {
	u := builder.Update[Car](s.db).
		SetIf(in.Make.Present(), "make", sanitize.Text(in.Make.Get())).
		SetIf(in.Model.Present(), "model", sanitize.Text(in.Model.Get())).
		SetIf(in.Year.Present(), "year", in.Year.Get()).
		SetIf(in.VIN.Present(), "vin", sanitize.Ptr(in.VIN.Get())).
		SetIf(in.LicensePlate.Present(), "license_plate", sanitize.Ptr(in.LicensePlate.Get())).
		SetIf(in.Color.Present(), "color", sanitize.Ptr(in.Color.Get())).
		SetIf(in.CurrentMileage.Present(), "current_mileage", in.CurrentMileage.Get()).
		SetIf(in.Notes.Present(), "notes", sanitize.Ptr(in.Notes.Get()))
	return crud.Update(ctx, s.db, u, entityCar, in.ID, duplicateVIN)
}

// DeleteCar removes a car and its maintenance records.
func (s *Service) DeleteCar(ctx context.Context, in *crud.ByID) (crud.DeleteResult, error) {
	return crud.Delete[Car](ctx, s.db, entityCar, in.ID, crud.MissingFails)
}

// CreateMaintenanceRecordInput is the input of createMaintenanceRecord.
type CreateMaintenanceRecordInput struct {
	CarID              int64       `json:"car_id" binding:"required,min=1"`
	ServiceType        string      `json:"service_type" binding:"required,oneof=oil_change tire_rotation brake_service inspection battery transmission other"`
	ServiceDate        dates.Date  `json:"service_date" binding:"required"`
	Mileage            *int        `json:"mileage" binding:"omitempty,min=0"`
	Cost               float64     `json:"cost" binding:"min=0"`
	Description        *string     `json:"description" binding:"omitempty,max=5000"`
	NextServiceDate    *dates.Date `json:"next_service_date"`
	NextServiceMileage *int        `json:"next_service_mileage" binding:"omitempty,min=0"`
}

// UpdateMaintenanceRecordInput is the patch of updateMaintenanceRecord.
type UpdateMaintenanceRecordInput struct {
	ID                 int64                       `json:"id" binding:"required,min=1"`
	CarID              optional.Field[int64]       `json:"car_id" binding:"omitempty,min=1"`
	ServiceType        optional.Field[string]      `json:"service_type" binding:"omitempty,oneof=oil_change tire_rotation brake_service inspection battery transmission other"`
	ServiceDate        optional.Field[dates.Date]  `json:"service_date"`
	Mileage            optional.Field[*int]        `json:"mileage" binding:"omitempty,min=0"`
	Cost               optional.Field[float64]     `json:"cost" binding:"omitempty,min=0"`
	Description        optional.Field[*string]     `json:"description" binding:"omitempty,max=5000"`
	NextServiceDate    optional.Field[*dates.Date] `json:"next_service_date"`
	NextServiceMileage optional.Field[*int]        `json:"next_service_mileage" binding:"omitempty,min=0"`
}

// CreateMaintenanceRecord logs a service for an existing car.
func (s *Service) CreateMaintenanceRecord(ctx context.Context, in *CreateMaintenanceRecordInput) (*MaintenanceRecord, error) {
	if err := crud.MustExist[Car](ctx, s.db, entityCar, in.CarID); err != nil {
		return nil, err
	}
	record, err := builder.Insert[MaintenanceRecord](s.db).Values(MaintenanceRecord{
		CarID:              in.CarID,
		ServiceType:        in.ServiceType,
		ServiceDate:        in.ServiceDate,
		Mileage:            in.Mileage,
		Cost:               in.Cost,
		Description:        sanitize.Ptr(in.Description),
		NextServiceDate:    in.NextServiceDate,
		NextServiceMileage: in.NextServiceMileage,
	}).One(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, "")
	}
	return record, nil
}

// GetMaintenanceRecords lists records, newest service first.
func (s *Service) GetMaintenanceRecords(ctx context.Context, f *MaintenanceRecordFilter) ([]MaintenanceRecord, error) {
	return listquery.Apply(builder.Select[MaintenanceRecord](s.db), recordList, f).All(ctx)
}

// GetMaintenanceRecordByID returns one record.
func (s *Service) GetMaintenanceRecordByID(ctx context.Context, in *crud.ByID) (*MaintenanceRecord, error) {
	return crud.Get[MaintenanceRecord](ctx, s.db, entityRecord, in.ID)
}

// UpdateMaintenanceRecord changes the fields present in the patch. A new car id
// must exist.
func (s *Service) UpdateMaintenanceRecord(ctx context.Context, in *UpdateMaintenanceRecordInput) (*MaintenanceRecord, error) {
	if carID, ok := in.CarID.Value(); ok {
		if err := crud.MustExist[Car](ctx, s.db, entityCar, carID); err != nil {
			return nil, err
		}
	}
	u := builder.Update[MaintenanceRecord](s.db).
		SetIf(in.CarID.Present(), "car_id", in.CarID.Get()).
		SetIf(in.ServiceType.Present(), "service_type", in.ServiceType.Get()).
		SetIf(in.ServiceDate.Present(), "service_date", in.ServiceDate.Get()).
		SetIf(in.Mileage.Present(), "mileage", in.Mileage.Get()).
		SetIf(in.Cost.Present(), "cost", in.Cost.Get()).
		SetIf(in.Description.Present(), "description", sanitize.Ptr(in.Description.Get())).
		SetIf(in.NextServiceDate.Present(), "next_service_date", in.NextServiceDate.Get()).
		SetIf(in.NextServiceMileage.Present(), "next_service_mileage", in.NextServiceMileage.Get())
	return crud.Update(ctx, s.db, u, entityRecord, in.ID, "")
}

// DeleteMaintenanceRecord removes a record. A missing id reports success=false.
func (s *Service) DeleteMaintenanceRecord(ctx context.Context, in *crud.ByID) (crud.DeleteResult, error) {
	return crud.Delete[MaintenanceRecord](ctx, s.db, entityRecord, in.ID, crud.MissingIsFalse)
}

// GetUpcomingServices lists records whose next service falls within the window,
// soonest first. Overdue records are included unless include_overdue is false.
func (s *Service) GetUpcomingServices(ctx context.Context, f *UpcomingServicesFilter) ([]UpcomingService, error) {
	if f == nil {
		f = &UpcomingServicesFilter{}
	}
	today := s.clock.Today()
	rows, err := listquery.Apply(selectUpcoming(s.db), upcomingList, f).
		Where(upcomingWindow(f, today)...).
		All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		days := int(rows[i].NextServiceDate.Time().Sub(today.Time()).Hours() / 24)
		rows[i].DaysUntilDue = days
		rows[i].Overdue = days < 0
	}
	return rows, nil
}
