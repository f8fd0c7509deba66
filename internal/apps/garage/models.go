// Package garage tracks cars and their maintenance history.
package garage

import (
	"time"

	"github.com/marshallshelly/pebble-apps/pkg/dates"
)

// Service types of a maintenance record.
const (
	ServiceOilChange    = "oil_change"
	ServiceTireRotation = "tire_rotation"
	ServiceBrake        = "brake_service"
	ServiceInspection   = "inspection"
	ServiceBattery      = "battery"
	ServiceTransmission = "transmission"
	ServiceOther        = "other"
)

// Car is a vehicle in the garage.
type Car struct {
	ID             int64     `json:"id" po:"id,primaryKey,bigserial"`
	Make           string    `json:"make" po:"make,text,notNull,index"`
	Model          string    `json:"model" po:"model,text,notNull"`
	Year           int       `json:"year" po:"year,integer,notNull,check(year BETWEEN 1886 AND 2100)"`
	VIN            *string   `json:"vin" po:"vin,varchar(17),unique"`
	LicensePlate   *string   `json:"license_plate" po:"license_plate,text"`
	Color          *string   `json:"color" po:"color,text"`
	CurrentMileage int       `json:"current_mileage" po:"current_mileage,integer,notNull,default(0),check(current_mileage >= 0)"`
	Notes          *string   `json:"notes" po:"notes,text"`
	CreatedAt      time.Time `json:"created_at" po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt      time.Time `json:"updated_at" po:"updated_at,timestamptz,notNull,default(now())"`
}

func (Car) TableName() string { return "cars" }

// MaintenanceRecord is one service performed on a car. Records go when their car goes.
type MaintenanceRecord struct {
	ID                 int64       `json:"id" po:"id,primaryKey,bigserial"`
	CarID              int64       `json:"car_id" po:"car_id,bigint,notNull,index,fk:cars(id),onDelete:cascade"`
	ServiceType        string      `json:"service_type" po:"service_type,text,notNull,enum(oil_change|tire_rotation|brake_service|inspection|battery|transmission|other)"`
	ServiceDate        dates.Date  `json:"service_date" po:"service_date,date,notNull"`
	Mileage            *int        `json:"mileage" po:"mileage,integer,check(mileage >= 0)"`
	Cost               float64     `json:"cost" po:"cost,numeric(10,2),notNull,default(0),check(cost >= 0)"`
	Description        *string     `json:"description" po:"description,text"`
	NextServiceDate    *dates.Date `json:"next_service_date" po:"next_service_date,date,index"`
	NextServiceMileage *int        `json:"next_service_mileage" po:"next_service_mileage,integer"`
	CreatedAt          time.Time   `json:"created_at" po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt          time.Time   `json:"updated_at" po:"updated_at,timestamptz,notNull,default(now())"`
}

func (MaintenanceRecord) TableName() string { return "maintenance_records" }

// UpcomingService is one row of the upcoming services view: a record with a
// next service date joined to its car.
type UpcomingService struct {
	RecordID           int64      `json:"record_id" po:"record_id,bigint"`
	CarID              int64      `json:"car_id" po:"car_id,bigint"`
	Make               string     `json:"make" po:"make,text"`
	Model              string     `json:"model" po:"model,text"`
	LicensePlate       *string    `json:"license_plate" po:"license_plate,text"`
	ServiceType        string     `json:"service_type" po:"service_type,text"`
	NextServiceDate    dates.Date `json:"next_service_date" po:"next_service_date,date"`
	NextServiceMileage *int       `json:"next_service_mileage" po:"next_service_mileage,integer"`
	CurrentMileage     int        `json:"current_mileage" po:"current_mileage,integer"`
	DaysUntilDue       int        `json:"days_until_due"`
	Overdue            bool       `json:"overdue"`
}

// Models returns the persisted models of the app.
func Models() []any {
	return []any{Car{}, MaintenanceRecord{}}
}
