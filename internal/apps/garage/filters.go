package garage

import (
	"github.com/marshallshelly/pebble-apps/pkg/builder"
	"github.com/marshallshelly/pebble-apps/pkg/dates"
	"github.com/marshallshelly/pebble-apps/pkg/listquery"
)

// CarFilter filters getCars.
type CarFilter struct {
	Make   *string `json:"make"`
	Year   *int    `json:"year" binding:"omitempty,min=1886,max=2100"`
	Search *string `json:"search"`
	listquery.Page
}

var carList = listquery.Definition[CarFilter]{
	Predicates: []listquery.Predicate[CarFilter]{
		listquery.Equals("make", func(f *CarFilter) *string { return f.Make }),
		listquery.Equals("year", func(f *CarFilter) *int { return f.Year }),
		listquery.Search(func(f *CarFilter) *string { return f.Search }, "make", "model", "license_plate", "vin"),
	},
	Limit: listquery.Limit{Default: 50, Max: 200},
}

// MaintenanceRecordFilter filters getMaintenanceRecords.
type MaintenanceRecordFilter struct {
	CarID       *int64      `json:"car_id"`
	ServiceType *string     `json:"service_type" binding:"omitempty,oneof=oil_change tire_rotation brake_service inspection battery transmission other"`
	DateFrom    *dates.Date `json:"date_from"`
	DateTo      *dates.Date `json:"date_to"`
	listquery.Page
}

var recordList = listquery.Definition[MaintenanceRecordFilter]{
	Predicates: []listquery.Predicate[MaintenanceRecordFilter]{
		listquery.Equals("car_id", func(f *MaintenanceRecordFilter) *int64 { return f.CarID }),
		listquery.Equals("service_type", func(f *MaintenanceRecordFilter) *string { return f.ServiceType }),
		listquery.OnOrAfter("service_date", func(f *MaintenanceRecordFilter) *dates.Date { return f.DateFrom }),
		listquery.OnOrBefore("service_date", func(f *MaintenanceRecordFilter) *dates.Date { return f.DateTo }),
	},
	Order: []builder.OrderBy{
		{Column: "service_date", Direction: builder.Desc},
		{Column: "id", Direction: builder.Asc},
	},
	Limit: listquery.Limit{Default: 50, Max: 200},
}

// UpcomingServicesFilter is the input of getUpcomingServices.
type UpcomingServicesFilter struct {
	CarID *int64 `json:"car_id"`
	// WithinDays defaults to 30.
	WithinDays *int `json:"within_days" binding:"omitempty,min=0,max=3650"`
	// IncludeOverdue defaults to true.
	IncludeOverdue *bool `json:"include_overdue"`
}

const defaultWithinDays = 30

// upcomingList only carries the optional car; the date window depends on today
// and is added by the service.
var upcomingList = listquery.Definition[UpcomingServicesFilter]{
	Predicates: []listquery.Predicate[UpcomingServicesFilter]{
		listquery.Equals("r.car_id", func(f *UpcomingServicesFilter) *int64 { return f.CarID }),
	},
	Order: []builder.OrderBy{
		{Column: "r.next_service_date", Direction: builder.Asc},
		{Column: "r.id", Direction: builder.Asc},
	},
}

func upcomingWindow(f *UpcomingServicesFilter, today dates.Date) []builder.Condition {
	within := defaultWithinDays
	if f.WithinDays != nil {
		within = *f.WithinDays
	}
	conds := []builder.Condition{
		builder.IsNotNull("r.next_service_date"),
		builder.Lte("r.next_service_date", today.AddDays(within)),
	}
	if f.IncludeOverdue != nil && !*f.IncludeOverdue {
		conds = append(conds, builder.Gte("r.next_service_date", today))
	}
	return conds
}

func selectUpcoming(q builder.Querier) *builder.SelectQuery[UpcomingService] {
	return builder.Select[UpcomingService](q).
		From("maintenance_records r").
		InnerJoin("cars c", "c.id = r.car_id").
		Columns(
			"r.id AS record_id",
			"c.id AS car_id",
			"c.make",
			"c.model",
			"c.license_plate",
			"r.service_type",
			"r.next_service_date",
			"r.next_service_mileage",
			"c.current_mileage",
		)
}
