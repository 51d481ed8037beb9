package model

import "time"

// Reservation records a user's claim on a chamber for an inclusive
// calendar date range, together with the project metadata collected on
// submission and the approval lifecycle state.  Dates are day
// granular; StartDate and EndDate hold midnight in the server's local
// calendar.
//
// Fields:
//  ID                  – primary key identifier.
//  UserID              – user who submitted the reservation.
//  ChamberID           – chamber being reserved.
//  ProjectName         – project the test belongs to.
//  ProjectLeader       – responsible person for the project.
//  Department          – submitting department.
//  TestItem            – item under test.
//  TemperatureRange    – requested temperature profile.
//  SampleCount         – number of samples.
//  SpecialRequirements – free-form remarks, optional.
//  FWVersion           – firmware version under test, optional.
//  StartDate           – first reserved day (inclusive).
//  EndDate             – last reserved day (inclusive, >= StartDate).
//  Status              – lifecycle state (`pending`, `approved`, `rejected`, `cancelled`).
//  CreatedAt           – creation timestamp.
//  UpdatedAt           – last update timestamp.
type Reservation struct {
	ID                  uint64    // reservations.id
	UserID              uint64    // reservations.user_id
	ChamberID           uint64    // reservations.chamber_id
	ProjectName         string    // reservations.project_name
	ProjectLeader       string    // reservations.project_leader
	Department          string    // reservations.department
	TestItem            string    // reservations.test_item
	TemperatureRange    string    // reservations.temperature_range
	SampleCount         uint32    // reservations.sample_count
	SpecialRequirements string    // reservations.special_requirements
	FWVersion           string    // reservations.fw_version
	StartDate           time.Time // reservations.start_date (DATE)
	EndDate             time.Time // reservations.end_date (DATE)
	Status              string    // reservations.status
	CreatedAt           time.Time // reservations.created_at
	UpdatedAt           time.Time // reservations.updated_at
}

// Reservation lifecycle states.  `rejected` and `cancelled` are
// terminal; `approved` can still be cancelled.
const (
	ReservationPending   = "pending"
	ReservationApproved  = "approved"
	ReservationRejected  = "rejected"
	ReservationCancelled = "cancelled"
)

// IsTerminalReservationStatus reports whether no further transitions
// are accepted from the given state.
func IsTerminalReservationStatus(status string) bool {
	return status == ReservationRejected || status == ReservationCancelled
}
