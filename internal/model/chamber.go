package model

import "time"

// Chamber describes a piece of environmental-test equipment that can be
// reserved for a date range.  The stored Status field is authoritative
// only for `maintenance`; whether a chamber is actually in use is
// derived from its approved reservations (see workflow.DerivedChamberStatus).
//
// Fields:
//  ID               – primary key identifier.
//  Name             – display name of the chamber.
//  TemperatureRange – supported temperature span (free text, e.g. "-40~150C").
//  Capacity         – number of sample plates the chamber holds.
//  Location         – physical location of the unit.
//  TestItem         – current test item assigned by an admin, if any.
//  Project          – project the chamber is earmarked for, if any.
//  Status           – stored state (`available`, `in_use`, `maintenance`).
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type Chamber struct {
	ID               uint64    // chambers.id
	Name             string    // chambers.name
	TemperatureRange string    // chambers.temperature_range
	Capacity         uint32    // chambers.capacity
	Location         string    // chambers.location
	TestItem         string    // chambers.test_item
	Project          string    // chambers.project
	Status           string    // chambers.status
	CreatedAt        time.Time // chambers.created_at
	UpdatedAt        time.Time // chambers.updated_at
}

// Chamber states stored in chambers.status.
const (
	ChamberAvailable   = "available"
	ChamberInUse       = "in_use"
	ChamberMaintenance = "maintenance"
)

// Platform is a test platform installed inside a chamber.  Platforms
// carry the hardware configuration admins track per chamber slot.
type Platform struct {
	ID           uint64    // platforms.id
	ChamberID    uint64    // platforms.chamber_id
	ClientUUID   string    // platforms.client_uuid
	MB           string    // platforms.mb
	CPU          string    // platforms.cpu
	OS           string    // platforms.os
	MaxLinkSpeed string    // platforms.max_link_speed
	Project      string    // platforms.project
	TestItem     string    // platforms.test_item
	Status       string    // platforms.status
	CreatedAt    time.Time // platforms.created_at
	UpdatedAt    time.Time // platforms.updated_at
}
