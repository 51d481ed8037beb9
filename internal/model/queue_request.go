package model

import "time"

// QueueRequest is a deferred booking intent registered when no
// immediate slot is available.  Admins work through the queue ordered
// by urgency and assign a chamber and start date when approving.
type QueueRequest struct {
	ID               uint64     // queue_requests.id
	UserID           uint64     // queue_requests.user_id
	ChamberID        *uint64    // queue_requests.chamber_id (nullable until assigned)
	ApplicantName    string     // queue_requests.applicant_name
	ProjectName      string     // queue_requests.project_name
	TestItem         string     // queue_requests.test_item
	FWVersion        string     // queue_requests.fw_version
	TemperatureRange string     // queue_requests.temperature_range
	PlateCount       uint32     // queue_requests.plate_count
	UrgencyLevel     string     // queue_requests.urgency_level (urgent|high|normal|low)
	Description      string     // queue_requests.description
	QueueDate        time.Time  // queue_requests.queue_date (expected start, DATE)
	Status           string     // queue_requests.status (pending|approved|rejected|cancelled)
	ProcessedBy      *uint64    // queue_requests.processed_by (admin user id, nullable)
	ProcessedAt      *time.Time // queue_requests.processed_at (nullable)
	CreatedAt        time.Time  // queue_requests.created_at
}

// Queue request urgency levels, most urgent first.
const (
	UrgencyUrgent = "urgent"
	UrgencyHigh   = "high"
	UrgencyNormal = "normal"
	UrgencyLow    = "low"
)
