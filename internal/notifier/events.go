// Package notifier delivers workflow side effects: in-app notification
// rows, best-effort SMTP email, and audit events on the message
// broker.  Nothing in this package ever returns an error to the
// triggering workflow operation; failures are logged and swallowed.
package notifier

import "time"

// EventKind identifies what happened.  The dispatcher derives titles,
// messages and routing (user row, role broadcast, email, queue) from
// the kind.
type EventKind string

const (
	EventReservationSubmitted EventKind = "reservation.submitted"
	EventReservationApproved  EventKind = "reservation.approved"
	EventReservationRejected  EventKind = "reservation.rejected"
	EventReservationCancelled EventKind = "reservation.cancelled"
	EventUserRegistered       EventKind = "user.registered"
	EventUserApproved         EventKind = "user.approved"
	EventUserRejected         EventKind = "user.rejected"
	EventQueueSubmitted       EventKind = "queue.submitted"
	EventQueueProcessed       EventKind = "queue.processed"
	EventChamberReclaimed     EventKind = "chamber.reclaimed"
	EventBroadcast            EventKind = "broadcast"
)

// Event is one workflow occurrence handed to the dispatcher.  Only the
// fields relevant to the kind need to be set; zero values mean "not
// applicable".
type Event struct {
	Kind           EventKind `json:"kind"`
	UserID         uint64    `json:"user_id,omitempty"`
	Username       string    `json:"username,omitempty"`
	ChamberID      uint64    `json:"chamber_id,omitempty"`
	ChamberName    string    `json:"chamber_name,omitempty"`
	ReservationID  uint64    `json:"reservation_id,omitempty"`
	QueueRequestID uint64    `json:"queue_request_id,omitempty"`
	ProjectName    string    `json:"project_name,omitempty"`
	StartDate      string    `json:"start_date,omitempty"`
	EndDate        string    `json:"end_date,omitempty"`
	Status         string    `json:"status,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	// Title/Message/TargetRole are only read for EventBroadcast; every
	// other kind composes its own text.
	Title      string    `json:"title,omitempty"`
	Message    string    `json:"message,omitempty"`
	TargetRole string    `json:"target_role,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
