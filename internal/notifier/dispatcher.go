package notifier

import (
	"context"
	"fmt"
	"log"

	"github.com/chamberlab/chamber-reservation/internal/model"
)

// Dispatcher consumes workflow events.  Implementations must never
// surface an error to the caller: the triggering state change has
// already been committed and must not be rolled back or delayed by a
// failed notification.
type Dispatcher interface {
	Notify(ctx context.Context, ev Event)
}

// directory is the slice of the user repository the dispatcher needs
// to resolve recipients.
type directory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	ListAdminIDs(ctx context.Context) ([]uint64, error)
}

// notificationLog is the slice of the notification repository used to
// persist in-app rows.
type notificationLog interface {
	InsertUser(ctx context.Context, n *model.UserNotification) error
	InsertSystem(ctx context.Context, n *model.SystemNotification) error
}

// Mailer sends a single email.  Enabled reports whether a transport is
// configured at all, so the dispatcher can skip composing mail instead
// of logging a failure per recipient.
type Mailer interface {
	Enabled() bool
	Send(to, subject, body string) error
}

// Publisher hands the event to the message broker for the audit
// consumer.  Errors are the caller's to ignore.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// EventDispatcher is the production Dispatcher.  Every delivery leg
// (in-app row, email, broker publish) is independent and best-effort.
type EventDispatcher struct {
	users     directory
	log       notificationLog
	mailer    Mailer
	publisher Publisher
}

// NewEventDispatcher wires a dispatcher.  mailer and publisher may be
// nil; the corresponding legs are then skipped.
func NewEventDispatcher(users directory, nlog notificationLog, mailer Mailer, publisher Publisher) *EventDispatcher {
	return &EventDispatcher{users: users, log: nlog, mailer: mailer, publisher: publisher}
}

// Notify routes one event.  It never returns an error and never
// panics on nil collaborators.
func (d *EventDispatcher) Notify(ctx context.Context, ev Event) {
	for _, m := range compose(ev) {
		if m.toRole != "" {
			d.broadcast(ctx, ev, m)
			continue
		}
		d.toUser(ctx, ev, m)
	}
	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, ev); err != nil {
			log.Printf("notifier: publish %s failed: %v", ev.Kind, err)
		}
	}
}

// message is one composed delivery: either to a single user or to a
// role group.
type message struct {
	toUser  uint64
	toRole  string
	title   string
	body    string
	kind    string // notification type tag (info|success|warning|danger)
	related uint64
	relType string
}

func (d *EventDispatcher) toUser(ctx context.Context, ev Event, m message) {
	n := &model.UserNotification{
		UserID:      m.toUser,
		Title:       m.title,
		Message:     m.body,
		Type:        m.kind,
		RelatedType: m.relType,
	}
	if m.related != 0 {
		rid := m.related
		n.RelatedID = &rid
	}
	if err := d.log.InsertUser(ctx, n); err != nil {
		log.Printf("notifier: user notification for %d failed: %v", m.toUser, err)
	}
	d.mail(ctx, m.toUser, m.title, m.body)
}

func (d *EventDispatcher) broadcast(ctx context.Context, ev Event, m message) {
	if err := d.log.InsertSystem(ctx, &model.SystemNotification{
		Title: m.title, Message: m.body, Type: m.kind, TargetRole: m.toRole,
	}); err != nil {
		log.Printf("notifier: system notification (%s) failed: %v", m.toRole, err)
	}
	if m.toRole != model.RoleAdmin {
		return
	}
	ids, err := d.users.ListAdminIDs(ctx)
	if err != nil {
		log.Printf("notifier: admin lookup failed: %v", err)
		return
	}
	for _, id := range ids {
		d.mail(ctx, id, m.title, m.body)
	}
}

// mail resolves the recipient's address and sends.  Users without an
// email on file are silently skipped, matching registration where the
// address is optional.
func (d *EventDispatcher) mail(ctx context.Context, userID uint64, subject, body string) {
	if d.mailer == nil || !d.mailer.Enabled() {
		return
	}
	u, err := d.users.GetByID(ctx, userID)
	if err != nil {
		log.Printf("notifier: recipient %d lookup failed: %v", userID, err)
		return
	}
	if u.Email == nil || *u.Email == "" {
		return
	}
	if err := d.mailer.Send(*u.Email, subject, body); err != nil {
		log.Printf("notifier: email to %s failed: %v", *u.Email, err)
	}
}

// compose maps an event to its deliveries.  Reservation lifecycle
// wording mirrors what the portal has always shown users.
func compose(ev Event) []message {
	reason := ""
	if ev.Reason != "" {
		reason = " Note: " + ev.Reason
	}
	chamber := fmt.Sprintf("chamber #%d %s", ev.ChamberID, ev.ChamberName)
	span := ev.StartDate + " to " + ev.EndDate

	switch ev.Kind {
	case EventReservationSubmitted:
		msgs := []message{{
			toUser: ev.UserID, kind: "info",
			title:   "Reservation request received",
			body:    fmt.Sprintf("Your reservation of %s for project %q (%s) has been received and is awaiting review.", chamber, ev.ProjectName, span),
			related: ev.ReservationID, relType: "reservation",
		}}
		if ev.Status == model.ReservationPending {
			msgs = append(msgs, message{
				toRole: model.RoleAdmin, kind: "info",
				title: "New pending reservation",
				body:  fmt.Sprintf("%s requested %s for project %q (%s).", ev.Username, chamber, ev.ProjectName, span),
			})
		}
		return msgs
	case EventReservationApproved:
		return []message{{
			toUser: ev.UserID, kind: "success",
			title:   "Reservation approved",
			body:    fmt.Sprintf("Your reservation of %s has been approved.%s", chamber, reason),
			related: ev.ReservationID, relType: "reservation",
		}}
	case EventReservationRejected:
		return []message{{
			toUser: ev.UserID, kind: "danger",
			title:   "Reservation rejected",
			body:    fmt.Sprintf("Your reservation of %s was not approved.%s", chamber, reason),
			related: ev.ReservationID, relType: "reservation",
		}}
	case EventReservationCancelled:
		return []message{{
			toUser: ev.UserID, kind: "warning",
			title:   "Reservation cancelled",
			body:    fmt.Sprintf("Your reservation of %s has been cancelled.%s", chamber, reason),
			related: ev.ReservationID, relType: "reservation",
		}}
	case EventUserRegistered:
		return []message{{
			toUser: ev.UserID, kind: "info",
			title: "Registration received",
			body:  "Your account has been created and is awaiting admin approval. You can log in once it is approved.",
		}, {
			toRole: model.RoleAdmin, kind: "info",
			title: "New account pending approval",
			body:  fmt.Sprintf("User %s registered and is awaiting approval.", ev.Username),
		}}
	case EventUserApproved:
		return []message{{
			toUser: ev.UserID, kind: "success",
			title: "Account approved",
			body:  "Your account has been approved. You can now log in and reserve chambers.",
		}}
	case EventUserRejected:
		return []message{{
			toUser: ev.UserID, kind: "danger",
			title: "Account rejected",
			body:  "Your registration was not approved." + reason,
		}}
	case EventQueueSubmitted:
		return []message{{
			toRole: model.RoleAdmin, kind: "info",
			title: "New queue request",
			body:  fmt.Sprintf("%s submitted a queue request for project %q.", ev.Username, ev.ProjectName),
		}}
	case EventQueueProcessed:
		return []message{{
			toUser: ev.UserID, kind: queueTone(ev.Status),
			title:   "Queue request " + ev.Status,
			body:    fmt.Sprintf("Your queue request for project %q is now %s.%s", ev.ProjectName, ev.Status, reason),
			related: ev.QueueRequestID, relType: "queue_request",
		}}
	case EventChamberReclaimed:
		return []message{{
			toUser: ev.UserID, kind: "warning",
			title:   "Reservation cancelled by admin",
			body:    fmt.Sprintf("%s has been reclaimed by an administrator and your reservation was cancelled.%s", chamber, reason),
			related: ev.ReservationID, relType: "reservation",
		}}
	case EventBroadcast:
		kind := ev.Status
		if kind == "" {
			kind = "info"
		}
		return []message{{toRole: ev.TargetRole, kind: kind, title: ev.Title, body: ev.Message}}
	}
	return nil
}

func queueTone(status string) string {
	switch status {
	case "approved":
		return "success"
	case "rejected":
		return "warning"
	default:
		return "info"
	}
}
