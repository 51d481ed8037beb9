package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamberlab/chamber-reservation/internal/model"
)

type fakeDirectory struct {
	users  map[uint64]model.User
	admins []uint64
}

func (d *fakeDirectory) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, ok := d.users[id]
	if !ok {
		return model.User{}, errors.New("no such user")
	}
	return u, nil
}

func (d *fakeDirectory) ListAdminIDs(ctx context.Context) ([]uint64, error) {
	return d.admins, nil
}

type fakeLog struct {
	userRows   []model.UserNotification
	systemRows []model.SystemNotification
	fail       bool
}

func (l *fakeLog) InsertUser(ctx context.Context, n *model.UserNotification) error {
	if l.fail {
		return errors.New("insert failed")
	}
	l.userRows = append(l.userRows, *n)
	return nil
}

func (l *fakeLog) InsertSystem(ctx context.Context, n *model.SystemNotification) error {
	if l.fail {
		return errors.New("insert failed")
	}
	l.systemRows = append(l.systemRows, *n)
	return nil
}

type fakeMailer struct {
	sent []string // recipient addresses
	fail bool
}

func (m *fakeMailer) Enabled() bool { return true }
func (m *fakeMailer) Send(to, subject, body string) error {
	if m.fail {
		return errors.New("smtp down")
	}
	m.sent = append(m.sent, to)
	return nil
}

type fakePublisher struct {
	published []Event
	fail      bool
}

func (p *fakePublisher) Publish(ctx context.Context, ev Event) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.published = append(p.published, ev)
	return nil
}

func addr(s string) *string { return &s }

func testDispatcher() (*EventDispatcher, *fakeDirectory, *fakeLog, *fakeMailer, *fakePublisher) {
	dir := &fakeDirectory{
		users: map[uint64]model.User{
			1: {ID: 1, Username: "alice", Email: addr("alice@example.com"), Role: model.RoleUser},
			2: {ID: 2, Username: "boss", Email: addr("boss@example.com"), Role: model.RoleAdmin},
			3: {ID: 3, Username: "nomail", Role: model.RoleUser},
		},
		admins: []uint64{2},
	}
	nlog := &fakeLog{}
	mailer := &fakeMailer{}
	pub := &fakePublisher{}
	return NewEventDispatcher(dir, nlog, mailer, pub), dir, nlog, mailer, pub
}

func TestNotifyPendingSubmissionAlertsUserAndAdmins(t *testing.T) {
	d, _, nlog, mailer, pub := testDispatcher()

	d.Notify(context.Background(), Event{
		Kind:        EventReservationSubmitted,
		UserID:      1,
		Username:    "alice",
		ChamberID:   10,
		ChamberName: "TC-01",
		ProjectName: "thermal soak",
		StartDate:   "2025-06-10",
		EndDate:     "2025-06-15",
		Status:      model.ReservationPending,
	})

	require.Len(t, nlog.userRows, 1)
	assert.Equal(t, uint64(1), nlog.userRows[0].UserID)
	assert.Equal(t, "info", nlog.userRows[0].Type)

	require.Len(t, nlog.systemRows, 1)
	assert.Equal(t, model.RoleAdmin, nlog.systemRows[0].TargetRole)

	// One mail to the submitter, one per admin.
	assert.ElementsMatch(t, []string{"alice@example.com", "boss@example.com"}, mailer.sent)

	require.Len(t, pub.published, 1)
	assert.Equal(t, EventReservationSubmitted, pub.published[0].Kind)
}

func TestNotifyApprovedSubmissionSkipsAdminAlert(t *testing.T) {
	d, _, nlog, _, _ := testDispatcher()

	d.Notify(context.Background(), Event{
		Kind:   EventReservationSubmitted,
		UserID: 1,
		Status: model.ReservationApproved,
	})

	assert.Len(t, nlog.userRows, 1)
	assert.Empty(t, nlog.systemRows, "admin submissions need no review alert")
}

func TestNotifyRecipientWithoutEmailIsSkipped(t *testing.T) {
	d, _, nlog, mailer, _ := testDispatcher()

	d.Notify(context.Background(), Event{
		Kind:   EventReservationApproved,
		UserID: 3,
	})

	assert.Len(t, nlog.userRows, 1, "in-app row still written")
	assert.Empty(t, mailer.sent)
}

func TestNotifySwallowsDeliveryFailures(t *testing.T) {
	d, _, nlog, mailer, pub := testDispatcher()
	mailer.fail = true
	pub.fail = true

	assert.NotPanics(t, func() {
		d.Notify(context.Background(), Event{Kind: EventReservationApproved, UserID: 1})
	})
	assert.Len(t, nlog.userRows, 1, "in-app leg unaffected by mail and broker failures")
}

func TestNotifyStoreFailureDoesNotBlockOtherLegs(t *testing.T) {
	d, _, nlog, mailer, pub := testDispatcher()
	nlog.fail = true

	assert.NotPanics(t, func() {
		d.Notify(context.Background(), Event{Kind: EventReservationApproved, UserID: 1})
	})
	assert.Len(t, mailer.sent, 1)
	assert.Len(t, pub.published, 1)
}

func TestNotifyQueueProcessedTone(t *testing.T) {
	d, _, nlog, _, _ := testDispatcher()

	d.Notify(context.Background(), Event{Kind: EventQueueProcessed, UserID: 1, Status: "approved"})
	d.Notify(context.Background(), Event{Kind: EventQueueProcessed, UserID: 1, Status: "rejected"})

	require.Len(t, nlog.userRows, 2)
	assert.Equal(t, "success", nlog.userRows[0].Type)
	assert.Equal(t, "warning", nlog.userRows[1].Type)
}

func TestNotifyBroadcast(t *testing.T) {
	d, _, nlog, mailer, _ := testDispatcher()

	d.Notify(context.Background(), Event{
		Kind:       EventBroadcast,
		TargetRole: model.RoleAdmin,
		Title:      "Reservation cancelled by user",
		Message:    "capacity freed",
		Status:     "warning",
	})

	require.Len(t, nlog.systemRows, 1)
	assert.Equal(t, "warning", nlog.systemRows[0].Type)
	assert.Equal(t, []string{"boss@example.com"}, mailer.sent)
}
