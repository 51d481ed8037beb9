package workflow

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamberlab/chamber-reservation/internal/model"
	"github.com/chamberlab/chamber-reservation/internal/notifier"
)

// fakeStore is an in-memory Store with snapshot-based rollback so
// transactional behavior can be asserted without a database.
type fakeStore struct {
	users        map[uint64]model.User
	chambers     map[uint64]model.Chamber
	reservations map[uint64]model.Reservation
	nextID       uint64

	// failUpdateAfter makes the n-th status update inside a
	// transaction fail, to exercise rollback.
	failUpdateAfter int
	updates         int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:           map[uint64]model.User{},
		chambers:        map[uint64]model.Chamber{},
		reservations:    map[uint64]model.Reservation{},
		nextID:          1,
		failUpdateAfter: -1,
	}
}

func (s *fakeStore) snapshot() (map[uint64]model.User, map[uint64]model.Reservation) {
	us := make(map[uint64]model.User, len(s.users))
	for k, v := range s.users {
		us[k] = v
	}
	rs := make(map[uint64]model.Reservation, len(s.reservations))
	for k, v := range s.reservations {
		rs[k] = v
	}
	return us, rs
}

func (s *fakeStore) InTx(ctx context.Context, fn func(Tx) error) error {
	us, rs := s.snapshot()
	if err := fn(&fakeTx{s: s}); err != nil {
		s.users, s.reservations = us, rs
		return err
	}
	return nil
}

func (s *fakeStore) ReservationByID(ctx context.Context, id uint64) (model.Reservation, error) {
	r, ok := s.reservations[id]
	if !ok {
		return model.Reservation{}, sql.ErrNoRows
	}
	return r, nil
}

func (s *fakeStore) UserByID(ctx context.Context, id uint64) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *fakeStore) ChamberByID(ctx context.Context, id uint64) (model.Chamber, error) {
	c, ok := s.chambers[id]
	if !ok {
		return model.Chamber{}, sql.ErrNoRows
	}
	return c, nil
}

func (s *fakeStore) overlapping(chamberID uint64, start, end time.Time) []model.Reservation {
	var out []model.Reservation
	for _, r := range s.reservations {
		if r.ChamberID != chamberID || r.Status == model.ReservationCancelled {
			continue
		}
		if !r.StartDate.After(end) && !r.EndDate.Before(start) {
			out = append(out, r)
		}
	}
	return out
}

func (s *fakeStore) OverlappingReservations(ctx context.Context, chamberID uint64, start, end time.Time) ([]model.Reservation, error) {
	return s.overlapping(chamberID, start, end), nil
}

func (s *fakeStore) ApprovedInMonth(ctx context.Context, chamberID uint64, month string) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range s.reservations {
		if r.ChamberID == chamberID && r.Status == model.ReservationApproved && r.StartDate.Format("2006-01") == month {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeTx struct{ s *fakeStore }

func (t *fakeTx) Overlapping(ctx context.Context, chamberID uint64, start, end time.Time) ([]model.Reservation, error) {
	return t.s.overlapping(chamberID, start, end), nil
}

func (t *fakeTx) CreateReservation(ctx context.Context, res *model.Reservation) error {
	res.ID = t.s.nextID
	t.s.nextID++
	res.CreatedAt = time.Now()
	res.UpdatedAt = res.CreatedAt
	t.s.reservations[res.ID] = *res
	return nil
}

func (t *fakeTx) UpdateReservationStatus(ctx context.Context, id uint64, status string) error {
	t.s.updates++
	if t.s.failUpdateAfter >= 0 && t.s.updates > t.s.failUpdateAfter {
		return errors.New("disk full")
	}
	r, ok := t.s.reservations[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.Status = status
	t.s.reservations[id] = r
	return nil
}

func (t *fakeTx) ActiveReservationsByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range t.s.reservations {
		if r.UserID == userID && (r.Status == model.ReservationPending || r.Status == model.ReservationApproved) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *fakeTx) UserByID(ctx context.Context, id uint64) (model.User, error) {
	return t.s.UserByID(ctx, id)
}

func (t *fakeTx) DeleteUser(ctx context.Context, id uint64) error {
	if _, ok := t.s.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(t.s.users, id)
	return nil
}

// recordingDispatcher collects events in order.
type recordingDispatcher struct{ events []notifier.Event }

func (d *recordingDispatcher) Notify(ctx context.Context, ev notifier.Event) {
	d.events = append(d.events, ev)
}

func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		panic(err)
	}
	return t
}

func testEngine(t *testing.T) (*Engine, *fakeStore, *recordingDispatcher) {
	t.Helper()
	store := newFakeStore()
	store.users[1] = model.User{ID: 1, Username: "alice", Role: model.RoleUser, Status: model.UserStatusActive}
	store.users[2] = model.User{ID: 2, Username: "boss", Role: model.RoleAdmin, Status: model.UserStatusActive}
	store.chambers[10] = model.Chamber{ID: 10, Name: "TC-01", Status: model.ChamberAvailable}
	disp := &recordingDispatcher{}
	e := NewEngine(store, disp)
	e.now = func() time.Time { return day("2025-06-01") }
	return e, store, disp
}

func validSubmit() SubmitRequest {
	return SubmitRequest{
		ChamberID:     10,
		ProjectName:   "thermal soak",
		ProjectLeader: "alice",
		Department:    "validation",
		TestItem:      "board rev B",
		SampleCount:   4,
		StartDate:     day("2025-06-10"),
		EndDate:       day("2025-06-15"),
	}
}

func TestSubmitUserStartsPending(t *testing.T) {
	e, store, disp := testEngine(t)

	res, err := e.Submit(context.Background(), Actor{UserID: 1}, validSubmit())
	require.NoError(t, err)
	assert.Equal(t, model.ReservationPending, res.Status)
	assert.NotZero(t, res.ID)
	assert.Equal(t, res, store.reservations[res.ID])

	require.Len(t, disp.events, 1)
	assert.Equal(t, notifier.EventReservationSubmitted, disp.events[0].Kind)
	assert.Equal(t, "2025-06-10", disp.events[0].StartDate)
}

func TestSubmitAdminAutoApproved(t *testing.T) {
	e, _, disp := testEngine(t)

	res, err := e.Submit(context.Background(), Actor{UserID: 2, Admin: true}, validSubmit())
	require.NoError(t, err)
	assert.Equal(t, model.ReservationApproved, res.Status)
	require.Len(t, disp.events, 1)
	assert.Equal(t, model.ReservationApproved, disp.events[0].Status)
}

func TestSubmitValidation(t *testing.T) {
	e, store, _ := testEngine(t)

	cases := []struct {
		name   string
		mutate func(*SubmitRequest)
		field  string
	}{
		{"missing project name", func(r *SubmitRequest) { r.ProjectName = "  " }, "project_name"},
		{"missing leader", func(r *SubmitRequest) { r.ProjectLeader = "" }, "project_leader"},
		{"missing chamber", func(r *SubmitRequest) { r.ChamberID = 0 }, "chamber_id"},
		{"end before start", func(r *SubmitRequest) { r.EndDate = day("2025-06-09") }, "end_date"},
		{"start in the past", func(r *SubmitRequest) { r.StartDate = day("2025-05-30"); r.EndDate = day("2025-06-02") }, "start_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validSubmit()
			tc.mutate(&req)
			_, err := e.Submit(context.Background(), Actor{UserID: 1}, req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
	assert.Empty(t, store.reservations)
}

func TestSubmitSameDayAllowed(t *testing.T) {
	e, _, _ := testEngine(t)
	req := validSubmit()
	req.StartDate = day("2025-06-01")
	req.EndDate = day("2025-06-01")

	res, err := e.Submit(context.Background(), Actor{UserID: 1}, req)
	require.NoError(t, err)
	assert.Equal(t, res.StartDate, res.EndDate)
}

func TestSubmitConflictOnSharedBoundaryDay(t *testing.T) {
	e, store, disp := testEngine(t)
	_, err := e.Submit(context.Background(), Actor{UserID: 1}, validSubmit()) // 06-10..06-15
	require.NoError(t, err)
	disp.events = nil

	req := validSubmit()
	req.StartDate = day("2025-06-15") // touches the existing end date
	req.EndDate = day("2025-06-20")

	_, err = e.Submit(context.Background(), Actor{UserID: 1}, req)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	require.Len(t, ce.Conflicts, 1)
	assert.Len(t, store.reservations, 1)
	assert.Empty(t, disp.events, "no event for a refused submission")
}

func TestSubmitIgnoresCancelledOverlap(t *testing.T) {
	e, store, _ := testEngine(t)
	first, err := e.Submit(context.Background(), Actor{UserID: 1}, validSubmit())
	require.NoError(t, err)
	_, err = e.TransitionStatus(context.Background(), first.ID, model.ReservationCancelled, Actor{UserID: 1}, "")
	require.NoError(t, err)

	_, err = e.Submit(context.Background(), Actor{UserID: 1}, validSubmit())
	require.NoError(t, err)
	assert.Len(t, store.reservations, 2)
}

func TestTransitionApproveAndReject(t *testing.T) {
	e, _, disp := testEngine(t)
	res, err := e.Submit(context.Background(), Actor{UserID: 1}, validSubmit())
	require.NoError(t, err)
	disp.events = nil

	approved, err := e.TransitionStatus(context.Background(), res.ID, model.ReservationApproved, Actor{UserID: 2, Admin: true}, "")
	require.NoError(t, err)
	assert.Equal(t, model.ReservationApproved, approved.Status)
	require.Len(t, disp.events, 1)
	assert.Equal(t, notifier.EventReservationApproved, disp.events[0].Kind)

	// Approving an approved reservation is an idempotent re-affirmation.
	_, err = e.TransitionStatus(context.Background(), res.ID, model.ReservationApproved, Actor{UserID: 2, Admin: true}, "")
	require.NoError(t, err)
}

func TestTransitionRejectCarriesReason(t *testing.T) {
	e, _, disp := testEngine(t)
	res, err := e.Submit(context.Background(), Actor{UserID: 1}, validSubmit())
	require.NoError(t, err)
	disp.events = nil

	_, err = e.TransitionStatus(context.Background(), res.ID, model.ReservationRejected, Actor{UserID: 2, Admin: true}, "chamber booked for calibration")
	require.NoError(t, err)
	require.Len(t, disp.events, 1)
	assert.Equal(t, notifier.EventReservationRejected, disp.events[0].Kind)
	assert.Equal(t, "chamber booked for calibration", disp.events[0].Reason)
}

func TestTransitionAuthorization(t *testing.T) {
	e, store, _ := testEngine(t)
	store.users[3] = model.User{ID: 3, Username: "mallory", Role: model.RoleUser, Status: model.UserStatusActive}
	res, err := e.Submit(context.Background(), Actor{UserID: 1}, validSubmit())
	require.NoError(t, err)

	var ae *AuthorizationError
	_, err = e.TransitionStatus(context.Background(), res.ID, model.ReservationApproved, Actor{UserID: 1}, "")
	require.ErrorAs(t, err, &ae)

	_, err = e.TransitionStatus(context.Background(), res.ID, model.ReservationCancelled, Actor{UserID: 3}, "")
	require.ErrorAs(t, err, &ae)

	// The owner may cancel without being an admin.
	_, err = e.TransitionStatus(context.Background(), res.ID, model.ReservationCancelled, Actor{UserID: 1}, "")
	require.NoError(t, err)
}

func TestTransitionTerminalStatesAreFinal(t *testing.T) {
	e, _, _ := testEngine(t)
	res, err := e.Submit(context.Background(), Actor{UserID: 1}, validSubmit())
	require.NoError(t, err)
	_, err = e.TransitionStatus(context.Background(), res.ID, model.ReservationRejected, Actor{UserID: 2, Admin: true}, "")
	require.NoError(t, err)

	var ve *ValidationError
	_, err = e.TransitionStatus(context.Background(), res.ID, model.ReservationApproved, Actor{UserID: 2, Admin: true}, "")
	require.ErrorAs(t, err, &ve)

	_, err = e.TransitionStatus(context.Background(), res.ID, model.ReservationCancelled, Actor{UserID: 2, Admin: true}, "")
	require.ErrorAs(t, err, &ve)
}

func TestTransitionUnknownTargetStatus(t *testing.T) {
	e, _, _ := testEngine(t)
	var ve *ValidationError
	_, err := e.TransitionStatus(context.Background(), 1, "pending", Actor{UserID: 2, Admin: true}, "")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "status", ve.Field)
}

func TestTransitionNotFound(t *testing.T) {
	e, _, _ := testEngine(t)
	var ne *NotFoundError
	_, err := e.TransitionStatus(context.Background(), 999, model.ReservationApproved, Actor{UserID: 2, Admin: true}, "")
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "reservation", ne.Entity)
}

func TestIsAvailableMatchesSubmitPredicate(t *testing.T) {
	e, _, _ := testEngine(t)
	_, err := e.Submit(context.Background(), Actor{UserID: 1}, validSubmit()) // 06-10..06-15
	require.NoError(t, err)

	free, conflicts, err := e.IsAvailable(context.Background(), 10, day("2025-06-15"), day("2025-06-20"))
	require.NoError(t, err)
	assert.False(t, free)
	assert.Len(t, conflicts, 1)

	free, conflicts, err = e.IsAvailable(context.Background(), 10, day("2025-06-16"), day("2025-06-20"))
	require.NoError(t, err)
	assert.True(t, free)
	assert.Empty(t, conflicts)
}

func TestScheduleForValidatesMonth(t *testing.T) {
	e, _, _ := testEngine(t)
	var ve *ValidationError
	_, err := e.ScheduleFor(context.Background(), 10, "junk")
	require.ErrorAs(t, err, &ve)

	_, err = e.ScheduleFor(context.Background(), 10, "2025-06")
	require.NoError(t, err)
}

func TestCascadeOnUserDeletion(t *testing.T) {
	e, store, disp := testEngine(t)

	first, err := e.Submit(context.Background(), Actor{UserID: 1}, validSubmit())
	require.NoError(t, err)
	second := validSubmit()
	second.StartDate = day("2025-07-01")
	second.EndDate = day("2025-07-05")
	_, err = e.Submit(context.Background(), Actor{UserID: 1}, second)
	require.NoError(t, err)
	_, err = e.TransitionStatus(context.Background(), first.ID, model.ReservationApproved, Actor{UserID: 2, Admin: true}, "")
	require.NoError(t, err)
	disp.events = nil

	n, err := e.CascadeOnUserDeletion(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, ok := store.users[1]
	assert.False(t, ok, "user row removed")
	for _, r := range store.reservations {
		assert.Equal(t, model.ReservationCancelled, r.Status)
	}
	assert.Len(t, disp.events, 2)
	for _, ev := range disp.events {
		assert.Equal(t, notifier.EventReservationCancelled, ev.Kind)
	}
}

func TestCascadeRefusesAdmins(t *testing.T) {
	e, store, _ := testEngine(t)
	var ae *AuthorizationError
	_, err := e.CascadeOnUserDeletion(context.Background(), 2)
	require.ErrorAs(t, err, &ae)
	_, ok := store.users[2]
	assert.True(t, ok)
}

func TestCascadeRollsBackAsOneUnit(t *testing.T) {
	e, store, disp := testEngine(t)
	_, err := e.Submit(context.Background(), Actor{UserID: 1}, validSubmit())
	require.NoError(t, err)
	second := validSubmit()
	second.StartDate = day("2025-07-01")
	second.EndDate = day("2025-07-05")
	_, err = e.Submit(context.Background(), Actor{UserID: 1}, second)
	require.NoError(t, err)
	disp.events = nil

	// First status update inside the cascade succeeds, second fails.
	store.failUpdateAfter = store.updates + 1

	_, err = e.CascadeOnUserDeletion(context.Background(), 1)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)

	_, ok := store.users[1]
	assert.True(t, ok, "user survives the rolled-back unit")
	for _, r := range store.reservations {
		assert.Equal(t, model.ReservationPending, r.Status, "no partial cancellation")
	}
	assert.Empty(t, disp.events, "no events for a rolled-back unit")
}
