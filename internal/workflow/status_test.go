package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chamberlab/chamber-reservation/internal/model"
)

func approvedSpan(start, end string) model.Reservation {
	return model.Reservation{Status: model.ReservationApproved, StartDate: day(start), EndDate: day(end)}
}

func TestDerivedChamberStatus(t *testing.T) {
	now := day("2025-06-12").Add(15 * time.Hour) // mid-afternoon
	chamber := model.Chamber{Status: model.ChamberAvailable}

	t.Run("available with no coverage", func(t *testing.T) {
		got := DerivedChamberStatus(chamber, []model.Reservation{approvedSpan("2025-06-20", "2025-06-25")}, now)
		assert.Equal(t, model.ChamberAvailable, got)
	})

	t.Run("in use while covered", func(t *testing.T) {
		got := DerivedChamberStatus(chamber, []model.Reservation{approvedSpan("2025-06-10", "2025-06-15")}, now)
		assert.Equal(t, model.ChamberInUse, got)
	})

	t.Run("boundary days count as coverage", func(t *testing.T) {
		got := DerivedChamberStatus(chamber, []model.Reservation{approvedSpan("2025-06-12", "2025-06-12")}, now)
		assert.Equal(t, model.ChamberInUse, got)
	})

	t.Run("pending coverage does not count", func(t *testing.T) {
		r := approvedSpan("2025-06-10", "2025-06-15")
		r.Status = model.ReservationPending
		got := DerivedChamberStatus(chamber, []model.Reservation{r}, now)
		assert.Equal(t, model.ChamberAvailable, got)
	})

	t.Run("maintenance wins over coverage", func(t *testing.T) {
		m := model.Chamber{Status: model.ChamberMaintenance}
		got := DerivedChamberStatus(m, []model.Reservation{approvedSpan("2025-06-10", "2025-06-15")}, now)
		assert.Equal(t, model.ChamberMaintenance, got)
	})
}

func TestExpiringSoon(t *testing.T) {
	now := day("2025-06-12")

	assert.True(t, ExpiringSoon([]model.Reservation{approvedSpan("2025-06-10", "2025-06-14")}, now, 3))
	assert.False(t, ExpiringSoon([]model.Reservation{approvedSpan("2025-06-10", "2025-06-20")}, now, 3))
	// Not currently covering today.
	assert.False(t, ExpiringSoon([]model.Reservation{approvedSpan("2025-06-13", "2025-06-14")}, now, 3))
	assert.False(t, ExpiringSoon(nil, now, 3))
}
