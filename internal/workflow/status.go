package workflow

import (
	"time"

	"github.com/chamberlab/chamber-reservation/internal/model"
)

// DerivedChamberStatus computes the state the portal displays for a
// chamber.  Stored maintenance wins over everything; otherwise a
// chamber is in_use while an approved reservation covers today and
// available the rest of the time.  active holds the chamber's approved
// reservations.
func DerivedChamberStatus(c model.Chamber, active []model.Reservation, now time.Time) string {
	if c.Status == model.ChamberMaintenance {
		return model.ChamberMaintenance
	}
	today := dateOnly(now)
	for _, r := range active {
		if r.Status != model.ReservationApproved {
			continue
		}
		if !today.Before(dateOnly(r.StartDate)) && !today.After(dateOnly(r.EndDate)) {
			return model.ChamberInUse
		}
	}
	return model.ChamberAvailable
}

// ExpiringSoon reports whether an approved reservation covering today
// ends within the given number of days.  The admin dashboard flags
// these so the next user in the queue can be lined up.
func ExpiringSoon(active []model.Reservation, now time.Time, days int) bool {
	today := dateOnly(now)
	cutoff := today.AddDate(0, 0, days)
	for _, r := range active {
		if r.Status != model.ReservationApproved {
			continue
		}
		end := dateOnly(r.EndDate)
		if !today.Before(dateOnly(r.StartDate)) && !today.After(end) && !end.After(cutoff) {
			return true
		}
	}
	return false
}
