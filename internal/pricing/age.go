package pricing

import "time"

// AgeFromBirthDate returns the completed years between birth and today.
// Only the calendar date of each value is used, so callers should pass both in
// the same location.
func AgeFromBirthDate(birth, today time.Time) int {
	by, bm, bd := birth.Date()
	ty, tm, td := today.Date()

	age := ty - by
	if tm < bm || (tm == bm && td < bd) {
		age--
	}
	return age
}
