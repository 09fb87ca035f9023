package henkilotunnus

import "time"

// Age returns the number of completed years between birthDate and the
// reference time, both normalized to UTC. The birthday itself counts: a
// person born 2000-01-15 is 18 on 2018-01-15. February 29 birthdays
// complete their year on March 1 in non-leap years, matching IsAdult.
func Age(birthDate, now time.Time) int {
	b, n := birthDate.UTC(), now.UTC()
	years := n.Year() - b.Year()
	if n.Month() < b.Month() || (n.Month() == b.Month() && n.Day() < b.Day()) {
		years--
	}
	return years
}

// IsAdult returns true if the person with the given birth date is 18 years
// old or older at the specified reference time. Uses calendar arithmetic
// (AddDate) for accurate birthday-boundary handling.
//
// Example:
//
//	birthDate := time.Date(2000, 1, 15, 0, 0, 0, 0, time.UTC)
//	now := time.Date(2018, 1, 15, 0, 0, 0, 0, time.UTC) // Exactly 18th birthday
//	IsAdult(birthDate, now) // returns true
func IsAdult(birthDate, now time.Time) bool {
	adultAt := birthDate.UTC().AddDate(18, 0, 0)
	return !now.UTC().Before(adultAt)
}
