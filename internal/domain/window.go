package domain

import "time"

// ObservationWindow maps an instant to the one-hour ingestion window that
// covers it. Ingestion deposits a batch every HH:15, so the window for t is
// [previous HH:15, next HH:15), computed in t's location and returned as
// unix-second bounds with start <= t.Unix() < end.
func ObservationWindow(t time.Time) (start, end int64) {
	s := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 15, 0, 0, t.Location())
	if s.After(t) {
		s = s.Add(-time.Hour)
	}
	return s.Unix(), s.Add(time.Hour).Unix()
}
