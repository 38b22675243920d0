package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObservationWindow(t *testing.T) {
	t.Run("instant after quarter past", func(t *testing.T) {
		at := time.Date(2024, 1, 15, 10, 45, 0, 0, time.UTC)
		start, end := ObservationWindow(at)

		assert.Equal(t, time.Date(2024, 1, 15, 10, 15, 0, 0, time.UTC).Unix(), start)
		assert.Equal(t, time.Date(2024, 1, 15, 11, 15, 0, 0, time.UTC).Unix(), end)
	})

	t.Run("instant before quarter past", func(t *testing.T) {
		at := time.Date(2024, 1, 15, 10, 5, 0, 0, time.UTC)
		start, end := ObservationWindow(at)

		assert.Equal(t, time.Date(2024, 1, 15, 9, 15, 0, 0, time.UTC).Unix(), start)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 15, 0, 0, time.UTC).Unix(), end)
	})

	t.Run("instant exactly at quarter past", func(t *testing.T) {
		at := time.Date(2024, 1, 15, 10, 15, 0, 0, time.UTC)
		start, end := ObservationWindow(at)

		assert.Equal(t, at.Unix(), start)
		assert.Equal(t, at.Add(time.Hour).Unix(), end)
	})

	t.Run("midnight rolls back to previous day", func(t *testing.T) {
		at := time.Date(2024, 1, 15, 0, 3, 0, 0, time.UTC)
		start, _ := ObservationWindow(at)

		assert.Equal(t, time.Date(2024, 1, 14, 23, 15, 0, 0, time.UTC).Unix(), start)
	})

	t.Run("window laws hold across instants", func(t *testing.T) {
		zone := time.FixedZone("EET", 2*60*60)
		base := time.Date(2024, 6, 1, 0, 0, 0, 0, zone)

		for minutes := 0; minutes < 24*60; minutes += 7 {
			at := base.Add(time.Duration(minutes) * time.Minute)

			start, end := ObservationWindow(at)
			start2, end2 := ObservationWindow(at)

			assert.Equal(t, start, start2, "idempotent")
			assert.Equal(t, end, end2, "idempotent")
			assert.LessOrEqual(t, start, at.Unix())
			assert.Greater(t, end, at.Unix())
			assert.Equal(t, int64(3600), end-start)
			assert.Equal(t, int64(15*60), (start+2*60*60)%3600, "starts at minute 15 local")
		}
	})
}
