package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	dr, err := New(start, start.Add(36*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, dr.Days())

	_, err = New(start, start)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, start)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestOverlaps(t *testing.T) {
	day := 24 * time.Hour
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	a := DateRange{StartDate: base, EndDate: base.Add(3 * day)}

	assert.True(t, a.Overlaps(DateRange{StartDate: base.Add(2 * day), EndDate: base.Add(4 * day)}))
	assert.False(t, a.Overlaps(DateRange{StartDate: base.Add(3 * day), EndDate: base.Add(4 * day)}))
}
