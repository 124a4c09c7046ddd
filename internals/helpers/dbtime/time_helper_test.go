package dbtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDisplayLocation(t *testing.T) {
	assert.Equal(t, "UTC", LoadDisplayLocation("UTC").String())
	assert.Equal(t, DefaultDisplayTimezone, LoadDisplayLocation("").String())
	assert.Equal(t, DefaultDisplayTimezone, LoadDisplayLocation("Nowhere/Land").String())
}

func TestRenderKeepsInstant(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	utc := time.Date(2025, 1, 2, 2, 0, 0, 0, time.UTC)

	assert.Equal(t, "2025-01-02 09:00:00 WIB", Render(utc, loc))
	assert.True(t, ToDisplayTime(utc, loc).Equal(utc))
	assert.Equal(t, "-", Render(time.Time{}, loc))
	assert.Equal(t, "-", RenderPtr(nil, loc))
}

func TestManualClock(t *testing.T) {
	start := time.Date(2025, 1, 2, 9, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	c := NewManualClock(start)

	assert.Equal(t, time.UTC, c.Now().Location())
	assert.True(t, c.Now().Equal(start))

	got := c.Advance(90 * time.Second)
	assert.True(t, got.Equal(start.Add(90*time.Second)))

	c.Set(start.Add(time.Hour))
	assert.True(t, c.Now().Equal(start.Add(time.Hour)))

	var _ Clock = SystemClock{}
	assert.Equal(t, time.UTC, SystemClock{}.Now().Location())
}
