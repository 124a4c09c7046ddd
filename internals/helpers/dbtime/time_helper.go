// file: internals/helpers/dbtime/time_helper.go
package dbtime

import (
	"strings"
	"time"
	_ "time/tzdata"
)

const DefaultDisplayTimezone = "Asia/Jakarta"

// LoadDisplayLocation resolves the timezone used to render timestamps for operators:
// 1) the configured name
// 2) fallback Asia/Jakarta
// 3) last resort UTC
// It never affects comparisons; those always run on UTC values.
func LoadDisplayLocation(name string) *time.Location {
	if s := strings.TrimSpace(name); s != "" {
		if loc, err := time.LoadLocation(s); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(DefaultDisplayTimezone); err == nil {
		return loc
	}
	return time.UTC
}

// ToDisplayTime converts a UTC timestamp into the display location.
// A zero time is returned unchanged.
func ToDisplayTime(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() || loc == nil {
		return t
	}
	return t.In(loc)
}

// Render formats t for log lines, e.g. "2025-01-02 09:00:00 WIB".
func Render(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	return ToDisplayTime(t, loc).Format("2006-01-02 15:04:05 MST")
}

// RenderPtr is Render for optional timestamps.
func RenderPtr(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return Render(*t, loc)
}
