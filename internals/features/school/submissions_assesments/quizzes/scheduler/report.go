package scheduler

import (
	"fmt"
	"strings"
	"time"
)

const (
	TriggerTimer  = "timer"
	TriggerManual = "manual"
)

type PassReport struct {
	Name     string        `json:"name"`
	Affected int           `json:"affected"`
	Error    string        `json:"error,omitempty"`
	Aborted  bool          `json:"aborted,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

func (p PassReport) Failed() bool { return p.Error != "" }

// TickReport describes one tick. Now is the instant every pass of the tick compared against.
type TickReport struct {
	Trigger    string       `json:"trigger"`
	Now        time.Time    `json:"now"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Skipped    bool         `json:"skipped,omitempty"`
	SkipReason string       `json:"skip_reason,omitempty"`
	Passes     []PassReport `json:"passes,omitempty"`
}

func (r TickReport) Pass(name string) (PassReport, bool) {
	for _, p := range r.Passes {
		if p.Name == name {
			return p, true
		}
	}
	return PassReport{}, false
}

func (r TickReport) FailedPasses() []string {
	var out []string
	for _, p := range r.Passes {
		if p.Failed() {
			out = append(out, p.Name)
		}
	}
	return out
}

// Summary renders "start=1 end=0 ..." for the tick log line.
func (r TickReport) Summary() string {
	if r.Skipped {
		return "skipped: " + r.SkipReason
	}
	parts := make([]string, 0, len(r.Passes)+1)
	for _, p := range r.Passes {
		switch {
		case p.Aborted:
			parts = append(parts, p.Name+"=aborted")
		case p.Failed():
			parts = append(parts, fmt.Sprintf("%s=%d!", p.Name, p.Affected))
		default:
			parts = append(parts, fmt.Sprintf("%s=%d", p.Name, p.Affected))
		}
	}
	if failed := r.FailedPasses(); len(failed) > 0 {
		parts = append(parts, "failed="+strings.Join(failed, ","))
	}
	return strings.Join(parts, " ")
}

// Status is the operator view of the driver.
type Status struct {
	Active          bool        `json:"active"`
	Running         bool        `json:"running"`
	Interval        string      `json:"interval"`
	Pipeline        []string    `json:"pipeline"`
	TickCount       uint64      `json:"tick_count"`
	LastTickAt      *time.Time  `json:"last_tick_at,omitempty"`
	LastTickAtLocal string      `json:"last_tick_at_local,omitempty"`
	NextTickAt      *time.Time  `json:"next_tick_at,omitempty"`
	LastReport      *TickReport `json:"last_report,omitempty"`
}
