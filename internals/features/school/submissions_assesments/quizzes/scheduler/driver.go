package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"academy_backend/internals/configs"
	authsched "academy_backend/internals/features/users/auth/scheduler"
	"academy_backend/internals/helpers/dbtime"
	"academy_backend/internals/helpers/logger"
)

var (
	ErrTickInProgress = errors.New("a tick is already running")
	ErrStopped        = errors.New("scheduler stopped")
)

const (
	PassStart          = "start"
	PassEnd            = "end"
	PassGrace          = "grace"
	PassAttendance     = "attendance"
	PassPublish        = "publish"
	PassSessionCleanup = "session-cleanup"
)

// Pass is one step of a tick. Run reports how many rows it changed.
type Pass struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (int, error)
}

// NewPipeline orders the passes of a tick: start, end, grace, attendance, publish,
// then session cleanup when a reaper is given.
func NewPipeline(lc *Lifecycle, reaper *authsched.SessionReaper) []Pass {
	passes := []Pass{
		{Name: PassStart, Run: lc.StartDueQuizzes},
		{Name: PassEnd, Run: lc.EndDueQuizzes},
		{Name: PassGrace, Run: lc.EnforceGracePeriods},
		{Name: PassAttendance, Run: lc.AuditAttendance},
		{Name: PassPublish, Run: lc.PublishResults},
	}
	if reaper != nil {
		passes = append(passes, Pass{Name: PassSessionCleanup, Run: reaper.Run})
	}
	return passes
}

// Driver fires the pipeline every Interval. At most one tick runs at a time per process;
// with a RunLock, at most one across processes.
type Driver struct {
	interval    time.Duration
	tickTimeout time.Duration
	passes      []Pass

	clock dbtime.Clock
	lock  RunLock
	log   *logger.Logger
	loc   *time.Location

	tickMu  sync.Mutex // held for the whole tick
	running atomic.Bool

	mu         sync.Mutex
	cron       *cron.Cron
	entry      cron.EntryID
	stopped    bool
	ticks      uint64
	lastTickAt time.Time
	lastReport *TickReport
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock replaces the system clock, for tests.
func WithClock(c dbtime.Clock) Option { return func(d *Driver) { d.clock = c } }

// WithRunLock makes every tick acquire l first and skip when it cannot.
func WithRunLock(l RunLock) Option { return func(d *Driver) { d.lock = l } }

// WithLogger sets the logger used for tick and pass lines.
func WithLogger(l *logger.Logger) Option { return func(d *Driver) { d.log = l } }

// NewDriver builds a stopped driver; call Start to arm the timer.
func NewDriver(cfg configs.SchedulerConfig, passes []Pass, opts ...Option) *Driver {
	d := &Driver{
		interval:    cfg.Interval,
		tickTimeout: cfg.TickTimeout,
		passes:      passes,
		clock:       dbtime.SystemClock{},
		loc:         dbtime.LoadDisplayLocation(cfg.DisplayTimezone),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.New("QUIZ-SCHED")
	}
	return d
}

// Start schedules the timer. Calling it on a running driver is a no-op.
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cron != nil {
		return nil
	}
	if d.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", d.interval)
	}

	cronLog := cron.PrintfLogger(log.New(os.Stdout, "[QUIZ-SCHED] cron: ", log.LstdFlags))
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	id, err := c.AddFunc("@every "+d.interval.String(), func() {
		if _, err := d.RunTick(context.Background(), TriggerTimer); err != nil && !errors.Is(err, ErrTickInProgress) {
			d.log.Warnf("timer tick not run: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule tick: %w", err)
	}

	d.cron, d.entry, d.stopped = c, id, false
	c.Start()
	d.log.Infof("started interval=%s tick_timeout=%s pipeline=%v", d.interval, d.tickTimeout, d.Pipeline())
	return nil
}

// Stop cancels the timer. In-flight ticks are not interrupted; the returned context
// is done once they have finished.
func (d *Driver) Stop() context.Context {
	d.mu.Lock()
	c := d.cron
	d.cron = nil
	d.stopped = true
	d.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		if c != nil {
			<-c.Stop().Done()
		}
		// wait for the in-flight tick
		d.tickMu.Lock()
		d.tickMu.Unlock()
	}()
	if c != nil {
		d.log.Infof("stopping")
	}
	return ctx
}

// ManualTrigger runs one tick now. It fails with ErrTickInProgress instead of queueing.
func (d *Driver) ManualTrigger(ctx context.Context) (TickReport, error) {
	d.mu.Lock()
	stopped := d.stopped
	d.mu.Unlock()
	if stopped {
		return TickReport{Trigger: TriggerManual, Skipped: true, SkipReason: ErrStopped.Error()}, ErrStopped
	}
	return d.RunTick(ctx, TriggerManual)
}

// RunTick captures now once and runs every pass against it, in pipeline order.
// A failing or panicking pass is recorded and the next pass still runs.
func (d *Driver) RunTick(ctx context.Context, trigger string) (TickReport, error) {
	if !d.tickMu.TryLock() {
		d.log.Warnf("%s tick skipped: previous tick still running", trigger)
		return TickReport{Trigger: trigger, Skipped: true, SkipReason: ErrTickInProgress.Error()}, ErrTickInProgress
	}
	defer d.tickMu.Unlock()
	d.running.Store(true)
	defer d.running.Store(false)

	if d.tickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.tickTimeout)
		defer cancel()
	}

	if d.lock != nil {
		release, err := d.lock.Acquire(ctx)
		if err != nil {
			if errors.Is(err, ErrLockNotAcquired) {
				d.log.Infof("%s tick skipped: another instance holds the lock", trigger)
			} else {
				d.log.Errorf(err, "%s tick skipped: lock unavailable", trigger)
			}
			return TickReport{Trigger: trigger, Skipped: true, SkipReason: err.Error()}, err
		}
		defer release()
	}

	now := d.clock.Now().UTC()
	report := TickReport{Trigger: trigger, Now: now, StartedAt: time.Now().UTC()}

	for i, p := range d.passes {
		if err := ctx.Err(); err != nil {
			for _, rest := range d.passes[i:] {
				report.Passes = append(report.Passes, PassReport{Name: rest.Name, Aborted: true, Error: err.Error()})
			}
			d.log.Errorf(err, "tick at %s aborted before %q", dbtime.Render(now, d.loc), p.Name)
			break
		}
		report.Passes = append(report.Passes, d.runPass(ctx, p, now))
	}
	report.FinishedAt = time.Now().UTC()

	d.mu.Lock()
	d.ticks++
	d.lastTickAt = now
	d.lastReport = &report
	d.mu.Unlock()

	d.log.Infof("%s tick at %s done in %s: %s",
		trigger, dbtime.Render(now, d.loc), report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond), report.Summary())
	return report, nil
}

func (d *Driver) runPass(ctx context.Context, p Pass, now time.Time) (pr PassReport) {
	started := time.Now()
	pr.Name = p.Name
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("pass %s panicked: %v", p.Name, r)
			pr.Error = err.Error()
			d.log.Errorf(err, "tick continues after %s", p.Name)
		}
		pr.Duration = time.Since(started)
	}()

	n, err := p.Run(ctx, now)
	pr.Affected = n
	if err != nil {
		pr.Error = err.Error()
		d.log.Errorf(err, "pass %s finished with errors (%d rows changed)", p.Name, n)
	}
	return pr
}

// Pipeline returns the pass names in run order.
func (d *Driver) Pipeline() []string {
	names := make([]string, 0, len(d.passes))
	for _, p := range d.passes {
		names = append(names, p.Name)
	}
	return names
}

// Running reports whether a tick is executing right now.
func (d *Driver) Running() bool { return d.running.Load() }

// Status is a snapshot for the admin endpoint.
func (d *Driver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := Status{
		Active:    d.cron != nil,
		Running:   d.running.Load(),
		Interval:  d.interval.String(),
		Pipeline:  d.Pipeline(),
		TickCount: d.ticks,
	}
	if !d.lastTickAt.IsZero() {
		t := d.lastTickAt
		st.LastTickAt = &t
		st.LastTickAtLocal = dbtime.Render(t, d.loc)
	}
	if d.cron != nil {
		if next := d.cron.Entry(d.entry).Next; !next.IsZero() {
			st.NextTickAt = &next
		}
	}
	if d.lastReport != nil {
		r := *d.lastReport
		st.LastReport = &r
	}
	return st
}
