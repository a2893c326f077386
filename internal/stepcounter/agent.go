// ABOUTME: StepCounterAgent turning a monotonic since-boot sensor count into today's steps.
// ABOUTME: Persists a per-day baseline, throttles uploads, and flushes on start and stop.
package stepcounter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/chronicare/internal/logging"
	"github.com/harperreed/chronicare/internal/models"
)

const (
	// DefaultThreshold is the step delta that triggers an upload.
	DefaultThreshold = 50

	defaultUploadTimeout = 10 * time.Second
)

// BaselineStore persists the start-of-day baseline and the last step checkpoint.
type BaselineStore interface {
	Load(today models.DayKey) (models.StepBaseline, bool, error)
	Save(b models.StepBaseline) error
	LoadCheckpoint(today models.DayKey) (models.StepSample, bool, error)
	SaveCheckpoint(sample models.StepSample) error
}

// Uploader writes a day's step total to the steps store, overwriting any
// previous value for that date.
type Uploader interface {
	UploadSteps(ctx context.Context, userID string, sample models.StepSample) error
}

// State is the agent's position in its lifecycle.
type State int

const (
	Uninitialized State = iota
	Baselined
	Running
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Baselined:
		return "baselined"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config tunes an Agent. Zero values get defaults.
type Config struct {
	UserID        string
	Threshold     int64
	UploadTimeout time.Duration
	Clock         func() time.Time
	Logger        *log.Logger
}

// Result describes the outcome of one sensor reading.
type Result struct {
	Date         models.DayKey
	StepsToday   int64
	UploadQueued bool
	Rebaselined  bool
}

// Agent consumes sensor readings one at a time. Uploads run on a separate
// goroutine so reading handling never waits on the steps store.
type Agent struct {
	store         BaselineStore
	uploader      Uploader
	userID        string
	threshold     int64
	uploadTimeout time.Duration
	clock         func() time.Time
	logger        *log.Logger

	mu           sync.Mutex
	started      bool
	state        State
	baseline     models.StepBaseline
	stepsToday   int64
	lastUploaded int64

	pendingMu sync.Mutex
	pending   map[models.DayKey]models.StepSample
	wake      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
}

// New creates an Agent. It does nothing until Start is called.
func New(store BaselineStore, uploader Uploader, cfg Config) *Agent {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = defaultUploadTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Agent{
		store:         store,
		uploader:      uploader,
		userID:        cfg.UserID,
		threshold:     cfg.Threshold,
		uploadTimeout: cfg.UploadTimeout,
		clock:         cfg.Clock,
		logger:        logging.OrDefault(cfg.Logger).With("component", "stepcounter"),
		pending:       make(map[models.DayKey]models.StepSample),
	}
}

// Start loads today's baseline, launches the uploader, and re-sends the
// last checkpointed total for today, if any.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return errors.New("step agent already started")
	}

	today := models.DayOf(a.clock())
	a.state = Uninitialized
	a.stepsToday = 0
	a.lastUploaded = 0

	if b, ok, err := a.store.Load(today); err != nil {
		a.logger.Warn("baseline load failed, will re-baseline", "err", err)
	} else if ok {
		a.baseline = b
		a.state = Baselined
	}

	a.wake = make(chan struct{}, 1)
	a.done = make(chan struct{})
	a.wg.Add(1)
	go a.uploadLoop(context.WithoutCancel(ctx))
	a.started = true

	if cp, ok, err := a.store.LoadCheckpoint(today); err != nil {
		a.logger.Warn("checkpoint load failed", "err", err)
	} else if ok && a.state == Baselined {
		a.stepsToday = cp.StepsToday
		a.lastUploaded = cp.StepsToday
		a.enqueue(cp)
	}

	a.logger.Debug("step agent started", "state", a.state, "date", today)
	return nil
}

// HandleReading processes one since-boot sensor total. Calls are
// serialized; readings for a session must arrive in order.
func (a *Agent) HandleReading(totalSinceBoot int64) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	today := models.DayOf(a.clock())
	res := Result{Date: today}

	if a.state != Uninitialized && a.baseline.Date != today {
		if a.stepsToday > a.lastUploaded {
			a.enqueue(models.StepSample{Date: a.baseline.Date, StepsToday: a.stepsToday})
		}
		a.logger.Info("day rolled over, resetting baseline", "from", a.baseline.Date, "to", today)
		a.state = Uninitialized
		a.stepsToday = 0
		a.lastUploaded = 0
	}

	if a.state == Uninitialized {
		a.establishBaseline(today, totalSinceBoot)
		res.Rebaselined = true
	}

	steps := totalSinceBoot - a.baseline.SensorValueAtStartOfDay
	if steps < 0 {
		steps = 0
	}
	a.stepsToday = steps
	a.state = Running
	res.StepsToday = steps

	if steps-a.lastUploaded >= a.threshold {
		a.enqueue(models.StepSample{Date: today, StepsToday: steps})
		a.lastUploaded = steps
		res.UploadQueued = true
	}
	return res
}

// establishBaseline prefers a baseline another instance already persisted
// for today; otherwise the current reading becomes zero steps.
func (a *Agent) establishBaseline(today models.DayKey, reading int64) {
	if b, ok, err := a.store.Load(today); err != nil {
		a.logger.Warn("baseline load failed", "err", err)
	} else if ok {
		a.baseline = b
		a.state = Baselined
		return
	}

	a.baseline = models.StepBaseline{Date: today, SensorValueAtStartOfDay: reading}
	if err := a.store.Save(a.baseline); err != nil {
		a.logger.Error("baseline save failed", "err", err)
	}
	a.state = Baselined
	a.logger.Debug("new baseline", "date", today, "sensor", reading)
}

// Stop queues a final upload of the current total, then waits for every
// pending upload to finish or for ctx to expire.
func (a *Agent) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return nil
	}
	if a.state != Uninitialized {
		a.enqueue(models.StepSample{Date: a.baseline.Date, StepsToday: a.stepsToday})
		a.lastUploaded = a.stepsToday
	}
	a.started = false
	close(a.done)
	a.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for step uploads: %w", ctx.Err())
	}
}

// Run starts the agent, feeds it readings until the channel closes or ctx
// is done, then stops it.
func (a *Agent) Run(ctx context.Context, readings <-chan int64) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), a.uploadTimeout)
		defer cancel()
		if err := a.Stop(stopCtx); err != nil {
			a.logger.Error("step agent stop", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case r, ok := <-readings:
			if !ok {
				return nil
			}
			a.HandleReading(r)
		}
	}
}

// State returns the current lifecycle state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// StepsToday returns the most recently computed total.
func (a *Agent) StepsToday() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stepsToday
}

// enqueue records sample as the latest value for its date and wakes the
// uploader. Callers hold a.mu.
func (a *Agent) enqueue(sample models.StepSample) {
	if err := a.store.SaveCheckpoint(sample); err != nil {
		a.logger.Warn("checkpoint save failed", "err", err)
	}

	a.pendingMu.Lock()
	a.pending[sample.Date] = sample
	a.pendingMu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *Agent) uploadLoop(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-a.wake:
			a.flush(ctx)
		case <-a.done:
			a.flush(ctx)
			return
		}
	}
}

func (a *Agent) flush(ctx context.Context) {
	a.pendingMu.Lock()
	batch := make([]models.StepSample, 0, len(a.pending))
	for _, s := range a.pending {
		batch = append(batch, s)
	}
	a.pending = make(map[models.DayKey]models.StepSample)
	a.pendingMu.Unlock()

	sort.Slice(batch, func(i, j int) bool {
		return batch[i].Date.Before(batch[j].Date)
	})

	for _, s := range batch {
		uctx, cancel := context.WithTimeout(ctx, a.uploadTimeout)
		err := a.uploader.UploadSteps(uctx, a.userID, s)
		cancel()
		if err != nil {
			a.logger.Error("step upload failed", "date", s.Date, "steps", s.StepsToday,
				"err", fmt.Errorf("%w: %v", models.ErrUploadFailure, err))
			continue
		}
		a.logger.Debug("uploaded steps", "date", s.Date, "steps", s.StepsToday)
	}
}
