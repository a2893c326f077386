// ABOUTME: In-process trigger facility backed by time.AfterFunc.
// ABOUTME: Keeps a registry keyed by trigger id; the latest Schedule for an id wins.
package reminder

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/harperreed/chronicare/internal/logging"
)

// Notifier delivers a fired reminder.
type Notifier interface {
	Notify(ctx context.Context, p Payload) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, p Payload) error

func (f NotifierFunc) Notify(ctx context.Context, p Payload) error {
	return f(ctx, p)
}

type trigger struct {
	timer *time.Timer
	gen   uint64
	at    time.Time
}

// TimerFacility fires triggers on in-process timers. It is safe for
// concurrent use.
type TimerFacility struct {
	mu       sync.Mutex
	triggers map[string]trigger
	gen      uint64
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
}

// NewTimerFacility creates a facility delivering to n.
func NewTimerFacility(n Notifier, logger *log.Logger) *TimerFacility {
	return &TimerFacility{
		triggers: make(map[string]trigger),
		notifier: n,
		logger:   logging.OrDefault(logger),
		now:      time.Now,
	}
}

// Schedule arms a one-shot timer. Times in the past fire immediately.
func (f *TimerFacility) Schedule(triggerID string, fireAt time.Time, p Payload) error {
	if triggerID == "" {
		return fmt.Errorf("empty trigger id")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if old, ok := f.triggers[triggerID]; ok {
		old.timer.Stop()
	}
	f.gen++
	gen := f.gen
	delay := max(fireAt.Sub(f.now()), 0)
	t := time.AfterFunc(delay, func() { f.fire(triggerID, gen, p) })
	f.triggers[triggerID] = trigger{timer: t, gen: gen, at: fireAt}
	return nil
}

// Cancel stops a pending trigger. Unknown ids are ignored.
func (f *TimerFacility) Cancel(triggerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tr, ok := f.triggers[triggerID]; ok {
		tr.timer.Stop()
		delete(f.triggers, triggerID)
	}
	return nil
}

// Pending returns the armed trigger ids, sorted.
func (f *TimerFacility) Pending() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.triggers))
	for id := range f.triggers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close stops every pending trigger.
func (f *TimerFacility) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, tr := range f.triggers {
		tr.timer.Stop()
		delete(f.triggers, id)
	}
}

func (f *TimerFacility) fire(triggerID string, gen uint64, p Payload) {
	f.mu.Lock()
	tr, ok := f.triggers[triggerID]
	if !ok || tr.gen != gen {
		f.mu.Unlock()
		return
	}
	delete(f.triggers, triggerID)
	f.mu.Unlock()

	if f.notifier == nil {
		return
	}
	if err := f.notifier.Notify(context.Background(), p); err != nil {
		f.logger.Error("reminder delivery failed", "trigger", triggerID, "err", err)
	}
}

// ConsoleNotifier prints reminders to a writer.
type ConsoleNotifier struct {
	W io.Writer
}

func (c ConsoleNotifier) Notify(_ context.Context, p Payload) error {
	bold := color.New(color.FgYellow, color.Bold).SprintFunc()
	_, err := fmt.Fprintf(c.W, "%s #%d: %s\n", bold(p.Title), p.NotificationID, p.Text)
	return err
}
