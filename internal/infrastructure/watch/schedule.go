package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ParseSchedule validates a cron expression. Standard five-field specs and
// descriptors such as "@daily" or "@every 1h" are accepted.
func ParseSchedule(expr string) (cron.Schedule, error) {
	s, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return s, nil
}

// Refresher runs fn on start, on file changes and on an optional schedule.
// Calls are serialized.
type Refresher struct {
	Files    []string
	Schedule string
	Debounce time.Duration

	mu sync.Mutex
	fn func(context.Context, Event)
}

func NewRefresher(fn func(context.Context, Event)) *Refresher {
	return &Refresher{fn: fn}
}

func (r *Refresher) run(ctx context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	r.fn(ctx, ev)
}

// Run blocks until ctx is cancelled or the file watcher fails.
func (r *Refresher) Run(ctx context.Context) error {
	if len(r.Files) == 0 && r.Schedule == "" {
		return fmt.Errorf("nothing to watch: set files or a schedule")
	}

	var c *cron.Cron
	if r.Schedule != "" {
		sched, err := ParseSchedule(r.Schedule)
		if err != nil {
			return err
		}
		c = cron.New()
		c.Schedule(sched, cron.FuncJob(func() {
			r.run(ctx, Event{ChangeType: "schedule", At: time.Now()})
		}))
	}

	var fw *FileWatcher
	if len(r.Files) > 0 {
		var err error
		fw, err = NewFileWatcher(r.Files, r.Debounce, func(ev Event) { r.run(ctx, ev) })
		if err != nil {
			return err
		}
	}

	r.run(ctx, Event{ChangeType: "start", At: time.Now()})

	if c != nil {
		c.Start()
		defer func() { <-c.Stop().Done() }()
	}
	if fw != nil {
		return fw.Run(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}
