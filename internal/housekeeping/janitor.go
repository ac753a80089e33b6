package housekeeping

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper drops expired in-memory state and reports how many entries it removed
type Sweeper interface {
	Sweep(now time.Time) int
}

type namedSweeper struct {
	name    string
	sweeper Sweeper
}

// Janitor runs registered sweepers on a cron schedule
type Janitor struct {
	cron     *cron.Cron
	spec     string
	sweepers []namedSweeper
	logger   *zap.Logger
	mu       sync.Mutex
	running  bool
	now      func() time.Time
}

// NewJanitor creates a janitor; spec accepts standard cron expressions and descriptors such as "@every 1m"
func NewJanitor(spec string, logger *zap.Logger) *Janitor {
	return &Janitor{
		cron:   cron.New(),
		spec:   spec,
		logger: logger,
		now:    time.Now,
	}
}

// Register adds a sweeper. It must be called before Start.
func (j *Janitor) Register(name string, sweeper Sweeper) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sweepers = append(j.sweepers, namedSweeper{name: name, sweeper: sweeper})
}

// Start schedules the sweep job
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return fmt.Errorf("janitor already running")
	}

	if _, err := j.cron.AddFunc(j.spec, func() { j.RunOnce(j.now()) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", j.spec, err)
	}

	j.cron.Start()
	j.running = true
	j.logger.Info("Janitor started", zap.String("schedule", j.spec), zap.Int("sweepers", len(j.sweepers)))
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	j.mu.Unlock()

	<-j.cron.Stop().Done()
	j.logger.Info("Janitor stopped")
}

// RunOnce runs every sweeper and returns the total number of removed entries
func (j *Janitor) RunOnce(now time.Time) int {
	j.mu.Lock()
	sweepers := make([]namedSweeper, len(j.sweepers))
	copy(sweepers, j.sweepers)
	j.mu.Unlock()

	total := 0
	for _, s := range sweepers {
		removed := s.sweeper.Sweep(now)
		if removed > 0 {
			j.logger.Debug("Swept expired entries", zap.String("sweeper", s.name), zap.Int("removed", removed))
		}
		total += removed
	}
	return total
}
