package runner

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/dapaulid/stressy/types"
)

// ProgressIndicator receives engine events for UI updates. Implementations
// must be safe for concurrent use; the repeater calls them from its
// consumption loop but campaigns can be long and reporting is periodic.
type ProgressIndicator interface {
	StartCampaign(command string, totalRuns int) // totalRuns 0 = unbounded
	StartRun(index int)
	CompleteRun(outcome *types.Outcome)
	CompleteCampaign(summary *types.Summary)
}

// noOpProgressIndicator provides a no-op implementation of ProgressIndicator
type noOpProgressIndicator struct{}

// NewNoOpProgressIndicator creates a progress indicator that does nothing
func NewNoOpProgressIndicator() ProgressIndicator {
	return &noOpProgressIndicator{}
}

func (n *noOpProgressIndicator) StartCampaign(command string, totalRuns int) {}
func (n *noOpProgressIndicator) StartRun(index int)                          {}
func (n *noOpProgressIndicator) CompleteRun(outcome *types.Outcome)          {}
func (n *noOpProgressIndicator) CompleteCampaign(summary *types.Summary)     {}

// logProgressIndicator reports campaign progress through the logger at a
// fixed interval, plus one line per completed failing run.
type logProgressIndicator struct {
	logger log.Logger
	ticker *time.Ticker
	stopCh chan struct{}

	mu        sync.RWMutex
	command   string
	totalRuns int
	started   time.Time
	completed int
	failures  int
	running   map[int]time.Time // run index -> start time
}

// NewLogProgressIndicator creates a progress indicator that periodically logs
// completion counts and the longest-running in-flight iterations.
func NewLogProgressIndicator(logger log.Logger, updateInterval time.Duration) ProgressIndicator {
	if updateInterval == 0 {
		updateInterval = 10 * time.Second
	}

	indicator := &logProgressIndicator{
		logger:  logger.New("component", "progress"),
		ticker:  time.NewTicker(updateInterval),
		stopCh:  make(chan struct{}),
		running: make(map[int]time.Time),
	}

	go indicator.reporter()

	return indicator
}

func (p *logProgressIndicator) StartCampaign(command string, totalRuns int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.command = command
	p.totalRuns = totalRuns
	p.started = time.Now()
	p.completed = 0
	p.failures = 0
	p.running = make(map[int]time.Time)

	if totalRuns > 0 {
		p.logger.Info("Starting campaign", "command", command, "totalRuns", totalRuns)
	} else {
		p.logger.Info("Starting campaign", "command", command, "totalRuns", "unbounded")
	}
}

func (p *logProgressIndicator) StartRun(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.running[index] = time.Now()
	p.logger.Debug("Run started", "run", index, "inFlight", len(p.running))
}

func (p *logProgressIndicator) CompleteRun(outcome *types.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.running, outcome.Index)
	p.completed++
	if outcome.Status.Failed() {
		p.failures++
		p.logger.Warn("Run failed", "run", outcome.Index, "status", outcome.Status, "duration", outcome.Duration.Truncate(time.Millisecond))
		return
	}
	p.logger.Debug("Run completed", "run", outcome.Index, "status", outcome.Status, "completed", p.completed)
}

func (p *logProgressIndicator) CompleteCampaign(summary *types.Summary) {
	p.ticker.Stop()
	close(p.stopCh)

	p.logger.Info("Campaign finished",
		"reason", summary.Reason,
		"attempts", summary.Attempts,
		"failures", summary.Failures,
		"elapsed", summary.Elapsed.Truncate(time.Millisecond))
}

func (p *logProgressIndicator) reporter() {
	for {
		select {
		case <-p.ticker.C:
			p.report()
		case <-p.stopCh:
			return
		}
	}
}

func (p *logProgressIndicator) report() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	total := "unbounded"
	if p.totalRuns > 0 {
		total = fmt.Sprintf("%d", p.totalRuns)
	}

	p.logger.Info("Progress update",
		"completed", p.completed,
		"total", total,
		"failures", p.failures,
		"inFlight", len(p.running),
		"elapsed", time.Since(p.started).Truncate(time.Second))
}
