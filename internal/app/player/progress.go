package player

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProgressFunc receives normalized progress samples.
type ProgressFunc func(currentTime, duration float64)

// ProgressPublisher polls the adapter on a fixed interval and republishes
// (currentTime, duration) samples to subscribers. Polling runs only while
// the session is playing; it is stopped on pause, buffering, end and error
// so a stalled player cannot publish bogus positions.
type ProgressPublisher struct {
	mu       sync.Mutex
	adapter  Adapter
	interval time.Duration
	subs     map[string]ProgressFunc
	stop     chan struct{}
}

// NewProgressPublisher creates a publisher polling the given adapter.
func NewProgressPublisher(adapter Adapter, interval time.Duration) *ProgressPublisher {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &ProgressPublisher{
		adapter:  adapter,
		interval: interval,
		subs:     make(map[string]ProgressFunc),
	}
}

// Subscribe registers a listener and returns its cancel function.
// Subscriptions have set semantics; each call registers one listener.
func (p *ProgressPublisher) Subscribe(fn ProgressFunc) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := uuid.New().String()
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

// Start begins the polling loop. Starting an already running publisher
// restarts the interval.
func (p *ProgressPublisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		close(p.stop)
	}
	stop := make(chan struct{})
	p.stop = stop

	go p.poll(stop)
}

// Stop halts the polling loop immediately.
func (p *ProgressPublisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}

// Running reports whether the polling loop is active.
func (p *ProgressPublisher) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

// Publish delivers a sample to all subscribers, bypassing the poll
// interval. Used by seek to republish the new position immediately
// instead of waiting for the next tick. Implausible samples are still
// discarded.
func (p *ProgressPublisher) Publish(currentTime, duration float64) {
	if !validSample(currentTime, duration) {
		return
	}

	p.mu.Lock()
	subs := make([]ProgressFunc, 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(currentTime, duration)
	}
}

func (p *ProgressPublisher) poll(stop chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// A buffering player reports stale positions; skip the tick.
			if p.adapter.State() == AdapterStateBuffering {
				continue
			}
			p.Publish(p.adapter.CurrentTime(), p.adapter.Duration())
		}
	}
}

// validSample reports whether a (currentTime, duration) pair is plausible.
func validSample(currentTime, duration float64) bool {
	if math.IsNaN(currentTime) || math.IsNaN(duration) {
		return false
	}
	return currentTime >= 0 && duration > 0
}
