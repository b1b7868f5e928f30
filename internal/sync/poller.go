// Package sync refreshes the loaded todo list from the remote API in the
// background so changes made from other clients show up without manual
// refreshes.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/controller"
)

// State represents the poller's last known condition.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateError
)

// Status holds the state of the background refresh loop.
type Status struct {
	State    State
	LastSync time.Time
	Error    error
}

// ResultMsg is a tea.Msg sent when a background refresh completes. On
// success the controller already holds the fresh list; the UI only needs
// to re-render from it.
type ResultMsg struct {
	Error     error
	AuthError bool
	At        time.Time
}

// fetchTimeout is the maximum time allowed for a single refresh.
const fetchTimeout = 30 * time.Second

// Poller runs the periodic refresh goroutine and bridges its results into
// the Bubble Tea runtime via a subscription command.
type Poller struct {
	controller *controller.Controller
	interval   time.Duration

	resultCh  chan ResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      gosync.Mutex
	status  Status
	running bool
}

// New creates a poller over the controller. A non-positive interval falls
// back to two minutes.
func New(c *controller.Controller, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &Poller{
		controller: c,
		interval:   interval,
		resultCh:   make(chan ResultMsg, 16),
		triggerCh:  make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the refresh goroutine and returns the subscription
// command that feeds its results to the program. Calling Start twice is a
// no-op. The poller can be restarted after Stop, e.g. across a
// logout/login cycle.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	go p.loop(stopCh)

	return p.waitForResult()
}

// Stop halts the refresh goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	close(p.stopCh)
	p.running = false
}

// Trigger requests an immediate refresh outside the regular schedule.
func (p *Poller) Trigger() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the poller's last known condition.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.refresh()
		case <-p.triggerCh:
			p.refresh()
		}
	}
}

func (p *Poller) refresh() {
	p.setStatus(StateRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	err := p.controller.Refresh(ctx)
	at := time.Now()

	if err != nil {
		p.setStatus(StateError, err)
		p.sendResult(ResultMsg{
			Error:     err,
			AuthError: api.IsAuthError(err),
			At:        at,
		})
		return
	}

	p.setStatus(StateIdle, nil)
	p.sendResult(ResultMsg{At: at})
}

func (p *Poller) setStatus(state State, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == StateIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends without blocking; a full channel drops the message.
func (p *Poller) sendResult(msg ResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
	}
}

// waitForResult blocks until the next refresh result, or until Stop
// closes the stop channel so the command does not outlive the poller.
func (p *Poller) waitForResult() tea.Cmd {
	p.mu.Lock()
	stopCh := p.stopCh
	p.mu.Unlock()

	return func() tea.Msg {
		select {
		case result := <-p.resultCh:
			return result
		case <-stopCh:
			return nil
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next refresh
// result. Call it after handling a ResultMsg to keep the subscription
// alive.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
