// Package dispatch delivers arbiter commands to the robot.
//
// The arbiter decides synchronously; the robot API is slow and may fail.
// Queue sits between them: Dispatch never blocks, and a single worker sends
// commands in the order they were decided.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-ev3panel/pkg/arbiter"
	"github.com/teslashibe/go-ev3panel/pkg/robot"
)

const (
	// DefaultSize is the default queue capacity.
	DefaultSize = 32

	// DefaultTimeout bounds a single robot request.
	DefaultTimeout = 3 * time.Second

	// errorLogInterval throttles repeated failure logs.
	errorLogInterval = 5 * time.Second
)

// Stats is a snapshot of queue counters.
type Stats struct {
	Sent    uint64 `json:"sent"`
	Failed  uint64 `json:"failed"`
	Dropped uint64 `json:"dropped"`
	Pending int    `json:"pending"`
}

// Queue is a single-consumer command queue implementing arbiter.Dispatcher.
type Queue struct {
	robot   robot.Commander
	cmds    chan arbiter.Command
	timeout time.Duration
	logger  *slog.Logger

	// enqueue is serialized so the drop-oldest path stays ordered.
	enqMu sync.Mutex

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	sent    atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64

	errMu         sync.Mutex
	lastErrorTime time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = l
	}
}

// NewQueue creates a queue sending to r. A size below 1 uses DefaultSize.
func NewQueue(r robot.Commander, size int, opts ...Option) *Queue {
	if size < 1 {
		size = DefaultSize
	}
	q := &Queue{
		robot:   r,
		cmds:    make(chan arbiter.Command, size),
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Dispatch enqueues cmd without blocking. When the queue is full the oldest
// pending command is discarded, so the most recent decision always reaches
// the robot.
func (q *Queue) Dispatch(cmd arbiter.Command) {
	q.enqMu.Lock()
	defer q.enqMu.Unlock()

	for {
		select {
		case q.cmds <- cmd:
			return
		default:
		}
		select {
		case old := <-q.cmds:
			q.dropped.Add(1)
			q.logger.Warn("dispatch queue full, dropping command", "dropped", old.String())
		default:
		}
	}
}

// Run sends queued commands until ctx is done or Stop is called.
// Commands still queued at shutdown are discarded.
func (q *Queue) Run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stop:
			return
		case cmd := <-q.cmds:
			q.send(ctx, cmd)
		}
	}
}

// Stop halts Run and waits for the in-flight request to finish.
// It must only be called once Run has been started.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() { close(q.stop) })
	<-q.done
}

// Stats returns the current counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Sent:    q.sent.Load(),
		Failed:  q.failed.Load(),
		Dropped: q.dropped.Load(),
		Pending: len(q.cmds),
	}
}

func (q *Queue) send(ctx context.Context, cmd arbiter.Command) {
	if q.robot == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	if err := Execute(ctx, q.robot, cmd); err != nil {
		n := q.failed.Add(1)
		q.logError(cmd, err, n)
		return
	}
	q.sent.Add(1)
	q.logger.Debug("command sent", "command", cmd.String())
}

// logError logs at most once per errorLogInterval.
func (q *Queue) logError(cmd arbiter.Command, err error, total uint64) {
	q.errMu.Lock()
	defer q.errMu.Unlock()
	if !q.lastErrorTime.IsZero() && time.Since(q.lastErrorTime) < errorLogInterval {
		return
	}
	q.lastErrorTime = time.Now()
	q.logger.Error("robot command failed", "command", cmd.String(), "error", err, "total_errors", total)
}

// Execute sends one command to r. Stop is a zero-speed forward movement.
func Execute(ctx context.Context, r robot.Commander, cmd arbiter.Command) error {
	switch cmd.Kind {
	case arbiter.CommandMove:
		return r.Move(ctx, cmd.Direction.String(), cmd.Speed)
	case arbiter.CommandStop:
		return r.Move(ctx, robot.DirectionForward, 0)
	case arbiter.CommandKillSwitch:
		return r.KillSwitch(ctx)
	}
	return nil
}
