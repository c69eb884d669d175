package arbiter

import "sync"

// Dispatcher receives issued commands. Dispatch must not block: delivery to
// the robot is fire-and-forget and its result never feeds back into State.
type Dispatcher interface {
	Dispatch(cmd Command)
}

// Journal receives activity log messages.
type Journal interface {
	Record(message string)
}

// Observer is notified after every event that changed the state or produced output.
// Observers run while the arbiter is locked and must not call back into it.
type Observer func(State, Outcome)

// Arbiter owns the session State and serializes events from every input source.
// Each event runs to completion before the next one is applied.
type Arbiter struct {
	mu         sync.Mutex
	state      State
	dispatcher Dispatcher
	journal    Journal
	observers  []Observer
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithSpeed sets the initial speed (default 100).
func WithSpeed(speed int) Option {
	return func(a *Arbiter) {
		a.state = NewState(speed)
	}
}

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(a *Arbiter) {
		a.observers = append(a.observers, o)
	}
}

// New creates an idle arbiter. Either collaborator may be nil.
func New(d Dispatcher, j Journal, opts ...Option) *Arbiter {
	a := &Arbiter{
		state:      NewState(DefaultSpeed),
		dispatcher: d,
		journal:    j,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Subscribe registers an observer.
func (a *Arbiter) Subscribe(o Observer) {
	a.mu.Lock()
	a.observers = append(a.observers, o)
	a.mu.Unlock()
}

// Handle applies ev, dispatches the resulting command and records the log line.
func (a *Arbiter) Handle(ev Event) Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev := a.state
	next, out := Step(prev, ev)
	a.state = next

	if out.Command != nil && a.dispatcher != nil {
		a.dispatcher.Dispatch(*out.Command)
	}
	if out.Log != "" && a.journal != nil {
		a.journal.Record(out.Log)
	}
	if next != prev || out.Command != nil {
		for _, o := range a.observers {
			o(next, out)
		}
	}
	return out
}

// State returns a snapshot of the current state.
func (a *Arbiter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}
