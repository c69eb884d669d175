package arbiter

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// recorder collects dispatched commands and journal lines.
type recorder struct {
	mu       sync.Mutex
	commands []Command
	lines    []string
}

func (r *recorder) Dispatch(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
}

func (r *recorder) Record(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, message)
}

func (r *recorder) snapshot() ([]Command, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...), append([]string(nil), r.lines...)
}

func TestArbiter_DispatchesAndRecords(t *testing.T) {
	rec := &recorder{}
	a := New(rec, rec, WithSpeed(70))

	for _, ev := range []Event{
		KeyDown(KeyForward),
		KeyDown(KeyForward),
		KeyDown(KeyRight),
		KeyUp(KeyRight),
		KeyUp(KeyForward),
		KillSwitch(),
	} {
		a.Handle(ev)
	}

	cmds, lines := rec.snapshot()
	wantCmds := []Command{Move(Forward, 70), Move(Right, 70), Move(Forward, 70), Stop(), Kill()}
	if diff := cmp.Diff(wantCmds, cmds); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	wantLines := []string{
		"Move robot (forward)",
		"Move robot (right)",
		"Move robot (forward)",
		"Stop movement",
		"Kill switch initiated.",
	}
	if diff := cmp.Diff(wantLines, lines); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
	if s := a.State(); !s.Stopped || s.Keys.Any() {
		t.Errorf("final state: %+v, want idle with no keys", s)
	}
}

func TestArbiter_NilCollaborators(t *testing.T) {
	a := New(nil, nil)

	// Should not panic without a dispatcher or journal.
	out := a.Handle(KeyDown(KeyLeft))
	if !out.Emitted() {
		t.Error("expected a command to be emitted")
	}
	if a.State().LastDirection != Left {
		t.Errorf("LastDirection: got %v, want left", a.State().LastDirection)
	}
}

func TestArbiter_ObserversSeeChanges(t *testing.T) {
	var seen []State
	a := New(nil, nil, WithObserver(func(s State, _ Outcome) {
		seen = append(seen, s)
	}))

	a.Handle(KeyDown(KeyBackward)) // moves
	a.Handle(KeyDown(KeyBackward)) // repeat, no change
	a.Handle(Halt())               // stops
	a.Handle(Halt())               // already idle, no change
	a.Handle(SpeedChanged(20))     // state change without a command

	if len(seen) != 3 {
		t.Fatalf("observer calls: got %d, want 3", len(seen))
	}
	if seen[0].LastDirection != Backward {
		t.Errorf("first notification: got %v, want backward", seen[0].LastDirection)
	}
	if !seen[1].Stopped {
		t.Error("second notification should be idle")
	}
	if seen[2].Speed != 20 {
		t.Errorf("third notification speed: got %d, want 20", seen[2].Speed)
	}
}

func TestArbiter_Subscribe(t *testing.T) {
	a := New(nil, nil)
	calls := 0
	a.Subscribe(func(State, Outcome) { calls++ })

	a.Handle(KillSwitch())
	if calls != 1 {
		t.Errorf("kill switch should notify observers once, got %d", calls)
	}
}

func TestArbiter_ConcurrentEvents(t *testing.T) {
	rec := &recorder{}
	a := New(rec, rec)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(c InputCode) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				a.Handle(KeyDown(c))
				a.Handle(KeyUp(c))
			}
		}(InputCodes[i%len(InputCodes)])
	}
	wg.Wait()

	cmds, lines := rec.snapshot()
	if len(cmds) != len(lines) {
		t.Errorf("every command should be journaled: %d commands, %d lines", len(cmds), len(lines))
	}
	if s := a.State(); s.Stopped != (s.LastDirection == NoDirection) {
		t.Errorf("invariant broken: %+v", s)
	}
}
