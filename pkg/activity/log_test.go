package activity

import (
	"sync"
	"testing"
	"time"
)

func fixedClock(h, m, s int) func() time.Time {
	return func() time.Time {
		return time.Date(2024, 5, 1, h, m, s, 0, time.Local)
	}
}

func TestLog_AddStampsAndAppends(t *testing.T) {
	l := New()
	l.SetClock(fixedClock(9, 5, 7))

	e := l.Add("Move robot (left)")
	if e.Time != "09:05:07" {
		t.Errorf("Time: got %q, want 09:05:07", e.Time)
	}
	if e.Text() != "09:05:07 Move robot (left)" {
		t.Errorf("Text: got %q", e.Text())
	}
	if e.ID == "" {
		t.Error("entry should have an id")
	}

	l.Add("Stop movement")
	entries := l.Entries()
	if len(entries) != 2 || l.Len() != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Message != "Move robot (left)" || entries[1].Message != "Stop movement" {
		t.Errorf("order: got %q, %q", entries[0].Message, entries[1].Message)
	}
}

func TestLog_EscapesMarkup(t *testing.T) {
	l := New()
	e := l.Add(`<script>alert("x")</script> & more`)
	want := "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt; &amp; more"
	if e.Message != want {
		t.Errorf("Message: got %q, want %q", e.Message, want)
	}
}

func TestLog_EntriesIsACopy(t *testing.T) {
	l := New()
	l.Add("one")
	entries := l.Entries()
	entries[0].Message = "changed"
	if l.Entries()[0].Message != "one" {
		t.Error("Entries should return a copy")
	}
}

func TestLog_After(t *testing.T) {
	l := New()
	a := l.Add("a")
	l.Add("b")
	c := l.Add("c")

	if got := l.After(a.ID); len(got) != 2 || got[0].Message != "b" {
		t.Errorf("After(a): got %+v", got)
	}
	if got := l.After(c.ID); len(got) != 0 {
		t.Errorf("After(last): got %d entries, want 0", len(got))
	}
	if got := l.After("unknown"); len(got) != 3 {
		t.Errorf("After(unknown): got %d entries, want 3", len(got))
	}
}

func TestLog_Subscribe(t *testing.T) {
	l := New()
	var got []string
	cancel := l.Subscribe(func(e Entry) {
		got = append(got, e.Message)
	})

	l.Add("first")
	l.Record("second")
	cancel()
	l.Add("third")

	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("subscriber saw %v, want [first second]", got)
	}
}

func TestLog_ConcurrentAdd(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Add("tick")
			}
		}()
	}
	wg.Wait()

	if l.Len() != 500 {
		t.Errorf("Len: got %d, want 500", l.Len())
	}
}
