package trace

import (
	"sync"
	"time"
)

// Recorder receives completed subject-code calls. Implementations must be
// safe for concurrent use; the tracker calls it from whichever thread
// produced the exit event.
type Recorder interface {
	RecordCompletedCall(id FunctionIdentity, duration time.Duration, parent *FunctionIdentity)
}

// frame is one in-flight call on a thread's stack. Excluded frames keep a
// zero identity; they stay on the stack so that parent attribution can skip
// over them.
type frame struct {
	id    FunctionIdentity
	start time.Time
}

func (f frame) subject() bool {
	return !f.id.IsZero()
}

// Tracker maintains one call stack per logical thread of control and feeds
// completed subject calls to a Recorder. Each stack is owned exclusively by
// the thread that pushes to it; the tracker's lock only guards the stack
// lookup table.
type Tracker struct {
	classifier *Classifier
	recorder   Recorder

	mu     sync.Mutex
	stacks map[uint64]*threadStack
}

type threadStack struct {
	frames []frame
}

// NewTracker creates a tracker feeding the given recorder.
func NewTracker(classifier *Classifier, recorder Recorder) *Tracker {
	return &Tracker{
		classifier: classifier,
		recorder:   recorder,
		stacks:     make(map[uint64]*threadStack),
	}
}

// HandleEvent processes one call-boundary event. It is the hot path: it
// must not block beyond the aggregator's critical section and never
// panics on malformed input (an exit with no matching enter is dropped).
func (t *Tracker) HandleEvent(ev Event) {
	st := t.stack(ev.Thread)

	switch ev.Direction {
	case Enter:
		st.frames = append(st.frames, t.newFrame(ev))
	case Exit:
		n := len(st.frames)
		if n == 0 {
			// Exit without a matching enter, e.g. the hook attached
			// mid-call. Discard.
			return
		}
		f := st.frames[n-1]
		st.frames = st.frames[:n-1]
		if !f.subject() {
			return
		}
		t.recorder.RecordCompletedCall(f.id, ev.Time.Sub(f.start), nearestSubject(st.frames))
	}
}

// stack returns the calling thread's stack, creating it on first use.
func (t *Tracker) stack(thread uint64) *threadStack {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.stacks[thread]
	if !ok {
		st = &threadStack{}
		t.stacks[thread] = st
	}
	return st
}

func (t *Tracker) newFrame(ev Event) frame {
	if ev.Builtin {
		if t.classifier.SubjectBuiltin(ev.Function.Name) {
			id := FunctionIdentity{Scope: "<builtin>", Name: ev.Function.Name}
			return frame{id: id, start: ev.Time}
		}
		return frame{start: ev.Time}
	}
	if t.classifier.Subject(ev.Function.File, ev.Function.Name) {
		return frame{id: ev.Function, start: ev.Time}
	}
	return frame{start: ev.Time}
}

// nearestSubject returns the identity of the innermost subject frame still
// on the stack, skipping excluded frames that may sit between two subject
// frames (e.g. a library callback invoking subject code). Nil when no
// subject ancestor exists.
func nearestSubject(frames []frame) *FunctionIdentity {
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].subject() {
			id := frames[i].id
			return &id
		}
	}
	return nil
}

// Depth reports the current stack depth for a thread. Intended for tests
// and diagnostics.
func (t *Tracker) Depth(thread uint64) int {
	st := t.stack(thread)
	return len(st.frames)
}
