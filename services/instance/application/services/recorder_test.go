package services

import (
	"errors"
	"testing"
	"time"

	"github.com/ghuser/appkit/pkg/lifecycle"
)

func transitionsOf(states ...lifecycle.State) []lifecycle.Transition {
	var out []lifecycle.Transition
	for i := 1; i < len(states); i++ {
		out = append(out, lifecycle.Transition{From: states[i-1], To: states[i], At: t0.Add(time.Duration(i) * time.Second)})
	}
	return out
}

func TestTransitionRecorder_BuffersUntilReady(t *testing.T) {
	repo := &memRepo{}
	rec := NewTransitionRecorder(NewInstanceService(repo, nil, quietLogger()), "appkit", "api-1", quietLogger())

	steps := transitionsOf(lifecycle.StateSetup, lifecycle.StateReadying, lifecycle.StateReady)
	rec.Observe(steps[0])
	if n := len(repo.transitions()); n != 0 {
		t.Fatalf("expected nothing written before READY, got %d", n)
	}
	rec.Observe(steps[1])

	saved := repo.transitions()
	if len(saved) != 2 {
		t.Fatalf("expected 2 transitions after READY, got %d", len(saved))
	}
	if saved[0].To != lifecycle.StateReadying || saved[1].To != lifecycle.StateReady {
		t.Errorf("unexpected order: %s, %s", saved[0].To, saved[1].To)
	}
}

func TestTransitionRecorder_FailedStartupIsRecordedOnRetry(t *testing.T) {
	repo := &memRepo{}
	rec := NewTransitionRecorder(NewInstanceService(repo, nil, quietLogger()), "appkit", "api-1", quietLogger())

	rec.Observe(lifecycle.Transition{From: lifecycle.StateSetup, To: lifecycle.StateReadying, At: t0})
	rec.Observe(lifecycle.Transition{From: lifecycle.StateReadying, To: lifecycle.StateSetup, At: t0.Add(time.Second), Err: errors.New("db: refused")})
	rec.Observe(lifecycle.Transition{From: lifecycle.StateSetup, To: lifecycle.StateReadying, At: t0.Add(2 * time.Second)})
	rec.Observe(lifecycle.Transition{From: lifecycle.StateReadying, To: lifecycle.StateReady, At: t0.Add(3 * time.Second)})

	saved := repo.transitions()
	if len(saved) != 4 {
		t.Fatalf("expected 4 transitions, got %d", len(saved))
	}
	if saved[1].Error != "db: refused" {
		t.Errorf("startup error not recorded: %q", saved[1].Error)
	}
}

func TestTransitionRecorder_ClosedIsNotRecorded(t *testing.T) {
	repo := &memRepo{}
	rec := NewTransitionRecorder(NewInstanceService(repo, nil, quietLogger()), "appkit", "api-1", quietLogger())

	for _, tr := range transitionsOf(lifecycle.StateSetup, lifecycle.StateReadying, lifecycle.StateReady, lifecycle.StateClosing, lifecycle.StateClosed) {
		rec.Observe(tr)
	}

	saved := repo.transitions()
	if len(saved) != 3 {
		t.Fatalf("expected 3 transitions, got %d", len(saved))
	}
	if saved[2].To != lifecycle.StateClosing {
		t.Errorf("last recorded: got %s, want CLOSING", saved[2].To)
	}
}

func TestTransitionRecorder_CloseBeforeReadyDropsBuffer(t *testing.T) {
	repo := &memRepo{}
	rec := NewTransitionRecorder(NewInstanceService(repo, nil, quietLogger()), "appkit", "api-1", quietLogger())

	for _, tr := range transitionsOf(lifecycle.StateSetup, lifecycle.StateClosing, lifecycle.StateClosed) {
		rec.Observe(tr)
	}
	if n := len(repo.transitions()); n != 0 {
		t.Fatalf("expected nothing written, got %d", n)
	}
}

func TestTransitionRecorder_BoundsPending(t *testing.T) {
	repo := &memRepo{}
	rec := NewTransitionRecorder(NewInstanceService(repo, nil, quietLogger()), "appkit", "api-1", quietLogger())

	at := t0
	for i := 0; i < maxPendingTransitions; i++ {
		at = at.Add(time.Second)
		rec.Observe(lifecycle.Transition{From: lifecycle.StateSetup, To: lifecycle.StateReadying, At: at})
		at = at.Add(time.Second)
		rec.Observe(lifecycle.Transition{From: lifecycle.StateReadying, To: lifecycle.StateSetup, At: at})
	}
	rec.Observe(lifecycle.Transition{From: lifecycle.StateSetup, To: lifecycle.StateReadying, At: at.Add(time.Second)})
	rec.Observe(lifecycle.Transition{From: lifecycle.StateReadying, To: lifecycle.StateReady, At: at.Add(2 * time.Second)})

	saved := repo.transitions()
	if len(saved) != maxPendingTransitions+1 {
		t.Fatalf("expected %d transitions, got %d", maxPendingTransitions+1, len(saved))
	}
	if saved[len(saved)-1].To != lifecycle.StateReady {
		t.Errorf("READY must be recorded last, got %s", saved[len(saved)-1].To)
	}
}
