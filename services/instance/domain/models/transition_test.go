package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/appkit/pkg/lifecycle"
)

func TestNewTransition(t *testing.T) {
	at := time.Date(2026, 3, 1, 13, 0, 0, 0, time.FixedZone("CET", 3600))
	tr := NewTransition("appkit", "api-1", lifecycle.Transition{
		From: lifecycle.StateReadying,
		To:   lifecycle.StateSetup,
		At:   at,
		Err:  errors.New("startup hooks failed: db: refused"),
	})

	if tr.ID == uuid.Nil {
		t.Error("expected generated id")
	}
	if tr.From != lifecycle.StateReadying || tr.To != lifecycle.StateSetup {
		t.Errorf("states: got %s->%s", tr.From, tr.To)
	}
	if tr.Error != "startup hooks failed: db: refused" {
		t.Errorf("error: got %q", tr.Error)
	}
	if tr.OccurredAt.Location() != time.UTC || !tr.OccurredAt.Equal(at) {
		t.Errorf("occurred_at: got %v", tr.OccurredAt)
	}
}

func TestNewTransition_NoError(t *testing.T) {
	tr := NewTransition("appkit", "api-1", lifecycle.Transition{From: lifecycle.StateReadying, To: lifecycle.StateReady, At: time.Now()})
	if tr.Error != "" {
		t.Errorf("expected empty error, got %q", tr.Error)
	}
}
