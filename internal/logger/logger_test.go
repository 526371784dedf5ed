package logger

import (
	"testing"
	"time"
)

func drain(ch chan LogEntry) []LogEntry {
	var entries []LogEntry
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return entries
			}
			entries = append(entries, e)
		case <-time.After(100 * time.Millisecond):
			return entries
		}
	}
}

func TestSetLevelFiltersBelowMinimum(t *testing.T) {
	SetLevel("warn")
	defer SetLevel("info")

	ch := Subscribe()
	defer Unsubscribe(ch)

	Debugf("debug message")
	Infof("info message")
	Warnf("warn message")
	Errorf("error message")

	entries := drain(ch)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries at warn level, got %d", len(entries))
	}
	if entries[0].Level != Warn || entries[1].Level != Error {
		t.Errorf("unexpected levels: %s, %s", entries[0].Level, entries[1].Level)
	}
}

func TestSetLevelInvalidFallsBackToInfo(t *testing.T) {
	SetLevel("verbose")
	defer SetLevel("info")

	ch := Subscribe()
	defer Unsubscribe(ch)

	Debugf("hidden")
	Infof("shown")

	entries := drain(ch)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Message != "shown" {
		t.Errorf("unexpected message %q", entries[0].Message)
	}
}

func TestSubscribeReceivesFormattedEntries(t *testing.T) {
	SetLevel("debug")
	defer SetLevel("info")

	ch := Subscribe()
	defer Unsubscribe(ch)

	Infof("run %s finished with %d group(s)", "abc", 3)

	entries := drain(ch)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Message != "run abc finished with 3 group(s)" {
		t.Errorf("unexpected message %q", e.Message)
	}
	if e.Level != Info {
		t.Errorf("unexpected level %s", e.Level)
	}
	if _, err := time.Parse(time.RFC3339, e.Timestamp); err != nil {
		t.Errorf("timestamp not RFC3339: %q", e.Timestamp)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	ch := Subscribe()
	Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}

	// Unsubscribing an unknown channel is a no-op.
	Unsubscribe(ch)
}

func TestBroadcastDoesNotBlockOnFullSubscriber(t *testing.T) {
	ch := Subscribe()
	defer Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 250; i++ {
			Infof("message %d", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("logging blocked on a full subscriber channel")
	}
}
