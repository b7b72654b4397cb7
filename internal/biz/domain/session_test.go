package domain

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestHistoryCursor_OnlyMovesBackward(t *testing.T) {
	base := time.Unix(1_600_000_000, 0)
	cursor := HistoryCursor{}

	if !cursor.Advance("m10", base) {
		t.Fatal("Expected empty cursor to accept first message")
	}

	if cursor.Advance("m11", base) {
		t.Error("Expected equal timestamp not to move the cursor")
	}
	if cursor.Advance("m12", base.Add(time.Second)) {
		t.Error("Expected newer timestamp not to move the cursor")
	}
	if cursor.OldestMsgID != "m10" {
		t.Errorf("Expected cursor to stay on m10, got %s", cursor.OldestMsgID)
	}

	older := base.Add(-time.Minute)
	if !cursor.Advance("m9", older) {
		t.Fatal("Expected older timestamp to move the cursor")
	}
	if cursor.OldestMsgID != "m9" || !cursor.OldestTime.Equal(older) {
		t.Errorf("Expected cursor (m9, %v), got (%s, %v)", older, cursor.OldestMsgID, cursor.OldestTime)
	}
}

func TestSessionSlot_Lifecycle(t *testing.T) {
	slot := NewSessionSlot()

	if _, err := slot.Session(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Expected ErrNoSession, got %v", err)
	}
	if err := slot.SetCursor("x"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Expected ErrNoSession from SetCursor, got %v", err)
	}

	slot.Install(Session{AimSID: "sid", AimID: "100", FetchBaseURL: "https://poll/1"})
	if err := slot.SetCursor("https://poll/2"); err != nil {
		t.Fatalf("SetCursor: %v", err)
	}

	session, err := slot.Session()
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if session.FetchBaseURL != "https://poll/2" {
		t.Errorf("Expected rotated cursor, got %s", session.FetchBaseURL)
	}

	slot.Close()
	slot.Close()
	if !slot.Closed() {
		t.Error("Expected slot to be closed")
	}
	select {
	case <-slot.Done():
	default:
		t.Error("Expected Done channel to be closed")
	}
	if _, err := slot.Session(); !errors.Is(err, ErrNoSession) {
		t.Error("Expected descriptor to be discarded on close")
	}
}

func TestSessionSlot_ConcurrentReaders(t *testing.T) {
	slot := NewSessionSlot()
	slot.Install(Session{AimSID: "sid", FetchBaseURL: "c0"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if s, err := slot.Session(); err != nil || s.AimSID != "sid" {
					t.Errorf("Unexpected read: %+v, %v", s, err)
					return
				}
			}
		}()
	}
	for j := 0; j < 100; j++ {
		_ = slot.SetCursor("c")
	}
	wg.Wait()
}
