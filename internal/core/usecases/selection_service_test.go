package usecases_test

import (
	"sync"
	"testing"
	"time"

	"mapmarks/internal/core/usecases"
)

const testDelay = 10 * time.Millisecond

// closeRecorder collects debounce-close callbacks.
type closeRecorder struct {
	mu     sync.Mutex
	closed []string
}

func (r *closeRecorder) record(guid string) {
	r.mu.Lock()
	r.closed = append(r.closed, guid)
	r.mu.Unlock()
}

func (r *closeRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.closed...)
}

func TestSelection_HoverCloseFiresAfterDelay(t *testing.T) {
	rec := &closeRecorder{}
	svc := usecases.NewSelectionService(testDelay, rec.record)

	svc.HoverMarker("m1")
	svc.LeaveMarker()

	time.Sleep(5 * testDelay)

	if got := rec.snapshot(); len(got) != 1 || got[0] != "m1" {
		t.Fatalf("expected m1 closed once, got %v", got)
	}
	if svc.Hovered() != "" {
		t.Errorf("hover state should be cleared, got %q", svc.Hovered())
	}
}

func TestSelection_ReHoverCancelsPendingClose(t *testing.T) {
	rec := &closeRecorder{}
	svc := usecases.NewSelectionService(testDelay, rec.record)

	svc.HoverMarker("m1")
	svc.LeaveMarker()
	svc.HoverMarker("m1") // back before the debounce expires

	time.Sleep(5 * testDelay)

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("re-hover must cancel the pending close, got %v", got)
	}
	if svc.Hovered() != "m1" {
		t.Errorf("expected popup still open for m1, got %q", svc.Hovered())
	}
}

func TestSelection_HoverOnDifferentMarkerInvalidatesPendingClose(t *testing.T) {
	rec := &closeRecorder{}
	svc := usecases.NewSelectionService(testDelay, rec.record)

	svc.HoverMarker("m1")
	svc.LeaveMarker()
	svc.HoverMarker("m2") // single-slot timer: m1's close is dropped

	time.Sleep(5 * testDelay)

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected no close while m2 is hovered, got %v", got)
	}
	if svc.Hovered() != "m2" {
		t.Errorf("expected m2 hovered, got %q", svc.Hovered())
	}
}

func TestSelection_PopupEnterCancelsAndLeaveRestarts(t *testing.T) {
	rec := &closeRecorder{}
	svc := usecases.NewSelectionService(testDelay, rec.record)

	svc.HoverMarker("m1")
	svc.LeaveMarker()
	svc.EnterPopup()

	time.Sleep(5 * testDelay)
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("entering the popup must cancel the close, got %v", got)
	}

	svc.LeavePopup()
	time.Sleep(5 * testDelay)
	if got := rec.snapshot(); len(got) != 1 || got[0] != "m1" {
		t.Fatalf("leaving the popup must restart the debounce, got %v", got)
	}
}

func TestSelection_SelectionPersistsAcrossHoverClose(t *testing.T) {
	svc := usecases.NewSelectionService(testDelay, nil)

	svc.Select("m1")
	svc.HoverMarker("m1")
	svc.LeaveMarker()

	time.Sleep(5 * testDelay)

	if svc.Selected() != "m1" {
		t.Errorf("selection must survive hover close, got %q", svc.Selected())
	}
}

func TestSelection_ExternalActiveLocationChange(t *testing.T) {
	svc := usecases.NewSelectionService(testDelay, nil)

	svc.Select("m1")
	svc.Select("m2") // externally supplied active-location change

	if svc.Selected() != "m2" {
		t.Errorf("expected m2 selected, got %q", svc.Selected())
	}
}
