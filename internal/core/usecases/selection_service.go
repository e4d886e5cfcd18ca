package usecases

import (
	"sync"
	"time"
)

// HoverCloseDelay is how long a marker's popup stays open after the pointer
// leaves it, unless the pointer re-enters the marker or its popup.
const HoverCloseDelay = 150 * time.Millisecond

// SelectionService tracks which location is active and which marker popup
// is hovered open. Selection and hover are independent axes: closing a
// hovered popup never clears the selection.
//
// The hover-close debounce is a single-slot timer: scheduling a new close
// replaces any previously scheduled one, for the same or a different
// marker. There is no queue of pending closes.
type SelectionService struct {
	mu sync.Mutex

	selected string
	hovered  string

	delay   time.Duration
	seq     uint64
	timer   *time.Timer
	onClose func(markerGuid string)
}

// NewSelectionService creates a SelectionService. onClose is invoked (off
// the caller's goroutine) when a hover debounce expires; it may be nil.
func NewSelectionService(delay time.Duration, onClose func(markerGuid string)) *SelectionService {
	if delay <= 0 {
		delay = HoverCloseDelay
	}
	return &SelectionService{delay: delay, onClose: onClose}
}

// Select marks a location as active, from an explicit marker activation or
// an externally supplied active-location change.
func (s *SelectionService) Select(guid string) {
	s.mu.Lock()
	s.selected = guid
	s.mu.Unlock()
}

// Selected returns the guid of the active location, or "" when idle.
func (s *SelectionService) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// HoverMarker records the pointer entering a marker. Any pending close is
// invalidated, whichever marker scheduled it.
func (s *SelectionService) HoverMarker(guid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelPendingLocked()
	s.hovered = guid
}

// LeaveMarker records the pointer leaving the hovered marker and starts
// the close debounce.
func (s *SelectionService) LeaveMarker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleCloseLocked()
}

// EnterPopup cancels a pending close while the pointer is inside the
// popup region.
func (s *SelectionService) EnterPopup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelPendingLocked()
}

// LeavePopup restarts the close debounce when the pointer leaves the
// popup region.
func (s *SelectionService) LeavePopup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleCloseLocked()
}

// Hovered returns the marker whose popup is currently open, or "".
func (s *SelectionService) Hovered() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hovered
}

// cancelPendingLocked invalidates any scheduled close. The sequence bump
// also neutralises a timer callback that already fired but has not taken
// the lock yet.
func (s *SelectionService) cancelPendingLocked() {
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// scheduleCloseLocked replaces the current pending close with a new one.
func (s *SelectionService) scheduleCloseLocked() {
	s.cancelPendingLocked()
	seq := s.seq

	s.timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		if s.seq != seq {
			s.mu.Unlock()
			return
		}
		marker := s.hovered
		s.hovered = ""
		s.timer = nil
		cb := s.onClose
		s.mu.Unlock()

		if cb != nil && marker != "" {
			cb(marker)
		}
	})
}
