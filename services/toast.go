package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultToastDuration is how long a toast stays visible
const DefaultToastDuration = 3 * time.Second

// ToastKind is the visual style of a toast
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
	ToastWarning ToastKind = "warning"
)

// Toast is one transient notification
type Toast struct {
	ID       string
	Kind     ToastKind
	Message  string
	ShownAt  time.Time
	Duration time.Duration
}

type toastEntry struct {
	toast Toast
	timer *time.Timer
}

// ToastStore holds the visible toast of each browser session. Each toast
// hides itself after its duration; a newer toast replaces the older one.
type ToastStore struct {
	mu       sync.Mutex
	entries  map[string]*toastEntry
	duration time.Duration
	closed   bool
}

// NewToastStore creates a store; a non-positive duration uses the default
func NewToastStore(duration time.Duration) *ToastStore {
	if duration <= 0 {
		duration = DefaultToastDuration
	}
	return &ToastStore{
		entries:  make(map[string]*toastEntry),
		duration: duration,
	}
}

// Show replaces the session's toast and schedules its auto-hide
func (s *ToastStore) Show(session string, kind ToastKind, message string) Toast {
	return s.ShowFor(session, kind, message, s.duration)
}

// ShowFor is Show with an explicit duration
func (s *ToastStore) ShowFor(session string, kind ToastKind, message string, d time.Duration) Toast {
	if d <= 0 {
		d = s.duration
	}
	t := Toast{
		ID:       uuid.New().String(),
		Kind:     kind,
		Message:  message,
		ShownAt:  time.Now(),
		Duration: d,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return t
	}
	if old, ok := s.entries[session]; ok {
		old.timer.Stop()
	}
	id := t.ID
	s.entries[session] = &toastEntry{
		toast: t,
		timer: time.AfterFunc(d, func() { s.hideID(session, id) }),
	}
	activeToasts.Set(float64(len(s.entries)))
	return t
}

func (s *ToastStore) Success(session, message string) Toast {
	return s.Show(session, ToastSuccess, message)
}

func (s *ToastStore) Error(session, message string) Toast {
	return s.Show(session, ToastError, message)
}

func (s *ToastStore) Info(session, message string) Toast {
	return s.Show(session, ToastInfo, message)
}

func (s *ToastStore) Warning(session, message string) Toast {
	return s.Show(session, ToastWarning, message)
}

// Current returns the visible toast for session
func (s *ToastStore) Current(session string) (Toast, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[session]
	if !ok {
		return Toast{}, false
	}
	return e.toast, true
}

// Hide dismisses the session's toast
func (s *ToastStore) Hide(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(session)
}

// Reset drops all toast state for session (logout)
func (s *ToastStore) Reset(session string) {
	s.Hide(session)
}

// Close stops every pending timer; later Show calls are ignored
func (s *ToastStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for session := range s.entries {
		s.removeLocked(session)
	}
	s.closed = true
}

// hideID removes the toast only if it is still the one that scheduled the hide
func (s *ToastStore) hideID(session, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[session]; ok && e.toast.ID == id {
		s.removeLocked(session)
	}
}

func (s *ToastStore) removeLocked(session string) {
	if e, ok := s.entries[session]; ok {
		e.timer.Stop()
		delete(s.entries, session)
		activeToasts.Set(float64(len(s.entries)))
	}
}
