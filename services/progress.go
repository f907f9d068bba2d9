package services

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultProgressResetDelay is how long a finished upload stays on screen
const DefaultProgressResetDelay = 3 * time.Second

// UploadPhase is a step of a case import
type UploadPhase string

const (
	PhaseDisabled   UploadPhase = "disabled"
	PhaseUploading  UploadPhase = "uploading"
	PhaseReceived   UploadPhase = "received"
	PhaseProcessing UploadPhase = "processing"
	PhaseAssigning  UploadPhase = "assigning"
	PhaseDone       UploadPhase = "done"
)

// Label is the text shown next to the progress bar
func (p UploadPhase) Label() string {
	switch p {
	case PhaseUploading:
		return "Uploading file"
	case PhaseReceived:
		return "File received"
	case PhaseProcessing:
		return "Processing rows"
	case PhaseAssigning:
		return "Assigning cases"
	case PhaseDone:
		return "Import complete"
	}
	return ""
}

var phaseTransitions = map[UploadPhase][]UploadPhase{
	PhaseDisabled:   {PhaseUploading},
	PhaseUploading:  {PhaseReceived},
	PhaseReceived:   {PhaseProcessing},
	PhaseProcessing: {PhaseAssigning, PhaseDone},
	PhaseAssigning:  {PhaseDone},
}

// ErrIllegalPhase is returned for a transition the import flow never makes
var ErrIllegalPhase = errors.New("illegal upload phase transition")

// Progress is the upload indicator state of one session
type Progress struct {
	Phase     UploadPhase
	Current   int
	Total     int
	Minimized bool
	FileName  string
	Message   string
	UpdatedAt time.Time
}

// Active reports whether the indicator should be shown
func (p Progress) Active() bool {
	return p.Phase != PhaseDisabled && p.Phase != ""
}

// Percent is Current/Total as 0..100; done is always 100
func (p Progress) Percent() int {
	if p.Phase == PhaseDone {
		return 100
	}
	if p.Total <= 0 {
		return 0
	}
	pct := p.Current * 100 / p.Total
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

type progressEntry struct {
	progress Progress
	timer    *time.Timer
	gen      uint64
}

// ProgressStore tracks upload progress per session. Reaching done
// schedules an automatic reset to disabled.
type ProgressStore struct {
	mu         sync.Mutex
	entries    map[string]*progressEntry
	resetDelay time.Duration
	closed     bool
}

// NewProgressStore creates a store; a non-positive delay uses the default
func NewProgressStore(resetDelay time.Duration) *ProgressStore {
	if resetDelay <= 0 {
		resetDelay = DefaultProgressResetDelay
	}
	return &ProgressStore{
		entries:    make(map[string]*progressEntry),
		resetDelay: resetDelay,
	}
}

// Get returns the session's progress, disabled when none
func (s *ProgressStore) Get(session string) Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[session]; ok {
		return e.progress
	}
	return Progress{Phase: PhaseDisabled}
}

// Start begins a new upload. It fails while another upload is running.
func (s *ProgressStore) Start(session, fileName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[session]; ok && e.progress.Phase == PhaseDone {
		s.removeLocked(session)
	}
	if err := s.advanceLocked(session, PhaseUploading); err != nil {
		return err
	}
	s.entries[session].progress.FileName = fileName
	return nil
}

// Advance moves the session to phase
func (s *ProgressStore) Advance(session string, phase UploadPhase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked(session, phase)
}

func (s *ProgressStore) advanceLocked(session string, phase UploadPhase) error {
	if s.closed {
		return fmt.Errorf("%w: store closed", ErrIllegalPhase)
	}
	e, ok := s.entries[session]
	if !ok {
		e = &progressEntry{progress: Progress{Phase: PhaseDisabled}}
	}
	if !phaseAllowed(e.progress.Phase, phase) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalPhase, e.progress.Phase, phase)
	}
	e.progress.Phase = phase
	e.progress.UpdatedAt = time.Now()
	if phase == PhaseAssigning {
		e.progress.Current, e.progress.Total = 0, 0
	}
	s.entries[session] = e

	if phase == PhaseDone {
		e.gen++
		gen := e.gen
		if e.timer != nil {
			e.timer.Stop()
		}
		e.timer = time.AfterFunc(s.resetDelay, func() { s.resetGen(session, gen) })
	}
	return nil
}

func phaseAllowed(from, to UploadPhase) bool {
	for _, next := range phaseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SetData records how far the current phase has got
func (s *ProgressStore) SetData(session string, current, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[session]; ok {
		e.progress.Current = current
		e.progress.Total = total
		e.progress.UpdatedAt = time.Now()
	}
}

// SetMessage records the text shown with the final phase
func (s *ProgressStore) SetMessage(session, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[session]; ok {
		e.progress.Message = message
	}
}

// SetMinimized collapses or expands the indicator
func (s *ProgressStore) SetMinimized(session string, minimized bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[session]; ok {
		e.progress.Minimized = minimized
	}
}

// Reset returns the session to disabled and cancels any pending reset
func (s *ProgressStore) Reset(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(session)
}

// Close cancels every pending timer
func (s *ProgressStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for session := range s.entries {
		s.removeLocked(session)
	}
	s.closed = true
}

func (s *ProgressStore) resetGen(session string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[session]; ok && e.gen == gen && e.progress.Phase == PhaseDone {
		s.removeLocked(session)
	}
}

func (s *ProgressStore) removeLocked(session string) {
	if e, ok := s.entries[session]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.entries, session)
	}
}
