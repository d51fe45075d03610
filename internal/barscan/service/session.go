package service

import (
	"sync"

	"github.com/BrandonDHaskell/barscan/internal/barscan/types"
)

// Session is the scanning station's mutable state: the scan gate, the
// active camera, the last accepted payload and the validation rule.
type Session struct {
	mu          sync.Mutex
	scanEnabled bool
	facing      types.Facing
	lastPayload string
	rule        ValidationRule
}

// NewSession starts with scanning enabled on the back camera.
func NewSession(defaultAccepted string) *Session {
	return &Session{
		scanEnabled: true,
		facing:      types.FacingBack,
		rule:        ValidationRule{DefaultAccepted: defaultAccepted},
	}
}

// TryBeginScan closes the gate and returns true if it was open.
func (s *Session) TryBeginScan() bool {
	_, ok := s.BeginScan()
	return ok
}

// BeginScan closes the gate and reports the facing the frame was captured
// with, both under one lock so a tick cannot flip the camera in between.
func (s *Session) BeginScan() (types.Facing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.scanEnabled {
		return s.facing, false
	}
	s.scanEnabled = false
	return s.facing, true
}

// EnableScan reopens the gate for one more scan.
func (s *Session) EnableScan() {
	s.mu.Lock()
	s.scanEnabled = true
	s.mu.Unlock()
}

func (s *Session) ScanEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanEnabled
}

func (s *Session) Facing() types.Facing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facing
}

// FlipFacing switches camera and returns the new facing.
func (s *Session) FlipFacing() types.Facing {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facing = s.facing.Opposite()
	return s.facing
}

// Rearm is the periodic tick: reopen the gate and switch camera.
func (s *Session) Rearm() {
	s.mu.Lock()
	s.scanEnabled = true
	s.facing = s.facing.Opposite()
	s.mu.Unlock()
}

func (s *Session) SetUserAccepted(v string) {
	s.mu.Lock()
	s.rule.UserAccepted = v
	s.mu.Unlock()
}

func (s *Session) Rule() ValidationRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rule
}

func (s *Session) noteScanned(payload string) {
	s.mu.Lock()
	s.lastPayload = payload
	s.mu.Unlock()
}

// Snapshot leaves FrequencyMs zero; the frequency controller owns it.
func (s *Session) Snapshot() types.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.SessionSnapshot{
		ScanEnabled:     s.scanEnabled,
		Camera:          s.facing.String(),
		LastPayload:     s.lastPayload,
		DefaultAccepted: s.rule.DefaultAccepted,
		UserAccepted:    s.rule.UserAccepted,
	}
}
