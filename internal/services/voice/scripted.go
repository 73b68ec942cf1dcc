package voice

import (
	"context"
	"sync"
)

// Scripted is an in-memory Recognizer driven by the caller. It stands in for
// the host capability in headless runs.
type Scripted struct {
	mu           sync.Mutex
	StartErr     error
	starts       int
	stops        int
	onTranscript func(Transcript)
	onError      func(error)
	onEnd        func()
}

func (s *Scripted) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StartErr != nil {
		return s.StartErr
	}
	s.starts++
	return nil
}

func (s *Scripted) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

func (s *Scripted) OnTranscript(fn func(Transcript)) { s.mu.Lock(); s.onTranscript = fn; s.mu.Unlock() }
func (s *Scripted) OnError(fn func(error))           { s.mu.Lock(); s.onError = fn; s.mu.Unlock() }
func (s *Scripted) OnEnd(fn func())                  { s.mu.Lock(); s.onEnd = fn; s.mu.Unlock() }

func (s *Scripted) Emit(t Transcript) {
	s.mu.Lock()
	fn := s.onTranscript
	s.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

func (s *Scripted) Fail(err error) {
	s.mu.Lock()
	fn := s.onError
	s.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (s *Scripted) End() {
	s.mu.Lock()
	fn := s.onEnd
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Scripted) Starts() int { s.mu.Lock(); defer s.mu.Unlock(); return s.starts }
func (s *Scripted) Stops() int  { s.mu.Lock(); defer s.mu.Unlock(); return s.stops }
