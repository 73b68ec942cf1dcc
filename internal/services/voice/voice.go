// Package voice turns an external speech recognizer into search text.
//
// The recognizer is a capability owned by the host (a browser, a speech
// daemon, a test script). The Adapter only consumes what it delivers: one
// final transcript per listening session.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"casesearch/internal/lib/logger/sl"
	"casesearch/internal/services/notify"
)

var ErrUnsupported = errors.New("speech recognition is not supported")

// RecognitionError is a failure reported mid-session by the recognizer.
type RecognitionError struct {
	Err error
}

func (e *RecognitionError) Error() string { return "speech recognition: " + e.Err.Error() }
func (e *RecognitionError) Unwrap() error { return e.Err }

type Transcript struct {
	Text  string
	Final bool
}

type Recognizer interface {
	Start(ctx context.Context) error
	Stop() error
	OnTranscript(fn func(Transcript))
	OnError(fn func(error))
}

// Ender is implemented by recognizers that report the natural end of a
// session without a result.
type Ender interface {
	OnEnd(fn func())
}

type State int

const (
	Idle State = iota
	Listening
	Error
)

func (s State) String() string {
	switch s {
	case Listening:
		return "listening"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

type Adapter struct {
	log            *slog.Logger
	rec            Recognizer
	notifier       notify.Notifier
	onSearchUpdate func(string)

	mu          sync.Mutex
	state       State
	delivered   bool
	onListening func(bool)
}

// NewAdapter wires rec's callbacks. A nil rec yields an adapter that reports
// itself unsupported and never listens.
func NewAdapter(log *slog.Logger, rec Recognizer, notifier notify.Notifier, onSearchUpdate func(string)) *Adapter {
	if notifier == nil {
		notifier = notify.Discard
	}
	a := &Adapter{
		log:            log,
		rec:            rec,
		notifier:       notifier,
		onSearchUpdate: onSearchUpdate,
	}
	if rec != nil {
		rec.OnTranscript(a.handleTranscript)
		rec.OnError(a.handleError)
		if e, ok := rec.(Ender); ok {
			e.OnEnd(a.handleEnd)
		}
	}
	return a
}

func (a *Adapter) Supported() bool { return a.rec != nil }

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Adapter) Listening() bool { return a.State() == Listening }

// OnListeningChange registers the observer of Idle/Listening transitions.
func (a *Adapter) OnListeningChange(fn func(bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onListening = fn
}

// Start opens a listening session. Starting while listening is a no-op.
func (a *Adapter) Start(ctx context.Context) error {
	const op = "voice.Adapter.Start"

	if !a.Supported() {
		return ErrUnsupported
	}

	a.mu.Lock()
	if a.state == Listening {
		a.mu.Unlock()
		return nil
	}
	a.state = Listening
	a.delivered = false
	a.mu.Unlock()

	if err := a.rec.Start(ctx); err != nil {
		a.settle()
		a.log.Error("Failed to start speech recognition", sl.Err(err))
		a.notifier.Notify(notify.KindError, "Voice search unavailable", "Please use text search instead")
		return fmt.Errorf("%s: %w", op, err)
	}

	a.log.Debug("Voice search listening")
	a.emitListening(true)

	return nil
}

// Stop ends the session. Stopping while idle is a no-op.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	if a.state != Listening {
		a.mu.Unlock()
		return nil
	}
	a.state = Idle
	a.mu.Unlock()

	a.emitListening(false)

	return a.rec.Stop()
}

func (a *Adapter) handleTranscript(t Transcript) {
	if !t.Final {
		return
	}

	a.mu.Lock()
	if a.state != Listening || a.delivered {
		a.mu.Unlock()
		return
	}
	a.delivered = true
	a.state = Idle
	a.mu.Unlock()

	a.emitListening(false)

	a.log.Info("Voice search captured", slog.String("transcript", t.Text))
	a.notifier.Notify(notify.KindInfo, "Voice search captured", fmt.Sprintf("Searching for: %q", t.Text))

	if a.onSearchUpdate != nil {
		a.onSearchUpdate(t.Text)
	}

	if err := a.rec.Stop(); err != nil {
		a.log.Debug("Failed to stop recognizer after final result", sl.Err(err))
	}
}

func (a *Adapter) handleError(err error) {
	a.mu.Lock()
	if a.state != Listening {
		a.mu.Unlock()
		return
	}
	a.state = Error
	a.mu.Unlock()

	a.log.Error("Speech recognition error", sl.Err(err))
	a.notifier.Notify(notify.KindError, "Voice search error", "Please try again or use text search")

	a.settle()
	a.emitListening(false)
}

func (a *Adapter) handleEnd() {
	a.mu.Lock()
	if a.state != Listening {
		a.mu.Unlock()
		return
	}
	a.state = Idle
	a.mu.Unlock()

	a.emitListening(false)
}

func (a *Adapter) settle() {
	a.mu.Lock()
	a.state = Idle
	a.mu.Unlock()
}

func (a *Adapter) emitListening(listening bool) {
	a.mu.Lock()
	fn := a.onListening
	a.mu.Unlock()
	if fn != nil {
		fn(listening)
	}
}
