// Package notify is the fire-and-forget user notification channel shared by
// the API client, the voice adapter and the front-ends.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Notification struct {
	Kind    Kind
	Title   string
	Message string
}

type Notifier interface {
	Notify(kind Kind, title, message string)
}

// Func adapts a plain function to Notifier.
type Func func(kind Kind, title, message string)

func (f Func) Notify(kind Kind, title, message string) { f(kind, title, message) }

// Log writes notifications to a slog logger. Errors go out at warn level.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(kind Kind, title, message string) {
	level := slog.LevelInfo
	if kind == KindError {
		level = slog.LevelWarn
	}
	l.log.Log(context.Background(), level, "notification", "kind", string(kind), "title", title, "message", message)
}

// Recorder keeps every notification in order of arrival.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(kind Kind, title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Kind: kind, Title: title, Message: message})
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.items {
		if it.Kind == kind {
			n++
		}
	}
	return n
}

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(kind Kind, title, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(kind, title, message)
		}
	}
}

// Discard drops everything.
var Discard Notifier = Func(func(Kind, string, string) {})
