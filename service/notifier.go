package service

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a user-facing message raised by a store.
type Notification struct {
	Level   Level     `json:"level"`
	Source  string    `json:"source"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier receives user-facing messages.
type Notifier interface {
	Notify(n Notification)
}

// Feed logs every notification and keeps the most recent ones in memory.
type Feed struct {
	log logrus.FieldLogger
	max int

	mu    sync.Mutex
	items []Notification
}

// NewFeed keeps up to max notifications (50 when max <= 0).
func NewFeed(log logrus.FieldLogger, max int) *Feed {
	if max <= 0 {
		max = 50
	}
	return &Feed{log: log.WithField("component", "notify"), max: max}
}

func (f *Feed) Notify(n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	entry := f.log.WithField("source", n.Source)
	if n.Level == LevelError {
		entry.Error(n.Message)
	} else {
		entry.Info(n.Message)
	}

	f.mu.Lock()
	f.items = append(f.items, n)
	if len(f.items) > f.max {
		f.items = append([]Notification(nil), f.items[len(f.items)-f.max:]...)
	}
	f.mu.Unlock()
}

// Recent returns the retained notifications, oldest first.
func (f *Feed) Recent() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.items...)
}
