// Package notify defines the notification sink the tracking engine emits
// driver-facing alerts into. The production push pipeline is not wired up
// yet, so the default sink only logs.
package notify

import (
	"context"
	"log/slog"
	"time"
)

type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type Sink interface {
	Notify(ctx context.Context, n Notification) error
	Schedule(ctx context.Context, n Notification, at time.Time) error
	CancelAll(ctx context.Context) error
}

// NoopSink discards everything.
type NoopSink struct{}

func (NoopSink) Notify(ctx context.Context, n Notification) error { return nil }

func (NoopSink) Schedule(ctx context.Context, n Notification, at time.Time) error { return nil }

func (NoopSink) CancelAll(ctx context.Context) error { return nil }

// LogSink records notifications through the structured logger so they show
// up in development and in service logs.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Notify(ctx context.Context, n Notification) error {
	s.Logger.Info("notification", "title", n.Title, "message", n.Message)
	return nil
}

func (s LogSink) Schedule(ctx context.Context, n Notification, at time.Time) error {
	s.Logger.Info("notification scheduled", "title", n.Title, "at", at)
	return nil
}

func (s LogSink) CancelAll(ctx context.Context) error {
	s.Logger.Info("scheduled notifications cancelled")
	return nil
}
