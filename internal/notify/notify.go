package notify

import (
	"context"
	"log/slog"
	"os/exec"
	"strconv"
	"time"
)

// Urgency levels for notifications
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Notification is one message for one recipient
type Notification struct {
	UserID  int64
	Title   string
	Body    string
	Urgency Urgency
	Timeout time.Duration
	Icon    string // Optional icon name
}

// Sender delivers notifications
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Desktop sends notifications through notify-send
type Desktop struct {
	enabled bool
	// run executes the command; swapped out in tests
	run func(ctx context.Context, name string, args ...string) error
}

// NewDesktop creates a notify-send backed sender
func NewDesktop() *Desktop {
	return &Desktop{
		enabled: true,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// SetEnabled enables or disables notifications
func (d *Desktop) SetEnabled(enabled bool) {
	d.enabled = enabled
}

// Send implements Sender
func (d *Desktop) Send(ctx context.Context, n Notification) error {
	if !d.enabled {
		return nil
	}
	return d.run(ctx, "notify-send", desktopArgs(n)...)
}

func desktopArgs(n Notification) []string {
	args := []string{"-u", n.Urgency.String()}

	// Timeout in milliseconds
	if n.Timeout > 0 {
		args = append(args, "-t", strconv.Itoa(int(n.Timeout.Milliseconds())))
	}
	if n.Icon != "" {
		args = append(args, "-i", n.Icon)
	}
	args = append(args, "-a", "workscope")

	args = append(args, n.Title)
	if n.Body != "" {
		args = append(args, n.Body)
	}
	return args
}

// Log writes notifications to a structured logger. It is the default for
// headless deployments.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a logging sender; nil uses slog.Default()
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Send implements Sender
func (l *Log) Send(ctx context.Context, n Notification) error {
	level := slog.LevelInfo
	if n.Urgency == UrgencyCritical {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, n.Title,
		"user_id", n.UserID,
		"urgency", n.Urgency.String(),
		"body", n.Body,
	)
	return nil
}

// New returns the sender for a configured backend name ("log" or "desktop")
func New(backend string, logger *slog.Logger) Sender {
	if backend == "desktop" {
		return NewDesktop()
	}
	return NewLog(logger)
}
