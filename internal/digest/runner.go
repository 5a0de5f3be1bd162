package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dori/workscope/internal/model"
	"github.com/dori/workscope/internal/notify"
	"github.com/dori/workscope/internal/scope"
	"github.com/dori/workscope/internal/source"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrLocked is returned by Loop when another process already runs the digest
var ErrLocked = errors.New("digest loop is already running")

// Options configures a Runner
type Options struct {
	// Location is the report timezone; nil means UTC
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
	// LockPath guards Loop against a second instance; empty disables locking
	LockPath string
}

// Runner loads the organization's open tasks and sends one notification per
// assignee with something due
type Runner struct {
	store    source.Store
	resolver *scope.Resolver
	sender   notify.Sender
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
	lockPath string
}

// Run is the outcome of one pass
type Run struct {
	ID      string
	Digests []Digest
	Sent    int
}

// NewRunner wires a digest runner
func NewRunner(store source.Store, resolver *scope.Resolver, sender notify.Sender, opts Options) *Runner {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		store:    store,
		resolver: resolver,
		sender:   sender,
		loc:      opts.Location,
		now:      opts.Now,
		log:      opts.Logger,
		lockPath: opts.LockPath,
	}
}

// Collect builds the digests without sending anything
func (r *Runner) Collect(ctx context.Context) ([]Digest, error) {
	var tasks []model.Task
	err := r.store.View(ctx, func(src source.Source) error {
		sc, err := r.resolver.Resolve(ctx, src, scope.Viewer{Admin: true})
		if err != nil {
			return err
		}
		if len(sc.Projects) == 0 {
			return nil
		}
		tasks, err = src.NonArchivedTasks(ctx, sc.Projects.Sorted())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	return Build(tasks, r.now(), r.loc), nil
}

// RunOnce collects and sends one round of digests. A failed send is logged
// and the remaining digests still go out; the first send error is returned.
func (r *Runner) RunOnce(ctx context.Context) (*Run, error) {
	run := &Run{ID: uuid.NewString()}

	digests, err := r.Collect(ctx)
	if err != nil {
		r.log.Error("digest failed", "run_id", run.ID, "error", err)
		return nil, err
	}
	run.Digests = digests

	var firstErr error
	for i := range digests {
		if err := r.sender.Send(ctx, Message(&digests[i])); err != nil {
			r.log.Warn("digest send failed", "run_id", run.ID, "user_id", digests[i].UserID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		run.Sent++
	}

	r.log.Info("digest sent", "run_id", run.ID, "recipients", len(digests), "sent", run.Sent)
	return run, firstErr
}

// Loop runs a digest immediately and then every interval until ctx is done.
// Errors from individual rounds are logged, not returned.
func (r *Runner) Loop(ctx context.Context, interval time.Duration) error {
	if r.lockPath != "" {
		lock := flock.New(r.lockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if !locked {
			return ErrLocked
		}
		defer lock.Unlock()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Message renders a digest as a notification
func Message(d *Digest) notify.Notification {
	var parts []string
	if n := len(d.Overdue); n > 0 {
		parts = append(parts, fmt.Sprintf("%d overdue", n))
	}
	if n := len(d.DueToday); n > 0 {
		parts = append(parts, fmt.Sprintf("%d due today", n))
	}
	if n := len(d.Upcoming); n > 0 {
		parts = append(parts, fmt.Sprintf("%d upcoming", n))
	}

	var body strings.Builder
	line := func(label string, e Entry) {
		fmt.Fprintf(&body, "[%s] %s (%s)\n", label, e.Title, e.Deadline.Format("2006-01-02"))
	}
	for _, e := range d.Overdue {
		line(fmt.Sprintf("%dd late", -e.DaysLeft), e)
	}
	for _, e := range d.DueToday {
		line("today", e)
	}
	for _, e := range d.Upcoming {
		line(fmt.Sprintf("in %dd", e.DaysLeft), e)
	}

	urgency := notify.UrgencyLow
	switch {
	case len(d.Overdue) > 0:
		urgency = notify.UrgencyCritical
	case len(d.DueToday) > 0:
		urgency = notify.UrgencyNormal
	}

	return notify.Notification{
		UserID:  d.UserID,
		Title:   fmt.Sprintf("%s: %s", d.UserName, strings.Join(parts, ", ")),
		Body:    strings.TrimRight(body.String(), "\n"),
		Urgency: urgency,
		Timeout: 15 * time.Second,
		Icon:    "emblem-important-symbolic",
	}
}
