// Package gate enforces the outreach safety limits: daily action caps, the
// working-hour window and the human-approval flag. Reservations are
// check-and-record under one lock, so concurrent lead pipelines cannot
// overshoot a cap between the check and the write.
package gate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Omribarzi/lead-generation-agent/internal/config"
)

const (
	ActionMessage     = "message_sent"
	ActionProfileView = "profile_view"
)

var (
	ErrDailyMessageLimit     = errors.New("daily message limit reached")
	ErrDailyProfileViewLimit = errors.New("daily profile view limit reached")
	ErrOutsideWorkingHours   = errors.New("outside working hours")
)

// ActionLedger is the persistent counter backing the daily caps.
type ActionLedger interface {
	CountActionsToday(ctx context.Context, action string) (int, error)
	RecordAction(ctx context.Context, action, leadURL, detail string) error
}

type Gate struct {
	mu sync.Mutex

	ledger          ActionLedger
	messageLimit    int
	viewLimit       int
	requireApproval bool
	startHour       int
	endHour         int
	loc             *time.Location
	minDelay        time.Duration
	maxDelay        time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

type Option func(*Gate)

func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func WithSleep(sleep func(time.Duration)) Option {
	return func(g *Gate) { g.sleep = sleep }
}

func New(ledger ActionLedger, cfg *config.Config, opts ...Option) (*Gate, error) {
	loc, err := time.LoadLocation(cfg.Workflow.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Workflow.Timezone, err)
	}
	g := &Gate{
		ledger:          ledger,
		messageLimit:    cfg.Limits.DailyMessages,
		viewLimit:       cfg.Limits.DailyProfileViews,
		requireApproval: cfg.Workflow.RequireHumanApproval,
		startHour:       cfg.Workflow.WorkStartHour,
		endHour:         cfg.Workflow.WorkEndHour,
		loc:             loc,
		minDelay:        time.Duration(cfg.Limits.MinDelaySeconds) * time.Second,
		maxDelay:        time.Duration(cfg.Limits.MaxDelaySeconds) * time.Second,
		now:             time.Now,
		sleep:           time.Sleep,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ApprovalRequired reports whether automatic sending is disabled. When
// true, drafts must wait for a human regardless of remaining budget.
func (g *Gate) ApprovalRequired() bool { return g.requireApproval }

// WithinWorkingHours reports whether the configured window is open right
// now, in the configured timezone.
func (g *Gate) WithinWorkingHours() bool {
	h := g.now().In(g.loc).Hour()
	return h >= g.startHour && h < g.endHour
}

func (g *Gate) reserve(ctx context.Context, action string, limit int, limitErr error, leadURL, detail string) error {
	if !g.WithinWorkingHours() {
		return ErrOutsideWorkingHours
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	count, err := g.ledger.CountActionsToday(ctx, action)
	if err != nil {
		return fmt.Errorf("count %s actions: %w", action, err)
	}
	if count >= limit {
		return limitErr
	}
	return g.ledger.RecordAction(ctx, action, leadURL, detail)
}

// ReserveMessage claims one unit of today's message budget.
func (g *Gate) ReserveMessage(ctx context.Context, leadURL, detail string) error {
	return g.reserve(ctx, ActionMessage, g.messageLimit, ErrDailyMessageLimit, leadURL, detail)
}

// ReserveProfileView claims one unit of today's profile-view budget.
func (g *Gate) ReserveProfileView(ctx context.Context, leadURL string) error {
	return g.reserve(ctx, ActionProfileView, g.viewLimit, ErrDailyProfileViewLimit, leadURL, "")
}

// Pause sleeps a random duration inside the configured inter-action window.
func (g *Gate) Pause() {
	min, max := g.minDelay, g.maxDelay
	if max < min {
		max = min
	}
	d := min
	if span := max - min; span > 0 {
		d += time.Duration(rand.Int63n(int64(span) + 1))
	}
	g.sleep(d)
}
