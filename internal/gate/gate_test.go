package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Omribarzi/lead-generation-agent/internal/config"
)

type memLedger struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMemLedger() *memLedger { return &memLedger{counts: map[string]int{}} }

func (m *memLedger) CountActionsToday(_ context.Context, action string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[action], nil
}

func (m *memLedger) RecordAction(_ context.Context, action, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[action]++
	return nil
}

func testConfig() *config.Config {
	var cfg config.Config
	cfg.Limits.DailyMessages = 5
	cfg.Limits.DailyProfileViews = 10
	cfg.Limits.MinDelaySeconds = 1
	cfg.Limits.MaxDelaySeconds = 3
	cfg.Workflow.Timezone = "UTC"
	cfg.Workflow.WorkStartHour = 9
	cfg.Workflow.WorkEndHour = 18
	return &cfg
}

func noonClock() func() time.Time {
	return func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
}

func TestReserveMessageStopsAtCap(t *testing.T) {
	ledger := newMemLedger()
	g, err := New(ledger, testConfig(), WithClock(noonClock()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := g.ReserveMessage(ctx, "url", "msg"); err != nil {
			t.Fatalf("reservation %d failed: %v", i, err)
		}
	}
	if err := g.ReserveMessage(ctx, "url", "msg"); !errors.Is(err, ErrDailyMessageLimit) {
		t.Fatalf("expected ErrDailyMessageLimit, got %v", err)
	}
	if ledger.counts[ActionMessage] != 5 {
		t.Fatalf("ledger counts %d, want 5", ledger.counts[ActionMessage])
	}
}

func TestReserveConcurrentNeverExceedsCap(t *testing.T) {
	ledger := newMemLedger()
	g, err := New(ledger, testConfig(), WithClock(noonClock()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.ReserveMessage(context.Background(), "url", ""); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 5 {
		t.Fatalf("granted %d reservations, want exactly 5", granted)
	}
	if ledger.counts[ActionMessage] != 5 {
		t.Fatalf("ledger counts %d, want 5", ledger.counts[ActionMessage])
	}
}

func TestProfileViewsAndMessagesCountSeparately(t *testing.T) {
	ledger := newMemLedger()
	g, err := New(ledger, testConfig(), WithClock(noonClock()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := g.ReserveMessage(ctx, "url", ""); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}
	// The message cap is spent; profile views still have budget.
	if err := g.ReserveProfileView(ctx, "url"); err != nil {
		t.Fatalf("ReserveProfileView: %v", err)
	}
}

func TestOutsideWorkingHours(t *testing.T) {
	tests := []struct {
		name string
		hour int
		ok   bool
	}{
		{"before window", 8, false},
		{"window opens", 9, true},
		{"midday", 13, true},
		{"window closes", 18, false},
		{"late night", 23, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clock := func() time.Time { return time.Date(2026, 8, 30, tc.hour, 30, 0, 0, time.UTC) }
			g, err := New(newMemLedger(), testConfig(), WithClock(clock))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			err = g.ReserveMessage(context.Background(), "url", "")
			if tc.ok && err != nil {
				t.Fatalf("expected reservation inside window, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrOutsideWorkingHours) {
				t.Fatalf("expected ErrOutsideWorkingHours, got %v", err)
			}
		})
	}
}

func TestWorkingHoursRespectTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Workflow.Timezone = "Asia/Jerusalem"
	// 07:00 UTC is 10:00 in Jerusalem during daylight saving.
	clock := func() time.Time { return time.Date(2026, 8, 30, 7, 0, 0, 0, time.UTC) }
	g, err := New(newMemLedger(), cfg, WithClock(clock))
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}
	if !g.WithinWorkingHours() {
		t.Fatal("07:00 UTC should be inside the Jerusalem working window")
	}
}

func TestApprovalRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Workflow.RequireHumanApproval = true
	g, err := New(newMemLedger(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !g.ApprovalRequired() {
		t.Fatal("expected approval required")
	}
}

func TestPauseStaysInsideWindow(t *testing.T) {
	var slept time.Duration
	g, err := New(newMemLedger(), testConfig(), WithSleep(func(d time.Duration) { slept = d }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 50; i++ {
		g.Pause()
		if slept < time.Second || slept > 3*time.Second {
			t.Fatalf("pause %v outside [1s, 3s]", slept)
		}
	}
}
