// Package agent generates personalized Hebrew outreach messages for leads
// and enforces the program's message rules through bounded retries.
package agent

import (
	"context"
	"strings"

	"github.com/Omribarzi/lead-generation-agent/internal/errs"
	"github.com/Omribarzi/lead-generation-agent/internal/logging"
	"github.com/Omribarzi/lead-generation-agent/internal/models"
	"github.com/Omribarzi/lead-generation-agent/internal/rules"
)

// ChatCompleter is a single-turn chat completion service.
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Agent struct {
	chat         ChatCompleter
	calendarLink string
	log          *logging.Logger
}

type Option func(*Agent)

func WithCalendarLink(link string) Option {
	return func(a *Agent) { a.calendarLink = link }
}

func WithLogger(log *logging.Logger) Option {
	return func(a *Agent) { a.log = log }
}

func New(chat ChatCompleter, opts ...Option) *Agent {
	a := &Agent{
		chat: chat,
		log:  logging.New("info").With("module", "agent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generate produces one draft for a lead. Rule violations are reported on
// the draft, never as an error; only a failing chat service errors out.
func (a *Agent) Generate(ctx context.Context, lead models.LeadContext, intent models.Intent, lastMessage string) (models.MessageDraft, error) {
	prompt := a.buildPrompt(lead, intent, lastMessage)

	raw, err := a.chat.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return models.MessageDraft{}, err
	}
	content := strings.TrimSpace(raw)

	violations := rules.Validate(content, intent)
	return models.MessageDraft{
		Content:   content,
		Intent:    intent,
		WordCount: rules.CountWords(content),
		Valid:     len(violations) == 0,
		Errors:    violations,
	}, nil
}

// GenerateWithRetry calls Generate up to maxAttempts times and returns the
// first valid draft. If every attempt is invalid it returns the draft with
// the fewest violations, keeping the earliest on ties, so the caller can
// still decide whether to send it. It fails only when the chat service
// itself failed on every attempt, or maxAttempts allows none.
func (a *Agent) GenerateWithRetry(ctx context.Context, lead models.LeadContext, intent models.Intent, lastMessage string, maxAttempts int) (models.MessageDraft, error) {
	if maxAttempts <= 0 {
		return models.MessageDraft{}, &errs.GenerationExhaustedError{Attempts: 0}
	}

	var best *models.MessageDraft
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		draft, err := a.Generate(ctx, lead, intent, lastMessage)
		if err != nil {
			lastErr = err
			a.log.Warn("generation attempt failed", "attempt", attempt, "err", err)
			continue
		}
		if draft.Valid {
			return draft, nil
		}
		a.log.Debug("draft rejected", "attempt", attempt, "violations", len(draft.Errors))
		if best == nil || len(draft.Errors) < len(best.Errors) {
			d := draft
			best = &d
		}
	}

	if best == nil {
		return models.MessageDraft{}, &errs.GenerationExhaustedError{Attempts: maxAttempts, LastErr: lastErr}
	}
	return *best, nil
}

// Intent-specific helpers mirroring how the pipeline calls the agent.

func (a *Agent) FirstOutreach(ctx context.Context, lead models.LeadContext, maxAttempts int) (models.MessageDraft, error) {
	return a.GenerateWithRetry(ctx, lead, models.IntentFirstOutreach, "", maxAttempts)
}

func (a *Agent) FollowUp(ctx context.Context, lead models.LeadContext, maxAttempts int) (models.MessageDraft, error) {
	return a.GenerateWithRetry(ctx, lead, models.IntentFollowUp, "", maxAttempts)
}

func (a *Agent) Reply(ctx context.Context, lead models.LeadContext, theirMessage string, maxAttempts int) (models.MessageDraft, error) {
	return a.GenerateWithRetry(ctx, lead, models.IntentReply, theirMessage, maxAttempts)
}

func (a *Agent) MeetingRequest(ctx context.Context, lead models.LeadContext, maxAttempts int) (models.MessageDraft, error) {
	return a.GenerateWithRetry(ctx, lead, models.IntentMeetingRequest, "", maxAttempts)
}
