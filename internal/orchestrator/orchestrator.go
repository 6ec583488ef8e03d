// Package orchestrator sequences the outreach pipeline for each lead:
// scrape the profile, compose a message, send it, record the outcome. It is
// the only caller of the job, generation and CRM clients; they never call
// each other.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Omribarzi/lead-generation-agent/internal/logging"
	"github.com/Omribarzi/lead-generation-agent/internal/models"
)

const generationAttempts = 3

// JobService runs the remote automation jobs.
type JobService interface {
	ScrapeProfile(ctx context.Context, linkedinURL string) (models.Profile, error)
	SendMessage(ctx context.Context, linkedinURL, message string) error
}

// Generator composes rule-checked outreach messages.
type Generator interface {
	GenerateWithRetry(ctx context.Context, lead models.LeadContext, intent models.Intent, lastMessage string, maxAttempts int) (models.MessageDraft, error)
}

// LeadStore records lead state in the CRM.
type LeadStore interface {
	CreateLead(ctx context.Context, lead models.Lead) (string, error)
	UpdateStatus(ctx context.Context, itemID, status string) error
	AppendToConversationLog(ctx context.Context, itemID, message string) error
	UpdateLastMessageDate(ctx context.Context, itemID string) error
}

// RateGate bounds outbound actions.
type RateGate interface {
	ApprovalRequired() bool
	ReserveMessage(ctx context.Context, leadURL, detail string) error
	ReserveProfileView(ctx context.Context, leadURL string) error
	Pause()
}

// RunLedger records pipeline runs locally.
type RunLedger interface {
	StartRun(ctx context.Context, runID, runType string) error
	FinishRun(ctx context.Context, runID, summary string) error
}

type Engine struct {
	jobs  JobService
	gen   Generator
	leads LeadStore
	gate  RateGate
	runs  RunLedger
	log   *logging.Logger
}

func New(jobs JobService, gen Generator, leads LeadStore, gate RateGate, runs RunLedger, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.New("info")
	}
	return &Engine{jobs: jobs, gen: gen, leads: leads, gate: gate, runs: runs, log: log.With("module", "orchestrator")}
}

// Result is the outcome of one lead's pipeline.
type Result struct {
	ItemID          string
	Profile         models.Profile
	Draft           models.MessageDraft
	Sent            bool
	PendingApproval bool
}

// ProcessLead runs the first-outreach pipeline for one profile URL. Errors
// from the external services propagate unchanged. A send that succeeds but
// whose CRM record update fails is reported as an error with Sent still
// true; there is no transactional boundary spanning the two services.
func (e *Engine) ProcessLead(ctx context.Context, linkedinURL string) (Result, error) {
	var res Result

	if err := e.gate.ReserveProfileView(ctx, linkedinURL); err != nil {
		return res, err
	}

	profile, err := e.jobs.ScrapeProfile(ctx, linkedinURL)
	if err != nil {
		return res, err
	}
	res.Profile = profile
	e.log.Info("profile scraped", "url", linkedinURL, "name", profile.FullName())

	itemID, err := e.leads.CreateLead(ctx, models.Lead{
		FirstName:   profile.FirstName,
		LastName:    profile.LastName,
		Company:     profile.Company,
		Position:    profile.Position,
		LinkedInURL: profile.LinkedInURL,
		Status:      models.StatusNew,
		Source:      "linkedin",
	})
	if err != nil {
		return res, err
	}
	res.ItemID = itemID

	draft, err := e.gen.GenerateWithRetry(ctx, models.LeadContext{
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Company:   profile.Company,
		Position:  profile.Position,
		URL:       profile.LinkedInURL,
		Headline:  profile.Headline,
		Summary:   profile.Summary,
		Location:  profile.Location,
	}, models.IntentFirstOutreach, "", generationAttempts)
	if err != nil {
		return res, err
	}
	res.Draft = draft

	if !draft.Valid {
		e.log.Warn("no valid draft, skipping send", "url", linkedinURL, "violations", draft.Errors)
		return res, nil
	}

	if e.gate.ApprovalRequired() {
		res.PendingApproval = true
		if err := e.leads.AppendToConversationLog(ctx, itemID, "[ממתין לאישור] "+draft.Content); err != nil {
			return res, err
		}
		e.log.Info("draft awaiting approval", "url", linkedinURL, "item_id", itemID)
		return res, nil
	}

	if err := e.gate.ReserveMessage(ctx, linkedinURL, draft.Content); err != nil {
		return res, err
	}
	if err := e.jobs.SendMessage(ctx, linkedinURL, draft.Content); err != nil {
		return res, err
	}
	res.Sent = true
	e.log.Info("message sent", "url", linkedinURL, "words", draft.WordCount)

	// No rollback past this point: the message is out even if the CRM
	// update fails, and the log will under-represent reality.
	if err := e.leads.UpdateStatus(ctx, itemID, models.StatusContacted); err != nil {
		return res, fmt.Errorf("message sent but status update failed: %w", err)
	}
	if err := e.leads.AppendToConversationLog(ctx, itemID, draft.Content); err != nil {
		return res, fmt.Errorf("message sent but log append failed: %w", err)
	}
	if err := e.leads.UpdateLastMessageDate(ctx, itemID); err != nil {
		return res, fmt.Errorf("message sent but date update failed: %w", err)
	}
	return res, nil
}

// ProcessLeads runs the pipeline for several profiles with bounded
// concurrency. A failed lead is logged and skipped; it never aborts the
// others. Ordering across leads is not guaranteed.
func (e *Engine) ProcessLeads(ctx context.Context, urls []string, concurrency int) ([]Result, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	runID := uuid.NewString()
	if e.runs != nil {
		if err := e.runs.StartRun(ctx, runID, "outreach"); err != nil {
			e.log.Warn("run log start failed", "err", err)
		}
	}

	results := make([]Result, len(urls))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			res, err := e.ProcessLead(ctx, url)
			if err != nil {
				e.log.Error("lead pipeline failed", "url", url, "err", err)
			}
			results[i] = res
			e.gate.Pause()
			return nil
		})
	}
	_ = g.Wait()

	sent := 0
	for _, r := range results {
		if r.Sent {
			sent++
		}
	}
	if e.runs != nil {
		summary := fmt.Sprintf("leads=%d sent=%d", len(urls), sent)
		if err := e.runs.FinishRun(ctx, runID, summary); err != nil {
			e.log.Warn("run log finish failed", "err", err)
		}
	}
	e.log.Info("run finished", "run_id", runID, "leads", len(urls), "sent", sent)
	return results, nil
}
