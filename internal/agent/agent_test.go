package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Omribarzi/lead-generation-agent/internal/errs"
	"github.com/Omribarzi/lead-generation-agent/internal/models"
)

// scriptedChat replays canned responses (or errors) in order.
type scriptedChat struct {
	responses []string
	errs      []error
	calls     int
	lastUser  string
}

func (s *scriptedChat) Complete(_ context.Context, _, user string) (string, error) {
	i := s.calls
	s.calls++
	s.lastUser = user
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("script exhausted")
}

var testLead = models.LeadContext{
	FirstName: "Yossi",
	LastName:  "Cohen",
	Company:   "Acme",
	Position:  "HR Manager",
}

const validMessage = "היי יוסי, ראיתי את הניסיון שלך בגיוס בחברת אקמי. מה דעתך על אחריות חברתית?"

func TestGenerateValidDraft(t *testing.T) {
	// 12 Hebrew words, no dashes, no meeting or flattery keywords.
	msg := "היי יוסי, שמתי לב לעבודה שלך באקמי. מה דעתך על אחריות חברתית?"
	chat := &scriptedChat{responses: []string{"  " + msg + "\n"}}
	a := New(chat)

	draft, err := a.Generate(context.Background(), testLead, models.IntentFirstOutreach, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !draft.Valid {
		t.Fatalf("expected valid draft, got errors: %v", draft.Errors)
	}
	if len(draft.Errors) != 0 {
		t.Fatalf("valid draft must have empty error list, got %v", draft.Errors)
	}
	if draft.Content != msg {
		t.Fatalf("content not trimmed: %q", draft.Content)
	}
	if draft.WordCount != 12 {
		t.Fatalf("word count = %d, want 12", draft.WordCount)
	}
	if draft.Intent != models.IntentFirstOutreach {
		t.Fatalf("intent = %q", draft.Intent)
	}
}

func TestGenerateInvalidDraftIsNotAnError(t *testing.T) {
	chat := &scriptedChat{responses: []string{"הפרופיל שלך מרשים מאוד, יוסי"}}
	a := New(chat)

	draft, err := a.Generate(context.Background(), testLead, models.IntentFirstOutreach, "")
	if err != nil {
		t.Fatalf("Generate returned error for invalid content: %v", err)
	}
	if draft.Valid {
		t.Fatal("expected invalid draft")
	}
	if len(draft.Errors) == 0 {
		t.Fatal("invalid draft must carry its violations")
	}
}

func TestGenerateWithRetryReturnsThirdValidDraft(t *testing.T) {
	chat := &scriptedChat{responses: []string{
		"הפרופיל שלך מרשים, יוסי",  // flattery
		"שלום - מה נשמע יוסי",      // dash
		validMessage,
	}}
	a := New(chat)

	draft, err := a.GenerateWithRetry(context.Background(), testLead, models.IntentFirstOutreach, "", 3)
	if err != nil {
		t.Fatalf("GenerateWithRetry: %v", err)
	}
	if chat.calls != 3 {
		t.Fatalf("made %d calls, want 3", chat.calls)
	}
	if !draft.Valid || draft.Content != validMessage {
		t.Fatalf("expected third draft returned, got %+v", draft)
	}
}

func TestGenerateWithRetryStopsOnFirstValid(t *testing.T) {
	chat := &scriptedChat{responses: []string{validMessage, "never used"}}
	a := New(chat)

	if _, err := a.GenerateWithRetry(context.Background(), testLead, models.IntentFirstOutreach, "", 3); err != nil {
		t.Fatalf("GenerateWithRetry: %v", err)
	}
	if chat.calls != 1 {
		t.Fatalf("made %d calls, want 1", chat.calls)
	}
}

func TestGenerateWithRetryReturnsFewestErrorsOnAllInvalid(t *testing.T) {
	chat := &scriptedChat{responses: []string{
		"שלום - מרשים מאוד, בוא נקבע פגישה", // dash + flattery + meeting
		"שלום - מה קורה יוסי",                // dash only
		"מרשים מאוד - כל הכבוד, נקבע פגישה", // dash + flattery + meeting
	}}
	a := New(chat)

	draft, err := a.GenerateWithRetry(context.Background(), testLead, models.IntentFirstOutreach, "", 3)
	if err != nil {
		t.Fatalf("GenerateWithRetry: %v", err)
	}
	if draft.Valid {
		t.Fatal("expected invalid best draft")
	}
	if draft.Content != "שלום - מה קורה יוסי" {
		t.Fatalf("expected the single-violation draft, got %q with %v", draft.Content, draft.Errors)
	}
}

func TestGenerateWithRetryPrefersEarliestOnTies(t *testing.T) {
	chat := &scriptedChat{responses: []string{
		"שלום - ראשון יוסי",
		"שלום - שני יוסי",
		"שלום - שלישי יוסי",
	}}
	a := New(chat)

	draft, err := a.GenerateWithRetry(context.Background(), testLead, models.IntentFirstOutreach, "", 3)
	if err != nil {
		t.Fatalf("GenerateWithRetry: %v", err)
	}
	if draft.Content != "שלום - ראשון יוסי" {
		t.Fatalf("expected earliest tied draft, got %q", draft.Content)
	}
}

func TestGenerateWithRetryExhaustedOnServiceFailures(t *testing.T) {
	boom := &errs.TransportError{Service: "openai", Err: errors.New("connection refused")}
	chat := &scriptedChat{errs: []error{boom, boom, boom}}
	a := New(chat)

	_, err := a.GenerateWithRetry(context.Background(), testLead, models.IntentFirstOutreach, "", 3)
	var exhausted *errs.GenerationExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected GenerationExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", exhausted.Attempts)
	}
}

func TestGenerateWithRetryZeroAttempts(t *testing.T) {
	a := New(&scriptedChat{})
	_, err := a.GenerateWithRetry(context.Background(), testLead, models.IntentFirstOutreach, "", 0)
	var exhausted *errs.GenerationExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected GenerationExhaustedError for zero attempts, got %v", err)
	}
}

func TestGenerateWithRetryRecoversAfterServiceFailure(t *testing.T) {
	boom := &errs.ServiceError{Service: "openai", Message: "rate limited"}
	chat := &scriptedChat{
		errs:      []error{boom, nil},
		responses: []string{"", validMessage},
	}
	a := New(chat)

	draft, err := a.GenerateWithRetry(context.Background(), testLead, models.IntentFirstOutreach, "", 3)
	if err != nil {
		t.Fatalf("GenerateWithRetry: %v", err)
	}
	if !draft.Valid {
		t.Fatalf("expected valid draft after recovery, got %v", draft.Errors)
	}
}

func TestPromptIncludesHistory(t *testing.T) {
	lead := testLead
	lead.History = []models.ConversationEntry{
		{Content: "הודעה ראשונה", FromSelf: true},
		{Content: "תודה על הפנייה", FromSelf: false},
	}
	chat := &scriptedChat{responses: []string{validMessage}}
	a := New(chat)

	if _, err := a.Generate(context.Background(), lead, models.IntentFollowUp, ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(chat.lastUser, "אני: הודעה ראשונה") {
		t.Fatalf("prompt missing self line:\n%s", chat.lastUser)
	}
	if !strings.Contains(chat.lastUser, "Yossi: תודה על הפנייה") {
		t.Fatalf("prompt missing counterpart line:\n%s", chat.lastUser)
	}
}

func TestPromptFirstOutreachFallbacks(t *testing.T) {
	chat := &scriptedChat{responses: []string{validMessage}}
	a := New(chat)

	if _, err := a.Generate(context.Background(), testLead, models.IntentFirstOutreach, ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(chat.lastUser, "לא זמין") {
		t.Fatalf("empty profile fields should fall back to placeholder:\n%s", chat.lastUser)
	}
	if !strings.Contains(chat.lastUser, "Yossi Cohen") {
		t.Fatalf("prompt missing full name:\n%s", chat.lastUser)
	}
}

func TestMeetingRequestPromptCarriesCalendarLink(t *testing.T) {
	chat := &scriptedChat{responses: []string{"בוא נקבע פגישה, הקישור אצלך"}}
	a := New(chat, WithCalendarLink("https://cal.example/book"))

	if _, err := a.Generate(context.Background(), testLead, models.IntentMeetingRequest, ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(chat.lastUser, "https://cal.example/book") {
		t.Fatalf("prompt missing calendar link:\n%s", chat.lastUser)
	}
}
