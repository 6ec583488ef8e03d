package rules

import (
	"strings"
	"testing"

	"github.com/Omribarzi/lead-generation-agent/internal/models"
)

func hebrewWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "שלום"
	}
	return strings.Join(words, " ")
}

func TestValidateWordCountBoundary(t *testing.T) {
	tests := []struct {
		name  string
		words int
		fires bool
	}{
		{"target length", 30, false},
		{"inside buffer", 33, false},
		{"at ceiling", 35, false},
		{"over ceiling", 36, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			violations := Validate(hebrewWords(tc.words), models.IntentFollowUp)
			fired := false
			for _, v := range violations {
				if strings.Contains(v, "מספר מילים") {
					fired = true
				}
			}
			if fired != tc.fires {
				t.Fatalf("words=%d: word-count rule fired=%v, want %v (violations: %v)", tc.words, fired, tc.fires, violations)
			}
		})
	}
}

func TestValidateDashes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		fires   bool
	}{
		{"spaced hyphen", "שלום - מה נשמע", true},
		{"en dash", "שלום – מה נשמע", true},
		{"em dash", "שלום — מה נשמע", true},
		{"hyphenated word ok", "ביטחון-מידע זה תחום מעניין", false},
		{"no dash", "שלום, מה נשמע", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			violations := Validate(tc.content, models.IntentReply)
			fired := false
			for _, v := range violations {
				if strings.Contains(v, "מקפים") {
					fired = true
				}
			}
			if fired != tc.fires {
				t.Fatalf("dash rule fired=%v, want %v for %q", fired, tc.fires, tc.content)
			}
		})
	}
}

func TestValidateEmpty(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\t "} {
		violations := Validate(content, models.IntentFirstOutreach)
		if len(violations) == 0 {
			t.Fatalf("empty content %q produced no violations", content)
		}
	}
}

func TestValidateFirstOutreachMeetingWords(t *testing.T) {
	content := "היי יוסי, אולי נקבע פגישה השבוע?"
	violations := Validate(content, models.IntentFirstOutreach)
	found := false
	for _, v := range violations {
		if strings.Contains(v, "פגישה") {
			found = true
		}
	}
	if !found {
		t.Fatalf("meeting-word rule did not fire: %v", violations)
	}

	// Same content is fine for a meeting request.
	if vs := Validate(content, models.IntentMeetingRequest); len(vs) != 0 {
		t.Fatalf("meeting request wrongly flagged: %v", vs)
	}
}

func TestValidateFlatteryFirstMatchOnly(t *testing.T) {
	content := "הפרופיל שלך מרשים ומדהים, יוסי"
	violations := Validate(content, models.IntentFirstOutreach)

	flattery := 0
	for _, v := range violations {
		if strings.Contains(v, "חנופה") {
			flattery++
			if !strings.Contains(v, "מרשים") {
				t.Fatalf("expected first flattery word reported, got %q", v)
			}
		}
	}
	if flattery != 1 {
		t.Fatalf("expected exactly one flattery violation, got %d: %v", flattery, violations)
	}
}

func TestValidateAccumulatesAllRules(t *testing.T) {
	// Over-long, dashed, asks for a meeting and flatters, all at once.
	content := hebrewWords(36) + " - מרשים מאוד, בוא נקבע פגישה"
	violations := Validate(content, models.IntentFirstOutreach)
	if len(violations) != 4 {
		t.Fatalf("expected 4 violations, got %d: %v", len(violations), violations)
	}
}

func TestValidCleanFirstOutreach(t *testing.T) {
	content := "היי יוסי, ראיתי את העבודה שלך בתחום משאבי האנוש. מה דעתך על אחריות חברתית?"
	violations := Validate(content, models.IntentFirstOutreach)
	if len(violations) != 0 {
		t.Fatalf("expected valid message, got violations: %v", violations)
	}
}

func TestCountWords(t *testing.T) {
	if got := CountWords("אחת שתיים  שלוש\nארבע"); got != 4 {
		t.Fatalf("CountWords = %d, want 4", got)
	}
	if got := CountWords(""); got != 0 {
		t.Fatalf("CountWords empty = %d, want 0", got)
	}
}
