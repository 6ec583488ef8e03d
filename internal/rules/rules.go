// Package rules validates generated outreach messages against the program's
// hard constraints. Validation is pure; a draft collects every violated rule
// in check order.
package rules

import (
	"fmt"
	"strings"

	"github.com/Omribarzi/lead-generation-agent/internal/models"
)

// The documented target is 30 words; enforcement carries a buffer of 5 so a
// 31..35 word message passes.
const maxWords = 35

// First-outreach messages must not ask for a meeting or open with flattery.
var (
	meetingWords  = []string{"פגישה", "להיפגש", "נפגש", "לקבוע"}
	flatteryWords = []string{"מרשים", "מעריץ", "אוהב", "נהדר", "מדהים", "מושלם"}
)

// CountWords counts whitespace-separated tokens.
func CountWords(content string) int {
	return len(strings.Fields(content))
}

// Validate returns the list of violated rules for a draft, in a fixed order.
// An empty result means the draft is valid.
func Validate(content string, intent models.Intent) []string {
	var violations []string

	if wc := CountWords(content); wc > maxWords {
		violations = append(violations, fmt.Sprintf("מספר מילים גבוה מדי: %d (מקסימום 30)", wc))
	}

	if strings.Contains(content, " - ") || strings.Contains(content, "–") || strings.Contains(content, "—") {
		violations = append(violations, "יש מקפים בהודעה (יש להשתמש בפסיק או נקודה)")
	}

	if strings.TrimSpace(content) == "" {
		violations = append(violations, "ההודעה ריקה")
	}

	if intent == models.IntentFirstOutreach {
		for _, w := range meetingWords {
			if strings.Contains(content, w) {
				violations = append(violations, "הודעה ראשונה לא צריכה לבקש פגישה")
				break
			}
		}
		for _, w := range flatteryWords {
			if strings.Contains(content, w) {
				violations = append(violations, fmt.Sprintf("יש מילת חנופה: %s", w))
				break
			}
		}
	}

	return violations
}
