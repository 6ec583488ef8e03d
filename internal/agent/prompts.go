package agent

import (
	"fmt"
	"strings"

	"github.com/Omribarzi/lead-generation-agent/internal/models"
)

// System prompt for the Ksharim outreach persona. Hebrew only, hard limits
// on length, tone and first-message behavior.
const systemPrompt = `אתה גיא ממגדלור - ארגון בוגרי קורס חובלים.

כללים:
- עברית בלבד
- מקסימום 30 מילים בהודעה
- ללא מקפים (השתמש בפסיק או נקודה)
- לעולם אל תתחיל במילת פועל
- טון דיבור, פרגמטי
- מקסימום 2 שאלות בשיחה
- לעולם אל תבקש פגישה בהודעה ראשונה

כללים להודעה ראשונה:
- ברך בשם
- התייחס לפרט אחד ספציפי מהפרופיל שלהם
- ללא מילות חנופה (מרשים, מעריץ, אוהב)
- סיים בשאלה אחת נועזת על CSR/אחריות חברתית

מה אנחנו מציעים:
תוכנית "קשרים" של מגדלור מחברת בין חיילים משוחררים לבוגרי קורס החובלים שלנו בתעשייה של פיננסים, הייטק ועסקים, ומסייעת למשוחררים להתקדם בקריירה.`

const promptReminder = `זכור: עברית בלבד, מקסימום 30 מילים, ללא מקפים, לא להתחיל בפועל, טון דיבור פרגמטי.`

const notAvailable = "לא זמין"

func orNotAvailable(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

// renderHistory renders the conversation as alternating lines, "אני" for
// messages we sent and the lead's first name for theirs.
func renderHistory(lead models.LeadContext) string {
	if len(lead.History) == 0 {
		return "אין היסטוריה קודמת"
	}
	lines := make([]string, 0, len(lead.History))
	for _, entry := range lead.History {
		sender := lead.FirstName
		if entry.FromSelf {
			sender = "אני"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", sender, entry.Content))
	}
	return strings.Join(lines, "\n")
}

func (a *Agent) buildPrompt(lead models.LeadContext, intent models.Intent, lastMessage string) string {
	switch intent {
	case models.IntentFollowUp:
		return fmt.Sprintf(`צור הודעת המשך (follow-up) עבור:
שם: %s
תפקיד: %s
חברה: %s

היסטוריית שיחה:
%s

%s`, lead.FullName(), lead.Position, lead.Company, renderHistory(lead), promptReminder)

	case models.IntentReply:
		return fmt.Sprintf(`צור תגובה להודעה שקיבלנו מ:
שם: %s
תפקיד: %s
חברה: %s

היסטוריית שיחה:
%s

ההודעה האחרונה שלהם:
%s

%s`, lead.FullName(), lead.Position, lead.Company, renderHistory(lead), lastMessage, promptReminder)

	case models.IntentMeetingRequest:
		return fmt.Sprintf(`צור הודעה לבקשת פגישה עבור:
שם: %s
תפקיד: %s
חברה: %s

היסטוריית שיחה:
%s

קישור ליומן: %s

%s`, lead.FullName(), lead.Position, lead.Company, renderHistory(lead), a.calendarLink, promptReminder)

	default: // first outreach
		return fmt.Sprintf(`צור הודעת לינקדאין ראשונה עבור:
שם: %s
תפקיד: %s
חברה: %s
כותרת: %s
סיכום: %s
מיקום: %s

%s`, lead.FullName(), lead.Position, lead.Company,
			orNotAvailable(lead.Headline), orNotAvailable(lead.Summary), orNotAvailable(lead.Location),
			promptReminder)
	}
}
