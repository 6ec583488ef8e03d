package crm

// Logical lead fields and their board column ids. The ids are the static
// column table of the Ksharim pipeline board; keeping them in one lookup
// lets the mapping be unit-tested away from the network.
const (
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldCompany         = "company"
	FieldPosition        = "position"
	FieldLinkedInURL     = "linkedin_url"
	FieldStatus          = "status"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldLeadScore       = "lead_score"
	FieldSource          = "source"
	FieldLastMessageDate = "last_message_date"
	FieldNextActionDate  = "next_action_date"
	FieldMeetingDate     = "meeting_date"
	FieldConversationLog = "conversation_log"
	FieldNotes           = "notes"
)

// Columns maps logical field names to board column ids.
var Columns = map[string]string{
	FieldFirstName:       "text_first_name",
	FieldLastName:        "text_last_name",
	FieldCompany:         "text_company",
	FieldPosition:        "text_position",
	FieldLinkedInURL:     "link_linkedin",
	FieldStatus:          "status",
	FieldEmail:           "email_contact",
	FieldPhone:           "phone_contact",
	FieldLeadScore:       "numbers_score",
	FieldSource:          "text_source",
	FieldLastMessageDate: "date_last_message",
	FieldNextActionDate:  "date_next_action",
	FieldMeetingDate:     "date_meeting",
	FieldConversationLog: "long_text_log",
	FieldNotes:           "long_text_notes",
}
