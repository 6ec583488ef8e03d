package models

import "strings"

// LeadStatus labels as they appear on the CRM board. The board accepts any
// label; these are the six the pipeline sets.
const (
	StatusNew              = "New"
	StatusContacted        = "Contacted"
	StatusInConversation   = "In Conversation"
	StatusMeetingScheduled = "Meeting Scheduled"
	StatusNotInterested    = "Not Interested"
	StatusWon              = "Won"
)

// Intent is the category of outreach message being generated.
type Intent string

const (
	IntentFirstOutreach  Intent = "first_outreach"
	IntentFollowUp       Intent = "follow_up"
	IntentReply          Intent = "reply"
	IntentMeetingRequest Intent = "meeting_request"
)

// Lead is a row on the CRM board. ItemID is empty until the lead has been
// created and never changes afterwards.
type Lead struct {
	FirstName       string
	LastName        string
	Company         string
	Position        string
	LinkedInURL     string
	Status          string
	Email           string
	Phone           string
	Source          string
	LeadScore       int
	LastMessageDate string
	NextActionDate  string
	MeetingDate     string
	ConversationLog string
	Notes           string
	ItemID          string
}

func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// ConversationEntry is one message in a lead's history, used when rendering
// prompts. FromSelf marks messages we sent.
type ConversationEntry struct {
	Timestamp string
	Content   string
	FromSelf  bool
}

// Profile is the result of scraping a LinkedIn profile through the job
// service.
type Profile struct {
	LinkedInURL       string
	FirstName         string
	LastName          string
	Company           string
	Position          string
	Headline          string
	Location          string
	ProfilePictureURL string
	ConnectionDegree  string
	Summary           string
}

func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// LeadContext carries everything the message generator needs about a lead.
type LeadContext struct {
	FirstName string
	LastName  string
	Company   string
	Position  string
	URL       string
	Headline  string
	Summary   string
	Location  string
	History   []ConversationEntry
}

func (c LeadContext) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// MessageDraft is one generation attempt. Invalid drafts are normal values,
// not errors; Errors lists every violated rule in check order.
type MessageDraft struct {
	Content   string
	Intent    Intent
	WordCount int
	Valid     bool
	Errors    []string
}

// JobStatus is the automation job service's execution state.
type JobStatus string

const (
	JobLaunching JobStatus = "launching"
	JobRunning   JobStatus = "running"
	JobFinished  JobStatus = "finished"
	JobError     JobStatus = "error"
)

// Terminal reports whether the job has stopped. Anything the service does
// not report as running is treated as terminal.
func (s JobStatus) Terminal() bool { return s != JobRunning }

// AutomationJob is the polled output of one remote job execution.
type AutomationJob struct {
	ContainerID  string
	Status       JobStatus
	ResultObject map[string]any
	Output       string
	ExitCode     *int
	ErrorMessage string
}
