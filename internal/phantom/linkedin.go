package phantom

import (
	"context"
	"time"

	"github.com/Omribarzi/lead-generation-agent/internal/errs"
	"github.com/Omribarzi/lead-generation-agent/internal/models"
)

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// ScrapeProfile runs the profile-scraper agent against one LinkedIn URL and
// maps its result object to a Profile.
func (c *Client) ScrapeProfile(ctx context.Context, agentID, linkedinURL string, timeout, pollInterval time.Duration) (models.Profile, error) {
	job, err := c.LaunchAndWait(ctx, agentID, map[string]any{"profileUrl": linkedinURL}, timeout, pollInterval)
	if err != nil {
		return models.Profile{}, err
	}
	if job.Status == models.JobError {
		return models.Profile{}, &errs.JobFailedError{AgentID: agentID, Message: job.ErrorMessage}
	}

	result := job.ResultObject
	if result == nil {
		result = map[string]any{}
	}
	return models.Profile{
		LinkedInURL:       linkedinURL,
		FirstName:         stringField(result, "firstName"),
		LastName:          stringField(result, "lastName"),
		Company:           stringField(result, "company"),
		Position:          stringField(result, "jobTitle", "title"),
		Headline:          stringField(result, "headline"),
		Location:          stringField(result, "location"),
		ProfilePictureURL: stringField(result, "imgUrl"),
		ConnectionDegree:  stringField(result, "connectionDegree"),
		Summary:           stringField(result, "summary"),
	}, nil
}

// SendMessage runs the message-sender agent for one profile.
func (c *Client) SendMessage(ctx context.Context, agentID, linkedinURL, message string, timeout, pollInterval time.Duration) error {
	job, err := c.LaunchAndWait(ctx, agentID, map[string]any{
		"profileUrl": linkedinURL,
		"message":    message,
	}, timeout, pollInterval)
	if err != nil {
		return err
	}
	if job.Status == models.JobError {
		return &errs.JobFailedError{AgentID: agentID, Message: job.ErrorMessage}
	}
	return nil
}
