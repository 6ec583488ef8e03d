// Package crm is the Monday.com lead store. The board is the system of
// record for lead identity, status and conversation history; every
// operation here is one or two GraphQL round-trips with no local caching,
// so the conflict policy is last write wins.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Omribarzi/lead-generation-agent/internal/errs"
	"github.com/Omribarzi/lead-generation-agent/internal/logging"
	"github.com/Omribarzi/lead-generation-agent/internal/models"
)

const (
	defaultAPIURL = "https://api.monday.com/v2"

	serviceName = "monday"

	pageSize = 100
)

type Client struct {
	apiKey  string
	boardID string
	url     string
	hc      *http.Client
	now     func() time.Time
	log     *logging.Logger
}

type Option func(*Client)

// WithURL overrides the API endpoint, for tests.
func WithURL(url string) Option {
	return func(c *Client) { c.url = url }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithClock injects the time source used for log timestamps and dates.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithLogger(log *logging.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(apiKey, boardID string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		boardID: boardID,
		url:     defaultAPIURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
		log:     logging.New("info").With("module", "crm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphQLError struct {
	Message string `json:"message"`
}

func (c *Client) execQuery(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	payload := map[string]any{"query": query}
	if len(variables) > 0 {
		payload["variables"] = variables
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &errs.TransportError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.TransportError{Service: serviceName, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &errs.TransportError{
			Service: serviceName,
			Err:     fmt.Errorf("unexpected status %d: %s", resp.StatusCode, raw),
		}
	}

	var out struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &errs.TransportError{Service: serviceName, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, len(out.Errors))
		for i, e := range out.Errors {
			msgs[i] = e.Message
		}
		return nil, &errs.ServiceError{Service: serviceName, Message: strings.Join(msgs, "; ")}
	}
	return out.Data, nil
}

// columnValues maps every populated lead field to its column value. Unset
// optional fields are omitted entirely so no empty columns get written.
func columnValues(lead models.Lead) map[string]any {
	vals := map[string]any{}
	put := func(field, s string) {
		if s != "" {
			vals[Columns[field]] = s
		}
	}
	put(FieldFirstName, lead.FirstName)
	put(FieldLastName, lead.LastName)
	put(FieldCompany, lead.Company)
	put(FieldPosition, lead.Position)
	put(FieldSource, lead.Source)
	if lead.LinkedInURL != "" {
		vals[Columns[FieldLinkedInURL]] = map[string]any{"url": lead.LinkedInURL, "text": "LinkedIn"}
	}
	if lead.Status != "" {
		vals[Columns[FieldStatus]] = map[string]any{"label": lead.Status}
	}
	if lead.Email != "" {
		vals[Columns[FieldEmail]] = map[string]any{"email": lead.Email, "text": lead.Email}
	}
	if lead.Phone != "" {
		vals[Columns[FieldPhone]] = map[string]any{"phone": lead.Phone}
	}
	if lead.LeadScore != 0 {
		vals[Columns[FieldLeadScore]] = lead.LeadScore
	}
	if lead.LastMessageDate != "" {
		vals[Columns[FieldLastMessageDate]] = map[string]any{"date": lead.LastMessageDate}
	}
	if lead.NextActionDate != "" {
		vals[Columns[FieldNextActionDate]] = map[string]any{"date": lead.NextActionDate}
	}
	if lead.MeetingDate != "" {
		vals[Columns[FieldMeetingDate]] = map[string]any{"date": lead.MeetingDate}
	}
	if lead.ConversationLog != "" {
		vals[Columns[FieldConversationLog]] = map[string]any{"text": lead.ConversationLog}
	}
	if lead.Notes != "" {
		vals[Columns[FieldNotes]] = map[string]any{"text": lead.Notes}
	}
	return vals
}

const createItemQuery = `
mutation ($board_id: ID!, $item_name: String!, $column_values: JSON!) {
	create_item (board_id: $board_id, item_name: $item_name, column_values: $column_values) {
		id
	}
}`

// CreateLead creates a board item for the lead and returns its item id.
func (c *Client) CreateLead(ctx context.Context, lead models.Lead) (string, error) {
	colVals, err := json.Marshal(columnValues(lead))
	if err != nil {
		return "", fmt.Errorf("encode column values: %w", err)
	}
	data, err := c.execQuery(ctx, createItemQuery, map[string]any{
		"board_id":      c.boardID,
		"item_name":     lead.FullName(),
		"column_values": string(colVals),
	})
	if err != nil {
		return "", err
	}
	var out struct {
		CreateItem struct {
			ID string `json:"id"`
		} `json:"create_item"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", &errs.TransportError{Service: serviceName, Err: fmt.Errorf("decode create_item: %w", err)}
	}
	c.log.Info("lead created", "item_id", out.CreateItem.ID, "name", lead.FullName())
	return out.CreateItem.ID, nil
}

const changeColumnsQuery = `
mutation ($board_id: ID!, $item_id: ID!, $column_values: JSON!) {
	change_multiple_column_values (board_id: $board_id, item_id: $item_id, column_values: $column_values) {
		id
	}
}`

func (c *Client) changeColumns(ctx context.Context, itemID string, vals map[string]any) error {
	colVals, err := json.Marshal(vals)
	if err != nil {
		return fmt.Errorf("encode column values: %w", err)
	}
	_, err = c.execQuery(ctx, changeColumnsQuery, map[string]any{
		"board_id":      c.boardID,
		"item_id":       itemID,
		"column_values": string(colVals),
	})
	return err
}

// UpdateStatus sets the status label. The label is passed through unchecked;
// the board accepts any configured label.
func (c *Client) UpdateStatus(ctx context.Context, itemID, status string) error {
	return c.changeColumns(ctx, itemID, map[string]any{
		Columns[FieldStatus]: map[string]any{"label": status},
	})
}

// FieldUpdate is a partial update; only non-nil fields are sent.
type FieldUpdate struct {
	Status          *string
	Email           *string
	Phone           *string
	LeadScore       *int
	Source          *string
	LastMessageDate *string
	NextActionDate  *string
	MeetingDate     *string
	Notes           *string
}

func (c *Client) UpdateFields(ctx context.Context, itemID string, upd FieldUpdate) error {
	vals := map[string]any{}
	if upd.Status != nil {
		vals[Columns[FieldStatus]] = map[string]any{"label": *upd.Status}
	}
	if upd.Email != nil {
		vals[Columns[FieldEmail]] = map[string]any{"email": *upd.Email, "text": *upd.Email}
	}
	if upd.Phone != nil {
		vals[Columns[FieldPhone]] = map[string]any{"phone": *upd.Phone}
	}
	if upd.LeadScore != nil {
		vals[Columns[FieldLeadScore]] = *upd.LeadScore
	}
	if upd.Source != nil {
		vals[Columns[FieldSource]] = *upd.Source
	}
	if upd.LastMessageDate != nil {
		vals[Columns[FieldLastMessageDate]] = map[string]any{"date": *upd.LastMessageDate}
	}
	if upd.NextActionDate != nil {
		vals[Columns[FieldNextActionDate]] = map[string]any{"date": *upd.NextActionDate}
	}
	if upd.MeetingDate != nil {
		vals[Columns[FieldMeetingDate]] = map[string]any{"date": *upd.MeetingDate}
	}
	if upd.Notes != nil {
		vals[Columns[FieldNotes]] = map[string]any{"text": *upd.Notes}
	}
	if len(vals) == 0 {
		return nil
	}
	return c.changeColumns(ctx, itemID, vals)
}

// UpdateLastMessageDate stamps the last-message date with today.
func (c *Client) UpdateLastMessageDate(ctx context.Context, itemID string) error {
	today := c.now().Format("2006-01-02")
	return c.UpdateFields(ctx, itemID, FieldUpdate{LastMessageDate: &today})
}

const itemLogQuery = `
query ($item_id: [ID!]) {
	items (ids: $item_id) {
		column_values {
			id
			text
		}
	}
}`

// AppendToConversationLog reads the current log, appends a timestamped
// entry and writes the whole text back. This is read-modify-write with no
// locking: concurrent appends to the same lead race and the later write
// wins.
func (c *Client) AppendToConversationLog(ctx context.Context, itemID, message string) error {
	data, err := c.execQuery(ctx, itemLogQuery, map[string]any{"item_id": []string{itemID}})
	if err != nil {
		return err
	}
	var out struct {
		Items []struct {
			ColumnValues []struct {
				ID   string `json:"id"`
				Text string `json:"text"`
			} `json:"column_values"`
		} `json:"items"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return &errs.TransportError{Service: serviceName, Err: fmt.Errorf("decode items: %w", err)}
	}

	currentLog := ""
	if len(out.Items) > 0 {
		for _, cv := range out.Items[0].ColumnValues {
			if cv.ID == Columns[FieldConversationLog] {
				currentLog = cv.Text
				break
			}
		}
	}

	timestamp := c.now().Format("2006-01-02 15:04")
	newLog := strings.TrimSpace(fmt.Sprintf("%s\n\n[%s]\n%s", currentLog, timestamp, message))

	return c.changeColumns(ctx, itemID, map[string]any{
		Columns[FieldConversationLog]: map[string]any{"text": newLog},
	})
}

type rawItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ColumnValues []struct {
		ID    string `json:"id"`
		Text  string `json:"text"`
		Value string `json:"value"`
	} `json:"column_values"`
}

// parseItem tolerates missing columns by leaving zero values. Items created
// before the split-name columns existed only carry a display name; the
// fallback splits it on the first space.
func parseItem(item rawItem) models.Lead {
	cols := map[string]struct{ text, value string }{}
	for _, cv := range item.ColumnValues {
		cols[cv.ID] = struct{ text, value string }{cv.Text, cv.Value}
	}
	get := func(field string) string { return cols[Columns[field]].text }

	lead := models.Lead{
		FirstName:       get(FieldFirstName),
		LastName:        get(FieldLastName),
		Company:         get(FieldCompany),
		Position:        get(FieldPosition),
		LinkedInURL:     extractURL(cols[Columns[FieldLinkedInURL]].value),
		Status:          get(FieldStatus),
		Email:           get(FieldEmail),
		Phone:           get(FieldPhone),
		Source:          get(FieldSource),
		LastMessageDate: get(FieldLastMessageDate),
		NextActionDate:  get(FieldNextActionDate),
		MeetingDate:     get(FieldMeetingDate),
		ConversationLog: get(FieldConversationLog),
		Notes:           get(FieldNotes),
		ItemID:          item.ID,
	}
	if score := cols[Columns[FieldLeadScore]].text; score != "" {
		if n, err := strconv.Atoi(score); err == nil {
			lead.LeadScore = n
		}
	}
	if lead.FirstName == "" && lead.LastName == "" && item.Name != "" {
		first, last, found := strings.Cut(item.Name, " ")
		lead.FirstName = first
		if found {
			lead.LastName = last
		}
	}
	return lead
}

// extractURL pulls the url out of a link column's JSON value.
func extractURL(value string) string {
	if value == "" {
		return ""
	}
	var data struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(value), &data); err != nil {
		return ""
	}
	return data.URL
}

const itemsPageQuery = `
query ($board_id: [ID!], $cursor: String) {
	boards (ids: $board_id) {
		items_page (limit: 100, cursor: $cursor) {
			cursor
			items {
				id
				name
				column_values {
					id
					text
					value
				}
			}
		}
	}
}`

// GetAll returns every lead on the board, following the page cursor.
func (c *Client) GetAll(ctx context.Context) ([]models.Lead, error) {
	var leads []models.Lead
	var cursor string
	for {
		vars := map[string]any{"board_id": []string{c.boardID}}
		if cursor != "" {
			vars["cursor"] = cursor
		}
		data, err := c.execQuery(ctx, itemsPageQuery, vars)
		if err != nil {
			return nil, err
		}
		var out struct {
			Boards []struct {
				ItemsPage struct {
					Cursor string    `json:"cursor"`
					Items  []rawItem `json:"items"`
				} `json:"items_page"`
			} `json:"boards"`
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, &errs.TransportError{Service: serviceName, Err: fmt.Errorf("decode boards: %w", err)}
		}
		if len(out.Boards) == 0 {
			return leads, nil
		}
		page := out.Boards[0].ItemsPage
		for _, item := range page.Items {
			leads = append(leads, parseItem(item))
		}
		if page.Cursor == "" || len(page.Items) < pageSize {
			return leads, nil
		}
		cursor = page.Cursor
	}
}

// GetLeadsByStatus returns every lead currently carrying the given status
// label.
func (c *Client) GetLeadsByStatus(ctx context.Context, status string) ([]models.Lead, error) {
	all, err := c.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var matched []models.Lead
	for _, lead := range all {
		if lead.Status == status {
			matched = append(matched, lead)
		}
	}
	return matched, nil
}

const itemByIDQuery = `
query ($item_id: [ID!]) {
	items (ids: $item_id) {
		id
		name
		column_values {
			id
			text
			value
		}
	}
}`

// GetByID returns the lead for an item id, or nil if it does not exist.
func (c *Client) GetByID(ctx context.Context, itemID string) (*models.Lead, error) {
	data, err := c.execQuery(ctx, itemByIDQuery, map[string]any{"item_id": []string{itemID}})
	if err != nil {
		return nil, err
	}
	var out struct {
		Items []rawItem `json:"items"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &errs.TransportError{Service: serviceName, Err: fmt.Errorf("decode items: %w", err)}
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	lead := parseItem(out.Items[0])
	return &lead, nil
}
