package crm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Board provisioning for a fresh Ksharim pipeline. Run once; the resulting
// board id and column ids go into the environment.

var statusDefaults = map[string]any{
	"labels": map[string]string{
		"0": "New",
		"1": "Contacted",
		"2": "In Conversation",
		"3": "Meeting Scheduled",
		"4": "Not Interested",
		"5": "Won",
	},
}

type columnSpec struct {
	Title string
	Type  string
}

var boardColumns = []columnSpec{
	{"First Name", "text"},
	{"Last Name", "text"},
	{"Company", "text"},
	{"Position", "text"},
	{"LinkedIn URL", "link"},
	{"Status", "status"},
	{"Email", "email"},
	{"Phone", "phone"},
	{"Lead Score", "numbers"},
	{"Source", "text"},
	{"Last Message Date", "date"},
	{"Next Action Date", "date"},
	{"Meeting Date", "date"},
	{"Conversation Log", "long_text"},
	{"Notes", "long_text"},
}

const createBoardQuery = `
mutation ($board_name: String!) {
	create_board (board_name: $board_name, board_kind: private) {
		id
	}
}`

const createColumnQuery = `
mutation ($board_id: ID!, $title: String!, $column_type: ColumnType!, $defaults: JSON) {
	create_column (board_id: $board_id, title: $title, column_type: $column_type, defaults: $defaults) {
		id
		title
	}
}`

// SetupBoard creates the pipeline board with its full column set and
// returns the board id plus the created column ids keyed by title.
func (c *Client) SetupBoard(ctx context.Context, boardName string) (string, map[string]string, error) {
	data, err := c.execQuery(ctx, createBoardQuery, map[string]any{"board_name": boardName})
	if err != nil {
		return "", nil, err
	}
	var created struct {
		CreateBoard struct {
			ID string `json:"id"`
		} `json:"create_board"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return "", nil, fmt.Errorf("decode create_board: %w", err)
	}
	boardID := created.CreateBoard.ID
	c.log.Info("board created", "board_id", boardID, "name", boardName)

	columns := make(map[string]string, len(boardColumns))
	for _, spec := range boardColumns {
		vars := map[string]any{
			"board_id":    boardID,
			"title":       spec.Title,
			"column_type": spec.Type,
		}
		if spec.Type == "status" {
			defaults, err := json.Marshal(statusDefaults)
			if err != nil {
				return "", nil, fmt.Errorf("encode status defaults: %w", err)
			}
			vars["defaults"] = string(defaults)
		}
		data, err := c.execQuery(ctx, createColumnQuery, vars)
		if err != nil {
			return "", nil, fmt.Errorf("create column %q: %w", spec.Title, err)
		}
		var col struct {
			CreateColumn struct {
				ID string `json:"id"`
			} `json:"create_column"`
		}
		if err := json.Unmarshal(data, &col); err != nil {
			return "", nil, fmt.Errorf("decode create_column: %w", err)
		}
		columns[spec.Title] = col.CreateColumn.ID
		c.log.Info("column created", "title", spec.Title, "column_id", col.CreateColumn.ID)
	}
	return boardID, columns, nil
}
