// Package pagination implements keyset cursors for list endpoints. A cursor
// names the last row of the previous page (id plus creation timestamp), so
// pages stay stable while rows are inserted, unlike offset pagination.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// Cursor is the decoded position of the last item the client has seen.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// PageResult is the wire shape of one page.
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var ErrInvalidCursor = errors.New("invalid cursor format")

// EncodeCursor packs an item position into an opaque string. The payload is
// `id|RFC3339Nano` base64-encoded; clients must treat it as opaque.
func EncodeCursor(lastID string, ts time.Time) string {
	if lastID == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(lastID + "|" + ts.UTC().Format(time.RFC3339Nano)))
}

// DecodeCursor reverses EncodeCursor. An empty cursor decodes to nil,
// meaning "start from the beginning".
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	id, tsPart, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	ts, err := time.Parse(time.RFC3339Nano, tsPart)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: id, Timestamp: ts}, nil
}

// CreateNextCursor derives the cursor for the page after items, or "" when
// the page came back short and there is nothing more to fetch.
func CreateNextCursor[T any](items []T, limit int, getID func(T) string, getTimestamp func(T) time.Time) string {
	if len(items) == 0 || len(items) < limit {
		return ""
	}
	last := items[len(items)-1]
	return EncodeCursor(getID(last), getTimestamp(last))
}
