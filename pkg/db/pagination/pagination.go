// Package pagination implements opaque cursor pagination for list endpoints.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

// Pagination carries the caller-supplied page parameters.
type Pagination struct {
	PageToken string `form:"page_token" json:"page_token"`
	PageSize  int    `form:"page_size" json:"page_size"`
}

// PageInfo describes the position of a returned page.
type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

// Cursor is the decoded page position.
type Cursor struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

var ErrInvalidCursor = errors.New("invalid_cursor")

// EncodeCursor serializes a cursor into an opaque token.
func EncodeCursor(cursor Cursor) (string, error) {
	raw, err := json.Marshal(cursor)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor parses an opaque token back into a cursor.
func DecodeCursor(token string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cursor{}, ErrInvalidCursor
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	var cursor Cursor
	if err := json.Unmarshal(raw, &cursor); err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	return cursor, nil
}

// BuildCursorPageInfo computes page info for a result set fetched with one
// extra row. tokenFn renders the cursor token for the last visible record.
func BuildCursorPageInfo[T any](items []T, pageSize int32, tokenFn func(T) string) *PageInfo {
	if pageSize <= 0 || len(items) == 0 {
		return &PageInfo{}
	}
	info := &PageInfo{}
	if len(items) > int(pageSize) {
		info.HasMore = true
		info.NextPageToken = tokenFn(items[pageSize-1])
	}
	return info
}
