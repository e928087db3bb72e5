package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/memspace/memspace/internal/model"
)

// Cursor is the decoded keyset position of the last item on a page,
// ordered by (createdAt DESC, id DESC).
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// cursorWire is the JSON shape inside the base64 envelope. CreatedAt travels
// as ISO8601 so cursors are portable across clients.
type cursorWire struct {
	CreatedAt strfmt.DateTime `json:"createdAt"`
	ID        string          `json:"id"`
}

// EncodeCursor encodes a cursor to an opaque base64 string.
func EncodeCursor(c Cursor) string {
	b, _ := json.Marshal(cursorWire{CreatedAt: strfmt.DateTime(c.CreatedAt), ID: c.ID})
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeCursor decodes a base64 cursor string back to cursor data.
// Malformed input fails with model.ErrInvalidCursor.
func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, model.ErrInvalidCursor
	}
	var w cursorWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Cursor{}, model.ErrInvalidCursor
	}
	if w.ID == "" {
		return Cursor{}, model.ErrInvalidCursor
	}
	return Cursor{CreatedAt: time.Time(w.CreatedAt), ID: w.ID}, nil
}

// CursorPage is the cursor-paginated response envelope.
type CursorPage[T any] struct {
	Data       []T     `json:"data"`
	NextCursor *string `json:"nextCursor"`
	HasMore    bool    `json:"hasMore"`
}

// NewCursorPage builds a page from limit+1 fetched items, trimming the probe
// item and deriving the next cursor from the last returned element.
func NewCursorPage[T any](items []T, limit int, cursorOf func(T) Cursor) CursorPage[T] {
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	page := CursorPage[T]{Data: items, HasMore: hasMore}
	if hasMore && len(items) > 0 {
		c := EncodeCursor(cursorOf(items[len(items)-1]))
		page.NextCursor = &c
	}
	return page
}
