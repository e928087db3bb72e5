package pagination

import (
	"errors"
	"testing"
	"time"

	"github.com/memspace/memspace/internal/model"
)

func TestClampLimit(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{1, 1},
		{50, 50},
		{MaxLimit, MaxLimit},
		{1000, MaxLimit},
	}
	for _, c := range cases {
		if got := ClampLimit(c.in); got != c.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestClampOffset(t *testing.T) {
	if got := ClampOffset(-1); got != 0 {
		t.Errorf("ClampOffset(-1) = %d", got)
	}
	if got := ClampOffset(42); got != 42 {
		t.Errorf("ClampOffset(42) = %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC), ID: "user-42"}
	out, err := DecodeCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != in.ID {
		t.Fatalf("id: got %q want %q", out.ID, in.ID)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("createdAt: got %v want %v", out.CreatedAt, in.CreatedAt)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, s := range []string{
		"not-base64!!!",
		"aGVsbG8=",                 // base64 of "hello", not JSON
		"e30=",                     // "{}": missing id
		"eyJpZCI6IiJ9",             // {"id":""}
		"eyJjcmVhdGVkQXQiOjEyM30=", // {"createdAt":123}: wrong type, no id
	} {
		if _, err := DecodeCursor(s); !errors.Is(err, model.ErrInvalidCursor) {
			t.Errorf("DecodeCursor(%q): want ErrInvalidCursor, got %v", s, err)
		}
	}
}

func TestNewCursorPage(t *testing.T) {
	cursorOf := func(s string) Cursor { return Cursor{ID: s} }

	// limit+1 items: probe trimmed, next cursor points at the last kept item.
	page := NewCursorPage([]string{"a", "b", "c"}, 2, cursorOf)
	if !page.HasMore || len(page.Data) != 2 || page.Data[1] != "b" {
		t.Fatalf("full page: %+v", page)
	}
	if page.NextCursor == nil {
		t.Fatal("full page: nil next cursor")
	}
	c, err := DecodeCursor(*page.NextCursor)
	if err != nil || c.ID != "b" {
		t.Fatalf("next cursor: id=%q err=%v", c.ID, err)
	}

	// Short page: no more results.
	page = NewCursorPage([]string{"a"}, 2, cursorOf)
	if page.HasMore || page.NextCursor != nil || len(page.Data) != 1 {
		t.Fatalf("short page: %+v", page)
	}

	// Empty page.
	page = NewCursorPage(nil, 2, cursorOf)
	if page.HasMore || page.NextCursor != nil || len(page.Data) != 0 {
		t.Fatalf("empty page: %+v", page)
	}
}
