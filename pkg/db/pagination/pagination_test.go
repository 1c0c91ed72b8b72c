package pagination

import (
	"errors"
	"testing"
)

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{ID: "123456789", CreatedAt: "2024-06-01T10:00:00Z"}
	token, err := EncodeCursor(cursor)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != cursor {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "   ", "!!!", "bm90LWpzb24"} {
		if _, err := DecodeCursor(token); !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("DecodeCursor(%q): expected invalid_cursor, got %v", token, err)
		}
	}
}

func TestBuildCursorPageInfo(t *testing.T) {
	tokenFn := func(v int) string { return "t" }

	info := BuildCursorPageInfo([]int{1, 2, 3}, 2, tokenFn)
	if !info.HasMore || info.NextPageToken == "" {
		t.Fatalf("expected more pages, got %+v", info)
	}

	info = BuildCursorPageInfo([]int{1, 2}, 2, tokenFn)
	if info.HasMore || info.NextPageToken != "" {
		t.Fatalf("exact page must not report more, got %+v", info)
	}

	info = BuildCursorPageInfo(nil, 2, tokenFn)
	if info.HasMore {
		t.Fatalf("empty result must not report more, got %+v", info)
	}
}
