package pagination

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestFromRequestDefaultsAndCaps(t *testing.T) {
	r := httptest.NewRequest("GET", "/items", nil)
	params, err := FromRequest(r, Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if params.PageSize != DefaultPageSize {
		t.Fatalf("expected default page size %d, got %d", DefaultPageSize, params.PageSize)
	}

	r = httptest.NewRequest("GET", "/items?pageSize=5000", nil)
	params, err = FromRequest(r, Options{MaxPageSize: 25})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if params.PageSize != 25 {
		t.Fatalf("expected page size capped at 25, got %d", params.PageSize)
	}
}

func TestFromRequestRejectsInvalidPageSize(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-3"} {
		r := httptest.NewRequest("GET", "/items?pageSize="+raw, nil)
		if _, err := FromRequest(r, Options{}); !errors.Is(err, ErrInvalidPageSize) {
			t.Fatalf("pageSize=%s: expected ErrInvalidPageSize, got %v", raw, err)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := EncodeToken(Cursor{StartAfter: []any{"msg_01", "2025-06-01T00:00:00Z"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}

	cursor, err := DecodeToken(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cursor.StartAfter) != 2 {
		t.Fatalf("expected 2 cursor values, got %d", len(cursor.StartAfter))
	}
	if cursor.StartAfter[0] != "msg_01" {
		t.Fatalf("expected first cursor value msg_01, got %v", cursor.StartAfter[0])
	}
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	if _, err := DecodeToken("!!not-base64!!"); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}
