package firestore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// List tokens are opaque to clients: base64("rfc3339nano|docID") over the sort key.

func encodeListToken(at time.Time, docID string) string {
	payload := fmt.Sprintf("%s|%s", at.UTC().Format(time.RFC3339Nano), docID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodeListToken(token string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return time.Time{}, "", fmt.Errorf("decode token: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return time.Time{}, "", errors.New("malformed token payload")
	}
	at, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("parse token timestamp: %w", err)
	}
	return at, parts[1], nil
}

func fetchLimits(pageSize int) (limit, fetch int) {
	if pageSize < 0 {
		pageSize = 0
	}
	limit = pageSize
	fetch = pageSize
	if pageSize > 0 {
		fetch = pageSize + 1
	}
	return limit, fetch
}
