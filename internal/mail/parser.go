package mail

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
)

// alertPrefix marks a trade-alert subject; everything after it is the
// signal payload as JSON.
const alertPrefix = "Alert:"

// ErrNotAlert means the subject is ordinary mail, not a trade alert. The
// caller should leave such messages unread.
var ErrNotAlert = errors.New("subject is not a trade alert")

// ParseAlertSubject extracts the signal payload from an email subject of
// the form "Alert:{...json...}". Mail clients smuggle HTML entities and
// zero-width characters into forwarded subjects, so those are stripped
// before decoding.
func ParseAlertSubject(subject string) (map[string]interface{}, error) {
	subject = strings.TrimSpace(subject)
	if !strings.HasPrefix(subject, alertPrefix) {
		return nil, ErrNotAlert
	}

	jsonPart := strings.TrimSpace(strings.TrimPrefix(subject, alertPrefix))
	jsonPart = html.UnescapeString(jsonPart)
	jsonPart = strings.Map(dropInvisible, jsonPart)

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(jsonPart), &payload); err != nil {
		return nil, fmt.Errorf("parsing alert subject: %w", err)
	}
	return payload, nil
}

func dropInvisible(r rune) rune {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\ufeff', '\n', '\r':
		return -1
	case '\u00a0':
		// Non-breaking spaces would choke the JSON decoder
		return ' '
	}
	return r
}
