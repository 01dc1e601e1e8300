package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalItems converts member keys to JSON TEXT for storage.
// HTML escaping is disabled so keys are stored byte-for-byte.
func marshalItems(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalItems parses JSON TEXT written by marshalItems.
func unmarshalItems(data string) ([]string, error) {
	if data == "" {
		return []string{}, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}
