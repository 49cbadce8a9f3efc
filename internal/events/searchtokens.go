package events

import (
	"encoding/json"
	"strings"
)

const (
	minTokenLen = 2
	maxTokens   = 30
)

// SearchTokens builds lightweight search tokens for marketplace listings:
// the unique lowercase alphanumeric words of length >= 2 across the given
// values, in first-seen order, capped at 30.
func SearchTokens(values ...string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, value := range values {
		if value == "" {
			continue
		}
		for _, token := range splitAlnum(strings.ToLower(value)) {
			if len(token) < minTokenLen {
				continue
			}
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			out = append(out, token)
			if len(out) == maxTokens {
				return out
			}
		}
	}
	return out
}

// splitAlnum splits s on any run of non-alphanumeric bytes.
func splitAlnum(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

// tokensJSON encodes tokens for storage in the item's JSON column.
func tokensJSON(tokens []string) []byte {
	raw, err := json.Marshal(tokens)
	if err != nil {
		return []byte("[]")
	}
	return raw
}
