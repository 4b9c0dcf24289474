package hashstore

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"", "anything", true},
		{"*", "anything", true},
		{"*", "", true},
		{"user:*", "user:1", true},
		{"user:*", "admin:1", false},
		{"h?llo", "hello", true},
		{"h?llo", "hllo", false},
		{"h*llo", "heeeello", true},
		{"a**b", "axyb", true},
		{"h[ae]llo", "hallo", true},
		{"h[ae]llo", "hillo", false},
		{"h[^e]llo", "hallo", true},
		{"h[^e]llo", "hello", false},
		{"h[a-b]llo", "hbllo", true},
		{"h[a-b]llo", "hcllo", false},
		{`h\*llo`, "h*llo", true},
		{`h\*llo`, "hello", false},
		{"[abc", "[abc", true},
		{"[abc", "abc", false},
		{"abc", "abcd", false},
		{"abc", "ab", false},
		{"*:sessions:*", "hashview:sessions:42", true},
		{"*a", "ba", true},
		{"a*b*c", "abxbxc", true},
		{"a*b*c", "abxbx", false},
		{"*[0-9]", "user:7", true},
		{`*\?`, "what?", true},
		{"**", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.s, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchPattern(tt.pattern, tt.s))
		})
	}
}

func TestMatchPattern_ManyStars(t *testing.T) {
	key := strings.Repeat("a", 5000)
	pattern := strings.Repeat("*a", 12) + "*b"

	start := time.Now()
	assert.False(t, MatchPattern(pattern, key))
	assert.True(t, MatchPattern(pattern, key+"b"))
	assert.Less(t, time.Since(start), 5*time.Second)
}
