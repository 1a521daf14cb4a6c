package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  team chat  ", "team chat"},
		{"with\x00control\x1fchars", "withcontrolchars"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeName(tt.in))
	}

	long := make([]byte, 150)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, sanitizeName(string(long)), 100)

	// Truncation must not split a multi-byte rune.
	multibyte := strings.Repeat("é", 150)
	truncated := sanitizeName(multibyte)
	assert.True(t, utf8.ValidString(truncated))
	assert.Equal(t, 100, utf8.RuneCountInString(truncated))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, isValidEmail(""))
	assert.True(t, isValidEmail("alice@example.com"))
	assert.False(t, isValidEmail("not-an-email"))
	assert.False(t, isValidEmail("@example.com"))
}

func TestUsernameRegex(t *testing.T) {
	assert.True(t, usernameRegex.MatchString("alice_01"))
	assert.True(t, usernameRegex.MatchString("a.b-c"))
	assert.False(t, usernameRegex.MatchString("ab"), "too short")
	assert.False(t, usernameRegex.MatchString("has space"))
	assert.False(t, usernameRegex.MatchString("emoji🙂"))
}

func TestDedupe(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	got := dedupe([]uuid.UUID{a, b, a, b, a})
	assert.Equal(t, []uuid.UUID{a, b}, got)

	assert.Empty(t, dedupe(nil))
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/?limit=20&bad=x&huge=9999", nil)

	assert.Equal(t, 20, queryInt(req, "limit", 50, 100))
	assert.Equal(t, 50, queryInt(req, "missing", 50, 100))
	assert.Equal(t, 50, queryInt(req, "bad", 50, 100))
	assert.Equal(t, 100, queryInt(req, "huge", 50, 100), "capped at max")
}

func TestUpgraderCheckOrigin(t *testing.T) {
	open := NewUpgrader(nil)
	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	assert.True(t, open.CheckOrigin(req), "empty allowlist admits any origin")

	restricted := NewUpgrader([]string{"https://app.example.com"})
	assert.False(t, restricted.CheckOrigin(req))

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, restricted.CheckOrigin(req))

	req.Header.Del("Origin")
	assert.True(t, restricted.CheckOrigin(req), "non-browser clients send no origin")
}
