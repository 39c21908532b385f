package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := AdminLoginRequest{
		Username: "  admin  ",
		Password: "  hunter22  ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "admin", req.Username)
	assert.Equal(t, "hunter22", req.Password)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := CreateChannelRequest{
		Name: "channel <script>alert('x')</script>",
		Link: "https://t.me/ch",
	}
	SanitizeStruct(&req)

	assert.Contains(t, req.Name, "&lt;script&gt;")
	assert.NotContains(t, req.Name, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	owner := "  b7f9d3c0-0000-0000-0000-000000000001  "
	req := CreateChannelRequest{
		Name:    "ch",
		OwnerID: &owner,
	}
	SanitizeStruct(&req)

	require.NotNil(t, req.OwnerID)
	assert.Equal(t, "b7f9d3c0-0000-0000-0000-000000000001", *req.OwnerID)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := CreateChannelRequest{Name: "ch"}
	SanitizeStruct(&req)
	assert.Nil(t, req.OwnerID)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"tx_abc123",
		"TX-002",
		"a.b.c",
		"chain:out.7",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"tx 001",      // space
		"tx<001>",     // angle brackets
		"tx;DROP",     // semicolon
		"",            // empty
		"hello world", // space
		"tx\n001",     // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestChannelLink(t *testing.T) {
	cases := []struct {
		link  string
		valid bool
	}{
		{"https://t.me/crypto_news", true},
		{"http://telegram.me/some_channel", true},
		{"@crypto_news", true},
		{"", true}, // optional; "required" enforces presence separately
		{"@", false},
		{"ftp://t.me/x", false},
		{"https://evil.com/path", false},
		{"not a url", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.valid, isChannelLink(tc.link), "link %q", tc.link)
	}
}
