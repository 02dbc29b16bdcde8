package textfilter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "a b c", "a b c"},
		{"leading space", " a b c", "a b c"},
		{"embedded newlines", "a\nb\r c", "a b c"},
		{"double spaces", "a b  c", "a b c"},
		{"crlf and trailing space", "Foo\r\nBar ", "Foo Bar"},
		{"tabs", "a\tb\tc", "a b c"},
		{"empty", "", ""},
		{"whitespace only", " \r\n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKey(tt.in))
		})
	}
}

// Texts that differ only in whitespace representation must produce the
// same key, since the key doubles as the dedup and deletion match key.
func TestNormalizeKeyEquivalence(t *testing.T) {
	variants := []string{"a\nb\r c", "a b  c", " a b c"}
	for _, v := range variants {
		assert.Equal(t, "a b c", NormalizeKey(v), "variant %q", v)
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation stripped", "Your account is suspended, verify now!", "your account is suspended verify now"},
		{"underscore kept", "utm_source=news", "utm_source news"},
		{"newlines collapsed", "one\r\ntwo", "one two"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestShouldIgnoreKeywords(t *testing.T) {
	assert.True(t, ShouldIgnore("sent from my phone, virus free thanks to antivirus"))
	assert.True(t, ShouldIgnore("see https://shop.example/item?utm_source=mail"))
	assert.True(t, ShouldIgnore("Virus Free message"), "keyword match is case-insensitive")
	assert.False(t, ShouldIgnore("your package has shipped"))
}

func TestShouldIgnoreLinkRatio(t *testing.T) {
	linkHeavy := strings.TrimSpace(strings.Repeat("click here http://a.very/long/tracking/url ", 4))
	assert.True(t, ShouldIgnore(linkHeavy))

	// A single short URL inside mostly prose stays below the threshold.
	prose := "the meeting notes are at http://x.io but read the summary below first"
	assert.False(t, ShouldIgnore(prose))
}

func TestShouldIgnoreEmptyText(t *testing.T) {
	assert.False(t, ShouldIgnore(""))
}
