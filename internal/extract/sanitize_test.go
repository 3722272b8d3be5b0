package extract

import (
	"math"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"keeps whitespace controls", "a\tb\nc\rd", "a\tb\nc\rd"},
		{"strips low range", "a\x00b\x08c", "abc"},
		{"strips vertical tab and form feed", "a\x0bb\x0cc", "abc"},
		{"strips high range", "a\x0eb\x1fc", "abc"},
		{"keeps space and unicode", "при вет ✓", "при вет ✓"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	var b strings.Builder
	for r := rune(0); r < 0x80; r++ {
		b.WriteRune(r)
	}
	in := b.String()

	once := Sanitize(in)
	assert.Equal(t, once, Sanitize(once))
	assert.Contains(t, once, "\t")
	assert.Contains(t, once, "\n")
	assert.Contains(t, once, "\r")
	for _, r := range once {
		if r < 0x20 {
			assert.Contains(t, []rune{'\t', '\n', '\r'}, r)
		}
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"reads", 0},
		{"12,345 Reads", 12345},
		{"1.2K reads", 12},
		{"3.4M", 34},
		{"-5 votes", 5},
		{"99999999999999999999 reads", math.MaxInt},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCount(tt.in))
		})
	}
}

func TestTextHelpers(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		"<div id=a>  Hello   <b>bold</b>\n world\x01 </div><pre id=b>line one\n\n   line   two  \n</pre>"))
	require.NoError(t, err)

	assert.Equal(t, "Hello bold world", inlineText(doc.Find("#a")))
	assert.Equal(t, "line one\nline two", blockText(doc.Find("#b")))
}
