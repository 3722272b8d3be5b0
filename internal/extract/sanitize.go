package extract

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// Sanitize drops C0 control characters that XML and HTML output cannot carry.
// Tab, newline and carriage return are kept.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t', r == '\n', r == '\r':
			return r
		case r < 0x20:
			return -1
		}
		return r
	}, s)
}

// ParseCount keeps only the digits of s. "1.2K reads" is 12, not 1200.
func ParseCount(s string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0
	}

	n, err := strconv.Atoi(digits)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt
	}
	if err != nil || n < 0 {
		return 0
	}

	return n
}

func normalizeSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// inlineText is the whitespace-collapsed, sanitized text of sel.
func inlineText(sel *goquery.Selection) string {
	return Sanitize(normalizeSpace(sel.Text()))
}

// blockText keeps line structure: each line collapsed, blank lines dropped.
func blockText(sel *goquery.Selection) string {
	var lines []string
	for line := range strings.SplitSeq(sel.Text(), "\n") {
		if l := normalizeSpace(line); l != "" {
			lines = append(lines, l)
		}
	}

	return Sanitize(strings.Join(lines, "\n"))
}
