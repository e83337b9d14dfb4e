package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"blank", "   ", ""},
		{"plain", "Plain text", "Plain text"},
		{"tags", "<p>Hello <b>world</b></p>", "Hello world"},
		{"nbsp entity", "one&nbsp;two", "one two"},
		{"broken nbsp", "one& nbsp;two& Nbsp;three", "one two three"},
		{"raw nbsp", "one\u00a0two", "one two"},
		{"entities", "Tom &amp; Jerry", "Tom & Jerry"},
		{"whitespace collapsed", "<div>\n  a \n\n b\t</div>", "a b"},
		{"unclosed", "<p>open <i>ended", "open ended"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitize(tt.input))
		})
	}
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "a b", truncateWords("a b c d", 2))
	assert.Equal(t, "a b", truncateWords(" a   b ", 5))
	assert.Equal(t, "", truncateWords("", 5))
}

func TestUniqueJoin(t *testing.T) {
	assert.Equal(t, "b, a", uniqueJoin([]string{"b", "", "a", "b", " a "}))
	assert.Equal(t, "", uniqueJoin(nil))
	assert.Equal(t, "", uniqueJoin([]string{"", "  "}))
}

func TestLinks(t *testing.T) {
	base := DefaultLinkBase

	assert.Equal(t, "http://uat.center.cruises/cruise-R1-VOLGA", Link(base, "R1", "VOLGA"))
	assert.Empty(t, Link(base, "R1", ""))
	assert.Empty(t, Link(base, " ", "VOLGA"))

	assert.Equal(t, []string{base + "1-X", base + "3-X"}, Links(base, []string{"1", "", "3"}, "X"))
	assert.Empty(t, Links(base, []string{"1"}, ""))

	assert.Equal(t, base+"R2-X", FirstLink(base, " , R2, R3", "X"))
	assert.Empty(t, FirstLink(base, "", "X"))
	assert.Empty(t, FirstLink(base, "R1", ""))
}
