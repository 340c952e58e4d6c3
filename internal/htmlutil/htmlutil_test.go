package htmlutil

import (
	"strings"
	"testing"
)

func TestLooksLikeHTML(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"<p>hello</p>", true},
		{"  <div class=\"x\">y</div>", true},
		{"plain text", false},
		{"## markdown heading", false},
		{"a < b and b > c", false},
	}
	for _, c := range cases {
		if got := LooksLikeHTML(c.in); got != c.want {
			t.Errorf("LooksLikeHTML(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestToTextParagraphs(t *testing.T) {
	got := ToText("<div><p>First point.</p><p>Second point.</p></div>")
	if !strings.Contains(got, "First point.") || !strings.Contains(got, "Second point.") {
		t.Fatalf("ToText = %q", got)
	}
	if strings.Contains(got, "<p>") {
		t.Fatalf("markup survived: %q", got)
	}
}

func TestToTextFencesCode(t *testing.T) {
	got := ToText("<p>Use this:</p><pre>x := a &lt; b</pre>")
	if !strings.Contains(got, "```\nx := a < b\n```") {
		t.Fatalf("ToText = %q", got)
	}
}

func TestNormalizePassesPlainText(t *testing.T) {
	in := "## Review\n\nAll good."
	if got := Normalize(in); got != in {
		t.Fatalf("Normalize changed plain text: %q", got)
	}
}
